// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/umanity/event"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultMaxConflictRetries = 32

	tracerName = "github.com/blinklabs-io/umanity/ledger"
)

// Program is a stateless set of entry points that the runtime invokes with
// instruction data addressed to its ID
type Program interface {
	ID() Address
	Name() string
	Process(txn *Txn, data []byte) error
}

// Receipt describes a committed transaction
type Receipt struct {
	ID        TxID
	Program   Address
	Timestamp int64
	Events    []EmittedEvent
	Attempts  int
}

// Runtime executes transactions against a Store. Each transaction runs in a
// single badger read-write transaction; concurrent transactions touching the
// same records are serialized by re-running the loser of a write conflict.
// Commits and event publishing happen under one lock, so subscribers see
// events in commit order
type Runtime struct {
	store              *Store
	eventBus           *event.EventBus
	logger             *slog.Logger
	promRegistry       prometheus.Registerer
	metrics            *runtimeMetrics
	clock              func() time.Time
	programs           map[Address]Program
	programsMutex      sync.RWMutex
	clockMutex         sync.Mutex
	commitMutex        sync.Mutex
	lastTimestamp      int64
	clockLoaded        bool
	maxConflictRetries int
}

func NewRuntime(store *Store, opts ...RuntimeOptionFunc) *Runtime {
	r := &Runtime{
		store:              store,
		clock:              time.Now,
		programs:           make(map[Address]Program),
		maxConflictRetries: DefaultMaxConflictRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if r.promRegistry != nil {
		r.metrics = &runtimeMetrics{}
		r.metrics.init(r.promRegistry)
	}
	return r
}

// Store returns the underlying record store
func (r *Runtime) Store() *Store {
	return r.store
}

// Register makes a program invocable. Registering a second program with the
// same ID replaces the first
func (r *Runtime) Register(p Program) {
	r.programsMutex.Lock()
	defer r.programsMutex.Unlock()
	r.programs[p.ID()] = p
	r.logger.Debug(
		"registered program",
		"component", "ledger",
		"program", p.Name(),
		"program_id", p.ID().String(),
	)
}

func (r *Runtime) program(id Address) (Program, bool) {
	r.programsMutex.RLock()
	defer r.programsMutex.RUnlock()
	p, ok := r.programs[id]
	return p, ok
}

// Submit verifies, executes, and commits a transaction. Any error leaves the
// ledger untouched and no events are published
func (r *Runtime) Submit(ctx context.Context, tx *Transaction) (*Receipt, error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ledger.Submit")
	defer span.End()
	receipt, programName, err := r.submit(ctx, tx)
	if r.metrics != nil {
		r.metrics.observe(programName, err, time.Since(start))
	}
	span.SetAttributes(attribute.String("ledger.program", programName))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Debug(
			"transaction rejected",
			"component", "ledger",
			"program", programName,
			"error", err,
		)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("ledger.tx_id", receipt.ID.String()),
		attribute.Int("ledger.attempts", receipt.Attempts),
	)
	r.logger.Debug(
		"transaction committed",
		"component", "ledger",
		"program", programName,
		"tx_id", receipt.ID.String(),
		"events", len(receipt.Events),
	)
	return receipt, nil
}

func (r *Runtime) submit(
	ctx context.Context,
	tx *Transaction,
) (*Receipt, string, error) {
	programName := "unknown"
	if tx == nil {
		return nil, programName, errors.New("nil transaction")
	}
	p, ok := r.program(tx.Message.Instruction.ProgramID)
	if !ok {
		return nil, programName, fmt.Errorf(
			"%w: %s",
			ErrUnknownProgram,
			tx.Message.Instruction.ProgramID,
		)
	}
	programName = p.Name()
	signers, _, err := tx.verify()
	if err != nil {
		return nil, programName, err
	}
	id, err := tx.ID()
	if err != nil {
		return nil, programName, err
	}
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, programName, err
		}
		receipt, err := r.execute(p, tx, id, signers)
		if err == nil {
			receipt.Attempts = attempt
			return receipt, programName, nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return nil, programName, err
		}
		if r.metrics != nil {
			r.metrics.conflicts.Inc()
		}
		if attempt >= r.maxConflictRetries {
			return nil, programName, fmt.Errorf(
				"%w: %w",
				ErrTooManyConflicts,
				err,
			)
		}
	}
}

func (r *Runtime) execute(
	p Program,
	tx *Transaction,
	id TxID,
	signers map[Address]struct{},
) (_ *Receipt, err error) {
	btxn := r.store.db.NewTransaction(true)
	defer btxn.Discard()
	if _, err := btxn.Get(processedKey(id)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTransaction, id)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, err
	}
	now, err := r.timestamp()
	if err != nil {
		return nil, err
	}
	txn := newTxn(btxn, p.ID(), signers, now, r.logger)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrProgramPanic, rec)
		}
	}()
	if err := p.Process(txn, tx.Message.Instruction.Data); err != nil {
		return nil, err
	}
	if err := btxn.Set(processedKey(id), nil); err != nil {
		return nil, err
	}
	r.commitMutex.Lock()
	defer r.commitMutex.Unlock()
	// Commits are serialized here, so the stored clock only moves forward
	// even when transactions started out of order
	if err := putClock(btxn, r.clockHighWater(now)); err != nil {
		return nil, err
	}
	if err := btxn.Commit(); err != nil {
		return nil, err
	}
	r.advanceClock(now)
	r.publish(txn.events)
	return &Receipt{
		ID:        id,
		Program:   p.ID(),
		Timestamp: now,
		Events:    txn.events,
	}, nil
}

// timestamp returns the current wall clock in unix seconds, clamped so that
// it never falls below the newest committed timestamp. The clock record is
// written without being read so it does not make every transaction conflict
func (r *Runtime) timestamp() (int64, error) {
	r.clockMutex.Lock()
	defer r.clockMutex.Unlock()
	if !r.clockLoaded {
		last, err := r.store.LastTimestamp()
		if err != nil {
			return 0, err
		}
		r.lastTimestamp = last
		r.clockLoaded = true
	}
	return max(r.clock().Unix(), r.lastTimestamp), nil
}

func (r *Runtime) clockHighWater(ts int64) int64 {
	r.clockMutex.Lock()
	defer r.clockMutex.Unlock()
	return max(ts, r.lastTimestamp)
}

// publish delivers committed events to the bus
func (r *Runtime) publish(events []EmittedEvent) {
	if r.eventBus == nil {
		return
	}
	for _, evt := range events {
		r.eventBus.Publish(evt.Type, event.NewEvent(evt.Type, evt.Data))
	}
}

func (r *Runtime) advanceClock(ts int64) {
	r.clockMutex.Lock()
	defer r.clockMutex.Unlock()
	if ts > r.lastTimestamp {
		r.lastTimestamp = ts
	}
}
