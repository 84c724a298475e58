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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/bits"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const (
	DefaultValueLogFileSize = 64 << 20
	gcInterval              = 5 * time.Minute
)

// Store keeps ledger records in badger. Data is kept in memory when no data
// directory is configured
type Store struct {
	db               *badger.DB
	logger           *slog.Logger
	gcTicker         *time.Ticker
	gcStopCh         chan struct{}
	dataDir          string
	gcWg             sync.WaitGroup
	valueLogFileSize int64
	gcEnabled        bool
}

// NewStore opens (or creates) a record store
func NewStore(opts ...StoreOptionFunc) (*Store, error) {
	s := &Store{
		gcEnabled:        true,
		valueLogFileSize: DefaultValueLogFileSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var badgerOpts badger.Options
	if s.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").
			WithInMemory(true)
		// Nothing to collect for an in-memory store
		s.gcEnabled = false
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(s.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(s.dataDir, "ledger")).
			WithValueLogFileSize(s.valueLogFileSize).
			WithCompression(options.Snappy)
	}
	badgerOpts = badgerOpts.
		WithLogger(newBadgerLogger(s.logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	s.db = db
	if s.gcEnabled {
		s.gcTicker = time.NewTicker(gcInterval)
		s.gcStopCh = make(chan struct{})
		s.gcWg.Add(1)
		go s.valueLogGc(s.gcTicker, s.gcStopCh)
	}
	return s, nil
}

func (s *Store) valueLogGc(t *time.Ticker, stop <-chan struct{}) {
	defer s.gcWg.Done()
	for {
		select {
		case <-t.C:
			for {
				err := s.db.RunValueLogGC(0.5)
				if err == nil {
					// Run it again if it just ran successfully
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					s.logger.Warn(
						fmt.Sprintf("ledger store: GC failure: %s", err),
						"component", "ledger",
					)
				}
				break
			}
		case <-stop:
			return
		}
	}
}

// Close stops background GC and closes the underlying database
func (s *Store) Close() error {
	if s.gcTicker != nil {
		s.gcTicker.Stop()
		close(s.gcStopCh)
		s.gcWg.Wait()
		s.gcTicker = nil
	}
	return s.db.Close()
}

// Get returns the committed record at addr
func (s *Store) Get(addr Address) (*Record, error) {
	var ret *Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ret, err = getRecord(txn, addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Balance returns the native balance at addr. Missing records hold nothing
func (s *Store) Balance(addr Address) (uint64, error) {
	rec, err := s.Get(addr)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return rec.Balance, nil
}

// Airdrop credits native value to an address out of thin air. It exists to
// seed local and test ledgers
func (s *Store) Airdrop(addr Address, amount uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, addr)
		if err != nil {
			if !errors.Is(err, ErrAccountNotFound) {
				return err
			}
			rec = &Record{Owner: SystemProgramID}
		}
		newBalance, carry := bits.Add64(rec.Balance, amount, 0)
		if carry != 0 {
			return ErrBalanceOverflow
		}
		rec.Balance = newBalance
		return putRecord(txn, addr, rec)
	})
}

// Scan calls fn for every record owned by owner. Records are visited in
// address order
func (s *Store) Scan(owner Address, fn func(Address, *Record) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(recordKeyPrefix)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeRecord(val)
			if err != nil {
				return err
			}
			if !bytes.Equal(rec.Owner[:], owner[:]) {
				continue
			}
			var addr Address
			copy(addr[:], item.Key()[len(recordKeyPrefix):])
			if err := fn(addr, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// LastTimestamp returns the timestamp of the most recently committed transaction
func (s *Store) LastTimestamp() (int64, error) {
	var ret int64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ret, err = getClock(txn)
		return err
	})
	return ret, err
}

func getRecord(txn *badger.Txn, addr Address) (*Record, error) {
	item, err := txn.Get(recordKey(addr))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
		}
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(val)
}

func putRecord(txn *badger.Txn, addr Address, rec *Record) error {
	val, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return txn.Set(recordKey(addr), val)
}

func getClock(txn *badger.Txn) (int64, error) {
	item, err := txn.Get([]byte(clockKey))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("corrupt ledger clock: %d bytes", len(val))
	}
	return int64(binary.BigEndian.Uint64(val)), nil //nolint:gosec
}

func putClock(txn *badger.Txn, ts int64) error {
	val := binary.BigEndian.AppendUint64(nil, uint64(ts)) //nolint:gosec
	return txn.Set([]byte(clockKey), val)
}
