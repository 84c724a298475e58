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
	"errors"
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/blinklabs-io/umanity/event"
	badger "github.com/dgraph-io/badger/v4"
)

// EmittedEvent is an event buffered by a program during execution. It is
// published only after the enclosing transaction commits
type EmittedEvent struct {
	Type event.EventType
	Data any
}

// Txn is the view of the ledger given to a program while it processes one
// instruction. Every change made through it commits or is discarded as a unit
type Txn struct {
	btxn      *badger.Txn
	logger    *slog.Logger
	signers   map[Address]struct{}
	events    []EmittedEvent
	now       int64
	programID Address
}

func newTxn(
	btxn *badger.Txn,
	programID Address,
	signers map[Address]struct{},
	now int64,
	logger *slog.Logger,
) *Txn {
	return &Txn{
		btxn:      btxn,
		programID: programID,
		signers:   signers,
		now:       now,
		logger:    logger,
	}
}

// ProgramID returns the ID of the program executing in this transaction
func (t *Txn) ProgramID() Address {
	return t.programID
}

// IsSigner reports whether addr produced a valid signature over the transaction
func (t *Txn) IsSigner(addr Address) bool {
	_, ok := t.signers[addr]
	return ok
}

// Now returns the transaction timestamp in unix seconds. It never goes
// backwards across committed transactions
func (t *Txn) Now() int64 {
	return t.now
}

func (t *Txn) Logger() *slog.Logger {
	return t.logger
}

// Get returns the record at addr, including uncommitted writes made earlier
// in this transaction
func (t *Txn) Get(addr Address) (*Record, error) {
	return getRecord(t.btxn, addr)
}

// GetOwned returns the record at addr, which must be owned by the executing program
func (t *Txn) GetOwned(addr Address) (*Record, error) {
	rec, err := t.Get(addr)
	if err != nil {
		return nil, err
	}
	if rec.Owner != t.programID {
		return nil, fmt.Errorf("%w: %s", ErrAccountOwnerMismatch, addr)
	}
	return rec, nil
}

// Balance returns the native balance at addr. Missing records hold nothing
func (t *Txn) Balance(addr Address) (uint64, error) {
	rec, err := t.Get(addr)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return rec.Balance, nil
}

// AllocateDerived creates a program-owned record at the address derived from
// seeds (bump included) and the executing program. Allocation fails with
// ErrAccountInUse when anything already lives at that address
func (t *Txn) AllocateDerived(
	seeds [][]byte,
	space int,
	data []byte,
) (Address, error) {
	addr, err := CreateProgramAddress(seeds, t.programID)
	if err != nil {
		return Address{}, err
	}
	if _, err := t.Get(addr); err == nil {
		return Address{}, fmt.Errorf("%w: %s", ErrAccountInUse, addr)
	} else if !errors.Is(err, ErrAccountNotFound) {
		return Address{}, err
	}
	if space < 0 || len(data) > space {
		return Address{}, fmt.Errorf(
			"%w: %d > %d",
			ErrRecordTooLarge,
			len(data),
			space,
		)
	}
	rec := &Record{
		Owner: t.programID,
		Space: uint32(space), //nolint:gosec
		Data:  data,
	}
	if err := putRecord(t.btxn, addr, rec); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// Write replaces the data of a record owned by the executing program
func (t *Txn) Write(addr Address, data []byte) error {
	rec, err := t.GetOwned(addr)
	if err != nil {
		return err
	}
	if len(data) > int(rec.Space) {
		return fmt.Errorf(
			"%w: %d > %d",
			ErrRecordTooLarge,
			len(data),
			rec.Space,
		)
	}
	rec.Data = data
	return putRecord(t.btxn, addr, rec)
}

// Transfer moves native value between two identities. The source must have
// signed the transaction and must be a plain balance record
func (t *Txn) Transfer(from, to Address, amount uint64) error {
	if !t.IsSigner(from) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, from)
	}
	src, err := t.Get(from)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return fmt.Errorf("%w: %s", ErrInsufficientFunds, from)
		}
		return err
	}
	if src.Owner != SystemProgramID || len(src.Data) > 0 {
		return fmt.Errorf("%w: %s", ErrTransferFromDataAccount, from)
	}
	return t.move(from, src, to, amount)
}

// DebitDerived moves native value out of an address derived from the
// executing program. Presenting the seeds (bump included) is the proof that
// the program controls the address, so no signature is required
func (t *Txn) DebitDerived(seeds [][]byte, to Address, amount uint64) error {
	from, err := CreateProgramAddress(seeds, t.programID)
	if err != nil {
		return err
	}
	src, err := t.Get(from)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return fmt.Errorf("%w: %s", ErrInsufficientFunds, from)
		}
		return err
	}
	return t.move(from, src, to, amount)
}

func (t *Txn) move(from Address, src *Record, to Address, amount uint64) error {
	if src.Balance < amount {
		return fmt.Errorf(
			"%w: %s holds %d, need %d",
			ErrInsufficientFunds,
			from,
			src.Balance,
			amount,
		)
	}
	if from == to {
		return nil
	}
	dst, err := t.Get(to)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return err
		}
		dst = &Record{Owner: SystemProgramID}
	}
	newBalance, carry := bits.Add64(dst.Balance, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, to)
	}
	src.Balance -= amount
	dst.Balance = newBalance
	if err := putRecord(t.btxn, from, src); err != nil {
		return err
	}
	return putRecord(t.btxn, to, dst)
}

// Emit buffers an event for publication once the transaction commits
func (t *Txn) Emit(eventType event.EventType, data any) {
	t.events = append(t.events, EmittedEvent{Type: eventType, Data: data})
}
