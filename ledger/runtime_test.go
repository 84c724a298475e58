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

package ledger_test

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/umanity/event"
	"github.com/blinklabs-io/umanity/ledger"
)

const (
	opTransfer byte = iota
	opIncrement
	opPanic
	opDebitVault
	opIncrementThenFail
)

const counterEventType event.EventType = "test.counter"

var (
	counterSeeds = [][]byte{[]byte("counter")}
	vaultSeeds   = [][]byte{[]byte("vault")}
	errTestFail  = errors.New("test failure")
)

// testProgram exercises the runtime primitives
type testProgram struct{}

func (testProgram) ID() ledger.Address { return testProgramID }

func (testProgram) Name() string { return "test" }

func (testProgram) Process(txn *ledger.Txn, data []byte) error {
	switch data[0] {
	case opTransfer:
		var from, to ledger.Address
		copy(from[:], data[1:33])
		copy(to[:], data[33:65])
		return txn.Transfer(from, to, binary.BigEndian.Uint64(data[65:]))
	case opIncrement, opIncrementThenFail:
		if err := increment(txn); err != nil {
			return err
		}
		if data[0] == opIncrementThenFail {
			return errTestFail
		}
		return nil
	case opPanic:
		panic("boom")
	case opDebitVault:
		_, bump, err := ledger.FindProgramAddress(vaultSeeds, testProgramID)
		if err != nil {
			return err
		}
		var to ledger.Address
		copy(to[:], data[1:33])
		return txn.DebitDerived(
			ledger.WithBump(vaultSeeds, bump),
			to,
			binary.BigEndian.Uint64(data[33:]),
		)
	}
	return errors.New("unknown op")
}

func increment(txn *ledger.Txn) error {
	addr, bump, err := ledger.FindProgramAddress(counterSeeds, testProgramID)
	if err != nil {
		return err
	}
	var count uint64
	rec, err := txn.Get(addr)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		if _, err := txn.AllocateDerived(
			ledger.WithBump(counterSeeds, bump),
			8,
			make([]byte, 8),
		); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		count = binary.BigEndian.Uint64(rec.Data)
	}
	count++
	if err := txn.Write(addr, binary.BigEndian.AppendUint64(nil, count)); err != nil {
		return err
	}
	txn.Emit(counterEventType, count)
	return nil
}

type testEnv struct {
	store   *ledger.Store
	runtime *ledger.Runtime
	bus     *event.EventBus
}

func newTestEnv(t *testing.T, opts ...ledger.RuntimeOptionFunc) *testEnv {
	t.Helper()
	store, err := ledger.NewStore()
	require.NoError(t, err)
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(func() {
		bus.Stop()
		require.NoError(t, store.Close())
	})
	opts = append([]ledger.RuntimeOptionFunc{ledger.WithEventBus(bus)}, opts...)
	rt := ledger.NewRuntime(store, opts...)
	rt.Register(testProgram{})
	return &testEnv{store: store, runtime: rt, bus: bus}
}

func (e *testEnv) submit(
	t *testing.T,
	data []byte,
	signers ...*ledger.Keypair,
) (*ledger.Receipt, error) {
	t.Helper()
	tx, err := ledger.NewTransaction(
		ledger.Instruction{ProgramID: testProgramID, Data: data},
		signers...,
	)
	require.NoError(t, err)
	return e.runtime.Submit(context.Background(), tx)
}

func transferData(from, to ledger.Address, amount uint64) []byte {
	data := []byte{opTransfer}
	data = append(data, from[:]...)
	data = append(data, to[:]...)
	return binary.BigEndian.AppendUint64(data, amount)
}

func newFundedKeypair(t *testing.T, store *ledger.Store, amount uint64) *ledger.Keypair {
	t.Helper()
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)
	if amount > 0 {
		require.NoError(t, store.Airdrop(kp.Address(), amount))
	}
	return kp
}

func counterValue(t *testing.T, store *ledger.Store) uint64 {
	t.Helper()
	addr, _, err := ledger.FindProgramAddress(counterSeeds, testProgramID)
	require.NoError(t, err)
	rec, err := store.Get(addr)
	require.NoError(t, err)
	assert.Equal(t, testProgramID, rec.Owner)
	return binary.BigEndian.Uint64(rec.Data)
}

func TestTransfer(t *testing.T) {
	env := newTestEnv(t)
	alice := newFundedKeypair(t, env.store, 1000)
	bob := newFundedKeypair(t, env.store, 0)
	_, err := env.submit(t, transferData(alice.Address(), bob.Address(), 400), alice)
	require.NoError(t, err)
	aliceBal, err := env.store.Balance(alice.Address())
	require.NoError(t, err)
	bobBal, err := env.store.Balance(bob.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(600), aliceBal)
	assert.Equal(t, uint64(400), bobBal)
}

func TestTransferRequiresSigner(t *testing.T) {
	env := newTestEnv(t)
	alice := newFundedKeypair(t, env.store, 1000)
	bob := newFundedKeypair(t, env.store, 0)
	// Bob signs a transfer out of alice's balance
	_, err := env.submit(t, transferData(alice.Address(), bob.Address(), 400), bob)
	require.ErrorIs(t, err, ledger.ErrMissingSignature)
	aliceBal, err := env.store.Balance(alice.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), aliceBal)
}

func TestTransferInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	alice := newFundedKeypair(t, env.store, 10)
	bob := newFundedKeypair(t, env.store, 0)
	_, err := env.submit(t, transferData(alice.Address(), bob.Address(), 11), alice)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	// Unknown senders have nothing to send
	carol := newFundedKeypair(t, env.store, 0)
	_, err = env.submit(t, transferData(carol.Address(), bob.Address(), 1), carol)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestTransferFromProgramRecordRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.submit(t, []byte{opIncrement})
	require.NoError(t, err)
	addr, _, err := ledger.FindProgramAddress(counterSeeds, testProgramID)
	require.NoError(t, err)
	bob := newFundedKeypair(t, env.store, 0)
	// No signature can exist for a derived address
	_, err = env.submit(t, transferData(addr, bob.Address(), 0))
	require.ErrorIs(t, err, ledger.ErrMissingSignature)
}

func TestDebitDerived(t *testing.T) {
	env := newTestEnv(t)
	vault, _, err := ledger.FindProgramAddress(vaultSeeds, testProgramID)
	require.NoError(t, err)
	require.NoError(t, env.store.Airdrop(vault, 50))
	bob := newFundedKeypair(t, env.store, 0)
	debit := func(amount uint64) error {
		data := append([]byte{opDebitVault}, bob.Address().Bytes()...)
		_, err := env.submit(t, binary.BigEndian.AppendUint64(data, amount))
		return err
	}
	require.ErrorIs(t, debit(100), ledger.ErrInsufficientFunds)
	require.NoError(t, debit(30))
	vaultBal, err := env.store.Balance(vault)
	require.NoError(t, err)
	bobBal, err := env.store.Balance(bob.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(20), vaultBal)
	assert.Equal(t, uint64(30), bobBal)
}

func TestFailedTransactionRollsBack(t *testing.T) {
	env := newTestEnv(t)
	_, subCh := env.bus.Subscribe(counterEventType)
	_, err := env.submit(t, []byte{opIncrement})
	require.NoError(t, err)
	_, err = env.submit(t, []byte{opIncrementThenFail})
	require.ErrorIs(t, err, errTestFail)
	assert.Equal(t, uint64(1), counterValue(t, env.store))
	// Only the committed increment was published
	evt := <-subCh
	assert.Equal(t, uint64(1), evt.Data)
	select {
	case evt := <-subCh:
		t.Fatalf("unexpected event from failed transaction: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProgramPanicRecovered(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.submit(t, []byte{opPanic})
	require.ErrorIs(t, err, ledger.ErrProgramPanic)
}

func TestDuplicateTransactionRejected(t *testing.T) {
	env := newTestEnv(t)
	tx, err := ledger.NewTransaction(
		ledger.Instruction{ProgramID: testProgramID, Data: []byte{opIncrement}},
	)
	require.NoError(t, err)
	_, err = env.runtime.Submit(context.Background(), tx)
	require.NoError(t, err)
	_, err = env.runtime.Submit(context.Background(), tx)
	require.ErrorIs(t, err, ledger.ErrDuplicateTransaction)
	assert.Equal(t, uint64(1), counterValue(t, env.store))
}

func TestSignatureVerification(t *testing.T) {
	env := newTestEnv(t)
	alice := newFundedKeypair(t, env.store, 1000)
	bob := newFundedKeypair(t, env.store, 0)
	tx, err := ledger.NewTransaction(
		ledger.Instruction{
			ProgramID: testProgramID,
			Data:      transferData(alice.Address(), bob.Address(), 1),
		},
		alice,
	)
	require.NoError(t, err)
	// Tampering with the message invalidates the signature
	tx.Message.Instruction.Data = transferData(alice.Address(), bob.Address(), 999)
	_, err = env.runtime.Submit(context.Background(), tx)
	require.ErrorIs(t, err, ledger.ErrInvalidSignature)
	tx.Signatures = nil
	_, err = env.runtime.Submit(context.Background(), tx)
	require.ErrorIs(t, err, ledger.ErrSignatureCount)
	// Signing with the wrong keypair is refused up front
	require.ErrorIs(t, tx.Sign(bob), ledger.ErrMissingSignature)
}

func TestUnknownProgram(t *testing.T) {
	env := newTestEnv(t)
	tx, err := ledger.NewTransaction(
		ledger.Instruction{ProgramID: ledger.Address{0x99}, Data: []byte{0}},
	)
	require.NoError(t, err)
	_, err = env.runtime.Submit(context.Background(), tx)
	require.ErrorIs(t, err, ledger.ErrUnknownProgram)
}

func TestConcurrentUpdatesNotLost(t *testing.T) {
	env := newTestEnv(t, ledger.WithMaxConflictRetries(1000))
	_, err := env.submit(t, []byte{opIncrement})
	require.NoError(t, err)
	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := ledger.NewTransaction(
				ledger.Instruction{ProgramID: testProgramID, Data: []byte{opIncrement}},
			)
			if err != nil {
				errs <- err
				return
			}
			_, err = env.runtime.Submit(context.Background(), tx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(workers+1), counterValue(t, env.store))
}

func TestClockMonotonic(t *testing.T) {
	times := []time.Time{
		time.Unix(1_000, 0),
		time.Unix(500, 0),
		time.Unix(2_000, 0),
	}
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ret := times[0]
		if len(times) > 1 {
			times = times[1:]
		}
		return ret
	}
	env := newTestEnv(t, ledger.WithClock(clock))
	var got []int64
	for range 3 {
		receipt, err := env.submit(t, []byte{opIncrement})
		require.NoError(t, err)
		got = append(got, receipt.Timestamp)
	}
	assert.Equal(t, []int64{1_000, 1_000, 2_000}, got)
	last, err := env.store.LastTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(2_000), last)
}

func TestStoredClockNeverMovesBack(t *testing.T) {
	const workers = 32
	var calls atomic.Int64
	// Hand out timestamps in a scrambled order across concurrent submits
	clock := func() time.Time {
		n := calls.Add(1)
		return time.Unix(10_000+(n*7)%workers, 0)
	}
	env := newTestEnv(t, ledger.WithClock(clock))
	senders := make([]*ledger.Keypair, workers)
	for i := range senders {
		senders[i] = newFundedKeypair(t, env.store, 10)
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var newest int64
	errs := make(chan error, workers)
	for _, sender := range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recipient, err := ledger.NewKeypair()
			if err != nil {
				errs <- err
				return
			}
			tx, err := ledger.NewTransaction(
				ledger.Instruction{
					ProgramID: testProgramID,
					Data:      transferData(sender.Address(), recipient.Address(), 1),
				},
				sender,
			)
			if err != nil {
				errs <- err
				return
			}
			receipt, err := env.runtime.Submit(context.Background(), tx)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			newest = max(newest, receipt.Timestamp)
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	last, err := env.store.LastTimestamp()
	require.NoError(t, err)
	assert.Equal(t, newest, last)
}

func TestEventsFollowCommitOrder(t *testing.T) {
	env := newTestEnv(t, ledger.WithMaxConflictRetries(1000))
	const workers = 16
	var got []uint64
	var gotMu sync.Mutex
	env.bus.SubscribeFunc(counterEventType, func(evt event.Event) {
		gotMu.Lock()
		defer gotMu.Unlock()
		got = append(got, evt.Data.(uint64))
	})
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := ledger.NewTransaction(
				ledger.Instruction{ProgramID: testProgramID, Data: []byte{opIncrement}},
			)
			if err != nil {
				return
			}
			_, _ = env.runtime.Submit(context.Background(), tx)
		}()
	}
	wg.Wait()
	env.bus.Stop()
	require.Len(t, got, workers)
	// Each increment commits the next counter value
	for i, v := range got {
		assert.Equal(t, uint64(i+1), v)
	}
}

func TestRuntimeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	env := newTestEnv(t, ledger.WithPromRegistry(reg))
	_, err := env.submit(t, []byte{opIncrement})
	require.NoError(t, err)
	_, err = env.submit(t, []byte{opPanic})
	require.Error(t, err)
	count, err := testutil.GatherAndCount(reg, "umanity_ledger_transactions_total")
	require.NoError(t, err)
	// One series per result
	assert.Equal(t, 2, count)
}

func TestSubmitCanceledContext(t *testing.T) {
	env := newTestEnv(t)
	tx, err := ledger.NewTransaction(
		ledger.Instruction{ProgramID: testProgramID, Data: []byte{opIncrement}},
	)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = env.runtime.Submit(ctx, tx)
	require.ErrorIs(t, err, context.Canceled)
}
