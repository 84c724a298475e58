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

package pool_test

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/umanity/event"
	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/common"
	"github.com/blinklabs-io/umanity/program/pool"
)

type testEnv struct {
	store   *ledger.Store
	runtime *ledger.Runtime
	bus     *event.EventBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := ledger.NewStore()
	require.NoError(t, err)
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(func() {
		bus.Stop()
		require.NoError(t, store.Close())
	})
	rt := ledger.NewRuntime(
		store,
		ledger.WithEventBus(bus),
		ledger.WithMaxConflictRetries(1000),
	)
	rt.Register(pool.New())
	return &testEnv{store: store, runtime: rt, bus: bus}
}

func (e *testEnv) keypair(t *testing.T, funds uint64) *ledger.Keypair {
	t.Helper()
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)
	if funds > 0 {
		require.NoError(t, e.store.Airdrop(kp.Address(), funds))
	}
	return kp
}

func (e *testEnv) submit(
	t *testing.T,
	ix ledger.Instruction,
	ixErr error,
	signers ...*ledger.Keypair,
) error {
	t.Helper()
	require.NoError(t, ixErr)
	tx, err := ledger.NewTransaction(ix, signers...)
	require.NoError(t, err)
	_, err = e.runtime.Submit(context.Background(), tx)
	return err
}

func (e *testEnv) createPool(t *testing.T, authority *ledger.Keypair, name string) ledger.Address {
	t.Helper()
	ix, err := pool.InitializePool(
		authority.Address(),
		name,
		"Safe drinking water",
		"💧",
		pool.PoolTypeEmergency,
	)
	require.NoError(t, e.submit(t, ix, err, authority))
	addr, _, err := pool.PoolAddress(name)
	require.NoError(t, err)
	return addr
}

func (e *testEnv) balance(t *testing.T, addr ledger.Address) uint64 {
	t.Helper()
	bal, err := e.store.Balance(addr)
	require.NoError(t, err)
	return bal
}

func TestInitializePool(t *testing.T) {
	env := newTestEnv(t)
	_, subCh := env.bus.Subscribe(pool.PoolInitializedEventType)
	authority := env.keypair(t, 0)
	addr := env.createPool(t, authority, "clean-water")
	p, err := pool.GetPool(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, authority.Address(), p.Authority)
	assert.Equal(t, "clean-water", p.Name)
	assert.Equal(t, "Safe drinking water", p.Description)
	assert.Equal(t, pool.PoolTypeEmergency, p.PoolType)
	assert.Zero(t, p.TotalDonated)
	assert.Zero(t, p.DonorCount)
	assert.True(t, p.IsActive)
	vault, vaultBump, err := pool.VaultAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, vaultBump, p.VaultBump)
	assert.Zero(t, env.balance(t, vault))
	evt := <-subCh
	data, ok := evt.Data.(pool.PoolInitializedEvent)
	require.True(t, ok)
	assert.Equal(t, addr, data.Pool)
	assert.Equal(t, "clean-water", data.Name)
}

func TestInitializePoolDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	first := env.keypair(t, 0)
	addr := env.createPool(t, first, "clean-water")
	second := env.keypair(t, 0)
	ix, err := pool.InitializePool(second.Address(), "clean-water", "other", "", pool.PoolTypeMedical)
	err = env.submit(t, ix, err, second)
	require.ErrorIs(t, err, ledger.ErrAccountInUse)
	assert.Equal(t, common.KindUniqueness, common.KindOf(err))
	p, err := pool.GetPool(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, first.Address(), p.Authority)
	assert.Equal(t, "Safe drinking water", p.Description)
}

func TestInitializePoolValidation(t *testing.T) {
	env := newTestEnv(t)
	authority := env.keypair(t, 0)
	testDefs := []struct {
		name        string
		poolName    string
		description string
		emoji       string
		expectedErr error
	}{
		{"empty name", "", "", "", pool.ErrNameRequired},
		{"long name", strings.Repeat("n", pool.MaxNameLength+1), "", "", pool.ErrNameTooLong},
		{"long description", "ok", strings.Repeat("d", pool.MaxDescriptionLength+1), "", pool.ErrDescriptionTooLong},
		{"long emoji", "ok", "", strings.Repeat("🌊", 3), pool.ErrEmojiTooLong},
		{"invalid utf-8 description", "ok", "\xff", "", common.ErrInvalidInstruction},
	}
	for _, test := range testDefs {
		t.Run(test.name, func(t *testing.T) {
			ix, err := pool.InitializePool(
				authority.Address(),
				test.poolName,
				test.description,
				test.emoji,
				pool.PoolTypeMedical,
			)
			err = env.submit(t, ix, err, authority)
			require.ErrorIs(t, err, test.expectedErr)
			assert.Equal(t, common.KindValidation, common.KindOf(err))
		})
	}
	// Exactly at the limits is fine
	ix, err := pool.InitializePool(
		authority.Address(),
		strings.Repeat("n", pool.MaxNameLength),
		strings.Repeat("d", pool.MaxDescriptionLength),
		strings.Repeat("e", pool.MaxEmojiLength),
		pool.PoolTypeEducation,
	)
	require.NoError(t, env.submit(t, ix, err, authority))
}

func TestInitializePoolRequiresSigner(t *testing.T) {
	env := newTestEnv(t)
	authority := env.keypair(t, 0)
	other := env.keypair(t, 0)
	ix, err := pool.InitializePool(authority.Address(), "clean-water", "", "", pool.PoolTypeMedical)
	err = env.submit(t, ix, err, other)
	require.ErrorIs(t, err, common.ErrMissingSigner)
	_, _, err = pool.GetPoolByName(env.store, "clean-water")
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestOneTapDonateScenario(t *testing.T) {
	env := newTestEnv(t)
	_, subCh := env.bus.Subscribe(pool.DonationEventType)
	addr := env.createPool(t, env.keypair(t, 0), "clean-water")
	donors := make([]*ledger.Keypair, 3)
	for i := range donors {
		donors[i] = env.keypair(t, 5_000_000)
		ix, err := pool.OneTapDonate(addr, donors[i].Address())
		require.NoError(t, env.submit(t, ix, err, donors[i]))
	}
	p, err := pool.GetPool(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000_000), p.TotalDonated)
	assert.Equal(t, uint64(3), p.DonorCount)
	vaultBal, err := pool.VaultBalance(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000_000), vaultBal)
	history, err := pool.DonationHistory(env.store, addr)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, record := range history {
		assert.Equal(t, donors[i].Address(), record.Donor)
		assert.Equal(t, addr, record.Pool)
		assert.Equal(t, pool.OneTapAmount, record.Amount)
		assert.Equal(t, pool.DonationTypeMicro, record.DonationType)
		assert.NotZero(t, record.Timestamp)
		assert.Equal(t, uint64(4_000_000), env.balance(t, donors[i].Address()))
	}
	for i := range donors {
		select {
		case evt := <-subCh:
			data, ok := evt.Data.(pool.DonationEvent)
			require.True(t, ok)
			assert.Equal(t, donors[i].Address(), data.Donor)
			assert.Equal(t, pool.OneTapAmount, data.Amount)
			assert.Equal(t, pool.DonationTypeMicro, data.DonationType)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for donation event")
		}
	}
}

func TestDonateToPool(t *testing.T) {
	env := newTestEnv(t)
	addr := env.createPool(t, env.keypair(t, 0), "schools")
	donor := env.keypair(t, 1_000)
	ix, err := pool.DonateToPool(addr, donor.Address(), 250)
	require.NoError(t, env.submit(t, ix, err, donor))
	p, err := pool.GetPool(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), p.TotalDonated)
	assert.Equal(t, uint64(1), p.DonorCount)
	history, err := pool.DonationHistory(env.store, addr)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, pool.DonationTypeCustom, history[0].DonationType)
	assert.Equal(t, uint64(750), env.balance(t, donor.Address()))
}

func TestDonateRejections(t *testing.T) {
	env := newTestEnv(t)
	addr := env.createPool(t, env.keypair(t, 0), "schools")
	donor := env.keypair(t, 100)
	other := env.keypair(t, 100)
	testDefs := []struct {
		name        string
		amount      uint64
		signer      *ledger.Keypair
		expectedErr error
	}{
		{"zero amount", 0, donor, pool.ErrInvalidAmount},
		{"not signed by donor", 10, other, common.ErrMissingSigner},
		{"insufficient funds", 101, donor, ledger.ErrInsufficientFunds},
	}
	for _, test := range testDefs {
		t.Run(test.name, func(t *testing.T) {
			ix, err := pool.DonateToPool(addr, donor.Address(), test.amount)
			err = env.submit(t, ix, err, test.signer)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
	p, err := pool.GetPool(env.store, addr)
	require.NoError(t, err)
	assert.Zero(t, p.TotalDonated)
	assert.Zero(t, p.DonorCount)
	assert.Equal(t, uint64(100), env.balance(t, donor.Address()))
	// Donating to something that is not a pool fails
	ix, err := pool.DonateToPool(donor.Address(), donor.Address(), 1)
	err = env.submit(t, ix, err, donor)
	require.ErrorIs(t, err, ledger.ErrAccountOwnerMismatch)
}

func TestDonateOverflowAborts(t *testing.T) {
	env := newTestEnv(t)
	addr := env.createPool(t, env.keypair(t, 0), "big")
	whale := env.keypair(t, math.MaxUint64)
	ix, err := pool.DonateToPool(addr, whale.Address(), math.MaxUint64)
	require.NoError(t, env.submit(t, ix, err, whale))
	small := env.keypair(t, 10)
	ix, err = pool.DonateToPool(addr, small.Address(), 1)
	err = env.submit(t, ix, err, small)
	require.ErrorIs(t, err, common.ErrOverflow)
	assert.Equal(t, common.KindInvariant, common.KindOf(err))
	p, err := pool.GetPool(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), p.TotalDonated)
	assert.Equal(t, uint64(1), p.DonorCount)
	assert.Equal(t, uint64(10), env.balance(t, small.Address()))
}

func TestConcurrentDonations(t *testing.T) {
	env := newTestEnv(t)
	addr := env.createPool(t, env.keypair(t, 0), "busy")
	const donors = 10
	var wg sync.WaitGroup
	errs := make(chan error, donors)
	for i := range donors {
		donor := env.keypair(t, 1_000)
		wg.Add(1)
		go func(amount uint64) {
			defer wg.Done()
			ix, err := pool.DonateToPool(addr, donor.Address(), amount)
			if err != nil {
				errs <- err
				return
			}
			tx, err := ledger.NewTransaction(ix, donor)
			if err != nil {
				errs <- err
				return
			}
			_, err = env.runtime.Submit(context.Background(), tx)
			errs <- err
		}(uint64(i + 1))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	p, err := pool.GetPool(env.store, addr)
	require.NoError(t, err)
	// 1 + 2 + ... + 10
	assert.Equal(t, uint64(55), p.TotalDonated)
	assert.Equal(t, uint64(donors), p.DonorCount)
	history, err := pool.DonationHistory(env.store, addr)
	require.NoError(t, err)
	var sum uint64
	for _, record := range history {
		sum += record.Amount
	}
	assert.Equal(t, p.TotalDonated, sum)
}

func TestWithdrawFromPool(t *testing.T) {
	env := newTestEnv(t)
	_, subCh := env.bus.Subscribe(pool.WithdrawalEventType)
	authority := env.keypair(t, 0)
	addr := env.createPool(t, authority, "clean-water")
	donor := env.keypair(t, 1_000)
	ix, err := pool.DonateToPool(addr, donor.Address(), 500)
	require.NoError(t, env.submit(t, ix, err, donor))
	recipient := env.keypair(t, 0)
	ix, err = pool.WithdrawFromPool(addr, authority.Address(), recipient.Address(), 200)
	require.NoError(t, env.submit(t, ix, err, authority))
	vaultBal, err := pool.VaultBalance(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), vaultBal)
	assert.Equal(t, uint64(200), env.balance(t, recipient.Address()))
	// Withdrawals leave the accumulators alone
	p, err := pool.GetPool(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), p.TotalDonated)
	evt := <-subCh
	data, ok := evt.Data.(pool.WithdrawalEvent)
	require.True(t, ok)
	assert.Equal(t, recipient.Address(), data.Recipient)
	assert.Equal(t, uint64(200), data.Amount)
}

func TestWithdrawMoreThanVaultScenario(t *testing.T) {
	env := newTestEnv(t)
	authority := env.keypair(t, 0)
	addr := env.createPool(t, authority, "clean-water")
	donor := env.keypair(t, 50)
	ix, err := pool.DonateToPool(addr, donor.Address(), 50)
	require.NoError(t, env.submit(t, ix, err, donor))
	recipient := env.keypair(t, 0)
	ix, err = pool.WithdrawFromPool(addr, authority.Address(), recipient.Address(), 100)
	err = env.submit(t, ix, err, authority)
	require.ErrorIs(t, err, pool.ErrInsufficientFunds)
	assert.Equal(t, common.KindResource, common.KindOf(err))
	vaultBal, err := pool.VaultBalance(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), vaultBal)
	assert.Zero(t, env.balance(t, recipient.Address()))
}

func TestWithdrawAuthorization(t *testing.T) {
	env := newTestEnv(t)
	authority := env.keypair(t, 0)
	addr := env.createPool(t, authority, "clean-water")
	donor := env.keypair(t, 50)
	ix, err := pool.DonateToPool(addr, donor.Address(), 50)
	require.NoError(t, env.submit(t, ix, err, donor))
	thief := env.keypair(t, 0)
	// Claiming to be the authority without its signature
	ix, err = pool.WithdrawFromPool(addr, authority.Address(), thief.Address(), 10)
	err = env.submit(t, ix, err, thief)
	require.ErrorIs(t, err, common.ErrMissingSigner)
	// Signing as yourself does not make you the authority
	ix, err = pool.WithdrawFromPool(addr, thief.Address(), thief.Address(), 10)
	err = env.submit(t, ix, err, thief)
	require.ErrorIs(t, err, common.ErrOwnerMismatch)
	assert.Equal(t, common.KindAuthorization, common.KindOf(err))
	// Zero amount
	ix, err = pool.WithdrawFromPool(addr, authority.Address(), thief.Address(), 0)
	err = env.submit(t, ix, err, authority)
	require.ErrorIs(t, err, pool.ErrInvalidAmount)
	vaultBal, err := pool.VaultBalance(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), vaultBal)
	assert.Zero(t, env.balance(t, thief.Address()))
}

func TestUpdatePool(t *testing.T) {
	env := newTestEnv(t)
	authority := env.keypair(t, 0)
	addr := env.createPool(t, authority, "clean-water")
	description := "Wells in rural villages"
	ix, err := pool.UpdatePool(addr, authority.Address(), &description, nil)
	require.NoError(t, env.submit(t, ix, err, authority))
	p, err := pool.GetPool(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, description, p.Description)
	assert.Equal(t, "💧", p.Emoji)
	// A bad field rejects the whole update
	newDescription := "short"
	longEmoji := strings.Repeat("e", pool.MaxEmojiLength+1)
	ix, err = pool.UpdatePool(addr, authority.Address(), &newDescription, &longEmoji)
	err = env.submit(t, ix, err, authority)
	require.ErrorIs(t, err, pool.ErrEmojiTooLong)
	p, err = pool.GetPool(env.store, addr)
	require.NoError(t, err)
	assert.Equal(t, description, p.Description)
	other := env.keypair(t, 0)
	ix, err = pool.UpdatePool(addr, other.Address(), &newDescription, nil)
	err = env.submit(t, ix, err, other)
	require.ErrorIs(t, err, common.ErrOwnerMismatch)
}

func TestSetPoolActive(t *testing.T) {
	env := newTestEnv(t)
	authority := env.keypair(t, 0)
	addr := env.createPool(t, authority, "clean-water")
	ix, err := pool.SetPoolActive(addr, authority.Address(), false)
	require.NoError(t, env.submit(t, ix, err, authority))
	p, err := pool.GetPool(env.store, addr)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	// Donations are not gated on the active flag
	donor := env.keypair(t, pool.OneTapAmount)
	ix, err = pool.OneTapDonate(addr, donor.Address())
	require.NoError(t, env.submit(t, ix, err, donor))
	other := env.keypair(t, 0)
	ix, err = pool.SetPoolActive(addr, other.Address(), true)
	err = env.submit(t, ix, err, other)
	require.ErrorIs(t, err, common.ErrOwnerMismatch)
}

func TestUnknownInstruction(t *testing.T) {
	env := newTestEnv(t)
	err := env.submit(t, ledger.Instruction{ProgramID: pool.ProgramID, Data: []byte{0xff}}, nil)
	require.ErrorIs(t, err, pool.ErrUnknownInstruction)
	err = env.submit(t, ledger.Instruction{ProgramID: pool.ProgramID}, nil)
	require.ErrorIs(t, err, common.ErrInvalidInstruction)
}

func TestPoolTypeNames(t *testing.T) {
	assert.Equal(t, "medical", pool.PoolTypeMedical.String())
	assert.Equal(t, "other", pool.PoolType(9).String())
	pt, ok := pool.ParsePoolType("Education")
	require.True(t, ok)
	assert.Equal(t, pool.PoolTypeEducation, pt)
	_, ok = pool.ParsePoolType("sports")
	assert.False(t, ok)
}
