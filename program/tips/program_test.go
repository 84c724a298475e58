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

package tips_test

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/umanity/event"
	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/common"
	"github.com/blinklabs-io/umanity/program/tips"
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
	rt := ledger.NewRuntime(store, ledger.WithEventBus(bus))
	rt.Register(tips.New())
	return &testEnv{store: store, runtime: rt, bus: bus}
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

func (e *testEnv) register(t *testing.T, username string, funds uint64) *ledger.Keypair {
	t.Helper()
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)
	if funds > 0 {
		require.NoError(t, e.store.Airdrop(kp.Address(), funds))
	}
	ix, err := tips.RegisterUser(kp.Address(), username, strings.ToUpper(username))
	require.NoError(t, e.submit(t, ix, err, kp))
	return kp
}

func (e *testEnv) profile(t *testing.T, owner *ledger.Keypair) *tips.UserProfile {
	t.Helper()
	profile, err := tips.GetProfile(e.store, owner.Address())
	require.NoError(t, err)
	return profile
}

func (e *testEnv) balance(t *testing.T, addr ledger.Address) uint64 {
	t.Helper()
	bal, err := e.store.Balance(addr)
	require.NoError(t, err)
	return bal
}

func TestRegisterUser(t *testing.T) {
	env := newTestEnv(t)
	_, subCh := env.bus.Subscribe(tips.UserRegisteredEventType)
	alice := env.register(t, "alice", 0)
	profile := env.profile(t, alice)
	assert.Equal(t, alice.Address(), profile.Owner)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "ALICE", profile.DisplayName)
	assert.Empty(t, profile.Bio)
	assert.Zero(t, profile.TotalReceived)
	assert.Zero(t, profile.TotalSent)
	assert.Zero(t, profile.TipCountReceived)
	assert.Zero(t, profile.TipCountSent)
	assert.True(t, profile.IsActive)
	owner, err := tips.LookupUsername(env.store, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.Address(), owner)
	evt := <-subCh
	data, ok := evt.Data.(tips.UserRegisteredEvent)
	require.True(t, ok)
	assert.Equal(t, "alice", data.Username)
	assert.Equal(t, alice.Address(), data.User)
}

func TestRegisterUserDuplicates(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", 0)
	// Same username, different identity
	mallory, err := ledger.NewKeypair()
	require.NoError(t, err)
	ix, err := tips.RegisterUser(mallory.Address(), "alice", "Not Alice")
	err = env.submit(t, ix, err, mallory)
	require.ErrorIs(t, err, ledger.ErrAccountInUse)
	assert.Equal(t, common.KindUniqueness, common.KindOf(err))
	_, err = tips.GetProfile(env.store, mallory.Address())
	require.ErrorIs(t, err, tips.ErrProfileNotFound)
	// Same identity, second username
	ix, err = tips.RegisterUser(alice.Address(), "alice2", "Alice Again")
	err = env.submit(t, ix, err, alice)
	require.ErrorIs(t, err, ledger.ErrAccountInUse)
	// The failed registration did not leave a claim behind
	_, err = tips.LookupUsername(env.store, "alice2")
	require.ErrorIs(t, err, tips.ErrProfileNotFound)
	profile := env.profile(t, alice)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "ALICE", profile.DisplayName)
}

func TestRegisterUserValidation(t *testing.T) {
	env := newTestEnv(t)
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)
	testDefs := []struct {
		username    string
		displayName string
		expectedErr error
	}{
		{"ab", "", tips.ErrInvalidUsername},
		{strings.Repeat("a", tips.MaxUsernameLength+1), "", tips.ErrInvalidUsername},
		{"Alice", "", tips.ErrInvalidUsername},
		{"al ice", "", tips.ErrInvalidUsername},
		{"alice", strings.Repeat("d", tips.MaxDisplayNameLength+1), tips.ErrNameTooLong},
	}
	for _, test := range testDefs {
		ix, err := tips.RegisterUser(kp.Address(), test.username, test.displayName)
		err = env.submit(t, ix, err, kp)
		require.ErrorIs(t, err, test.expectedErr, "username %q", test.username)
	}
	assert.True(t, tips.ValidUsername("bob_42"))
	other, err := ledger.NewKeypair()
	require.NoError(t, err)
	ix, err := tips.RegisterUser(kp.Address(), "alice", "")
	err = env.submit(t, ix, err, other)
	require.ErrorIs(t, err, common.ErrMissingSigner)
}

func TestSendTipScenario(t *testing.T) {
	env := newTestEnv(t)
	_, subCh := env.bus.Subscribe(tips.TipSentEventType)
	alice := env.register(t, "alice", 1_000)
	bob := env.register(t, "bob", 0)
	ix, err := tips.SendTip(alice.Address(), bob.Address(), 500, "thanks")
	require.NoError(t, env.submit(t, ix, err, alice))
	aliceProfile := env.profile(t, alice)
	bobProfile := env.profile(t, bob)
	assert.Equal(t, uint64(500), aliceProfile.TotalSent)
	assert.Equal(t, uint64(1), aliceProfile.TipCountSent)
	assert.Zero(t, aliceProfile.TotalReceived)
	assert.Equal(t, uint64(500), bobProfile.TotalReceived)
	assert.Equal(t, uint64(1), bobProfile.TipCountReceived)
	assert.Zero(t, bobProfile.TotalSent)
	assert.Equal(t, uint64(500), env.balance(t, alice.Address()))
	assert.Equal(t, uint64(500), env.balance(t, bob.Address()))
	records, err := tips.SentTips(env.store, alice.Address())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(500), records[0].Amount)
	assert.Equal(t, "thanks", records[0].Message)
	assert.Equal(t, alice.Address(), records[0].Sender)
	assert.Equal(t, bob.Address(), records[0].Recipient)
	select {
	case evt := <-subCh:
		data, ok := evt.Data.(tips.TipSentEvent)
		require.True(t, ok)
		assert.Equal(t, "thanks", data.Message)
		assert.Equal(t, uint64(500), data.Amount)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for tip event")
	}
}

func TestSendTipRejections(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", 1_000)
	bob := env.register(t, "bob", 0)
	stranger, err := ledger.NewKeypair()
	require.NoError(t, err)
	testDefs := []struct {
		name        string
		sender      ledger.Address
		recipient   ledger.Address
		amount      uint64
		message     string
		signer      *ledger.Keypair
		expectedErr error
	}{
		{"zero amount", alice.Address(), bob.Address(), 0, "hi", alice, tips.ErrInvalidAmount},
		{"long message", alice.Address(), bob.Address(), 1, strings.Repeat("m", tips.MaxMessageLength+1), alice, tips.ErrMessageTooLong},
		{"self tip", alice.Address(), alice.Address(), 1, "", alice, tips.ErrSelfTip},
		{"invalid utf-8 message", alice.Address(), bob.Address(), 1, "\xff", alice, common.ErrInvalidInstruction},
		{"unsigned", alice.Address(), bob.Address(), 1, "", bob, common.ErrMissingSigner},
		{"unregistered recipient", alice.Address(), stranger.Address(), 1, "", alice, tips.ErrProfileNotFound},
		{"insufficient funds", alice.Address(), bob.Address(), 1_001, "", alice, ledger.ErrInsufficientFunds},
	}
	for _, test := range testDefs {
		t.Run(test.name, func(t *testing.T) {
			ix, err := tips.SendTip(test.sender, test.recipient, test.amount, test.message)
			err = env.submit(t, ix, err, test.signer)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
	assert.Equal(t, uint64(1_000), env.balance(t, alice.Address()))
	assert.Zero(t, env.balance(t, bob.Address()))
	assert.Zero(t, env.profile(t, alice).TipCountSent)
	assert.Zero(t, env.profile(t, bob).TipCountReceived)
	// A 280 byte message is accepted
	ix, err := tips.SendTip(alice.Address(), bob.Address(), 1, strings.Repeat("m", tips.MaxMessageLength))
	require.NoError(t, env.submit(t, ix, err, alice))
}

func TestSendTipOverflowAtomic(t *testing.T) {
	env := newTestEnv(t)
	whale := env.register(t, "whale", math.MaxUint64)
	bob := env.register(t, "bob", 0)
	carol := env.register(t, "carol", 10)
	ix, err := tips.SendTip(whale.Address(), bob.Address(), math.MaxUint64-5, "")
	require.NoError(t, env.submit(t, ix, err, whale))
	// Bob's received total would overflow, so carol's side must not move
	ix, err = tips.SendTip(carol.Address(), bob.Address(), 10, "")
	err = env.submit(t, ix, err, carol)
	require.ErrorIs(t, err, common.ErrOverflow)
	carolProfile := env.profile(t, carol)
	assert.Zero(t, carolProfile.TotalSent)
	assert.Zero(t, carolProfile.TipCountSent)
	assert.Equal(t, uint64(10), env.balance(t, carol.Address()))
	assert.Equal(t, uint64(1), env.profile(t, bob).TipCountReceived)
}

func TestSentTipsHistory(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", 1_000)
	bob := env.register(t, "bob", 0)
	carol := env.register(t, "carol", 0)
	for i, recipient := range []*ledger.Keypair{bob, carol, bob} {
		ix, err := tips.SendTip(alice.Address(), recipient.Address(), uint64(i+1), "")
		require.NoError(t, env.submit(t, ix, err, alice))
	}
	records, err := tips.SentTips(env.store, alice.Address())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, carol.Address(), records[1].Recipient)
	var total uint64
	for _, record := range records {
		total += record.Amount
	}
	assert.Equal(t, env.profile(t, alice).TotalSent, total)
	assert.Equal(t, uint64(4), env.profile(t, bob).TotalReceived)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", 0)
	displayName := "Alice A."
	ix, err := tips.UpdateProfile(alice.Address(), &displayName, nil)
	require.NoError(t, env.submit(t, ix, err, alice))
	profile := env.profile(t, alice)
	assert.Equal(t, displayName, profile.DisplayName)
	assert.Empty(t, profile.Bio)
	bio := "Building things"
	ix, err = tips.UpdateProfile(alice.Address(), nil, &bio)
	require.NoError(t, env.submit(t, ix, err, alice))
	profile = env.profile(t, alice)
	assert.Equal(t, displayName, profile.DisplayName)
	assert.Equal(t, bio, profile.Bio)
	// An invalid bio rejects the display name change too
	newName := "Changed"
	longBio := strings.Repeat("b", tips.MaxBioLength+1)
	ix, err = tips.UpdateProfile(alice.Address(), &newName, &longBio)
	err = env.submit(t, ix, err, alice)
	require.ErrorIs(t, err, tips.ErrBioTooLong)
	longName := strings.Repeat("n", tips.MaxDisplayNameLength+1)
	ix, err = tips.UpdateProfile(alice.Address(), &longName, nil)
	err = env.submit(t, ix, err, alice)
	require.ErrorIs(t, err, tips.ErrNameTooLong)
	profile = env.profile(t, alice)
	assert.Equal(t, displayName, profile.DisplayName)
	assert.Equal(t, bio, profile.Bio)
	// Someone else cannot edit alice's profile
	mallory := env.register(t, "mallory", 0)
	ix, err = tips.UpdateProfile(alice.Address(), &newName, nil)
	err = env.submit(t, ix, err, mallory)
	require.ErrorIs(t, err, common.ErrMissingSigner)
	assert.Equal(t, common.KindAuthorization, common.KindOf(err))
}

func TestToggleActive(t *testing.T) {
	env := newTestEnv(t)
	_, subCh := env.bus.Subscribe(tips.ProfileUpdatedEventType)
	alice := env.register(t, "alice", 0)
	ix, err := tips.ToggleActive(alice.Address())
	require.NoError(t, env.submit(t, ix, err, alice))
	assert.False(t, env.profile(t, alice).IsActive)
	ix, err = tips.ToggleActive(alice.Address())
	require.NoError(t, env.submit(t, ix, err, alice))
	assert.True(t, env.profile(t, alice).IsActive)
	for _, expected := range []bool{false, true} {
		evt := <-subCh
		data, ok := evt.Data.(tips.ProfileUpdatedEvent)
		require.True(t, ok)
		assert.Equal(t, expected, data.IsActive)
	}
	unregistered, err := ledger.NewKeypair()
	require.NoError(t, err)
	ix, err = tips.ToggleActive(unregistered.Address())
	err = env.submit(t, ix, err, unregistered)
	require.ErrorIs(t, err, tips.ErrProfileNotFound)
}
