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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/umanity/ledger"
)

var testProgramID = ledger.Address{0x42, 0x01}

func TestAddressTextRoundTrip(t *testing.T) {
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)
	addr := kp.Address()
	parsed, err := ledger.ParseAddress(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)
	text, err := addr.MarshalText()
	require.NoError(t, err)
	var decoded ledger.Address
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, addr, decoded)
}

func TestParseAddressInvalid(t *testing.T) {
	testDefs := []string{
		"",
		"0OIl",
		"3mJr7AoUXx2Wqd",
	}
	for _, input := range testDefs {
		_, err := ledger.ParseAddress(input)
		assert.ErrorIs(t, err, ledger.ErrInvalidAddress, "input %q", input)
	}
}

func TestProgramIDParses(t *testing.T) {
	addr := ledger.MustParseAddress("BW8QEjNXreRdzHoQP8C2uRZaZu5pqZD6VK4f6yidpQ1P")
	assert.Equal(t, "BW8QEjNXreRdzHoQP8C2uRZaZu5pqZD6VK4f6yidpQ1P", addr.String())
	assert.Panics(t, func() { ledger.MustParseAddress("not-base58!") })
}

func TestFindProgramAddressDeterministic(t *testing.T) {
	seeds := [][]byte{[]byte("pool"), []byte("clean-water")}
	addr1, bump1, err := ledger.FindProgramAddress(seeds, testProgramID)
	require.NoError(t, err)
	addr2, bump2, err := ledger.FindProgramAddress(seeds, testProgramID)
	require.NoError(t, err)
	assert.Equal(t, addr1, addr2)
	assert.Equal(t, bump1, bump2)
	// The bump reproduces the address through CreateProgramAddress
	created, err := ledger.CreateProgramAddress(
		ledger.WithBump(seeds, bump1),
		testProgramID,
	)
	require.NoError(t, err)
	assert.Equal(t, addr1, created)
	// A different program derives a different address
	other, _, err := ledger.FindProgramAddress(seeds, ledger.Address{0x43})
	require.NoError(t, err)
	assert.NotEqual(t, addr1, other)
}

func TestFindProgramAddressSkipsCurvePoints(t *testing.T) {
	// Every bump above the found one must have produced a curve point
	for i := range 32 {
		seeds := [][]byte{[]byte("probe"), {byte(i)}}
		_, bump, err := ledger.FindProgramAddress(seeds, testProgramID)
		require.NoError(t, err)
		for higher := int(bump) + 1; higher <= 255; higher++ {
			_, err := ledger.CreateProgramAddress(
				ledger.WithBump(seeds, uint8(higher)),
				testProgramID,
			)
			require.ErrorIs(t, err, ledger.ErrAddressOnCurve)
		}
	}
}

func TestCreateProgramAddressInjective(t *testing.T) {
	a, _, err := ledger.FindProgramAddress(
		[][]byte{[]byte("ab"), []byte("c")},
		testProgramID,
	)
	require.NoError(t, err)
	b, _, err := ledger.FindProgramAddress(
		[][]byte{[]byte("a"), []byte("bc")},
		testProgramID,
	)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDerivationLimits(t *testing.T) {
	_, _, err := ledger.FindProgramAddress(
		[][]byte{bytes.Repeat([]byte{1}, ledger.MaxSeedLength+1)},
		testProgramID,
	)
	assert.ErrorIs(t, err, ledger.ErrMaxSeedLengthExceeded)
	seeds := make([][]byte, ledger.MaxSeeds)
	_, _, err = ledger.FindProgramAddress(seeds, testProgramID)
	assert.ErrorIs(t, err, ledger.ErrMaxSeedsExceeded)
}

func TestKeypairSignVerify(t *testing.T) {
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)
	msg := []byte("hello")
	sig := kp.Sign(msg)
	assert.True(t, ledger.VerifySignature(kp.Address(), msg, sig))
	assert.False(t, ledger.VerifySignature(kp.Address(), []byte("other"), sig))
	assert.False(t, ledger.VerifySignature(kp.Address(), msg, sig[:10]))
	restored, err := ledger.KeypairFromSeed(kp.Seed())
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), restored.Address())
	_, err = ledger.KeypairFromSeed([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ledger.ErrInvalidSeedLength)
}
