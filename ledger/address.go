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

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	AddressLength = 32

	// MaxSeeds is the maximum number of seeds (including the bump) accepted
	// by address derivation
	MaxSeeds = 16
	// MaxSeedLength is the maximum length of a single derivation seed
	MaxSeedLength = 64

	derivedAddressMarker = "ProgramDerivedAddress"
)

var (
	ErrInvalidAddress         = errors.New("invalid address")
	ErrMaxSeedsExceeded       = errors.New("too many derivation seeds")
	ErrMaxSeedLengthExceeded  = errors.New("derivation seed too long")
	ErrAddressOnCurve         = errors.New("derived address lies on the ed25519 curve")
	ErrNoViableBump           = errors.New("unable to find a viable derivation bump")
	ErrDerivedAddressMismatch = errors.New("derived address does not match")
)

// Address identifies a record on the ledger. Addresses are either ed25519
// public keys (identities that can sign) or derived from a program ID and a
// list of seeds (no private key exists for them).
type Address [AddressLength]byte

// SystemProgramID owns every record that only carries a native balance
var SystemProgramID = Address{}

// ParseAddress decodes a base58 address
func ParseAddress(s string) (Address, error) {
	var ret Address
	raw, err := base58.Decode(s)
	if err != nil {
		return ret, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(raw) != AddressLength {
		return ret, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidAddress,
			AddressLength,
			len(raw),
		)
	}
	copy(ret[:], raw)
	return ret, nil
}

// MustParseAddress is like ParseAddress but panics on error. It is intended
// for package-level program IDs
func MustParseAddress(s string) Address {
	ret, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return ret
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	tmp, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

// CreateProgramAddress computes the address derived from the given seeds
// (which must already include the bump, if any) and program ID. Each seed is
// length-prefixed before hashing so that distinct seed lists can never
// produce the same preimage.
func CreateProgramAddress(seeds [][]byte, programID Address) (Address, error) {
	var ret Address
	if len(seeds) > MaxSeeds {
		return ret, ErrMaxSeedsExceeded
	}
	buf := make([]byte, 0, 128)
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return ret, ErrMaxSeedLengthExceeded
		}
		buf = append(buf, byte(len(seed)))
		buf = append(buf, seed...)
	}
	buf = append(buf, programID[:]...)
	buf = append(buf, derivedAddressMarker...)
	ret = blake2b.Sum256(buf)
	if isOnCurve(ret) {
		return Address{}, ErrAddressOnCurve
	}
	return ret, nil
}

// FindProgramAddress searches for the highest bump value that yields a
// derived address that is not a valid public key. The returned bump must be
// appended as the final seed when calling CreateProgramAddress.
func FindProgramAddress(
	seeds [][]byte,
	programID Address,
) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Address{}, 0, ErrMaxSeedsExceeded
	}
	tmpSeeds := make([][]byte, len(seeds), len(seeds)+1)
	copy(tmpSeeds, seeds)
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateProgramAddress(
			append(tmpSeeds, []byte{byte(bump)}),
			programID,
		)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrAddressOnCurve) {
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableBump
}

// WithBump returns a copy of seeds with the bump appended
func WithBump(seeds [][]byte, bump uint8) [][]byte {
	ret := make([][]byte, 0, len(seeds)+1)
	ret = append(ret, seeds...)
	return append(ret, []byte{bump})
}

func isOnCurve(addr Address) bool {
	_, err := new(edwards25519.Point).SetBytes(addr[:])
	return err == nil
}
