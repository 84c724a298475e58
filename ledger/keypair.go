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
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
)

var ErrInvalidSeedLength = errors.New("invalid signing key seed length")

// Keypair is an ed25519 signing identity. Its public key doubles as the
// identity's ledger address.
type Keypair struct {
	privateKey ed25519.PrivateKey
}

// NewKeypair generates a random keypair
func NewKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Keypair{privateKey: priv}, nil
}

// KeypairFromSeed rebuilds a keypair from its 32-byte seed
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidSeedLength,
			ed25519.SeedSize,
			len(seed),
		)
	}
	return &Keypair{privateKey: ed25519.NewKeyFromSeed(seed)}, nil
}

func (k *Keypair) Address() Address {
	var ret Address
	copy(ret[:], k.privateKey.Public().(ed25519.PublicKey))
	return ret
}

// Seed returns the private seed. Callers must treat it as secret material
func (k *Keypair) Seed() []byte {
	return k.privateKey.Seed()
}

func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.privateKey, msg)
}

// VerifySignature checks an ed25519 signature made by the identity at addr
func VerifySignature(addr Address, msg []byte, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(addr[:]), msg, sig)
}
