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
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// TxID is the blake2b-256 hash of an encoded transaction message
type TxID [32]byte

func (t TxID) String() string {
	return base58.Encode(t[:])
}

// Instruction is a single program invocation. Data is opaque to the ledger
// and decoded by the target program
type Instruction struct {
	cbor.StructAsArray
	ProgramID Address
	Data      []byte
}

// Message is the signed portion of a transaction
type Message struct {
	cbor.StructAsArray
	Signers     []Address
	Instruction Instruction
	Nonce       uint64
}

func (m *Message) Encode() ([]byte, error) {
	ret, err := cbor.Encode(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return ret, nil
}

// Transaction is a message plus one signature per listed signer, in order
type Transaction struct {
	cbor.StructAsArray
	Message    Message
	Signatures [][]byte
}

// NewTransaction builds and signs a transaction for a single instruction.
// A random nonce keeps otherwise identical instructions distinct
func NewTransaction(
	ix Instruction,
	signers ...*Keypair,
) (*Transaction, error) {
	var nonceBuf [8]byte
	if _, err := rand.Read(nonceBuf[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	tx := &Transaction{
		Message: Message{
			Instruction: ix,
			Nonce:       binary.BigEndian.Uint64(nonceBuf[:]),
		},
	}
	for _, signer := range signers {
		tx.Message.Signers = append(tx.Message.Signers, signer.Address())
	}
	if err := tx.Sign(signers...); err != nil {
		return nil, err
	}
	return tx, nil
}

// Sign (re)computes all signatures. Keypairs must be supplied in the same
// order as Message.Signers
func (t *Transaction) Sign(signers ...*Keypair) error {
	if len(signers) != len(t.Message.Signers) {
		return ErrSignatureCount
	}
	msg, err := t.Message.Encode()
	if err != nil {
		return err
	}
	t.Signatures = make([][]byte, 0, len(signers))
	for idx, signer := range signers {
		if signer.Address() != t.Message.Signers[idx] {
			return fmt.Errorf(
				"%w: signer %d is %s, expected %s",
				ErrMissingSignature,
				idx,
				signer.Address(),
				t.Message.Signers[idx],
			)
		}
		t.Signatures = append(t.Signatures, signer.Sign(msg))
	}
	return nil
}

// ID returns the transaction ID
func (t *Transaction) ID() (TxID, error) {
	msg, err := t.Message.Encode()
	if err != nil {
		return TxID{}, err
	}
	return blake2b.Sum256(msg), nil
}

// verify checks every signature against the encoded message and returns the
// set of verified signers
func (t *Transaction) verify() (map[Address]struct{}, []byte, error) {
	if len(t.Signatures) != len(t.Message.Signers) {
		return nil, nil, ErrSignatureCount
	}
	msg, err := t.Message.Encode()
	if err != nil {
		return nil, nil, err
	}
	signers := make(map[Address]struct{}, len(t.Message.Signers))
	for idx, signer := range t.Message.Signers {
		if !VerifySignature(signer, msg, t.Signatures[idx]) {
			return nil, nil, fmt.Errorf(
				"%w: signer %s",
				ErrInvalidSignature,
				signer,
			)
		}
		signers[signer] = struct{}{}
	}
	return signers, msg, nil
}
