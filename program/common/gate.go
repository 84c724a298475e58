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

package common

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"unicode/utf8"

	"github.com/blinklabs-io/umanity/ledger"
)

// RequireSigner fails unless addr signed the executing transaction
func RequireSigner(txn *ledger.Txn, addr ledger.Address) error {
	if !txn.IsSigner(addr) {
		return fmt.Errorf("%w: %s", ErrMissingSigner, addr)
	}
	return nil
}

// RequireOwner fails unless the identity stored on an aggregate is exactly
// the signing identity
func RequireOwner(stored ledger.Address, signer ledger.Address) error {
	if stored != signer {
		return fmt.Errorf(
			"%w: owner is %s, signer is %s",
			ErrOwnerMismatch,
			stored,
			signer,
		)
	}
	return nil
}

// CheckedAdd adds two accumulators, failing instead of wrapping
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return sum, nil
}

// CheckMaxLength fails with err when value is longer than limit bytes or is
// not valid UTF-8
func CheckMaxLength(value string, limit int, err *ProgramError) error {
	if len(value) > limit {
		return fmt.Errorf("%w: %d bytes, max %d", err, len(value), limit)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%w: not valid UTF-8", err)
	}
	return nil
}

// U64Seed encodes a sequence number as a derivation seed
func U64Seed(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}
