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
	"errors"
	"fmt"

	"github.com/blinklabs-io/umanity/ledger"
)

// Kind groups errors by how a caller is expected to react to them
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation covers malformed input detected before any mutation
	KindValidation
	// KindAuthorization covers missing signatures and owner mismatches
	KindAuthorization
	// KindResource covers expected, recoverable shortages such as an
	// insufficient balance
	KindResource
	// KindUniqueness covers attempts to create an aggregate whose derived
	// address is already occupied
	KindUniqueness
	// KindInvariant covers conditions that indicate a broken invariant, such
	// as accumulator overflow
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindResource:
		return "resource"
	case KindUniqueness:
		return "uniqueness"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// ProgramError is an error raised by program logic. Codes are unique within
// a program; shared errors use codes below 6000
type ProgramError struct {
	Msg  string
	Code uint32
	Kind Kind
}

func NewError(code uint32, kind Kind, msg string) *ProgramError {
	return &ProgramError{Code: code, Kind: kind, Msg: msg}
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Kind, e.Code, e.Msg)
}

var (
	ErrMissingSigner      = NewError(1001, KindAuthorization, "missing required signer")
	ErrOwnerMismatch      = NewError(1002, KindAuthorization, "signer does not own this account")
	ErrOverflow           = NewError(1003, KindInvariant, "arithmetic overflow")
	ErrInvalidInstruction = NewError(1004, KindValidation, "invalid instruction data")
	ErrInvalidAccountData = NewError(1005, KindInvariant, "invalid account data")
)

// KindOf classifies an error returned from a transaction. Host errors are
// mapped onto the same taxonomy as program errors
func KindOf(err error) Kind {
	var perr *ProgramError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	switch {
	case errors.Is(err, ledger.ErrMissingSignature),
		errors.Is(err, ledger.ErrInvalidSignature),
		errors.Is(err, ledger.ErrSignatureCount),
		errors.Is(err, ledger.ErrAccountOwnerMismatch):
		return KindAuthorization
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return KindResource
	case errors.Is(err, ledger.ErrAccountInUse):
		return KindUniqueness
	case errors.Is(err, ledger.ErrBalanceOverflow):
		return KindInvariant
	case errors.Is(err, ledger.ErrRecordTooLarge),
		errors.Is(err, ledger.ErrMaxSeedLengthExceeded):
		return KindValidation
	}
	return KindUnknown
}
