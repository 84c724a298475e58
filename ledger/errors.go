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

import "errors"

var (
	// ErrAccountNotFound is returned when no record exists at an address
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountInUse is returned when allocating at an occupied address
	ErrAccountInUse = errors.New("account already in use")
	// ErrAccountOwnerMismatch is returned when a program touches a record it does not own
	ErrAccountOwnerMismatch = errors.New("account not owned by program")
	// ErrRecordTooLarge is returned when record data exceeds its allocated space
	ErrRecordTooLarge = errors.New("record data exceeds allocated space")
	// ErrInsufficientFunds is returned when a debit exceeds the available balance
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBalanceOverflow is returned when a credit would overflow a balance
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrTransferFromDataAccount is returned when a signed transfer debits a
	// record that carries program data
	ErrTransferFromDataAccount = errors.New("transfer source carries data")
	// ErrMissingSignature is returned when an operation requires a signer that did not sign
	ErrMissingSignature = errors.New("missing required signature")
	// ErrInvalidSignature is returned when a transaction signature does not verify
	ErrInvalidSignature = errors.New("invalid transaction signature")
	// ErrSignatureCount is returned when signatures and signers do not line up
	ErrSignatureCount = errors.New("signature count does not match signer count")
	// ErrUnknownProgram is returned when a transaction targets an unregistered program
	ErrUnknownProgram = errors.New("unknown program")
	// ErrDuplicateTransaction is returned when a transaction ID was already processed
	ErrDuplicateTransaction = errors.New("transaction already processed")
	// ErrTooManyConflicts is returned when a transaction keeps conflicting with concurrent writers
	ErrTooManyConflicts = errors.New("transaction conflicted too many times")
	// ErrProgramPanic is returned when a program panics while processing an instruction
	ErrProgramPanic = errors.New("program panicked")
	// ErrTxnFinished is returned when a finished transaction is used
	ErrTxnFinished = errors.New("transaction already finished")
)
