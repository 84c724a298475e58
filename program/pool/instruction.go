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

package pool

import (
	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/common"
)

const (
	InstructionInitializePool uint8 = iota
	InstructionOneTapDonate
	InstructionDonateToPool
	InstructionWithdrawFromPool
	InstructionUpdatePool
	InstructionSetPoolActive
)

type InitializePoolArgs struct {
	cbor.StructAsArray
	Authority   ledger.Address
	Name        string
	Description string
	Emoji       string
	PoolType    PoolType
}

type OneTapDonateArgs struct {
	cbor.StructAsArray
	Pool  ledger.Address
	Donor ledger.Address
}

type DonateToPoolArgs struct {
	cbor.StructAsArray
	Pool   ledger.Address
	Donor  ledger.Address
	Amount uint64
}

type WithdrawFromPoolArgs struct {
	cbor.StructAsArray
	Pool      ledger.Address
	Authority ledger.Address
	Recipient ledger.Address
	Amount    uint64
}

// UpdatePoolArgs replaces each non-nil field
type UpdatePoolArgs struct {
	cbor.StructAsArray
	Pool        ledger.Address
	Authority   ledger.Address
	Description *string
	Emoji       *string
}

type SetPoolActiveArgs struct {
	cbor.StructAsArray
	Pool      ledger.Address
	Authority ledger.Address
	Active    bool
}

func instruction(tag uint8, args any) (ledger.Instruction, error) {
	data, err := common.EncodeInstruction(tag, args)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{ProgramID: ProgramID, Data: data}, nil
}

// InitializePool builds an instruction creating a pool owned by authority
func InitializePool(
	authority ledger.Address,
	name string,
	description string,
	emoji string,
	poolType PoolType,
) (ledger.Instruction, error) {
	return instruction(
		InstructionInitializePool,
		&InitializePoolArgs{
			Authority:   authority,
			Name:        name,
			Description: description,
			Emoji:       emoji,
			PoolType:    poolType,
		},
	)
}

func OneTapDonate(pool, donor ledger.Address) (ledger.Instruction, error) {
	return instruction(
		InstructionOneTapDonate,
		&OneTapDonateArgs{Pool: pool, Donor: donor},
	)
}

func DonateToPool(
	pool, donor ledger.Address,
	amount uint64,
) (ledger.Instruction, error) {
	return instruction(
		InstructionDonateToPool,
		&DonateToPoolArgs{Pool: pool, Donor: donor, Amount: amount},
	)
}

func WithdrawFromPool(
	pool, authority, recipient ledger.Address,
	amount uint64,
) (ledger.Instruction, error) {
	return instruction(
		InstructionWithdrawFromPool,
		&WithdrawFromPoolArgs{
			Pool:      pool,
			Authority: authority,
			Recipient: recipient,
			Amount:    amount,
		},
	)
}

func UpdatePool(
	pool, authority ledger.Address,
	description *string,
	emoji *string,
) (ledger.Instruction, error) {
	return instruction(
		InstructionUpdatePool,
		&UpdatePoolArgs{
			Pool:        pool,
			Authority:   authority,
			Description: description,
			Emoji:       emoji,
		},
	)
}

func SetPoolActive(
	pool, authority ledger.Address,
	active bool,
) (ledger.Instruction, error) {
	return instruction(
		InstructionSetPoolActive,
		&SetPoolActiveArgs{Pool: pool, Authority: authority, Active: active},
	)
}
