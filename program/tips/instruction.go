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

package tips

import (
	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/common"
)

const (
	InstructionRegisterUser uint8 = iota
	InstructionSendTip
	InstructionUpdateProfile
	InstructionToggleActive
)

type RegisterUserArgs struct {
	cbor.StructAsArray
	Owner       ledger.Address
	Username    string
	DisplayName string
}

type SendTipArgs struct {
	cbor.StructAsArray
	Sender    ledger.Address
	Recipient ledger.Address
	Amount    uint64
	Message   string
}

// UpdateProfileArgs replaces each non-nil field
type UpdateProfileArgs struct {
	cbor.StructAsArray
	Owner       ledger.Address
	DisplayName *string
	Bio         *string
}

type ToggleActiveArgs struct {
	cbor.StructAsArray
	Owner ledger.Address
}

func instruction(tag uint8, args any) (ledger.Instruction, error) {
	data, err := common.EncodeInstruction(tag, args)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{ProgramID: ProgramID, Data: data}, nil
}

func RegisterUser(
	owner ledger.Address,
	username string,
	displayName string,
) (ledger.Instruction, error) {
	return instruction(
		InstructionRegisterUser,
		&RegisterUserArgs{
			Owner:       owner,
			Username:    username,
			DisplayName: displayName,
		},
	)
}

func SendTip(
	sender, recipient ledger.Address,
	amount uint64,
	message string,
) (ledger.Instruction, error) {
	return instruction(
		InstructionSendTip,
		&SendTipArgs{
			Sender:    sender,
			Recipient: recipient,
			Amount:    amount,
			Message:   message,
		},
	)
}

func UpdateProfile(
	owner ledger.Address,
	displayName *string,
	bio *string,
) (ledger.Instruction, error) {
	return instruction(
		InstructionUpdateProfile,
		&UpdateProfileArgs{Owner: owner, DisplayName: displayName, Bio: bio},
	)
}

func ToggleActive(owner ledger.Address) (ledger.Instruction, error) {
	return instruction(InstructionToggleActive, &ToggleActiveArgs{Owner: owner})
}
