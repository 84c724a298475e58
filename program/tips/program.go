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
	"errors"
	"fmt"

	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/common"
)

// Program implements the tipping instructions
type Program struct{}

func New() *Program {
	return &Program{}
}

func (p *Program) ID() ledger.Address {
	return ProgramID
}

func (p *Program) Name() string {
	return "tips"
}

func (p *Program) Process(txn *ledger.Txn, data []byte) error {
	tag, body, err := common.SplitInstruction(data)
	if err != nil {
		return err
	}
	switch tag {
	case InstructionRegisterUser:
		var args RegisterUserArgs
		if err := common.DecodeArgs(body, &args); err != nil {
			return err
		}
		return p.registerUser(txn, &args)
	case InstructionSendTip:
		var args SendTipArgs
		if err := common.DecodeArgs(body, &args); err != nil {
			return err
		}
		return p.sendTip(txn, &args)
	case InstructionUpdateProfile:
		var args UpdateProfileArgs
		if err := common.DecodeArgs(body, &args); err != nil {
			return err
		}
		return p.updateProfile(txn, &args)
	case InstructionToggleActive:
		var args ToggleActiveArgs
		if err := common.DecodeArgs(body, &args); err != nil {
			return err
		}
		return p.toggleActive(txn, &args)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownInstruction, tag)
	}
}

func (p *Program) registerUser(txn *ledger.Txn, args *RegisterUserArgs) error {
	if err := common.RequireSigner(txn, args.Owner); err != nil {
		return err
	}
	if !ValidUsername(args.Username) {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, args.Username)
	}
	if err := common.CheckMaxLength(args.DisplayName, MaxDisplayNameLength, ErrNameTooLong); err != nil {
		return err
	}
	// The claim makes the username unique across identities
	_, claimBump, err := UsernameClaimAddress(args.Username)
	if err != nil {
		return err
	}
	claimData, err := common.EncodeAccount(
		claimDiscriminator,
		&UsernameClaim{Owner: args.Owner},
	)
	if err != nil {
		return err
	}
	if _, err := txn.AllocateDerived(
		ledger.WithBump(usernameSeeds(args.Username), claimBump),
		claimSpace,
		claimData,
	); err != nil {
		return err
	}
	_, bump, err := ProfileAddress(args.Owner)
	if err != nil {
		return err
	}
	profile := &UserProfile{
		Owner:       args.Owner,
		Username:    args.Username,
		DisplayName: args.DisplayName,
		IsActive:    true,
		Bump:        bump,
	}
	data, err := common.EncodeAccount(profileDiscriminator, profile)
	if err != nil {
		return err
	}
	profileAddr, err := txn.AllocateDerived(
		ledger.WithBump(profileSeeds(args.Owner), bump),
		profileSpace,
		data,
	)
	if err != nil {
		return err
	}
	txn.Emit(
		UserRegisteredEventType,
		UserRegisteredEvent{
			User:        args.Owner,
			Profile:     profileAddr,
			Username:    args.Username,
			DisplayName: args.DisplayName,
			Timestamp:   txn.Now(),
		},
	)
	return nil
}

func (p *Program) sendTip(txn *ledger.Txn, args *SendTipArgs) error {
	if err := common.RequireSigner(txn, args.Sender); err != nil {
		return err
	}
	if args.Amount == 0 {
		return ErrInvalidAmount
	}
	if err := common.CheckMaxLength(args.Message, MaxMessageLength, ErrMessageTooLong); err != nil {
		return err
	}
	if args.Sender == args.Recipient {
		return ErrSelfTip
	}
	senderAddr, sender, err := loadProfile(txn, args.Sender)
	if err != nil {
		return err
	}
	recipientAddr, recipient, err := loadProfile(txn, args.Recipient)
	if err != nil {
		return err
	}
	seq := sender.TipCountSent
	// Compute every accumulator before mutating anything
	totalSent, err := common.CheckedAdd(sender.TotalSent, args.Amount)
	if err != nil {
		return err
	}
	countSent, err := common.CheckedAdd(sender.TipCountSent, 1)
	if err != nil {
		return err
	}
	totalReceived, err := common.CheckedAdd(recipient.TotalReceived, args.Amount)
	if err != nil {
		return err
	}
	countReceived, err := common.CheckedAdd(recipient.TipCountReceived, 1)
	if err != nil {
		return err
	}
	if err := txn.Transfer(args.Sender, args.Recipient, args.Amount); err != nil {
		return err
	}
	sender.TotalSent = totalSent
	sender.TipCountSent = countSent
	recipient.TotalReceived = totalReceived
	recipient.TipCountReceived = countReceived
	if err := storeProfile(txn, senderAddr, sender); err != nil {
		return err
	}
	if err := storeProfile(txn, recipientAddr, recipient); err != nil {
		return err
	}
	_, recordBump, err := TipRecordAddress(args.Sender, seq)
	if err != nil {
		return err
	}
	record := &TipRecord{
		Sender:    args.Sender,
		Recipient: args.Recipient,
		Amount:    args.Amount,
		Message:   args.Message,
		Timestamp: txn.Now(),
	}
	data, err := common.EncodeAccount(tipDiscriminator, record)
	if err != nil {
		return err
	}
	recordAddr, err := txn.AllocateDerived(
		ledger.WithBump(tipSeeds(args.Sender, seq), recordBump),
		tipSpace,
		data,
	)
	if err != nil {
		return err
	}
	txn.Emit(
		TipSentEventType,
		TipSentEvent{
			Sender:    args.Sender,
			Recipient: args.Recipient,
			Record:    recordAddr,
			Amount:    args.Amount,
			Message:   args.Message,
			Timestamp: record.Timestamp,
		},
	)
	return nil
}

func (p *Program) updateProfile(txn *ledger.Txn, args *UpdateProfileArgs) error {
	if err := common.RequireSigner(txn, args.Owner); err != nil {
		return err
	}
	addr, profile, err := loadProfile(txn, args.Owner)
	if err != nil {
		return err
	}
	if err := common.RequireOwner(profile.Owner, args.Owner); err != nil {
		return err
	}
	// Validate every supplied field before touching the profile
	if args.DisplayName != nil {
		if err := common.CheckMaxLength(*args.DisplayName, MaxDisplayNameLength, ErrNameTooLong); err != nil {
			return err
		}
	}
	if args.Bio != nil {
		if err := common.CheckMaxLength(*args.Bio, MaxBioLength, ErrBioTooLong); err != nil {
			return err
		}
	}
	if args.DisplayName != nil {
		profile.DisplayName = *args.DisplayName
	}
	if args.Bio != nil {
		profile.Bio = *args.Bio
	}
	if err := storeProfile(txn, addr, profile); err != nil {
		return err
	}
	emitProfileUpdated(txn, profile)
	return nil
}

func (p *Program) toggleActive(txn *ledger.Txn, args *ToggleActiveArgs) error {
	if err := common.RequireSigner(txn, args.Owner); err != nil {
		return err
	}
	addr, profile, err := loadProfile(txn, args.Owner)
	if err != nil {
		return err
	}
	if err := common.RequireOwner(profile.Owner, args.Owner); err != nil {
		return err
	}
	profile.IsActive = !profile.IsActive
	if err := storeProfile(txn, addr, profile); err != nil {
		return err
	}
	emitProfileUpdated(txn, profile)
	return nil
}

func emitProfileUpdated(txn *ledger.Txn, profile *UserProfile) {
	txn.Emit(
		ProfileUpdatedEventType,
		ProfileUpdatedEvent{
			User:        profile.Owner,
			DisplayName: profile.DisplayName,
			Bio:         profile.Bio,
			IsActive:    profile.IsActive,
			Timestamp:   txn.Now(),
		},
	)
}

// loadProfile reads the profile derived from owner
func loadProfile(
	txn *ledger.Txn,
	owner ledger.Address,
) (ledger.Address, *UserProfile, error) {
	addr, _, err := ProfileAddress(owner)
	if err != nil {
		return ledger.Address{}, nil, err
	}
	rec, err := txn.GetOwned(addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return ledger.Address{}, nil, fmt.Errorf("%w: %s", ErrProfileNotFound, owner)
		}
		return ledger.Address{}, nil, err
	}
	profile, err := decodeProfile(rec)
	if err != nil {
		return ledger.Address{}, nil, err
	}
	return addr, profile, nil
}

func storeProfile(txn *ledger.Txn, addr ledger.Address, profile *UserProfile) error {
	data, err := common.EncodeAccount(profileDiscriminator, profile)
	if err != nil {
		return err
	}
	return txn.Write(addr, data)
}

func decodeProfile(rec *ledger.Record) (*UserProfile, error) {
	profile := &UserProfile{}
	if err := common.DecodeAccount(rec.Data, profileDiscriminator, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
