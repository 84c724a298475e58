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
	"fmt"

	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/common"
)

// Program implements the donation pool instructions. It holds no state of
// its own
type Program struct{}

func New() *Program {
	return &Program{}
}

func (p *Program) ID() ledger.Address {
	return ProgramID
}

func (p *Program) Name() string {
	return "pool"
}

func (p *Program) Process(txn *ledger.Txn, data []byte) error {
	tag, body, err := common.SplitInstruction(data)
	if err != nil {
		return err
	}
	switch tag {
	case InstructionInitializePool:
		var args InitializePoolArgs
		if err := common.DecodeArgs(body, &args); err != nil {
			return err
		}
		return p.initializePool(txn, &args)
	case InstructionOneTapDonate:
		var args OneTapDonateArgs
		if err := common.DecodeArgs(body, &args); err != nil {
			return err
		}
		return p.donate(txn, args.Pool, args.Donor, OneTapAmount, DonationTypeMicro)
	case InstructionDonateToPool:
		var args DonateToPoolArgs
		if err := common.DecodeArgs(body, &args); err != nil {
			return err
		}
		return p.donate(txn, args.Pool, args.Donor, args.Amount, DonationTypeCustom)
	case InstructionWithdrawFromPool:
		var args WithdrawFromPoolArgs
		if err := common.DecodeArgs(body, &args); err != nil {
			return err
		}
		return p.withdraw(txn, &args)
	case InstructionUpdatePool:
		var args UpdatePoolArgs
		if err := common.DecodeArgs(body, &args); err != nil {
			return err
		}
		return p.updatePool(txn, &args)
	case InstructionSetPoolActive:
		var args SetPoolActiveArgs
		if err := common.DecodeArgs(body, &args); err != nil {
			return err
		}
		return p.setPoolActive(txn, &args)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownInstruction, tag)
	}
}

func validateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	return common.CheckMaxLength(name, MaxNameLength, ErrNameTooLong)
}

func validateDescription(description string) error {
	return common.CheckMaxLength(description, MaxDescriptionLength, ErrDescriptionTooLong)
}

func validateEmoji(emoji string) error {
	return common.CheckMaxLength(emoji, MaxEmojiLength, ErrEmojiTooLong)
}

func (p *Program) initializePool(txn *ledger.Txn, args *InitializePoolArgs) error {
	if err := common.RequireSigner(txn, args.Authority); err != nil {
		return err
	}
	if err := validateName(args.Name); err != nil {
		return err
	}
	if err := validateDescription(args.Description); err != nil {
		return err
	}
	if err := validateEmoji(args.Emoji); err != nil {
		return err
	}
	poolAddr, bump, err := PoolAddress(args.Name)
	if err != nil {
		return err
	}
	_, vaultBump, err := VaultAddress(poolAddr)
	if err != nil {
		return err
	}
	pool := &Pool{
		Authority:   args.Authority,
		Name:        args.Name,
		Description: args.Description,
		Emoji:       args.Emoji,
		PoolType:    args.PoolType,
		IsActive:    true,
		Bump:        bump,
		VaultBump:   vaultBump,
	}
	data, err := common.EncodeAccount(poolDiscriminator, pool)
	if err != nil {
		return err
	}
	// The allocator rejects a name that is already taken
	if _, err := txn.AllocateDerived(
		ledger.WithBump(poolSeeds(args.Name), bump),
		poolSpace,
		data,
	); err != nil {
		return err
	}
	txn.Emit(
		PoolInitializedEventType,
		PoolInitializedEvent{
			Pool:      poolAddr,
			Authority: args.Authority,
			Name:      args.Name,
			Emoji:     args.Emoji,
			PoolType:  args.PoolType,
			Timestamp: txn.Now(),
		},
	)
	txn.Logger().Debug(
		"pool initialized",
		"component", "pool",
		"pool", poolAddr.String(),
		"name", args.Name,
	)
	return nil
}

func (p *Program) donate(
	txn *ledger.Txn,
	poolAddr ledger.Address,
	donor ledger.Address,
	amount uint64,
	donationType DonationType,
) error {
	if err := common.RequireSigner(txn, donor); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	pool, err := loadPool(txn, poolAddr)
	if err != nil {
		return err
	}
	seq := pool.DonorCount
	totalDonated, err := common.CheckedAdd(pool.TotalDonated, amount)
	if err != nil {
		return err
	}
	donorCount, err := common.CheckedAdd(pool.DonorCount, 1)
	if err != nil {
		return err
	}
	vaultAddr, err := ledger.CreateProgramAddress(
		ledger.WithBump(vaultSeeds(poolAddr), pool.VaultBump),
		ProgramID,
	)
	if err != nil {
		return err
	}
	if err := txn.Transfer(donor, vaultAddr, amount); err != nil {
		return err
	}
	pool.TotalDonated = totalDonated
	pool.DonorCount = donorCount
	if err := storePool(txn, poolAddr, pool); err != nil {
		return err
	}
	_, recordBump, err := DonationRecordAddress(poolAddr, seq)
	if err != nil {
		return err
	}
	record := &DonationRecord{
		Donor:        donor,
		Pool:         poolAddr,
		Amount:       amount,
		Timestamp:    txn.Now(),
		DonationType: donationType,
	}
	data, err := common.EncodeAccount(donationDiscriminator, record)
	if err != nil {
		return err
	}
	recordAddr, err := txn.AllocateDerived(
		ledger.WithBump(donationSeeds(poolAddr, seq), recordBump),
		donationSpace,
		data,
	)
	if err != nil {
		return err
	}
	txn.Emit(
		DonationEventType,
		DonationEvent{
			Donor:        donor,
			Pool:         poolAddr,
			Record:       recordAddr,
			PoolName:     pool.Name,
			Amount:       amount,
			DonationType: donationType,
			Timestamp:    record.Timestamp,
		},
	)
	return nil
}

func (p *Program) withdraw(txn *ledger.Txn, args *WithdrawFromPoolArgs) error {
	if err := common.RequireSigner(txn, args.Authority); err != nil {
		return err
	}
	if args.Amount == 0 {
		return ErrInvalidAmount
	}
	pool, err := loadPool(txn, args.Pool)
	if err != nil {
		return err
	}
	if err := common.RequireOwner(pool.Authority, args.Authority); err != nil {
		return err
	}
	seeds := ledger.WithBump(vaultSeeds(args.Pool), pool.VaultBump)
	vaultAddr, err := ledger.CreateProgramAddress(seeds, ProgramID)
	if err != nil {
		return err
	}
	vaultBalance, err := txn.Balance(vaultAddr)
	if err != nil {
		return err
	}
	if vaultBalance < args.Amount {
		return fmt.Errorf(
			"%w: vault holds %d, requested %d",
			ErrInsufficientFunds,
			vaultBalance,
			args.Amount,
		)
	}
	// The vault has no key. Presenting its seeds is the program's debit right
	if err := txn.DebitDerived(seeds, args.Recipient, args.Amount); err != nil {
		return err
	}
	txn.Emit(
		WithdrawalEventType,
		WithdrawalEvent{
			Pool:      args.Pool,
			Authority: args.Authority,
			Recipient: args.Recipient,
			Amount:    args.Amount,
			Timestamp: txn.Now(),
		},
	)
	return nil
}

func (p *Program) updatePool(txn *ledger.Txn, args *UpdatePoolArgs) error {
	if err := common.RequireSigner(txn, args.Authority); err != nil {
		return err
	}
	pool, err := loadPool(txn, args.Pool)
	if err != nil {
		return err
	}
	if err := common.RequireOwner(pool.Authority, args.Authority); err != nil {
		return err
	}
	// Validate everything before touching the pool
	if args.Description != nil {
		if err := validateDescription(*args.Description); err != nil {
			return err
		}
	}
	if args.Emoji != nil {
		if err := validateEmoji(*args.Emoji); err != nil {
			return err
		}
	}
	if args.Description != nil {
		pool.Description = *args.Description
	}
	if args.Emoji != nil {
		pool.Emoji = *args.Emoji
	}
	if err := storePool(txn, args.Pool, pool); err != nil {
		return err
	}
	emitPoolUpdated(txn, args.Pool, pool)
	return nil
}

func (p *Program) setPoolActive(txn *ledger.Txn, args *SetPoolActiveArgs) error {
	if err := common.RequireSigner(txn, args.Authority); err != nil {
		return err
	}
	pool, err := loadPool(txn, args.Pool)
	if err != nil {
		return err
	}
	if err := common.RequireOwner(pool.Authority, args.Authority); err != nil {
		return err
	}
	pool.IsActive = args.Active
	if err := storePool(txn, args.Pool, pool); err != nil {
		return err
	}
	emitPoolUpdated(txn, args.Pool, pool)
	return nil
}

func emitPoolUpdated(txn *ledger.Txn, addr ledger.Address, pool *Pool) {
	txn.Emit(
		PoolUpdatedEventType,
		PoolUpdatedEvent{
			Pool:        addr,
			Description: pool.Description,
			Emoji:       pool.Emoji,
			IsActive:    pool.IsActive,
			Timestamp:   txn.Now(),
		},
	)
}

func loadPool(txn *ledger.Txn, addr ledger.Address) (*Pool, error) {
	rec, err := txn.GetOwned(addr)
	if err != nil {
		return nil, err
	}
	return decodePool(rec)
}

func storePool(txn *ledger.Txn, addr ledger.Address, pool *Pool) error {
	data, err := common.EncodeAccount(poolDiscriminator, pool)
	if err != nil {
		return err
	}
	return txn.Write(addr, data)
}

func decodePool(rec *ledger.Record) (*Pool, error) {
	pool := &Pool{}
	if err := common.DecodeAccount(rec.Data, poolDiscriminator, pool); err != nil {
		return nil, err
	}
	return pool, nil
}
