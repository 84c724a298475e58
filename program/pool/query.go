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
	"errors"
	"fmt"

	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/common"
)

// GetPool reads the pool stored at addr
func GetPool(r ledger.Reader, addr ledger.Address) (*Pool, error) {
	rec, err := r.Get(addr)
	if err != nil {
		return nil, err
	}
	if rec.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountOwnerMismatch, addr)
	}
	return decodePool(rec)
}

// GetPoolByName derives the pool address from its name and reads it
func GetPoolByName(r ledger.Reader, name string) (ledger.Address, *Pool, error) {
	addr, _, err := PoolAddress(name)
	if err != nil {
		return ledger.Address{}, nil, err
	}
	pool, err := GetPool(r, addr)
	if err != nil {
		return ledger.Address{}, nil, err
	}
	return addr, pool, nil
}

// GetDonationRecord reads the donation record stored at addr
func GetDonationRecord(
	r ledger.Reader,
	addr ledger.Address,
) (*DonationRecord, error) {
	rec, err := r.Get(addr)
	if err != nil {
		return nil, err
	}
	if rec.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountOwnerMismatch, addr)
	}
	ret := &DonationRecord{}
	if err := common.DecodeAccount(rec.Data, donationDiscriminator, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// DonationHistory returns every donation made to a pool, oldest first.
// Records are found by derivation, so no index is needed
func DonationHistory(
	r ledger.Reader,
	poolAddr ledger.Address,
) ([]DonationRecord, error) {
	pool, err := GetPool(r, poolAddr)
	if err != nil {
		return nil, err
	}
	ret := make([]DonationRecord, 0, pool.DonorCount)
	for seq := range pool.DonorCount {
		addr, _, err := DonationRecordAddress(poolAddr, seq)
		if err != nil {
			return nil, err
		}
		record, err := GetDonationRecord(r, addr)
		if err != nil {
			return nil, fmt.Errorf("donation %d: %w", seq, err)
		}
		ret = append(ret, *record)
	}
	return ret, nil
}

// VaultBalance returns the value currently held for a pool
func VaultBalance(r ledger.Reader, poolAddr ledger.Address) (uint64, error) {
	vaultAddr, _, err := VaultAddress(poolAddr)
	if err != nil {
		return 0, err
	}
	rec, err := r.Get(vaultAddr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return rec.Balance, nil
}
