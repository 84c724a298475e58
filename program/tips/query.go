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

func getOwned(r ledger.Reader, addr ledger.Address) (*ledger.Record, error) {
	rec, err := r.Get(addr)
	if err != nil {
		return nil, err
	}
	if rec.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountOwnerMismatch, addr)
	}
	return rec, nil
}

// GetProfile reads the profile registered by owner
func GetProfile(r ledger.Reader, owner ledger.Address) (*UserProfile, error) {
	addr, _, err := ProfileAddress(owner)
	if err != nil {
		return nil, err
	}
	rec, err := getOwned(r, addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, owner)
		}
		return nil, err
	}
	return decodeProfile(rec)
}

// LookupUsername resolves a username to the identity that registered it
func LookupUsername(r ledger.Reader, username string) (ledger.Address, error) {
	addr, _, err := UsernameClaimAddress(username)
	if err != nil {
		return ledger.Address{}, err
	}
	rec, err := getOwned(r, addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return ledger.Address{}, fmt.Errorf("%w: %q", ErrProfileNotFound, username)
		}
		return ledger.Address{}, err
	}
	claim := &UsernameClaim{}
	if err := common.DecodeAccount(rec.Data, claimDiscriminator, claim); err != nil {
		return ledger.Address{}, err
	}
	return claim.Owner, nil
}

// GetTipRecord reads the tip record stored at addr
func GetTipRecord(r ledger.Reader, addr ledger.Address) (*TipRecord, error) {
	rec, err := getOwned(r, addr)
	if err != nil {
		return nil, err
	}
	ret := &TipRecord{}
	if err := common.DecodeAccount(rec.Data, tipDiscriminator, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// SentTips returns every tip sent by an identity, oldest first
func SentTips(r ledger.Reader, sender ledger.Address) ([]TipRecord, error) {
	profile, err := GetProfile(r, sender)
	if err != nil {
		return nil, err
	}
	ret := make([]TipRecord, 0, profile.TipCountSent)
	for seq := range profile.TipCountSent {
		addr, _, err := TipRecordAddress(sender, seq)
		if err != nil {
			return nil, err
		}
		record, err := GetTipRecord(r, addr)
		if err != nil {
			return nil, fmt.Errorf("tip %d: %w", seq, err)
		}
		ret = append(ret, *record)
	}
	return ret, nil
}
