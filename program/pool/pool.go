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
	"math"
	"strings"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/common"
)

// ProgramID is the address the pool program is registered under
var ProgramID = ledger.MustParseAddress(
	"BW8QEjNXreRdzHoQP8C2uRZaZu5pqZD6VK4f6yidpQ1P",
)

const (
	// OneTapAmount is the fixed value moved by a one-tap donation
	OneTapAmount uint64 = 1_000_000

	MaxNameLength        = 50
	MaxDescriptionLength = 200
	MaxEmojiLength       = 10

	poolSeed     = "pool"
	vaultSeed    = "vault"
	donationSeed = "donation"

	poolDiscriminator     uint8 = 1
	donationDiscriminator uint8 = 2
)

type PoolType uint8

const (
	PoolTypeMedical   PoolType = 0
	PoolTypeEducation PoolType = 1
	PoolTypeEmergency PoolType = 2
)

var poolTypeNames = map[PoolType]string{
	PoolTypeMedical:   "medical",
	PoolTypeEducation: "education",
	PoolTypeEmergency: "emergency",
}

func (t PoolType) String() string {
	if name, ok := poolTypeNames[t]; ok {
		return name
	}
	return "other"
}

// ParsePoolType resolves a pool type name
func ParsePoolType(name string) (PoolType, bool) {
	for t, n := range poolTypeNames {
		if strings.EqualFold(n, name) {
			return t, true
		}
	}
	return 0, false
}

type DonationType uint8

const (
	DonationTypeMicro  DonationType = 0
	DonationTypeCustom DonationType = 1
	// DonationTypeTip is reserved. No instruction produces it
	DonationTypeTip DonationType = 2
)

func (t DonationType) String() string {
	switch t {
	case DonationTypeMicro:
		return "one-tap"
	case DonationTypeCustom:
		return "custom"
	case DonationTypeTip:
		return "tip"
	default:
		return "unknown"
	}
}

// Pool is the aggregate for one cause. TotalDonated and DonorCount equal the
// sum and count of the pool's donation records
type Pool struct {
	cbor.StructAsArray
	Authority    ledger.Address
	Name         string
	Description  string
	Emoji        string
	PoolType     PoolType
	TotalDonated uint64
	DonorCount   uint64
	IsActive     bool
	Bump         uint8
	VaultBump    uint8
}

// DonationRecord is the write-once history entry for a single donation
type DonationRecord struct {
	cbor.StructAsArray
	Donor        ledger.Address
	Pool         ledger.Address
	Amount       uint64
	Timestamp    int64
	DonationType DonationType
}

var (
	poolSpace = common.AccountSpace(&Pool{
		Name:         strings.Repeat("n", MaxNameLength),
		Description:  strings.Repeat("d", MaxDescriptionLength),
		Emoji:        strings.Repeat("e", MaxEmojiLength),
		PoolType:     math.MaxUint8,
		TotalDonated: math.MaxUint64,
		DonorCount:   math.MaxUint64,
		Bump:         math.MaxUint8,
		VaultBump:    math.MaxUint8,
	})
	donationSpace = common.AccountSpace(&DonationRecord{
		Amount:       math.MaxUint64,
		Timestamp:    math.MinInt64,
		DonationType: math.MaxUint8,
	})
)

func poolSeeds(name string) [][]byte {
	return [][]byte{[]byte(poolSeed), []byte(name)}
}

func vaultSeeds(pool ledger.Address) [][]byte {
	return [][]byte{[]byte(vaultSeed), pool.Bytes()}
}

func donationSeeds(pool ledger.Address, seq uint64) [][]byte {
	return [][]byte{[]byte(donationSeed), pool.Bytes(), common.U64Seed(seq)}
}

// PoolAddress derives the address of the pool with the given name
func PoolAddress(name string) (ledger.Address, uint8, error) {
	return ledger.FindProgramAddress(poolSeeds(name), ProgramID)
}

// VaultAddress derives the address holding the value donated to a pool
func VaultAddress(pool ledger.Address) (ledger.Address, uint8, error) {
	return ledger.FindProgramAddress(vaultSeeds(pool), ProgramID)
}

// DonationRecordAddress derives the address of the seq'th donation (zero
// based) made to a pool
func DonationRecordAddress(
	pool ledger.Address,
	seq uint64,
) (ledger.Address, uint8, error) {
	return ledger.FindProgramAddress(donationSeeds(pool, seq), ProgramID)
}
