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
	"math"
	"strings"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/common"
)

// ProgramID is the address the tipping program is registered under
var ProgramID = ledger.MustParseAddress(
	"5hkEjoNLyEpgKezYBvU2HF1FgBHfKGqumBaT48moUwqJ",
)

const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 30
	MaxDisplayNameLength = 50
	MaxBioLength         = 280
	MaxMessageLength     = 280

	userSeed     = "user"
	usernameSeed = "username"
	tipSeed      = "tip"

	profileDiscriminator uint8 = 3
	tipDiscriminator     uint8 = 4
	claimDiscriminator   uint8 = 5
)

// UserProfile is the aggregate for one registered identity. The totals and
// counts equal the sums and counts of the tip records the user sent or
// received
type UserProfile struct {
	cbor.StructAsArray
	Owner            ledger.Address
	Username         string
	DisplayName      string
	Bio              string
	TotalReceived    uint64
	TotalSent        uint64
	TipCountReceived uint64
	TipCountSent     uint64
	IsActive         bool
	Bump             uint8
}

// TipRecord is the write-once history entry for a single tip
type TipRecord struct {
	cbor.StructAsArray
	Sender    ledger.Address
	Recipient ledger.Address
	Amount    uint64
	Message   string
	Timestamp int64
}

// UsernameClaim reserves a username for the identity that registered it
type UsernameClaim struct {
	cbor.StructAsArray
	Owner ledger.Address
}

var (
	profileSpace = common.AccountSpace(&UserProfile{
		Username:         strings.Repeat("u", MaxUsernameLength),
		DisplayName:      strings.Repeat("d", MaxDisplayNameLength),
		Bio:              strings.Repeat("b", MaxBioLength),
		TotalReceived:    math.MaxUint64,
		TotalSent:        math.MaxUint64,
		TipCountReceived: math.MaxUint64,
		TipCountSent:     math.MaxUint64,
		Bump:             math.MaxUint8,
	})
	tipSpace = common.AccountSpace(&TipRecord{
		Amount:    math.MaxUint64,
		Message:   strings.Repeat("m", MaxMessageLength),
		Timestamp: math.MinInt64,
	})
	claimSpace = common.AccountSpace(&UsernameClaim{})
)

func profileSeeds(owner ledger.Address) [][]byte {
	return [][]byte{[]byte(userSeed), owner.Bytes()}
}

func usernameSeeds(username string) [][]byte {
	return [][]byte{[]byte(usernameSeed), []byte(username)}
}

func tipSeeds(sender ledger.Address, seq uint64) [][]byte {
	return [][]byte{[]byte(tipSeed), sender.Bytes(), common.U64Seed(seq)}
}

// ProfileAddress derives the address of the profile owned by an identity
func ProfileAddress(owner ledger.Address) (ledger.Address, uint8, error) {
	return ledger.FindProgramAddress(profileSeeds(owner), ProgramID)
}

// UsernameClaimAddress derives the address reserving a username
func UsernameClaimAddress(username string) (ledger.Address, uint8, error) {
	return ledger.FindProgramAddress(usernameSeeds(username), ProgramID)
}

// TipRecordAddress derives the address of the seq'th tip (zero based) sent
// by an identity
func TipRecordAddress(
	sender ledger.Address,
	seq uint64,
) (ledger.Address, uint8, error) {
	return ledger.FindProgramAddress(tipSeeds(sender, seq), ProgramID)
}

// ValidUsername reports whether a username uses only lowercase letters,
// digits, and underscores and is between 3 and 30 characters long
func ValidUsername(username string) bool {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return false
	}
	for _, c := range username {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
