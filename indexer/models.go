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

package indexer

// Participant aggregates everything known about one identity
type Participant struct {
	Address          string `gorm:"uniqueIndex"`
	Username         string `gorm:"index"`
	DisplayName      string
	ID               uint `gorm:"primarykey"`
	RegisteredAt     int64
	TotalDonated     Uint64
	TotalTipped      Uint64
	TotalReceived    Uint64
	DonationCount    uint64
	TipCountSent     uint64
	TipCountReceived uint64
	RewardPoints     uint64
	Registered       bool
	IsActive         bool
}

func (Participant) TableName() string {
	return "participant"
}

// TotalContributed is the sum of donations and tips sent
func (p *Participant) TotalContributed() uint64 {
	return saturatingAdd(uint64(p.TotalDonated), uint64(p.TotalTipped))
}

type Pool struct {
	Address        string `gorm:"uniqueIndex"`
	Authority      string `gorm:"index"`
	Name           string `gorm:"uniqueIndex"`
	Emoji          string
	Description    string
	ID             uint `gorm:"primarykey"`
	CreatedAt      int64
	TotalDonated   Uint64
	TotalWithdrawn Uint64
	DonationCount  uint64
	PoolType       uint8
	IsActive       bool
}

func (Pool) TableName() string {
	return "pool"
}

type Donation struct {
	Record       string `gorm:"uniqueIndex"`
	Pool         string `gorm:"index"`
	PoolName     string
	Donor        string `gorm:"index"`
	ID           uint   `gorm:"primarykey"`
	Timestamp    int64  `gorm:"index"`
	Amount       Uint64
	DonationType uint8
}

func (Donation) TableName() string {
	return "donation"
}

type Withdrawal struct {
	Pool      string `gorm:"index"`
	Authority string
	Recipient string
	ID        uint  `gorm:"primarykey"`
	Timestamp int64 `gorm:"index"`
	Amount    Uint64
}

func (Withdrawal) TableName() string {
	return "withdrawal"
}

type Tip struct {
	Record    string `gorm:"uniqueIndex"`
	Sender    string `gorm:"index"`
	Recipient string `gorm:"index"`
	Message   string
	ID        uint  `gorm:"primarykey"`
	Timestamp int64 `gorm:"index"`
	Amount    Uint64
}

func (Tip) TableName() string {
	return "tip"
}

// MigrateModels lists every model managed by the indexer
var MigrateModels = []any{
	&Participant{},
	&Pool{},
	&Donation{},
	&Withdrawal{},
	&Tip{},
}
