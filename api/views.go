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

package api

import (
	"github.com/blinklabs-io/umanity/indexer"
	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/pool"
	"github.com/blinklabs-io/umanity/program/tips"
)

// PoolSummary is the indexed view of a pool, including withdrawals
type PoolSummary struct {
	Address        string `json:"address"`
	Authority      string `json:"authority"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Emoji          string `json:"emoji"`
	PoolType       string `json:"poolType"`
	TotalDonated   uint64 `json:"totalDonated"`
	TotalWithdrawn uint64 `json:"totalWithdrawn"`
	DonationCount  uint64 `json:"donationCount"`
	IsActive       bool   `json:"isActive"`
}

func NewPoolSummary(p *indexer.Pool) PoolSummary {
	return PoolSummary{
		Address:        p.Address,
		Authority:      p.Authority,
		Name:           p.Name,
		Description:    p.Description,
		Emoji:          p.Emoji,
		PoolType:       pool.PoolType(p.PoolType).String(),
		TotalDonated:   uint64(p.TotalDonated),
		TotalWithdrawn: uint64(p.TotalWithdrawn),
		DonationCount:  p.DonationCount,
		IsActive:       p.IsActive,
	}
}

// PoolView is the committed ledger state of a pool
type PoolView struct {
	Address      ledger.Address `json:"address"`
	Authority    ledger.Address `json:"authority"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Emoji        string         `json:"emoji"`
	PoolType     string         `json:"poolType"`
	TotalDonated uint64         `json:"totalDonated"`
	DonorCount   uint64         `json:"donorCount"`
	VaultBalance uint64         `json:"vaultBalance"`
	IsActive     bool           `json:"isActive"`
}

func NewPoolView(addr ledger.Address, p *pool.Pool, vaultBalance uint64) PoolView {
	return PoolView{
		Address:      addr,
		Authority:    p.Authority,
		Name:         p.Name,
		Description:  p.Description,
		Emoji:        p.Emoji,
		PoolType:     p.PoolType.String(),
		TotalDonated: p.TotalDonated,
		DonorCount:   p.DonorCount,
		VaultBalance: vaultBalance,
		IsActive:     p.IsActive,
	}
}

type DonationView struct {
	Donor        ledger.Address `json:"donor"`
	Amount       uint64         `json:"amount"`
	Timestamp    int64          `json:"timestamp"`
	DonationType string         `json:"donationType"`
}

func NewDonationView(rec *pool.DonationRecord) DonationView {
	return DonationView{
		Donor:        rec.Donor,
		Amount:       rec.Amount,
		Timestamp:    rec.Timestamp,
		DonationType: rec.DonationType.String(),
	}
}

type ProfileView struct {
	Owner            ledger.Address `json:"owner"`
	Username         string         `json:"username"`
	DisplayName      string         `json:"displayName"`
	Bio              string         `json:"bio"`
	TotalReceived    uint64         `json:"totalReceived"`
	TotalSent        uint64         `json:"totalSent"`
	TipCountReceived uint64         `json:"tipCountReceived"`
	TipCountSent     uint64         `json:"tipCountSent"`
	IsActive         bool           `json:"isActive"`
}

func NewProfileView(p *tips.UserProfile) ProfileView {
	return ProfileView{
		Owner:            p.Owner,
		Username:         p.Username,
		DisplayName:      p.DisplayName,
		Bio:              p.Bio,
		TotalReceived:    p.TotalReceived,
		TotalSent:        p.TotalSent,
		TipCountReceived: p.TipCountReceived,
		TipCountSent:     p.TipCountSent,
		IsActive:         p.IsActive,
	}
}

type TipView struct {
	Sender    ledger.Address `json:"sender"`
	Recipient ledger.Address `json:"recipient"`
	Amount    uint64         `json:"amount"`
	Message   string         `json:"message"`
	Timestamp int64          `json:"timestamp"`
}

func NewTipView(rec *tips.TipRecord) TipView {
	return TipView{
		Sender:    rec.Sender,
		Recipient: rec.Recipient,
		Amount:    rec.Amount,
		Message:   rec.Message,
		Timestamp: rec.Timestamp,
	}
}
