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

import (
	"cmp"
	"errors"
	"slices"

	"gorm.io/gorm"

	"github.com/blinklabs-io/umanity/program/pool"
)

const (
	ActivityDonation     = "donation"
	ActivityPoolDonation = "pool_donation"
	ActivityTip          = "tip"

	DefaultActivityLimit    = 20
	DefaultLeaderboardLimit = 10
)

var ErrParticipantNotFound = errors.New("participant not found")

// Activity is one entry in the combined donation and tip feed
type Activity struct {
	Kind              string `json:"type"`
	User              string `json:"user"`
	Username          string `json:"username,omitempty"`
	PoolName          string `json:"poolName,omitempty"`
	Recipient         string `json:"recipient,omitempty"`
	RecipientUsername string `json:"recipientUsername,omitempty"`
	Message           string `json:"message,omitempty"`
	Record            string `json:"record"`
	Amount            uint64 `json:"amount"`
	Timestamp         int64  `json:"timestamp"`
}

type LeaderboardEntry struct {
	Address          string `json:"address"`
	Username         string `json:"username"`
	DisplayName      string `json:"displayName"`
	TotalContributed uint64 `json:"totalContributed"`
	TotalDonated     uint64 `json:"totalDonated"`
	TotalTipped      uint64 `json:"totalTipped"`
	RewardPoints     uint64 `json:"rewardPoints"`
	DonationCount    uint64 `json:"donationCount"`
	TipCountSent     uint64 `json:"tipCountSent"`
}

type Leaderboard struct {
	TopDonors   []LeaderboardEntry `json:"topDonors"`
	TopEarners  []LeaderboardEntry `json:"topEarners"`
	MostActive  []LeaderboardEntry `json:"mostActive"`
	TotalUsers  int                `json:"totalUsers"`
	ActiveUsers int                `json:"activeUsers"`
	TotalVolume uint64             `json:"totalVolume"`
}

type PlatformStats struct {
	TotalUsers         int64  `json:"totalUsers"`
	TotalPools         int64  `json:"totalPools"`
	TotalDonated       uint64 `json:"totalDonated"`
	TotalTipped        uint64 `json:"totalTipped"`
	TotalWithdrawn     uint64 `json:"totalWithdrawn"`
	DonationCount      int64  `json:"donationCount"`
	TipCount           int64  `json:"tipCount"`
	RewardPointsIssued uint64 `json:"rewardPointsIssued"`
}

// Participant returns what is known about an address
func (i *Indexer) Participant(address string) (*Participant, error) {
	ret := &Participant{}
	result := i.db.Where("address = ?", address).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

// Pools returns every indexed pool ordered by name
func (i *Indexer) Pools() ([]Pool, error) {
	var ret []Pool
	if result := i.db.Order("name").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (i *Indexer) usernames() (map[string]string, error) {
	var participants []Participant
	result := i.db.Select("address", "username").
		Where("registered = ?", true).
		Find(&participants)
	if result.Error != nil {
		return nil, result.Error
	}
	ret := make(map[string]string, len(participants))
	for _, p := range participants {
		ret[p.Address] = p.Username
	}
	return ret, nil
}

// Activity returns the most recent donations and tips, newest first
func (i *Indexer) Activity(limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	var donations []Donation
	if result := i.db.Order("timestamp desc, id desc").Limit(limit).Find(&donations); result.Error != nil {
		return nil, result.Error
	}
	var tips []Tip
	if result := i.db.Order("timestamp desc, id desc").Limit(limit).Find(&tips); result.Error != nil {
		return nil, result.Error
	}
	names, err := i.usernames()
	if err != nil {
		return nil, err
	}
	ret := make([]Activity, 0, len(donations)+len(tips))
	for _, d := range donations {
		kind := ActivityPoolDonation
		if pool.DonationType(d.DonationType) == pool.DonationTypeMicro {
			kind = ActivityDonation
		}
		ret = append(ret, Activity{
			Kind:      kind,
			User:      d.Donor,
			Username:  names[d.Donor],
			PoolName:  d.PoolName,
			Record:    d.Record,
			Amount:    uint64(d.Amount),
			Timestamp: d.Timestamp,
		})
	}
	for _, t := range tips {
		ret = append(ret, Activity{
			Kind:              ActivityTip,
			User:              t.Sender,
			Username:          names[t.Sender],
			Recipient:         t.Recipient,
			RecipientUsername: names[t.Recipient],
			Message:           t.Message,
			Record:            t.Record,
			Amount:            uint64(t.Amount),
			Timestamp:         t.Timestamp,
		})
	}
	slices.SortStableFunc(ret, func(a, b Activity) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
	if len(ret) > limit {
		ret = ret[:limit]
	}
	return ret, nil
}

// Leaderboard ranks registered participants by contribution, reward points,
// and activity
func (i *Indexer) Leaderboard(limit int) (*Leaderboard, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	var participants []Participant
	if result := i.db.Where("registered = ?", true).Order("id").Find(&participants); result.Error != nil {
		return nil, result.Error
	}
	ret := &Leaderboard{TotalUsers: len(participants)}
	entries := make([]LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entry := LeaderboardEntry{
			Address:          p.Address,
			Username:         p.Username,
			DisplayName:      p.DisplayName,
			TotalContributed: p.TotalContributed(),
			TotalDonated:     uint64(p.TotalDonated),
			TotalTipped:      uint64(p.TotalTipped),
			RewardPoints:     p.RewardPoints,
			DonationCount:    p.DonationCount,
			TipCountSent:     p.TipCountSent,
		}
		if entry.TotalContributed > 0 {
			ret.ActiveUsers++
		}
		ret.TotalVolume = saturatingAdd(ret.TotalVolume, entry.TotalContributed)
		entries = append(entries, entry)
	}
	ret.TopDonors = topEntries(entries, limit, func(e LeaderboardEntry) uint64 {
		return e.TotalContributed
	}, true)
	ret.TopEarners = topEntries(entries, limit, func(e LeaderboardEntry) uint64 {
		return e.RewardPoints
	}, false)
	ret.MostActive = topEntries(entries, limit, func(e LeaderboardEntry) uint64 {
		return saturatingAdd(e.DonationCount, e.TipCountSent)
	}, false)
	return ret, nil
}

func topEntries(
	entries []LeaderboardEntry,
	limit int,
	key func(LeaderboardEntry) uint64,
	nonZero bool,
) []LeaderboardEntry {
	ret := make([]LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if nonZero && key(e) == 0 {
			continue
		}
		ret = append(ret, e)
	}
	slices.SortStableFunc(ret, func(a, b LeaderboardEntry) int {
		return cmp.Compare(key(b), key(a))
	})
	if len(ret) > limit {
		ret = ret[:limit]
	}
	return ret
}

// Stats returns platform-wide totals
func (i *Indexer) Stats() (*PlatformStats, error) {
	ret := &PlatformStats{}
	if err := i.db.Model(&Participant{}).Where("registered = ?", true).Count(&ret.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := i.db.Model(&Pool{}).Count(&ret.TotalPools).Error; err != nil {
		return nil, err
	}
	if err := i.db.Model(&Donation{}).Count(&ret.DonationCount).Error; err != nil {
		return nil, err
	}
	if err := i.db.Model(&Tip{}).Count(&ret.TipCount).Error; err != nil {
		return nil, err
	}
	// Amounts are stored as text, so they are summed here rather than in SQL
	var participants []Participant
	if err := i.db.Find(&participants).Error; err != nil {
		return nil, err
	}
	for _, p := range participants {
		ret.TotalDonated = saturatingAdd(ret.TotalDonated, uint64(p.TotalDonated))
		ret.TotalTipped = saturatingAdd(ret.TotalTipped, uint64(p.TotalTipped))
		ret.RewardPointsIssued = saturatingAdd(ret.RewardPointsIssued, p.RewardPoints)
	}
	var withdrawals []Withdrawal
	if err := i.db.Select("amount").Find(&withdrawals).Error; err != nil {
		return nil, err
	}
	for _, w := range withdrawals {
		ret.TotalWithdrawn = saturatingAdd(ret.TotalWithdrawn, uint64(w.Amount))
	}
	return ret, nil
}
