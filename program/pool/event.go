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
	"github.com/blinklabs-io/umanity/event"
	"github.com/blinklabs-io/umanity/ledger"
)

const (
	PoolInitializedEventType event.EventType = "pool.initialized"
	DonationEventType        event.EventType = "pool.donation"
	WithdrawalEventType      event.EventType = "pool.withdrawal"
	PoolUpdatedEventType     event.EventType = "pool.updated"
)

type PoolInitializedEvent struct {
	Pool      ledger.Address
	Authority ledger.Address
	Name      string
	Emoji     string
	PoolType  PoolType
	Timestamp int64
}

type DonationEvent struct {
	Donor        ledger.Address
	Pool         ledger.Address
	Record       ledger.Address
	PoolName     string
	Amount       uint64
	DonationType DonationType
	Timestamp    int64
}

type WithdrawalEvent struct {
	Pool      ledger.Address
	Authority ledger.Address
	Recipient ledger.Address
	Amount    uint64
	Timestamp int64
}

// PoolUpdatedEvent carries the pool state after an administrative change
type PoolUpdatedEvent struct {
	Pool        ledger.Address
	Description string
	Emoji       string
	IsActive    bool
	Timestamp   int64
}
