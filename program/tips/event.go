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
	"github.com/blinklabs-io/umanity/event"
	"github.com/blinklabs-io/umanity/ledger"
)

const (
	UserRegisteredEventType event.EventType = "tips.user_registered"
	TipSentEventType        event.EventType = "tips.tip_sent"
	ProfileUpdatedEventType event.EventType = "tips.profile_updated"
)

type UserRegisteredEvent struct {
	User        ledger.Address
	Profile     ledger.Address
	Username    string
	DisplayName string
	Timestamp   int64
}

type TipSentEvent struct {
	Sender    ledger.Address
	Recipient ledger.Address
	Record    ledger.Address
	Amount    uint64
	Message   string
	Timestamp int64
}

// ProfileUpdatedEvent carries the editable profile fields after a change
type ProfileUpdatedEvent struct {
	User        ledger.Address
	DisplayName string
	Bio         string
	IsActive    bool
	Timestamp   int64
}
