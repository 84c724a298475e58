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

import "github.com/blinklabs-io/umanity/program/common"

var (
	ErrInvalidAmount      = common.NewError(6000, common.KindValidation, "invalid amount")
	ErrInsufficientFunds  = common.NewError(6001, common.KindResource, "insufficient funds")
	ErrNameTooLong        = common.NewError(6002, common.KindValidation, "name too long (max 50 characters)")
	ErrDescriptionTooLong = common.NewError(6003, common.KindValidation, "description too long (max 200 characters)")
	ErrEmojiTooLong       = common.NewError(6004, common.KindValidation, "emoji too long (max 10 characters)")
	ErrNameRequired       = common.NewError(6005, common.KindValidation, "pool name is required")
	ErrUnknownInstruction = common.NewError(6006, common.KindValidation, "unknown pool instruction")
)
