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

import "github.com/blinklabs-io/umanity/program/common"

var (
	ErrInvalidAmount      = common.NewError(6000, common.KindValidation, "invalid amount")
	ErrMessageTooLong     = common.NewError(6001, common.KindValidation, "message too long (max 280 characters)")
	ErrNameTooLong        = common.NewError(6002, common.KindValidation, "name too long (max 50 characters)")
	ErrBioTooLong         = common.NewError(6003, common.KindValidation, "bio too long (max 280 characters)")
	ErrInvalidUsername    = common.NewError(6004, common.KindValidation, "username must be 3-30 characters of a-z, 0-9, or _")
	ErrSelfTip            = common.NewError(6005, common.KindValidation, "cannot tip yourself")
	ErrProfileNotFound    = common.NewError(6006, common.KindValidation, "user profile not registered")
	ErrUnknownInstruction = common.NewError(6007, common.KindValidation, "unknown tips instruction")
)
