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

package common

import (
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
)

// Account data and instruction data both start with a one-byte tag followed
// by the CBOR encoding of the payload

// EncodeAccount serializes an account payload behind its type discriminator
func EncodeAccount(discriminator uint8, v any) ([]byte, error) {
	return encodeTagged(discriminator, v)
}

// DecodeAccount checks the discriminator and deserializes an account payload
func DecodeAccount(data []byte, discriminator uint8, v any) error {
	if len(data) == 0 || data[0] != discriminator {
		return fmt.Errorf("%w: expected discriminator %d", ErrInvalidAccountData, discriminator)
	}
	if _, err := cbor.Decode(data[1:], v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAccountData, err)
	}
	return nil
}

// AccountSpace returns the number of bytes needed to store v behind a
// discriminator. Pass an instance with every variable-length field at its
// maximum to size an allocation
func AccountSpace(v any) int {
	data, err := cbor.Encode(v)
	if err != nil {
		panic(fmt.Sprintf("size account: %s", err))
	}
	return len(data) + 1
}

// EncodeInstruction serializes instruction arguments behind their tag
func EncodeInstruction(tag uint8, args any) ([]byte, error) {
	return encodeTagged(tag, args)
}

// SplitInstruction separates the instruction tag from its encoded arguments
func SplitInstruction(data []byte) (uint8, []byte, error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("%w: empty", ErrInvalidInstruction)
	}
	return data[0], data[1:], nil
}

// DecodeArgs deserializes instruction arguments
func DecodeArgs(data []byte, v any) error {
	if _, err := cbor.Decode(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInstruction, err)
	}
	return nil
}

func encodeTagged(tag uint8, v any) ([]byte, error) {
	data, err := cbor.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	ret := make([]byte, 0, len(data)+1)
	ret = append(ret, tag)
	return append(ret, data...), nil
}
