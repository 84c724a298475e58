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

package ledger

import (
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
)

const (
	recordKeyPrefix    = "r"
	processedKeyPrefix = "x"
	clockKey           = "clock"
)

// Record is the unit of ledger state. Every record has a native balance and
// an owner; program-owned records additionally carry a fixed-size data area
// whose layout is defined by the owning program.
type Record struct {
	cbor.StructAsArray
	Owner   Address
	Balance uint64
	Space   uint32
	Data    []byte
}

// Reader provides read access to committed (or in-flight) records
type Reader interface {
	Get(addr Address) (*Record, error)
}

func recordKey(addr Address) []byte {
	ret := make([]byte, 0, len(recordKeyPrefix)+AddressLength)
	ret = append(ret, recordKeyPrefix...)
	return append(ret, addr[:]...)
}

func processedKey(id TxID) []byte {
	ret := make([]byte, 0, len(processedKeyPrefix)+len(id))
	ret = append(ret, processedKeyPrefix...)
	return append(ret, id[:]...)
}

func encodeRecord(rec *Record) ([]byte, error) {
	ret, err := cbor.Encode(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return ret, nil
}

func decodeRecord(data []byte) (*Record, error) {
	ret := &Record{}
	if _, err := cbor.Decode(data, ret); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return ret, nil
}
