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

package keystore

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blinklabs-io/gouroboros/cbor"

	"github.com/blinklabs-io/umanity/ledger"
)

const (
	SigningKeyType      = "Ed25519SigningKey"
	VerificationKeyType = "Ed25519VerificationKey"

	maxKeyFileSize = 1 << 20
)

// keyFileEnvelope is the JSON layout shared by signing and verification key files
type keyFileEnvelope struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CborHex     string `json:"cborHex"`
}

// LoadKeyFile reads a signing key file. Files readable by group or other are
// rejected with ErrInsecureFileMode
func LoadKeyFile(path string) (*ledger.Keypair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file %q: %w", path, err)
	}
	defer f.Close()
	if err := checkOpenFilePermissions(f); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(f, maxKeyFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	kp, err := parseKeyEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file %q: %w", path, err)
	}
	return kp, nil
}

// SaveKeyFile writes a signing key file with owner-only permissions. An
// existing file is never overwritten
func SaveKeyFile(path string, kp *ledger.Keypair, description string) error {
	data, err := encodeKeyEnvelope(
		SigningKeyType,
		description,
		kp.Seed(),
	)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrKeyExists, path)
		}
		return fmt.Errorf("failed to create key file %q: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write key file %q: %w", path, err)
	}
	return f.Close()
}

// SaveVerificationKeyFile writes the public half of a keypair. It carries no
// secret material, so normal file permissions apply
func SaveVerificationKeyFile(path string, kp *ledger.Keypair, description string) error {
	addr := kp.Address()
	data, err := encodeKeyEnvelope(VerificationKeyType, description, addr[:])
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644) //nolint:gosec
}

func encodeKeyEnvelope(keyType, description string, key []byte) ([]byte, error) {
	cborData, err := cbor.Encode(key)
	if err != nil {
		return nil, fmt.Errorf("failed to encode key: %w", err)
	}
	env := keyFileEnvelope{
		Type:        keyType,
		Description: description,
		CborHex:     hex.EncodeToString(cborData),
	}
	ret, err := json.MarshalIndent(env, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(ret, '\n'), nil
}

func parseKeyEnvelope(fileBytes []byte) (*ledger.Keypair, error) {
	var env keyFileEnvelope
	if err := json.Unmarshal(fileBytes, &env); err != nil {
		return nil, fmt.Errorf("could not parse key file envelope: %w", err)
	}
	if env.Type != SigningKeyType {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyType, env.Type)
	}
	cborData, err := hex.DecodeString(env.CborHex)
	if err != nil {
		return nil, fmt.Errorf("could not decode key from hex: %w", err)
	}
	var seed []byte
	if _, err := cbor.Decode(cborData, &seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signing key CBOR: %w", err)
	}
	return ledger.KeypairFromSeed(seed)
}
