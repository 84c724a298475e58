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

// Package keystore manages the ed25519 identities used to sign ledger
// transactions. Keys live as JSON envelope files in a single directory
package keystore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/blinklabs-io/umanity/ledger"
)

const (
	SigningKeySuffix      = ".skey"
	VerificationKeySuffix = ".vkey"
)

var (
	ErrKeyNotFound      = errors.New("key not found")
	ErrKeyExists        = errors.New("key already exists")
	ErrInvalidKeyName   = errors.New("invalid key name")
	ErrUnknownKeyType   = errors.New("unknown key type")
	ErrInsecureFileMode = errors.New("insecure file permissions")
)

var keyNameRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// KeyStoreConfig holds configuration for the KeyStore.
type KeyStoreConfig struct {
	// Dir holds one <name>.skey and <name>.vkey pair per identity
	Dir    string
	Logger *slog.Logger
}

// KeyStore loads and generates named signing keys
type KeyStore struct {
	config KeyStoreConfig
	logger *slog.Logger
	keys   map[string]*ledger.Keypair
	mu     sync.Mutex
}

// NewKeyStore creates a new KeyStore with the given configuration.
func NewKeyStore(config KeyStoreConfig) *KeyStore {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &KeyStore{
		config: config,
		logger: logger,
		keys:   make(map[string]*ledger.Keypair),
	}
}

// Path returns the signing key file path for name
func (ks *KeyStore) Path(name string) string {
	return filepath.Join(ks.config.Dir, name+SigningKeySuffix)
}

func validateName(name string) error {
	if !keyNameRegexp.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidKeyName, name)
	}
	return nil
}

// Generate creates a new identity and writes its key files
func (ks *KeyStore) Generate(name string) (*ledger.Keypair, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if err := os.MkdirAll(ks.config.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key dir: %w", err)
	}
	kp, err := ledger.NewKeypair()
	if err != nil {
		return nil, err
	}
	if err := SaveKeyFile(ks.Path(name), kp, name+" signing key"); err != nil {
		return nil, err
	}
	vkeyPath := filepath.Join(ks.config.Dir, name+VerificationKeySuffix)
	if err := SaveVerificationKeyFile(vkeyPath, kp, name+" verification key"); err != nil {
		return nil, err
	}
	ks.keys[name] = kp
	ks.logger.Info(
		"generated key",
		"component", "keystore",
		"name", name,
		"address", kp.Address().String(),
	)
	return kp, nil
}

// Load returns the identity stored under name
func (ks *KeyStore) Load(name string) (*ledger.Keypair, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if kp, ok := ks.keys[name]; ok {
		return kp, nil
	}
	kp, err := LoadKeyFile(ks.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
		}
		return nil, err
	}
	ks.keys[name] = kp
	return kp, nil
}

// LoadOrGenerate returns the identity stored under name, creating it first
// if needed
func (ks *KeyStore) LoadOrGenerate(name string) (*ledger.Keypair, error) {
	kp, err := ks.Load(name)
	if err == nil {
		return kp, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}
	return ks.Generate(name)
}

// List returns the names of all stored signing keys in sorted order
func (ks *KeyStore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.config.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ret []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(entry.Name(), SigningKeySuffix)
		if !ok || validateName(name) != nil {
			continue
		}
		ret = append(ret, name)
	}
	slices.Sort(ret)
	return ret, nil
}
