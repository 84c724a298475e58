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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "umanity.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultDataDir            = ".umanity"
	DefaultKeyName            = "default"
	DefaultValueLogFileSize   = 64 << 20
	DefaultMaxConflictRetries = 32
)

// RunMode selects how permissive the local ledger is
type RunMode string

const (
	RunModeLocal RunMode = "local" // Persistent ledger, no faucet (default)
	RunModeDev   RunMode = "dev"   // Persistent ledger with the airdrop faucet enabled
)

// Valid returns true if the RunMode is a known valid mode
func (m RunMode) Valid() bool {
	switch m {
	case RunModeLocal, RunModeDev, "":
		return true
	default:
		return false
	}
}

// IsDevMode returns true if the mode enables development behaviors
func (m RunMode) IsDevMode() bool {
	return m == RunModeDev
}

// tempConfig captures an optional top-level config section
type tempConfig struct {
	Config yaml.Node `yaml:"config,omitempty"`
}

type Config struct {
	DataDir            string  `yaml:"dataDir"            split_words:"true"`
	KeyDir             string  `yaml:"keyDir"             split_words:"true"`
	DefaultKey         string  `yaml:"defaultKey"         split_words:"true"`
	RunMode            RunMode `yaml:"runMode"            split_words:"true"`
	TracingEndpoint    string  `yaml:"tracingEndpoint"    split_words:"true"`
	ValueLogFileSize   int64   `yaml:"valueLogFileSize"   split_words:"true"`
	MaxConflictRetries int     `yaml:"maxConflictRetries" split_words:"true"`
	Debug              bool    `yaml:"debug"`
	Tracing            bool    `yaml:"tracing"`
	TracingStdout      bool    `yaml:"tracingStdout"      split_words:"true"`
	// Maintain the sqlite activity index alongside the ledger
	Indexer bool `yaml:"indexer"`
}

// DefaultConfig returns a config populated with package defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir:            DefaultDataDir,
		DefaultKey:         DefaultKeyName,
		RunMode:            RunModeLocal,
		ValueLogFileSize:   DefaultValueLogFileSize,
		MaxConflictRetries: DefaultMaxConflictRetries,
		Indexer:            true,
	}
}

// KeyPath returns the directory holding signing keys
func (c *Config) KeyPath() string {
	if c.KeyDir != "" {
		return c.KeyDir
	}
	return filepath.Join(c.DataDir, "keys")
}

// LedgerPath returns the directory holding ledger and index data
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "data")
}

var (
	globalConfig      = DefaultConfig()
	globalConfigMutex sync.RWMutex
)

// LoadConfig builds the config from defaults, an optional YAML file, and the
// environment, in that order of precedence
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		// Check for config file in this path: ~/.umanity/umanity.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".umanity", "umanity.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		// Try to check for /etc/umanity/umanity.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/umanity/umanity.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if !tempCfg.Config.IsZero() {
			// Decode the section over the defaults so omitted keys keep them
			if err := tempCfg.Config.Decode(cfg); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(buf, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}
	if err := envconfig.Process("umanity", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	globalConfigMutex.Lock()
	globalConfig = cfg
	globalConfigMutex.Unlock()
	return cfg, nil
}

// Validate checks config values and fills in defaults for empty ones
func (c *Config) Validate() error {
	if !c.RunMode.Valid() {
		return fmt.Errorf(
			"invalid runMode: %q (must be 'local' or 'dev')",
			c.RunMode,
		)
	}
	if c.RunMode == "" {
		c.RunMode = RunModeLocal
	}
	if c.DataDir == "" {
		return errors.New("dataDir must not be empty")
	}
	if c.DefaultKey == "" {
		c.DefaultKey = DefaultKeyName
	}
	if c.ValueLogFileSize <= 0 {
		c.ValueLogFileSize = DefaultValueLogFileSize
	}
	if c.MaxConflictRetries <= 0 {
		c.MaxConflictRetries = DefaultMaxConflictRetries
	}
	return nil
}

func GetConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()
	return globalConfig
}
