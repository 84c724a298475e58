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

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/umanity/internal/config"
	"github.com/blinklabs-io/umanity/keystore"
)

var errFaucetDisabled = errors.New("airdrop is only available in dev run mode")

func keyStore(cmd *cobra.Command) (*keystore.KeyStore, *config.Config, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, nil, errors.New("no config found in context")
	}
	return keystore.NewKeyStore(keystore.KeyStoreConfig{
		Dir:    cfg.KeyPath(),
		Logger: commonRun(),
	}), cfg, nil
}

func keyName(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.DefaultKey
}

func keygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen [name]",
		Short: "Generate a new signing key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, cfg, err := keyStore(cmd)
			if err != nil {
				return err
			}
			name := keyName(cfg, args)
			kp, err := ks.Generate(name)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"name":    name,
				"address": kp.Address().String(),
				"path":    ks.Path(name),
			})
		},
	}
}

func keysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List stored signing keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ks, _, err := keyStore(cmd)
			if err != nil {
				return err
			}
			names, err := ks.List()
			if err != nil {
				return err
			}
			ret := make([]map[string]string, 0, len(names))
			for _, name := range names {
				kp, err := ks.Load(name)
				if err != nil {
					return err
				}
				ret = append(ret, map[string]string{
					"name":    name,
					"address": kp.Address().String(),
				})
			}
			return printJSON(cmd, ret)
		},
	}
}

func addressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "address [name]",
		Short: "Show the address of a signing key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, cfg, err := keyStore(cmd)
			if err != nil {
				return err
			}
			kp, err := ks.Load(keyName(cfg, args))
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"address": kp.Address().String(),
			})
		},
	}
}

func airdropCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop <amount> [target]",
		Short: "Credit native value to an address (dev mode only)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if !a.cfg.RunMode.IsDevMode() {
				return errFaucetDisabled
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			target, err := a.target(cmd, args[1:])
			if err != nil {
				return err
			}
			if err := a.store.Airdrop(target, amount); err != nil {
				return err
			}
			balance, err := a.store.Balance(target)
			if err != nil {
				return err
			}
			return a.print(map[string]any{
				"address": target,
				"balance": balance,
			})
		}),
	}
}

func balanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [target]",
		Short: "Show the native balance of an address, key, or username",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			target, err := a.target(cmd, args)
			if err != nil {
				return err
			}
			balance, err := a.store.Balance(target)
			if err != nil {
				return err
			}
			return a.print(map[string]any{
				"address": target,
				"balance": balance,
			})
		}),
	}
}
