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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/umanity/api"
	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/pool"
)

func poolCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Donation pool operations",
	}
	cmd.AddCommand(poolCreateCommand())
	cmd.AddCommand(poolOneTapCommand())
	cmd.AddCommand(poolDonateCommand())
	cmd.AddCommand(poolWithdrawCommand())
	cmd.AddCommand(poolUpdateCommand())
	cmd.AddCommand(poolStatusCommand())
	cmd.AddCommand(poolShowCommand())
	cmd.AddCommand(poolHistoryCommand())
	return cmd
}

func poolAddress(name string) (ledger.Address, error) {
	addr, _, err := pool.PoolAddress(name)
	return addr, err
}

func poolCreateCommand() *cobra.Command {
	var description, emoji, poolType string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a donation pool owned by the signing key",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			pt, ok := pool.ParsePoolType(poolType)
			if !ok {
				return fmt.Errorf("unknown pool type %q", poolType)
			}
			authority, err := a.signer(cmd)
			if err != nil {
				return err
			}
			ix, err := pool.InitializePool(
				authority.Address(),
				args[0],
				description,
				emoji,
				pt,
			)
			return a.submit(cmd.Context(), ix, err, authority)
		}),
	}
	cmd.Flags().StringVar(&description, "description", "", "pool description")
	cmd.Flags().StringVar(&emoji, "emoji", "", "pool emoji")
	cmd.Flags().StringVar(&poolType, "type", "emergency", "pool type: medical, education, or emergency")
	return cmd
}

func poolOneTapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "one-tap <name>",
		Short: fmt.Sprintf("Donate the fixed one-tap amount (%d)", pool.OneTapAmount),
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			donor, err := a.signer(cmd)
			if err != nil {
				return err
			}
			poolAddr, err := poolAddress(args[0])
			if err != nil {
				return err
			}
			ix, err := pool.OneTapDonate(poolAddr, donor.Address())
			return a.submit(cmd.Context(), ix, err, donor)
		}),
	}
}

func poolDonateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "donate <name> <amount>",
		Short: "Donate a custom amount to a pool",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			donor, err := a.signer(cmd)
			if err != nil {
				return err
			}
			poolAddr, err := poolAddress(args[0])
			if err != nil {
				return err
			}
			ix, err := pool.DonateToPool(poolAddr, donor.Address(), amount)
			return a.submit(cmd.Context(), ix, err, donor)
		}),
	}
}

func poolWithdrawCommand() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "withdraw <name> <amount>",
		Short: "Withdraw from a pool vault (pool authority only)",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			authority, err := a.signer(cmd)
			if err != nil {
				return err
			}
			recipient := authority.Address()
			if to != "" {
				if recipient, err = a.resolve(to); err != nil {
					return err
				}
			}
			poolAddr, err := poolAddress(args[0])
			if err != nil {
				return err
			}
			ix, err := pool.WithdrawFromPool(
				poolAddr,
				authority.Address(),
				recipient,
				amount,
			)
			return a.submit(cmd.Context(), ix, err, authority)
		}),
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient address, key, or username (default: the authority)")
	return cmd
}

func poolUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Change a pool's description or emoji (pool authority only)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			var description, emoji *string
			if cmd.Flags().Changed("description") {
				v, _ := cmd.Flags().GetString("description")
				description = &v
			}
			if cmd.Flags().Changed("emoji") {
				v, _ := cmd.Flags().GetString("emoji")
				emoji = &v
			}
			authority, err := a.signer(cmd)
			if err != nil {
				return err
			}
			poolAddr, err := poolAddress(args[0])
			if err != nil {
				return err
			}
			ix, err := pool.UpdatePool(poolAddr, authority.Address(), description, emoji)
			return a.submit(cmd.Context(), ix, err, authority)
		}),
	}
	cmd.Flags().String("description", "", "new description")
	cmd.Flags().String("emoji", "", "new emoji")
	return cmd
}

func poolStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "status <name> <active|inactive>",
		Short:     "Mark a pool active or inactive (pool authority only)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"active", "inactive"},
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			var active bool
			switch args[1] {
			case "active":
				active = true
			case "inactive":
				active = false
			default:
				return fmt.Errorf("unknown status %q", args[1])
			}
			authority, err := a.signer(cmd)
			if err != nil {
				return err
			}
			poolAddr, err := poolAddress(args[0])
			if err != nil {
				return err
			}
			ix, err := pool.SetPoolActive(poolAddr, authority.Address(), active)
			return a.submit(cmd.Context(), ix, err, authority)
		}),
	}
}

func poolShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a pool",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(_ *cobra.Command, args []string, a *app) error {
			addr, p, err := pool.GetPoolByName(a.store, args[0])
			if err != nil {
				return err
			}
			vaultBalance, err := pool.VaultBalance(a.store, addr)
			if err != nil {
				return err
			}
			return a.print(api.NewPoolView(addr, p, vaultBalance))
		}),
	}
}

func poolHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <name>",
		Short: "List every donation made to a pool",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(_ *cobra.Command, args []string, a *app) error {
			addr, err := poolAddress(args[0])
			if err != nil {
				return err
			}
			records, err := pool.DonationHistory(a.store, addr)
			if err != nil {
				return err
			}
			ret := make([]api.DonationView, 0, len(records))
			for _, rec := range records {
				ret = append(ret, api.NewDonationView(&rec))
			}
			return a.print(ret)
		}),
	}
}
