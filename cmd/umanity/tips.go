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
	"github.com/spf13/cobra"

	"github.com/blinklabs-io/umanity/api"
	"github.com/blinklabs-io/umanity/program/tips"
)

func tipsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tips",
		Short: "Profile and tipping operations",
	}
	cmd.AddCommand(tipsRegisterCommand())
	cmd.AddCommand(tipsSendCommand())
	cmd.AddCommand(tipsUpdateCommand())
	cmd.AddCommand(tipsToggleCommand())
	cmd.AddCommand(tipsShowCommand())
	cmd.AddCommand(tipsHistoryCommand())
	return cmd
}

func tipsRegisterCommand() *cobra.Command {
	var displayName string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Register a profile for the signing key",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			owner, err := a.signer(cmd)
			if err != nil {
				return err
			}
			ix, err := tips.RegisterUser(owner.Address(), args[0], displayName)
			return a.submit(cmd.Context(), ix, err, owner)
		}),
	}
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name")
	return cmd
}

func tipsSendCommand() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "send <recipient> <amount>",
		Short: "Send a tip to a registered user",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			sender, err := a.signer(cmd)
			if err != nil {
				return err
			}
			recipient, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			ix, err := tips.SendTip(sender.Address(), recipient, amount, message)
			return a.submit(cmd.Context(), ix, err, sender)
		}),
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "message to attach")
	return cmd
}

func tipsUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change the display name or bio of the signing key's profile",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			var displayName, bio *string
			if cmd.Flags().Changed("display-name") {
				v, _ := cmd.Flags().GetString("display-name")
				displayName = &v
			}
			if cmd.Flags().Changed("bio") {
				v, _ := cmd.Flags().GetString("bio")
				bio = &v
			}
			owner, err := a.signer(cmd)
			if err != nil {
				return err
			}
			ix, err := tips.UpdateProfile(owner.Address(), displayName, bio)
			return a.submit(cmd.Context(), ix, err, owner)
		}),
	}
	cmd.Flags().String("display-name", "", "new display name")
	cmd.Flags().String("bio", "", "new bio")
	return cmd
}

func tipsToggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Flip the active flag of the signing key's profile",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			owner, err := a.signer(cmd)
			if err != nil {
				return err
			}
			ix, err := tips.ToggleActive(owner.Address())
			return a.submit(cmd.Context(), ix, err, owner)
		}),
	}
}

func tipsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [user]",
		Short: "Show a profile by username, address, or key",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			owner, err := a.target(cmd, args)
			if err != nil {
				return err
			}
			profile, err := tips.GetProfile(a.store, owner)
			if err != nil {
				return err
			}
			return a.print(api.NewProfileView(profile))
		}),
	}
}

func tipsHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history [user]",
		Short: "List every tip sent by a user",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			sender, err := a.target(cmd, args)
			if err != nil {
				return err
			}
			records, err := tips.SentTips(a.store, sender)
			if err != nil {
				return err
			}
			ret := make([]api.TipView, 0, len(records))
			for _, rec := range records {
				ret = append(ret, api.NewTipView(&rec))
			}
			return a.print(ret)
		}),
	}
}
