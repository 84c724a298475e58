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
)

func statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show platform totals from the activity index",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ *cobra.Command, _ []string, a *app) error {
			if err := a.requireIndexer(); err != nil {
				return err
			}
			stats, err := a.indexer.Stats()
			if err != nil {
				return err
			}
			return a.print(stats)
		}),
	}
}

func leaderboardCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank registered users",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ *cobra.Command, _ []string, a *app) error {
			if err := a.requireIndexer(); err != nil {
				return err
			}
			board, err := a.indexer.Leaderboard(limit)
			if err != nil {
				return err
			}
			return a.print(board)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "entries per ranking")
	return cmd
}

func activityCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the most recent donations and tips",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ *cobra.Command, _ []string, a *app) error {
			if err := a.requireIndexer(); err != nil {
				return err
			}
			items, err := a.indexer.Activity(limit)
			if err != nil {
				return err
			}
			return a.print(items)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries")
	return cmd
}
