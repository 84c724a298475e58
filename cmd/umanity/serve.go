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
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/umanity/api"
)

const defaultShutdownTimeout = 30 * time.Second

func serveCommand() *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only HTTP API and prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ *cobra.Command, _ []string, a *app) error {
			server := api.New(api.Config{
				Ledger:   a.store,
				Indexer:  a.indexer,
				Logger:   a.logger,
				Gatherer: a.promRegistry,
			})
			if err := server.Start(listenAddr); err != nil {
				return err
			}
			// Wait for interrupt/termination signal
			signalCtx, signalCtxStop := signal.NotifyContext(
				context.Background(),
				syscall.SIGINT,
				syscall.SIGTERM,
			)
			defer signalCtxStop()
			<-signalCtx.Done()
			a.logger.Info(
				"signal received, initiating graceful shutdown",
				"component", programName,
			)
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				defaultShutdownTimeout,
			)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		}),
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8080", "API listen address")
	return cmd
}
