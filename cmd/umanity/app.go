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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/blinklabs-io/umanity/event"
	"github.com/blinklabs-io/umanity/indexer"
	"github.com/blinklabs-io/umanity/internal/config"
	"github.com/blinklabs-io/umanity/internal/tracing"
	"github.com/blinklabs-io/umanity/keystore"
	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/pool"
	"github.com/blinklabs-io/umanity/program/tips"
)

var errIndexerDisabled = errors.New("activity index is disabled in config")

// app holds everything a command needs to talk to the local ledger
type app struct {
	cfg             *config.Config
	logger          *slog.Logger
	out             io.Writer
	promRegistry    *prometheus.Registry
	store           *ledger.Store
	eventBus        *event.EventBus
	runtime         *ledger.Runtime
	indexer         *indexer.Indexer
	keys            *keystore.KeyStore
	shutdownTracing func(context.Context) error
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("no config found in context")
	}
	logger := commonRun()
	a := &app{
		cfg:          cfg,
		logger:       logger,
		out:          cmd.OutOrStdout(),
		promRegistry: prometheus.NewRegistry(),
		keys: keystore.NewKeyStore(keystore.KeyStoreConfig{
			Dir:    cfg.KeyPath(),
			Logger: logger,
		}),
	}
	a.promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.Tracing {
		tracingCfg := tracing.Config{Endpoint: cfg.TracingEndpoint}
		if cfg.TracingStdout {
			tracingCfg.Writer = os.Stderr
		}
		shutdown, err := tracing.Setup(cmd.Context(), tracingCfg)
		if err != nil {
			return nil, err
		}
		a.shutdownTracing = shutdown
	}
	store, err := ledger.NewStore(
		ledger.WithLogger(logger),
		ledger.WithDataDir(cfg.LedgerPath()),
		ledger.WithValueLogFileSize(cfg.ValueLogFileSize),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.eventBus = event.NewEventBus(a.promRegistry, logger)
	if cfg.Indexer {
		idx, err := indexer.New(
			indexer.WithLogger(logger),
			indexer.WithDataDir(cfg.LedgerPath()),
		)
		if err != nil {
			a.Close()
			return nil, err
		}
		idx.Start(a.eventBus)
		a.indexer = idx
	}
	a.runtime = ledger.NewRuntime(
		store,
		ledger.WithRuntimeLogger(logger),
		ledger.WithEventBus(a.eventBus),
		ledger.WithPromRegistry(a.promRegistry),
		ledger.WithMaxConflictRetries(cfg.MaxConflictRetries),
	)
	a.runtime.Register(pool.New())
	a.runtime.Register(tips.New())
	return a, nil
}

// Close drains pending events into the index before closing storage
func (a *app) Close() {
	if a.eventBus != nil {
		a.eventBus.Stop()
	}
	if a.indexer != nil {
		if err := a.indexer.Close(); err != nil {
			a.logger.Error(
				fmt.Sprintf("failed to close indexer: %s", err),
				"component", programName,
			)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error(
				fmt.Sprintf("failed to close ledger store: %s", err),
				"component", programName,
			)
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(context.Background()); err != nil {
			a.logger.Error(
				fmt.Sprintf("failed to flush traces: %s", err),
				"component", programName,
			)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSON(cmd *cobra.Command, v any) error {
	return writeJSON(cmd.OutOrStdout(), v)
}

func (a *app) print(v any) error {
	return writeJSON(a.out, v)
}

// signer loads the signing key selected by --key, or the configured default
func (a *app) signer(cmd *cobra.Command) (*ledger.Keypair, error) {
	name, _ := cmd.Flags().GetString("key")
	if name == "" {
		name = a.cfg.DefaultKey
	}
	return a.keys.Load(name)
}

// resolve turns an address, key name, or registered username into an address
func (a *app) resolve(target string) (ledger.Address, error) {
	if addr, err := ledger.ParseAddress(target); err == nil {
		return addr, nil
	}
	if kp, err := a.keys.Load(target); err == nil {
		return kp.Address(), nil
	}
	if tips.ValidUsername(target) {
		if addr, err := tips.LookupUsername(a.store, target); err == nil {
			return addr, nil
		}
	}
	return ledger.Address{}, fmt.Errorf("cannot resolve %q to an address", target)
}

// target resolves the optional first argument, defaulting to the signer
func (a *app) target(cmd *cobra.Command, args []string) (ledger.Address, error) {
	if len(args) > 0 {
		return a.resolve(args[0])
	}
	kp, err := a.signer(cmd)
	if err != nil {
		return ledger.Address{}, err
	}
	return kp.Address(), nil
}

func (a *app) submit(
	ctx context.Context,
	ix ledger.Instruction,
	ixErr error,
	signers ...*ledger.Keypair,
) error {
	if ixErr != nil {
		return ixErr
	}
	tx, err := ledger.NewTransaction(ix, signers...)
	if err != nil {
		return err
	}
	receipt, err := a.runtime.Submit(ctx, tx)
	if err != nil {
		return err
	}
	events := make([]string, 0, len(receipt.Events))
	for _, evt := range receipt.Events {
		events = append(events, string(evt.Type))
	}
	return a.print(map[string]any{
		"txId":      receipt.ID.String(),
		"timestamp": receipt.Timestamp,
		"events":    events,
	})
}

func (a *app) requireIndexer() error {
	if a.indexer == nil {
		return errIndexerDisabled
	}
	return nil
}

func parseAmount(s string) (uint64, error) {
	amount, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

// withApp adapts a command body that needs an open app into cobra's RunE
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}
