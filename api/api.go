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

// Package api serves a read-only JSON view of the ledger and its activity
// index over HTTP
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blinklabs-io/umanity/indexer"
	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/pool"
	"github.com/blinklabs-io/umanity/program/tips"
)

const maxListLimit = 100

// Ledger is the read access the API needs to committed ledger state
type Ledger interface {
	ledger.Reader
	Balance(ledger.Address) (uint64, error)
}

type Config struct {
	Ledger Ledger
	// Indexer is optional. Index-backed endpoints answer 503 without it
	Indexer *indexer.Indexer
	Logger  *slog.Logger
	// Gatherer backs /metrics when set
	Gatherer prometheus.Gatherer
}

type Server struct {
	config     Config
	logger     *slog.Logger
	httpServer *http.Server
}

func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Server{
		config: config,
		logger: logger,
	}
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Get("/v1/healthz", s.health)
	r.Get("/v1/stats", s.stats)
	r.Get("/v1/leaderboard", s.leaderboard)
	r.Get("/v1/activity", s.activity)
	r.Route("/v1/pools", func(r chi.Router) {
		r.Get("/", s.listPools)
		r.Get("/{name}", s.getPool)
		r.Get("/{name}/donations", s.poolDonations)
	})
	r.Route("/v1/users", func(r chi.Router) {
		r.Get("/{username}", s.getUser)
		r.Get("/{username}/tips", s.userTips)
	})
	r.Get("/v1/accounts/{address}", s.getAccount)
	if s.config.Gatherer != nil {
		r.Handle(
			"/metrics",
			promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}),
		)
	}
	return r
}

// Start listens on addr and serves until Shutdown is called
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.logger.Info(
		"serving API on "+listener.Addr().String(),
		"component", "api",
	)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				fmt.Sprintf("API listener failed: %s", err),
				"component", "api",
			)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) error(w http.ResponseWriter, code int, msg string) {
	s.json(w, code, map[string]string{"error": msg})
}

// ledgerError maps a ledger read failure onto a response
func (s *Server) ledgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, tips.ErrProfileNotFound):
		s.error(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error(
			fmt.Sprintf("ledger read failed: %s", err),
			"component", "api",
		)
		s.error(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) requireIndexer(w http.ResponseWriter) bool {
	if s.config.Indexer == nil {
		s.error(w, http.StatusServiceUnavailable, "activity index disabled")
		return false
	}
	return true
}

func (s *Server) indexError(w http.ResponseWriter, err error) {
	s.logger.Error(
		fmt.Sprintf("index query failed: %s", err),
		"component", "api",
	)
	s.error(w, http.StatusInternalServerError, "internal error")
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit: %q", raw)
	}
	return min(limit, maxListLimit), nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	if !s.requireIndexer(w) {
		return
	}
	stats, err := s.config.Indexer.Stats()
	if err != nil {
		s.indexError(w, err)
		return
	}
	s.json(w, http.StatusOK, stats)
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	if !s.requireIndexer(w) {
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		s.error(w, http.StatusBadRequest, err.Error())
		return
	}
	board, err := s.config.Indexer.Leaderboard(limit)
	if err != nil {
		s.indexError(w, err)
		return
	}
	s.json(w, http.StatusOK, board)
}

func (s *Server) activity(w http.ResponseWriter, r *http.Request) {
	if !s.requireIndexer(w) {
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		s.error(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.config.Indexer.Activity(limit)
	if err != nil {
		s.indexError(w, err)
		return
	}
	s.json(w, http.StatusOK, map[string]any{"activities": items})
}

func (s *Server) listPools(w http.ResponseWriter, _ *http.Request) {
	if !s.requireIndexer(w) {
		return
	}
	pools, err := s.config.Indexer.Pools()
	if err != nil {
		s.indexError(w, err)
		return
	}
	ret := make([]PoolSummary, 0, len(pools))
	for _, p := range pools {
		ret = append(ret, NewPoolSummary(&p))
	}
	s.json(w, http.StatusOK, map[string]any{"pools": ret})
}

func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	addr, p, err := pool.GetPoolByName(s.config.Ledger, chi.URLParam(r, "name"))
	if err != nil {
		s.ledgerError(w, err)
		return
	}
	vaultBalance, err := pool.VaultBalance(s.config.Ledger, addr)
	if err != nil {
		s.ledgerError(w, err)
		return
	}
	s.json(w, http.StatusOK, NewPoolView(addr, p, vaultBalance))
}

func (s *Server) poolDonations(w http.ResponseWriter, r *http.Request) {
	addr, _, err := pool.GetPoolByName(s.config.Ledger, chi.URLParam(r, "name"))
	if err != nil {
		s.ledgerError(w, err)
		return
	}
	records, err := pool.DonationHistory(s.config.Ledger, addr)
	if err != nil {
		s.ledgerError(w, err)
		return
	}
	ret := make([]DonationView, 0, len(records))
	for _, rec := range records {
		ret = append(ret, NewDonationView(&rec))
	}
	s.json(w, http.StatusOK, map[string]any{"donations": ret})
}

func (s *Server) lookupUser(r *http.Request) (ledger.Address, error) {
	return tips.LookupUsername(s.config.Ledger, chi.URLParam(r, "username"))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	owner, err := s.lookupUser(r)
	if err != nil {
		s.ledgerError(w, err)
		return
	}
	profile, err := tips.GetProfile(s.config.Ledger, owner)
	if err != nil {
		s.ledgerError(w, err)
		return
	}
	s.json(w, http.StatusOK, NewProfileView(profile))
}

func (s *Server) userTips(w http.ResponseWriter, r *http.Request) {
	owner, err := s.lookupUser(r)
	if err != nil {
		s.ledgerError(w, err)
		return
	}
	records, err := tips.SentTips(s.config.Ledger, owner)
	if err != nil {
		s.ledgerError(w, err)
		return
	}
	ret := make([]TipView, 0, len(records))
	for _, rec := range records {
		ret = append(ret, NewTipView(&rec))
	}
	s.json(w, http.StatusOK, map[string]any{"tips": ret})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.error(w, http.StatusBadRequest, err.Error())
		return
	}
	balance, err := s.config.Ledger.Balance(addr)
	if err != nil {
		s.ledgerError(w, err)
		return
	}
	s.json(w, http.StatusOK, map[string]any{
		"address": addr,
		"balance": balance,
	})
}
