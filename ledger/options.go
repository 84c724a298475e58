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

package ledger

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/umanity/event"
	"github.com/prometheus/client_golang/prometheus"
)

type StoreOptionFunc func(*Store)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) StoreOptionFunc {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithDataDir specifies the data directory to use for storage. An empty
// value keeps all records in memory
func WithDataDir(dataDir string) StoreOptionFunc {
	return func(s *Store) {
		s.dataDir = dataDir
	}
}

// WithGc specifies whether value log garbage collection is enabled
func WithGc(enabled bool) StoreOptionFunc {
	return func(s *Store) {
		s.gcEnabled = enabled
	}
}

// WithValueLogFileSize specifies the value log file size in bytes
func WithValueLogFileSize(size int64) StoreOptionFunc {
	return func(s *Store) {
		s.valueLogFileSize = size
	}
}

type RuntimeOptionFunc func(*Runtime)

// WithRuntimeLogger specifies the logger object to use for logging messages
func WithRuntimeLogger(logger *slog.Logger) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithEventBus specifies the event bus that receives events after commit
func WithEventBus(eventBus *event.EventBus) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.eventBus = eventBus
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.promRegistry = registry
	}
}

// WithClock overrides the wall clock used for record timestamps
func WithClock(clock func() time.Time) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.clock = clock
	}
}

// WithMaxConflictRetries specifies how many times a transaction is re-run
// after losing a write conflict before giving up
func WithMaxConflictRetries(retries int) RuntimeOptionFunc {
	return func(r *Runtime) {
		r.maxConflictRetries = retries
	}
}
