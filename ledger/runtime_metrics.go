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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type runtimeMetrics struct {
	txTotal    *prometheus.CounterVec
	txDuration *prometheus.HistogramVec
	conflicts  prometheus.Counter
}

func (m *runtimeMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.txTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "umanity_ledger_transactions_total",
			Help: "total transactions submitted, by program and result",
		},
		[]string{"program", "result"},
	)
	m.txDuration = promautoFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "umanity_ledger_transaction_duration_seconds",
			Help:    "time taken to verify, execute, and commit a transaction",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15), // 100us to ~1.6s
		},
		[]string{"program"},
	)
	m.conflicts = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "umanity_ledger_write_conflicts_total",
		Help: "number of transaction attempts re-run after a write conflict",
	})
}

func (m *runtimeMetrics) observe(program string, err error, d time.Duration) {
	result := "committed"
	if err != nil {
		result = "rejected"
	}
	m.txTotal.WithLabelValues(program, result).Inc()
	m.txDuration.WithLabelValues(program).Observe(d.Seconds())
}
