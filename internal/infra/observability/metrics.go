// Package observability exposes Prometheus metrics for the sync engine
// and the read endpoint. Registered via promauto; served at /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Sync Pass Metrics ──────────────────────────────────────────────────────

// SyncPasses counts completed sync passes.
var SyncPasses = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "haruchi",
	Subsystem: "sync",
	Name:      "passes_total",
	Help:      "Total sync passes completed.",
})

// SyncPassDuration tracks wall time per pass.
var SyncPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "haruchi",
	Subsystem: "sync",
	Name:      "pass_duration_seconds",
	Help:      "Sync pass duration in seconds.",
	Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
})

// RecordsGranted counts successful XP grants by source.
var RecordsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "haruchi",
	Subsystem: "sync",
	Name:      "records_granted_total",
	Help:      "Total records granted XP, by source.",
}, []string{"source"})

// XPGranted accumulates XP written to the ledger.
var XPGranted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "haruchi",
	Subsystem: "sync",
	Name:      "xp_granted_total",
	Help:      "Total XP amount granted.",
})

// ─── Store Error Metrics ────────────────────────────────────────────────────

// StoreQueryErrors counts failed store queries by source.
var StoreQueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "haruchi",
	Subsystem: "store",
	Name:      "query_errors_total",
	Help:      "Total failed store queries, by source.",
}, []string{"source"})

// StoreWriteErrors counts failed ledger creates and flag updates by source.
var StoreWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "haruchi",
	Subsystem: "store",
	Name:      "write_errors_total",
	Help:      "Total failed store writes, by source.",
}, []string{"source"})

// ─── Read Path Metrics ──────────────────────────────────────────────────────

// GameRequests counts read-endpoint requests by outcome.
var GameRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "haruchi",
	Subsystem: "api",
	Name:      "game_requests_total",
	Help:      "Total /api/game requests, by outcome.",
}, []string{"outcome"})
