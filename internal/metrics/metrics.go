package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счетчики наблюдаемости ядра. Деградация парсинга и отказы гейта - не
// ошибки для пользователя, поэтому наружу они видны только здесь.
var (
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_turns_total",
		Help: "Completed turns by outcome (ok, refused, degraded, failed).",
	}, []string{"outcome"})

	GateRefusalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_gate_refusals_total",
		Help: "Gate refusals by reason.",
	}, []string{"reason"})

	ParseDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "companion_parse_degraded_total",
		Help: "Generator replies that failed structured parsing and were recovered best-effort.",
	})

	ParseRepairedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "companion_parse_repaired_total",
		Help: "Generator replies parsed only after textual repair.",
	})

	GenerationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "companion_generation_failures_total",
		Help: "External generation calls that failed or timed out.",
	})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "companion_generation_duration_seconds",
		Help:    "Latency of external generation calls.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
	})

	CommitConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "companion_commit_conflicts_total",
		Help: "Optimistic state commits retried due to version conflicts.",
	})
)
