package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EntriesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_entries_ingested_total",
			Help: "Total number of audit entries ingested",
		},
		[]string{"result"},
	)

	EntriesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_entries_rejected_total",
			Help: "Total number of audit entries rejected before buffering",
		},
		[]string{"reason"},
	)

	BlocksSealed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_blocks_sealed_total",
			Help: "Total number of blocks sealed",
		},
		[]string{"trigger"},
	)

	SealDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "veritas_seal_duration_seconds",
			Help:    "Time taken to seal a block, including signing",
			Buckets: prometheus.DefBuckets,
		},
	)

	SigningRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "veritas_signing_retries_total",
			Help: "Total number of signing attempts that had to be retried",
		},
	)

	IntegrityViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_integrity_violations_total",
			Help: "Total number of integrity violations detected by the validator",
		},
		[]string{"kind"},
	)

	ChainValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_chain_validations_total",
			Help: "Total number of full-chain validation runs",
		},
		[]string{"outcome"},
	)

	PendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "veritas_pending_entries",
			Help: "Current depth of the pending entry buffer",
		},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "veritas_persist_failures_total",
			Help: "Total number of failed block persistence attempts",
		},
	)
)
