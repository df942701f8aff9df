package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessed tracks records that completed the pipeline per task
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_records_processed_total",
			Help: "Total number of records that completed the pipeline",
		},
		[]string{"pipeline"},
	)

	// RecordsDropped tracks records dropped after a tolerated failure
	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_records_dropped_total",
			Help: "Total number of records dropped after a tolerated failure",
		},
		[]string{"pipeline", "stage"},
	)

	// OperationFailures tracks failed operations per task and stage
	OperationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_operation_failures_total",
			Help: "Total number of failed pipeline operations",
		},
		[]string{"pipeline", "stage"},
	)

	// RetryAttempts tracks extra attempts spent in the retry loop
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_retry_attempts_total",
			Help: "Total number of retry attempts beyond the first try",
		},
		[]string{"pipeline", "stage"},
	)

	// DeadLetters tracks records handed to dead-letter sinks
	DeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_dead_letters_total",
			Help: "Total number of records written to dead-letter sinks",
		},
		[]string{"pipeline"},
	)

	// FatalErrors tracks fatal escalations that stopped a task
	FatalErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_fatal_errors_total",
			Help: "Total number of fatal escalations",
		},
		[]string{"pipeline"},
	)

	// ProcessingLatency tracks per-record pipeline latency
	ProcessingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conveyor_record_processing_seconds",
			Help:    "Per-record pipeline processing latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pipeline"},
	)
)
