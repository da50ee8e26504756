package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciliation
	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_reconcile_runs_total",
			Help: "Reconciliation passes by path (verified, naive, fallback)",
		},
		[]string{"path"},
	)

	ReconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parking_reconcile_duration_seconds",
			Help:    "Duration of reconciliation passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	ReconcileErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_reconcile_errors_total",
			Help: "Reconciliation passes that reported an error",
		},
		[]string{"path"},
	)

	SessionsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parking_sessions",
			Help: "Sessions in the current snapshot by status",
		},
		[]string{"status"},
	)

	// Refresh
	RefreshSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parking_refresh_skipped_total",
			Help: "Refresh requests dropped because a pass was in flight",
		},
	)

	RefreshTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_refresh_triggers_total",
			Help: "Refresh requests by source (ticker, trigger, event)",
		},
		[]string{"source"},
	)

	// Gate backend
	GateRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parking_gate_request_duration_seconds",
			Help:    "Duration of gate backend requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "result"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_cache_lookups_total",
			Help: "Response cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	// Circuit Breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Events
	GateEventsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parking_gate_events_received_total",
			Help: "New-event notifications received from NATS",
		},
	)
)
