// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Distribution metrics
	DistributionsTotal   *prometheus.CounterVec
	DistributionDuration prometheus.Histogram
	TransfersTotal       *prometheus.CounterVec
	TransferLatency      *prometheus.HistogramVec
	BatchDelays          prometheus.Counter
	InFlightTransfers    prometheus.Gauge

	// Gateway metrics
	RequestsRateLimited    prometheus.Counter
	EligibilityStoreErrors *prometheus.CounterVec
	AccountsEnsured        *prometheus.CounterVec
	RefillsTotal           *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Event metrics
	EventsPublished *prometheus.CounterVec

	// Health metrics
	LastSuccessfulDistribution prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_token_faucet"
	}

	return &Metrics{
		// Distribution metrics
		DistributionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "runs_total",
			Help:      "Total number of distributions by result",
		}, []string{"result"}),
		DistributionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "duration_seconds",
			Help:      "Distribution duration in seconds, including inter-batch delays",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		TransfersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "transfers_total",
			Help:      "Total number of token transfers by status and stage",
		}, []string{"status", "stage"}),
		TransferLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "transfer_latency_seconds",
			Help:      "Token transfer latency in seconds, from account resolution to confirmation",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"status"}),
		BatchDelays: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "batch_delays_total",
			Help:      "Total number of inter-batch delays taken",
		}),
		InFlightTransfers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "in_flight_transfers",
			Help:      "Number of transfers currently in progress",
		}),

		// Gateway metrics
		RequestsRateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "rate_limited_total",
			Help:      "Total number of distribution requests rejected by the cooldown",
		}),
		EligibilityStoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eligibility",
			Name:      "store_errors_total",
			Help:      "Total number of eligibility store errors by operation",
		}, []string{"operation"}),
		AccountsEnsured: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "accounts_ensured_total",
			Help:      "Total number of ensure-account attempts by status",
		}, []string{"status"}),
		RefillsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "refills_total",
			Help:      "Total number of mint refills by status",
		}, []string{"status"}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Event metrics
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of distribution events published by status",
		}, []string{"status"}),

		// Health metrics
		LastSuccessfulDistribution: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_distribution_timestamp",
			Help:      "Unix timestamp of last distribution that completed orchestration",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDistribution records a finished distribution.
func RecordDistribution(overallSuccess bool, d time.Duration) {
	result := "completed"
	if !overallSuccess {
		result = "failed"
	} else {
		DefaultMetrics.LastSuccessfulDistribution.SetToCurrentTime()
	}
	DefaultMetrics.DistributionsTotal.WithLabelValues(result).Inc()
	DefaultMetrics.DistributionDuration.Observe(d.Seconds())
}

// RecordTransfer records a settled transfer attempt.
func RecordTransfer(status, stage string, d time.Duration) {
	DefaultMetrics.TransfersTotal.WithLabelValues(status, stage).Inc()
	DefaultMetrics.TransferLatency.WithLabelValues(status).Observe(d.Seconds())
}

// TransferStarted increments the in-flight gauge and returns a func that decrements it.
func TransferStarted() func() {
	DefaultMetrics.InFlightTransfers.Inc()
	return DefaultMetrics.InFlightTransfers.Dec
}

// RecordBatchDelay increments the inter-batch delay counter.
func RecordBatchDelay() {
	DefaultMetrics.BatchDelays.Inc()
}

// RecordRateLimited increments the rate-limited requests counter.
func RecordRateLimited() {
	DefaultMetrics.RequestsRateLimited.Inc()
}

// RecordEligibilityError records an eligibility store failure.
func RecordEligibilityError(operation string) {
	DefaultMetrics.EligibilityStoreErrors.WithLabelValues(operation).Inc()
}

// RecordAccountEnsured records an ensure-account attempt.
func RecordAccountEnsured(ok bool) {
	DefaultMetrics.AccountsEnsured.WithLabelValues(statusLabel(ok)).Inc()
}

// RecordRefill records a mint refill attempt.
func RecordRefill(ok bool) {
	DefaultMetrics.RefillsTotal.WithLabelValues(statusLabel(ok)).Inc()
}

// RecordRPCCall records RPC call latency and failures.
// Matches the observer signature accepted by the Solana HTTP client.
func RecordRPCCall(method string, d time.Duration, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(d.Seconds())
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordEventPublished records a distribution event publish attempt.
func RecordEventPublished(ok bool) {
	DefaultMetrics.EventsPublished.WithLabelValues(statusLabel(ok)).Inc()
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
