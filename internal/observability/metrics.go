// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Payment metrics
	PaymentsExecuted prometheus.Counter
	TokensBurned     prometheus.Counter
	TokensPaidNet    prometheus.Counter

	// Staking metrics
	StakesOpened    prometheus.Counter
	RebatesClaimed  prometheus.Counter
	RebatesPaid     prometheus.Counter
	PrincipalStaked prometheus.Counter

	// Operation metrics
	OperationErrors   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Ledger metrics
	TransfersIssued prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wattcoin"
	}

	return &Metrics{
		PaymentsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "payments_executed_total",
			Help:      "Total number of task payments executed",
		}),
		TokensBurned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "tokens_burned_total",
			Help:      "Total tokens routed to the burn vault (minor units)",
		}),
		TokensPaidNet: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "tokens_paid_net_total",
			Help:      "Total net tokens delivered to payees (minor units)",
		}),

		StakesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "stakes_opened_total",
			Help:      "Total number of stakes opened",
		}),
		RebatesClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "rebates_claimed_total",
			Help:      "Total number of energy rebates claimed",
		}),
		RebatesPaid: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "rebates_paid_total",
			Help:      "Total rebate tokens paid out (minor units)",
		}),
		PrincipalStaked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "principal_staked_total",
			Help:      "Total principal moved into the stake vault (minor units)",
		}),

		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_errors_total",
			Help:      "Total number of failed operations by type",
		}, []string{"operation", "error_type"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		TransfersIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transfers_issued_total",
			Help:      "Total number of ledger transfer instructions issued",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPayment records one completed task payment.
func RecordPayment(netAmount, burnAmount uint64) {
	DefaultMetrics.PaymentsExecuted.Inc()
	DefaultMetrics.TokensPaidNet.Add(float64(netAmount))
	DefaultMetrics.TokensBurned.Add(float64(burnAmount))
	DefaultMetrics.TransfersIssued.Add(2)
}

// RecordStakeOpened records one opened stake.
func RecordStakeOpened(amount uint64) {
	DefaultMetrics.StakesOpened.Inc()
	DefaultMetrics.PrincipalStaked.Add(float64(amount))
	DefaultMetrics.TransfersIssued.Inc()
}

// RecordRebateClaimed records one claimed rebate.
func RecordRebateClaimed(rebate uint64) {
	DefaultMetrics.RebatesClaimed.Inc()
	DefaultMetrics.RebatesPaid.Add(float64(rebate))
	DefaultMetrics.TransfersIssued.Add(2)
}

// RecordOperationError records a failed engine operation.
func RecordOperationError(operation, errorType string) {
	DefaultMetrics.OperationErrors.WithLabelValues(operation, errorType).Inc()
}

// ObserveOperationDuration records an engine operation's latency.
func ObserveOperationDuration(operation string, seconds float64) {
	DefaultMetrics.OperationDuration.WithLabelValues(operation).Observe(seconds)
}
