// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

// Metrics holds all Prometheus metrics for the vault service.
type Metrics struct {
	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Fund flow metrics
	DepositedTotal      prometheus.Counter
	SwappedInputTotal   prometheus.Counter
	SwappedOutputTotal  prometheus.Counter
	WithdrawnTotal      prometheus.Counter
	EarlyExitFeesTotal  prometheus.Counter
	EarlyWithdrawsTotal prometheus.Counter

	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "dca_vault"
	}
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "operations_total",
			Help:      "Total number of vault operations by operation and result code",
		}, []string{"operation", "code"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "operation_duration_seconds",
			Help:      "Vault operation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		DepositedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funds",
			Name:      "deposited_base_units_total",
			Help:      "Deposit asset locked into vaults, in base units",
		}),
		SwappedInputTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funds",
			Name:      "swapped_input_base_units_total",
			Help:      "Deposit asset released into swaps, in base units",
		}),
		SwappedOutputTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funds",
			Name:      "swapped_output_base_units_total",
			Help:      "Target asset received by swaps, in base units",
		}),
		WithdrawnTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funds",
			Name:      "withdrawn_base_units_total",
			Help:      "Deposit asset paid out on withdraw, in base units",
		}),
		EarlyExitFeesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funds",
			Name:      "early_exit_fees_base_units_total",
			Help:      "Early-exit fees collected, in base units",
		}),
		EarlyWithdrawsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "early_withdraws_total",
			Help:      "Total number of withdrawals before schedule completion",
		}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of reg.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// RecordOperation records the outcome and latency of a vault operation.
func (m *Metrics) RecordOperation(operation string, seconds float64, err error) {
	code := "OK"
	if err != nil {
		code = string(vaulterr.CodeOf(err))
	}
	m.OperationsTotal.WithLabelValues(operation, code).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordDeposit records an initialized vault's locked amount.
func (m *Metrics) RecordDeposit(amount uint64) {
	m.DepositedTotal.Add(float64(amount))
}

// RecordSwap records a completed swap.
func (m *Metrics) RecordSwap(in, out uint64) {
	m.SwappedInputTotal.Add(float64(in))
	m.SwappedOutputTotal.Add(float64(out))
}

// RecordWithdraw records a payout and its fee.
func (m *Metrics) RecordWithdraw(payout, fee uint64, early bool) {
	m.WithdrawnTotal.Add(float64(payout))
	m.EarlyExitFeesTotal.Add(float64(fee))
	if early {
		m.EarlyWithdrawsTotal.Inc()
	}
}

// RecordHTTPRequest records the latency of a served request.
func (m *Metrics) RecordHTTPRequest(route, status string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(route, status).Observe(seconds)
}
