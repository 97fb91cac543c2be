package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// Metrics holds the ledger's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Registry owns these metrics and backs the /metrics endpoint.
	Registry *prometheus.Registry

	operations     *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	balances       *prometheus.GaugeVec
	seeded         *prometheus.CounterVec
	budgetOverruns *prometheus.CounterVec
}

// New creates a private registry so that tests can build as many instances as
// they like without duplicate-collector panics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Ledger mutations by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger mutations, including the storage transaction.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		balances: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ledger_balance",
				Help: "Current balance per payment method.",
			},
			[]string{"method"},
		),
		seeded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_seeded_transactions_total",
				Help: "Transactions generated by the seeder by result.",
			},
			[]string{"result"},
		),
		budgetOverruns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_budget_overruns_total",
				Help: "Transactions that pushed a category past its monthly limit.",
			},
			[]string{"category"},
		),
	}
}

// RecordOperation counts one ledger mutation and observes its duration.
func (m *Metrics) RecordOperation(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetBalance publishes a balance. The gauge is a float and only approximates
// large decimal values.
func (m *Metrics) SetBalance(method string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.balances.WithLabelValues(method).Set(amount.InexactFloat64())
}

func (m *Metrics) AddSeeded(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.seeded.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) IncrBudgetOverrun(category string) {
	if m == nil {
		return
	}
	m.budgetOverruns.WithLabelValues(category).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// OperationCount returns the cumulative count for an operation and status.
func (m *Metrics) OperationCount(operation, status string) float64 {
	if m == nil {
		return 0
	}
	return metricValue(m.operations.WithLabelValues(operation, status))
}

// BalanceValue returns the last published balance for a method.
func (m *Metrics) BalanceValue(method string) float64 {
	if m == nil {
		return 0
	}
	return metricValue(m.balances.WithLabelValues(method))
}

func (m *Metrics) SeededCount(result string) float64 {
	if m == nil {
		return 0
	}
	return metricValue(m.seeded.WithLabelValues(result))
}

func (m *Metrics) BudgetOverrunCount(category string) float64 {
	if m == nil {
		return 0
	}
	return metricValue(m.budgetOverruns.WithLabelValues(category))
}

func metricValue(c prometheus.Metric) float64 {
	out := &dto.Metric{}
	if err := c.Write(out); err != nil {
		return 0
	}
	switch {
	case out.Counter != nil && out.Counter.Value != nil:
		return *out.Counter.Value
	case out.Gauge != nil && out.Gauge.Value != nil:
		return *out.Gauge.Value
	}
	return 0
}
