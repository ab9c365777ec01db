// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the server's collectors.
type Metrics struct {
	RPCs            *prometheus.CounterVec
	RPCDuration     *prometheus.HistogramVec
	ExpensesCreated prometheus.Counter
	LiveQueries     prometheus.Gauge
	Logins          *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RPCs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "owedup",
			Name:      "rpc_total",
			Help:      "RPCs handled, by procedure and Connect code.",
		}, []string{"procedure", "code"}),
		RPCDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "owedup",
			Name:      "rpc_duration_seconds",
			Help:      "Unary RPC latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		ExpensesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "owedup",
			Name:      "expenses_created_total",
			Help:      "Expense records written.",
		}),
		LiveQueries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "owedup",
			Name:      "live_subscriptions",
			Help:      "Open live subscriptions (expense and session watchers).",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "owedup",
			Name:      "logins_total",
			Help:      "Login attempts, by provider and result.",
		}, []string{"provider", "result"}),
	}
}
