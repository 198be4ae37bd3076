// Package metrics is a Prometheus sink subscribed to the bus's
// integrity and order-rejection topics, grounded on chidi150c-coinbase's
// metrics.go: package-level CounterVec/Gauge registrations plus a
// bus-driven increment path instead of that bot's direct call sites.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	integrityWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kernel_integrity_warnings_total",
			Help: "IntegrityWarning events observed, by topic.",
		},
		[]string{"topic"},
	)

	ordersDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kernel_orders_denied_total",
			Help: "Orders denied pre-submission, by reason.",
		},
		[]string{"reason"},
	)

	ordersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kernel_orders_rejected_total",
			Help: "Orders rejected by the venue, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(integrityWarnings, ordersDenied, ordersRejected)
}

// Handler returns the Prometheus text-exposition HTTP handler for
// mounting at /metrics, the same path chidi150c-coinbase's main.go
// serves its metrics on.
func Handler() http.Handler {
	return promhttp.Handler()
}
