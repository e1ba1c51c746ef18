// Package metrics provides Prometheus metrics for the fulfillment engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	FillsCompleted     prometheus.Counter
	FillsRejected      *prometheus.CounterVec
	FillDuration       prometheus.Histogram
	StockDispensed     prometheus.Counter
	AuditPublished     prometheus.Counter
	AuditDropped       prometheus.Counter
	RelayEntriesStored prometheus.Counter
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		FillsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fills_completed_total",
			Help: "Total prescriptions filled",
		}),
		FillsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fills_rejected_total",
			Help: "Total fill requests rejected, by reason",
		}, []string{"reason"}),
		FillDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fill_duration_seconds",
			Help:    "Fulfillment transaction duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		StockDispensed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stock_units_dispensed_total",
			Help: "Total stock units deducted by fulfillments",
		}),
		AuditPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_entries_published_total",
			Help: "Total audit entries handed to the sink",
		}),
		AuditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Total audit entries dropped (queue full or sink down)",
		}),
		RelayEntriesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_audit_entries_stored_total",
			Help: "Total audit entries persisted by the relay",
		}),
	}

	prometheus.MustRegister(
		m.FillsCompleted,
		m.FillsRejected,
		m.FillDuration,
		m.StockDispensed,
		m.AuditPublished,
		m.AuditDropped,
		m.RelayEntriesStored,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
