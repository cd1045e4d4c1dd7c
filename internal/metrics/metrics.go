// Package metrics exports Prometheus collectors for the HTTP layer, the sale
// coordinator and the stock monitor. Collectors register with the default
// registry on package init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	SalesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_total",
			Help: "Sale operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	SaleRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sale_retries_total",
			Help: "Inventory version conflicts that caused a sale operation to retry",
		},
	)

	InventoryItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inventory_items",
			Help: "Inventory items by derived stock status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(SalesTotal)
	prometheus.MustRegister(SaleRetries)
	prometheus.MustRegister(InventoryItems)
}
