package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	watchdogRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "printsync",
			Subsystem: "watchdog",
			Name:      "running",
			Help:      "1 while the printer poll loop is running.",
		},
	)

	watchdogTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "printsync",
			Subsystem: "watchdog",
			Name:      "ticks_total",
			Help:      "Total number of poll ticks by outcome.",
		},
		[]string{"outcome"},
	)

	counterQueryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "printsync",
			Subsystem: "watchdog",
			Name:      "counter_query_failures_total",
			Help:      "Device counter queries that returned no value.",
		},
		[]string{"printer_id"},
	)

	counterAdvances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "printsync",
			Subsystem: "watchdog",
			Name:      "pages_recorded_total",
			Help:      "Pages added to stored printer counters.",
		},
		[]string{"printer_id"},
	)

	stockDeducted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "printsync",
			Subsystem: "stock",
			Name:      "deducted_units_total",
			Help:      "Units of raw material deducted.",
		},
		[]string{"material"},
	)

	lowStockWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "printsync",
			Subsystem: "stock",
			Name:      "low_stock_warnings_total",
			Help:      "Deductions that left a material below the low-stock threshold.",
		},
		[]string{"material"},
	)
)

func init() {
	Registry.MustRegister(
		watchdogRunning,
		watchdogTicks,
		counterQueryFailures,
		counterAdvances,
		stockDeducted,
		lowStockWarnings,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetWatchdogRunning records whether the poll loop is alive.
func SetWatchdogRunning(running bool) {
	if running {
		watchdogRunning.Set(1)
		return
	}
	watchdogRunning.Set(0)
}

// RecordTick counts a finished poll tick; outcome is "ok" or "error".
func RecordTick(outcome string) {
	watchdogTicks.WithLabelValues(outcome).Inc()
}

// RecordQueryFailure counts a device query that returned no value.
func RecordQueryFailure(printerID string) {
	counterQueryFailures.WithLabelValues(printerID).Inc()
}

// RecordPages counts pages added to a printer counter.
func RecordPages(printerID string, pages int64) {
	counterAdvances.WithLabelValues(printerID).Add(float64(pages))
}

// RecordDeduction counts units deducted from a material.
func RecordDeduction(material string, amount float64) {
	if amount < 0 {
		return
	}
	stockDeducted.WithLabelValues(material).Add(amount)
}

// RecordLowStock counts a low-stock warning for a material.
func RecordLowStock(material string) {
	lowStockWarnings.WithLabelValues(material).Inc()
}
