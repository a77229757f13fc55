// Package metrics provides Prometheus instrumentation for report runs.
//
// A run is a short-lived process, so metrics live in a private registry per
// Collector and are written out once at the end with WriteTextfile (suitable
// for the node_exporter textfile collector) instead of being scraped.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("nebula_domo")
//	collector.ObserveRequest("Users", 200, time.Since(start))
//	collector.RowsEmitted("Users", len(rows))
//	_ = collector.WriteTextfile("/var/lib/node_exporter/domo.prom")
//
// All methods are safe to call on a nil *Collector, which disables metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups the metrics recorded during report runs
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	pages           *prometheus.CounterVec
	rows            *prometheus.CounterVec
	itemFailures    *prometheus.CounterVec
	runs            *prometheus.CounterVec
	runDuration     *prometheus.GaugeVec
}

// NewCollector creates a collector whose metric names start with namespace
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests issued, by report and status code",
		}, []string{"report", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"report"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages or detail objects fetched, by report and mode",
		}, []string{"report", "mode"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_emitted_total",
			Help:      "Rows handed to the sink",
		}, []string{"report"}),
		itemFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_failures_total",
			Help:      "Multi-fetch items skipped, by reason",
		}, []string{"report", "reason"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Report runs, by outcome",
		}, []string{"report", "outcome"}),
		runDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last run of a report",
		}, []string{"report"}),
	}

	c.registry.MustRegister(
		c.requests,
		c.requestDuration,
		c.pages,
		c.rows,
		c.itemFailures,
		c.runs,
		c.runDuration,
	)
	return c
}

// Registry exposes the underlying registry, e.g. for promhttp
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveRequest records one HTTP round trip. A zero status means no
// response was received.
func (c *Collector) ObserveRequest(report string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(report, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(report).Observe(d.Seconds())
}

// PageFetched records one fetched page
func (c *Collector) PageFetched(report, mode string) {
	if c == nil {
		return
	}
	c.pages.WithLabelValues(report, mode).Inc()
}

// RowsEmitted adds n to the emitted row count
func (c *Collector) RowsEmitted(report string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.rows.WithLabelValues(report).Add(float64(n))
}

// ItemFailed records a skipped multi-fetch item
func (c *Collector) ItemFailed(report, reason string) {
	if c == nil {
		return
	}
	c.itemFailures.WithLabelValues(report, reason).Inc()
}

// RunFinished records the outcome and duration of a run
func (c *Collector) RunFinished(report, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(report, outcome).Inc()
	c.runDuration.WithLabelValues(report).Set(d.Seconds())
}

// WriteTextfile writes all metrics in the Prometheus text format
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
