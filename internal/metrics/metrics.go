// Package metrics exposes run counters for the relation and optimize
// passes. Each Collector owns its registry, so several can coexist in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sekgs"

// Collector holds the Prometheus metrics for engine runs.
type Collector struct {
	registry *prometheus.Registry

	Runs         *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	NodesLoaded  prometheus.Gauge
	NodesSkipped prometheus.Counter
	Edges        prometheus.Gauge
	Decayed      prometheus.Counter
	Merged       prometheus.Counter
	Failures     prometheus.Counter
	LastSuccess  *prometheus.GaugeVec
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Engine runs by operation and status",
			},
			[]string{"operation", "status"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Engine run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		NodesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Nodes loaded by the last run",
		}),
		NodesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_skipped_total",
			Help:      "Node records skipped as unreadable or invalid",
		}),
		Edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edges",
			Help:      "Edges in the graph after the last run",
		}),
		Decayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_decayed_total",
			Help:      "Nodes whose relevance was decayed",
		}),
		Merged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_merged_total",
			Help:      "Duplicate nodes merged and removed",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_failures_total",
			Help:      "Non-fatal node write or delete failures",
		}),
		LastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run",
			},
			[]string{"operation"},
		),
	}

	c.registry.MustRegister(
		c.Runs,
		c.RunDuration,
		c.NodesLoaded,
		c.NodesSkipped,
		c.Edges,
		c.Decayed,
		c.Merged,
		c.Failures,
		c.LastSuccess,
	)
	return c
}

// ObserveRun records the outcome of one operation.
func (c *Collector) ObserveRun(operation string, ok bool, started, finished time.Time) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	c.Runs.WithLabelValues(operation, status).Inc()
	c.RunDuration.WithLabelValues(operation).Observe(finished.Sub(started).Seconds())
	if ok {
		c.LastSuccess.WithLabelValues(operation).Set(float64(finished.Unix()))
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values for a node-exporter textfile
// collector. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
