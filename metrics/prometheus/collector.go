package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/kmerdb"
)

const namespace = "kmerdb"

// Collector implements kmerdb.MetricsCollector.
type Collector struct {
	loads         *prometheus.CounterVec
	loadDuration  prometheus.Histogram
	kmersLoaded   prometheus.Counter
	kmersSkipped  *prometheus.CounterVec
	graphKmers    prometheus.Gauge
	graphMemory   prometheus.Gauge
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	healthchecks  prometheus.Counter
	healthLatency prometheus.Histogram
	violations    prometheus.Counter
}

var _ kmerdb.MetricsCollector = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	f := promauto.With(reg)

	return &Collector{
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Total number of graph loads",
		}, []string{"status"}),
		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of graph loads",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
		}),
		kmersLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kmers_loaded_total",
			Help:      "Total number of kmers inserted by loads",
		}),
		kmersSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kmers_skipped_total",
			Help:      "Total number of file records not inserted by loads",
		}, []string{"reason"}), // "empty", "filtered"
		graphKmers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_kmers",
			Help:      "Number of kmers in the most recently loaded graph",
		}),
		graphMemory: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_memory_bytes",
			Help:      "Estimated memory of the most recently loaded graph",
		}),
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of point queries",
		}, []string{"op", "status"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Latency of point queries",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 10),
		}, []string{"op"}),
		healthchecks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "healthchecks_total",
			Help:      "Total number of edge symmetry checks",
		}),
		healthLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "healthcheck_duration_seconds",
			Help:      "Duration of edge symmetry checks",
			Buckets:   prometheus.DefBuckets,
		}),
		violations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edge_violations_total",
			Help:      "Total number of asymmetric edges found by healthchecks",
		}),
	}
}

// RecordLoad implements kmerdb.MetricsCollector.
func (c *Collector) RecordLoad(stats kmerdb.LoadStats, err error) {
	c.loads.WithLabelValues(status(err)).Inc()
	c.loadDuration.Observe(stats.Duration.Seconds())

	if err != nil {
		return
	}

	c.kmersLoaded.Add(float64(stats.Loaded))
	c.kmersSkipped.WithLabelValues("empty").Add(float64(stats.SkippedEmpty))
	c.kmersSkipped.WithLabelValues("filtered").Add(float64(stats.SkippedFiltered))
	c.graphKmers.Set(float64(stats.Loaded))
	c.graphMemory.Set(float64(stats.MemoryBytes))
}

// RecordQuery implements kmerdb.MetricsCollector.
func (c *Collector) RecordQuery(op kmerdb.QueryOp, d time.Duration, err error) {
	c.queries.WithLabelValues(string(op), status(err)).Inc()
	c.queryDuration.WithLabelValues(string(op)).Observe(d.Seconds())
}

// RecordHealthcheck implements kmerdb.MetricsCollector.
func (c *Collector) RecordHealthcheck(d time.Duration, violations int) {
	c.healthchecks.Inc()
	c.healthLatency.Observe(d.Seconds())
	c.violations.Add(float64(violations))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
