package kmerdb

import (
	"sync/atomic"
	"time"
)

// QueryOp names a query for metrics.
type QueryOp string

const (
	QueryContains  QueryOp = "contains"
	QueryNeighbors QueryOp = "neighbors"
	QueryNextKmers QueryOp = "next_kmers"
	QueryNode      QueryOp = "node"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordLoad is called once per load attempt.
	// stats is partially filled when err is non-nil.
	RecordLoad(stats LoadStats, err error)

	// RecordQuery is called after each point query.
	// A KmerNotFound result counts as success.
	RecordQuery(op QueryOp, duration time.Duration, err error)

	// RecordHealthcheck is called after each healthcheck with the number of
	// violations found.
	RecordHealthcheck(duration time.Duration, violations int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLoad(LoadStats, error)               {}
func (NoopMetricsCollector) RecordQuery(QueryOp, time.Duration, error) {}
func (NoopMetricsCollector) RecordHealthcheck(time.Duration, int)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
	LoadTotalNanos   atomic.Int64
	KmersLoaded      atomic.Int64
	QueryCount       atomic.Int64
	QueryErrors      atomic.Int64
	QueryTotalNanos  atomic.Int64
	HealthcheckCount atomic.Int64
	EdgeViolations   atomic.Int64
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(stats LoadStats, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(stats.Duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.KmersLoaded.Add(int64(stats.Loaded))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ QueryOp, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordHealthcheck implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHealthcheck(_ time.Duration, violations int) {
	b.HealthcheckCount.Add(1)
	b.EdgeViolations.Add(int64(violations))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		LoadCount:        b.LoadCount.Load(),
		LoadErrors:       b.LoadErrors.Load(),
		LoadAvgNanos:     avg(b.LoadTotalNanos.Load(), b.LoadCount.Load()),
		KmersLoaded:      b.KmersLoaded.Load(),
		QueryCount:       b.QueryCount.Load(),
		QueryErrors:      b.QueryErrors.Load(),
		QueryAvgNanos:    avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		HealthcheckCount: b.HealthcheckCount.Load(),
		EdgeViolations:   b.EdgeViolations.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LoadCount        int64
	LoadErrors       int64
	LoadAvgNanos     int64
	KmersLoaded      int64
	QueryCount       int64
	QueryErrors      int64
	QueryAvgNanos    int64
	HealthcheckCount int64
	EdgeViolations   int64
}
