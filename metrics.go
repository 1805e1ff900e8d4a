package ftstore

import (
	"sync/atomic"
	"time"
)

// QueryMetricsCollector receives index query events. Page level events go
// to the pagecache.MetricsCollector set with WithMetrics.
type QueryMetricsCollector interface {
	// RecordLookup is called after each Lookup; keys is the probe count.
	RecordLookup(keys int, duration time.Duration, err error)

	// RecordFilter is called after each Retain or Reject with the number
	// of candidates before and after the pass.
	RecordFilter(candidates, kept int, duration time.Duration, err error)
}

// NoopQueryMetricsCollector discards all events.
type NoopQueryMetricsCollector struct{}

func (NoopQueryMetricsCollector) RecordLookup(int, time.Duration, error)      {}
func (NoopQueryMetricsCollector) RecordFilter(int, int, time.Duration, error) {}

// BasicQueryMetricsCollector counts query events in memory.
type BasicQueryMetricsCollector struct {
	LookupCount      atomic.Int64
	LookupKeys       atomic.Int64
	LookupErrors     atomic.Int64
	LookupTotalNanos atomic.Int64
	FilterCount      atomic.Int64
	FilterCandidates atomic.Int64
	FilterKept       atomic.Int64
	FilterErrors     atomic.Int64
	FilterTotalNanos atomic.Int64
}

// RecordLookup implements QueryMetricsCollector.
func (b *BasicQueryMetricsCollector) RecordLookup(keys int, duration time.Duration, err error) {
	b.LookupCount.Add(1)
	b.LookupKeys.Add(int64(keys))
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LookupErrors.Add(1)
	}
}

// RecordFilter implements QueryMetricsCollector.
func (b *BasicQueryMetricsCollector) RecordFilter(candidates, kept int, duration time.Duration, err error) {
	b.FilterCount.Add(1)
	b.FilterCandidates.Add(int64(candidates))
	b.FilterKept.Add(int64(kept))
	b.FilterTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FilterErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicQueryMetricsCollector) GetStats() QueryMetricsStats {
	return QueryMetricsStats{
		LookupCount:      b.LookupCount.Load(),
		LookupKeys:       b.LookupKeys.Load(),
		LookupErrors:     b.LookupErrors.Load(),
		LookupAvgNanos:   average(b.LookupTotalNanos.Load(), b.LookupCount.Load()),
		FilterCount:      b.FilterCount.Load(),
		FilterCandidates: b.FilterCandidates.Load(),
		FilterKept:       b.FilterKept.Load(),
		FilterErrors:     b.FilterErrors.Load(),
		FilterAvgNanos:   average(b.FilterTotalNanos.Load(), b.FilterCount.Load()),
	}
}

func average(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// QueryMetricsStats is a snapshot of BasicQueryMetricsCollector state.
type QueryMetricsStats struct {
	LookupCount      int64
	LookupKeys       int64
	LookupErrors     int64
	LookupAvgNanos   int64
	FilterCount      int64
	FilterCandidates int64
	FilterKept       int64
	FilterErrors     int64
	FilterAvgNanos   int64
}
