package pagecache

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives cache events. Implementations must be safe for
// concurrent use and cheap: RecordHit runs on every cache hit.
type MetricsCollector interface {
	// RecordHit is called when Get is served from memory.
	RecordHit()

	// RecordMiss is called after a population read; err is nil on success.
	RecordMiss(duration time.Duration, err error)

	// RecordPrefetch is called per hint; fetched is false when the hint was
	// dropped or the page was already resident.
	RecordPrefetch(fetched bool)

	// RecordEviction is called when a page is returned to the free queue.
	RecordEviction()

	// RecordReset is called after Reset or SwapSource.
	RecordReset()
}

// NoopMetricsCollector discards all events.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordHit()                      {}
func (NoopMetricsCollector) RecordMiss(time.Duration, error) {}
func (NoopMetricsCollector) RecordPrefetch(bool)             {}
func (NoopMetricsCollector) RecordEviction()                 {}
func (NoopMetricsCollector) RecordReset()                    {}

// BasicMetricsCollector counts events in memory.
type BasicMetricsCollector struct {
	Hits            atomic.Int64
	Misses          atomic.Int64
	MissErrors      atomic.Int64
	MissTotalNanos  atomic.Int64
	PrefetchFetched atomic.Int64
	PrefetchSkipped atomic.Int64
	Evictions       atomic.Int64
	Resets          atomic.Int64
}

// RecordHit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHit() {
	b.Hits.Add(1)
}

// RecordMiss implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMiss(d time.Duration, err error) {
	b.Misses.Add(1)
	b.MissTotalNanos.Add(d.Nanoseconds())
	if err != nil {
		b.MissErrors.Add(1)
	}
}

// RecordPrefetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPrefetch(fetched bool) {
	if fetched {
		b.PrefetchFetched.Add(1)
	} else {
		b.PrefetchSkipped.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction() {
	b.Evictions.Add(1)
}

// RecordReset implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReset() {
	b.Resets.Add(1)
}

// AverageMissLatency returns the mean population latency.
func (b *BasicMetricsCollector) AverageMissLatency() time.Duration {
	n := b.Misses.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(b.MissTotalNanos.Load() / n)
}
