// Package promcollector exports page cache events as Prometheus metrics.
package promcollector

import (
	"time"

	"github.com/hupe1980/ftstore/pagecache"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements pagecache.MetricsCollector on Prometheus counters.
type Collector struct {
	hits        prometheus.Counter
	misses      *prometheus.CounterVec
	missLatency prometheus.Histogram
	prefetches  *prometheus.CounterVec
	evictions   prometheus.Counter
	resets      prometheus.Counter
}

var _ pagecache.MetricsCollector = (*Collector)(nil)

// New creates a collector whose metric names start with namespace and
// registers it with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pagecache",
			Name:      "hits_total",
			Help:      "Page requests served from memory.",
		}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pagecache",
			Name:      "misses_total",
			Help:      "Page requests that read from the source.",
		}, []string{"status"}),
		missLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pagecache",
			Name:      "miss_duration_seconds",
			Help:      "Latency of page reads from the source.",
			Buckets:   prometheus.ExponentialBuckets(10e-6, 4, 10),
		}),
		prefetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pagecache",
			Name:      "prefetch_hints_total",
			Help:      "Prefetch hints by outcome.",
		}, []string{"outcome"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pagecache",
			Name:      "evictions_total",
			Help:      "Pages returned to the free queue.",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pagecache",
			Name:      "resets_total",
			Help:      "Cache resets and source swaps.",
		}),
	}

	for _, m := range []prometheus.Collector{c.hits, c.misses, c.missLatency, c.prefetches, c.evictions, c.resets} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordHit implements pagecache.MetricsCollector.
func (c *Collector) RecordHit() { c.hits.Inc() }

// RecordMiss implements pagecache.MetricsCollector.
func (c *Collector) RecordMiss(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.misses.WithLabelValues(status).Inc()
	c.missLatency.Observe(d.Seconds())
}

// RecordPrefetch implements pagecache.MetricsCollector.
func (c *Collector) RecordPrefetch(fetched bool) {
	outcome := "fetched"
	if !fetched {
		outcome = "skipped"
	}
	c.prefetches.WithLabelValues(outcome).Inc()
}

// RecordEviction implements pagecache.MetricsCollector.
func (c *Collector) RecordEviction() { c.evictions.Inc() }

// RecordReset implements pagecache.MetricsCollector.
func (c *Collector) RecordReset() { c.resets.Inc() }
