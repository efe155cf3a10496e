// Package metrics exports pool engine events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "mempool"

// Collector implements pool.Observer. Each Collector owns its registry so
// several pools (and tests) never collide on metric names.
type Collector struct {
	reg *prometheus.Registry

	BlocksAcquiredTotal prometheus.Counter
	BlocksReleasedTotal prometheus.Counter
	BlockBytesAcquired  prometheus.Counter
	AllocationsTotal    prometheus.Counter
	FreesTotal          prometheus.Counter
	AllocatedBytesTotal prometheus.Counter

	LiveBytes       prometheus.Gauge
	LiveAllocations prometheus.Gauge
	BlockBytes      prometheus.Gauge
	Blocks          prometheus.Gauge

	AllocationSize prometheus.Histogram
}

// New registers a fresh set of pool metrics on a private registry. When
// withRuntime is true the Go and process collectors are registered too.
func New(withRuntime bool) *Collector {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &Collector{
		reg: reg,

		BlocksAcquiredTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "blocks_acquired_total",
			Help:      "Total number of blocks obtained from the block source",
		}),
		BlocksReleasedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "blocks_released_total",
			Help:      "Total number of blocks returned to the block source",
		}),
		BlockBytesAcquired: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "block_bytes_acquired_total",
			Help:      "Total bytes obtained from the block source",
		}),
		AllocationsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "allocations_total",
			Help:      "Total number of successful allocations",
		}),
		FreesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frees_total",
			Help:      "Total number of deallocations",
		}),
		AllocatedBytesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "allocated_bytes_total",
			Help:      "Total chunk bytes handed out, headers excluded",
		}),
		LiveBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "live_bytes",
			Help:      "Chunk bytes currently allocated",
		}),
		LiveAllocations: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "live_allocations",
			Help:      "Number of allocations not yet freed",
		}),
		BlockBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "block_bytes",
			Help:      "Bytes currently held in blocks",
		}),
		Blocks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "blocks",
			Help:      "Number of blocks currently held",
		}),
		AllocationSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "allocation_size_bytes",
			Help:      "Distribution of carved chunk sizes",
			Buckets:   prometheus.ExponentialBuckets(8, 4, 10),
		}),
	}
}

// BlockAcquired records a block obtained from the source.
func (c *Collector) BlockAcquired(size int) {
	c.BlocksAcquiredTotal.Inc()
	c.BlockBytesAcquired.Add(float64(size))
	c.Blocks.Inc()
	c.BlockBytes.Add(float64(size))
}

// BlockReleased records a block handed back at teardown.
func (c *Collector) BlockReleased(size int) {
	c.BlocksReleasedTotal.Inc()
	c.Blocks.Dec()
	c.BlockBytes.Sub(float64(size))
}

// Allocated records a chunk of size bytes leaving the free list.
func (c *Collector) Allocated(size int) {
	c.AllocationsTotal.Inc()
	c.AllocatedBytesTotal.Add(float64(size))
	c.AllocationSize.Observe(float64(size))
	c.LiveAllocations.Inc()
	c.LiveBytes.Add(float64(size))
}

// Freed records a chunk of size bytes returned to the pool.
func (c *Collector) Freed(size int) {
	c.FreesTotal.Inc()
	c.LiveAllocations.Dec()
	c.LiveBytes.Sub(float64(size))
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}
