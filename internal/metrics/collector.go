package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/onnwee/fmmtree/backend/internal/cache"
	"github.com/onnwee/fmmtree/backend/internal/logger"
)

// StatsSource is anything that can report tree cache statistics.
type StatsSource interface {
	Stats() cache.Stats
}

// Collector periodically publishes cache statistics as Prometheus gauges
type Collector struct {
	source   StatsSource
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(source StatsSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the metrics collection loop. It blocks until Stop is called
// or ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logger.WithComponent("metrics").Debug("collector started", "interval", c.interval)

	// Collect initial metrics
	c.Collect()

	for {
		select {
		case <-ticker.C:
			c.Collect()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector. It is safe to call more than once.
func (c *Collector) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Collect publishes a single snapshot of the cache statistics.
func (c *Collector) Collect() {
	stats := c.source.Stats()
	TreeCacheItems.Set(float64(stats.Items))
	TreeCacheCost.Set(float64(stats.Cost))
	TreeCacheEvictions.Set(float64(stats.Evictions))
}
