package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are the counters and gauges the scheduler exports, the
// observability layer spec §1 scopes out of the core design but which any
// production deployment of it needs. One Metrics is shared across every
// raster registered on a Scheduler.
type metrics struct {
	tilesComputed  prometheus.Counter
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	corruptTiles   prometheus.Counter
	queriesActive  prometheus.Gauge
	arraysDelivered prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &metrics{
		tilesComputed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "buzzard",
			Subsystem: "scheduler",
			Name:      "tiles_computed_total",
			Help:      "Cache tiles computed from scratch.",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "buzzard",
			Subsystem: "scheduler",
			Name:      "cache_hits_total",
			Help:      "Tile reads served from a VALID cache entry.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "buzzard",
			Subsystem: "scheduler",
			Name:      "cache_misses_total",
			Help:      "Tile reads that found no valid cache entry.",
		}),
		corruptTiles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "buzzard",
			Subsystem: "scheduler",
			Name:      "corrupt_tiles_total",
			Help:      "Cache tiles found corrupt on validation.",
		}),
		queriesActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "buzzard",
			Subsystem: "scheduler",
			Name:      "queries_active",
			Help:      "Queries currently posted and not yet done or cancelled.",
		}),
		arraysDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "buzzard",
			Subsystem: "scheduler",
			Name:      "arrays_delivered_total",
			Help:      "Production arrays delivered to a consumer.",
		}),
	}
}
