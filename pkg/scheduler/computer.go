package scheduler

import (
	"context"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/compute"
	"github.com/preligens-lab/buzzard/pkg/footprint"
	"github.com/preligens-lab/buzzard/pkg/workerpool"
)

// Computer dispatches tile computation to the compute pool, spec §4.6. It
// never decides *when* to start (ComputationBedroom does); it only ever
// acts on schedule_compute.
type Computer struct {
	loop     *actorbus.Loop
	rasterID string
	spec     RasterSpec

	inFlight map[cache.TileID]workerpool.Future
	cancel   map[cache.TileID]context.CancelFunc
	metrics  *metrics
}

// NewComputer constructs and registers a Computer for one raster.
func NewComputer(loop *actorbus.Loop, spec RasterSpec, m *metrics) *Computer {
	c := &Computer{
		loop:     loop,
		rasterID: spec.ID,
		spec:     spec,
		inFlight: make(map[cache.TileID]workerpool.Future),
		cancel:   make(map[cache.TileID]context.CancelFunc),
		metrics:  m,
	}
	loop.Register(key(spec.ID, roleComputer), c)
	loop.AddPoller(actorbus.PollerFunc(c.poll))
	return c
}

func (c *Computer) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgComputeTiles:
		c.handleComputeTiles(msg.Payload.(computeTilesPayload))
	case msgScheduleCompute:
		c.handleScheduleCompute(msg.Payload.(scheduleComputePayload))
	case msgCancelCompute:
		c.handleCancelCompute(msg.Payload.(cancelComputePayload))
	case msgKillQuery:
		// Computer has no per-query state of its own to drop; a tile in
		// flight whose only subscriber was the killed query is cancelled
		// via cancel_compute once CacheHandler notices the subscriber
		// count reach zero (spec §5).
	case msgKillRaster:
		for t, cancel := range c.cancel {
			cancel()
			delete(c.cancel, t)
		}
		c.loop.Unregister(key(c.rasterID, roleComputer))
	}
}

func (c *Computer) handleComputeTiles(p computeTilesPayload) {
	for _, t := range p.tiles {
		c.loop.Emit(actorbus.Message{
			To:   key(c.rasterID, roleComputationBedroom),
			Type: msgScheduleWhenNeed,
			Payload: scheduleWhenNeededPayload{
				tile:    t,
				queryID: p.queryID,
			},
		})
	}
}

// handleCancelCompute best-effort cancels a tile's in-flight compute once
// CacheHandler has determined its last subscriber was just killed (spec
// §5, invariant 3). The Future is left in c.inFlight: poll picks up its
// completion as usual, normally surfacing a ComputeError that routes the
// tile back to ABSENT via Accumulator.fail/CacheHandler.handleWroteFailed.
func (c *Computer) handleCancelCompute(p cancelComputePayload) {
	if cancel, ok := c.cancel[p.tile]; ok {
		cancel()
	}
}

func (c *Computer) handleScheduleCompute(p scheduleComputePayload) {
	if _, ok := c.inFlight[p.tile]; ok {
		return
	}
	tile := p.tile
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel[tile] = cancel

	req := compute.Request{
		RasterID: c.rasterID,
		Tile:     footprint.Tile{Col: tile.Col, Row: tile.Row, TileWidth: c.spec.TileWidth, TileHeight: c.spec.TileHeight},
		Channels: c.spec.Channels,
	}
	fn := c.spec.ComputeFunc

	f := c.spec.ComputePool.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		var partials []compute.Partial
		err := fn(ctx, req, func(part compute.Partial) error {
			partials = append(partials, part)
			return nil
		})
		return partials, err
	})
	c.inFlight[tile] = f
}

// poll surfaces completed compute Futures as computed_partial messages per
// partial produced, or a query-level failure if the compute function
// errored (spec §4.13: "ComputeError — user compute function failed;
// surfaced to owning query as terminal; tile returns to ABSENT").
func (c *Computer) poll() {
	for tile, f := range c.inFlight {
		select {
		case <-f.Done():
		default:
			continue
		}
		delete(c.inFlight, tile)
		delete(c.cancel, tile)

		val, err := f.Result()
		if err != nil {
			c.loop.Emit(actorbus.Message{
				To:   key(c.rasterID, roleAccumulator),
				Type: msgComputedPartial,
				Payload: computedPartialPayload{
					tile: tile,
					err:  &Error{Kind: KindComputeError, TileID: tile.FileName(), Err: err},
				},
			})
			continue
		}
		c.metrics.tilesComputed.Inc()
		partials := val.([]compute.Partial)
		for _, part := range partials {
			c.loop.Emit(actorbus.Message{
				To:      key(c.rasterID, roleAccumulator),
				Type:    msgComputedPartial,
				Payload: computedPartialPayload{tile: tile, partial: part},
			})
		}
	}
}
