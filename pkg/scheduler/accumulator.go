package scheduler

import (
	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/compute"
)

// ComputeAccumulator gathers partial compute outputs for a tile until their
// sub-extents cover the whole tile, spec §4.8. A single Computer submission
// already runs one compute.Func invocation to completion and hands back
// every Partial it emitted in one batch (see Computer.poll), but
// Accumulator is written against the general case — partials may also
// arrive one at a time from multiple pool completions.
type Accumulator struct {
	loop     *actorbus.Loop
	rasterID string
	spec     RasterSpec

	pending map[cache.TileID][]compute.Partial
	covered map[cache.TileID]int
}

func NewAccumulator(loop *actorbus.Loop, spec RasterSpec) *Accumulator {
	a := &Accumulator{
		loop:     loop,
		rasterID: spec.ID,
		spec:     spec,
		pending:  make(map[cache.TileID][]compute.Partial),
		covered:  make(map[cache.TileID]int),
	}
	loop.Register(key(spec.ID, roleAccumulator), a)
	return a
}

func (a *Accumulator) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgComputedPartial:
		a.handleComputedPartial(msg.Payload.(computedPartialPayload))
	case msgKillRaster:
		a.loop.Unregister(key(a.rasterID, roleAccumulator))
	}
}

func (a *Accumulator) handleComputedPartial(p computedPartialPayload) {
	if p.err != nil {
		a.fail(p.tile, p.err)
		return
	}

	a.pending[p.tile] = append(a.pending[p.tile], p.partial)
	a.covered[p.tile] += p.partial.Width * p.partial.Height

	tileArea := a.spec.TileWidth * a.spec.TileHeight
	if a.covered[p.tile] < tileArea {
		return
	}

	partials := a.pending[p.tile]
	delete(a.pending, p.tile)
	delete(a.covered, p.tile)

	a.loop.Emit(actorbus.Message{
		To:      key(a.rasterID, roleMerger),
		Type:    msgMerge,
		Payload: mergePayload{tile: p.tile, partials: partials},
	})
}

// fail routes a compute failure straight to CacheHandler as if a write had
// failed: the tile returns to ABSENT and every subscribing query is told,
// matching spec §4.13's ComputeError handling.
func (a *Accumulator) fail(tile cache.TileID, err *Error) {
	delete(a.pending, tile)
	delete(a.covered, tile)
	a.loop.Emit(actorbus.Message{
		To:      key(a.rasterID, roleCacheHandler),
		Type:    msgWroteFailed,
		Payload: wroteFailedPayload{tile: tile, err: err},
	})
}
