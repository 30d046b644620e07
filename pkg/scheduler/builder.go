package scheduler

import (
	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/footprint"
)

// Builder assembles one production array from its sampled cache tiles,
// spec §4.10: sample first, then resample only if the raster's transform
// has rotation or shear (footprint.Transform.IsAxisAligned). The query's
// footprint is not compared with the raster's grid, so a difference in
// scale or origin alone does not route through Resampler.
type Builder struct {
	loop      *actorbus.Loop
	rasterID  string
	transform footprint.Transform
}

func NewBuilder(loop *actorbus.Loop, rasterID string, transform footprint.Transform) *Builder {
	b := &Builder{loop: loop, rasterID: rasterID, transform: transform}
	loop.Register(key(rasterID, roleBuilder), b)
	return b
}

func (b *Builder) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgBuild:
		b.handleBuild(msg.Payload.(buildPayload))
	case msgSampled:
		b.handleSampled(msg.Payload.(sampledPayload))
	case msgResampled:
		b.handleResampled(msg.Payload.(resampledPayload))
	case msgKillRaster:
		b.loop.Unregister(key(b.rasterID, roleBuilder))
	}
}

func (b *Builder) handleBuild(p buildPayload) {
	b.loop.Emit(actorbus.Message{
		To:      key(b.rasterID, roleSampler),
		Type:    msgSample,
		Payload: samplePayload{queryID: p.queryID, id: p.id, tiles: p.tiles},
	})
}

func (b *Builder) handleSampled(p sampledPayload) {
	if p.err != nil {
		b.loop.Emit(actorbus.Message{
			To:      key(b.rasterID, roleProducer),
			Type:    msgBuilt,
			Payload: builtPayload{queryID: p.queryID, id: p.id, err: p.err},
		})
		return
	}
	if b.transform.IsAxisAligned() {
		b.loop.Emit(actorbus.Message{
			To:   key(b.rasterID, roleProducer),
			Type: msgBuilt,
			Payload: builtPayload{
				queryID: p.queryID,
				id:      p.id,
				data:    nearestNeighborMerge(p.arrays),
			},
		})
		return
	}
	b.loop.Emit(actorbus.Message{
		To:      key(b.rasterID, roleResampler),
		Type:    msgResample,
		Payload: resamplePayload{queryID: p.queryID, id: p.id, arrays: p.arrays},
	})
}

func (b *Builder) handleResampled(p resampledPayload) {
	b.loop.Emit(actorbus.Message{
		To:      key(b.rasterID, roleProducer),
		Type:    msgBuilt,
		Payload: builtPayload{queryID: p.queryID, id: p.id, data: p.data, err: p.err},
	})
}
