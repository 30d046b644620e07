package scheduler

import (
	"context"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/compute"
	"github.com/preligens-lab/buzzard/pkg/workerpool"
)

// Merger combines a tile's partial outputs into one contiguous array on
// the compute pool (spec §4.8: "combines partials into one tile array
// (pool task)").
type Merger struct {
	loop     *actorbus.Loop
	rasterID string
	spec     RasterSpec

	inFlight map[cache.TileID]workerpool.Future
}

func NewMerger(loop *actorbus.Loop, spec RasterSpec) *Merger {
	m := &Merger{loop: loop, rasterID: spec.ID, spec: spec, inFlight: make(map[cache.TileID]workerpool.Future)}
	loop.Register(key(spec.ID, roleMerger), m)
	loop.AddPoller(actorbus.PollerFunc(m.poll))
	return m
}

func (m *Merger) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgMerge:
		m.handleMerge(msg.Payload.(mergePayload))
	case msgKillRaster:
		m.loop.Unregister(key(m.rasterID, roleMerger))
	}
}

func (m *Merger) handleMerge(p mergePayload) {
	tile := p.tile
	partials := p.partials
	width, height, channels := m.spec.TileWidth, m.spec.TileHeight, m.spec.Channels

	f := m.spec.ComputePool.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return mergePartials(partials, width, height, channels), nil
	})
	m.inFlight[tile] = f
}

// mergePartials overlays every partial's sub-extent onto a full tile
// buffer. The spec requires partial sub-extents to union to the whole
// tile; overlaps (if any) resolve last-write-wins in partial order.
func mergePartials(partials []compute.Partial, width, height int, channels []string) compute.Array {
	planes := make([][]byte, len(channels))
	for i := range planes {
		planes[i] = make([]byte, width*height)
	}
	for _, part := range partials {
		for ci := range channels {
			if ci >= len(part.Array.Data) {
				continue
			}
			src := part.Array.Data[ci]
			for row := 0; row < part.Height; row++ {
				dstY := part.YOff + row
				if dstY < 0 || dstY >= height {
					continue
				}
				srcOff := row * part.Width
				dstOff := dstY*width + part.XOff
				n := part.Width
				if part.XOff+n > width {
					n = width - part.XOff
				}
				if n <= 0 {
					continue
				}
				copy(planes[ci][dstOff:dstOff+n], src[srcOff:srcOff+n])
			}
		}
	}
	return compute.Array{Channels: channels, Width: width, Height: height, Data: planes}
}

func (m *Merger) poll() {
	for tile, f := range m.inFlight {
		select {
		case <-f.Done():
		default:
			continue
		}
		delete(m.inFlight, tile)
		val, _ := f.Result()
		m.loop.Emit(actorbus.Message{
			To:      key(m.rasterID, roleWriter),
			Type:    msgWrite,
			Payload: writePayload{tile: tile, data: val.(compute.Array)},
		})
	}
}
