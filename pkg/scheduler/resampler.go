package scheduler

import (
	"context"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/compute"
	"github.com/preligens-lab/buzzard/pkg/footprint"
	"github.com/preligens-lab/buzzard/pkg/workerpool"
)

// Resampler runs the resample step on the pool, spec §4.11. Resampler's
// job is dispatch and re-entry, not pixel math: the kernel it ships,
// nearestNeighborMerge, does no geometric remapping (it reads neither the
// query's footprint nor the raster transform) and only overlays the
// sampled tiles. It is the one place a caller would plug in a real
// resampling kernel.
type Resampler struct {
	loop      *actorbus.Loop
	rasterID  string
	transform footprint.Transform
	pool      workerpool.Pool

	inFlight map[arrayID]workerpool.Future
	owner    map[arrayID]string
}

func NewResampler(loop *actorbus.Loop, rasterID string, transform footprint.Transform, pool workerpool.Pool) *Resampler {
	r := &Resampler{
		loop: loop, rasterID: rasterID, transform: transform, pool: pool,
		inFlight: make(map[arrayID]workerpool.Future),
		owner:    make(map[arrayID]string),
	}
	loop.Register(key(rasterID, roleResampler), r)
	loop.AddPoller(actorbus.PollerFunc(r.poll))
	return r
}

func (r *Resampler) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgResample:
		r.handleResample(msg.Payload.(resamplePayload))
	case msgKillRaster:
		r.loop.Unregister(key(r.rasterID, roleResampler))
	}
}

func (r *Resampler) handleResample(p resamplePayload) {
	arrays := p.arrays
	f := r.pool.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nearestNeighborMerge(arrays), nil
	})
	r.inFlight[p.id] = f
	r.owner[p.id] = p.queryID
}

// nearestNeighborMerge stands in for true geometric resampling: it treats
// every sampled tile as already aligned (the common IsAxisAligned case
// Builder already filters for before routing here) and overlays them in
// order, last write wins on overlap.
func nearestNeighborMerge(arrays []compute.Array) compute.Array {
	if len(arrays) == 0 {
		return compute.Array{}
	}
	out := arrays[0]
	for _, a := range arrays[1:] {
		for ci := range out.Data {
			if ci < len(a.Data) {
				copy(out.Data[ci], a.Data[ci])
			}
		}
	}
	return out
}

func (r *Resampler) poll() {
	for id, f := range r.inFlight {
		select {
		case <-f.Done():
		default:
			continue
		}
		qid := r.owner[id]
		delete(r.inFlight, id)
		delete(r.owner, id)

		val, err := f.Result()
		var aerr *Error
		var data compute.Array
		if err != nil {
			aerr = &Error{Kind: KindIOError, QueryID: qid, Err: err}
		} else {
			data = val.(compute.Array)
		}
		r.loop.Emit(actorbus.Message{
			To:      key(r.rasterID, roleBuilder),
			Type:    msgResampled,
			Payload: resampledPayload{queryID: qid, id: id, data: data, err: aerr},
		})
	}
}
