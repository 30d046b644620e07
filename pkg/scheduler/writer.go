package scheduler

import (
	"context"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/compute"
	"github.com/preligens-lab/buzzard/pkg/workerpool"
)

// Writer persists a merged tile atomically through cache.Store, spec §4.8:
// write tmp, fsync, rename, fsync dir — all of which localstore.Store (or
// s3store.Store) implements; Writer's job is only to offload that call to
// the I/O pool and translate its outcome into wrote_tile/wrote_failed.
type Writer struct {
	loop     *actorbus.Loop
	rasterID string
	store    cache.Store
	pool     workerpool.Pool

	inFlight map[cache.TileID]workerpool.Future
}

func NewWriter(loop *actorbus.Loop, rasterID string, store cache.Store, pool workerpool.Pool) *Writer {
	w := &Writer{loop: loop, rasterID: rasterID, store: store, pool: pool, inFlight: make(map[cache.TileID]workerpool.Future)}
	loop.Register(key(rasterID, roleWriter), w)
	loop.AddPoller(actorbus.PollerFunc(w.poll))
	return w
}

func (w *Writer) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgWrite:
		w.handleWrite(msg.Payload.(writePayload))
	case msgKillRaster:
		w.loop.Unregister(key(w.rasterID, roleWriter))
	}
}

func (w *Writer) handleWrite(p writePayload) {
	tile := p.tile
	data := p.data
	f := w.pool.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		payload, err := compute.Encode(data)
		if err != nil {
			return nil, err
		}
		return nil, w.store.Write(ctx, tile, payload)
	})
	w.inFlight[tile] = f
}

func (w *Writer) poll() {
	for tile, f := range w.inFlight {
		select {
		case <-f.Done():
		default:
			continue
		}
		delete(w.inFlight, tile)
		_, err := f.Result()
		if err != nil {
			w.loop.Emit(actorbus.Message{
				To:      key(w.rasterID, roleCacheHandler),
				Type:    msgWroteFailed,
				Payload: wroteFailedPayload{tile: tile, err: &Error{Kind: KindIOError, TileID: tile.FileName(), Err: err}},
			})
			continue
		}
		w.loop.Emit(actorbus.Message{
			To:      key(w.rasterID, roleCacheHandler),
			Type:    msgWroteTile,
			Payload: wroteTilePayload{tile: tile},
		})
	}
}
