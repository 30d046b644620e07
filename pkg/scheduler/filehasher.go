package scheduler

import (
	"context"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/workerpool"
)

// FileHasher offloads tile validation to the I/O pool (spec §4.5): read the
// file, recompute its checksum, compare to the fingerprint embedded in its
// name. It never decides what VALID/CORRUPT/MISSING means for the cache
// state machine; CacheHandler does that.
type FileHasher struct {
	loop     *actorbus.Loop
	rasterID string
	store    cache.Store
	pool     workerpool.Pool

	pending map[cache.TileID]workerpool.Future
}

// NewFileHasher constructs and registers a FileHasher for one raster.
func NewFileHasher(loop *actorbus.Loop, rasterID string, store cache.Store, pool workerpool.Pool) *FileHasher {
	h := &FileHasher{loop: loop, rasterID: rasterID, store: store, pool: pool, pending: make(map[cache.TileID]workerpool.Future)}
	loop.Register(key(rasterID, roleFileHasher), h)
	loop.AddPoller(actorbus.PollerFunc(h.poll))
	return h
}

func (h *FileHasher) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgStatusRequest:
		h.handleStatusRequest(msg.Payload.(statusRequestPayload))
	case msgKillRaster:
		for _, f := range h.pending {
			f.Cancel()
		}
		h.loop.Unregister(key(h.rasterID, roleFileHasher))
	}
}

func (h *FileHasher) handleStatusRequest(p statusRequestPayload) {
	if _, inFlight := h.pending[p.tile]; inFlight {
		return
	}
	tile := p.tile
	f := h.pool.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		status, err := h.store.Validate(ctx, tile)
		if status == cache.StatusCorrupt {
			// spec §4.4: "On status(CORRUPT): schedule deletion, then
			// treat as ABSENT". Deleting here, before CacheHandler ever
			// observes CORRUPT, keeps the recompute path identical to a
			// tile that was never written.
			if derr := h.store.Delete(ctx, tile); derr != nil {
				return status, derr
			}
		}
		return status, err
	})
	h.pending[tile] = f
}

// poll is the per-tick check spec §5's tick phase (3) calls for: surface
// every completed Future as a status message, on the loop thread.
func (h *FileHasher) poll() {
	for tile, f := range h.pending {
		select {
		case <-f.Done():
		default:
			continue
		}
		val, err := f.Result()
		delete(h.pending, tile)

		status := cache.StatusMissing
		if err == nil {
			status = val.(cache.Status)
		}
		h.loop.Emit(actorbus.Message{
			To:      key(h.rasterID, roleCacheHandler),
			Type:    msgStatus,
			Payload: statusPayload{tile: tile, status: status},
		})
	}
}
