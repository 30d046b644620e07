package scheduler

import (
	"testing"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/compute"
	"github.com/preligens-lab/buzzard/pkg/workerpool"
)

func TestWriterPublishesAndReportsWroteTile(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	store := newLocalStore(t)
	NewWriter(loop, "r1", store, workerpool.NewInlinePool())
	var toCacheHandler []actorbus.Message
	captureActor(loop, key("r1", roleCacheHandler), &toCacheHandler)

	fp := cache.Compute(cache.Inputs{RasterID: "r1"})
	tid := cache.TileID{RasterID: "r1", Col: 0, Row: 0, Fingerprint: fp}
	data := compute.Array{Channels: []string{"a"}, Width: 1, Height: 1, Data: [][]byte{{7}}}

	loop.Deliver(actorbus.Message{
		To:      key("r1", roleWriter),
		Type:    msgWrite,
		Payload: writePayload{tile: tid, data: data},
	})
	loop.Tick()

	if len(toCacheHandler) != 1 || toCacheHandler[0].Type != msgWroteTile {
		t.Fatalf("expected wrote_tile, got %v", toCacheHandler)
	}

	status, err := store.Validate(testContext(), tid)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if status != cache.StatusValid {
		t.Fatalf("expected the published tile to validate, got status %v", status)
	}
}

func TestWriterReportsWroteFailedWhenStoreWriteErrors(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	NewWriter(loop, "r1", failingStore{}, workerpool.NewInlinePool())
	var toCacheHandler []actorbus.Message
	captureActor(loop, key("r1", roleCacheHandler), &toCacheHandler)

	tid := cache.TileID{RasterID: "r1", Col: 0, Row: 0, Fingerprint: "f"}
	data := compute.Array{Channels: []string{"a"}, Width: 1, Height: 1, Data: [][]byte{{7}}}

	loop.Deliver(actorbus.Message{
		To:      key("r1", roleWriter),
		Type:    msgWrite,
		Payload: writePayload{tile: tid, data: data},
	})
	loop.Tick()

	if len(toCacheHandler) != 1 || toCacheHandler[0].Type != msgWroteFailed {
		t.Fatalf("expected wrote_failed, got %v", toCacheHandler)
	}
	p := toCacheHandler[0].Payload.(wroteFailedPayload)
	if p.err == nil || p.err.Kind != KindIOError {
		t.Fatalf("expected a KindIOError, got %+v", p.err)
	}
}
