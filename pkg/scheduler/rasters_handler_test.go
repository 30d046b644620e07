package scheduler

import (
	"testing"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/workerpool"
)

func minimalRasterSpec(id string) RasterSpec {
	pool := workerpool.NewInlinePool()
	return RasterSpec{
		ID:           id,
		Channels:     []string{"a"},
		TileWidth:    2,
		TileHeight:   2,
		Store:        discardStore{},
		IOPool:       pool,
		ComputePool:  pool,
		ResamplePool: pool,
	}
}

func TestRastersHandlerRegisterRasterAnswersWithSpecID(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	h := NewRastersHandler(loop, newMetrics(nil))

	done := make(chan string, 1)
	loop.Deliver(actorbus.Message{
		To:      key("", roleRastersHandler),
		Type:    msgRegisterRaster,
		Payload: registerRasterPayload{spec: minimalRasterSpec("r1"), done: done},
	})

	select {
	case id := <-done:
		if id != "r1" {
			t.Fatalf("got id %q, want r1", id)
		}
	default:
		t.Fatal("expected handleRegisterRaster to answer done synchronously")
	}
	if _, ok := h.rasters["r1"]; !ok {
		t.Fatalf("expected raster r1 tracked in RastersHandler")
	}
}

func TestRastersHandlerPostQueryForUnknownRasterErrors(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	NewRastersHandler(loop, newMetrics(nil))

	done := make(chan postQueryResult, 1)
	loop.Deliver(actorbus.Message{
		To:      key("", roleRastersHandler),
		Type:    msgPostQuery,
		Payload: postQueryPayload{queryID: "q1", spec: QuerySpec{RasterID: "missing"}, done: done},
	})

	res := <-done
	if res.err == nil || res.err.Kind != KindConfigError {
		t.Fatalf("expected a KindConfigError for an unknown raster, got %+v", res)
	}
}

func TestRastersHandlerCloseTearsDownOnlyOnceQueriesAreGone(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	h := NewRastersHandler(loop, newMetrics(nil))

	done := make(chan string, 1)
	loop.Deliver(actorbus.Message{
		To:      key("", roleRastersHandler),
		Type:    msgRegisterRaster,
		Payload: registerRasterPayload{spec: minimalRasterSpec("r1"), done: done},
	})
	<-done
	h.rasters["r1"].openQueries["q1"] = true

	h.Handle(actorbus.Message{Type: msgCloseRaster, Payload: closeRasterPayload{rasterID: "r1"}})
	loop.Tick()
	if _, ok := h.rasters["r1"]; !ok {
		t.Fatalf("raster should not be torn down while a query is still open")
	}

	h.Handle(actorbus.Message{Type: msgQueryGone, Payload: killQueryPayload{queryID: "q1"}})
	loop.Tick()
	if _, ok := h.rasters["r1"]; ok {
		t.Fatalf("expected raster torn down once its last open query is gone")
	}
}
