package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/compute"
	"github.com/preligens-lab/buzzard/pkg/workerpool"
)

func TestComputerHandleComputeTilesAsksBedroomForEachTile(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	spec := RasterSpec{ID: "r1", TileWidth: 2, TileHeight: 2, ComputePool: workerpool.NewInlinePool()}
	NewComputer(loop, spec, newMetrics(nil))
	var toBedroom []actorbus.Message
	captureActor(loop, key("r1", roleComputationBedroom), &toBedroom)

	tid := cache.TileID{RasterID: "r1", Col: 0, Row: 0, Fingerprint: "f"}
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleComputer),
		Type:    msgComputeTiles,
		Payload: computeTilesPayload{tiles: []cache.TileID{tid}, queryID: "q1"},
	})

	if len(toBedroom) != 1 || toBedroom[0].Type != msgScheduleWhenNeed {
		t.Fatalf("expected one schedule_when_needed to ComputationBedroom, got %v", toBedroom)
	}
}

func TestComputerScheduleComputeSurfacesPartialsOnSuccess(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	identity := compute.Func(func(ctx context.Context, req compute.Request, emit compute.Emit) error {
		return emit(compute.Partial{Width: 2, Height: 2, Array: compute.Array{
			Channels: req.Channels, Width: 2, Height: 2, Data: [][]byte{{1, 2, 3, 4}},
		}})
	})
	spec := RasterSpec{
		ID: "r1", TileWidth: 2, TileHeight: 2, Channels: []string{"a"},
		ComputeFunc: identity, ComputePool: workerpool.NewInlinePool(),
	}
	NewComputer(loop, spec, newMetrics(nil))
	var toAccumulator []actorbus.Message
	captureActor(loop, key("r1", roleAccumulator), &toAccumulator)

	tid := cache.TileID{RasterID: "r1", Col: 0, Row: 0, Fingerprint: "f"}
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleComputer),
		Type:    msgScheduleCompute,
		Payload: scheduleComputePayload{tile: tid},
	})
	// InlinePool completes synchronously, but poll (and thus the
	// computed_partial emit) only runs on a Tick.
	loop.Tick()

	if len(toAccumulator) != 1 || toAccumulator[0].Type != msgComputedPartial {
		t.Fatalf("expected one computed_partial to Accumulator, got %v", toAccumulator)
	}
	p := toAccumulator[0].Payload.(computedPartialPayload)
	if p.err != nil {
		t.Fatalf("unexpected error on successful compute: %v", p.err)
	}
	if p.partial.Width != 2 || p.partial.Height != 2 {
		t.Fatalf("unexpected partial extent: %+v", p.partial)
	}
}

func TestComputerScheduleComputeSurfacesErrorOnFailure(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	boom := errors.New("boom")
	failing := compute.Func(func(ctx context.Context, req compute.Request, emit compute.Emit) error {
		return boom
	})
	spec := RasterSpec{ID: "r1", TileWidth: 2, TileHeight: 2, ComputeFunc: failing, ComputePool: workerpool.NewInlinePool()}
	NewComputer(loop, spec, newMetrics(nil))
	var toAccumulator []actorbus.Message
	captureActor(loop, key("r1", roleAccumulator), &toAccumulator)

	tid := cache.TileID{RasterID: "r1", Col: 0, Row: 0, Fingerprint: "f"}
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleComputer),
		Type:    msgScheduleCompute,
		Payload: scheduleComputePayload{tile: tid},
	})
	loop.Tick()

	if len(toAccumulator) != 1 {
		t.Fatalf("expected one computed_partial carrying the error, got %v", toAccumulator)
	}
	p := toAccumulator[0].Payload.(computedPartialPayload)
	if p.err == nil || p.err.Kind != KindComputeError {
		t.Fatalf("expected a KindComputeError, got %+v", p.err)
	}
}

func TestComputerScheduleComputeIgnoresDuplicateInFlightRequest(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	calls := 0
	counting := compute.Func(func(ctx context.Context, req compute.Request, emit compute.Emit) error {
		calls++
		return nil
	})
	// Use a ThreadPool-like blocking setup isn't needed here since
	// InlinePool runs synchronously; instead verify the in-flight guard by
	// calling handleScheduleCompute twice in a row before any Tick drains
	// the first submission from inFlight.
	spec := RasterSpec{ID: "r1", TileWidth: 2, TileHeight: 2, ComputeFunc: counting, ComputePool: workerpool.NewInlinePool()}
	c := NewComputer(loop, spec, newMetrics(nil))

	tid := cache.TileID{RasterID: "r1", Col: 0, Row: 0, Fingerprint: "f"}
	c.handleScheduleCompute(scheduleComputePayload{tile: tid})
	c.handleScheduleCompute(scheduleComputePayload{tile: tid})

	if calls != 1 {
		t.Fatalf("expected the second schedule_compute for an in-flight tile to be a no-op, got %d calls", calls)
	}
}

func TestComputerCancelComputeCancelsTheInFlightContext(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	var capturedCtx context.Context
	capturing := compute.Func(func(ctx context.Context, req compute.Request, emit compute.Emit) error {
		capturedCtx = ctx
		return nil
	})
	spec := RasterSpec{ID: "r1", TileWidth: 2, TileHeight: 2, ComputeFunc: capturing, ComputePool: workerpool.NewInlinePool()}
	c := NewComputer(loop, spec, newMetrics(nil))

	tid := cache.TileID{RasterID: "r1", Col: 0, Row: 0, Fingerprint: "f"}
	c.handleScheduleCompute(scheduleComputePayload{tile: tid})
	if capturedCtx == nil || capturedCtx.Err() != nil {
		t.Fatalf("expected an uncancelled context before cancel_compute, got err %v", capturedCtx.Err())
	}

	c.handleCancelCompute(cancelComputePayload{tile: tid})
	if capturedCtx.Err() != context.Canceled {
		t.Fatalf("expected cancel_compute to cancel the in-flight context, err = %v", capturedCtx.Err())
	}
}

func TestComputerCancelComputeForAnUnknownTileIsANoop(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	spec := RasterSpec{ID: "r1", TileWidth: 2, TileHeight: 2, ComputePool: workerpool.NewInlinePool()}
	c := NewComputer(loop, spec, newMetrics(nil))

	tid := cache.TileID{RasterID: "r1", Col: 0, Row: 0, Fingerprint: "never-scheduled"}
	c.handleCancelCompute(cancelComputePayload{tile: tid})
}
