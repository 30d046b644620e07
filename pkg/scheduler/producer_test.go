package scheduler

import (
	"testing"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
)

func TestProducerOnlyBuildsOnceTilesReadyAndBuilderReleased(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	NewProducer(loop, "r1")
	var toBuilder []actorbus.Message
	captureActor(loop, key("r1", roleBuilder), &toBuilder)
	var toCacheHandler []actorbus.Message
	captureActor(loop, key("r1", roleCacheHandler), &toCacheHandler)
	var toBuilderBedroom []actorbus.Message
	captureActor(loop, key("r1", roleBuilderBedroom), &toBuilderBedroom)

	tid := cache.TileID{RasterID: "r1", Col: 0, Row: 0, Fingerprint: "f"}
	aid := arrayID{queryID: "q1", col: 0, row: 0}
	arr := &productionArray{id: aid, tileIDs: []cache.TileID{tid}}

	loop.Deliver(actorbus.Message{
		To:      key("r1", roleProducer),
		Type:    msgMakeArrays,
		Payload: makeArraysPayload{queryID: "q1", arrays: []*productionArray{arr}},
	})
	if len(toCacheHandler) != 1 || len(toBuilderBedroom) != 1 {
		t.Fatalf("expected one may_i_read and one build_when_ready emitted, got %d/%d", len(toCacheHandler), len(toBuilderBedroom))
	}
	if len(toBuilder) != 0 {
		t.Fatalf("should not build before tiles are ready or builder has released, got %v", toBuilder)
	}

	// Tiles become ready first; still shouldn't build without release.
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleProducer),
		Type:    msgYouMayRead,
		Payload: youMayReadPayload{queryID: "q1", arrayID: aid, tiles: []cache.TileID{tid}},
	})
	if len(toBuilder) != 0 {
		t.Fatalf("should not build before BuilderBedroom releases, got %v", toBuilder)
	}

	// Now BuilderBedroom releases it.
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleProducer),
		Type:    msgBuilderReady,
		Payload: builderReadyPayload{queryID: "q1", id: aid},
	})
	if len(toBuilder) != 1 || toBuilder[0].Type != msgBuild {
		t.Fatalf("expected exactly one build message once both conditions hold, got %v", toBuilder)
	}
}

func TestProducerBuildsImmediatelyWhenReleaseArrivesAfterTilesReady(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	NewProducer(loop, "r1")
	var toBuilder []actorbus.Message
	captureActor(loop, key("r1", roleBuilder), &toBuilder)
	captureActor(loop, key("r1", roleCacheHandler), &[]actorbus.Message{})
	captureActor(loop, key("r1", roleBuilderBedroom), &[]actorbus.Message{})

	tid := cache.TileID{RasterID: "r1", Col: 0, Row: 0, Fingerprint: "f"}
	aid := arrayID{queryID: "q1", col: 0, row: 0}
	arr := &productionArray{id: aid, tileIDs: []cache.TileID{tid}}

	loop.Deliver(actorbus.Message{
		To:      key("r1", roleProducer),
		Type:    msgMakeArrays,
		Payload: makeArraysPayload{queryID: "q1", arrays: []*productionArray{arr}},
	})
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleProducer),
		Type:    msgBuilderReady,
		Payload: builderReadyPayload{queryID: "q1", id: aid},
	})
	if len(toBuilder) != 0 {
		t.Fatalf("should not build before tiles ready, got %v", toBuilder)
	}
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleProducer),
		Type:    msgYouMayRead,
		Payload: youMayReadPayload{queryID: "q1", arrayID: aid, tiles: []cache.TileID{tid}},
	})
	if len(toBuilder) != 1 {
		t.Fatalf("expected build once the second condition is satisfied, got %v", toBuilder)
	}
}

func TestProducerHandleBuiltForwardsToQueriesHandlerAndClearsEntry(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	p := NewProducer(loop, "r1")
	var toQueriesHandler []actorbus.Message
	captureActor(loop, key("r1", roleQueriesHandler), &toQueriesHandler)

	aid := arrayID{queryID: "q1", col: 0, row: 0}
	p.entries[aid] = &producerEntry{queryID: "q1", ready: make(map[cache.TileID]bool)}

	loop.Deliver(actorbus.Message{
		To:      key("r1", roleProducer),
		Type:    msgBuilt,
		Payload: builtPayload{queryID: "q1", id: aid},
	})

	if _, ok := p.entries[aid]; ok {
		t.Fatalf("expected entry cleared after built")
	}
	if len(toQueriesHandler) != 1 || toQueriesHandler[0].Type != msgMadeArray {
		t.Fatalf("expected made_array forwarded to QueriesHandler, got %v", toQueriesHandler)
	}
}

func TestProducerKillQueryRemovesOnlyMatchingEntries(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	p := NewProducer(loop, "r1")

	a1 := arrayID{queryID: "q1", col: 0, row: 0}
	a2 := arrayID{queryID: "q2", col: 0, row: 0}
	p.entries[a1] = &producerEntry{queryID: "q1", ready: make(map[cache.TileID]bool)}
	p.entries[a2] = &producerEntry{queryID: "q2", ready: make(map[cache.TileID]bool)}

	loop.Deliver(actorbus.Message{
		To:      key("r1", roleProducer),
		Type:    msgKillQuery,
		Payload: killQueryPayload{queryID: "q1"},
	})

	if _, ok := p.entries[a1]; ok {
		t.Fatalf("expected q1's entry removed")
	}
	if _, ok := p.entries[a2]; !ok {
		t.Fatalf("expected q2's entry left intact")
	}
}
