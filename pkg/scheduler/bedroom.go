package scheduler

import (
	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
)

// headroomByQuery is the shared bookkeeping both bedroom actors need: the
// last output_queue_update headroom reported per query (spec §4.7/§4.9).
// "Bedrooms do not decide headroom; they block until headroom is
// signalled" (spec §4.2) — this is purely a cache of what was signalled.
type headroomByQuery map[string]int

func (h headroomByQuery) anyPositive(queries map[string]bool) bool {
	for q := range queries {
		if h[q] > 0 {
			return true
		}
	}
	return false
}

// ComputationBedroom holds tiles that CacheHandler wants computed until
// some subscribing query has output-queue headroom, spec §4.7: "the
// central backpressure mechanism for the compute path".
type ComputationBedroom struct {
	loop     *actorbus.Loop
	rasterID string

	headroom headroomByQuery
	waiting  map[cache.TileID]map[string]bool // tile -> subscribing query ids
}

func NewComputationBedroom(loop *actorbus.Loop, rasterID string) *ComputationBedroom {
	b := &ComputationBedroom{
		loop:     loop,
		rasterID: rasterID,
		headroom: make(headroomByQuery),
		waiting:  make(map[cache.TileID]map[string]bool),
	}
	loop.Register(key(rasterID, roleComputationBedroom), b)
	return b
}

func (b *ComputationBedroom) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgScheduleWhenNeed:
		b.handleScheduleWhenNeeded(msg.Payload.(scheduleWhenNeededPayload))
	case msgOutputQueueUpd:
		b.handleOutputQueueUpdate(msg.Payload.(outputQueueUpdatePayload))
	case msgKillQuery:
		b.handleKillQuery(msg.Payload.(killQueryPayload))
	case msgKillRaster:
		b.loop.Unregister(key(b.rasterID, roleComputationBedroom))
	}
}

func (b *ComputationBedroom) handleScheduleWhenNeeded(p scheduleWhenNeededPayload) {
	subs, ok := b.waiting[p.tile]
	if !ok {
		subs = make(map[string]bool)
		b.waiting[p.tile] = subs
	}
	subs[p.queryID] = true
	b.tryRelease(p.tile)
}

func (b *ComputationBedroom) handleOutputQueueUpdate(p outputQueueUpdatePayload) {
	b.headroom[p.queryID] = p.headroom
	for tile, subs := range b.waiting {
		if subs[p.queryID] {
			b.tryRelease(tile)
		}
	}
}

func (b *ComputationBedroom) handleKillQuery(p killQueryPayload) {
	delete(b.headroom, p.queryID)
	for tile, subs := range b.waiting {
		delete(subs, p.queryID)
		if len(subs) == 0 {
			delete(b.waiting, tile)
		}
	}
}

func (b *ComputationBedroom) tryRelease(tile cache.TileID) {
	subs, ok := b.waiting[tile]
	if !ok || !b.headroom.anyPositive(subs) {
		return
	}
	delete(b.waiting, tile)
	b.loop.Emit(actorbus.Message{
		To:      key(b.rasterID, roleComputer),
		Type:    msgScheduleCompute,
		Payload: scheduleComputePayload{tile: tile},
	})
}

// BuilderBedroom holds production arrays Producer wants built until the
// owning query has headroom, spec §4.9: "guarantees that at any time the
// number of in-flight production arrays for a query is ≤ its output queue
// headroom at the moment of release."
//
// Spec §4.3 calls the bedroom's release signal back to Producer "build";
// this implementation tags it msgBuilderReady to keep it distinct from the
// Producer→Builder "build(array, tiles)" message, which carries the
// resolved tile set and is a different payload shape.
type BuilderBedroom struct {
	loop     *actorbus.Loop
	rasterID string

	headroom headroomByQuery
	waiting  map[arrayID]string // array -> owning query id (single-query, no sharing)
}

func NewBuilderBedroom(loop *actorbus.Loop, rasterID string) *BuilderBedroom {
	b := &BuilderBedroom{
		loop:     loop,
		rasterID: rasterID,
		headroom: make(headroomByQuery),
		waiting:  make(map[arrayID]string),
	}
	loop.Register(key(rasterID, roleBuilderBedroom), b)
	return b
}

func (b *BuilderBedroom) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgBuildWhenReady:
		b.handleBuildWhenReady(msg.Payload.(buildWhenReadyPayload))
	case msgOutputQueueUpd:
		b.handleOutputQueueUpdate(msg.Payload.(outputQueueUpdatePayload))
	case msgKillQuery:
		b.handleKillQuery(msg.Payload.(killQueryPayload))
	case msgKillRaster:
		b.loop.Unregister(key(b.rasterID, roleBuilderBedroom))
	}
}

func (b *BuilderBedroom) handleBuildWhenReady(p buildWhenReadyPayload) {
	b.waiting[p.id] = p.queryID
	b.tryRelease(p.id)
}

func (b *BuilderBedroom) handleOutputQueueUpdate(p outputQueueUpdatePayload) {
	b.headroom[p.queryID] = p.headroom
	for id, qid := range b.waiting {
		if qid == p.queryID {
			b.tryRelease(id)
		}
	}
}

func (b *BuilderBedroom) handleKillQuery(p killQueryPayload) {
	delete(b.headroom, p.queryID)
	for id, qid := range b.waiting {
		if qid == p.queryID {
			delete(b.waiting, id)
		}
	}
}

func (b *BuilderBedroom) tryRelease(id arrayID) {
	qid, ok := b.waiting[id]
	if !ok || b.headroom[qid] <= 0 {
		return
	}
	delete(b.waiting, id)
	b.loop.Emit(actorbus.Message{
		To:      key(b.rasterID, roleProducer),
		Type:    msgBuilderReady,
		Payload: builderReadyPayload{queryID: qid, id: id},
	})
}
