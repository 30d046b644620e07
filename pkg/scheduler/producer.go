package scheduler

import (
	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
)

// producerEntry tracks one in-flight production array: the tiles it needs,
// which of them CacheHandler has confirmed readable, and whether
// BuilderBedroom has released it to build. Builder only starts once both
// are true (spec §4.3).
type producerEntry struct {
	queryID  string
	tiles    []cache.TileID
	ready    map[cache.TileID]bool
	released bool
}

func (e *producerEntry) allReady() bool {
	for _, t := range e.tiles {
		if !e.ready[t] {
			return false
		}
	}
	return true
}

// Producer turns make_arrays requests into build requests, spec §4.3.
type Producer struct {
	loop     *actorbus.Loop
	rasterID string

	entries map[arrayID]*producerEntry
}

func NewProducer(loop *actorbus.Loop, rasterID string) *Producer {
	p := &Producer{loop: loop, rasterID: rasterID, entries: make(map[arrayID]*producerEntry)}
	loop.Register(key(rasterID, roleProducer), p)
	return p
}

func (p *Producer) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgMakeArrays:
		p.handleMakeArrays(msg.Payload.(makeArraysPayload))
	case msgYouMayRead:
		p.handleYouMayRead(msg.Payload.(youMayReadPayload))
	case msgBuilderReady:
		p.handleBuilderReady(msg.Payload.(builderReadyPayload))
	case msgBuilt:
		p.handleBuilt(msg.Payload.(builtPayload))
	case msgKillQuery:
		p.handleKillQuery(msg.Payload.(killQueryPayload))
	case msgKillRaster:
		p.loop.Unregister(key(p.rasterID, roleProducer))
	}
}

func (p *Producer) handleMakeArrays(m makeArraysPayload) {
	for _, arr := range m.arrays {
		entry := &producerEntry{queryID: m.queryID, tiles: arr.tileIDs, ready: make(map[cache.TileID]bool)}
		p.entries[arr.id] = entry

		p.loop.Emit(actorbus.Message{
			To:      key(p.rasterID, roleCacheHandler),
			Type:    msgMayIRead,
			Payload: mayIReadPayload{queryID: m.queryID, arrayID: arr.id, tiles: arr.tileIDs},
		})
		p.loop.Emit(actorbus.Message{
			To:      key(p.rasterID, roleBuilderBedroom),
			Type:    msgBuildWhenReady,
			Payload: buildWhenReadyPayload{queryID: m.queryID, id: arr.id, tiles: arr.tileIDs},
		})
	}
}

func (p *Producer) handleYouMayRead(m youMayReadPayload) {
	e, ok := p.entries[m.arrayID]
	if !ok {
		return
	}
	for _, t := range m.tiles {
		e.ready[t] = true
	}
	p.maybeBuild(m.arrayID, e)
}

func (p *Producer) handleBuilderReady(m builderReadyPayload) {
	e, ok := p.entries[m.id]
	if !ok {
		return
	}
	e.released = true
	p.maybeBuild(m.id, e)
}

func (p *Producer) maybeBuild(id arrayID, e *producerEntry) {
	if !e.released || !e.allReady() {
		return
	}
	p.loop.Emit(actorbus.Message{
		To:      key(p.rasterID, roleBuilder),
		Type:    msgBuild,
		Payload: buildPayload{queryID: e.queryID, id: id, tiles: e.tiles},
	})
}

func (p *Producer) handleBuilt(m builtPayload) {
	delete(p.entries, m.id)
	p.loop.Emit(actorbus.Message{
		To:      key(p.rasterID, roleQueriesHandler),
		Type:    msgMadeArray,
		Payload: madeArrayPayload{queryID: m.queryID, id: m.id, data: m.data, err: m.err},
	})
}

func (p *Producer) handleKillQuery(m killQueryPayload) {
	for id, e := range p.entries {
		if e.queryID == m.queryID {
			delete(p.entries, id)
		}
	}
}
