package scheduler

import (
	"fmt"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/footprint"
)

// QueriesHandler tracks every posted query for one raster and drives
// planning, headroom accounting, and ordered delivery, spec §4.2. "All
// decisions to start new work pass through headroom accounting here" —
// Producer and the bedrooms never compute headroom themselves.
type QueriesHandler struct {
	loop     *actorbus.Loop
	rasterID string
	spec     RasterSpec

	queries map[string]*queryState
	metrics *metrics
}

func NewQueriesHandler(loop *actorbus.Loop, spec RasterSpec, m *metrics) *QueriesHandler {
	h := &QueriesHandler{loop: loop, rasterID: spec.ID, spec: spec, queries: make(map[string]*queryState), metrics: m}
	loop.Register(key(spec.ID, roleQueriesHandler), h)
	loop.AddPoller(actorbus.PollerFunc(h.poll))
	return h
}

func (h *QueriesHandler) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgPostQuery:
		h.handlePostQuery(msg.Payload.(postQueryPayload))
	case msgMadeArray:
		h.handleMadeArray(msg.Payload.(madeArrayPayload))
	case msgQueryFailed:
		h.handleQueryFailed(msg.Payload.(queryFailedPayload))
	case msgKillQuery:
		h.handleKillQuery(msg.Payload.(killQueryPayload))
	case msgKillRaster:
		h.handleKillRaster()
	}
}

// handlePostQuery plans the query's full production-array list up front
// (spec §4.2 step 1) and answers synchronously via done, matching the
// public API's ConfigError contract (spec §7: "surfaced synchronously at
// post time").
func (h *QueriesHandler) handlePostQuery(p postQueryPayload) {
	if p.spec.QueueCapacity < 1 {
		p.done <- postQueryResult{err: &Error{Kind: KindConfigError, QueryID: p.queryID, Err: fmt.Errorf("queue capacity must be >= 1, got %d", p.spec.QueueCapacity)}}
		return
	}

	blocks := footprint.TilesOverlapping(0, 0, p.spec.Footprint.Width, p.spec.Footprint.Height, h.spec.TileWidth, h.spec.TileHeight)
	if len(blocks) == 0 {
		p.done <- postQueryResult{err: &Error{Kind: KindConfigError, QueryID: p.queryID, Err: fmt.Errorf("query footprint does not overlap raster %s", h.rasterID)}}
		return
	}
	orderBlocks(p.spec.Ordering, blocks)

	arrays := make([]*productionArray, len(blocks))
	for i, b := range blocks {
		tid := h.tileID(b)
		arrays[i] = &productionArray{
			id:      arrayID{queryID: p.queryID, col: b.Col, row: b.Row},
			seq:     i,
			tile:    b,
			state:   arrayPlanned,
			tileIDs: []cache.TileID{tid},
		}
	}

	qs := &queryState{
		id:        p.queryID,
		spec:      p.spec,
		lifecycle: lifecyclePlanned,
		arrays:    arrays,
		out:       newOutputQueue(p.spec.QueueCapacity),
	}
	h.queries[p.queryID] = qs
	h.metrics.queriesActive.Inc()
	p.done <- postQueryResult{out: qs.out}
}

func (h *QueriesHandler) tileID(t footprint.Tile) cache.TileID {
	fp := cache.Compute(cache.Inputs{
		RasterID:           h.rasterID,
		TileCol:            t.Col,
		TileRow:            t.Row,
		TileWidth:          t.TileWidth,
		TileHeight:         t.TileHeight,
		Channels:           h.spec.Channels,
		ComputeFuncID:      h.rasterID,
		ComputeFuncVersion: h.spec.ComputeFuncVersion,
	})
	return cache.TileID{RasterID: h.rasterID, Col: t.Col, Row: t.Row, Fingerprint: fp}
}

// poll implements spec §4.2 steps 2-3 once per tick: compute allowed
// concurrency, ask Producer for that many new arrays, then drain whatever
// has completed in delivery order.
func (h *QueriesHandler) poll() {
	for qid, qs := range h.queries {
		if qs.lifecycle == lifecycleCancelling || qs.lifecycle == lifecycleGone {
			continue
		}
		h.plan(qs)
		h.drain(qid, qs)
	}
}

func (h *QueriesHandler) plan(qs *queryState) {
	undelivered := qs.out.undeliveredCount()
	allowed := qs.spec.QueueCapacity - undelivered - qs.inFlight
	if allowed <= 0 {
		return
	}
	var next []*productionArray
	for allowed > 0 && qs.nextToPlan < len(qs.arrays) {
		next = append(next, qs.arrays[qs.nextToPlan])
		qs.nextToPlan++
		allowed--
	}
	if len(next) == 0 {
		return
	}
	qs.inFlight += len(next)
	h.loop.Emit(actorbus.Message{
		To:      key(h.rasterID, roleProducer),
		Type:    msgMakeArrays,
		Payload: makeArraysPayload{queryID: qs.id, arrays: next},
	})
}

func (h *QueriesHandler) handleMadeArray(p madeArrayPayload) {
	qs, ok := h.queries[p.queryID]
	if !ok {
		return
	}
	qs.inFlight--
	if p.err != nil {
		h.fail(p.queryID, qs, p.err)
		return
	}
	for _, a := range qs.arrays {
		if a.id == p.id {
			a.data = p.data
			a.state = arrayDelivered
			break
		}
	}
}

// drain pushes every completed array whose turn has come, strictly in
// delivery order (spec §3: "delivered sub-arrays form a prefix of the
// query's ordering policy"), then broadcasts new headroom to both
// bedrooms.
func (h *QueriesHandler) drain(qid string, qs *queryState) {
	drained := false
	for qs.nextToDrain < len(qs.arrays) {
		a := qs.arrays[qs.nextToDrain]
		if a.state != arrayDelivered {
			break
		}
		qs.out.push(outputQueueItem{seq: a.seq, array: a.data})
		h.metrics.arraysDelivered.Inc()
		qs.nextToDrain++
		drained = true
	}
	if qs.nextToDrain == len(qs.arrays) && qs.lifecycle != lifecycleDone {
		qs.lifecycle = lifecycleDone
		qs.out.push(outputQueueItem{end: true})
		h.metrics.queriesActive.Dec()
		h.loop.Emit(actorbus.Message{To: key("", roleRastersHandler), Type: msgQueryGone, Payload: killQueryPayload{queryID: qid}})
	} else if qs.lifecycle == lifecyclePlanned {
		qs.lifecycle = lifecycleDraining
	}

	if drained || qs.nextToPlan > 0 {
		// plan already counts released arrays as in flight, and those are
		// exactly what the bedrooms hold, so they get the output queue's
		// free space rather than that space minus in-flight work.
		headroom := qs.spec.QueueCapacity - qs.out.undeliveredCount()
		h.broadcastHeadroom(qid, headroom)
	}
}

func (h *QueriesHandler) broadcastHeadroom(qid string, headroom int) {
	h.loop.Emit(actorbus.Message{
		To:      key(h.rasterID, roleComputationBedroom),
		Type:    msgOutputQueueUpd,
		Payload: outputQueueUpdatePayload{queryID: qid, headroom: headroom},
	})
	h.loop.Emit(actorbus.Message{
		To:      key(h.rasterID, roleBuilderBedroom),
		Type:    msgOutputQueueUpd,
		Payload: outputQueueUpdatePayload{queryID: qid, headroom: headroom},
	})
}

func (h *QueriesHandler) fail(qid string, qs *queryState, err *Error) {
	qs.err = err
	qs.lifecycle = lifecycleCancelling
	qs.out.push(outputQueueItem{err: err})
	h.broadcastKill(qid)
	delete(h.queries, qid)
	h.metrics.queriesActive.Dec()
	h.loop.Emit(actorbus.Message{To: key("", roleRastersHandler), Type: msgQueryGone, Payload: killQueryPayload{queryID: qid}})
}

func (h *QueriesHandler) handleQueryFailed(p queryFailedPayload) {
	qs, ok := h.queries[p.queryID]
	if !ok || qs.lifecycle == lifecycleCancelling || qs.lifecycle == lifecycleGone {
		return
	}
	h.fail(p.queryID, qs, p.err)
}

// handleKillQuery implements user cancellation (spec §4.12): broadcast
// kill_query depth-first to Producer, CacheHandler, both bedrooms,
// Computer and Builder, then mark this query gone. Sampler, Resampler and
// Accumulator are not sent kill_query, so work they already hold for the
// query is not cancelled. QueriesHandler itself doesn't wait for
// acknowledgements — each receiving actor drops its own state
// synchronously within Handle.
func (h *QueriesHandler) handleKillQuery(p killQueryPayload) {
	qs, ok := h.queries[p.queryID]
	if !ok {
		return
	}
	if qs.lifecycle != lifecycleCancelling && qs.lifecycle != lifecycleDone {
		qs.lifecycle = lifecycleCancelling
		qs.out.push(outputQueueItem{err: &Error{Kind: KindUserCancelled, QueryID: p.queryID}})
		h.broadcastKill(p.queryID)
		h.metrics.queriesActive.Dec()
	}
	delete(h.queries, p.queryID)
	h.loop.Emit(actorbus.Message{To: key("", roleRastersHandler), Type: msgQueryGone, Payload: killQueryPayload{queryID: p.queryID}})
}

func (h *QueriesHandler) broadcastKill(qid string) {
	for _, role := range []string{roleProducer, roleCacheHandler, roleComputationBedroom, roleBuilderBedroom, roleComputer, roleBuilder} {
		h.loop.Emit(actorbus.Message{To: key(h.rasterID, role), Type: msgKillQuery, Payload: killQueryPayload{queryID: qid}})
	}
}

func (h *QueriesHandler) handleKillRaster() {
	for qid := range h.queries {
		h.broadcastKill(qid)
	}
	h.queries = make(map[string]*queryState)
	h.loop.Unregister(key(h.rasterID, roleQueriesHandler))
}

// orderBlocks rearranges blocks in place to match the requested delivery
// order. Row-major is TilesOverlapping's natural iteration order already;
// spiral reorders outward from the block grid's center.
func orderBlocks(ordering Ordering, blocks []footprint.Tile) {
	if ordering != OrderSpiral || len(blocks) < 2 {
		return
	}
	centerCol, centerRow := 0, 0
	for _, b := range blocks {
		centerCol += b.Col
		centerRow += b.Row
	}
	centerCol /= len(blocks)
	centerRow /= len(blocks)

	dist := func(b footprint.Tile) int {
		dc, dr := b.Col-centerCol, b.Row-centerRow
		if dc < 0 {
			dc = -dc
		}
		if dr < 0 {
			dr = -dr
		}
		return dc + dr
	}
	for i := 1; i < len(blocks); i++ {
		j := i
		for j > 0 && dist(blocks[j]) < dist(blocks[j-1]) {
			blocks[j], blocks[j-1] = blocks[j-1], blocks[j]
			j--
		}
	}
}
