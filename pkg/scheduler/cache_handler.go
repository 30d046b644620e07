package scheduler

import (
	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
)

type tileState int

const (
	tileAbsent tileState = iota
	tileChecking
	tileValid
	tileComputing
	tileMerging
	tileWriting
)

// tileEntry is CacheHandler's per-tile bookkeeping, spec §4.4: state plus
// the set of outstanding may_i_read requests waiting on it.
type tileEntry struct {
	state       tileState
	subscribers map[arrayID]string // arrayID -> owning queryID, for kill_query cleanup
	// triggeringQuery is the query that moved this tile out of ABSENT,
	// carried along to compute_tiles per the tie-break rule (spec §4.4).
	triggeringQuery string
}

// CacheHandler is the per-raster authority on tile state spec §4.4
// describes. It never touches disk itself; FileHasher, Writer and the
// compute pipeline do that and report back via status/wrote_tile.
type CacheHandler struct {
	loop     *actorbus.Loop
	rasterID string
	metrics  *metrics

	tiles map[cache.TileID]*tileEntry
}

// NewCacheHandler constructs a CacheHandler for one raster and registers it
// on loop.
func NewCacheHandler(loop *actorbus.Loop, rasterID string, m *metrics) *CacheHandler {
	h := &CacheHandler{loop: loop, rasterID: rasterID, metrics: m, tiles: make(map[cache.TileID]*tileEntry)}
	loop.Register(key(rasterID, roleCacheHandler), h)
	return h
}

func (h *CacheHandler) entry(id cache.TileID) *tileEntry {
	e, ok := h.tiles[id]
	if !ok {
		e = &tileEntry{state: tileAbsent, subscribers: make(map[arrayID]string)}
		h.tiles[id] = e
	}
	return e
}

func (h *CacheHandler) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgMayIRead:
		h.handleMayIRead(msg.Payload.(mayIReadPayload))
	case msgStatus:
		h.handleStatus(msg.Payload.(statusPayload))
	case msgWroteTile:
		h.handleWroteTile(msg.Payload.(wroteTilePayload))
	case msgWroteFailed:
		h.handleWroteFailed(msg.Payload.(wroteFailedPayload))
	case msgKillQuery:
		h.handleKillQuery(msg.Payload.(killQueryPayload))
	case msgKillRaster:
		h.loop.Unregister(key(h.rasterID, roleCacheHandler))
	}
}

// handleMayIRead implements spec §4.4's read-request dispatch: VALID tiles
// answer immediately, ABSENT tiles trigger a check, everything else just
// gains a subscriber.
func (h *CacheHandler) handleMayIRead(p mayIReadPayload) {
	var readyNow []cache.TileID
	for _, t := range p.tiles {
		e := h.entry(t)
		switch e.state {
		case tileValid:
			h.metrics.cacheHits.Inc()
			readyNow = append(readyNow, t)
		case tileAbsent:
			e.state = tileChecking
			e.subscribers[p.arrayID] = p.queryID
			e.triggeringQuery = p.queryID
			h.loop.Emit(actorbus.Message{
				To:      key(h.rasterID, roleFileHasher),
				Type:    msgStatusRequest,
				Payload: statusRequestPayload{tile: t},
			})
		default:
			e.subscribers[p.arrayID] = p.queryID
		}
	}
	if len(readyNow) > 0 {
		h.loop.Emit(actorbus.Message{
			To:   key(h.rasterID, roleProducer),
			Type: msgYouMayRead,
			Payload: youMayReadPayload{
				queryID: p.queryID,
				arrayID: p.arrayID,
				tiles:   readyNow,
			},
		})
	}
}

// handleStatus implements spec §4.4's status(VALID|CORRUPT) handling: VALID
// notifies every subscriber; CORRUPT (whose file FileHasher has already
// deleted before reporting) and MISSING both go to the compute path.
func (h *CacheHandler) handleStatus(p statusPayload) {
	e := h.entry(p.tile)
	switch p.status {
	case cache.StatusValid:
		e.state = tileValid
		h.notifySubscribers(p.tile, e)
	case cache.StatusCorrupt, cache.StatusMissing:
		if p.status == cache.StatusCorrupt {
			h.metrics.corruptTiles.Inc()
		} else {
			h.metrics.cacheMisses.Inc()
		}
		e.state = tileComputing
		h.loop.Emit(actorbus.Message{
			To:      key(h.rasterID, roleComputer),
			Type:    msgComputeTiles,
			Payload: computeTilesPayload{tiles: []cache.TileID{p.tile}, queryID: e.triggeringQuery},
		})
	}
}

func (h *CacheHandler) notifySubscribers(t cache.TileID, e *tileEntry) {
	byQuery := make(map[string][]arrayID)
	for aid, qid := range e.subscribers {
		byQuery[qid] = append(byQuery[qid], aid)
	}
	for qid, arrays := range byQuery {
		for _, aid := range arrays {
			h.loop.Emit(actorbus.Message{
				To:   key(h.rasterID, roleProducer),
				Type: msgYouMayRead,
				Payload: youMayReadPayload{
					queryID: qid,
					arrayID: aid,
					tiles:   []cache.TileID{t},
				},
			})
		}
	}
	e.subscribers = make(map[arrayID]string)
}

// handleWroteTile moves the tile to VALID. A tile stays COMPUTING from
// compute_tiles until wrote_tile or wrote_failed arrives; the MERGING and
// WRITING states are declared but never entered.
func (h *CacheHandler) handleWroteTile(p wroteTilePayload) {
	e := h.entry(p.tile)
	e.state = tileValid
	h.notifySubscribers(p.tile, e)
}

// handleWroteFailed returns the tile to ABSENT so the next demand retries
// it (spec §4.13: "Cache-tile write failures do not poison other queries:
// the tile returns to ABSENT and may be retried on next demand"), and fails
// every subscribing query.
func (h *CacheHandler) handleWroteFailed(p wroteFailedPayload) {
	e := h.entry(p.tile)
	e.state = tileAbsent
	byQuery := make(map[string]bool)
	for _, qid := range e.subscribers {
		byQuery[qid] = true
	}
	e.subscribers = make(map[arrayID]string)
	for qid := range byQuery {
		h.loop.Emit(actorbus.Message{
			To:      key(h.rasterID, roleQueriesHandler),
			Type:    msgQueryFailed,
			Payload: queryFailedPayload{queryID: qid, err: p.err},
		})
	}
}

// handleKillQuery drops every subscriber entry belonging to queryID,
// satisfying spec invariant 3 ("a killed query releases all of its
// reservations... before it is forgotten"). A tile left with zero
// subscribers while still COMPUTING had the killed query as its only
// interested party, so its in-flight compute is itself cancelled (spec
// §5, scenario S5: "any tile whose only subscriber was the query has its
// compute cancelled").
func (h *CacheHandler) handleKillQuery(p killQueryPayload) {
	for t, e := range h.tiles {
		for aid, qid := range e.subscribers {
			if qid == p.queryID {
				delete(e.subscribers, aid)
			}
		}
		if e.state == tileComputing && len(e.subscribers) == 0 {
			h.loop.Emit(actorbus.Message{
				To:      key(h.rasterID, roleComputer),
				Type:    msgCancelCompute,
				Payload: cancelComputePayload{tile: t},
			})
		}
	}
}
