package scheduler

import (
	"github.com/preligens-lab/buzzard/pkg/actorbus"
)

// RastersHandler is the single global actor, spec §4.1: it owns the
// raster-id → raster-state map, instantiates a raster's whole per-raster
// actor set on registration, and tears it down — reference-counted on open
// queries — on close.
type RastersHandler struct {
	loop    *actorbus.Loop
	rasters map[string]*rasterState
	metrics *metrics
}

// NewRastersHandler constructs and registers the one global RastersHandler
// on loop. m is shared across every raster registered on it.
func NewRastersHandler(loop *actorbus.Loop, m *metrics) *RastersHandler {
	h := &RastersHandler{loop: loop, rasters: make(map[string]*rasterState), metrics: m}
	loop.Register(key("", roleRastersHandler), h)
	loop.AddPoller(actorbus.PollerFunc(h.poll))
	return h
}

func (h *RastersHandler) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgRegisterRaster:
		h.handleRegisterRaster(msg.Payload.(registerRasterPayload))
	case msgCloseRaster:
		h.handleCloseRaster(msg.Payload.(closeRasterPayload))
	case msgPostQuery:
		h.forwardPostQuery(msg.Payload.(postQueryPayload))
	case msgQueryGone:
		h.handleQueryGone(msg.Payload.(killQueryPayload))
	}
}

func (h *RastersHandler) handleRegisterRaster(p registerRasterPayload) {
	spec := p.spec
	h.rasters[spec.ID] = &rasterState{spec: spec, openQueries: make(map[string]bool)}

	NewCacheHandler(h.loop, spec.ID, h.metrics)
	NewFileHasher(h.loop, spec.ID, spec.Store, spec.IOPool)
	NewComputationBedroom(h.loop, spec.ID)
	NewComputer(h.loop, spec, h.metrics)
	NewAccumulator(h.loop, spec)
	NewMerger(h.loop, spec)
	NewWriter(h.loop, spec.ID, spec.Store, spec.IOPool)
	NewBuilderBedroom(h.loop, spec.ID)
	NewSampler(h.loop, spec.ID, spec.Store, spec.Channels, spec.ResamplePool)
	NewResampler(h.loop, spec.ID, spec.Transform, spec.ResamplePool)
	NewBuilder(h.loop, spec.ID, spec.Transform)
	NewProducer(h.loop, spec.ID)
	NewQueriesHandler(h.loop, spec, h.metrics)

	p.done <- spec.ID
}

func (h *RastersHandler) forwardPostQuery(p postQueryPayload) {
	rs, ok := h.rasters[p.spec.RasterID]
	if !ok {
		p.done <- postQueryResult{err: &Error{Kind: KindConfigError, QueryID: p.queryID, Err: errUnknownRaster(p.spec.RasterID)}}
		return
	}
	rs.openQueries[p.queryID] = true
	h.loop.Emit(actorbus.Message{
		To:      key(p.spec.RasterID, roleQueriesHandler),
		Type:    msgPostQuery,
		Payload: p,
	})
}

func (h *RastersHandler) handleQueryGone(p killQueryPayload) {
	for _, rs := range h.rasters {
		delete(rs.openQueries, p.queryID)
	}
}

// handleCloseRaster marks a raster closing; poll() finishes the teardown
// once every query referencing it has terminated (spec §4.1: "Close is
// reference-counted: a raster is torn down only after all its queries have
// terminated").
func (h *RastersHandler) handleCloseRaster(p closeRasterPayload) {
	if rs, ok := h.rasters[p.rasterID]; ok {
		rs.closing = true
	}
}

// poll tears down any raster that's closing and has no open queries left,
// broadcasting kill_raster to every actor owning state for it (spec
// §4.1's tick behavior).
func (h *RastersHandler) poll() {
	for id, rs := range h.rasters {
		if !rs.closing || len(rs.openQueries) > 0 {
			continue
		}
		for _, role := range []string{
			roleQueriesHandler, roleProducer, roleCacheHandler, roleFileHasher,
			roleComputer, roleComputationBedroom, roleAccumulator, roleMerger,
			roleWriter, roleBuilderBedroom, roleBuilder, roleSampler, roleResampler,
		} {
			h.loop.Emit(actorbus.Message{To: key(id, role), Type: msgKillRaster})
		}
		delete(h.rasters, id)
	}
}

type unknownRasterErr string

func (e unknownRasterErr) Error() string { return "scheduler: unknown raster " + string(e) }

func errUnknownRaster(id string) error { return unknownRasterErr(id) }
