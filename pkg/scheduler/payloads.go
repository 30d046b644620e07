package scheduler

import (
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/compute"
)

// Payload types carried by actorbus.Message.Payload, one per message type
// tag in messages.go. Every actor type-asserts its expected payload; a
// mismatch is an InternalInvariantViolated bug, never a runtime panic path
// a caller can trigger.

type registerRasterPayload struct {
	spec RasterSpec
	done chan<- string
}

type closeRasterPayload struct {
	rasterID string
}

type killRasterPayload struct {
	rasterID string
}

type postQueryPayload struct {
	queryID string
	spec    QuerySpec
	done    chan<- postQueryResult
}

type postQueryResult struct {
	out *outputQueue
	err *Error
}

type killQueryPayload struct {
	queryID string
}

type queryFailedPayload struct {
	queryID string
	err     *Error
}

type makeArraysPayload struct {
	queryID string
	arrays  []*productionArray
}

type madeArrayPayload struct {
	queryID string
	id      arrayID
	data    compute.Array
	err     *Error
}

type outputQueueUpdatePayload struct {
	queryID  string
	headroom int
}

type mayIReadPayload struct {
	queryID string
	arrayID arrayID
	tiles   []cache.TileID
}

type youMayReadPayload struct {
	queryID string
	arrayID arrayID
	tiles   []cache.TileID
}

type buildWhenReadyPayload struct {
	queryID string
	id      arrayID
	tiles   []cache.TileID
}

type builderReadyPayload struct {
	queryID string
	id      arrayID
}

type buildPayload struct {
	queryID string
	id      arrayID
	tiles   []cache.TileID
}

type builtPayload struct {
	queryID string
	id      arrayID
	data    compute.Array
	err     *Error
}

type samplePayload struct {
	queryID string
	id      arrayID
	tiles   []cache.TileID
}

type sampledPayload struct {
	queryID string
	id      arrayID
	arrays  []compute.Array
	err     *Error
}

type resamplePayload struct {
	queryID string
	id      arrayID
	arrays  []compute.Array
}

type resampledPayload struct {
	queryID string
	id      arrayID
	data    compute.Array
	err     *Error
}

type computeTilesPayload struct {
	tiles []cache.TileID
	// queryID is the query whose may_i_read request first triggered
	// this tile's compute, per spec §4.4's tie-break rule ("only the
	// first request triggers compute_tiles; others are attached as
	// subscribers"). ComputationBedroom gates release on this query's
	// headroom; later subscribers of the same tile ride along once it's
	// released, they don't each re-arm the bedroom.
	queryID string
}

type scheduleWhenNeededPayload struct {
	tile    cache.TileID
	queryID string
}

type scheduleComputePayload struct {
	tile cache.TileID
}

// cancelComputePayload asks Computer to cancel a tile's in-flight compute
// because its last subscriber was just killed (spec §5, invariant 3).
type cancelComputePayload struct {
	tile cache.TileID
}

type computedPartialPayload struct {
	tile    cache.TileID
	partial compute.Partial
	err     *Error
}

type mergePayload struct {
	tile     cache.TileID
	partials []compute.Partial
}

type writePayload struct {
	tile cache.TileID
	data compute.Array
}

type wroteTilePayload struct {
	tile cache.TileID
}

type wroteFailedPayload struct {
	tile cache.TileID
	err  *Error
}

type statusRequestPayload struct {
	tile cache.TileID
}

type statusPayload struct {
	tile   cache.TileID
	status cache.Status
}
