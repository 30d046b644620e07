package scheduler

import (
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/compute"
	"github.com/preligens-lab/buzzard/pkg/footprint"
)

// Ordering picks the delivery order of a query's production arrays. Spec
// §3: "an ordering policy for delivery (e.g. row-major, spiral, user
// order)".
type Ordering int

const (
	// OrderRowMajor delivers arrays left-to-right, top-to-bottom.
	OrderRowMajor Ordering = iota
	// OrderSpiral delivers arrays outward from the footprint's center,
	// useful for progressive-refinement consumers.
	OrderSpiral
)

// arrayID identifies one production array within one query: the
// (query-id, footprint-tile-index) pair spec §3 names.
type arrayID struct {
	queryID string
	col     int
	row     int
}

// queryLifecycle is the state machine of spec §4.12.
type queryLifecycle int

const (
	lifecyclePosted queryLifecycle = iota
	lifecyclePlanned
	lifecycleDraining
	lifecycleDone
	lifecycleCancelling
	lifecycleGone
)

// arrayLifecycle is the production-array state machine of spec §3:
// "planned → waiting-on-tiles → sampled → resampled → delivered".
type arrayLifecycle int

const (
	arrayPlanned arrayLifecycle = iota
	arrayWaitingOnTiles
	arraySampled
	arrayResampled
	arrayDelivered
)

// productionArray is QueriesHandler/Producer's bookkeeping for one
// arrayID: its place in delivery order, the tiles it depends on, and its
// lifecycle stage.
type productionArray struct {
	id       arrayID
	seq      int // position in the query's delivery order
	tile     footprint.Tile
	state    arrayLifecycle
	data     compute.Array
	tileIDs  []cache.TileID // cache tiles this array depends on, computed at plan time
}

// QuerySpec is what a caller supplies to PostQuery: the target footprint,
// channel subset, delivery order, and output queue capacity Q.
type QuerySpec struct {
	RasterID      string
	Footprint     footprint.Footprint
	Channels      []string
	Ordering      Ordering
	QueueCapacity int
}

// queryState is QueriesHandler's per-query bookkeeping.
type queryState struct {
	id   string
	spec QuerySpec

	lifecycle queryLifecycle

	arrays      []*productionArray // in delivery order
	nextToPlan  int                // index of the next array to hand to Producer
	nextToDrain int                // index of the next array owed to the output queue, in order

	inFlight int // production arrays requested from Producer but not yet made_array'd

	out *outputQueue

	cancelled bool
	err       *Error
}
