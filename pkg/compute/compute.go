// Package compute defines the user compute-function contract spec §6
// names: given a tile's footprint and the upstream tiles it depends on, it
// produces one or more partial arrays whose sub-extents union to the whole
// tile. The scheduler's Computer actor is the only caller; it knows nothing
// about how a Func actually produces pixels.
package compute

import (
	"context"

	"github.com/preligens-lab/buzzard/pkg/footprint"
)

// Array is a dense block of pixel data for a fixed set of channels.
type Array struct {
	Channels []string
	Width    int
	Height   int
	// Data is one contiguous slice per channel, in Channels order.
	Data [][]byte
}

// Upstream is one resolved dependency tile, possibly from a different
// raster, forming the DAG spec §9 open question (c) describes.
type Upstream struct {
	RasterID string
	Tile     footprint.Tile
	Array    Array
}

// Request describes one tile a Func must produce pixels for.
type Request struct {
	RasterID string
	Tile     footprint.Tile
	Channels []string
	Upstream []Upstream
}

// Partial is one piece of a tile's output. XOff/YOff/Width/Height are in
// the tile's local pixel space; the union of every Partial's extent across
// one invocation must equal the full tile (spec §6).
type Partial struct {
	XOff, YOff    int
	Width, Height int
	Array         Array
}

// Emit delivers one Partial as soon as it's ready, letting a Func stream
// results instead of buffering the whole tile; ComputeAccumulator consumes
// these as computed_partial messages.
type Emit func(Partial) error

// Func computes pixels for one tile. Implementations must be safe to call
// concurrently from different goroutines (the compute pool may run several
// at once) but a single invocation runs on one goroutine.
type Func func(ctx context.Context, req Request, emit Emit) error
