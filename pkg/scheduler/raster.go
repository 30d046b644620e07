package scheduler

import (
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/compute"
	"github.com/preligens-lab/buzzard/pkg/footprint"
	"github.com/preligens-lab/buzzard/pkg/workerpool"
)

// RasterSpec describes a source at registration time: its native grid, the
// channels it carries, its tiling scheme for caching, and (for recipe
// rasters) the compute function and cache store backing it. Spec §3
// "Raster handle".
type RasterSpec struct {
	ID string

	Transform footprint.Transform
	Width     int
	Height    int

	Channels []string

	TileWidth  int
	TileHeight int

	// ComputeFunc produces tile pixels on demand. Nil for a raster backed
	// entirely by a pre-populated cache (spec's "stored file" source).
	ComputeFunc compute.Func
	// ComputeFuncVersion contributes to fingerprint H (spec §6).
	ComputeFuncVersion string

	Store cache.Store

	// IOPool runs FileHasher's checksum reads and Writer's publishes.
	IOPool workerpool.Pool
	// ComputePool runs ComputeFunc invocations.
	ComputePool workerpool.Pool
	// ResamplePool runs Sampler reads and Resampler remaps.
	ResamplePool workerpool.Pool
}

// rasterState is RastersHandler's bookkeeping entry for one registered
// raster: the spec plus a query refcount gating teardown (spec §4.1:
// "Close is reference-counted").
type rasterState struct {
	spec        RasterSpec
	openQueries map[string]bool
	closing     bool
}
