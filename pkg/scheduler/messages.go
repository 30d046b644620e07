// Package scheduler is the actor graph of spec §2: a single-threaded event
// loop (pkg/actorbus.Loop) hosting the per-raster and global actors that
// turn posted queries into delivered sub-arrays, with all blocking work
// pushed to worker pools.
package scheduler

import "github.com/preligens-lab/buzzard/pkg/actorbus"

// Actor roles, the second half of every actorbus.ActorKey. Global actors
// (RastersHandler) use actorbus.ActorKey{Role: roleRastersHandler}, leaving
// Raster empty; every other role is instantiated once per registered
// raster.
const (
	roleRastersHandler     = "rasters_handler"
	roleQueriesHandler     = "queries_handler"
	roleProducer           = "producer"
	roleCacheHandler       = "cache_handler"
	roleFileHasher         = "file_hasher"
	roleComputer           = "computer"
	roleComputationBedroom = "computation_bedroom"
	roleAccumulator        = "accumulator"
	roleMerger             = "merger"
	roleWriter             = "writer"
	roleBuilderBedroom     = "builder_bedroom"
	roleBuilder            = "builder"
	roleSampler            = "sampler"
	roleResampler          = "resampler"
)

// Message type tags, spec §4's verb names.
const (
	msgRegisterRaster   = "register_raster"
	msgCloseRaster      = "close_raster"
	msgKillRaster       = "kill_raster"
	msgRasterKilled     = "raster_killed"
	msgPostQuery        = "post_query"
	msgKillQuery        = "kill_query"
	msgQueryGone        = "query_gone"
	msgMakeArrays       = "make_arrays"
	msgMadeArray        = "made_array"
	msgOutputQueueUpd   = "output_queue_update"
	msgQueryFailed      = "query_failed"
	msgMayIRead         = "may_i_read"
	msgYouMayRead       = "you_may_read"
	msgBuildWhenReady   = "build_when_ready"
	msgBuilderReady     = "builder_ready"
	msgBuild            = "build"
	msgBuilt            = "built"
	msgSample           = "sample"
	msgSampled          = "sampled"
	msgResample         = "resample"
	msgResampled        = "resampled"
	msgComputeTiles     = "compute_tiles"
	msgScheduleWhenNeed = "schedule_compute_when_needed"
	msgScheduleCompute  = "schedule_compute"
	msgCancelCompute    = "cancel_compute"
	msgComputedPartial  = "computed_partial"
	msgMerge            = "merge"
	msgWrite            = "write"
	msgWroteTile        = "wrote_tile"
	msgWroteFailed      = "wrote_failed"
	msgStatusRequest    = "status_request"
	msgStatus           = "status"
)

func key(raster, role string) actorbus.ActorKey { return actorbus.ActorKey{Raster: raster, Role: role} }
