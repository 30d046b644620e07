package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// FormatVersion is bumped whenever the on-disk tile encoding changes in a
// way that invalidates previously written caches (spec.md §6: "library
// on-disk format version").
const FormatVersion = "buzzard-tile-v1"

// Inputs are the deterministic ingredients of a tile's fingerprint H, per
// spec.md §3 and §6: tile spatial extent, channel set, compute-function
// identity and version, upstream tile fingerprints, and the library
// format version.
type Inputs struct {
	RasterID   string
	TileCol    int
	TileRow    int
	TileWidth  int
	TileHeight int

	Channels []string

	ComputeFuncID      string
	ComputeFuncVersion string

	// UpstreamFingerprints are the H values of cache tiles this tile's
	// compute function reads, for raster DAGs (spec.md §6, §9 open
	// question (c)).
	UpstreamFingerprints []string
}

// Compute derives H deterministically from in. Canonicalization (sorting
// channels and upstream fingerprints) makes H independent of iteration
// order upstream, satisfying spec.md §8 property 7 (determinism).
func Compute(in Inputs) string {
	channels := append([]string(nil), in.Channels...)
	sort.Strings(channels)

	upstream := append([]string(nil), in.UpstreamFingerprints...)
	sort.Strings(upstream)

	h := sha256.New()
	fmt.Fprintf(h, "format=%s\n", FormatVersion)
	fmt.Fprintf(h, "raster=%s\n", in.RasterID)
	fmt.Fprintf(h, "tile=%d,%d,%d,%d\n", in.TileCol, in.TileRow, in.TileWidth, in.TileHeight)
	fmt.Fprintf(h, "channels=%s\n", strings.Join(channels, ","))
	fmt.Fprintf(h, "func=%s@%s\n", in.ComputeFuncID, in.ComputeFuncVersion)
	fmt.Fprintf(h, "upstream=%s\n", strings.Join(upstream, ","))

	return hex.EncodeToString(h.Sum(nil))
}
