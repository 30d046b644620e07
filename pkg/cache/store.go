// Package cache implements the content-addressed tile cache of spec.md
// §3/§6: fingerprint derivation, the on-disk (or on-object-store) layout,
// atomic publication, and checksum validation. It knows nothing about
// actors or scheduling; pkg/scheduler's CacheHandler, Writer, and
// FileHasher actors are the only callers.
package cache

import (
	"context"
	"fmt"
)

// TileID identifies one cache tile, matching spec.md §3's
// (raster-id, tile-index) pair plus the fingerprint that the on-disk name
// embeds.
type TileID struct {
	RasterID    string
	Col, Row    int
	Fingerprint string
}

const ext = "bzt"

// FileName returns "<tile-index>.<H>.<ext>" per spec.md §6.
func (id TileID) FileName() string {
	return fmt.Sprintf("%d_%d.%s.%s", id.Col, id.Row, id.Fingerprint, ext)
}

// TempFileName returns "<tile-index>.<H>.<ext>.tmp.<pid>.<nonce>" per
// spec.md §6.
func (id TileID) TempFileName(pid int, nonce string) string {
	return fmt.Sprintf("%s.tmp.%d.%s", id.FileName(), pid, nonce)
}

// Status is the outcome of validating an on-disk tile against its
// fingerprint, the {VALID, CORRUPT} half of spec.md §3's tile state
// machine.
type Status int

const (
	// StatusMissing means no file exists for this TileID at all.
	StatusMissing Status = iota
	// StatusValid means the file exists and its checksum matches H.
	StatusValid
	// StatusCorrupt means the file exists but failed validation.
	StatusCorrupt
)

// Store is the persistence backend a raster's cache directory is built
// on. Writer uses Write (atomic publish), Sampler uses Read, and FileHasher
// uses Validate, then Delete when it finds a tile CORRUPT. Two implementations are provided: localstore (spec.md's
// canonical temp-file-then-rename layout) and s3store (a durable shared
// tier using the teacher's AWS SDK stack).
type Store interface {
	// Write durably and atomically publishes payload under id. Concurrent
	// writers of the same TileID (spec.md §5: "concurrent writers of the
	// same fingerprint produce the same bytes and the last rename wins")
	// are safe to race; Write does not itself enforce the single-writer
	// invariant, CacheHandler does.
	Write(ctx context.Context, id TileID, payload []byte) error

	// Read returns the payload bytes previously written for id. Callers
	// must have already observed id as VALID.
	Read(ctx context.Context, id TileID) ([]byte, error)

	// Validate reports whether a tile exists and, if so, whether its
	// stored checksum still matches its payload (spec.md §4.5, §7
	// CorruptCache).
	Validate(ctx context.Context, id TileID) (Status, error)

	// Delete removes a tile, used by FileHasher after CORRUPT is observed
	// (spec.md §7 CorruptCache).
	Delete(ctx context.Context, id TileID) error
}
