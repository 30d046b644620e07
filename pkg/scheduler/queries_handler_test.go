package scheduler

import (
	"testing"

	"github.com/preligens-lab/buzzard/pkg/footprint"
)

func tile(col, row int) footprint.Tile {
	return footprint.Tile{Col: col, Row: row, TileWidth: 4, TileHeight: 4}
}

func TestOrderBlocksRowMajorLeavesOrderUnchanged(t *testing.T) {
	blocks := []footprint.Tile{tile(0, 0), tile(1, 0), tile(0, 1), tile(1, 1)}
	want := append([]footprint.Tile(nil), blocks...)

	orderBlocks(OrderRowMajor, blocks)

	for i := range want {
		if blocks[i] != want[i] {
			t.Fatalf("row-major order changed: got %v, want %v", blocks, want)
		}
	}
}

func TestOrderBlocksSpiralOrdersByDistanceFromCenter(t *testing.T) {
	// A 3x3 grid centered on (1,1): center tile must come first, corners last.
	var blocks []footprint.Tile
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			blocks = append(blocks, tile(col, row))
		}
	}

	orderBlocks(OrderSpiral, blocks)

	if blocks[0] != tile(1, 1) {
		t.Fatalf("expected center tile (1,1) first, got %v", blocks[0])
	}
	// every subsequent tile's Chebyshev-ish (Manhattan here) distance from
	// center must be non-decreasing.
	dist := func(b footprint.Tile) int {
		dc, dr := b.Col-1, b.Row-1
		if dc < 0 {
			dc = -dc
		}
		if dr < 0 {
			dr = -dr
		}
		return dc + dr
	}
	for i := 1; i < len(blocks); i++ {
		if dist(blocks[i]) < dist(blocks[i-1]) {
			t.Fatalf("spiral order not monotonic by distance at index %d: %v", i, blocks)
		}
	}
}

func TestOrderBlocksSpiralSingleBlockIsANoop(t *testing.T) {
	blocks := []footprint.Tile{tile(5, 5)}
	orderBlocks(OrderSpiral, blocks)
	if blocks[0] != tile(5, 5) {
		t.Fatalf("single-block spiral order changed: %v", blocks)
	}
}
