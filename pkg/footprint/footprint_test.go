package footprint

import (
	"math"
	"testing"
)

func TestTransformApplyInvertRoundTrip(t *testing.T) {
	transforms := []Transform{
		{TranslateX: 100, ScaleX: 2, TranslateY: 200, ScaleY: -2},
		{TranslateX: 10, ScaleX: 1.5, ShearX: 0.2, TranslateY: 5, ShearY: -0.1, ScaleY: 1.3},
	}

	for _, tr := range transforms {
		inv, err := tr.Invert()
		if err != nil {
			t.Fatalf("Invert failed for %+v: %v", tr, err)
		}
		gx, gy := tr.Apply(7, 11)
		px, py := inv.Apply(gx, gy)
		if math.Abs(px-7) > 1e-9 || math.Abs(py-11) > 1e-9 {
			t.Fatalf("round trip for %+v: got (%f, %f), want (7, 11)", tr, px, py)
		}
	}
}

func TestInvertNonInvertible(t *testing.T) {
	tr := Transform{ScaleX: 1, ShearX: 1, ShearY: 1, ScaleY: 1}
	if _, err := tr.Invert(); err == nil {
		t.Fatal("expected an error inverting a singular transform")
	}
}

func TestIsAxisAligned(t *testing.T) {
	if !(Transform{ScaleX: 1, ScaleY: -1}.IsAxisAligned()) {
		t.Fatal("a transform with no shear should be axis aligned")
	}
	if (Transform{ScaleX: 1, ShearX: 0.1}.IsAxisAligned()) {
		t.Fatal("a transform with shear should not be axis aligned")
	}
}

func TestTileExtent(t *testing.T) {
	tile := Tile{Col: 2, Row: 3, TileWidth: 256, TileHeight: 128}
	xOff, yOff, w, h := tile.Extent()
	if xOff != 512 || yOff != 384 || w != 256 || h != 128 {
		t.Fatalf("Extent() = (%d, %d, %d, %d), want (512, 384, 256, 128)", xOff, yOff, w, h)
	}
}

func TestTilesOverlapping(t *testing.T) {
	tiles := TilesOverlapping(0, 0, 300, 300, 256, 256)
	if len(tiles) != 4 {
		t.Fatalf("expected 4 overlapping tiles for a 300x300 region over a 256x256 grid, got %d", len(tiles))
	}

	seen := map[[2]int]bool{}
	for _, tile := range tiles {
		seen[[2]int{tile.Col, tile.Row}] = true
	}
	for _, want := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		if !seen[want] {
			t.Errorf("expected tile (col=%d, row=%d) in overlap set", want[0], want[1])
		}
	}
}

func TestTilesOverlappingSingleTile(t *testing.T) {
	tiles := TilesOverlapping(10, 10, 5, 5, 256, 256)
	if len(tiles) != 1 {
		t.Fatalf("expected exactly 1 tile for a region fully inside one native tile, got %d", len(tiles))
	}
	if tiles[0].Col != 0 || tiles[0].Row != 0 {
		t.Fatalf("expected tile (0, 0), got (%d, %d)", tiles[0].Col, tiles[0].Row)
	}
}

func TestTilesOverlappingDegenerate(t *testing.T) {
	if tiles := TilesOverlapping(0, 0, 0, 10, 256, 256); tiles != nil {
		t.Fatalf("expected nil for a zero-width region, got %v", tiles)
	}
}

func TestTileWKT(t *testing.T) {
	tile := Tile{Col: 0, Row: 0, TileWidth: 10, TileHeight: 10}
	w := tile.WKT(Transform{ScaleX: 1, ScaleY: -1})
	if w == "" {
		t.Fatal("expected a non-empty WKT polygon")
	}
}
