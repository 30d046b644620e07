// Package footprint provides the affine pixel-grid math that raster
// queries and cache tiles are expressed over.
//
// This package stands in for the coordinate math that spec.md scopes out
// of the scheduler proper (footprint geometry, SRS conversion): the
// scheduler depends only on the named types here, never on how resampling
// or reprojection actually compute pixels.
package footprint

import (
	"math"

	"github.com/pkg/errors"
	"github.com/preligens-lab/buzzard/pkg/wkt"
)

// Transform is an affine geo transform, the same six coefficients GDAL
// and the RDA API use: pixel (x, y) maps to geo (x, y) via
//
//	geoX = TranslateX + ScaleX*x + ShearX*y
//	geoY = TranslateY + ShearY*x + ScaleY*y
type Transform struct {
	TranslateX float64
	ScaleX     float64
	ShearX     float64

	TranslateY float64
	ShearY     float64
	ScaleY     float64
}

// Apply maps a pixel coordinate to a geo coordinate.
func (t Transform) Apply(xPix, yPix float64) (xGeo, yGeo float64) {
	return t.TranslateX + t.ScaleX*xPix + t.ShearX*yPix, t.TranslateY + t.ShearY*xPix + t.ScaleY*yPix
}

// Invert returns the transform that maps geo coordinates back to pixels.
func (t Transform) Invert() (Transform, error) {
	if t.ShearX == 0 && t.ShearY == 0 && t.ScaleX != 0 && t.ScaleY != 0 {
		return t.easyInvert(), nil
	}
	return t.hardInvert()
}

func (t Transform) easyInvert() Transform {
	return Transform{
		TranslateX: -t.TranslateX / t.ScaleX,
		ScaleX:     1.0 / t.ScaleX,
		TranslateY: -t.TranslateY / t.ScaleY,
		ScaleY:     1.0 / t.ScaleY,
	}
}

func (t Transform) hardInvert() (Transform, error) {
	det := t.ScaleX*t.ScaleY - t.ShearX*t.ShearY
	if math.Abs(det) < 1e-15 {
		return Transform{}, errors.Errorf("non invertible affine transform %+v", t)
	}
	invDet := 1.0 / det
	return Transform{
		ScaleX: t.ScaleY * invDet,
		ShearY: -t.ShearY * invDet,
		ShearX: -t.ShearX * invDet,
		ScaleY: t.ScaleX * invDet,
		TranslateX: (t.ShearX*t.TranslateY - t.TranslateX*t.ScaleY) * invDet,
		TranslateY: (-t.ScaleX*t.TranslateY + t.TranslateX*t.ShearY) * invDet,
	}, nil
}

// IsAxisAligned reports whether the transform has no rotation/shear, which
// is the common case. Builder skips the Resampler stage when the raster's
// transform is axis-aligned; scale and origin are not checked here.
func (t Transform) IsAxisAligned() bool {
	return t.ShearX == 0 && t.ShearY == 0
}

// Footprint is a target grid over the plane: an affine transform plus a
// pixel extent. Queries carry one footprint; so does each raster's native
// tiling scheme.
type Footprint struct {
	Transform Transform
	Width     int
	Height    int
}

// Tile identifies a single tile within a raster's native tiling scheme by
// its (column, row) index in that scheme. TileWidth and TileHeight are carried alongside so
// tile geometry can be recomputed without consulting the raster handle.
type Tile struct {
	Col, Row           int
	TileWidth          int
	TileHeight         int
}

// Extent returns the tile's pixel-space bounding box within the raster's
// native grid.
func (t Tile) Extent() (xOff, yOff, width, height int) {
	return t.Col * t.TileWidth, t.Row * t.TileHeight, t.TileWidth, t.TileHeight
}

// WKT renders the tile's geographic footprint as a WKT POLYGON, using the
// raster's native transform. This is the only point where pkg/wkt and
// pkg/footprint meet; everything else in the scheduler treats both as
// opaque value types.
func (t Tile) WKT(raster Transform) string {
	xOff, yOff, w, h := t.Extent()
	ulx, uly := raster.Apply(float64(xOff), float64(yOff))
	lrx, lry := raster.Apply(float64(xOff+w), float64(yOff+h))
	return wkt.Box{ULX: ulx, ULY: uly, LRX: lrx, LRY: lry}.String()
}

// TilesOverlapping returns the set of native tiles whose extent intersects
// the pixel-space rectangle [xOff, yOff, xOff+width, yOff+height) of a
// raster tiled at tileWidth x tileHeight.
func TilesOverlapping(xOff, yOff, width, height, tileWidth, tileHeight int) []Tile {
	if width <= 0 || height <= 0 || tileWidth <= 0 || tileHeight <= 0 {
		return nil
	}
	minCol := floorDiv(xOff, tileWidth)
	maxCol := floorDiv(xOff+width-1, tileWidth)
	minRow := floorDiv(yOff, tileHeight)
	maxRow := floorDiv(yOff+height-1, tileHeight)

	tiles := make([]Tile, 0, (maxCol-minCol+1)*(maxRow-minRow+1))
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			tiles = append(tiles, Tile{Col: col, Row: row, TileWidth: tileWidth, TileHeight: tileHeight})
		}
	}
	return tiles
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
