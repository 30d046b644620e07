// Package wkt renders well-known-text geometries for tile bounding boxes
// (footprint.Tile.WKT), adapted from the teacher's own WKTBox helper.
package wkt

import "fmt"

// Box is a Stringer that returns WKT for an axis-aligned bounding box.
type Box struct {
	ULX, ULY, LRX, LRY float64
}

// String returns a WKT POLYGON representation of the box.
func (b Box) String() string {
	return fmt.Sprintf("POLYGON ((%f %f, %f %f, %f %f, %f %f, %f %f))",
		b.ULX, b.ULY, b.LRX, b.ULY, b.LRX, b.LRY, b.ULX, b.LRY, b.ULX, b.ULY)
}
