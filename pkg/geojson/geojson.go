// Package geojson builds GeoJSON geometries for scene footprints on top of
// paulmach/orb.
package geojson

import (
	"fmt"

	"github.com/paulmach/orb"
	orbgeojson "github.com/paulmach/orb/geojson"
)

// Quad returns the polygon outlined by four corners, visited in the given order
// and closed back at the first corner.
func Quad(a, b, c, d orb.Point) orb.Polygon {
	return orb.Polygon{orb.Ring{a, b, c, d, a}}
}

// BBox computes the bounding box of a geometry.
// Returns [west, south, east, north].
func BBox(g orb.Geometry) ([]float64, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}
	b := g.Bound()
	return []float64{b.Left(), b.Bottom(), b.Right(), b.Top()}, nil
}

// Geometry wraps g for GeoJSON encoding.
func Geometry(g orb.Geometry) *orbgeojson.Geometry {
	return orbgeojson.NewGeometry(g)
}
