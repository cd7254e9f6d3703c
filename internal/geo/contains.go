package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Contains reports whether the polygon or multipolygon g contains the point
// (lng, lat). A point inside a hole ring does not count as contained.
// Non-areal geometries never contain anything.
func Contains(g geom.T, lng, lat float64) bool {
	p := geom.Coord{lng, lat}
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, p)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), p) {
				return true
			}
		}
	}
	return false
}

func polygonContains(poly *geom.Polygon, p geom.Coord) bool {
	if poly == nil || poly.NumLinearRings() == 0 {
		return false
	}
	// Ring 0 is the shell, the rest are holes.
	if !xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < poly.NumLinearRings(); i++ {
		if xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// Centroid returns the area centroid of g as (lng, lat). ok is false when
// the geometry is nil or has no areal component.
func Centroid(g geom.T) (lng, lat float64, ok bool) {
	if g == nil {
		return 0, 0, false
	}
	c, err := xy.Centroid(g)
	if err != nil || len(c) < 2 {
		return 0, 0, false
	}
	return c[0], c[1], true
}

// DistanceSq is the squared planar distance in degrees between two points.
// Only used for ordering nearest-centroid candidates, where monotonicity is
// all that matters.
func DistanceSq(lng1, lat1, lng2, lat2 float64) float64 {
	dx := lng1 - lng2
	dy := lat1 - lat2
	return dx*dx + dy*dy
}
