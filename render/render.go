// Package render maps geometries to map-widget independent display
// primitives. Primitives are grouped by feature id so styles, visibility
// and bounds can be addressed per feature without holding references to
// the features themselves.
package render

import (
	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
)

// Geometry pairs a feature id with one display-relevant geometry.
type Geometry struct {
	ID       string
	Geometry geom.T
}

// Class is the visual class of a primitive. Each class is styled separately.
type Class int

// Primitive classes.
const (
	ClassPoint Class = iota
	ClassLine
	ClassPolygon
)

func (c Class) String() string {
	switch c {
	case ClassPoint:
		return "point"
	case ClassLine:
		return "line"
	case ClassPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Primitive is a single drawable shape: a marker (orb.Point) or a path
// (orb.LineString, orb.MultiLineString, orb.Polygon or orb.MultiPolygon).
// Only x and y are kept.
type Primitive struct {
	Class    Class
	Geometry orb.Geometry
}

// Primitives maps g to its display primitives. Points and multipoints
// produce one marker per coordinate, every other type one path, and
// geometry collections the flattened primitives of their members.
// Empty geometries produce nothing.
func Primitives(g geom.T) []Primitive {
	var out []Primitive
	_ = geometry.Fold(g, func(leaf geom.T) error {
		out = append(out, leafPrimitives(leaf)...)
		return nil
	})
	return out
}

func leafPrimitives(g geom.T) []Primitive {
	if g.Empty() {
		return nil
	}

	switch v := g.(type) {
	case *geom.Point:
		return []Primitive{{Class: ClassPoint, Geometry: toPoint(v.Coords())}}

	case *geom.MultiPoint:
		coords := v.Coords()
		out := make([]Primitive, 0, len(coords))
		for _, c := range coords {
			if len(c) < 2 {
				continue
			}
			out = append(out, Primitive{Class: ClassPoint, Geometry: toPoint(c)})
		}
		return out

	case *geom.LineString:
		return []Primitive{{Class: ClassLine, Geometry: toLineString(v.Coords())}}

	case *geom.MultiLineString:
		coords := v.Coords()
		mls := make(orb.MultiLineString, 0, len(coords))
		for _, line := range coords {
			mls = append(mls, toLineString(line))
		}
		return []Primitive{{Class: ClassLine, Geometry: mls}}

	case *geom.Polygon:
		return []Primitive{{Class: ClassPolygon, Geometry: toPolygon(v.Coords())}}

	case *geom.MultiPolygon:
		coords := v.Coords()
		mp := make(orb.MultiPolygon, 0, len(coords))
		for _, poly := range coords {
			mp = append(mp, toPolygon(poly))
		}
		return []Primitive{{Class: ClassPolygon, Geometry: mp}}

	default:
		return nil
	}
}

func toPoint(c geom.Coord) orb.Point {
	return orb.Point{c.X(), c.Y()}
}

func toLineString(coords []geom.Coord) orb.LineString {
	ls := make(orb.LineString, 0, len(coords))
	for _, c := range coords {
		ls = append(ls, toPoint(c))
	}
	return ls
}

func toPolygon(rings [][]geom.Coord) orb.Polygon {
	poly := make(orb.Polygon, 0, len(rings))
	for _, ring := range rings {
		poly = append(poly, orb.Ring(toLineString(ring)))
	}
	return poly
}
