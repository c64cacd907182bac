// Package geometry converts geometries between WKT, WKB (raw, hex, base64)
// and GeoJSON geometry text. The geometry value is a go-geom geom.T, which
// keeps Z and M ordinates through every conversion.
package geometry

import (
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
)

// Common errors returned by this package.
var (
	ErrFormat          = errors.New("geometry: malformed input")
	ErrUnsupportedType = errors.New("geometry: unsupported geometry type")
)

// GeoJSON geometry type names.
const (
	TypePoint              = "Point"
	TypeMultiPoint         = "MultiPoint"
	TypeLineString         = "LineString"
	TypeMultiLineString    = "MultiLineString"
	TypePolygon            = "Polygon"
	TypeMultiPolygon       = "MultiPolygon"
	TypeGeometryCollection = "GeometryCollection"
)

// TypeName returns the GeoJSON type name of g, or "" for nil and
// unsupported values.
func TypeName(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return TypePoint
	case *geom.MultiPoint:
		return TypeMultiPoint
	case *geom.LineString:
		return TypeLineString
	case *geom.MultiLineString:
		return TypeMultiLineString
	case *geom.Polygon:
		return TypePolygon
	case *geom.MultiPolygon:
		return TypeMultiPolygon
	case *geom.GeometryCollection:
		return TypeGeometryCollection
	default:
		return ""
	}
}

// IsGeometryType reports whether name is one of the seven GeoJSON geometry types.
func IsGeometryType(name string) bool {
	switch name {
	case TypePoint, TypeMultiPoint, TypeLineString, TypeMultiLineString,
		TypePolygon, TypeMultiPolygon, TypeGeometryCollection:
		return true
	}
	return false
}

// Fold walks g depth first and calls fn for every non-collection geometry.
// Members of a GeometryCollection are visited in order, recursively.
func Fold(g geom.T, fn func(leaf geom.T) error) error {
	if g == nil {
		return nil
	}
	if gc, ok := g.(*geom.GeometryCollection); ok {
		for _, child := range gc.Geoms() {
			if err := Fold(child, fn); err != nil {
				return err
			}
		}
		return nil
	}
	return fn(g)
}

// Leaves returns the non-collection geometries of g in visiting order.
func Leaves(g geom.T) []geom.T {
	var leaves []geom.T
	_ = Fold(g, func(leaf geom.T) error {
		leaves = append(leaves, leaf)
		return nil
	})
	return leaves
}

// Equal reports whether a and b have the same type, the same layout and
// the same coordinates in the same order.
func Equal(a, b geom.T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if TypeName(a) != TypeName(b) {
		return false
	}

	if ga, ok := a.(*geom.GeometryCollection); ok {
		gb := b.(*geom.GeometryCollection)
		if ga.NumGeoms() != gb.NumGeoms() {
			return false
		}
		for i := 0; i < ga.NumGeoms(); i++ {
			if !Equal(ga.Geom(i), gb.Geom(i)) {
				return false
			}
		}
		return true
	}

	if a.Layout() != b.Layout() {
		return false
	}
	if !floatsEqual(a.FlatCoords(), b.FlatCoords()) {
		return false
	}
	if !intsEqual(a.Ends(), b.Ends()) {
		return false
	}

	endssA, endssB := a.Endss(), b.Endss()
	if len(endssA) != len(endssB) {
		return false
	}
	for i := range endssA {
		if !intsEqual(endssA[i], endssB[i]) {
			return false
		}
	}
	return true
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
