package geolayer

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
)

// commonType returns the single GeoJSON type shared by geoms, skipping
// nil entries. mixed is true when the types differ; both results are
// zero when there is no geometry.
func commonType(geoms []geom.T) (typ string, mixed bool) {
	for _, g := range geoms {
		if g == nil {
			continue
		}
		name := geometry.TypeName(g)
		if typ != "" && name != typ {
			return "", true
		}
		typ = name
	}
	return typ, false
}

// collectionLabel builds "<Type> <suffix>", "Mixed <suffix>" or
// "<empty>" for a list of geometries.
func collectionLabel(geoms []geom.T, suffix, empty string) string {
	typ, mixed := commonType(geoms)
	switch {
	case mixed:
		return "Mixed " + suffix
	case typ == "":
		return empty
	default:
		return typ + " " + suffix
	}
}

// decodeCell decodes the geometry text of a CSV cell. The cell is read as
// a nested document: a GeoJSON geometry, Feature or FeatureCollection, or
// WKX lines. The first geometry of the document is returned along with
// the encoding it was found in.
func decodeCell(cell interface{}) (geom.T, geometry.Format, error) {
	switch v := cell.(type) {
	case nil:
		return nil, geometry.FormatUnknown, nil
	case []byte:
		g, err := geometry.ParseWKB(v)
		return g, geometry.FormatWKB, err
	case string:
		return decodeText(v)
	default:
		return nil, geometry.FormatUnknown, errors.Wrapf(ErrFormat, "cannot read geometry from %T", cell)
	}
}

func decodeText(s string) (geom.T, geometry.Format, error) {
	if strings.TrimSpace(s) == "" {
		return nil, geometry.FormatUnknown, nil
	}

	if IsGeoJSON(s) {
		doc, err := parseGeoJSON([]byte(s))
		if err != nil {
			return nil, geometry.FormatGeoJSON, err
		}
		return doc.firstGeometry(), geometry.FormatGeoJSON, nil
	}

	if !IsWKX(s) {
		return nil, geometry.FormatUnknown, errors.Wrap(ErrFormat, "cell is not GeoJSON or WKX")
	}
	g, format, err := geometry.ParseText(nonBlankLines(s)[0])
	if err != nil {
		return nil, geometry.FormatUnknown, err
	}
	return g, format, nil
}

// cellFormat returns the encoding of a geometry cell, falling back to WKT
// when the cell cannot be read.
func cellFormat(cell interface{}) geometry.Format {
	_, format, err := decodeCell(cell)
	if err != nil || format == geometry.FormatUnknown {
		return geometry.FormatWKT
	}
	return format
}

// encodeCell serializes g for a CSV cell. Raw WKB is kept as bytes.
func encodeCell(g geom.T, format geometry.Format) (interface{}, error) {
	if format == geometry.FormatWKB {
		return geometry.MarshalWKB(g)
	}
	return geometry.MarshalString(g, format)
}

func pointXY(g geom.T) (x, y float64, ok bool) {
	p, isPoint := g.(*geom.Point)
	if !isPoint || p.Empty() {
		return 0, 0, false
	}
	return p.X(), p.Y(), true
}
