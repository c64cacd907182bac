// Package geolayer imports, inspects, edits and exports vector feature
// layers read from GeoJSON, WKT, WKB (hex or base64) and geospatial CSV.
//
// Raw input is classified by Classify and turned into a Layer. Every layer
// exposes the same operations whatever its source: features, attribute
// table, per-feature geometry read and write, and display primitives
// grouped by feature id. EditSession moves the vertices of one feature and
// writes the result back in the encoding the feature was read from.
package geolayer

import (
	"github.com/pkg/errors"

	"github.com/tingold/geolayer/geometry"
	"github.com/tingold/geolayer/table"
)

// Common errors returned by this package. Errors from the geometry and
// table packages are the same values, so errors.Is works across packages.
var (
	ErrFormat               = geometry.ErrFormat
	ErrSchema               = errors.New("geolayer: invalid GeoJSON structure")
	ErrColumn               = table.ErrColumn
	ErrTypeCoercion         = table.ErrTypeCoercion
	ErrLookup               = table.ErrLookup
	ErrUnsupportedOperation = errors.New("geolayer: unsupported operation")
	ErrValidation           = table.ErrValidation
	ErrEditInProgress       = errors.New("geolayer: feature is being edited")
)

// Reserved id fields.
const (
	FeatureIDField  = "__FEATURE_ID__"        // GeoJSON features
	GeometryIDField = "id"                    // WKX features and bare GeoJSON geometries
	RowIDField      = table.DefaultRowIDField // CSV rows
)

// GeometryMode selects how a CSV row carries its geometry.
type GeometryMode string

// CSV geometry modes.
const (
	ModeNone    GeometryMode = "none"
	ModeXY      GeometryMode = "xy"
	ModeWKT     GeometryMode = "wkt"
	ModeWKB     GeometryMode = "wkb"
	ModeGeoJSON GeometryMode = "geojson"
	ModeAuto    GeometryMode = "auto"
)

// WKBEncoding is the text encoding of a WKB cell.
type WKBEncoding string

// WKB cell encodings.
const (
	EncodingHex    WKBEncoding = "hex"
	EncodingBase64 WKBEncoding = "base64"
)

func (e WKBEncoding) format() geometry.Format {
	if e == EncodingBase64 {
		return geometry.FormatWKBBase64
	}
	return geometry.FormatWKBHex
}

// GeometryOptions describes where a CSV row keeps its geometry.
//
//   - ModeXY reads a point from XColumn and YColumn.
//   - ModeWKT, ModeWKB and ModeGeoJSON decode Column in that format.
//     Encoding applies to ModeWKB only.
//   - ModeAuto detects the format of every Column cell.
//   - ModeNone marks a table without geometry.
type GeometryOptions struct {
	Mode     GeometryMode `yaml:"mode" json:"mode"`
	XColumn  string       `yaml:"x_column,omitempty" json:"xColumn,omitempty"`
	YColumn  string       `yaml:"y_column,omitempty" json:"yColumn,omitempty"`
	Column   string       `yaml:"column,omitempty" json:"column,omitempty"`
	Encoding WKBEncoding  `yaml:"encoding,omitempty" json:"encoding,omitempty"`
}

// CSVOptions configures reading delimited text.
type CSVOptions struct {
	Delimiter rune
	Geometry  GeometryOptions
}

// DefaultCSVOptions returns comma separated options without geometry.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		Delimiter: ',',
		Geometry:  GeometryOptions{Mode: ModeNone},
	}
}
