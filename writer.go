package geolayer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
	"github.com/tingold/geolayer/table"
)

// Export is a serialized layer ready to be delivered to the user.
type Export struct {
	Data     []byte
	MIME     string
	Filename string
}

// Writer serializes a layer into one export format.
type Writer interface {
	Name() string
	MIME() string
	Extension() string

	// Writable reports whether the layer can be written in this format.
	Writable(l *Layer) bool

	Write(w io.Writer, l *Layer) error
}

// ExportLayer writes l with w and names the result after the layer.
func ExportLayer(w Writer, l *Layer) (*Export, error) {
	if l == nil {
		return nil, errors.Wrap(ErrValidation, "nil layer")
	}
	if !w.Writable(l) {
		return nil, errors.Wrapf(ErrUnsupportedOperation, "%s cannot write %s", w.Name(), l.GeometryTypeText())
	}

	var buf bytes.Buffer
	if err := w.Write(&buf, l); err != nil {
		return nil, err
	}

	name := l.Name()
	if name == "" {
		name = "layer"
	}
	return &Export{
		Data:     buf.Bytes(),
		MIME:     w.MIME(),
		Filename: name + "." + w.Extension(),
	}, nil
}

// Writers returns every export format. indent is used by the pretty
// GeoJSON writer and delimiter by the CSV writers.
func Writers(indent string, delimiter rune) []Writer {
	writers := []Writer{
		&GeoJSONWriter{},
		&GeoJSONWriter{Indent: indent},
	}
	for _, shape := range []ShapeFormat{ShapeNone, ShapeGeoJSON, ShapeWKT, ShapeWKBHex, ShapeWKBBase64, ShapeXY} {
		writers = append(writers, &CSVWriter{Delimiter: delimiter, Shape: shape})
	}
	return writers
}

// GeoJSONWriter writes a FeatureCollection. A non-empty Indent pretty
// prints the output.
type GeoJSONWriter struct {
	Indent string
}

func (w *GeoJSONWriter) Name() string {
	if w.Indent != "" {
		return "GeoJSON (pretty)"
	}
	return "GeoJSON"
}

func (w *GeoJSONWriter) MIME() string      { return "application/geo+json" }
func (w *GeoJSONWriter) Extension() string { return "geojson" }
func (w *GeoJSONWriter) Writable(*Layer) bool {
	return true
}

// Write writes the features of l without their synthetic ids.
func (w *GeoJSONWriter) Write(out io.Writer, l *Layer) error {
	src := l.FeatureCollection()
	idField := l.IDField()

	fc := &FeatureCollection{Features: make([]*Feature, len(src.Features))}
	for i, f := range src.Features {
		props := copyProperties(f.Properties)
		delete(props, idField)
		fc.Features[i] = &Feature{
			ID:         f.ID,
			Geometry:   f.Geometry,
			Properties: props,
			Keys:       withoutKey(f.OrderedKeys(), idField),
			SourceID:   f.SourceID,
		}
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return errors.Wrap(err, "encode feature collection")
	}
	if w.Indent != "" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", w.Indent); err != nil {
			return errors.Wrap(err, "indent feature collection")
		}
		data = buf.Bytes()
	}

	_, err = out.Write(data)
	return err
}

// ShapeFormat selects how CSVWriter serializes geometries.
type ShapeFormat int

// Geometry serializations for CSV export.
const (
	ShapeNone ShapeFormat = iota // attributes only
	ShapeGeoJSON
	ShapeWKT
	ShapeWKBHex
	ShapeWKBBase64
	ShapeXY // x and y columns, points only
)

func (s ShapeFormat) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeGeoJSON:
		return "geojson"
	case ShapeWKT:
		return "wkt"
	case ShapeWKBHex:
		return "wkb-hex"
	case ShapeWKBBase64:
		return "wkb-base64"
	case ShapeXY:
		return "xy"
	default:
		return "unknown"
	}
}

// ParseShapeFormat is the inverse of ShapeFormat.String.
func ParseShapeFormat(s string) (ShapeFormat, error) {
	for shape := ShapeNone; shape <= ShapeXY; shape++ {
		if shape.String() == s {
			return shape, nil
		}
	}
	return ShapeNone, errors.Wrapf(ErrValidation, "unknown shape format %q", s)
}

func (s ShapeFormat) format() geometry.Format {
	switch s {
	case ShapeGeoJSON:
		return geometry.FormatGeoJSON
	case ShapeWKBHex:
		return geometry.FormatWKBHex
	case ShapeWKBBase64:
		return geometry.FormatWKBBase64
	default:
		return geometry.FormatWKT
	}
}

// ShapeColumn is the header of the geometry column written by CSVWriter.
const ShapeColumn = "SHAPE"

// CSVWriter writes the visible attribute columns of a layer, followed by
// its geometry in the Shape format. Geometry column names that collide
// with an attribute get a numeric suffix.
type CSVWriter struct {
	Delimiter rune
	Shape     ShapeFormat
}

func (w *CSVWriter) Name() string {
	switch w.Shape {
	case ShapeNone:
		return "CSV"
	case ShapeGeoJSON:
		return "CSV + GeoJSON"
	case ShapeWKT:
		return "CSV + WKT"
	case ShapeWKBHex:
		return "CSV + WKB (hex)"
	case ShapeWKBBase64:
		return "CSV + WKB (base64)"
	default:
		return "CSV + XY"
	}
}

func (w *CSVWriter) MIME() string      { return "text/csv" }
func (w *CSVWriter) Extension() string { return "csv" }

// Writable reports false for ShapeXY when l has geometries other than
// points.
func (w *CSVWriter) Writable(l *Layer) bool {
	if w.Shape != ShapeXY {
		return true
	}
	for _, g := range l.geometries() {
		if g == nil {
			continue
		}
		if _, _, ok := pointXY(g); !ok {
			return false
		}
	}
	return true
}

func (w *CSVWriter) Write(out io.Writer, l *Layer) error {
	if !w.Writable(l) {
		return errors.Wrapf(ErrUnsupportedOperation, "%s needs point geometries", w.Name())
	}

	attrs := l.AttributesTable()
	columns := attrs.VisibleColumns()
	header := make([]string, 0, len(columns)+2)
	index := make([]int, 0, len(columns))
	for _, col := range columns {
		header = append(header, col.Name)
		index = append(index, attrs.ColumnIndex(col.Name))
	}
	switch w.Shape {
	case ShapeNone:
	case ShapeXY:
		header = append(header, uniqueColumn(header, "x"))
		header = append(header, uniqueColumn(header, "y"))
	default:
		header = append(header, uniqueColumn(header, ShapeColumn))
	}

	cw := csv.NewWriter(out)
	if w.Delimiter != 0 {
		cw.Comma = w.Delimiter
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	geoms := l.geometries()
	for i, row := range attrs.Rows() {
		record := make([]string, 0, len(header))
		for _, idx := range index {
			record = append(record, table.FormatCell(row[idx]))
		}
		shape, err := w.shapeCells(geoms[i])
		if err != nil {
			return errors.Wrapf(err, "row %d", i+1)
		}
		record = append(record, shape...)
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write csv row %d", i+1)
		}
	}

	cw.Flush()
	return cw.Error()
}

func (w *CSVWriter) shapeCells(g geom.T) ([]string, error) {
	switch w.Shape {
	case ShapeNone:
		return nil, nil
	case ShapeXY:
		if g == nil {
			return []string{"", ""}, nil
		}
		x, y, _ := pointXY(g)
		return []string{table.FormatNumber(x), table.FormatNumber(y)}, nil
	default:
		if g == nil {
			return []string{""}, nil
		}
		s, err := geometry.MarshalString(g, w.Shape.format())
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
}

// uniqueColumn returns name, or name with the first free numeric suffix
// when the header already has it.
func uniqueColumn(header []string, name string) string {
	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[h] = true
	}
	candidate := name
	for n := 1; taken[candidate]; n++ {
		candidate = name + "_" + strconv.Itoa(n)
	}
	return candidate
}

func withoutKey(keys []string, key string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
