package geolayer

import (
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
	"github.com/tingold/geolayer/table"
)

// csvData backs a layer read from a table whose rows carry a geometry.
type csvData struct {
	table   *table.Table
	options GeometryOptions
}

// newCSVData takes a copy of tbl and adds the row id column. Tables that
// already have a RowIDField column keep its ids.
func newCSVData(tbl *table.Table, opts GeometryOptions) (*csvData, error) {
	if tbl == nil {
		return nil, errors.Wrap(ErrValidation, "nil table")
	}
	if err := validateGeometryOptions(tbl, &opts); err != nil {
		return nil, err
	}

	d := &csvData{table: tbl.Clone(), options: opts}
	if d.table.ColumnIndex(RowIDField) >= 0 {
		if err := d.table.SetIDField(RowIDField); err != nil {
			return nil, err
		}
	} else if err := d.table.AddRowIDs(RowIDField); err != nil {
		return nil, err
	}
	return d, nil
}

func validateGeometryOptions(tbl *table.Table, opts *GeometryOptions) error {
	var required []string
	switch opts.Mode {
	case ModeNone, "":
		return errors.Wrap(ErrValidation, "table has no geometry columns")
	case ModeXY:
		required = []string{opts.XColumn, opts.YColumn}
	case ModeWKB:
		if opts.Encoding == "" {
			opts.Encoding = EncodingHex
		}
		if opts.Encoding != EncodingHex && opts.Encoding != EncodingBase64 {
			return errors.Wrapf(ErrValidation, "unknown WKB encoding %q", opts.Encoding)
		}
		required = []string{opts.Column}
	case ModeWKT, ModeGeoJSON, ModeAuto:
		required = []string{opts.Column}
	default:
		return errors.Wrapf(ErrValidation, "unknown geometry mode %q", opts.Mode)
	}

	for _, name := range required {
		if _, err := tbl.Column(name); err != nil {
			return errors.Wrapf(err, "%s geometry", opts.Mode)
		}
	}
	return nil
}

// rowGeometry reads the geometry of a record. Empty cells give nil.
func (d *csvData) rowGeometry(record map[string]interface{}) (geom.T, error) {
	opts := d.options
	switch opts.Mode {
	case ModeXY:
		xc, yc := record[opts.XColumn], record[opts.YColumn]
		if xc == nil || yc == nil {
			return nil, nil
		}
		x, xok := table.Number(xc)
		y, yok := table.Number(yc)
		if !xok || !yok {
			return nil, errors.Wrapf(ErrFormat, "coordinates %v, %v are not numbers", xc, yc)
		}
		return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{x, y}), nil

	case ModeWKT, ModeWKB:
		switch cell := record[opts.Column].(type) {
		case nil:
			return nil, nil
		case []byte:
			return geometry.ParseWKB(cell)
		case string:
			if cell == "" {
				return nil, nil
			}
			if opts.Mode == ModeWKT {
				return geometry.ParseWKT(cell)
			}
			return geometry.ParseAs([]byte(cell), opts.Encoding.format())
		default:
			return nil, errors.Wrapf(ErrFormat, "cannot read geometry from %T", cell)
		}

	default:
		g, _, err := decodeCell(record[opts.Column])
		return g, err
	}
}

// geometries decodes every row. Rows that cannot be read give nil.
func (d *csvData) geometries() []geom.T {
	geoms := make([]geom.T, d.table.Len())
	for i, row := range d.table.Rows() {
		geoms[i], _ = d.rowGeometry(d.table.Objectify(row))
	}
	return geoms
}

func (d *csvData) collection() *FeatureCollection {
	var keys []string
	for _, col := range d.table.Columns() {
		keys = append(keys, col.Name)
	}

	geoms := d.geometries()
	fc := &FeatureCollection{Features: make([]*Feature, len(geoms))}
	for i, row := range d.table.Rows() {
		fc.Features[i] = &Feature{
			ID:         d.table.ID(i),
			Geometry:   geoms[i],
			Properties: d.table.Objectify(row),
			Keys:       keys,
		}
	}
	return fc
}

func (d *csvData) typeText() string {
	return collectionLabel(d.geometries(), "CSV Table", "Empty CSV Table")
}

func (d *csvData) geometryOf(id string) (geom.T, error) {
	record, err := d.table.Record(id)
	if err != nil {
		return nil, err
	}
	return d.rowGeometry(record)
}

// updateGeometry writes g back into the geometry columns of a row. XY
// tables take points only. Text columns keep their encoding; in auto mode
// the encoding is detected from the current cell, with WKT when the cell
// cannot be read.
func (d *csvData) updateGeometry(id string, g geom.T) error {
	if g == nil {
		return errors.Wrap(geometry.ErrUnsupportedType, "nil geometry")
	}

	opts := d.options
	if opts.Mode == ModeXY {
		x, y, ok := pointXY(g)
		if !ok {
			return errors.Wrapf(ErrUnsupportedOperation, "xy table cannot store a %s", geometry.TypeName(g))
		}
		return d.table.UpdateRow(id, map[string]interface{}{opts.XColumn: x, opts.YColumn: y})
	}

	var format geometry.Format
	switch opts.Mode {
	case ModeWKT:
		format = geometry.FormatWKT
	case ModeWKB:
		format = opts.Encoding.format()
		if col, err := d.table.Column(opts.Column); err == nil && col.Type == table.TypeBytes {
			format = geometry.FormatWKB
		}
	case ModeGeoJSON:
		format = geometry.FormatGeoJSON
	default:
		cell, err := d.table.Cell(id, opts.Column)
		if err != nil {
			return err
		}
		format = cellFormat(cell)
	}

	value, err := encodeCell(g, format)
	if err != nil {
		return err
	}
	return d.table.SetCell(id, opts.Column, value)
}
