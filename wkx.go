package geolayer

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
	"github.com/tingold/geolayer/table"
)

// WKXFeature is one line of WKT or WKB input. Format is FormatWKT with
// Data holding the text, or FormatWKBHex / FormatWKBBase64 with Data
// holding the decoded WKB bytes.
type WKXFeature struct {
	ID     string
	Format geometry.Format
	Data   []byte
}

// Geometry decodes the feature.
func (f *WKXFeature) Geometry() (geom.T, error) {
	switch f.Format {
	case geometry.FormatWKT:
		return geometry.ParseWKT(string(f.Data))
	case geometry.FormatWKBHex, geometry.FormatWKBBase64:
		return geometry.ParseWKB(f.Data)
	default:
		return nil, errors.Wrapf(ErrFormat, "WKX feature encoding %v", f.Format)
	}
}

// Text returns the feature in its original text encoding.
func (f *WKXFeature) Text() (string, error) {
	if f.Format == geometry.FormatWKT {
		return string(f.Data), nil
	}
	g, err := f.Geometry()
	if err != nil {
		return "", err
	}
	return geometry.MarshalString(g, f.Format)
}

// ParseWKXLine reads one line of WKT, hex WKB or base64 WKB, in that
// order of preference. The returned feature has no id.
func ParseWKXLine(line string) (*WKXFeature, error) {
	g, format, err := geometry.ParseText(line)
	if err != nil {
		return nil, err
	}
	if format == geometry.FormatWKT {
		return &WKXFeature{Format: format, Data: []byte(line)}, nil
	}
	data, err := geometry.MarshalWKB(g)
	if err != nil {
		return nil, err
	}
	return &WKXFeature{Format: format, Data: data}, nil
}

// ParseWKX reads every non-blank line of raw. It fails on the first line
// that cannot be read.
func ParseWKX(raw string) ([]*WKXFeature, error) {
	lines := nonBlankLines(raw)
	if len(lines) == 0 {
		return nil, errors.Wrap(ErrFormat, "no WKX lines")
	}

	features := make([]*WKXFeature, 0, len(lines))
	for i, line := range lines {
		f, err := ParseWKXLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", i+1)
		}
		features = append(features, f)
	}
	return features, nil
}

type wkxData struct {
	features []*WKXFeature
	attrs    *table.Table
}

func newWKXData(features []*WKXFeature) (*wkxData, error) {
	d := &wkxData{features: make([]*WKXFeature, len(features))}
	records := make([]map[string]interface{}, len(features))
	for i, f := range features {
		if _, err := f.Geometry(); err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
		copied := &WKXFeature{ID: f.ID, Format: f.Format, Data: append([]byte(nil), f.Data...)}
		if copied.ID == "" {
			copied.ID = uuid.NewString()
		}
		d.features[i] = copied
		records[i] = map[string]interface{}{GeometryIDField: copied.ID}
	}

	attrs, err := table.FromRecords(records, []string{GeometryIDField}, GeometryIDField)
	if err != nil {
		return nil, err
	}
	d.attrs = attrs
	return d, nil
}

func (d *wkxData) feature(id string) (*WKXFeature, error) {
	for _, f := range d.features {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, errors.Wrapf(ErrLookup, "no feature with id %q", id)
}

func (d *wkxData) geometries() []geom.T {
	geoms := make([]geom.T, len(d.features))
	for i, f := range d.features {
		geoms[i], _ = f.Geometry()
	}
	return geoms
}

func (d *wkxData) collection() *FeatureCollection {
	fc := &FeatureCollection{Features: make([]*Feature, len(d.features))}
	for i, g := range d.geometries() {
		id := d.features[i].ID
		fc.Features[i] = &Feature{
			ID:         id,
			Geometry:   g,
			Properties: map[string]interface{}{GeometryIDField: id},
			Keys:       []string{GeometryIDField},
		}
	}
	return fc
}

func (d *wkxData) typeText() string {
	typ, mixed := commonType(d.geometries())
	switch {
	case mixed:
		return "Mixed WKX Collection"
	case typ == "":
		return "Unknown"
	default:
		return "WKX " + typ + " Collection"
	}
}

// updateGeometry replaces the feature geometry, keeping its encoding.
func (d *wkxData) updateGeometry(id string, g geom.T) error {
	f, err := d.feature(id)
	if err != nil {
		return err
	}
	if g == nil {
		return errors.Wrap(geometry.ErrUnsupportedType, "nil geometry")
	}

	var data []byte
	if f.Format == geometry.FormatWKT {
		s, err := geometry.MarshalWKT(g)
		if err != nil {
			return err
		}
		data = []byte(s)
	} else {
		if data, err = geometry.MarshalWKB(g); err != nil {
			return err
		}
	}
	f.Data = data
	return nil
}
