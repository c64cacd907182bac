package geolayer

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
	"github.com/tingold/geolayer/render"
	"github.com/tingold/geolayer/table"
)

// Kind is the variant of a layer.
type Kind int

// Layer kinds.
const (
	KindGeoJSON Kind = iota
	KindWKX
	KindCSV
)

func (k Kind) String() string {
	switch k {
	case KindGeoJSON:
		return "GeoJSON"
	case KindWKX:
		return "WKX"
	case KindCSV:
		return "CSV"
	default:
		return "Unknown"
	}
}

// source is the backing data of a layer: *geojsonData, *wkxData or
// *csvData. Layer methods switch over these three.
type source interface {
	isSource()
}

func (*geojsonData) isSource() {}
func (*wkxData) isSource() {}
func (*csvData) isSource() {}

// Layer is a named set of features read from one input. The features
// are addressed by ids assigned when the layer is created.
//
// Layer is not safe for concurrent use.
type Layer struct {
	id     string
	name   string
	data   source
	styles render.Styles
	state  render.State
	groups *render.Collection
}

func newLayer(name string, data source) *Layer {
	l := &Layer{
		id:     uuid.NewString(),
		name:   name,
		data:   data,
		styles: render.DefaultStyles(),
		state:  render.StateDefault,
	}
	l.render()
	return l
}

// NewGeoJSONLayer creates a layer from a GeoJSON FeatureCollection,
// Feature or geometry. Every feature gets a fresh id stored in its
// FeatureIDField property.
func NewGeoJSONLayer(name string, raw []byte) (*Layer, error) {
	d, err := parseGeoJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := d.assignIDs(); err != nil {
		return nil, err
	}
	return newLayer(name, d), nil
}

// NewWKXLayer creates a layer from lines of WKT, hex WKB or base64 WKB.
func NewWKXLayer(name, raw string) (*Layer, error) {
	features, err := ParseWKX(raw)
	if err != nil {
		return nil, err
	}
	return NewWKXLayerFromFeatures(name, features)
}

// NewWKXLayerFromFeatures creates a layer from decoded WKX features.
// Features without an id get one. The features are copied.
func NewWKXLayerFromFeatures(name string, features []*WKXFeature) (*Layer, error) {
	d, err := newWKXData(features)
	if err != nil {
		return nil, err
	}
	return newLayer(name, d), nil
}

// NewCSVLayer creates a layer from a table and the location of its
// geometry. The table is copied and gets a hidden RowIDField column.
// Options with ModeNone are rejected with ErrValidation.
func NewCSVLayer(name string, tbl *table.Table, opts GeometryOptions) (*Layer, error) {
	d, err := newCSVData(tbl, opts)
	if err != nil {
		return nil, err
	}
	return newLayer(name, d), nil
}

// ID returns the layer id.
func (l *Layer) ID() string { return l.id }

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// SetName renames the layer.
func (l *Layer) SetName(name string) { l.name = name }

// Kind returns the layer variant.
func (l *Layer) Kind() Kind {
	switch l.data.(type) {
	case *wkxData:
		return KindWKX
	case *csvData:
		return KindCSV
	default:
		return KindGeoJSON
	}
}

// IDField returns the attribute that holds feature ids.
func (l *Layer) IDField() string {
	switch d := l.data.(type) {
	case *geojsonData:
		return d.idField()
	case *wkxData:
		return GeometryIDField
	case *csvData:
		return RowIDField
	}
	return ""
}

// FeatureCollection returns all features with their properties. The
// result is a copy.
func (l *Layer) FeatureCollection() *FeatureCollection {
	switch d := l.data.(type) {
	case *geojsonData:
		return d.collection()
	case *wkxData:
		return d.collection()
	case *csvData:
		return d.collection()
	}
	return &FeatureCollection{}
}

// RendererGeometries returns the displayable geometries keyed by feature
// id. A geometry collection contributes one entry per member, recursively;
// features without geometry contribute nothing.
func (l *Layer) RendererGeometries() []render.Geometry {
	var out []render.Geometry
	for _, f := range l.FeatureCollection().Features {
		for _, leaf := range geometry.Leaves(f.Geometry) {
			out = append(out, render.Geometry{ID: f.ID, Geometry: leaf})
		}
	}
	return out
}

// GeometryTypeText returns a label describing the geometry types of the
// layer, such as "Single Point Geometry" or "Mixed CSV Table".
func (l *Layer) GeometryTypeText() string {
	switch d := l.data.(type) {
	case *geojsonData:
		return d.typeText()
	case *wkxData:
		return d.typeText()
	case *csvData:
		return d.typeText()
	}
	return "Unknown"
}

// FeaturesCount returns the number of features.
func (l *Layer) FeaturesCount() int {
	switch d := l.data.(type) {
	case *geojsonData:
		if d.isBare() {
			return 1
		}
		return len(d.features)
	case *wkxData:
		return len(d.features)
	case *csvData:
		return d.table.Len()
	}
	return 0
}

// AttributesTable returns a copy of the attribute table. Its id field
// holds the feature ids.
func (l *Layer) AttributesTable() *table.Table {
	switch d := l.data.(type) {
	case *geojsonData:
		return d.attrs.Clone()
	case *wkxData:
		return d.attrs.Clone()
	case *csvData:
		return d.table.Clone()
	}
	return nil
}

// View returns the user-facing projection of the attribute table.
func (l *Layer) View() table.View {
	return l.AttributesTable().View()
}

// Record returns the attributes of a feature.
func (l *Layer) Record(id string) (map[string]interface{}, error) {
	switch d := l.data.(type) {
	case *geojsonData:
		return d.record(id)
	case *wkxData:
		if _, err := d.feature(id); err != nil {
			return nil, err
		}
		return map[string]interface{}{GeometryIDField: id}, nil
	case *csvData:
		return d.table.Record(id)
	}
	return nil, errors.Wrapf(ErrLookup, "no feature with id %q", id)
}

// UpdateAttributes merges record into the attributes of a feature. WKX
// layers and bare GeoJSON geometries have no attributes to update.
func (l *Layer) UpdateAttributes(id string, record map[string]interface{}) error {
	switch d := l.data.(type) {
	case *geojsonData:
		return d.updateAttributes(id, record)
	case *csvData:
		return d.table.UpdateRow(id, record)
	}
	return errors.Wrapf(ErrUnsupportedOperation, "%v layer has no attributes", l.Kind())
}

// Geometry returns the geometry of a feature. It is nil for features
// without geometry.
func (l *Layer) Geometry(id string) (geom.T, error) {
	switch d := l.data.(type) {
	case *geojsonData:
		return d.geometryOf(id)
	case *wkxData:
		f, err := d.feature(id)
		if err != nil {
			return nil, err
		}
		return f.Geometry()
	case *csvData:
		return d.geometryOf(id)
	}
	return nil, errors.Wrapf(ErrLookup, "no feature with id %q", id)
}

// UpdateGeometry replaces the geometry of a feature. WKX features and
// CSV cells are written back in the encoding they were read with. The
// display is not updated until Rerender.
func (l *Layer) UpdateGeometry(id string, g geom.T) error {
	switch d := l.data.(type) {
	case *geojsonData:
		return d.updateGeometry(id, g)
	case *wkxData:
		return d.updateGeometry(id, g)
	case *csvData:
		return d.updateGeometry(id, g)
	}
	return errors.Wrapf(ErrUnsupportedOperation, "%v layer geometry cannot be updated", l.Kind())
}

// Styles returns the style records of the layer.
func (l *Layer) Styles() render.Styles { return l.styles }

// SetStyles replaces the style records and reapplies the current state.
func (l *Layer) SetStyles(styles render.Styles) {
	l.styles = styles
	l.groups.SetAllStyles(l.styles.For(l.state))
}

// State returns the style state applied to the whole layer.
func (l *Layer) State() render.State { return l.state }

// Groups returns the primitive groups of the layer.
func (l *Layer) Groups() *render.Collection { return l.groups }

// SetStyle applies the style of state to one feature. Unknown ids are
// ignored.
func (l *Layer) SetStyle(id string, state render.State) {
	l.groups.SetStyle(id, l.styles.For(state))
}

// SetAllStyles applies the style of state to every feature and makes it
// the layer state.
func (l *Layer) SetAllStyles(state render.State) {
	l.state = state
	l.groups.SetAllStyles(l.styles.For(state))
}

// Rerender rebuilds the primitive groups from the current geometries and
// applies the layer state style. Hidden features become visible.
func (l *Layer) Rerender() {
	l.render()
}

func (l *Layer) render() {
	l.groups = render.NewCollection(l.RendererGeometries())
	l.groups.SetAllStyles(l.styles.For(l.state))
}

// Hide stops a feature from being drawn.
func (l *Layer) Hide(id string) { l.groups.Hide(id) }

// Show undoes Hide.
func (l *Layer) Show(id string) { l.groups.Show(id) }

// Bound returns the bounding box of all features. ok is false for a
// layer without geometry.
func (l *Layer) Bound() (orb.Bound, bool) {
	return l.groups.Bound()
}

// FeatureBound returns the bounding box of one feature.
func (l *Layer) FeatureBound(id string) (orb.Bound, bool) {
	g := l.groups.Get(id)
	if g == nil {
		return orb.Bound{}, false
	}
	return g.Bound()
}

// Close releases the primitive groups. A closed layer draws nothing until
// Rerender.
func (l *Layer) Close() {
	l.groups = nil
}

// geometries returns the feature geometries aligned with the rows of
// AttributesTable.
func (l *Layer) geometries() []geom.T {
	switch d := l.data.(type) {
	case *geojsonData:
		if d.isBare() {
			return []geom.T{d.geometry}
		}
		geoms := make([]geom.T, len(d.features))
		for i, f := range d.features {
			geoms[i] = f.Geometry
		}
		return geoms
	case *wkxData:
		return d.geometries()
	case *csvData:
		return d.geometries()
	}
	return nil
}
