package geolayer

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
	"github.com/tingold/geolayer/table"
)

const (
	typeFeature           = "Feature"
	typeFeatureCollection = "FeatureCollection"
)

// rawObject holds the members of a GeoJSON object that a layer reads.
type rawObject struct {
	Type       string            `json:"type"`
	ID         interface{}       `json:"id,omitempty"`
	Features   []json.RawMessage `json:"features"`
	Geometry   json.RawMessage   `json:"geometry"`
	Properties json.RawMessage   `json:"properties"`
}

// geojsonData backs a layer read from a FeatureCollection, a Feature or a
// bare geometry.
type geojsonData struct {
	kind     string // FeatureCollection, Feature or a geometry type
	features []*Feature

	// bare geometry input
	geometry   geom.T
	geometryID string

	attrs *table.Table
}

// parseGeoJSON decodes a GeoJSON document without assigning ids.
func parseGeoJSON(data []byte) (*geojsonData, error) {
	var obj rawObject
	if err := unmarshalJSON(data, &obj); err != nil {
		return nil, errors.Wrapf(ErrFormat, "GeoJSON: %v", err)
	}

	d := &geojsonData{kind: obj.Type}
	switch {
	case obj.Type == "":
		return nil, errors.Wrap(ErrSchema, "missing type member")

	case obj.Type == typeFeatureCollection:
		d.features = make([]*Feature, 0, len(obj.Features))
		for i, raw := range obj.Features {
			f, err := parseFeature(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "feature %d", i)
			}
			d.features = append(d.features, f)
		}

	case obj.Type == typeFeature:
		f, err := featureFromObject(&obj)
		if err != nil {
			return nil, err
		}
		d.features = []*Feature{f}

	case geometry.IsGeometryType(obj.Type):
		g, err := geometry.ParseGeoJSON(data)
		if err != nil {
			return nil, err
		}
		d.geometry = g

	default:
		return nil, errors.Wrapf(ErrSchema, "unknown type %q", obj.Type)
	}
	return d, nil
}

func parseFeature(raw json.RawMessage) (*Feature, error) {
	var obj rawObject
	if err := unmarshalJSON(raw, &obj); err != nil {
		return nil, errors.Wrapf(ErrFormat, "GeoJSON: %v", err)
	}
	if obj.Type != typeFeature {
		return nil, errors.Wrapf(ErrSchema, "expected Feature, got %q", obj.Type)
	}
	return featureFromObject(&obj)
}

func featureFromObject(obj *rawObject) (*Feature, error) {
	g, err := parseGeometryMember(obj.Geometry)
	if err != nil {
		return nil, err
	}
	props, keys, err := decodeProperties(obj.Properties)
	if err != nil {
		return nil, err
	}
	return &Feature{Geometry: g, Properties: props, Keys: keys, SourceID: obj.ID}, nil
}

// parseGeometryMember decodes the geometry member of a Feature. null is a
// valid, empty geometry.
func parseGeometryMember(raw json.RawMessage) (geom.T, error) {
	if isNull(raw) {
		return nil, nil
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.Wrapf(ErrFormat, "geometry: %v", err)
	}
	if !geometry.IsGeometryType(probe.Type) {
		return nil, errors.Wrapf(ErrSchema, "unknown geometry type %q", probe.Type)
	}
	return geometry.ParseGeoJSON(raw)
}

// assignIDs gives every feature a fresh id under FeatureIDField, or the
// bare geometry a synthetic id.
func (d *geojsonData) assignIDs() error {
	if d.isBare() {
		d.geometryID = uuid.NewString()
	}
	for _, f := range d.features {
		f.ID = uuid.NewString()
		if _, exists := f.Properties[FeatureIDField]; !exists {
			f.Keys = append(f.Keys, FeatureIDField)
		}
		f.Properties[FeatureIDField] = f.ID
	}
	return d.refresh()
}

// refresh rebuilds the attribute table from the feature properties.
func (d *geojsonData) refresh() error {
	if d.isBare() {
		attrs, err := table.FromRecords(
			[]map[string]interface{}{{GeometryIDField: d.geometryID}},
			nil, GeometryIDField)
		if err != nil {
			return err
		}
		d.attrs = attrs
		return nil
	}

	records := make([]map[string]interface{}, len(d.features))
	for i, f := range d.features {
		records[i] = f.Properties
	}
	attrs, err := table.FromRecords(records, unionKeys(d.features), FeatureIDField)
	if err != nil {
		return err
	}
	d.attrs = attrs
	return nil
}

func (d *geojsonData) isBare() bool {
	return d.kind != typeFeature && d.kind != typeFeatureCollection
}

func (d *geojsonData) idField() string {
	if d.isBare() {
		return GeometryIDField
	}
	return FeatureIDField
}

func (d *geojsonData) feature(id string) (*Feature, error) {
	for _, f := range d.features {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, errors.Wrapf(ErrLookup, "no feature with id %q", id)
}

// firstGeometry returns the geometry of the first feature, or the bare
// geometry.
func (d *geojsonData) firstGeometry() geom.T {
	if d.isBare() {
		return d.geometry
	}
	if len(d.features) == 0 {
		return nil
	}
	return d.features[0].Geometry
}

func (d *geojsonData) collection() *FeatureCollection {
	if d.isBare() {
		return &FeatureCollection{Features: []*Feature{{
			ID:         d.geometryID,
			Geometry:   d.geometry,
			Properties: map[string]interface{}{},
		}}}
	}

	fc := &FeatureCollection{Features: make([]*Feature, len(d.features))}
	for i, f := range d.features {
		fc.Features[i] = &Feature{
			ID:         f.ID,
			Geometry:   f.Geometry,
			Properties: copyProperties(f.Properties),
			Keys:       append([]string(nil), f.Keys...),
			SourceID:   f.SourceID,
		}
	}
	return fc
}

func (d *geojsonData) typeText() string {
	switch d.kind {
	case typeFeatureCollection:
		geoms := make([]geom.T, len(d.features))
		for i, f := range d.features {
			geoms[i] = f.Geometry
		}
		return collectionLabel(geoms, "Feature Collection", "Empty Feature Collection")
	case typeFeature:
		if g := d.features[0].Geometry; g != nil {
			return "Single " + geometry.TypeName(g) + " Feature"
		}
		return "Unknown"
	default:
		return "Single " + d.kind + " Geometry"
	}
}

func (d *geojsonData) record(id string) (map[string]interface{}, error) {
	if d.isBare() {
		if id != d.geometryID {
			return nil, errors.Wrapf(ErrLookup, "no feature with id %q", id)
		}
		return map[string]interface{}{GeometryIDField: d.geometryID}, nil
	}
	f, err := d.feature(id)
	if err != nil {
		return nil, err
	}
	return copyProperties(f.Properties), nil
}

// updateAttributes merges record into the feature properties. The id
// property is read-only. On error nothing is changed.
func (d *geojsonData) updateAttributes(id string, record map[string]interface{}) error {
	if d.isBare() {
		return errors.Wrap(ErrUnsupportedOperation, "bare geometry has no attributes")
	}
	f, err := d.feature(id)
	if err != nil {
		return err
	}
	if _, ok := record[FeatureIDField]; ok {
		return errors.Wrapf(ErrColumn, "id column %q is read-only", FeatureIDField)
	}

	prevProps, prevKeys := f.Properties, f.Keys
	props := copyProperties(f.Properties)
	for k, v := range record {
		props[k] = v
	}
	f.Properties = props
	f.Keys = mergeKeys(append([]string(nil), f.Keys...), record)

	if err := d.refresh(); err != nil {
		f.Properties, f.Keys = prevProps, prevKeys
		return err
	}
	return nil
}

func (d *geojsonData) geometryOf(id string) (geom.T, error) {
	if d.isBare() {
		if id != d.geometryID {
			return nil, errors.Wrapf(ErrLookup, "no feature with id %q", id)
		}
		return d.geometry, nil
	}
	f, err := d.feature(id)
	if err != nil {
		return nil, err
	}
	return f.Geometry, nil
}

func (d *geojsonData) updateGeometry(id string, g geom.T) error {
	if d.isBare() {
		return errors.Wrap(ErrUnsupportedOperation, "bare geometry cannot be replaced")
	}
	f, err := d.feature(id)
	if err != nil {
		return err
	}
	f.Geometry = g
	return nil
}
