package geolayer

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
)

// Feature is a geometry with properties and the id its layer assigned.
// Keys holds the property order; properties missing from Keys are
// written after the listed ones, sorted by name.
type Feature struct {
	ID         string
	Geometry   geom.T
	Properties map[string]interface{}
	Keys       []string

	// SourceID is the "id" member the feature was read with, if any.
	SourceID interface{}
}

// OrderedKeys returns the property names in output order.
func (f *Feature) OrderedKeys() []string {
	return orderedKeys(f.Properties, f.Keys)
}

// MarshalJSON encodes the feature as a GeoJSON Feature object.
func (f *Feature) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"Feature"`)

	if f.SourceID != nil {
		id, err := json.Marshal(f.SourceID)
		if err != nil {
			return nil, errors.Wrap(err, "feature id")
		}
		buf.WriteString(`,"id":`)
		buf.Write(id)
	}

	buf.WriteString(`,"geometry":`)
	if f.Geometry == nil {
		buf.WriteString("null")
	} else {
		g, err := geometry.MarshalGeoJSON(f.Geometry)
		if err != nil {
			return nil, err
		}
		buf.Write(g)
	}

	buf.WriteString(`,"properties":`)
	if err := writeProperties(&buf, f.Properties, f.Keys); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FeatureCollection is an ordered list of features.
type FeatureCollection struct {
	Features []*Feature
}

// MarshalJSON encodes the collection as a GeoJSON FeatureCollection.
func (fc *FeatureCollection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"FeatureCollection","features":[`)
	for i, f := range fc.Features {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := f.MarshalJSON()
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
		buf.Write(data)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// unmarshalJSON decodes data into v keeping numbers as json.Number, so
// integers beyond float64 precision are written back unchanged.
func unmarshalJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// decodeProperties decodes a GeoJSON properties member and returns its
// keys in document order. null and absent members give an empty map.
func decodeProperties(raw json.RawMessage) (map[string]interface{}, []string, error) {
	props := make(map[string]interface{})
	if isNull(raw) {
		return props, nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, errors.Wrapf(ErrFormat, "properties: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, errors.Wrap(ErrSchema, "properties must be an object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, errors.Wrapf(ErrFormat, "properties: %v", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, errors.Wrap(ErrFormat, "properties: expected key")
		}

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, nil, errors.Wrapf(ErrFormat, "property %q: %v", key, err)
		}
		if _, dup := props[key]; !dup {
			keys = append(keys, key)
		}
		props[key] = value
	}
	return props, keys, nil
}

// writeProperties writes props as a JSON object in key order.
func writeProperties(buf *bytes.Buffer, props map[string]interface{}, keys []string) error {
	buf.WriteByte('{')
	for i, key := range orderedKeys(props, keys) {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		v, err := json.Marshal(props[key])
		if err != nil {
			return errors.Wrapf(err, "property %q", key)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}

// orderedKeys lists the keys of props: those in keys first, in that
// order, then the rest sorted.
func orderedKeys(props map[string]interface{}, keys []string) []string {
	out := make([]string, 0, len(props))
	seen := make(map[string]bool, len(props))
	for _, k := range keys {
		if _, ok := props[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	var rest []string
	for k := range props {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// mergeKeys appends the keys of record missing from keys, sorted.
func mergeKeys(keys []string, record map[string]interface{}) []string {
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	var added []string
	for k := range record {
		if !present[k] {
			added = append(added, k)
		}
	}
	sort.Strings(added)
	return append(keys, added...)
}

// unionKeys merges the key orders of several features, keeping first
// appearance order.
func unionKeys(features []*Feature) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, f := range features {
		for _, k := range f.OrderedKeys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func copyProperties(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
