package geolayer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
	"github.com/tingold/geolayer/render"
	"github.com/tingold/geolayer/table"
)

const citiesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 7, "geometry": {"type": "Point", "coordinates": [2.3522, 48.8566]}, "properties": {"name": "Paris", "population": 2161000}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-0.1276, 51.5074]}, "properties": {"name": "London", "capital": true}},
    {"type": "Feature", "geometry": null, "properties": {"name": "Atlantis"}}
  ]
}`

func mustPoint(x, y float64) *geom.Point {
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{x, y})
}

func mustWKT(t testing.TB, s string) geom.T {
	t.Helper()
	g, err := geometry.ParseWKT(s)
	if err != nil {
		t.Fatalf("ParseWKT(%q) failed: %v", s, err)
	}
	return g
}

func featureIDs(l *Layer) []string {
	var ids []string
	for _, f := range l.FeatureCollection().Features {
		ids = append(ids, f.ID)
	}
	return ids
}

func TestNewGeoJSONLayer_BarePoint(t *testing.T) {
	l, err := NewGeoJSONLayer("point", []byte(`{"type":"Point","coordinates":[1,2]}`))
	if err != nil {
		t.Fatalf("NewGeoJSONLayer failed: %v", err)
	}

	if l.Kind() != KindGeoJSON {
		t.Errorf("expected %v, got %v", KindGeoJSON, l.Kind())
	}
	if l.FeaturesCount() != 1 {
		t.Errorf("expected 1 feature, got %d", l.FeaturesCount())
	}
	if text := l.GeometryTypeText(); text != "Single Point Geometry" {
		t.Errorf("expected %q, got %q", "Single Point Geometry", text)
	}
	if l.IDField() != GeometryIDField {
		t.Errorf("expected %q, got %q", GeometryIDField, l.IDField())
	}

	ids := featureIDs(l)
	if len(ids) != 1 || ids[0] == "" {
		t.Fatalf("expected one synthetic id, got %v", ids)
	}
	g, err := l.Geometry(ids[0])
	if err != nil {
		t.Fatalf("Geometry failed: %v", err)
	}
	if !geometry.Equal(g, mustPoint(1, 2)) {
		t.Errorf("expected POINT (1 2), got %v", g)
	}

	if err := l.UpdateAttributes(ids[0], map[string]interface{}{"a": 1}); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("expected ErrUnsupportedOperation, got %v", err)
	}
	if err := l.UpdateGeometry(ids[0], mustPoint(3, 4)); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("expected ErrUnsupportedOperation, got %v", err)
	}
}

func TestNewGeoJSONLayer_FeatureCollection(t *testing.T) {
	l, err := NewGeoJSONLayer("cities", []byte(citiesGeoJSON))
	if err != nil {
		t.Fatalf("NewGeoJSONLayer failed: %v", err)
	}

	if l.FeaturesCount() != 3 {
		t.Errorf("expected 3 features, got %d", l.FeaturesCount())
	}
	if text := l.GeometryTypeText(); text != "Point Feature Collection" {
		t.Errorf("expected %q, got %q", "Point Feature Collection", text)
	}

	fc := l.FeatureCollection()
	first := fc.Features[0]
	if first.Properties[FeatureIDField] != first.ID {
		t.Errorf("expected id property %q, got %v", first.ID, first.Properties[FeatureIDField])
	}
	if first.SourceID != json.Number("7") {
		t.Errorf("expected source id 7, got %v", first.SourceID)
	}
	keys := first.OrderedKeys()
	if len(keys) != 3 || keys[0] != "name" || keys[1] != "population" || keys[2] != FeatureIDField {
		t.Errorf("expected document key order, got %v", keys)
	}
	if fc.Features[2].Geometry != nil {
		t.Errorf("expected nil geometry, got %v", fc.Features[2].Geometry)
	}

	view := l.View()
	for _, col := range view.Columns {
		if col == FeatureIDField {
			t.Errorf("expected %s to be hidden", FeatureIDField)
		}
	}
	if len(view.Rows) != 3 || view.Rows[1].ID != fc.Features[1].ID {
		t.Errorf("expected rows tagged with feature ids, got %+v", view.Rows)
	}

	// The null geometry contributes nothing to the renderer.
	if n := len(l.RendererGeometries()); n != 2 {
		t.Errorf("expected 2 renderer geometries, got %d", n)
	}
}

func TestNewGeoJSONLayer_Labels(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"single feature", `{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":null}`, "Single LineString Feature"},
		{"feature without geometry", `{"type":"Feature","geometry":null,"properties":{}}`, "Unknown"},
		{"mixed", `{"type":"FeatureCollection","features":[
			{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}},
			{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}}]}`, "Mixed Feature Collection"},
		{"empty", `{"type":"FeatureCollection","features":[]}`, "Empty Feature Collection"},
		{"bare polygon", `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`, "Single Polygon Geometry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewGeoJSONLayer(tt.name, []byte(tt.raw))
			if err != nil {
				t.Fatalf("NewGeoJSONLayer failed: %v", err)
			}
			if text := l.GeometryTypeText(); text != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, text)
			}
		})
	}
}

func TestNewGeoJSONLayer_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected error
	}{
		{"not JSON", `{"type":`, ErrFormat},
		{"missing type", `{"coordinates":[1,2]}`, ErrSchema},
		{"unknown type", `{"type":"Circle"}`, ErrSchema},
		{"unknown geometry type", `{"type":"Feature","geometry":{"type":"Circle"},"properties":{}}`, ErrSchema},
		{"member not a feature", `{"type":"FeatureCollection","features":[{"type":"Point","coordinates":[1,2]}]}`, ErrSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGeoJSONLayer(tt.name, []byte(tt.raw))
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestGeoJSONLayer_UpdateAttributes(t *testing.T) {
	l, err := NewGeoJSONLayer("cities", []byte(citiesGeoJSON))
	if err != nil {
		t.Fatalf("NewGeoJSONLayer failed: %v", err)
	}
	id := featureIDs(l)[0]

	if err := l.UpdateAttributes(id, map[string]interface{}{"name": "Lutetia", "founded": -52.0}); err != nil {
		t.Fatalf("UpdateAttributes failed: %v", err)
	}
	record, err := l.Record(id)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if record["name"] != "Lutetia" || record["founded"] != -52.0 {
		t.Errorf("expected updated record, got %v", record)
	}
	if _, err := l.AttributesTable().Column("founded"); err != nil {
		t.Errorf("expected new column in attribute table: %v", err)
	}

	if err := l.UpdateAttributes(id, map[string]interface{}{FeatureIDField: "x"}); !errors.Is(err, ErrColumn) {
		t.Errorf("expected ErrColumn, got %v", err)
	}
	if err := l.UpdateAttributes("missing", map[string]interface{}{"name": "x"}); !errors.Is(err, ErrLookup) {
		t.Errorf("expected ErrLookup, got %v", err)
	}
}

func TestUpdateGeometry_RoundTrip(t *testing.T) {
	csvTable := func(t *testing.T, content string) *table.Table {
		tbl, err := table.FromCSV(content, ',', "")
		if err != nil {
			t.Fatalf("FromCSV failed: %v", err)
		}
		return tbl
	}

	tests := []struct {
		name   string
		layer  func(t *testing.T) (*Layer, error)
		update geom.T
	}{
		{
			name: "GeoJSON",
			layer: func(t *testing.T) (*Layer, error) {
				return NewGeoJSONLayer("g", []byte(citiesGeoJSON))
			},
			update: mustWKT(t, "LINESTRING (0 0, 5 5, 10 0)"),
		},
		{
			name: "WKX text",
			layer: func(t *testing.T) (*Layer, error) {
				return NewWKXLayer("w", "POINT (1 2)\nPOINT (3 4)")
			},
			update: mustWKT(t, "POLYGON ((0 0, 4 0, 4 4, 0 0))"),
		},
		{
			name: "WKX hex",
			layer: func(t *testing.T) (*Layer, error) {
				return NewWKXLayer("w", "0101000000000000000000F03F0000000000000040")
			},
			update: mustPoint(9, 8),
		},
		{
			name: "CSV xy",
			layer: func(t *testing.T) (*Layer, error) {
				return NewCSVLayer("c", csvTable(t, "x,y\n1,2\n3,4"), GeometryOptions{Mode: ModeXY, XColumn: "x", YColumn: "y"})
			},
			update: mustPoint(-7.5, 0.25),
		},
		{
			name: "CSV wkt",
			layer: func(t *testing.T) (*Layer, error) {
				return NewCSVLayer("c", csvTable(t, "name,wkt\na,POINT (1 2)"), GeometryOptions{Mode: ModeWKT, Column: "wkt"})
			},
			update: mustWKT(t, "MULTIPOINT ((1 1), (2 2))"),
		},
		{
			name: "CSV wkb base64",
			layer: func(t *testing.T) (*Layer, error) {
				return NewCSVLayer("c", csvTable(t, "name,shape\na,AQEAAAAAAAAAAADwPwAAAAAAAABA"),
					GeometryOptions{Mode: ModeWKB, Column: "shape", Encoding: EncodingBase64})
			},
			update: mustPoint(5, 6),
		},
		{
			name: "CSV geojson",
			layer: func(t *testing.T) (*Layer, error) {
				return NewCSVLayer("c", csvTable(t, "name,geojson\na,\"{\"\"type\"\":\"\"Point\"\",\"\"coordinates\"\":[1,2]}\""),
					GeometryOptions{Mode: ModeGeoJSON, Column: "geojson"})
			},
			update: mustWKT(t, "LINESTRING (1 1, 2 2)"),
		},
		{
			name: "CSV auto",
			layer: func(t *testing.T) (*Layer, error) {
				return NewCSVLayer("c", csvTable(t, "name,geom\na,0101000000000000000000F03F0000000000000040"),
					GeometryOptions{Mode: ModeAuto, Column: "geom"})
			},
			update: mustPoint(3, 3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := tt.layer(t)
			if err != nil {
				t.Fatalf("layer failed: %v", err)
			}
			id := featureIDs(l)[0]

			if err := l.UpdateGeometry(id, tt.update); err != nil {
				t.Fatalf("UpdateGeometry failed: %v", err)
			}
			g, err := l.Geometry(id)
			if err != nil {
				t.Fatalf("Geometry failed: %v", err)
			}
			if !geometry.Equal(g, tt.update) {
				t.Errorf("expected %v, got %v", tt.update, g)
			}
		})
	}
}

func TestNewWKXLayer(t *testing.T) {
	l, err := NewWKXLayer("points", "POINT (1 2)\nPOINT (3 4)")
	if err != nil {
		t.Fatalf("NewWKXLayer failed: %v", err)
	}

	if l.Kind() != KindWKX {
		t.Errorf("expected %v, got %v", KindWKX, l.Kind())
	}
	if l.FeaturesCount() != 2 {
		t.Errorf("expected 2 features, got %d", l.FeaturesCount())
	}
	if text := l.GeometryTypeText(); text != "WKX Point Collection" {
		t.Errorf("expected %q, got %q", "WKX Point Collection", text)
	}
	if err := l.UpdateAttributes(featureIDs(l)[0], map[string]interface{}{"a": 1}); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("expected ErrUnsupportedOperation, got %v", err)
	}

	mixed, err := NewWKXLayer("mixed", "POINT (1 2)\nLINESTRING (0 0, 1 1)")
	if err != nil {
		t.Fatalf("NewWKXLayer failed: %v", err)
	}
	if text := mixed.GeometryTypeText(); text != "Mixed WKX Collection" {
		t.Errorf("expected %q, got %q", "Mixed WKX Collection", text)
	}
}

func TestWKXFeature_KeepsEncoding(t *testing.T) {
	hexPoint := "0101000000000000000000F03F0000000000000040"

	f, err := ParseWKXLine(hexPoint)
	if err != nil {
		t.Fatalf("ParseWKXLine failed: %v", err)
	}
	if f.Format != geometry.FormatWKBHex {
		t.Fatalf("expected %v, got %v", geometry.FormatWKBHex, f.Format)
	}

	wktPoint, err := geometry.ParseWKT("POINT (1 2)")
	if err != nil {
		t.Fatalf("ParseWKT failed: %v", err)
	}
	g, err := f.Geometry()
	if err != nil {
		t.Fatalf("Geometry failed: %v", err)
	}
	if !geometry.Equal(g, wktPoint) {
		t.Errorf("expected hex and WKT points to be equal, got %v and %v", g, wktPoint)
	}

	l, err := NewWKXLayerFromFeatures("hex", []*WKXFeature{f})
	if err != nil {
		t.Fatalf("NewWKXLayerFromFeatures failed: %v", err)
	}
	if f.ID != "" {
		t.Error("expected input feature to be left untouched")
	}
	if err := l.UpdateGeometry(featureIDs(l)[0], mustPoint(5, 6)); err != nil {
		t.Fatalf("UpdateGeometry failed: %v", err)
	}

	d := l.data.(*wkxData)
	text, err := d.features[0].Text()
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	expected, _ := geometry.MarshalWKBHex(mustPoint(5, 6))
	if text != expected {
		t.Errorf("expected %q, got %q", expected, text)
	}
}

func TestParseWKX_Errors(t *testing.T) {
	if _, err := ParseWKX("  \n "); !errors.Is(err, ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
	if _, err := ParseWKX("POINT (1 2)\nPOINT (x y)"); !errors.Is(err, ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestNewCSVLayer(t *testing.T) {
	tbl, err := table.FromCSV("name,x,y\na,1,2\nb,3,4\nc,,", ',', "")
	if err != nil {
		t.Fatalf("FromCSV failed: %v", err)
	}

	l, err := NewCSVLayer("points", tbl, GeometryOptions{Mode: ModeXY, XColumn: "x", YColumn: "y"})
	if err != nil {
		t.Fatalf("NewCSVLayer failed: %v", err)
	}

	if tbl.ColumnIndex(RowIDField) >= 0 {
		t.Error("expected the input table to be left untouched")
	}
	if l.IDField() != RowIDField {
		t.Errorf("expected %q, got %q", RowIDField, l.IDField())
	}
	if l.FeaturesCount() != 3 {
		t.Errorf("expected 3 features, got %d", l.FeaturesCount())
	}
	if text := l.GeometryTypeText(); text != "Point CSV Table" {
		t.Errorf("expected %q, got %q", "Point CSV Table", text)
	}

	fc := l.FeatureCollection()
	if fc.Features[2].Geometry != nil {
		t.Errorf("expected empty cells to give nil geometry, got %v", fc.Features[2].Geometry)
	}
	if fc.Features[0].Properties["name"] != "a" {
		t.Errorf("expected name a, got %v", fc.Features[0].Properties["name"])
	}

	id := fc.Features[1].ID
	if err := l.UpdateAttributes(id, map[string]interface{}{"name": "bee"}); err != nil {
		t.Fatalf("UpdateAttributes failed: %v", err)
	}
	if record, _ := l.Record(id); record["name"] != "bee" {
		t.Errorf("expected bee, got %v", record["name"])
	}
	if err := l.UpdateGeometry(id, mustWKT(t, "LINESTRING (0 0, 1 1)")); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("expected ErrUnsupportedOperation, got %v", err)
	}
}

func TestNewCSVLayer_Validation(t *testing.T) {
	tbl, err := table.FromCSV("a,b\n1,2", ',', "")
	if err != nil {
		t.Fatalf("FromCSV failed: %v", err)
	}

	tests := []struct {
		name     string
		opts     GeometryOptions
		expected error
	}{
		{"none", GeometryOptions{Mode: ModeNone}, ErrValidation},
		{"unknown mode", GeometryOptions{Mode: "polar"}, ErrValidation},
		{"missing x column", GeometryOptions{Mode: ModeXY, XColumn: "x", YColumn: "b"}, ErrColumn},
		{"missing wkt column", GeometryOptions{Mode: ModeWKT, Column: "wkt"}, ErrColumn},
		{"bad encoding", GeometryOptions{Mode: ModeWKB, Column: "a", Encoding: "ascii85"}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVLayer("t", tbl, tt.opts)
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestCSVLayer_AutoWriteBackKeepsEncoding(t *testing.T) {
	content := "name,shape\n" +
		"wkt,POINT (1 2)\n" +
		"hex,0101000000000000000000F03F0000000000000040\n" +
		"geojson,\"{\"\"type\"\":\"\"Point\"\",\"\"coordinates\"\":[1,2]}\"\n" +
		"broken,???\n"
	tbl, err := table.FromCSV(content, ',', "")
	if err != nil {
		t.Fatalf("FromCSV failed: %v", err)
	}
	l, err := NewCSVLayer("auto", tbl, GeometryOptions{Mode: ModeAuto, Column: "shape"})
	if err != nil {
		t.Fatalf("NewCSVLayer failed: %v", err)
	}

	if text := l.GeometryTypeText(); text != "Point CSV Table" {
		t.Errorf("expected %q, got %q", "Point CSV Table", text)
	}

	ids := featureIDs(l)
	expected := []geometry.Format{geometry.FormatWKT, geometry.FormatWKBHex, geometry.FormatGeoJSON, geometry.FormatWKT}
	for i, id := range ids {
		if err := l.UpdateGeometry(id, mustPoint(7, 8)); err != nil {
			t.Fatalf("UpdateGeometry row %d failed: %v", i, err)
		}
		cell, err := l.data.(*csvData).table.Cell(id, "shape")
		if err != nil {
			t.Fatalf("Cell failed: %v", err)
		}
		_, format, err := decodeCell(cell)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if format != expected[i] {
			t.Errorf("row %d: expected %v, got %v", i, expected[i], format)
		}
	}
}

func TestLayer_StylesAndBounds(t *testing.T) {
	l, err := NewWKXLayer("lines", "LINESTRING (0 0, 2 2)\nPOINT (5 -1)")
	if err != nil {
		t.Fatalf("NewWKXLayer failed: %v", err)
	}
	ids := featureIDs(l)

	if l.Groups().Len() != 2 {
		t.Fatalf("expected 2 groups, got %d", l.Groups().Len())
	}
	defaults := render.DefaultStyles()
	if l.Groups().Get(ids[0]).Style != defaults.Default {
		t.Error("expected default style after construction")
	}

	l.SetAllStyles(render.StateLayerSelected)
	l.SetStyle(ids[1], render.StateFeatureSelected)
	if l.Groups().Get(ids[0]).Style != defaults.LayerSelected {
		t.Error("expected layer selected style")
	}
	if l.Groups().Get(ids[1]).Style != defaults.FeatureSelected {
		t.Error("expected feature selected style")
	}
	l.SetStyle("unknown", render.StateFeatureHovered)

	l.Rerender()
	if l.Groups().Get(ids[1]).Style != defaults.LayerSelected {
		t.Error("expected rerender to apply the layer state")
	}

	b, ok := l.Bound()
	if !ok {
		t.Fatal("expected a bound")
	}
	if b.Min[0] != 0 || b.Min[1] != -1 || b.Max[0] != 5 || b.Max[1] != 2 {
		t.Errorf("expected [0 -1, 5 2], got %v", b)
	}
	fb, ok := l.FeatureBound(ids[0])
	if !ok || fb.Max[0] != 2 || fb.Max[1] != 2 {
		t.Errorf("expected feature bound up to 2 2, got %v", fb)
	}
	if _, ok := l.FeatureBound("unknown"); ok {
		t.Error("expected no bound for an unknown feature")
	}

	l.Close()
	if l.Groups().Len() != 0 {
		t.Error("expected no groups after Close")
	}
}

func TestLayer_RendererGeometriesFlattensCollections(t *testing.T) {
	raw := `{"type":"Feature","geometry":{"type":"GeometryCollection","geometries":[
		{"type":"Point","coordinates":[0,0]},
		{"type":"GeometryCollection","geometries":[{"type":"LineString","coordinates":[[0,0],[1,1]]}]}
	]},"properties":{}}`
	l, err := NewGeoJSONLayer("gc", []byte(raw))
	if err != nil {
		t.Fatalf("NewGeoJSONLayer failed: %v", err)
	}

	geoms := l.RendererGeometries()
	if len(geoms) != 2 {
		t.Fatalf("expected 2 renderer geometries, got %d", len(geoms))
	}
	if geoms[0].ID != geoms[1].ID {
		t.Error("expected members to share the feature id")
	}
	group := l.Groups().Get(geoms[0].ID)
	if group == nil || len(group.Primitives) != 2 {
		t.Fatalf("expected one group with 2 primitives, got %+v", group)
	}
	if group.Primitives[0].Class != render.ClassPoint || group.Primitives[1].Class != render.ClassLine {
		t.Errorf("expected point then line, got %v and %v", group.Primitives[0].Class, group.Primitives[1].Class)
	}
}
