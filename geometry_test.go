package geolayer

import (
	"errors"
	"testing"

	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
)

func TestCollectionLabel(t *testing.T) {
	point := mustPoint(0, 0)
	line := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{0, 0}, {1, 1}})

	tests := []struct {
		name     string
		geoms    []geom.T
		expected string
	}{
		{"same type", []geom.T{point, point}, "Point Table"},
		{"nil skipped", []geom.T{nil, point, nil}, "Point Table"},
		{"mixed", []geom.T{point, line}, "Mixed Table"},
		{"empty", nil, "Empty"},
		{"only nil", []geom.T{nil}, "Empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := collectionLabel(tt.geoms, "Table", "Empty")
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestDecodeCell(t *testing.T) {
	wkb, _ := geometry.MarshalWKB(mustPoint(1, 2))
	hexText, _ := geometry.MarshalWKBHex(mustPoint(1, 2))

	tests := []struct {
		name     string
		cell     interface{}
		format   geometry.Format
		expected geom.T
	}{
		{"nil", nil, geometry.FormatUnknown, nil},
		{"blank", "   ", geometry.FormatUnknown, nil},
		{"raw WKB", wkb, geometry.FormatWKB, mustPoint(1, 2)},
		{"WKT", "POINT (1 2)", geometry.FormatWKT, mustPoint(1, 2)},
		{"hex WKB", hexText, geometry.FormatWKBHex, mustPoint(1, 2)},
		{"GeoJSON geometry", `{"type":"Point","coordinates":[1,2]}`, geometry.FormatGeoJSON, mustPoint(1, 2)},
		{"GeoJSON feature", `{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}`, geometry.FormatGeoJSON, mustPoint(1, 2)},
		{"WKX lines take the first", "POINT (1 2)\nPOINT (3 4)", geometry.FormatWKT, mustPoint(1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, format, err := decodeCell(tt.cell)
			if err != nil {
				t.Fatalf("decodeCell failed: %v", err)
			}
			if format != tt.format {
				t.Errorf("expected %v, got %v", tt.format, format)
			}
			if tt.expected == nil {
				if g != nil {
					t.Errorf("expected nil, got %v", g)
				}
				return
			}
			if !geometry.Equal(g, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, g)
			}
		})
	}
}

func TestDecodeCell_Invalid(t *testing.T) {
	for _, cell := range []interface{}{"POINT (x)", "POINT (1 2)\nPOINT (x)", 42.0, true} {
		if _, _, err := decodeCell(cell); !errors.Is(err, ErrFormat) {
			t.Errorf("expected ErrFormat for %v, got %v", cell, err)
		}
	}
}

func TestCellFormat_FallsBackToWKT(t *testing.T) {
	if f := cellFormat("garbage"); f != geometry.FormatWKT {
		t.Errorf("expected %v, got %v", geometry.FormatWKT, f)
	}
	if f := cellFormat(nil); f != geometry.FormatWKT {
		t.Errorf("expected %v, got %v", geometry.FormatWKT, f)
	}
	if f := cellFormat("AQEAAAAAAAAAAADwPwAAAAAAAABA"); f != geometry.FormatWKBBase64 {
		t.Errorf("expected %v, got %v", geometry.FormatWKBBase64, f)
	}
}

func TestEncodeCell(t *testing.T) {
	raw, err := encodeCell(mustPoint(1, 2), geometry.FormatWKB)
	if err != nil {
		t.Fatalf("encodeCell failed: %v", err)
	}
	if _, ok := raw.([]byte); !ok {
		t.Errorf("expected []byte, got %T", raw)
	}

	text, err := encodeCell(mustPoint(1, 2), geometry.FormatWKT)
	if err != nil {
		t.Fatalf("encodeCell failed: %v", err)
	}
	if text != "POINT (1 2)" {
		t.Errorf("expected %q, got %v", "POINT (1 2)", text)
	}
}
