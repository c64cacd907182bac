package geometry

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkbhex"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Format is a geometry serialization.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatWKT
	FormatWKB
	FormatWKBHex
	FormatWKBBase64
	FormatGeoJSON
)

var formatNames = map[Format]string{
	FormatUnknown:   "Unknown",
	FormatWKT:       "WKT",
	FormatWKB:       "WKB",
	FormatWKBHex:    "WKB (hex)",
	FormatWKBBase64: "WKB (base64)",
	FormatGeoJSON:   "GeoJSON",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// IsText reports whether the format serializes to printable text.
func (f Format) IsText() bool {
	return f == FormatWKT || f == FormatWKBHex || f == FormatWKBBase64 || f == FormatGeoJSON
}

// WKB is always written little-endian.
var byteOrder binary.ByteOrder = binary.LittleEndian

var hexPairs = regexp.MustCompile(`^(?:[0-9a-fA-F]{2})+$`)

// ParseWKT decodes Well-Known Text.
func ParseWKT(s string) (g geom.T, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Wrap(ErrFormat, "empty WKT")
	}
	defer recoverFormat(&err, "WKT")
	g, err = wkt.Unmarshal(s)
	if err != nil {
		return nil, errors.Wrapf(ErrFormat, "WKT: %v", err)
	}
	return g, nil
}

// ParseWKB decodes raw Well-Known Binary bytes.
func ParseWKB(data []byte) (g geom.T, err error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrFormat, "empty WKB")
	}
	defer recoverFormat(&err, "WKB")
	g, err = wkb.Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(ErrFormat, "WKB: %v", err)
	}
	return g, nil
}

// ParseWKBHex decodes WKB written as hex byte pairs.
func ParseWKBHex(s string) (g geom.T, err error) {
	s = strings.TrimSpace(s)
	if !hexPairs.MatchString(s) {
		return nil, errors.Wrap(ErrFormat, "WKB hex: not a sequence of hex byte pairs")
	}
	defer recoverFormat(&err, "WKB hex")
	g, err = wkbhex.Decode(s)
	if err != nil {
		return nil, errors.Wrapf(ErrFormat, "WKB hex: %v", err)
	}
	return g, nil
}

// ParseWKBBase64 decodes WKB written as standard base64.
func ParseWKBBase64(s string) (geom.T, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrapf(ErrFormat, "WKB base64: %v", err)
	}
	g, err := ParseWKB(data)
	if err != nil {
		return nil, errors.Wrap(err, "WKB base64")
	}
	return g, nil
}

// ParseGeoJSON decodes a GeoJSON geometry object. Feature and
// FeatureCollection objects are rejected.
func ParseGeoJSON(data []byte) (g geom.T, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.Wrap(ErrFormat, "empty GeoJSON")
	}
	defer recoverFormat(&err, "GeoJSON")
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, errors.Wrapf(ErrFormat, "GeoJSON: %v", err)
	}
	if g == nil {
		return nil, errors.Wrap(ErrFormat, "GeoJSON: null geometry")
	}
	return g, nil
}

// ParseAs decodes data in the given format.
func ParseAs(data []byte, format Format) (geom.T, error) {
	switch format {
	case FormatWKT:
		return ParseWKT(string(data))
	case FormatWKB:
		return ParseWKB(data)
	case FormatWKBHex:
		return ParseWKBHex(string(data))
	case FormatWKBBase64:
		return ParseWKBBase64(string(data))
	case FormatGeoJSON:
		return ParseGeoJSON(data)
	default:
		return nil, errors.Wrapf(ErrFormat, "unknown format %v", format)
	}
}

// ParseText decodes a single line of text, trying WKT, then hex WKB, then
// base64 WKB. The first interpretation that succeeds wins.
func ParseText(s string) (geom.T, Format, error) {
	if g, err := ParseWKT(s); err == nil {
		return g, FormatWKT, nil
	}
	if g, err := ParseWKBHex(s); err == nil {
		return g, FormatWKBHex, nil
	}
	if g, err := ParseWKBBase64(s); err == nil {
		return g, FormatWKBBase64, nil
	}
	return nil, FormatUnknown, errors.Wrapf(ErrFormat, "not WKT, hex WKB or base64 WKB: %q", truncate(s, 64))
}

// Parse decodes data in any supported format. A leading '{' selects
// GeoJSON; otherwise text formats are tried as in ParseText and raw WKB
// bytes are the last resort.
func Parse(data []byte) (geom.T, Format, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		g, err := ParseGeoJSON(trimmed)
		if err != nil {
			return nil, FormatUnknown, err
		}
		return g, FormatGeoJSON, nil
	}
	if g, format, err := ParseText(string(data)); err == nil {
		return g, format, nil
	}
	if g, err := ParseWKB(data); err == nil {
		return g, FormatWKB, nil
	}
	return nil, FormatUnknown, errors.Wrap(ErrFormat, "no supported geometry encoding matched")
}

// MarshalWKT encodes g as Well-Known Text.
func MarshalWKT(g geom.T) (string, error) {
	if g == nil {
		return "", errors.Wrap(ErrUnsupportedType, "nil geometry")
	}
	s, err := wkt.Marshal(g)
	if err != nil {
		return "", errors.Wrap(err, "geometry: WKT")
	}
	return s, nil
}

// MarshalWKB encodes g as little-endian Well-Known Binary.
func MarshalWKB(g geom.T) ([]byte, error) {
	if g == nil {
		return nil, errors.Wrap(ErrUnsupportedType, "nil geometry")
	}
	data, err := wkb.Marshal(g, byteOrder)
	if err != nil {
		return nil, errors.Wrap(err, "geometry: WKB")
	}
	return data, nil
}

// MarshalWKBHex encodes g as WKB hex text.
func MarshalWKBHex(g geom.T) (string, error) {
	if g == nil {
		return "", errors.Wrap(ErrUnsupportedType, "nil geometry")
	}
	s, err := wkbhex.Encode(g, byteOrder)
	if err != nil {
		return "", errors.Wrap(err, "geometry: WKB hex")
	}
	return s, nil
}

// MarshalWKBBase64 encodes g as WKB base64 text.
func MarshalWKBBase64(g geom.T) (string, error) {
	data, err := MarshalWKB(g)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// MarshalGeoJSON encodes g as a GeoJSON geometry object.
func MarshalGeoJSON(g geom.T) ([]byte, error) {
	if g == nil {
		return nil, errors.Wrap(ErrUnsupportedType, "nil geometry")
	}
	data, err := geojson.Marshal(g)
	if err != nil {
		return nil, errors.Wrap(err, "geometry: GeoJSON")
	}
	return data, nil
}

// Marshal encodes g in the given format. Text formats are returned as
// their UTF-8 bytes.
func Marshal(g geom.T, format Format) ([]byte, error) {
	switch format {
	case FormatWKT:
		s, err := MarshalWKT(g)
		return []byte(s), err
	case FormatWKB:
		return MarshalWKB(g)
	case FormatWKBHex:
		s, err := MarshalWKBHex(g)
		return []byte(s), err
	case FormatWKBBase64:
		s, err := MarshalWKBBase64(g)
		return []byte(s), err
	case FormatGeoJSON:
		return MarshalGeoJSON(g)
	default:
		return nil, errors.Wrapf(ErrFormat, "unknown format %v", format)
	}
}

// MarshalString is Marshal for the text formats.
func MarshalString(g geom.T, format Format) (string, error) {
	if !format.IsText() {
		return "", errors.Wrapf(ErrFormat, "%v is not a text format", format)
	}
	data, err := Marshal(g, format)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// recoverFormat turns a decoder panic into ErrFormat. go-geom decoders
// panic on inconsistent coordinate dimensions.
func recoverFormat(err *error, what string) {
	if r := recover(); r != nil {
		*err = errors.Wrapf(ErrFormat, "%s: %v", what, r)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
