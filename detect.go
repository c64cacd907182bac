package geolayer

import (
	"encoding/json"
	"strings"

	"github.com/tingold/geolayer/geometry"
	"github.com/tingold/geolayer/table"
)

// Format is the classification of raw input.
type Format int

// Input formats, in detection priority order.
const (
	FormatUnknown Format = iota
	FormatGeoJSON
	FormatWKX
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatGeoJSON:
		return "GeoJSON"
	case FormatWKX:
		return "WKX"
	case FormatCSV:
		return "CSV"
	default:
		return "Unknown"
	}
}

// Delimiters tried by InferDelimiter, in tie-break order.
var Delimiters = []rune{',', ';', '\t'}

// delimiterSampleLines is the number of leading lines InferDelimiter reads.
const delimiterSampleLines = 6

// Classify returns the format of raw. GeoJSON is tried first, then WKX,
// then CSV with an inferred delimiter and at least minColumns columns.
func Classify(raw string, minColumns int) Format {
	return ClassifyWith(raw, minColumns, 0)
}

// ClassifyWith is Classify with a fixed CSV delimiter. A zero delimiter is
// inferred.
func ClassifyWith(raw string, minColumns int, delimiter rune) Format {
	if IsGeoJSON(raw) {
		return FormatGeoJSON
	}
	if IsWKX(raw) {
		return FormatWKX
	}
	if delimiter == 0 {
		delimiter = InferDelimiter(raw)
	}
	if IsCSV(raw, delimiter, minColumns) {
		return FormatCSV
	}
	return FormatUnknown
}

// IsGeoJSON reports whether raw is a JSON object whose type is a geometry
// type, Feature or FeatureCollection.
func IsGeoJSON(raw string) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return false
	}
	return isDocumentType(probe.Type)
}

func isDocumentType(t string) bool {
	return t == typeFeature || t == typeFeatureCollection || geometry.IsGeometryType(t)
}

// IsWKX reports whether every non-blank line of raw decodes as WKT, hex
// WKB or base64 WKB. Input without any non-blank line is not WKX.
func IsWKX(raw string) bool {
	lines := nonBlankLines(raw)
	if len(lines) == 0 {
		return false
	}
	for _, line := range lines {
		if _, _, err := geometry.ParseText(line); err != nil {
			return false
		}
	}
	return true
}

// IsCSV reports whether raw is a rectangular delimited table with a header
// of at least minColumns columns.
func IsCSV(raw string, delimiter rune, minColumns int) bool {
	return table.ValidateCSV(raw, delimiter, minColumns)
}

// InferDelimiter picks the delimiter that splits the first lines of raw
// into the most columns. Delimiters that fail to parse the sample are
// skipped; ties go to the earlier entry of Delimiters. Comma is returned
// when nothing parses.
func InferDelimiter(raw string) rune {
	sample := leadingLines(raw, delimiterSampleLines)

	best, bestColumns := Delimiters[0], 0
	for _, d := range Delimiters {
		records, err := table.ReadCSV(sample, d)
		if err != nil || len(records) == 0 {
			continue
		}
		if n := len(records[0]); n > bestColumns {
			best, bestColumns = d, n
		}
	}
	return best
}

var geometryColumnHints = []string{"geom", "geojson", "wkt", "wkb", "wkx", "shape"}

// InferGeometryOptions guesses the geometry columns of a CSV header. A
// column whose name contains a geometry hint selects ModeAuto. Otherwise
// an x-like and a y-like column select ModeXY. Matching ignores case and
// the first matching column wins.
func InferGeometryOptions(headers []string) GeometryOptions {
	for _, h := range headers {
		name := strings.ToLower(h)
		for _, hint := range geometryColumnHints {
			if strings.Contains(name, hint) {
				return GeometryOptions{Mode: ModeAuto, Column: h}
			}
		}
	}

	var x, y string
	for _, h := range headers {
		name := strings.ToLower(h)
		if x == "" && isXColumn(name) {
			x = h
		} else if y == "" && isYColumn(name) {
			y = h
		}
	}
	if x != "" && y != "" {
		return GeometryOptions{Mode: ModeXY, XColumn: x, YColumn: y}
	}
	return GeometryOptions{Mode: ModeNone}
}

func isXColumn(name string) bool {
	return name == "x" || strings.HasSuffix(name, "_x") ||
		strings.Contains(name, "lon") || strings.Contains(name, "lng")
}

func isYColumn(name string) bool {
	return name == "y" || strings.HasSuffix(name, "_y") || strings.Contains(name, "lat")
}

// InferCSVOptions infers the delimiter and geometry options of raw
// delimited text from its header.
func InferCSVOptions(raw string) *CSVOptions {
	return InferCSVOptionsWith(raw, 0)
}

// InferCSVOptionsWith infers the geometry options of raw delimited text
// split by delimiter. A zero delimiter is inferred.
func InferCSVOptionsWith(raw string, delimiter rune) *CSVOptions {
	opts := DefaultCSVOptions()
	if delimiter == 0 {
		delimiter = InferDelimiter(raw)
	}
	opts.Delimiter = delimiter

	records, err := table.ReadCSV(leadingLines(raw, 1), opts.Delimiter)
	if err == nil && len(records) > 0 {
		opts.Geometry = InferGeometryOptions(records[0])
	}
	return opts
}

func nonBlankLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func leadingLines(raw string, n int) string {
	lines := strings.SplitN(raw, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
