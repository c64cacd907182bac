package geolayer

import (
	"io"

	"github.com/pkg/errors"

	"github.com/tingold/geolayer/table"
)

// TextResult is the outcome of ReadTextAsync.
type TextResult struct {
	Text string
	Err  error
}

// ReadText reads all of r as text.
func ReadText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "read input")
	}
	return string(data), nil
}

// ReadTextAsync reads all of r in the background. The channel receives
// exactly one result and is then closed.
func ReadTextAsync(r io.Reader) <-chan TextResult {
	ch := make(chan TextResult, 1)
	go func() {
		defer close(ch)
		text, err := ReadText(r)
		ch <- TextResult{Text: text, Err: err}
	}()
	return ch
}

// ImportOptions configures Import.
type ImportOptions struct {
	// MinColumns is the smallest header width accepted as CSV.
	MinColumns int

	// Delimiter fixes the CSV delimiter. Zero means infer it.
	Delimiter rune

	// CSV overrides the delimiter and geometry options inferred from the
	// header. Nil means infer both.
	CSV *CSVOptions
}

// DefaultImportOptions returns options accepting CSV with two or more
// columns and inferring everything else.
func DefaultImportOptions() *ImportOptions {
	return &ImportOptions{MinColumns: 2}
}

// Import classifies raw and creates a layer of the matching kind. CSV
// geometry options are inferred from the header unless opts.CSV is set.
// The delimiter of opts.CSV, else opts.Delimiter, is used for both.
func Import(name, raw string, opts *ImportOptions) (*Layer, error) {
	if opts == nil {
		opts = DefaultImportOptions()
	}

	csvOpts := opts.CSV
	delimiter := opts.Delimiter
	if csvOpts != nil {
		delimiter = csvOpts.Delimiter
	}

	format := ClassifyWith(raw, opts.MinColumns, delimiter)
	if format == FormatCSV && csvOpts == nil {
		csvOpts = InferCSVOptionsWith(raw, delimiter)
	}
	return layerFromText(name, raw, format, csvOpts)
}

// NewLayerFromRaw classifies raw and creates a layer of the matching
// kind. CSV input requires csv options whose geometry mode is not
// ModeNone.
func NewLayerFromRaw(name, raw string, csv *CSVOptions) (*Layer, error) {
	var delimiter rune
	if csv != nil {
		delimiter = csv.Delimiter
	}
	format := ClassifyWith(raw, DefaultImportOptions().MinColumns, delimiter)
	return layerFromText(name, raw, format, csv)
}

func layerFromText(name, raw string, format Format, csv *CSVOptions) (*Layer, error) {
	switch format {
	case FormatGeoJSON:
		return NewGeoJSONLayer(name, []byte(raw))
	case FormatWKX:
		return NewWKXLayer(name, raw)
	case FormatCSV:
		if csv == nil || csv.Geometry.Mode == ModeNone || csv.Geometry.Mode == "" {
			return nil, errors.Wrap(ErrFormat, "csv input has no geometry columns")
		}
		return NewCSVTextLayer(name, raw, csv)
	default:
		return nil, errors.Wrap(ErrFormat, "input is not GeoJSON, WKX or CSV")
	}
}

// NewCSVTextLayer parses delimited text and creates a CSV layer from it.
func NewCSVTextLayer(name, raw string, opts *CSVOptions) (*Layer, error) {
	if opts == nil {
		opts = InferCSVOptions(raw)
	}
	tbl, err := table.FromCSV(raw, opts.Delimiter, "")
	if err != nil {
		return nil, err
	}
	return NewCSVLayer(name, tbl, opts.Geometry)
}
