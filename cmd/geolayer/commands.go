package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tingold/geolayer"
	"github.com/tingold/geolayer/internal/config"
)

// InputOptions overrides what is inferred from CSV input.
type InputOptions struct {
	Delimiter string `long:"delimiter" description:"CSV delimiter, inferred when empty"`
	Geometry  string `long:"geometry" choice:"none" choice:"xy" choice:"wkt" choice:"wkb" choice:"geojson" choice:"auto" description:"CSV geometry mode, inferred when empty"`
	XColumn   string `long:"x-column" description:"CSV column holding x coordinates"`
	YColumn   string `long:"y-column" description:"CSV column holding y coordinates"`
	Column    string `long:"column" description:"CSV column holding encoded geometries"`
	Encoding  string `long:"encoding" choice:"hex" choice:"base64" description:"WKB cell encoding"`
}

// importOptions applies the input flags and the configured import
// defaults. Geometry options are inferred unless --geometry is set.
func (o *InputOptions) importOptions() (*geolayer.ImportOptions, error) {
	opts := geolayer.DefaultImportOptions()
	opts.MinColumns = cfg.Import.MinColumns

	delimiter := o.Delimiter
	if delimiter == "" {
		delimiter = cfg.Import.Delimiter
	}
	if delimiter != "" {
		r, err := config.Delimiter(delimiter)
		if err != nil {
			return nil, err
		}
		opts.Delimiter = r
	}

	if o.Geometry != "" {
		opts.CSV = &geolayer.CSVOptions{
			Delimiter: opts.Delimiter,
			Geometry: geolayer.GeometryOptions{
				Mode:     geolayer.GeometryMode(o.Geometry),
				XColumn:  o.XColumn,
				YColumn:  o.YColumn,
				Column:   o.Column,
				Encoding: geolayer.WKBEncoding(o.Encoding),
			},
		}
	}
	return opts, nil
}

// load reads and imports one file, naming the layer after the file.
func (o *InputOptions) load(path string) (*geolayer.Layer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res := <-geolayer.ReadTextAsync(f)
	if res.Err != nil {
		return nil, errors.Wrap(res.Err, path)
	}

	opts, err := o.importOptions()
	if err != nil {
		return nil, err
	}
	if opts.CSV != nil && opts.CSV.Delimiter == 0 {
		opts.CSV.Delimiter = geolayer.InferDelimiter(res.Text)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	layer, err := geolayer.Import(name, res.Text, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "import %s", path)
	}

	log.Debug().
		Str("path", path).
		Str("kind", layer.Kind().String()).
		Int("features", layer.FeaturesCount()).
		Msg("Layer imported")
	return layer, nil
}

func newWorkspace() *geolayer.Workspace {
	return geolayer.NewWorkspace(&geolayer.WorkspaceOptions{
		Logger: log.Logger,
		Styles: &cfg.Styles,
	})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", cfg.Export.Indent)
	return enc.Encode(v)
}

// InspectCommand prints a summary of each input file.
type InspectCommand struct {
	Input InputOptions `group:"Input options"`
	JSON  bool         `long:"json" description:"Print summaries as JSON"`

	Args struct {
		Files []string `positional-arg-name:"FILE" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

type inspectResult struct {
	geolayer.Summary
	Bound []float64 `json:"bound,omitempty"`
}

func (c *InspectCommand) Execute(_ []string) error {
	ws := newWorkspace()
	for _, path := range c.Args.Files {
		layer, err := c.Input.load(path)
		if err != nil {
			return err
		}
		if err := ws.Add(layer); err != nil {
			return err
		}
	}

	// Summaries are newest first; list in argument order.
	summaries := ws.Summaries()
	results := make([]inspectResult, 0, len(summaries))
	for i := len(summaries) - 1; i >= 0; i-- {
		res := inspectResult{Summary: summaries[i]}
		layer, err := ws.Layer(res.ID)
		if err != nil {
			return err
		}
		if b, ok := layer.Bound(); ok {
			res.Bound = []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
		}
		results = append(results, res)
	}

	if c.JSON {
		return printJSON(results)
	}
	for _, res := range results {
		fmt.Printf("%s\t%s\t%d\t%s", res.Name, res.Kind, res.Count, res.TypeText)
		if res.Bound != nil {
			fmt.Printf("\t[%g %g %g %g]", res.Bound[0], res.Bound[1], res.Bound[2], res.Bound[3])
		}
		fmt.Println()
	}
	return nil
}

// ExportOptions selects the writer and the destination of an export.
type ExportOptions struct {
	Format    string `short:"f" long:"format" choice:"geojson" choice:"csv" default:"geojson" description:"Output format"`
	Pretty    bool   `long:"pretty" description:"Indent GeoJSON output"`
	Shape     string `long:"shape" choice:"none" choice:"geojson" choice:"wkt" choice:"wkb-hex" choice:"wkb-base64" choice:"xy" description:"CSV geometry column format, configured default when empty"`
	Delimiter string `long:"out-delimiter" description:"CSV output delimiter, configured default when empty"`
	Output    string `short:"o" long:"output" description:"Output file or directory, stdout when empty"`
}

func (o *ExportOptions) writer() (geolayer.Writer, error) {
	if o.Format == "geojson" {
		w := &geolayer.GeoJSONWriter{}
		if o.Pretty {
			w.Indent = cfg.Export.Indent
		}
		return w, nil
	}

	shape := o.Shape
	if shape == "" {
		shape = cfg.Export.Shape
	}
	format, err := geolayer.ParseShapeFormat(shape)
	if err != nil {
		return nil, err
	}

	delimiter := o.Delimiter
	if delimiter == "" {
		delimiter = cfg.Export.Delimiter
	}
	r, err := config.Delimiter(delimiter)
	if err != nil {
		return nil, err
	}
	return &geolayer.CSVWriter{Delimiter: r, Shape: format}, nil
}

func (o *ExportOptions) export(layer *geolayer.Layer) error {
	w, err := o.writer()
	if err != nil {
		return err
	}
	out, err := geolayer.ExportLayer(w, layer)
	if err != nil {
		return errors.Wrapf(err, "export %s", w.Name())
	}

	if o.Output == "" {
		_, err = os.Stdout.Write(out.Data)
		return err
	}

	path := o.Output
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, out.Filename)
	}
	if err := os.WriteFile(path, out.Data, 0o644); err != nil {
		return err
	}

	log.Info().
		Str("path", path).
		Str("writer", w.Name()).
		Int("bytes", len(out.Data)).
		Msg("Layer exported")
	return nil
}

// ConvertCommand exports an input file in another format.
type ConvertCommand struct {
	Input  InputOptions  `group:"Input options"`
	Export ExportOptions `group:"Export options"`

	Args struct {
		File string `positional-arg-name:"FILE" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c *ConvertCommand) Execute(_ []string) error {
	layer, err := c.Input.load(c.Args.File)
	if err != nil {
		return err
	}
	defer layer.Close()
	return c.Export.export(layer)
}

// TableCommand prints the attribute table of an input file.
type TableCommand struct {
	Input InputOptions `group:"Input options"`

	Args struct {
		File string `positional-arg-name:"FILE" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c *TableCommand) Execute(_ []string) error {
	layer, err := c.Input.load(c.Args.File)
	if err != nil {
		return err
	}
	defer layer.Close()
	return printJSON(layer.View())
}

// EditCommand moves one vertex of a feature or updates its attributes,
// then exports the layer.
type EditCommand struct {
	Input  InputOptions  `group:"Input options"`
	Export ExportOptions `group:"Export options"`

	Feature string            `long:"feature" default:"0" description:"Feature id, or its position when numeric and not an id"`
	Handle  int               `long:"handle" description:"Vertex handle to move"`
	Move    string            `long:"move" description:"New handle position as x,y"`
	Set     map[string]string `long:"set" description:"Attribute to set as key:value, repeatable"`

	Args struct {
		File string `positional-arg-name:"FILE" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c *EditCommand) Execute(_ []string) error {
	layer, err := c.Input.load(c.Args.File)
	if err != nil {
		return err
	}

	ws := newWorkspace()
	if err := ws.Add(layer); err != nil {
		return err
	}
	defer ws.Remove(layer.ID())

	featureID, err := resolveFeature(layer, c.Feature)
	if err != nil {
		return err
	}

	if len(c.Set) > 0 {
		record := make(map[string]interface{}, len(c.Set))
		for k, v := range c.Set {
			record[k] = v
		}
		if err := ws.UpdateAttributes(layer.ID(), featureID, record); err != nil {
			return err
		}
	}

	if c.Move != "" {
		x, y, err := parseXY(c.Move)
		if err != nil {
			return err
		}
		if err := ws.StartEdit(layer.ID(), featureID); err != nil {
			return err
		}
		if err := ws.Edit().MoveHandle(c.Handle, orb.Point{x, y}); err != nil {
			ws.StopEdit()
			return err
		}
		if err := ws.SaveEdit(); err != nil {
			return err
		}
	}

	return c.Export.export(layer)
}

// resolveFeature accepts a feature id, or a position in the collection
// when ref is not an id.
func resolveFeature(layer *geolayer.Layer, ref string) (string, error) {
	features := layer.FeatureCollection().Features
	for _, f := range features {
		if f.ID == ref {
			return ref, nil
		}
	}

	i, err := strconv.Atoi(ref)
	if err != nil || i < 0 || i >= len(features) {
		return "", errors.Wrapf(geolayer.ErrLookup, "feature %q", ref)
	}
	return features[i].ID, nil
}

func parseXY(s string) (x, y float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("position must be x,y, got %q", s)
	}
	if x, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, errors.Wrap(err, "x")
	}
	if y, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, errors.Wrap(err, "y")
	}
	return x, y, nil
}
