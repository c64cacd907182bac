// Package config handles loading of the YAML configuration file.
package config

import (
	"os"
	"unicode/utf8"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tingold/geolayer/render"
)

// Config represents the root configuration file structure.
type Config struct {
	Styles render.Styles `yaml:"styles" json:"styles"`
	Export Export        `yaml:"export" json:"export"`
	Import Import        `yaml:"import" json:"import"`
}

// Export holds the defaults of the export writers.
type Export struct {
	Indent    string `yaml:"indent" json:"indent"`       // pretty GeoJSON indent
	Delimiter string `yaml:"delimiter" json:"delimiter"` // CSV delimiter, "tab" for a tab
	Shape     string `yaml:"shape" json:"shape"`         // CSV geometry column format
}

// Import holds the defaults used when classifying input.
type Import struct {
	MinColumns int    `yaml:"min_columns" json:"minColumns"`
	Delimiter  string `yaml:"delimiter,omitempty" json:"delimiter,omitempty"` // empty means infer
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Styles: render.DefaultStyles(),
		Export: Export{Indent: "  ", Delimiter: ",", Shape: "wkt"},
		Import: Import{MinColumns: 2},
	}
}

// Load reads the YAML configuration file at path. Settings missing from
// the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", path)
	}
	return cfg, nil
}

// Validate checks the delimiters and the column minimum.
func (c *Config) Validate() error {
	if _, err := Delimiter(c.Export.Delimiter); err != nil {
		return errors.Wrap(err, "export")
	}
	if c.Import.Delimiter != "" {
		if _, err := Delimiter(c.Import.Delimiter); err != nil {
			return errors.Wrap(err, "import")
		}
	}
	if c.Import.MinColumns < 1 {
		return errors.Errorf("import: min_columns must be at least 1, got %d", c.Import.MinColumns)
	}
	return nil
}

// Delimiter converts a configured delimiter to a rune. "tab" and "\t"
// both mean a tab.
func Delimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, errors.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\n' || r == '\r' {
		return 0, errors.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}
