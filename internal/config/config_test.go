package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tingold/geolayer/render"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_KeepsDefaults(t *testing.T) {
	path := writeFile(t, `
styles:
  feature_selected:
    line:
      stroke: true
      color: "#123456"
      weight: 5
export:
  delimiter: tab
import:
  min_columns: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	defaults := render.DefaultStyles()
	assert.Equal(t, defaults.Default, cfg.Styles.Default)
	assert.Equal(t, "#123456", cfg.Styles.FeatureSelected.Line.Color)
	assert.Equal(t, 5.0, cfg.Styles.FeatureSelected.Line.Weight)
	assert.Equal(t, defaults.FeatureSelected.Point, cfg.Styles.FeatureSelected.Point)

	assert.Equal(t, "tab", cfg.Export.Delimiter)
	assert.Equal(t, "  ", cfg.Export.Indent)
	assert.Equal(t, "wkt", cfg.Export.Shape)
	assert.Equal(t, 3, cfg.Import.MinColumns)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "export: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "export:\n  delimiter: ab\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "import:\n  min_columns: 0\n"))
	assert.Error(t, err)
}

func TestDelimiter(t *testing.T) {
	tests := []struct {
		in       string
		expected rune
		ok       bool
	}{
		{",", ',', true},
		{";", ';', true},
		{"tab", '\t', true},
		{`\t`, '\t', true},
		{"\t", '\t', true},
		{"|", '|', true},
		{"", 0, false},
		{",,", 0, false},
		{`"`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := Delimiter(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, r)
		})
	}
}
