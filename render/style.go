package render

import "fmt"

// Paint holds the visual parameters of one primitive class.
type Paint struct {
	Fill        bool    `yaml:"fill" json:"fill"`
	FillColor   string  `yaml:"fill_color,omitempty" json:"fillColor,omitempty"`
	FillOpacity float64 `yaml:"fill_opacity,omitempty" json:"fillOpacity,omitempty"`
	Stroke      bool    `yaml:"stroke" json:"stroke"`
	Color       string  `yaml:"color,omitempty" json:"color,omitempty"`
	Weight      float64 `yaml:"weight,omitempty" json:"weight,omitempty"`
	Radius      float64 `yaml:"radius,omitempty" json:"radius,omitempty"`
}

// Style is a named style record with one Paint per primitive class.
type Style struct {
	Point   Paint `yaml:"point" json:"point"`
	Line    Paint `yaml:"line" json:"line"`
	Polygon Paint `yaml:"polygon" json:"polygon"`
}

// For returns the paint used for primitives of class c.
func (s Style) For(c Class) Paint {
	switch c {
	case ClassLine:
		return s.Line
	case ClassPolygon:
		return s.Polygon
	default:
		return s.Point
	}
}

// State names one of the four style records a feature can be shown with.
type State int

// Style states.
const (
	StateDefault State = iota
	StateLayerSelected
	StateFeatureHovered
	StateFeatureSelected
)

func (s State) String() string {
	switch s {
	case StateDefault:
		return "default"
	case StateLayerSelected:
		return "layer_selected"
	case StateFeatureHovered:
		return "feature_hovered"
	case StateFeatureSelected:
		return "feature_selected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Styles is the set of style records of a layer.
type Styles struct {
	Default         Style `yaml:"default" json:"default"`
	LayerSelected   Style `yaml:"layer_selected" json:"layerSelected"`
	FeatureHovered  Style `yaml:"feature_hovered" json:"featureHovered"`
	FeatureSelected Style `yaml:"feature_selected" json:"featureSelected"`
}

// For returns the style record for state.
func (s Styles) For(state State) Style {
	switch state {
	case StateLayerSelected:
		return s.LayerSelected
	case StateFeatureHovered:
		return s.FeatureHovered
	case StateFeatureSelected:
		return s.FeatureSelected
	default:
		return s.Default
	}
}

func paints(point, stroke, fill string) Style {
	return Style{
		Point:   Paint{Fill: true, FillColor: point, FillOpacity: 1, Radius: 4},
		Line:    Paint{Stroke: true, Color: stroke, Weight: 2},
		Polygon: Paint{Fill: true, FillColor: fill, FillOpacity: 1, Stroke: true, Color: stroke, Weight: 2},
	}
}

// DefaultStyles returns the built-in style records: red by default, orange
// for a selected layer, blue on hover and magenta for the selected feature.
func DefaultStyles() Styles {
	selected := paints("#ff00ff", "#ff00ff", "#aa00aa")
	selected.Line.Color = "#00ff00"

	return Styles{
		Default:         paints("#ff0000", "#ff0000", "#aa0000"),
		LayerSelected:   paints("#ff8800", "#ff8800", "#aa5500"),
		FeatureHovered:  paints("#0000ff", "#0000ff", "#0000aa"),
		FeatureSelected: selected,
	}
}
