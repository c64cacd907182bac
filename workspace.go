package geolayer

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/render"
)

// WorkspaceOptions configures a Workspace.
type WorkspaceOptions struct {
	Logger zerolog.Logger
	Styles *render.Styles // applied to every added layer when set
}

// DefaultWorkspaceOptions returns options with logging disabled and the
// built-in styles.
func DefaultWorkspaceOptions() *WorkspaceOptions {
	return &WorkspaceOptions{Logger: zerolog.Nop()}
}

// Summary describes a layer for listings.
type Summary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Count    int    `json:"count"`
	TypeText string `json:"typeText"`
	Visible  bool   `json:"visible"`
}

// Workspace is the set of active layers together with the selection and
// the single edit session. Layers are kept newest first.
//
// Workspace is not safe for concurrent use.
type Workspace struct {
	layers []*Layer
	hidden map[string]bool
	styles *render.Styles
	edit   *EditSession
	log    zerolog.Logger

	selectedLayer   string
	selectedFeature string
	hoveredFeature  string
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(opts *WorkspaceOptions) *Workspace {
	if opts == nil {
		opts = DefaultWorkspaceOptions()
	}
	return &Workspace{
		hidden: make(map[string]bool),
		styles: opts.Styles,
		edit:   NewEditSession(),
		log:    opts.Logger,
	}
}

// Add puts layer on top of the layer list.
func (w *Workspace) Add(layer *Layer) error {
	if layer == nil {
		return errors.Wrap(ErrValidation, "nil layer")
	}
	if w.index(layer.ID()) >= 0 {
		return errors.Wrapf(ErrValidation, "layer %q already added", layer.ID())
	}
	if w.styles != nil {
		layer.SetStyles(*w.styles)
	}

	w.layers = append([]*Layer{layer}, w.layers...)
	w.log.Debug().
		Str("layer", layer.ID()).
		Str("name", layer.Name()).
		Str("kind", layer.Kind().String()).
		Int("features", layer.FeaturesCount()).
		Msg("Layer added")
	return nil
}

// Layer returns the layer with the given id.
func (w *Workspace) Layer(id string) (*Layer, error) {
	i := w.index(id)
	if i < 0 {
		return nil, errors.Wrapf(ErrLookup, "no layer with id %q", id)
	}
	return w.layers[i], nil
}

// Layers returns the layers, newest first.
func (w *Workspace) Layers() []*Layer {
	return append([]*Layer(nil), w.layers...)
}

// Remove closes a layer and drops it from the workspace. A layer with a
// feature being edited cannot be removed.
func (w *Workspace) Remove(id string) error {
	i := w.index(id)
	if i < 0 {
		return errors.Wrapf(ErrLookup, "no layer with id %q", id)
	}
	if err := w.checkNotEditing(id); err != nil {
		return err
	}

	layer := w.layers[i]
	w.layers = append(w.layers[:i], w.layers[i+1:]...)
	delete(w.hidden, id)
	if w.selectedLayer == id {
		w.selectedLayer, w.selectedFeature, w.hoveredFeature = "", "", ""
	}
	layer.Close()

	w.log.Debug().Str("layer", id).Str("name", layer.Name()).Msg("Layer removed")
	return nil
}

// Reorder moves a layer to position index. Out of range positions are
// clamped.
func (w *Workspace) Reorder(id string, index int) error {
	i := w.index(id)
	if i < 0 {
		return errors.Wrapf(ErrLookup, "no layer with id %q", id)
	}

	layer := w.layers[i]
	rest := append(w.layers[:i:i], w.layers[i+1:]...)
	if index < 0 {
		index = 0
	}
	if index > len(rest) {
		index = len(rest)
	}

	layers := make([]*Layer, 0, len(w.layers))
	layers = append(layers, rest[:index]...)
	layers = append(layers, layer)
	layers = append(layers, rest[index:]...)
	w.layers = layers
	return nil
}

// SetVisible shows or hides a whole layer.
func (w *Workspace) SetVisible(id string, visible bool) error {
	if w.index(id) < 0 {
		return errors.Wrapf(ErrLookup, "no layer with id %q", id)
	}
	if visible {
		delete(w.hidden, id)
	} else {
		w.hidden[id] = true
	}
	return nil
}

// ToggleVisibility flips the visibility of a layer.
func (w *Workspace) ToggleVisibility(id string) error {
	return w.SetVisible(id, !w.Visible(id))
}

// Visible reports whether a layer is shown.
func (w *Workspace) Visible(id string) bool {
	return w.index(id) >= 0 && !w.hidden[id]
}

// Select makes a layer the selected one and, when featureID is not
// empty, one of its features the selected feature. The previous
// selection returns to the default style.
func (w *Workspace) Select(layerID, featureID string) error {
	layer, err := w.Layer(layerID)
	if err != nil {
		return err
	}

	if prev, err := w.Layer(w.selectedLayer); err == nil {
		prev.SetAllStyles(render.StateDefault)
	}

	w.selectedLayer, w.selectedFeature, w.hoveredFeature = layerID, featureID, ""
	layer.SetAllStyles(render.StateLayerSelected)
	if featureID != "" {
		layer.SetStyle(featureID, render.StateFeatureSelected)
	}

	w.log.Debug().Str("layer", layerID).Str("feature", featureID).Msg("Selection changed")
	return nil
}

// Selection returns the selected layer and feature ids.
func (w *Workspace) Selection() (layerID, featureID string) {
	return w.selectedLayer, w.selectedFeature
}

// ClearSelection returns the selected layer to the default style.
func (w *Workspace) ClearSelection() {
	if layer, err := w.Layer(w.selectedLayer); err == nil {
		layer.SetAllStyles(render.StateDefault)
	}
	w.selectedLayer, w.selectedFeature, w.hoveredFeature = "", "", ""
}

// Hover highlights a feature of the selected layer. An empty id clears
// the highlight. Without a selected layer Hover does nothing.
func (w *Workspace) Hover(featureID string) {
	layer, err := w.Layer(w.selectedLayer)
	if err != nil {
		return
	}
	if w.hoveredFeature != "" {
		layer.SetStyle(w.hoveredFeature, w.restingState(w.hoveredFeature))
	}
	w.hoveredFeature = featureID
	if featureID != "" {
		layer.SetStyle(featureID, render.StateFeatureHovered)
	}
}

func (w *Workspace) restingState(featureID string) render.State {
	if featureID == w.selectedFeature {
		return render.StateFeatureSelected
	}
	return render.StateLayerSelected
}

// UpdateAttributes updates a feature and rerenders its layer.
func (w *Workspace) UpdateAttributes(layerID, featureID string, record map[string]interface{}) error {
	layer, err := w.mutable(layerID)
	if err != nil {
		return err
	}
	if err := layer.UpdateAttributes(featureID, record); err != nil {
		return err
	}
	return w.Rerender(layerID)
}

// UpdateGeometry replaces a feature geometry and rerenders its layer.
func (w *Workspace) UpdateGeometry(layerID, featureID string, g geom.T) error {
	layer, err := w.mutable(layerID)
	if err != nil {
		return err
	}
	if err := layer.UpdateGeometry(featureID, g); err != nil {
		return err
	}
	return w.Rerender(layerID)
}

// Rerender rebuilds the primitives of a layer and restores the selected
// feature style.
func (w *Workspace) Rerender(layerID string) error {
	layer, err := w.Layer(layerID)
	if err != nil {
		return err
	}
	layer.Rerender()
	if layerID == w.selectedLayer && w.selectedFeature != "" {
		layer.SetStyle(w.selectedFeature, render.StateFeatureSelected)
	}
	return nil
}

// Edit returns the edit session.
func (w *Workspace) Edit() *EditSession {
	return w.edit
}

// StartEdit begins editing a feature. Only one feature can be edited at
// a time.
func (w *Workspace) StartEdit(layerID, featureID string) error {
	layer, err := w.Layer(layerID)
	if err != nil {
		return err
	}
	if err := w.edit.Start(layer, featureID); err != nil {
		return err
	}
	w.log.Debug().Str("layer", layerID).Str("feature", featureID).Msg("Edit started")
	return nil
}

// StopEdit cancels the edit in progress.
func (w *Workspace) StopEdit() {
	if !w.edit.Active() {
		return
	}
	layer, featureID := w.edit.Target()
	w.edit.Stop()
	w.log.Debug().Str("layer", layer.ID()).Str("feature", featureID).Msg("Edit cancelled")
}

// SaveEdit writes the edit in progress back to its layer.
func (w *Workspace) SaveEdit() error {
	if !w.edit.Active() {
		return nil
	}
	layer, featureID := w.edit.Target()
	if err := w.edit.Save(); err != nil {
		w.log.Debug().Err(err).Str("layer", layer.ID()).Str("feature", featureID).Msg("Edit not saved")
		return err
	}
	w.log.Debug().Str("layer", layer.ID()).Str("feature", featureID).Msg("Edit saved")
	return w.Rerender(layer.ID())
}

// Summaries describes every layer, newest first.
func (w *Workspace) Summaries() []Summary {
	out := make([]Summary, 0, len(w.layers))
	for _, l := range w.layers {
		out = append(out, Summary{
			ID:       l.ID(),
			Name:     l.Name(),
			Kind:     l.Kind().String(),
			Count:    l.FeaturesCount(),
			TypeText: l.GeometryTypeText(),
			Visible:  !w.hidden[l.ID()],
		})
	}
	return out
}

func (w *Workspace) index(id string) int {
	for i, l := range w.layers {
		if l.ID() == id {
			return i
		}
	}
	return -1
}

// mutable returns a layer that is not the target of the edit session.
func (w *Workspace) mutable(id string) (*Layer, error) {
	layer, err := w.Layer(id)
	if err != nil {
		return nil, err
	}
	if err := w.checkNotEditing(id); err != nil {
		return nil, err
	}
	return layer, nil
}

func (w *Workspace) checkNotEditing(id string) error {
	if layer, featureID := w.edit.Target(); layer != nil && layer.ID() == id {
		return errors.Wrapf(ErrEditInProgress, "layer %q, feature %q", id, featureID)
	}
	return nil
}
