package geolayer

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
)

// EditSession edits the vertices of one feature at a time. Points are
// edited through one handle, line strings through one handle per vertex.
// The session is Idle until Start and returns to Idle on Stop or Save.
type EditSession struct {
	layer     *Layer
	featureID string
	snapshot  geom.T
	handles   []geom.Coord
}

// NewEditSession returns an idle session.
func NewEditSession() *EditSession {
	return &EditSession{}
}

// Active reports whether a feature is being edited.
func (s *EditSession) Active() bool {
	return s.layer != nil
}

// Target returns the layer and feature being edited.
func (s *EditSession) Target() (*Layer, string) {
	return s.layer, s.featureID
}

// Snapshot returns the geometry the feature had when editing started.
func (s *EditSession) Snapshot() geom.T {
	return s.snapshot
}

// Start begins editing a feature and hides its normal rendering. It fails
// with ErrEditInProgress when a session is already active and with
// ErrUnsupportedOperation for geometries other than Point and LineString.
func (s *EditSession) Start(layer *Layer, featureID string) error {
	if s.Active() {
		return errors.Wrapf(ErrEditInProgress, "feature %q", s.featureID)
	}
	if layer == nil {
		return errors.Wrap(ErrLookup, "nil layer")
	}

	g, err := layer.Geometry(featureID)
	if err != nil {
		return err
	}

	var handles []geom.Coord
	switch v := g.(type) {
	case *geom.Point:
		if v.Empty() {
			return errors.Wrap(ErrUnsupportedOperation, "cannot edit an empty point")
		}
		handles = []geom.Coord{v.Coords().Clone()}
	case *geom.LineString:
		for _, c := range v.Coords() {
			handles = append(handles, c.Clone())
		}
	default:
		return errors.Wrapf(ErrUnsupportedOperation, "cannot edit a %q geometry", geometry.TypeName(g))
	}

	s.layer = layer
	s.featureID = featureID
	s.snapshot = g
	s.handles = handles
	layer.Hide(featureID)
	return nil
}

// Handles returns the handle positions in creation order.
func (s *EditSession) Handles() []orb.Point {
	points := make([]orb.Point, len(s.handles))
	for i, c := range s.handles {
		points[i] = orb.Point{c.X(), c.Y()}
	}
	return points
}

// MoveHandle moves handle i to p. Z and M values of the vertex are kept.
func (s *EditSession) MoveHandle(i int, p orb.Point) error {
	if !s.Active() {
		return errors.Wrap(ErrUnsupportedOperation, "no active edit")
	}
	if i < 0 || i >= len(s.handles) {
		return errors.Wrapf(ErrLookup, "handle %d out of range", i)
	}
	s.handles[i][0] = p[0]
	s.handles[i][1] = p[1]
	return nil
}

// Path returns the line connecting the handles of a line string edit. It
// is nil when a point is edited.
func (s *EditSession) Path() orb.LineString {
	if _, ok := s.snapshot.(*geom.LineString); !ok {
		return nil
	}
	return orb.LineString(s.Handles())
}

// Geometry builds the edited geometry from the handle positions.
func (s *EditSession) Geometry() (geom.T, error) {
	if !s.Active() {
		return nil, errors.Wrap(ErrUnsupportedOperation, "no active edit")
	}

	layout := s.snapshot.Layout()
	if _, ok := s.snapshot.(*geom.Point); ok {
		p, err := geom.NewPoint(layout).SetCoords(s.handles[0])
		if err != nil {
			return nil, errors.Wrap(err, "edited point")
		}
		return p, nil
	}

	ls, err := geom.NewLineString(layout).SetCoords(s.handles)
	if err != nil {
		return nil, errors.Wrap(err, "edited line string")
	}
	return ls, nil
}

// Stop cancels the edit without writing anything back and shows the
// feature again. It does nothing when the session is idle.
func (s *EditSession) Stop() {
	if !s.Active() {
		return
	}
	s.layer.Show(s.featureID)
	s.layer = nil
	s.featureID = ""
	s.snapshot = nil
	s.handles = nil
}

// Save writes the edited geometry to the layer, rerenders it and stops
// the session. The session is stopped even when the write fails. It does
// nothing when the session is idle.
func (s *EditSession) Save() error {
	if !s.Active() {
		return nil
	}
	layer, id := s.layer, s.featureID
	defer s.Stop()

	g, err := s.Geometry()
	if err != nil {
		return err
	}
	if err := layer.UpdateGeometry(id, g); err != nil {
		return err
	}
	layer.Rerender()
	return nil
}
