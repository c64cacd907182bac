package geolayer

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"

	"github.com/tingold/geolayer/geometry"
)

func TestEditSession_SaveWhenIdle(t *testing.T) {
	s := NewEditSession()

	if err := s.Save(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	s.Stop()
	if s.Active() {
		t.Error("expected idle session")
	}
}

func TestEditSession_LineString(t *testing.T) {
	l, err := NewWKXLayer("line", "LINESTRING (0 0, 1 1, 2 0)")
	if err != nil {
		t.Fatalf("NewWKXLayer failed: %v", err)
	}
	id := featureIDs(l)[0]

	s := NewEditSession()
	if err := s.Start(l, id); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !l.Groups().Get(id).Hidden {
		t.Error("expected the feature to be hidden while editing")
	}
	if n := len(s.Handles()); n != 3 {
		t.Fatalf("expected 3 handles, got %d", n)
	}

	if err := s.MoveHandle(1, orb.Point{1, 5}); err != nil {
		t.Fatalf("MoveHandle failed: %v", err)
	}
	path := s.Path()
	if len(path) != 3 || path[1] != (orb.Point{1, 5}) {
		t.Errorf("expected the path to follow the handle, got %v", path)
	}
	if err := s.MoveHandle(3, orb.Point{0, 0}); !errors.Is(err, ErrLookup) {
		t.Errorf("expected ErrLookup, got %v", err)
	}

	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if s.Active() {
		t.Error("expected the session to be idle after Save")
	}

	g, err := l.Geometry(id)
	if err != nil {
		t.Fatalf("Geometry failed: %v", err)
	}
	expected := mustWKT(t, "LINESTRING (0 0, 1 5, 2 0)")
	if !geometry.Equal(g, expected) {
		t.Errorf("expected %v, got %v", expected, g)
	}
	if group := l.Groups().Get(id); group == nil || group.Hidden {
		t.Error("expected the feature to be drawn after Save")
	}
}

func TestEditSession_PointKeepsZ(t *testing.T) {
	l, err := NewGeoJSONLayer("p", []byte(`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2,3]},"properties":{}}`))
	if err != nil {
		t.Fatalf("NewGeoJSONLayer failed: %v", err)
	}
	id := featureIDs(l)[0]

	s := NewEditSession()
	if err := s.Start(l, id); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.Path() != nil {
		t.Error("expected no path for a point edit")
	}
	if err := s.MoveHandle(0, orb.Point{10, 20}); err != nil {
		t.Fatalf("MoveHandle failed: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	g, _ := l.Geometry(id)
	p, ok := g.(*geom.Point)
	if !ok {
		t.Fatalf("expected a point, got %T", g)
	}
	if p.Layout() != geom.XYZ || p.X() != 10 || p.Y() != 20 || p.Z() != 3 {
		t.Errorf("expected POINT Z (10 20 3), got %v %v", p.Layout(), p.Coords())
	}
}

func TestEditSession_StopDiscards(t *testing.T) {
	l, err := NewWKXLayer("line", "LINESTRING (0 0, 1 1)")
	if err != nil {
		t.Fatalf("NewWKXLayer failed: %v", err)
	}
	id := featureIDs(l)[0]
	before, _ := l.Geometry(id)

	s := NewEditSession()
	if err := s.Start(l, id); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	_ = s.MoveHandle(0, orb.Point{9, 9})
	s.Stop()

	after, _ := l.Geometry(id)
	if !geometry.Equal(before, after) {
		t.Errorf("expected %v, got %v", before, after)
	}
	if l.Groups().Get(id).Hidden {
		t.Error("expected the feature to be drawn after Stop")
	}
	if err := s.MoveHandle(0, orb.Point{1, 1}); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("expected ErrUnsupportedOperation, got %v", err)
	}
}

func TestEditSession_StartErrors(t *testing.T) {
	l, err := NewWKXLayer("mixed", "POINT (1 2)\nPOLYGON ((0 0, 1 0, 1 1, 0 0))")
	if err != nil {
		t.Fatalf("NewWKXLayer failed: %v", err)
	}
	ids := featureIDs(l)

	s := NewEditSession()
	if err := s.Start(l, ids[1]); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("expected ErrUnsupportedOperation, got %v", err)
	}
	if err := s.Start(l, "missing"); !errors.Is(err, ErrLookup) {
		t.Errorf("expected ErrLookup, got %v", err)
	}
	if err := s.Start(l, ids[0]); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(l, ids[0]); !errors.Is(err, ErrEditInProgress) {
		t.Errorf("expected ErrEditInProgress, got %v", err)
	}

	layer, featureID := s.Target()
	if layer != l || featureID != ids[0] {
		t.Errorf("expected target %s, got %s", ids[0], featureID)
	}
	if !geometry.Equal(s.Snapshot(), mustPoint(1, 2)) {
		t.Errorf("expected snapshot POINT (1 2), got %v", s.Snapshot())
	}
}
