package render

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Group is the set of primitives drawn for one feature.
type Group struct {
	ID         string
	Primitives []Primitive
	Style      Style
	Hidden     bool
}

// Bound returns the bounding box of the group's primitives. ok is false
// when the group has no primitives.
func (g *Group) Bound() (b orb.Bound, ok bool) {
	for _, p := range g.Primitives {
		if !ok {
			b, ok = p.Geometry.Bound(), true
			continue
		}
		b = b.Union(p.Geometry.Bound())
	}
	return b, ok
}

// Collection holds the primitive groups of a layer keyed by feature id,
// in feature order.
type Collection struct {
	groups []*Group
	index  map[string]int
}

// NewCollection builds one group per distinct id. Entries sharing an id,
// such as the members of a geometry collection, are merged into one group.
func NewCollection(geometries []Geometry) *Collection {
	c := &Collection{index: make(map[string]int, len(geometries))}
	for _, g := range geometries {
		if g.Geometry == nil {
			continue
		}
		group := c.Get(g.ID)
		if group == nil {
			group = &Group{ID: g.ID}
			c.index[g.ID] = len(c.groups)
			c.groups = append(c.groups, group)
		}
		group.Primitives = append(group.Primitives, Primitives(g.Geometry)...)
	}
	return c
}

// Len returns the number of groups.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.groups)
}

// Get returns the group for id, or nil.
func (c *Collection) Get(id string) *Group {
	if c == nil {
		return nil
	}
	i, ok := c.index[id]
	if !ok {
		return nil
	}
	return c.groups[i]
}

// Groups returns the groups in feature order.
func (c *Collection) Groups() []*Group {
	if c == nil {
		return nil
	}
	return append([]*Group(nil), c.groups...)
}

// SetStyle applies style to the group for id. Unknown ids are ignored.
func (c *Collection) SetStyle(id string, style Style) {
	if g := c.Get(id); g != nil {
		g.Style = style
	}
}

// SetAllStyles applies style to every group.
func (c *Collection) SetAllStyles(style Style) {
	if c == nil {
		return
	}
	for _, g := range c.groups {
		g.Style = style
	}
}

// Hide stops the group for id from being drawn.
func (c *Collection) Hide(id string) {
	if g := c.Get(id); g != nil {
		g.Hidden = true
	}
}

// Show undoes Hide.
func (c *Collection) Show(id string) {
	if g := c.Get(id); g != nil {
		g.Hidden = false
	}
}

// Bound returns the union of all group bounds, hidden groups included.
func (c *Collection) Bound() (b orb.Bound, ok bool) {
	for _, g := range c.Groups() {
		gb, gok := g.Bound()
		if !gok {
			continue
		}
		if !ok {
			b, ok = gb, true
			continue
		}
		b = b.Union(gb)
	}
	return b, ok
}

// FeatureCollection exports the visible primitives as GeoJSON features,
// one per primitive. Each feature carries the feature id, the primitive
// class and the paint of the group's style for that class.
func (c *Collection) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, g := range c.Groups() {
		if g.Hidden {
			continue
		}
		for _, p := range g.Primitives {
			f := geojson.NewFeature(p.Geometry)
			f.ID = g.ID
			f.Properties["id"] = g.ID
			f.Properties["class"] = p.Class.String()
			paintProperties(f.Properties, g.Style.For(p.Class))
			fc.Append(f)
		}
	}
	return fc
}

func paintProperties(props geojson.Properties, p Paint) {
	props["fill"] = p.Fill
	props["stroke"] = p.Stroke
	if p.FillColor != "" {
		props["fillColor"] = p.FillColor
		props["fillOpacity"] = p.FillOpacity
	}
	if p.Color != "" {
		props["color"] = p.Color
	}
	if p.Weight > 0 {
		props["weight"] = p.Weight
	}
	if p.Radius > 0 {
		props["radius"] = p.Radius
	}
}
