package feature

import (
	"fmt"
	"math"
	"sort"

	cgeom "github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/go-spatial/geom"

	"github.com/pdok/overlay/engine"
)

// Collection is an in-memory feature source with a bounding box index. It is
// also a sink, so operations can be chained without touching disk.
type Collection struct {
	schema   Schema
	crs      CRS
	features []Feature
	byID     map[ID]int
	nextID   ID
	index    *rtree.Rtree
}

// entry is the index item of one feature: a diagonal of its bounding box.
type entry struct {
	cgeom.LineString
	pos int
}

func NewCollection(schema Schema, crs CRS) *Collection {
	return &Collection{
		schema: schema,
		crs:    crs,
		byID:   make(map[ID]int),
		nextID: 1,
	}
}

func (c *Collection) Schema() Schema {
	return c.schema
}

func (c *Collection) CRS() CRS {
	return c.crs
}

func (c *Collection) Count() int {
	return len(c.features)
}

func (c *Collection) IDs() []ID {
	ids := make([]ID, len(c.features))
	for i, f := range c.features {
		ids[i] = f.ID
	}
	return ids
}

// Get returns the feature with the given id.
func (c *Collection) Get(id ID) (Feature, bool) {
	pos, ok := c.byID[id]
	if !ok {
		return Feature{}, false
	}
	return c.features[pos], true
}

// Add stores f and returns its id. A feature without id, with an id that is
// already taken or inserted with RegenerateID gets the next free id.
func (c *Collection) Add(f Feature, hint InsertHint) ID {
	if _, taken := c.byID[f.ID]; f.ID <= 0 || taken || hint == RegenerateID {
		for {
			if _, taken := c.byID[c.nextID]; !taken {
				break
			}
			c.nextID++
		}
		f.ID = c.nextID
	}
	if f.ID >= c.nextID {
		c.nextID = f.ID + 1
	}
	pos := len(c.features)
	c.features = append(c.features, f)
	c.byID[f.ID] = pos
	if c.index != nil {
		c.indexFeature(pos)
	}
	return f.ID
}

func (c *Collection) AddFeature(f Feature, hint InsertHint) error {
	c.Add(f, hint)
	return nil
}

func (c *Collection) indexFeature(pos int) {
	ext := engine.Extent(c.features[pos].Geometry)
	if ext == nil {
		return
	}
	c.index.Insert(entry{
		LineString: cgeom.LineString{{X: ext.MinX(), Y: ext.MinY()}, {X: ext.MaxX(), Y: ext.MaxY()}},
		pos:        pos,
	})
}

func (c *Collection) buildIndex() {
	if c.index != nil {
		return
	}
	c.index = rtree.NewTree(25, 50)
	for pos := range c.features {
		c.indexFeature(pos)
	}
}

// Extent returns the bounding box of all geometries, nil when there are none.
func (c *Collection) Extent() *geom.Extent {
	var ext *geom.Extent
	for _, f := range c.features {
		e := engine.Extent(f.Geometry)
		if e == nil {
			continue
		}
		if ext == nil {
			ext = e
			continue
		}
		ext = &geom.Extent{
			math.Min(ext.MinX(), e.MinX()), math.Min(ext.MinY(), e.MinY()),
			math.Max(ext.MaxX(), e.MaxX()), math.Max(ext.MaxY(), e.MaxY()),
		}
	}
	return ext
}

// Features returns the features matching r in insertion order.
func (c *Collection) Features(r Request) Iterator {
	var reprojector *engine.Reprojector
	if r.DestinationCRS != nil && !r.DestinationCRS.Equal(c.crs) && !r.NoGeometry {
		var err error
		reprojector, err = engine.NewReprojector(c.crs.Definition, r.DestinationCRS.Definition)
		if err != nil {
			return failedIterator(fmt.Errorf("reproject %s to %s: %w", c.crs, r.DestinationCRS, err))
		}
	}

	positions, err := c.candidates(r)
	if err != nil {
		return failedIterator(err)
	}
	result := make([]Feature, 0, len(positions))
	for _, pos := range positions {
		f := c.features[pos]
		if r.IDs != nil && !r.IDs.Contains(f.ID) {
			continue
		}
		if r.Attributes != nil {
			attributes := make([]interface{}, len(r.Attributes))
			for i, idx := range r.Attributes {
				if idx >= 0 && idx < len(f.Attributes) {
					attributes[i] = f.Attributes[idx]
				}
			}
			f = f.WithAttributes(attributes)
		}
		switch {
		case r.NoGeometry:
			f = f.WithGeometry(nil)
		case reprojector != nil && f.HasGeometry():
			g, err := reprojector.Reproject(f.Geometry)
			if err != nil {
				return failedIterator(fmt.Errorf("reproject feature %d: %w", f.ID, err))
			}
			f = f.WithGeometry(g)
		}
		result = append(result, f)
	}
	return NewSliceIterator(result)
}

// candidates returns the sorted positions of the features passing the extent
// filter of r.
func (c *Collection) candidates(r Request) ([]int, error) {
	if r.Extent == nil {
		positions := make([]int, len(c.features))
		for i := range positions {
			positions[i] = i
		}
		return positions, nil
	}
	ext := r.Extent
	if r.DestinationCRS != nil && !r.DestinationCRS.Equal(c.crs) {
		back, err := engine.Reproject(extentPolygon(ext), r.DestinationCRS.Definition, c.crs.Definition)
		if err != nil {
			return nil, fmt.Errorf("reproject request extent: %w", err)
		}
		ext = engine.Extent(back)
	}
	c.buildIndex()
	found := c.index.SearchIntersect(&cgeom.Bounds{
		Min: cgeom.Point{X: ext.MinX(), Y: ext.MinY()},
		Max: cgeom.Point{X: ext.MaxX(), Y: ext.MaxY()},
	})
	positions := make([]int, 0, len(found))
	for _, g := range found {
		if e, ok := g.(entry); ok {
			positions = append(positions, e.pos)
		}
	}
	sort.Ints(positions)
	return positions, nil
}

func extentPolygon(e *geom.Extent) geom.Polygon {
	return geom.Polygon{{
		{e.MinX(), e.MinY()}, {e.MaxX(), e.MinY()}, {e.MaxX(), e.MaxY()}, {e.MinX(), e.MaxY()}, {e.MinX(), e.MinY()},
	}}
}
