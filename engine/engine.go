// Package engine answers spatial predicates and derives new geometries for
// go-spatial geometries. Relate and overlay are delegated to
// github.com/peterstace/simplefeatures; the bounding box index and
// reprojection come from github.com/ctessum/geom.
package engine

import (
	"errors"
	"fmt"

	"github.com/go-spatial/geom"
	sf "github.com/peterstace/simplefeatures/geom"
)

var (
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
	ErrInvalidCRS          = errors.New("invalid coordinate reference system")
)

// Handle wraps one base geometry. A prepared handle converts its base
// geometry once and keeps it, an unprepared handle converts it for every
// query. A handle belongs to a single caller and always to the same geometry.
type Handle struct {
	geometry geom.Geometry
	prepared *sf.Geometry
}

// Build wraps g without doing any work yet.
func Build(g geom.Geometry) *Handle {
	return &Handle{geometry: g}
}

func (h *Handle) Geometry() geom.Geometry {
	return h.geometry
}

// Prepare converts the base geometry for repeated queries.
func (h *Handle) Prepare() error {
	s, err := toSimple(h.geometry)
	if err != nil {
		return err
	}
	h.prepared = &s
	return nil
}

func (h *Handle) base() (sf.Geometry, error) {
	if h.prepared != nil {
		return *h.prepared, nil
	}
	return toSimple(h.geometry)
}

func (h *Handle) operands(g geom.Geometry) (a, b sf.Geometry, err error) {
	if a, err = h.base(); err != nil {
		return a, b, err
	}
	b, err = toSimple(g)
	return a, b, err
}

func (h *Handle) predicate(g geom.Geometry, p func(a, b sf.Geometry) (bool, error)) (bool, error) {
	a, b, err := h.operands(g)
	if err != nil {
		return false, err
	}
	// only disjoint holds for an empty operand
	if a.IsEmpty() || b.IsEmpty() {
		return false, nil
	}
	return p(a, b)
}

// Intersects reports whether the base geometry and g share any point.
func (h *Handle) Intersects(g geom.Geometry) (bool, error) {
	a, b, err := h.operands(g)
	if err != nil {
		return false, err
	}
	return sf.Intersects(a, b), nil
}

// Disjoint is the negation of Intersects.
func (h *Handle) Disjoint(g geom.Geometry) (bool, error) {
	intersects, err := h.Intersects(g)
	return !intersects, err
}

// Contains reports whether no point of g lies outside the base geometry and
// the interiors meet.
func (h *Handle) Contains(g geom.Geometry) (bool, error) {
	return h.predicate(g, sf.Contains)
}

// Within reports whether the base geometry is contained by g.
func (h *Handle) Within(g geom.Geometry) (bool, error) {
	return h.predicate(g, sf.Within)
}

func (h *Handle) Equals(g geom.Geometry) (bool, error) {
	return h.predicate(g, sf.Equals)
}

// Touches reports whether the geometries meet only at their boundaries.
func (h *Handle) Touches(g geom.Geometry) (bool, error) {
	return h.predicate(g, sf.Touches)
}

// Overlaps reports whether geometries of the same dimension share part of
// their interiors while neither contains the other.
func (h *Handle) Overlaps(g geom.Geometry) (bool, error) {
	return h.predicate(g, sf.Overlaps)
}

func (h *Handle) Crosses(g geom.Geometry) (bool, error) {
	return h.predicate(g, sf.Crosses)
}

func (h *Handle) derive(g geom.Geometry, op func(a, b sf.Geometry) (sf.Geometry, error)) (geom.Geometry, error) {
	a, b, err := h.operands(g)
	if err != nil {
		return nil, err
	}
	result, err := op(a, b)
	if err != nil {
		return nil, err
	}
	return fromSimple(result)
}

// Intersection returns the part of the base geometry shared with g, nil when
// there is none. Polygons meeting along an edge or in a corner give that
// line or point. The result is a geometry collection when it mixes points,
// lines and polygons.
func (h *Handle) Intersection(g geom.Geometry) (geom.Geometry, error) {
	return h.derive(g, sf.Intersection)
}

// Combine returns the union of the base geometry and g.
func (h *Handle) Combine(g geom.Geometry) (geom.Geometry, error) {
	return h.derive(g, sf.Union)
}

func (h *Handle) Difference(g geom.Geometry) (geom.Geometry, error) {
	return h.derive(g, sf.Difference)
}

func (h *Handle) SymDifference(g geom.Geometry) (geom.Geometry, error) {
	return h.derive(g, sf.SymmetricDifference)
}

func Intersection(a, b geom.Geometry) (geom.Geometry, error) {
	return Build(a).Intersection(b)
}

func Combine(a, b geom.Geometry) (geom.Geometry, error) {
	return Build(a).Combine(b)
}

func Difference(a, b geom.Geometry) (geom.Geometry, error) {
	return Build(a).Difference(b)
}

func SymDifference(a, b geom.Geometry) (geom.Geometry, error) {
	return Build(a).SymDifference(b)
}

// UnaryUnion dissolves all geometries into one, nil when there is nothing to
// dissolve. Nil entries are skipped. Parts covered by parts of a higher
// dimension disappear in the result.
func UnaryUnion(geoms []geom.Geometry) (geom.Geometry, error) {
	simple := make([]sf.Geometry, 0, len(geoms))
	for i, g := range geoms {
		if IsEmpty(g) {
			continue
		}
		s, err := toSimple(g)
		if err != nil {
			return nil, fmt.Errorf("union of geometry %d: %w", i, err)
		}
		simple = append(simple, s)
	}
	if len(simple) == 0 {
		return nil, nil
	}
	union, err := sf.UnionMany(simple)
	if err != nil {
		return nil, err
	}
	return fromSimple(union)
}
