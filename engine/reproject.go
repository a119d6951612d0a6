package engine

import (
	"fmt"

	"github.com/ctessum/geom/proj"
	"github.com/go-spatial/geom"
)

// Reprojector transforms coordinates from one coordinate reference system to
// another. Definitions are PROJ.4 strings or WKT.
type Reprojector struct {
	transform func(x, y float64) (float64, float64, error)
}

// NewReprojector parses both definitions. Identical definitions give a
// reprojector that leaves geometries untouched.
func NewReprojector(from, to string) (*Reprojector, error) {
	if from == to {
		return &Reprojector{}, nil
	}
	src, err := proj.Parse(from)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidCRS, from, err)
	}
	dst, err := proj.Parse(to)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidCRS, to, err)
	}
	ct, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("%w: no transformation from %q to %q: %v", ErrInvalidCRS, from, to, err)
	}
	return &Reprojector{transform: func(x, y float64) (float64, float64, error) { return ct(x, y) }}, nil
}

// Reproject returns a transformed copy of g.
func (r *Reprojector) Reproject(g geom.Geometry) (geom.Geometry, error) {
	if r.transform == nil || g == nil {
		return g, nil
	}
	switch gg := deref(g).(type) {
	case nil:
		return nil, nil
	case geom.Point:
		p, err := r.point(gg)
		return geom.Point(p), err
	case geom.MultiPoint:
		ps, err := r.points(gg)
		return geom.MultiPoint(ps), err
	case geom.LineString:
		ps, err := r.points(gg)
		return geom.LineString(ps), err
	case geom.MultiLineString:
		ls := make(geom.MultiLineString, len(gg))
		for i, l := range gg {
			ps, err := r.points(l)
			if err != nil {
				return nil, err
			}
			ls[i] = ps
		}
		return ls, nil
	case geom.Polygon:
		rs, err := r.rings(gg)
		return geom.Polygon(rs), err
	case geom.MultiPolygon:
		mp := make(geom.MultiPolygon, len(gg))
		for i, p := range gg {
			rs, err := r.rings(p)
			if err != nil {
				return nil, err
			}
			mp[i] = rs
		}
		return mp, nil
	case geom.Collection:
		c := make(geom.Collection, len(gg))
		for i, part := range gg {
			t, err := r.Reproject(part)
			if err != nil {
				return nil, err
			}
			c[i] = t
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
}

func (r *Reprojector) point(p [2]float64) ([2]float64, error) {
	x, y, err := r.transform(p[0], p[1])
	if err != nil {
		return p, fmt.Errorf("reproject (%v %v): %w", p[0], p[1], err)
	}
	return [2]float64{x, y}, nil
}

func (r *Reprojector) points(ps [][2]float64) ([][2]float64, error) {
	result := make([][2]float64, len(ps))
	for i, p := range ps {
		t, err := r.point(p)
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (r *Reprojector) rings(rs [][][2]float64) ([][][2]float64, error) {
	result := make([][][2]float64, len(rs))
	for i, ring := range rs {
		t, err := r.points(ring)
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// Reproject transforms g from one definition to another.
func Reproject(g geom.Geometry, from, to string) (geom.Geometry, error) {
	r, err := NewReprojector(from, to)
	if err != nil {
		return nil, err
	}
	return r.Reproject(g)
}
