package engine

import (
	"fmt"
	"sort"

	cgeom "github.com/ctessum/geom"
	"github.com/go-spatial/geom"

	"github.com/pdok/overlay/geomhelp"
)

// deref returns the value behind pointer geometries.
func deref(g geom.Geometry) geom.Geometry {
	switch gg := g.(type) {
	case *geom.Point:
		if gg != nil {
			return *gg
		}
	case *geom.MultiPoint:
		if gg != nil {
			return *gg
		}
	case *geom.LineString:
		if gg != nil {
			return *gg
		}
	case *geom.MultiLineString:
		if gg != nil {
			return *gg
		}
	case *geom.Polygon:
		if gg != nil {
			return *gg
		}
	case *geom.MultiPolygon:
		if gg != nil {
			return *gg
		}
	case *geom.Collection:
		if gg != nil {
			return *gg
		}
	default:
		return g
	}
	return nil
}

// IsEmpty reports whether g is nil or has no coordinates.
func IsEmpty(g geom.Geometry) bool {
	switch gg := deref(g).(type) {
	case nil:
		return true
	case geom.Point:
		return false
	case geom.MultiPoint:
		return len(gg) == 0
	case geom.LineString:
		return len(gg) == 0
	case geom.MultiLineString:
		for _, l := range gg {
			if len(l) > 0 {
				return false
			}
		}
		return true
	case geom.Polygon:
		return len(gg) == 0 || len(gg[0]) == 0
	case geom.MultiPolygon:
		for _, p := range gg {
			if !IsEmpty(geom.Polygon(p)) {
				return false
			}
		}
		return true
	case geom.Collection:
		for _, part := range gg {
			if !IsEmpty(part) {
				return false
			}
		}
		return true
	}
	return false
}

// IsMultipart reports whether g is a multi geometry or a collection.
func IsMultipart(g geom.Geometry) bool {
	switch deref(g).(type) {
	case geom.MultiPoint, geom.MultiLineString, geom.MultiPolygon, geom.Collection:
		return true
	}
	return false
}

// IsCollection reports whether g is a heterogeneous geometry collection.
func IsCollection(g geom.Geometry) bool {
	_, ok := deref(g).(geom.Collection)
	return ok
}

// PromoteToMulti wraps single part geometries in their multi type. Other
// geometries are returned unchanged.
func PromoteToMulti(g geom.Geometry) geom.Geometry {
	switch gg := deref(g).(type) {
	case geom.Point:
		return geom.MultiPoint{gg}
	case geom.LineString:
		return geom.MultiLineString{gg}
	case geom.Polygon:
		return geom.MultiPolygon{gg}
	case nil:
		return nil
	default:
		return gg
	}
}

// Collect gathers the parts of all geometries into one multi geometry without
// dissolving them. Mixed kinds result in a collection. Nil and empty entries
// are skipped and nil is returned when nothing remains.
func Collect(geoms []geom.Geometry) (geom.Geometry, error) {
	var (
		points   geom.MultiPoint
		lines    geom.MultiLineString
		polygons geom.MultiPolygon
		parts    geom.Collection
	)
	kinds := map[string]bool{}
	for i, g := range geoms {
		if IsEmpty(g) {
			continue
		}
		switch gg := deref(g).(type) {
		case geom.Point:
			points = append(points, gg)
			kinds["point"] = true
		case geom.MultiPoint:
			points = append(points, gg...)
			kinds["point"] = true
		case geom.LineString:
			lines = append(lines, gg)
			kinds["line"] = true
		case geom.MultiLineString:
			lines = append(lines, gg...)
			kinds["line"] = true
		case geom.Polygon:
			polygons = append(polygons, gg)
			kinds["polygon"] = true
		case geom.MultiPolygon:
			polygons = append(polygons, gg...)
			kinds["polygon"] = true
		case geom.Collection:
			kinds["collection"] = true
		default:
			return nil, fmt.Errorf("collect geometry %d: %w: %T", i, ErrUnsupportedGeometry, g)
		}
		parts = append(parts, deref(g))
	}
	if len(kinds) == 0 {
		return nil, nil
	}
	if len(kinds) > 1 {
		return parts, nil
	}
	switch {
	case kinds["point"]:
		return points, nil
	case kinds["line"]:
		return lines, nil
	case kinds["polygon"]:
		return polygons, nil
	}
	return parts, nil
}

// Extent returns the bounding box of g, nil for empty geometries.
func Extent(g geom.Geometry) *geom.Extent {
	if IsEmpty(g) {
		return nil
	}
	s, err := toSimple(g)
	if err != nil {
		return nil
	}
	lo, hi, ok := s.Envelope().MinMaxXYs()
	if !ok {
		return nil
	}
	return &geom.Extent{lo.X, lo.Y, hi.X, hi.Y}
}

type ring struct {
	points [][2]float64
	area   float64
	parent int
	depth  int
}

// Polygonize groups unordered rings, as found in a shapefile record, into a
// polygon or multi polygon. Rings inside an odd number of other rings are
// holes of the innermost ring around them. Nil is returned when no ring has
// an area.
func Polygonize(rs [][][2]float64) geom.Geometry {
	var closed []*ring
	for _, r := range rs {
		points := closeRing(r)
		if area := geomhelp.Shoelace(points); area > 0 {
			closed = append(closed, &ring{points: points, area: area, parent: -1})
		}
	}
	// larger rings first, a ring can only lie inside a larger one
	sort.SliceStable(closed, func(i, j int) bool { return closed[i].area > closed[j].area })

	var shells []int
	for i, r := range closed {
		for j := i - 1; j >= 0; j-- {
			if ringInside(r.points, closed[j].points) {
				r.parent = j
				r.depth = closed[j].depth + 1
				break
			}
		}
		if r.depth%2 == 0 {
			shells = append(shells, i)
		}
	}
	polygons := make([]geom.Polygon, 0, len(shells))
	for _, s := range shells {
		p := geom.Polygon{closed[s].points}
		for _, r := range closed {
			if r.parent == s && r.depth%2 == 1 {
				p = append(p, r.points)
			}
		}
		polygons = append(polygons, p)
	}
	switch len(polygons) {
	case 0:
		return nil
	case 1:
		return polygons[0]
	}
	mp := make(geom.MultiPolygon, len(polygons))
	for i, p := range polygons {
		mp[i] = p
	}
	return mp
}

func closeRing(r [][2]float64) [][2]float64 {
	if len(r) == 0 || r[0] == r[len(r)-1] {
		return r
	}
	return append(append(make([][2]float64, 0, len(r)+1), r...), r[0])
}

// ringInside reports whether the first vertex of a that is not on the
// boundary of b lies inside b.
func ringInside(a, b [][2]float64) bool {
	outer := cgeom.Polygon{make([]cgeom.Point, len(b))}
	for i, p := range b {
		outer[0][i] = cgeom.Point{X: p[0], Y: p[1]}
	}
	for _, p := range a {
		switch (cgeom.Point{X: p[0], Y: p[1]}).Within(outer) {
		case cgeom.Inside:
			return true
		case cgeom.Outside:
			return false
		}
	}
	return false
}
