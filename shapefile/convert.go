package shapefile

import (
	"fmt"

	cgeom "github.com/ctessum/geom"
	"github.com/go-spatial/geom"

	"github.com/pdok/overlay/engine"
)

func toPoints(ps []cgeom.Point) [][2]float64 {
	r := make([][2]float64, len(ps))
	for i, p := range ps {
		r[i] = [2]float64{p.X, p.Y}
	}
	return r
}

func fromPoints(ps [][2]float64) []cgeom.Point {
	r := make([]cgeom.Point, len(ps))
	for i, p := range ps {
		r[i] = cgeom.Point{X: p[0], Y: p[1]}
	}
	return r
}

// toGeometry converts a decoded shape. Polygon records hold all rings of all
// parts, they are regrouped into polygons.
func toGeometry(g cgeom.Geom) (geom.Geometry, error) {
	switch gg := g.(type) {
	case nil:
		return nil, nil
	case cgeom.Point:
		return geom.Point{gg.X, gg.Y}, nil
	case cgeom.MultiPoint:
		return geom.MultiPoint(toPoints(gg)), nil
	case cgeom.LineString:
		return geom.LineString(toPoints(gg)), nil
	case cgeom.MultiLineString:
		ml := make(geom.MultiLineString, len(gg))
		for i, l := range gg {
			ml[i] = toPoints(l)
		}
		return ml, nil
	case cgeom.Polygon:
		rings := make([][][2]float64, len(gg))
		for i, r := range gg {
			rings[i] = toPoints(r)
		}
		return engine.Polygonize(rings), nil
	default:
		return nil, fmt.Errorf("unsupported shape %T", g)
	}
}

// fromGeometry converts a geometry to the shapes a shapefile can hold: lines
// are written as multi lines and all polygon rings go into one record.
func fromGeometry(g geom.Geometry) (cgeom.Geom, error) {
	switch gg := g.(type) {
	case nil:
		return nil, nil
	case geom.Point:
		return cgeom.Point{X: gg[0], Y: gg[1]}, nil
	case geom.MultiPoint:
		return cgeom.MultiPoint(fromPoints(gg)), nil
	case geom.LineString:
		return cgeom.MultiLineString{fromPoints(gg)}, nil
	case geom.MultiLineString:
		ml := make(cgeom.MultiLineString, len(gg))
		for i, l := range gg {
			ml[i] = fromPoints(l)
		}
		return ml, nil
	case geom.Polygon:
		return rings(gg), nil
	case geom.MultiPolygon:
		var p cgeom.Polygon
		for _, pg := range gg {
			p = append(p, rings(pg)...)
		}
		return p, nil
	case *geom.Point, *geom.MultiPoint, *geom.LineString, *geom.MultiLineString, *geom.Polygon, *geom.MultiPolygon:
		return fromGeometry(engine.PromoteToMulti(g))
	default:
		return nil, fmt.Errorf("unsupported geometry %T", g)
	}
}

func rings(p [][][2]float64) cgeom.Polygon {
	r := make(cgeom.Polygon, len(p))
	for i, ring := range p {
		r[i] = fromPoints(ring)
	}
	return r
}
