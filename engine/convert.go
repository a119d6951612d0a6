package engine

import (
	"fmt"

	"github.com/go-spatial/geom"
	sf "github.com/peterstace/simplefeatures/geom"
)

// toSimple converts a go-spatial geometry into the model the overlay
// algorithms work on. Nil becomes the empty geometry, open rings are closed.
func toSimple(g geom.Geometry) (sf.Geometry, error) {
	switch gg := deref(g).(type) {
	case nil:
		return sf.Geometry{}, nil
	case geom.Point:
		return simplePoint(gg).AsGeometry(), nil
	case geom.MultiPoint:
		points := make([]sf.Point, len(gg))
		for i, p := range gg {
			points[i] = simplePoint(p)
		}
		return sf.NewMultiPoint(points).AsGeometry(), nil
	case geom.LineString:
		return simpleLine(gg).AsGeometry(), nil
	case geom.MultiLineString:
		lines := make([]sf.LineString, len(gg))
		for i, l := range gg {
			lines[i] = simpleLine(l)
		}
		return sf.NewMultiLineString(lines).AsGeometry(), nil
	case geom.Polygon:
		return simplePolygon(gg).AsGeometry(), nil
	case geom.MultiPolygon:
		polygons := make([]sf.Polygon, 0, len(gg))
		for _, p := range gg {
			if len(p) > 0 {
				polygons = append(polygons, simplePolygon(p))
			}
		}
		return sf.NewMultiPolygon(polygons).AsGeometry(), nil
	case geom.Collection:
		parts := make([]sf.Geometry, 0, len(gg))
		for i, part := range gg {
			s, err := toSimple(part)
			if err != nil {
				return sf.Geometry{}, fmt.Errorf("collection part %d: %w", i, err)
			}
			parts = append(parts, s)
		}
		return sf.NewGeometryCollection(parts).AsGeometry(), nil
	}
	return sf.Geometry{}, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
}

func simplePoint(p [2]float64) sf.Point {
	return sf.NewPoint(sf.Coordinates{XY: sf.XY{X: p[0], Y: p[1]}, Type: sf.DimXY})
}

func sequence(ps [][2]float64, closed bool) sf.Sequence {
	floats := make([]float64, 0, 2*len(ps)+2)
	for _, p := range ps {
		floats = append(floats, p[0], p[1])
	}
	if closed && len(ps) > 0 && ps[0] != ps[len(ps)-1] {
		floats = append(floats, ps[0][0], ps[0][1])
	}
	return sf.NewSequence(floats, sf.DimXY)
}

func simpleLine(l [][2]float64) sf.LineString {
	return sf.NewLineString(sequence(l, false))
}

func simplePolygon(p [][][2]float64) sf.Polygon {
	rings := make([]sf.LineString, 0, len(p))
	for _, r := range p {
		if len(r) > 0 {
			rings = append(rings, sf.NewLineString(sequence(r, true)))
		}
	}
	return sf.NewPolygon(rings)
}

// fromSimple converts an overlay result back. Empty results become nil.
func fromSimple(g sf.Geometry) (geom.Geometry, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	switch g.Type() {
	case sf.TypePoint:
		xy, _ := g.MustAsPoint().XY()
		return geom.Point{xy.X, xy.Y}, nil
	case sf.TypeMultiPoint:
		mp := g.MustAsMultiPoint()
		result := make(geom.MultiPoint, 0, mp.NumPoints())
		for i := 0; i < mp.NumPoints(); i++ {
			if xy, ok := mp.PointN(i).XY(); ok {
				result = append(result, [2]float64{xy.X, xy.Y})
			}
		}
		return result, nil
	case sf.TypeLineString:
		return geom.LineString(points(g.MustAsLineString().Coordinates())), nil
	case sf.TypeMultiLineString:
		seqs := g.MustAsMultiLineString().Coordinates()
		lines := make(geom.MultiLineString, 0, len(seqs))
		for _, seq := range seqs {
			if seq.Length() > 0 {
				lines = append(lines, points(seq))
			}
		}
		return lines, nil
	case sf.TypePolygon:
		return geom.Polygon(rings(g.MustAsPolygon().Coordinates())), nil
	case sf.TypeMultiPolygon:
		polys := g.MustAsMultiPolygon().Coordinates()
		mp := make(geom.MultiPolygon, 0, len(polys))
		for _, p := range polys {
			if len(p) > 0 {
				mp = append(mp, rings(p))
			}
		}
		return mp, nil
	case sf.TypeGeometryCollection:
		gc := g.MustAsGeometryCollection()
		parts := make(geom.Collection, 0, gc.NumGeometries())
		for i := 0; i < gc.NumGeometries(); i++ {
			part, err := fromSimple(gc.GeometryN(i))
			if err != nil {
				return nil, err
			}
			if part != nil {
				parts = append(parts, part)
			}
		}
		if len(parts) == 0 {
			return nil, nil
		}
		return parts, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.Type())
}

func points(seq sf.Sequence) [][2]float64 {
	ps := make([][2]float64, seq.Length())
	for i := range ps {
		xy := seq.GetXY(i)
		ps[i] = [2]float64{xy.X, xy.Y}
	}
	return ps
}

func rings(seqs []sf.Sequence) [][][2]float64 {
	rs := make([][][2]float64, len(seqs))
	for i, seq := range seqs {
		rs[i] = points(seq)
	}
	return rs
}
