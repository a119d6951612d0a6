package geomhelp

import (
	"math"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/muesli/reflow/truncate"
)

// DefaultWktLength is used when rendering geometries into log messages.
const DefaultWktLength = 200

// https://en.wikipedia.org/wiki/Shoelace_formula
func Shoelace(pts [][2]float64) float64 {
	sum := 0.
	if len(pts) == 0 {
		return 0.
	}

	p0 := pts[len(pts)-1]
	for _, p1 := range pts {
		sum += p0[1]*p1[0] - p0[0]*p1[1]
		p0 = p1
	}
	return math.Abs(sum / 2)
}

// WktMustEncode renders g as WKT, cut off at maxLen characters (0 means no limit).
// A nil geometry renders as "EMPTY".
func WktMustEncode(g geom.Geometry, maxLen uint) string {
	if g == nil {
		return "EMPTY"
	}
	if maxLen == 0 {
		return wkt.MustEncode(g)
	}
	return truncate.StringWithTail(wkt.MustEncode(g), maxLen, "...")
}
