package engine

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minX, minY, maxX, maxY float64) geom.Polygon {
	return geom.Polygon{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

func area(t *testing.T, g geom.Geometry) float64 {
	t.Helper()
	s, err := toSimple(g)
	require.NoError(t, err)
	return s.Area()
}

type relations struct {
	intersects, disjoint, contains, within, equals, touches, overlaps, crosses bool
}

func relateAll(t *testing.T, h *Handle, g geom.Geometry) relations {
	t.Helper()
	var r relations
	var err error
	r.intersects, err = h.Intersects(g)
	require.NoError(t, err)
	r.disjoint, err = h.Disjoint(g)
	require.NoError(t, err)
	r.contains, err = h.Contains(g)
	require.NoError(t, err)
	r.within, err = h.Within(g)
	require.NoError(t, err)
	r.equals, err = h.Equals(g)
	require.NoError(t, err)
	r.touches, err = h.Touches(g)
	require.NoError(t, err)
	r.overlaps, err = h.Overlaps(g)
	require.NoError(t, err)
	r.crosses, err = h.Crosses(g)
	require.NoError(t, err)
	return r
}

func TestHandle_Predicates(t *testing.T) {
	tests := []struct {
		name string
		base geom.Geometry
		geom geom.Geometry
		want relations
	}{
		{
			name: "overlapping squares",
			base: square(0, 0, 2, 2),
			geom: square(1, 1, 3, 3),
			want: relations{intersects: true, overlaps: true},
		},
		{
			name: "square contains smaller square",
			base: square(0, 0, 4, 4),
			geom: square(1, 1, 2, 2),
			want: relations{intersects: true, contains: true},
		},
		{
			name: "square within larger square",
			base: square(1, 1, 2, 2),
			geom: square(0, 0, 4, 4),
			want: relations{intersects: true, within: true},
		},
		{
			name: "squares sharing an edge",
			base: square(0, 0, 2, 2),
			geom: square(2, 0, 4, 2),
			want: relations{intersects: true, touches: true},
		},
		{
			name: "squares sharing a corner",
			base: square(0, 0, 2, 2),
			geom: square(2, 2, 4, 4),
			want: relations{intersects: true, touches: true},
		},
		{
			name: "disjoint squares",
			base: square(0, 0, 1, 1),
			geom: square(5, 5, 6, 6),
			want: relations{disjoint: true},
		},
		{
			name: "equal squares",
			base: square(0, 0, 1, 1),
			geom: square(0, 0, 1, 1),
			want: relations{intersects: true, contains: true, within: true, equals: true},
		},
		{
			name: "square inside hole",
			base: geom.Polygon{
				{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
				{{2, 2}, {8, 2}, {8, 8}, {2, 8}, {2, 2}},
			},
			geom: square(4, 4, 5, 5),
			want: relations{disjoint: true},
		},
		{
			name: "line crossing square",
			base: square(0, 0, 2, 2),
			geom: geom.LineString{{-1, 1}, {3, 1}},
			want: relations{intersects: true, crosses: true},
		},
		{
			name: "line inside square",
			base: square(0, 0, 2, 2),
			geom: geom.LineString{{0.5, 0.5}, {1.5, 1.5}},
			want: relations{intersects: true, contains: true},
		},
		{
			name: "line along edge of square",
			base: square(0, 0, 2, 2),
			geom: geom.LineString{{0, 0}, {2, 0}},
			want: relations{intersects: true, touches: true},
		},
		{
			name: "line within square",
			base: geom.LineString{{0.5, 0.5}, {1.5, 1.5}},
			geom: square(0, 0, 2, 2),
			want: relations{intersects: true, within: true},
		},
		{
			name: "point inside square",
			base: square(0, 0, 2, 2),
			geom: geom.Point{1, 1},
			want: relations{intersects: true, contains: true},
		},
		{
			name: "point on square boundary",
			base: square(0, 0, 2, 2),
			geom: geom.Point{2, 1},
			want: relations{intersects: true, touches: true},
		},
		{
			name: "crossing lines",
			base: geom.LineString{{0, 0}, {2, 2}},
			geom: geom.LineString{{0, 2}, {2, 0}},
			want: relations{intersects: true, crosses: true},
		},
		{
			name: "lines meeting at end points",
			base: geom.LineString{{0, 0}, {1, 1}},
			geom: geom.LineString{{1, 1}, {2, 0}},
			want: relations{intersects: true, touches: true},
		},
		{
			name: "overlapping collinear lines",
			base: geom.LineString{{0, 0}, {2, 0}},
			geom: geom.LineString{{1, 0}, {3, 0}},
			want: relations{intersects: true, overlaps: true},
		},
		{
			name: "line contains shorter line",
			base: geom.LineString{{0, 0}, {3, 0}},
			geom: geom.LineString{{1, 0}, {2, 0}},
			want: relations{intersects: true, contains: true},
		},
		{
			name: "point on line end",
			base: geom.LineString{{0, 0}, {3, 0}},
			geom: geom.Point{3, 0},
			want: relations{intersects: true, touches: true},
		},
		{
			name: "point on line interior",
			base: geom.LineString{{0, 0}, {3, 0}},
			geom: geom.Point{1, 0},
			want: relations{intersects: true, contains: true},
		},
		{
			name: "same points",
			base: geom.MultiPoint{{0, 0}, {1, 1}},
			geom: geom.MultiPoint{{1, 1}, {0, 0}},
			want: relations{intersects: true, contains: true, within: true, equals: true},
		},
		{
			name: "partly shared points",
			base: geom.MultiPoint{{0, 0}, {1, 1}},
			geom: geom.MultiPoint{{1, 1}, {2, 2}},
			want: relations{intersects: true, overlaps: true},
		},
		{
			name: "null geometry",
			base: square(0, 0, 1, 1),
			geom: nil,
			want: relations{disjoint: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unprepared := relateAll(t, Build(tt.base), tt.geom)
			assert.Equal(t, tt.want, unprepared)

			h := Build(tt.base)
			require.NoError(t, h.Prepare())
			assert.NotNil(t, h.prepared)
			prepared := relateAll(t, h, tt.geom)
			assert.Equal(t, tt.want, prepared, "prepared handle")
		})
	}
}

func TestHandle_ContainsWithinAreReversed(t *testing.T) {
	geoms := []geom.Geometry{
		square(0, 0, 4, 4),
		square(1, 1, 2, 2),
		square(3, 3, 6, 6),
		geom.LineString{{1, 1}, {1.5, 1.5}},
		geom.Point{1.2, 1.8},
	}
	for i, a := range geoms {
		for j, b := range geoms {
			contains, err := Build(a).Contains(b)
			require.NoError(t, err)
			within, err := Build(b).Within(a)
			require.NoError(t, err)
			assert.Equal(t, contains, within, "geometry %d contains %d", i, j)
		}
	}
}

func TestHandle_SmallInsideLarge(t *testing.T) {
	// two metre building in a hundred kilometre region
	small := square(50000, 50000, 50002, 50002)
	large := square(0, 0, 100000, 100000)

	for _, prepare := range []bool{false, true} {
		h := Build(small)
		if prepare {
			require.NoError(t, h.Prepare())
		}
		got := relateAll(t, h, large)
		assert.Equal(t, relations{intersects: true, within: true}, got, "prepared %v", prepare)
	}

	region := Build(large)
	require.NoError(t, region.Prepare())
	contains, err := region.Contains(small)
	require.NoError(t, err)
	assert.True(t, contains)

	clipped, err := region.Intersection(small)
	require.NoError(t, err)
	require.NotNil(t, clipped)
	equal, err := Build(small).Equals(clipped)
	require.NoError(t, err)
	assert.True(t, equal, wkt.MustEncode(clipped))
}

func TestHandle_MixedCollection(t *testing.T) {
	c := geom.Collection{square(0, 0, 1, 1), geom.Point{5, 5}}
	h := Build(c)
	intersects, err := h.Intersects(square(0, 0, 2, 2))
	require.NoError(t, err)
	assert.True(t, intersects)

	intersects, err = h.Intersects(geom.Point{5, 5})
	require.NoError(t, err)
	assert.True(t, intersects)

	intersects, err = h.Intersects(square(3, 3, 4, 4))
	require.NoError(t, err)
	assert.False(t, intersects)
}

func TestHandle_Unsupported(t *testing.T) {
	_, err := Build(square(0, 0, 1, 1)).Intersects(geom.Triangle{{0, 0}, {1, 0}, {0, 1}})
	assert.ErrorIs(t, err, ErrUnsupportedGeometry)
}

func TestDerived(t *testing.T) {
	a := square(0, 0, 2, 2)
	b := square(1, 1, 3, 3)
	tests := []struct {
		name string
		op   func(a, b geom.Geometry) (geom.Geometry, error)
		want float64
	}{
		{name: "intersection", op: Intersection, want: 1},
		{name: "combine", op: Combine, want: 7},
		{name: "difference", op: Difference, want: 3},
		{name: "symmetric difference", op: SymDifference, want: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(a, b)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, area(t, got), 1e-9, wkt.MustEncode(got))
		})
	}
}

func TestIntersection_Empty(t *testing.T) {
	got, err := Intersection(square(0, 0, 1, 1), square(5, 5, 6, 6))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, IsEmpty(got))
}

func TestIntersection_LineAndPolygon(t *testing.T) {
	got, err := Intersection(square(0, 0, 2, 2), geom.LineString{{-1, 1}, {3, 1}})
	require.NoError(t, err)
	_, ok := got.(geom.LineString)
	require.True(t, ok, wkt.MustEncode(got))
	equal, err := Build(geom.LineString{{0, 1}, {2, 1}}).Equals(got)
	require.NoError(t, err)
	assert.True(t, equal, wkt.MustEncode(got))
}

func TestIntersection_TouchingPolygons(t *testing.T) {
	tests := []struct {
		name string
		geom geom.Geometry
		want geom.Geometry
	}{
		{
			name: "shared edge",
			geom: square(1, 0, 2, 1),
			want: geom.LineString{{1, 0}, {1, 1}},
		},
		{
			name: "shared corner",
			geom: square(1, 1, 2, 2),
			want: geom.Point{1, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Intersection(square(0, 0, 1, 1), tt.geom)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.IsType(t, tt.want, got)
			equal, err := Build(tt.want).Equals(got)
			require.NoError(t, err)
			assert.True(t, equal, wkt.MustEncode(got))
		})
	}
}

func TestIntersection_TouchingLinesGiveCollection(t *testing.T) {
	// shared piece from 1 to 2 and a single crossing at (4 0)
	a := geom.LineString{{0, 0}, {2, 0}, {4, 2}, {4, -2}}
	b := geom.LineString{{1, 0}, {2, 0}, {2, -1}, {5, 0}}
	got, err := Intersection(a, b)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, IsCollection(got), wkt.MustEncode(got))
}

func TestHandle_HolePreserved(t *testing.T) {
	outer := square(0, 0, 10, 10)
	got, err := Difference(outer, square(4, 4, 6, 6))
	require.NoError(t, err)
	p, ok := got.(geom.Polygon)
	require.True(t, ok, wkt.MustEncode(got))
	assert.Len(t, p, 2)
	assert.InDelta(t, 96, area(t, p), 1e-9)
}

func TestUnaryUnion(t *testing.T) {
	tests := []struct {
		name  string
		geoms []geom.Geometry
		area  float64
		multi bool
	}{
		{
			name:  "three adjacent unit squares",
			geoms: []geom.Geometry{square(0, 0, 1, 1), square(1, 0, 2, 1), square(2, 0, 3, 1)},
			area:  3,
		},
		{
			name:  "two separate squares",
			geoms: []geom.Geometry{square(0, 0, 1, 1), nil, square(5, 5, 6, 6)},
			area:  2,
			multi: true,
		},
		{
			name:  "overlapping squares",
			geoms: []geom.Geometry{square(0, 0, 2, 2), square(1, 1, 3, 3), square(0, 0, 1, 1)},
			area:  7,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnaryUnion(tt.geoms)
			require.NoError(t, err)
			assert.InDelta(t, tt.area, area(t, got), 1e-9, wkt.MustEncode(got))
			assert.Equal(t, tt.multi, IsMultipart(got))
		})
	}

	got, err := UnaryUnion(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnaryUnion_DropsCoveredLines(t *testing.T) {
	got, err := UnaryUnion([]geom.Geometry{square(0, 0, 2, 2), geom.LineString{{0.5, 1}, {1.5, 1}}})
	require.NoError(t, err)
	_, ok := got.(geom.Polygon)
	assert.True(t, ok, wkt.MustEncode(got))
}
