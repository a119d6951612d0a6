package engine

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoteToMulti(t *testing.T) {
	tests := []struct {
		name string
		geom geom.Geometry
		want geom.Geometry
	}{
		{name: "point", geom: geom.Point{1, 2}, want: geom.MultiPoint{{1, 2}}},
		{name: "pointer point", geom: &geom.Point{1, 2}, want: geom.MultiPoint{{1, 2}}},
		{name: "line", geom: geom.LineString{{0, 0}, {1, 1}}, want: geom.MultiLineString{{{0, 0}, {1, 1}}}},
		{name: "polygon", geom: square(0, 0, 1, 1), want: geom.MultiPolygon{square(0, 0, 1, 1)}},
		{name: "multi stays", geom: geom.MultiPoint{{1, 2}}, want: geom.MultiPoint{{1, 2}}},
		{name: "nil", geom: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PromoteToMulti(tt.geom)
			assert.Equal(t, tt.want, got)
			if got != nil {
				assert.True(t, IsMultipart(got))
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		geom geom.Geometry
		want bool
	}{
		{name: "nil", geom: nil, want: true},
		{name: "nil pointer", geom: (*geom.Polygon)(nil), want: true},
		{name: "empty polygon", geom: geom.Polygon{}, want: true},
		{name: "empty collection", geom: geom.Collection{geom.MultiPoint{}}, want: true},
		{name: "point", geom: geom.Point{0, 0}, want: false},
		{name: "polygon", geom: square(0, 0, 1, 1), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmpty(tt.geom))
		})
	}
}

func TestCollect(t *testing.T) {
	tests := []struct {
		name  string
		geoms []geom.Geometry
		want  geom.Geometry
	}{
		{
			name:  "polygons",
			geoms: []geom.Geometry{square(0, 0, 1, 1), nil, geom.MultiPolygon{square(1, 0, 2, 1)}},
			want:  geom.MultiPolygon{square(0, 0, 1, 1), square(1, 0, 2, 1)},
		},
		{
			name:  "points",
			geoms: []geom.Geometry{geom.Point{0, 0}, geom.Point{0, 0}},
			want:  geom.MultiPoint{{0, 0}, {0, 0}},
		},
		{
			name:  "mixed",
			geoms: []geom.Geometry{geom.Point{0, 0}, geom.LineString{{0, 0}, {1, 1}}},
			want:  geom.Collection{geom.Point{0, 0}, geom.LineString{{0, 0}, {1, 1}}},
		},
		{
			name:  "nothing",
			geoms: []geom.Geometry{nil, geom.Polygon{}},
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Collect(tt.geoms)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtent(t *testing.T) {
	assert.Nil(t, Extent(nil))
	assert.Equal(t, &geom.Extent{-1, 0, 3, 2}, Extent(geom.LineString{{-1, 0}, {3, 2}}))
	assert.Equal(t, &geom.Extent{0, 0, 1, 1}, Extent(geom.MultiPolygon{square(0, 0, 1, 1)}))
}

func TestReproject(t *testing.T) {
	const (
		lcc    = "+proj=lcc +lat_1=33.000000 +lat_2=45.000000 +lat_0=40.000000 +lon_0=-97.000000 +x_0=0 +y_0=0 +a=6370997.000000 +b=6370997.000000 +to_meter=1"
		lonlat = "+proj=longlat"
	)
	line := geom.LineString{{-97, 40}, {-96, 41}}

	same, err := Reproject(line, lonlat, lonlat)
	require.NoError(t, err)
	assert.Equal(t, line, same)

	projected, err := Reproject(line, lonlat, lcc)
	require.NoError(t, err)
	l, ok := projected.(geom.LineString)
	require.True(t, ok)
	// the projection origin maps to (0 0)
	assert.InDelta(t, 0, l[0][0], 1e-3)
	assert.InDelta(t, 0, l[0][1], 1e-3)

	back, err := Reproject(projected, lcc, lonlat)
	require.NoError(t, err)
	for i, p := range back.(geom.LineString) {
		assert.InDelta(t, line[i][0], p[0], 1e-6)
		assert.InDelta(t, line[i][1], p[1], 1e-6)
	}
}

func TestPolygonize(t *testing.T) {
	tests := []struct {
		name  string
		rings [][][2]float64
		want  geom.Geometry
	}{
		{
			name:  "nothing",
			rings: [][][2]float64{{{0, 0}, {1, 1}, {0, 0}}},
			want:  nil,
		},
		{
			name:  "shell",
			rings: [][][2]float64{{{0, 0}, {2, 0}, {2, 2}, {0, 2}}},
			want:  geom.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
		},
		{
			name: "hole listed first",
			rings: [][][2]float64{
				{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
				{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
			},
			want: geom.Polygon{
				{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
				{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
			},
		},
		{
			name: "island in a hole",
			rings: [][][2]float64{
				{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
				{{2, 2}, {8, 2}, {8, 8}, {2, 8}, {2, 2}},
				{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
			},
			want: geom.MultiPolygon{
				{
					{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
					{{2, 2}, {8, 2}, {8, 8}, {2, 8}, {2, 2}},
				},
				{{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Polygonize(tt.rings))
		})
	}
}
