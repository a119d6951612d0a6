package predicate

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/overlay/engine"
)

func TestPredicate_Reverse(t *testing.T) {
	tests := []struct {
		p    Predicate
		want Predicate
	}{
		{Intersects, Intersects},
		{Contains, Within},
		{Disjoint, Disjoint},
		{Equals, Equals},
		{Touches, Touches},
		{Overlaps, Overlaps},
		{Within, Contains},
		{Crosses, Crosses},
	}
	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Reverse())
			assert.Equal(t, tt.p, tt.p.Reverse().Reverse())
		})
	}
}

// a p b must hold exactly when b reverse(p) a, prepared or not.
func TestEvaluate_ReverseSymmetry(t *testing.T) {
	geoms := []geom.Geometry{
		geom.Polygon{{{0, 0}, {4, 0}, {4, 4}, {0, 4}}},
		geom.Polygon{{{1, 1}, {2, 1}, {2, 2}, {1, 2}}},
		geom.Polygon{{{4, 0}, {6, 0}, {6, 2}, {4, 2}}},
		geom.Polygon{{{3, 3}, {5, 3}, {5, 5}, {3, 5}}},
		geom.LineString{{-1, 2}, {5, 2}},
		geom.Point{1.5, 1.5},
	}
	for _, p := range All() {
		for i, a := range geoms {
			for j, b := range geoms {
				direct, err := Evaluate(engine.Build(a), p, b)
				require.NoError(t, err)

				h := engine.Build(b)
				require.NoError(t, h.Prepare())
				reversed, err := Evaluate(h, p.Reverse(), a)
				require.NoError(t, err)

				assert.Equal(t, direct, reversed, "%d %s %d", i, p, j)
			}
		}
	}
}

func TestEvaluate_Unknown(t *testing.T) {
	_, err := Evaluate(engine.Build(geom.Point{0, 0}), Predicate(42), geom.Point{0, 0})
	assert.ErrorIs(t, err, ErrUnknownPredicate)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Predicate
		wantErr bool
	}{
		{name: "name", input: "within", want: Within},
		{name: "mixed case", input: "Touches", want: Touches},
		{name: "index", input: "1", want: Contains},
		{name: "padded index", input: " 7 ", want: Crosses},
		{name: "unknown name", input: "near", wantErr: true},
		{name: "index out of range", input: "8", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPredicate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAll(t *testing.T) {
	got, err := ParseAll([]string{"touches", "within", "4"})
	require.NoError(t, err)
	assert.Equal(t, []Predicate{Touches, Within}, got)

	_, err = ParseAll(nil)
	assert.ErrorIs(t, err, ErrNoPredicates)
}

func TestPredicate_Text(t *testing.T) {
	var p Predicate
	require.NoError(t, p.UnmarshalText([]byte("overlaps")))
	assert.Equal(t, Overlaps, p)
	text, err := p.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "overlaps", string(text))
	assert.Equal(t, "predicate(9)", Predicate(9).String())
}
