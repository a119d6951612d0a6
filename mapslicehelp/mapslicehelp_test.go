package mapslicehelp

import (
	"testing"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/stretchr/testify/assert"
)

func TestSet_Subtract(t *testing.T) {
	tests := []struct {
		name  string
		s     Set[int64]
		other Set[int64]
		want  []int64
	}{
		{
			name:  "disjoint",
			s:     NewSet[int64](1, 2, 3),
			other: NewSet[int64](4),
			want:  []int64{1, 2, 3},
		},
		{
			name:  "overlapping",
			s:     NewSet[int64](1, 2, 3),
			other: NewSet[int64](2, 3, 4),
			want:  []int64{1},
		},
		{
			name:  "everything",
			s:     NewSet[int64](1, 2),
			other: NewSet[int64](1, 2),
			want:  []int64{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sorted(tt.s.Subtract(tt.other))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSet_IntersectUnion(t *testing.T) {
	a := NewSet("a", "b", "c")
	b := NewSet("b", "c", "d")
	assert.Equal(t, []string{"b", "c"}, Sorted(a.Intersect(b)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, Sorted(a.Union(b)))
	// operands are left untouched
	assert.Len(t, a, 3)
	assert.Len(t, b, 3)
}

func TestAppendToOrderedMap(t *testing.T) {
	m := orderedmap.New[string, []int]()
	assert.True(t, AppendToOrderedMap(m, "x", 1))
	assert.True(t, AppendToOrderedMap(m, "y", 2))
	assert.False(t, AppendToOrderedMap(m, "x", 3))

	assert.Equal(t, []string{"x", "y"}, OrderedMapKeys(m))
	got, _ := m.Get("x")
	assert.Equal(t, []int{1, 3}, got)
}
