package mapslicehelp

import (
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/exp/constraints"
)

// Set is an unordered set of comparable values.
type Set[T comparable] map[T]struct{}

func NewSet[T comparable](elements ...T) Set[T] {
	s := make(Set[T], len(elements))
	for _, element := range elements {
		s[element] = struct{}{}
	}
	return s
}

func (s Set[T]) Add(element T) {
	s[element] = struct{}{}
}

func (s Set[T]) Remove(element T) {
	delete(s, element)
}

func (s Set[T]) Contains(element T) bool {
	_, ok := s[element]
	return ok
}

// Subtract removes all elements of other from s (in place) and returns s.
func (s Set[T]) Subtract(other Set[T]) Set[T] {
	for element := range other {
		delete(s, element)
	}
	return s
}

// Intersect returns a new set with the elements present in both s and other.
func (s Set[T]) Intersect(other Set[T]) Set[T] {
	r := make(Set[T])
	for element := range s {
		if other.Contains(element) {
			r.Add(element)
		}
	}
	return r
}

// Union returns a new set with the elements of s and other.
func (s Set[T]) Union(other Set[T]) Set[T] {
	r := make(Set[T], len(s)+len(other))
	for element := range s {
		r.Add(element)
	}
	for element := range other {
		r.Add(element)
	}
	return r
}

// Sorted returns the elements in ascending order.
func Sorted[T constraints.Ordered](s Set[T]) []T {
	l := make([]T, 0, len(s))
	for element := range s {
		l = append(l, element)
	}
	slices.Sort(l)
	return l
}

func OrderedMapKeys[K comparable, V any](m *orderedmap.OrderedMap[K, V]) []K {
	l := make([]K, m.Len())
	i := 0
	for p := m.Oldest(); p != nil; p = p.Next() {
		l[i] = p.Key
		i++
	}
	return l
}

// AppendToOrderedMap appends v to the slice stored under k, creating it when k is new.
// Returns true if k was not present before.
func AppendToOrderedMap[K comparable, V any](m *orderedmap.OrderedMap[K, []V], k K, v V) bool {
	existing, present := m.Get(k)
	m.Set(k, append(existing, v))
	return !present
}
