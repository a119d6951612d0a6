// Package predicate defines the closed set of spatial predicates used to
// match features against each other.
package predicate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-spatial/geom"

	"github.com/pdok/overlay/engine"
)

// Predicate is one of the eight named spatial relationships. The numeric
// values are stable and accepted by Parse.
type Predicate int

const (
	Intersects Predicate = iota
	Contains
	Disjoint
	Equals
	Touches
	Overlaps
	Within
	Crosses
)

var ErrNoPredicates = errors.New("at least one predicate is required")
var ErrUnknownPredicate = errors.New("unknown predicate")

var names = [...]string{
	Intersects: "intersects",
	Contains:   "contains",
	Disjoint:   "disjoint",
	Equals:     "equals",
	Touches:    "touches",
	Overlaps:   "overlaps",
	Within:     "within",
	Crosses:    "crosses",
}

// All lists every predicate in index order.
func All() []Predicate {
	return []Predicate{Intersects, Contains, Disjoint, Equals, Touches, Overlaps, Within, Crosses}
}

func (p Predicate) Valid() bool {
	return p >= Intersects && p <= Crosses
}

func (p Predicate) String() string {
	if !p.Valid() {
		return "predicate(" + strconv.Itoa(int(p)) + ")"
	}
	return names[p]
}

// Reverse swaps the roles of the operands: a Contains b holds exactly when
// b Within a. All other predicates are symmetric.
func (p Predicate) Reverse() Predicate {
	switch p {
	case Contains:
		return Within
	case Within:
		return Contains
	default:
		return p
	}
}

// Evaluate tests "base p g" with the base geometry held by h.
func Evaluate(h *engine.Handle, p Predicate, g geom.Geometry) (bool, error) {
	switch p {
	case Intersects:
		return h.Intersects(g)
	case Contains:
		return h.Contains(g)
	case Disjoint:
		return h.Disjoint(g)
	case Equals:
		return h.Equals(g)
	case Touches:
		return h.Touches(g)
	case Overlaps:
		return h.Overlaps(g)
	case Within:
		return h.Within(g)
	case Crosses:
		return h.Crosses(g)
	}
	return false, fmt.Errorf("%w: %d", ErrUnknownPredicate, int(p))
}

// Parse accepts a predicate name (case insensitive) or its index.
func Parse(s string) (Predicate, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		p := Predicate(i)
		if !p.Valid() {
			return 0, fmt.Errorf("%w: index %d", ErrUnknownPredicate, i)
		}
		return p, nil
	}
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return Predicate(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPredicate, s)
}

// ParseAll parses every entry and drops duplicates, keeping the first
// occurrence. An empty result is an error.
func ParseAll(values []string) ([]Predicate, error) {
	var result []Predicate
	seen := map[Predicate]bool{}
	for _, v := range values {
		p, err := Parse(v)
		if err != nil {
			return nil, err
		}
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil, ErrNoPredicates
	}
	return result, nil
}

// MarshalText renders the predicate name.
func (p Predicate) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPredicate, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts what Parse accepts.
func (p *Predicate) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
