package spatialjoin

import (
	"fmt"
	"strings"

	"github.com/pdok/overlay/feature"
	"github.com/pdok/overlay/mapslicehelp"
	"github.com/pdok/overlay/predicate"
	"github.com/pdok/overlay/processing"
)

// Behaviour decides how matches are merged with an existing selection.
type Behaviour int

const (
	NewSelection Behaviour = iota
	AddToSelection
	IntersectSelection
	RemoveFromSelection
)

var behaviourNames = map[string]Behaviour{
	"new":       NewSelection,
	"add":       AddToSelection,
	"intersect": IntersectSelection,
	"remove":    RemoveFromSelection,
}

func ParseBehaviour(s string) (Behaviour, error) {
	b, ok := behaviourNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown selection behaviour %q, expected one of new, add, intersect, remove", s)
	}
	return b, nil
}

// SelectByLocation returns the selection of target features after merging
// the matches with current according to behaviour. current is not modified.
func SelectByLocation(target, reference feature.Source, predicates []predicate.Predicate, behaviour Behaviour,
	current mapslicehelp.Set[feature.ID], fb processing.Feedback) (mapslicehelp.Set[feature.ID], error) {

	if current == nil {
		current = mapslicehelp.NewSet[feature.ID]()
	}

	var source feature.Source = target
	if behaviour == IntersectSelection {
		// only the selected features can stay selected
		source = subset{Source: target, ids: current}
	}

	matched := mapslicehelp.NewSet[feature.ID]()
	err := Process(source, reference, predicates, fb, Options{OnlyIDs: true}, func(f feature.Feature) error {
		matched.Add(f.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch behaviour {
	case AddToSelection:
		return current.Union(matched), nil
	case IntersectSelection:
		return current.Intersect(matched), nil
	case RemoveFromSelection:
		return current.Union(nil).Subtract(matched), nil
	}
	return matched, nil
}

// ExtractByLocation copies the matching target features unchanged into sink.
func ExtractByLocation(target, reference feature.Source, predicates []predicate.Predicate, sink feature.Sink, fb processing.Feedback) (processing.Counts, error) {
	counts := processing.Counts{Read: target.Count()}
	err := Process(target, reference, predicates, fb, Options{}, func(f feature.Feature) error {
		if err := sink.AddFeature(f, feature.FastInsert); err != nil {
			return fmt.Errorf("write feature %d: %w", f.ID, err)
		}
		counts.Written++
		return nil
	})
	counts.Skipped = counts.Read - counts.Written
	return counts, err
}

// subset restricts a source to a set of ids.
type subset struct {
	feature.Source
	ids mapslicehelp.Set[feature.ID]
}

func (s subset) Count() int {
	return len(s.ids)
}

func (s subset) IDs() []feature.ID {
	var result []feature.ID
	for _, id := range s.Source.IDs() {
		if s.ids.Contains(id) {
			result = append(result, id)
		}
	}
	return result
}

func (s subset) Features(r feature.Request) feature.Iterator {
	if r.IDs == nil {
		r.IDs = s.ids
	} else {
		r.IDs = r.IDs.Intersect(s.ids)
	}
	return s.Source.Features(r)
}
