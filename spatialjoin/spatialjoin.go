// Package spatialjoin finds the target features that relate to at least one
// reference feature by at least one of a set of spatial predicates.
package spatialjoin

import (
	"fmt"

	"github.com/pdok/overlay/engine"
	"github.com/pdok/overlay/feature"
	"github.com/pdok/overlay/mapslicehelp"
	"github.com/pdok/overlay/predicate"
	"github.com/pdok/overlay/processing"
)

type Options struct {
	// OnlyIDs is set when the handler only looks at feature ids, so
	// attributes (and for disjoint matches geometries) need not be fetched.
	OnlyIDs bool
}

// Process calls handle once for every target feature for which "target p
// reference" holds for one of the predicates and one of the reference
// features. Every reference geometry is prepared once and tested against the
// targets in its bounding box with the reversed predicate. Disjoint targets
// are handled after all reference features have been seen and only when no
// other predicate matched them.
func Process(target, reference feature.Source, predicates []predicate.Predicate, fb processing.Feedback, opts Options, handle func(feature.Feature) error) error {
	if len(predicates) == 0 {
		return predicate.ErrNoPredicates
	}
	reversed := make([]predicate.Predicate, 0, len(predicates))
	disjoint := false
	for _, p := range predicates {
		if !p.Valid() {
			return fmt.Errorf("%w: %d", predicate.ErrUnknownPredicate, int(p))
		}
		r := p.Reverse()
		if r == predicate.Disjoint {
			disjoint = true
		}
		reversed = append(reversed, r)
	}
	onlyDisjoint := disjoint && len(reversed) == 1

	var disjointSet mapslicehelp.Set[feature.ID]
	if disjoint {
		disjointSet = mapslicehelp.NewSet(target.IDs()...)
	}
	found := mapslicehelp.NewSet[feature.ID]()

	targetCRS := target.CRS()
	references := reference.Features(feature.Request{
		Attributes:     feature.NoAttributes(),
		DestinationCRS: &targetCRS,
	})
	candidateAttributes := []int(nil)
	if opts.OnlyIDs {
		candidateAttributes = feature.NoAttributes()
	}

	_, stopped, err := processing.Stream(references, reference.Count(), fb, func(_ int, ref feature.Feature) error {
		if !ref.HasGeometry() {
			return nil
		}
		extent := engine.Extent(ref.Geometry)
		if extent == nil {
			return nil
		}
		candidates := target.Features(feature.Request{Extent: extent, Attributes: candidateAttributes})

		var h *engine.Handle
		for {
			if fb.IsCanceled() {
				return nil
			}
			candidate, ok := candidates.Next()
			if !ok {
				break
			}
			if found.Contains(candidate.ID) || !candidate.HasGeometry() {
				continue
			}
			if onlyDisjoint && !disjointSet.Contains(candidate.ID) {
				continue
			}
			if h == nil {
				h = engine.Build(ref.Geometry)
				if err := h.Prepare(); err != nil {
					processing.ReportFeatureError(fb, ref.ID, ref.Geometry, err)
					return nil
				}
			}
			for _, p := range reversed {
				if p == predicate.Disjoint {
					intersects, err := h.Intersects(candidate.Geometry)
					if err != nil {
						processing.ReportFeatureError(fb, candidate.ID, candidate.Geometry, err)
						continue
					}
					if intersects {
						disjointSet.Remove(candidate.ID)
					}
					continue
				}
				match, err := predicate.Evaluate(h, p, candidate.Geometry)
				if err != nil {
					processing.ReportFeatureError(fb, candidate.ID, candidate.Geometry, err)
					continue
				}
				if match {
					found.Add(candidate.ID)
					if err := handle(candidate); err != nil {
						return err
					}
					break
				}
			}
		}
		return candidates.Err()
	})
	if err != nil {
		return err
	}
	if stopped || fb.IsCanceled() || !disjoint {
		return nil
	}

	disjointSet.Subtract(found)
	if len(disjointSet) == 0 {
		return nil
	}
	request := feature.Request{IDs: disjointSet}
	if opts.OnlyIDs {
		request.Attributes = feature.NoAttributes()
		request.NoGeometry = true
	}
	remaining := target.Features(request)
	for {
		if fb.IsCanceled() {
			return nil
		}
		f, ok := remaining.Next()
		if !ok {
			break
		}
		if err := handle(f); err != nil {
			return err
		}
	}
	return remaining.Err()
}
