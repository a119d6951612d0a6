// Package clip restricts the geometries of a feature source to the region
// covered by the features of a second source.
package clip

import (
	"errors"
	"fmt"

	"github.com/go-spatial/geom"

	"github.com/pdok/overlay/engine"
	"github.com/pdok/overlay/feature"
	"github.com/pdok/overlay/mapslicehelp"
	"github.com/pdok/overlay/processing"
)

var ErrEmptyResult = errors.New("clipping resulted in an empty geometry")

// Clip writes every input feature that intersects the clip region to sink,
// with its geometry restricted to that region and its attributes unchanged.
// Output geometries are multi geometries.
func Clip(input, clipSource feature.Source, sink feature.Sink, fb processing.Feedback) (processing.Counts, error) {
	counts := processing.Counts{Read: input.Count()}

	inputCRS := input.CRS()
	clipFeatures := clipSource.Features(feature.Request{
		Attributes:     feature.NoAttributes(),
		DestinationCRS: &inputCRS,
	})
	var clipGeoms []geom.Geometry
	for {
		f, ok := clipFeatures.Next()
		if !ok {
			break
		}
		if f.HasGeometry() && !engine.IsEmpty(f.Geometry) {
			clipGeoms = append(clipGeoms, f.Geometry)
		}
	}
	if err := clipFeatures.Err(); err != nil {
		return counts, fmt.Errorf("read clip features: %w", err)
	}
	if len(clipGeoms) == 0 {
		return counts, nil
	}

	singleClip := len(clipGeoms) == 1
	region := clipGeoms[0]
	if !singleClip {
		fb.PushInfo(fmt.Sprintf("combining %d clip geometries", len(clipGeoms)))
		var err error
		region, err = engine.UnaryUnion(clipGeoms)
		if err != nil {
			return counts, fmt.Errorf("combine clip geometries: %w", err)
		}
		if region == nil {
			return counts, nil
		}
	}
	h := engine.Build(region)
	if err := h.Prepare(); err != nil {
		return counts, fmt.Errorf("prepare clip region: %w", err)
	}

	tested := mapslicehelp.NewSet[feature.ID]()
	for i, clipGeom := range clipGeoms {
		if fb.IsCanceled() {
			break
		}
		candidates := input.Features(feature.Request{Extent: engine.Extent(clipGeom)})
		_, stopped, err := processing.Stream(candidates, -1, processing.WithoutProgress(fb), func(j int, f feature.Feature) error {
			if tested.Contains(f.ID) {
				return nil
			}
			tested.Add(f.ID)
			if singleClip {
				fb.SetProgress(processing.Progress(j, input.Count()))
			}
			if !f.HasGeometry() {
				return nil
			}
			clipped, ok := clipGeometry(h, f, fb, &counts)
			if !ok {
				return nil
			}
			if err := sink.AddFeature(f.WithGeometry(engine.PromoteToMulti(clipped)), feature.FastInsert); err != nil {
				return fmt.Errorf("write feature %d: %w", f.ID, err)
			}
			counts.Written++
			return nil
		})
		if err != nil {
			return counts, err
		}
		if stopped {
			break
		}
		if !singleClip {
			fb.SetProgress(processing.Progress(i+1, len(clipGeoms)))
		}
	}
	counts.Skipped = counts.Read - counts.Written - counts.Failed
	return counts, nil
}

// clipGeometry returns the part of the feature's geometry inside the region
// and whether the feature is to be written at all.
func clipGeometry(region *engine.Handle, f feature.Feature, fb processing.Feedback, counts *processing.Counts) (geom.Geometry, bool) {
	intersects, err := region.Intersects(f.Geometry)
	if err != nil {
		processing.ReportFeatureError(fb, f.ID, f.Geometry, err)
		counts.Failed++
		return nil, false
	}
	if !intersects {
		return nil, false
	}
	contains, err := region.Contains(f.Geometry)
	if err != nil {
		processing.ReportFeatureError(fb, f.ID, f.Geometry, err)
		counts.Failed++
		return nil, false
	}
	if contains {
		return f.Geometry, true
	}

	clipped, err := region.Intersection(f.Geometry)
	if err != nil {
		processing.ReportFeatureError(fb, f.ID, f.Geometry, err)
		counts.Failed++
		return nil, false
	}
	if needsRepair(clipped) {
		repaired, err := Repair(f.Geometry, clipped)
		if err != nil {
			processing.ReportFeatureError(fb, f.ID, f.Geometry, err)
		} else {
			clipped = repaired
		}
	}
	if engine.IsEmpty(clipped) {
		// the feature touches the region, it is still written
		processing.ReportFeatureError(fb, f.ID, f.Geometry, ErrEmptyResult)
	}
	return clipped, true
}

func needsRepair(g geom.Geometry) bool {
	return engine.IsEmpty(g) || engine.IsCollection(g)
}

// Repair rebuilds a degenerate intersection of original as
// (original ∪ intersection) \ (original △ intersection).
func Repair(original, intersection geom.Geometry) (geom.Geometry, error) {
	combined, err := engine.Combine(original, intersection)
	if err != nil {
		return nil, fmt.Errorf("repair combine: %w", err)
	}
	symDiff, err := engine.SymDifference(original, intersection)
	if err != nil {
		return nil, fmt.Errorf("repair symmetric difference: %w", err)
	}
	repaired, err := engine.Difference(combined, symDiff)
	if err != nil {
		return nil, fmt.Errorf("repair difference: %w", err)
	}
	return repaired, nil
}
