// Package dissolve aggregates the geometries of a feature source, either all
// of them into one feature or grouped by the values of a set of fields.
package dissolve

import (
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/umpc/go-sortedmap"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdok/overlay/engine"
	"github.com/pdok/overlay/feature"
	"github.com/pdok/overlay/mapslicehelp"
	"github.com/pdok/overlay/processing"
)

// DissolveMaxQueueLength is the number of queued geometries after which an
// ungrouped dissolve unions what it has so far.
const DissolveMaxQueueLength = 10000

// Combinator merges a list of geometries into one. It returns nil when there
// is nothing to merge.
type Combinator func([]geom.Geometry) (geom.Geometry, error)

type Options struct {
	// Fields to group by, no fields aggregates everything into one feature.
	Fields []string
	// SortByKey emits the groups ordered by their key instead of in the
	// order their first feature was read.
	SortByKey bool
}

// Dissolve unions the geometries per group.
func Dissolve(source feature.Source, opts Options, sink feature.Sink, fb processing.Feedback) (processing.Counts, error) {
	return Aggregate(source, opts, engine.UnaryUnion, DissolveMaxQueueLength, sink, fb)
}

// Collect gathers the geometries per group into multi geometries.
func Collect(source feature.Source, opts Options, sink feature.Sink, fb processing.Feedback) (processing.Counts, error) {
	return Aggregate(source, opts, engine.Collect, 0, sink, fb)
}

// Aggregate merges the geometries of source with combine. Without grouping
// fields exactly one feature is written, carrying the attributes of the first
// feature read. With grouping fields one feature is written per distinct
// key, carrying the attributes of the first feature with that key.
// A positive maxQueueLength bounds the number of geometries held before an
// intermediate combine, which is only done when aggregating everything.
func Aggregate(source feature.Source, opts Options, combine Combinator, maxQueueLength int, sink feature.Sink, fb processing.Feedback) (processing.Counts, error) {
	if len(opts.Fields) == 0 {
		return aggregateAll(source, combine, maxQueueLength, sink, fb)
	}
	indices, err := source.Schema().Indices(opts.Fields)
	if err != nil {
		return processing.Counts{}, fmt.Errorf("grouping fields: %w", err)
	}
	return aggregateGroups(source, indices, opts.SortByKey, combine, sink, fb)
}

func aggregateAll(source feature.Source, combine Combinator, maxQueueLength int, sink feature.Sink, fb processing.Feedback) (processing.Counts, error) {
	counts := processing.Counts{Read: source.Count()}
	var (
		output feature.Feature
		first  = true
		queue  []geom.Geometry
	)
	_, _, err := processing.Stream(source.Features(feature.Request{}), source.Count(), fb, func(_ int, f feature.Feature) error {
		if first {
			output = f
			first = false
		}
		if !f.HasGeometry() {
			return nil
		}
		queue = append(queue, f.Geometry)
		if maxQueueLength > 0 && len(queue) > maxQueueLength {
			combined, err := combine(queue)
			if err != nil {
				processing.ReportFeatureError(fb, f.ID, f.Geometry, fmt.Errorf("intermediate combine of %d geometries: %w", len(queue), err))
				return nil
			}
			queue = []geom.Geometry{combined}
		}
		return nil
	})
	if err != nil {
		return counts, err
	}

	combined, err := combine(queue)
	if err != nil {
		processing.ReportFeatureError(fb, output.ID, nil, fmt.Errorf("combine %d geometries: %w", len(queue), err))
		counts.Failed++
		combined = nil
	}
	if err := sink.AddFeature(output.WithGeometry(engine.PromoteToMulti(combined)), feature.FastInsert); err != nil {
		return counts, fmt.Errorf("write aggregated feature: %w", err)
	}
	counts.Written++
	return counts, nil
}

func aggregateGroups(source feature.Source, indices []int, sortByKey bool, combine Combinator, sink feature.Sink, fb processing.Feedback) (processing.Counts, error) {
	counts := processing.Counts{Read: source.Count()}
	attributes := orderedmap.New[string, []interface{}]()
	geometries := orderedmap.New[string, []geom.Geometry]()

	// progress is reported per group
	_, stopped, err := processing.Stream(source.Features(feature.Request{}), source.Count(), processing.WithoutProgress(fb), func(_ int, f feature.Feature) error {
		key := feature.KeyOf(f, indices).String()
		if _, present := attributes.Get(key); !present {
			attributes.Set(key, f.Attributes)
		}
		if f.HasGeometry() {
			mapslicehelp.AppendToOrderedMap(geometries, key, f.Geometry)
		}
		return nil
	})
	if err != nil || stopped {
		return counts, err
	}

	keys := mapslicehelp.OrderedMapKeys(attributes)
	if sortByKey {
		keys = sortedKeys(keys)
	}
	for i, key := range keys {
		if fb.IsCanceled() {
			break
		}
		row, _ := attributes.Get(key)
		output := feature.Feature{Attributes: row}
		if geoms, present := geometries.Get(key); present {
			combined, err := combine(geoms)
			if err != nil {
				fb.ReportError(fmt.Sprintf("group %q: combine %d geometries: %v", key, len(geoms), err))
				counts.Failed++
			} else if !engine.IsMultipart(combined) {
				combined = engine.PromoteToMulti(combined)
			}
			output.Geometry = combined
		}
		if err := sink.AddFeature(output, feature.RegenerateID); err != nil {
			return counts, fmt.Errorf("write group %q: %w", key, err)
		}
		counts.Written++
		fb.SetProgress(processing.Progress(i, len(keys)))
	}
	return counts, nil
}

func sortedKeys(keys []string) []string {
	sm := sortedmap.New(len(keys), func(x, y interface{}) bool {
		return x.(string) < y.(string)
	})
	for _, k := range keys {
		sm.Insert(k, k)
	}
	sorted := make([]string, 0, len(keys))
	for _, k := range sm.Keys() {
		sorted = append(sorted, k.(string))
	}
	return sorted
}
