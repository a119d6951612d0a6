// Package processing takes care of the logistics around walking a feature
// source: progress, cancellation and the counting of what happened.
// Not the processing operation(s) itself.
package processing

import (
	"log"
	"math"

	"github.com/pdok/overlay/feature"
)

// Step returns the progress percentage that one unit of work adds: 100/total,
// or one percent when the total is unknown.
func Step(total int) float64 {
	if total > 0 {
		return 100. / float64(total)
	}
	return 1.
}

// Progress returns the percentage after handling unit i (0-based) of total.
func Progress(i int, total int) float64 {
	return math.Min(float64(i)*Step(total), 100.)
}

// Stream calls fn for every feature of it, reporting progress after each
// feature. Before each feature the feedback is checked for cancellation; a
// canceled stream stops without error and reports stopped. An error from fn
// or from the iterator ends the stream.
func Stream(it feature.Iterator, total int, fb Feedback, fn func(i int, f feature.Feature) error) (handled int, stopped bool, err error) {
	for {
		if fb.IsCanceled() {
			return handled, true, nil
		}
		f, ok := it.Next()
		if !ok {
			break
		}
		if err = fn(handled, f); err != nil {
			return handled, false, err
		}
		fb.SetProgress(Progress(handled, total))
		handled++
	}
	return handled, false, it.Err()
}

// Counts tracks what happened to the features of one operation.
type Counts struct {
	Read    int
	Written int
	Skipped int
	Failed  int
}

// Log prints the counts in the same layout for every operation.
func (c Counts) Log(operation string) {
	log.Printf("%s finished", operation)
	log.Printf("    total features: %d", c.Read)
	if c.Skipped > 0 {
		log.Printf("           skipped: %d", c.Skipped)
	}
	if c.Failed > 0 {
		log.Printf("            failed: %d", c.Failed)
	}
	log.Printf("           written: %d", c.Written)
}
