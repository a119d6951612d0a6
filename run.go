package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/sirupsen/logrus"

	"github.com/pdok/overlay/clip"
	"github.com/pdok/overlay/dissolve"
	"github.com/pdok/overlay/engine"
	"github.com/pdok/overlay/feature"
	"github.com/pdok/overlay/gpkg"
	"github.com/pdok/overlay/job"
	"github.com/pdok/overlay/mapslicehelp"
	"github.com/pdok/overlay/processing"
	"github.com/pdok/overlay/spatialjoin"
)

// execute runs one validated job. Selections are printed to out.
func execute(ctx context.Context, j job.Job, logger logrus.FieldLogger, out io.Writer) error {
	input, err := openLayer(j.Input)
	if err != nil {
		return err
	}
	log.Printf("  read %d features from %s", input.Count(), input.name)

	var reference layer
	if j.Reference != nil {
		if reference, err = openLayer(*j.Reference); err != nil {
			return err
		}
		log.Printf("  read %d features from %s", reference.Count(), reference.name)
	}

	fb := processing.NewLogFeedback(ctx, logger, j.Operation)

	if j.Operation == job.Select {
		behaviour, err := spatialjoin.ParseBehaviour(j.SelectBehaviour)
		if err != nil {
			return err
		}
		current := mapslicehelp.NewSet[feature.ID]()
		for _, id := range j.Selection {
			current.Add(feature.ID(id))
		}
		selected, err := spatialjoin.SelectByLocation(input, reference, j.Predicates, behaviour, current, fb)
		if err != nil {
			return err
		}
		ids := mapslicehelp.Sorted(selected)
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		log.Printf("%s finished, %d features selected", j.Operation, len(ids))
		return nil
	}

	geometryType := input.geometryType
	if j.Operation != job.Extract {
		geometryType = gpkg.MultiType(geometryType)
	}
	sink, err := createSink(*j.Output, input, geometryType, j.PageSize, j.Overwrite)
	if err != nil {
		return err
	}

	var counts processing.Counts
	opts := dissolve.Options{Fields: j.Fields, SortByKey: j.SortByKey}
	switch j.Operation {
	case job.Extract:
		counts, err = spatialjoin.ExtractByLocation(input, reference, j.Predicates, sink, fb)
	case job.Clip:
		counts, err = clip.Clip(input, reference, sink, fb)
	case job.Dissolve:
		counts, err = dissolve.Aggregate(input, opts, engine.UnaryUnion, j.MaxQueueLength, sink, fb)
	case job.Collect:
		counts, err = dissolve.Collect(input, opts, sink, fb)
	default:
		err = fmt.Errorf("unknown operation %q", j.Operation)
	}
	if closeErr := sink.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	counts.Log(j.Operation)
	if fb.Errors() > 0 {
		log.Printf("    %d feature errors were reported", fb.Errors())
	}
	if fb.IsCanceled() {
		log.Printf("%s was canceled at %.1f%%, the output is incomplete (%d features written)", j.Operation, fb.Progress(), sink.Written())
	}
	return nil
}
