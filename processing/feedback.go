package processing

import (
	"context"
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/sirupsen/logrus"

	"github.com/pdok/overlay/feature"
	"github.com/pdok/overlay/geomhelp"
)

// Feedback receives progress and messages from a running operation and tells
// it when to stop.
type Feedback interface {
	IsCanceled() bool
	SetProgress(percent float64)
	PushInfo(msg string)
	ReportError(msg string)
}

// LogFeedback logs to a logrus logger and is canceled together with its context.
type LogFeedback struct {
	ctx      context.Context
	log      logrus.FieldLogger
	progress float64
	errors   int
}

func NewLogFeedback(ctx context.Context, log logrus.FieldLogger, operation string) *LogFeedback {
	return &LogFeedback{
		ctx: ctx,
		log: log.WithField("operation", operation),
	}
}

func (f *LogFeedback) IsCanceled() bool {
	return f.ctx.Err() != nil
}

func (f *LogFeedback) SetProgress(percent float64) {
	f.progress = percent
	f.log.WithField("progress", fmt.Sprintf("%.1f%%", percent)).Debug("progress")
}

func (f *LogFeedback) PushInfo(msg string) {
	f.log.Info(msg)
}

func (f *LogFeedback) ReportError(msg string) {
	f.errors++
	f.log.Warn(msg)
}

// Progress returns the last reported percentage.
func (f *LogFeedback) Progress() float64 {
	return f.progress
}

// Errors returns the number of reported errors.
func (f *LogFeedback) Errors() int {
	return f.errors
}

// WithoutProgress passes everything but progress on to fb, for passes whose
// progress the caller reports itself.
func WithoutProgress(fb Feedback) Feedback {
	return noProgress{fb}
}

type noProgress struct {
	Feedback
}

func (noProgress) SetProgress(float64) {}

// ReportFeatureError reports a failure on a single feature, including a
// shortened rendering of the geometry involved.
func ReportFeatureError(fb Feedback, id feature.ID, g geom.Geometry, err error) {
	fb.ReportError(fmt.Sprintf("feature %d: %v (geometry %s)", id, err, geomhelp.WktMustEncode(g, geomhelp.DefaultWktLength)))
}

// Recorder keeps everything it receives. It cancels itself after
// CancelAfter progress reports when CancelAfter is positive.
type Recorder struct {
	CancelAfter int
	Canceled    bool
	Progress    []float64
	Infos       []string
	Errors      []string
}

func (r *Recorder) IsCanceled() bool {
	if r.CancelAfter > 0 && len(r.Progress) >= r.CancelAfter {
		r.Canceled = true
	}
	return r.Canceled
}

func (r *Recorder) SetProgress(percent float64) {
	r.Progress = append(r.Progress, percent)
}

func (r *Recorder) PushInfo(msg string) {
	r.Infos = append(r.Infos, msg)
}

func (r *Recorder) ReportError(msg string) {
	r.Errors = append(r.Errors, msg)
}
