// Package feature holds the feature model shared by all operations: features
// with an optional geometry and ordered attributes, the sources they are
// read from and the sinks they are written to.
package feature

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-spatial/geom"

	"github.com/pdok/overlay/mapslicehelp"
)

// ID identifies a feature within one collection.
type ID int64

type Feature struct {
	ID         ID
	Geometry   geom.Geometry
	Attributes []interface{}
}

// HasGeometry reports whether the feature has a (possibly empty) geometry.
func (f Feature) HasGeometry() bool {
	return f.Geometry != nil
}

// WithGeometry returns a copy of f with geometry g.
func (f Feature) WithGeometry(g geom.Geometry) Feature {
	f.Geometry = g
	return f
}

// WithAttributes returns a copy of f with the given attributes.
func (f Feature) WithAttributes(attributes []interface{}) Feature {
	f.Attributes = attributes
	return f
}

// Field describes one attribute column.
type Field struct {
	Name string
	Type string
}

type Schema []Field

// Lookup returns the index of the named field (case insensitive), -1 when absent.
func (s Schema) Lookup(name string) int {
	for i, f := range s {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Indices resolves field names, failing on the first unknown one.
func (s Schema) Indices(names []string) ([]int, error) {
	indices := make([]int, len(names))
	for i, name := range names {
		idx := s.Lookup(name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownField, name, strings.Join(s.Names(), ", "))
		}
		indices[i] = idx
	}
	return indices, nil
}

// CRS is a coordinate reference system. Definition is PROJ.4 or WKT text.
type CRS struct {
	SRSID      int
	Name       string
	Definition string
}

// Equal reports whether both refer to the same system, by id when both have
// one and by definition otherwise.
func (c CRS) Equal(o CRS) bool {
	if c.SRSID > 0 && o.SRSID > 0 {
		return c.SRSID == o.SRSID
	}
	return c.Definition == o.Definition
}

func (c CRS) String() string {
	if c.Name != "" {
		return fmt.Sprintf("%s (%d)", c.Name, c.SRSID)
	}
	return fmt.Sprintf("srs %d", c.SRSID)
}

// Request narrows what a source returns. The zero value returns everything.
type Request struct {
	// Extent only returns features whose bounding box intersects it.
	Extent *geom.Extent
	// IDs only returns the listed features when not nil.
	IDs mapslicehelp.Set[ID]
	// Attributes lists the attribute indices to return: nil means all,
	// an empty slice means none.
	Attributes []int
	// NoGeometry drops the geometries from the returned features.
	NoGeometry bool
	// DestinationCRS reprojects the geometries (and interprets Extent) in this system.
	DestinationCRS *CRS
}

// NoAttributes is an empty attribute subset.
func NoAttributes() []int {
	return []int{}
}

type Iterator interface {
	Next() (Feature, bool)
	// Err returns the error that ended the iteration early, if any.
	Err() error
}

type Source interface {
	Schema() Schema
	CRS() CRS
	// Count returns the number of features, negative when unknown.
	Count() int
	IDs() []ID
	Features(Request) Iterator
}

// InsertHint tells a sink how a feature is going to be used after insertion.
type InsertHint int

const (
	FastInsert InsertHint = iota
	RegenerateID
)

type Sink interface {
	AddFeature(Feature, InsertHint) error
}

// AttributeKey is the ordered list of values of the grouping fields of a feature.
type AttributeKey []interface{}

// KeyOf picks the values at the given indices.
func KeyOf(f Feature, indices []int) AttributeKey {
	key := make(AttributeKey, len(indices))
	for i, idx := range indices {
		if idx < len(f.Attributes) {
			key[i] = f.Attributes[idx]
		}
	}
	return key
}

// String renders the key canonically: keys are equal when their strings are.
// Every value is quoted so no value can contain the separator.
func (k AttributeKey) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = strconv.Quote(fmt.Sprintf("%T:%v", v, v))
	}
	return strings.Join(parts, ",")
}

// SliceIterator iterates over a fixed list of features.
type SliceIterator struct {
	features []Feature
	pos      int
	err      error
}

func NewSliceIterator(features []Feature) *SliceIterator {
	return &SliceIterator{features: features}
}

// failedIterator returns no features and the given error.
func failedIterator(err error) *SliceIterator {
	return &SliceIterator{err: err}
}

func (it *SliceIterator) Next() (Feature, bool) {
	if it.pos >= len(it.features) {
		return Feature{}, false
	}
	f := it.features[it.pos]
	it.pos++
	return f, true
}

func (it *SliceIterator) Err() error {
	return it.err
}

// MemorySink keeps the added features in insertion order.
type MemorySink struct {
	Features []Feature
}

func (s *MemorySink) AddFeature(f Feature, _ InsertHint) error {
	s.Features = append(s.Features, f)
	return nil
}

func (s *MemorySink) IDs() []ID {
	ids := make([]ID, len(s.Features))
	for i, f := range s.Features {
		ids[i] = f.ID
	}
	return ids
}
