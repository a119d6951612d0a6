// Package job reads the JSON description of one overlay operation.
package job

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"

	"github.com/pdok/overlay/predicate"
)

const (
	Extract  = "extract"
	Select   = "select"
	Clip     = "clip"
	Dissolve = "dissolve"
	Collect  = "collect"
)

// Layer points to a feature table: a GeoPackage table or a shapefile.
type Layer struct {
	Path string `validate:"required" json:"path"`
	// Table selects the GeoPackage table, may be left out when there is only one
	Table string `json:"table,omitempty"`
}

type Job struct {
	Operation string `validate:"required,oneof=extract select clip dissolve collect" json:"operation"`
	Input     Layer  `validate:"required" json:"input"`
	// Reference holds the reference features of extract and select and
	// the clip features of clip
	Reference *Layer `validate:"omitnil" json:"reference,omitempty"`
	// Output is required for every operation except select
	Output    *Layer `validate:"omitnil" json:"output,omitempty"`
	Overwrite bool   `json:"overwrite,omitempty"`
	PageSize  int    `default:"1000" validate:"gt=0" json:"pageSize"`

	// Predicates accepts names or indices, see predicate.Parse
	Predicates      []predicate.Predicate `json:"-"`
	SelectBehaviour string                `default:"new" validate:"oneof=new add intersect remove" json:"selectBehaviour"`
	// Selection is the current selection select combines its matches with
	Selection []int64 `json:"selection,omitempty"`

	Fields         []string `json:"fields,omitempty"`
	SortByKey      bool     `json:"sortByKey,omitempty"`
	MaxQueueLength int      `default:"10000" validate:"gte=0" json:"maxQueueLength"`
}

// Load reads and validates the job file at path.
func Load(path string) (Job, error) {
	var j Job
	data, err := os.ReadFile(path)
	if err != nil {
		return j, err
	}
	if err = json.Unmarshal(data, &j); err != nil {
		return j, fmt.Errorf("invalid job %s: %w", path, err)
	}
	return j, nil
}

func (j *Job) UnmarshalJSON(data []byte) error {
	err := defaults.Set(j)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, j, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	if rawPredicates, ok := specials["predicates"]; ok {
		j.Predicates, err = unmarshalPredicates(rawPredicates)
		if err != nil {
			return err
		}
	}

	return j.Validate()
}

// Validate checks the field rules and the rules that depend on the operation.
func (j *Job) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(j); err != nil {
		return err
	}
	switch j.Operation {
	case Extract, Select:
		if len(j.Predicates) == 0 {
			return fmt.Errorf(`%s: %w`, j.Operation, predicate.ErrNoPredicates)
		}
		fallthrough
	case Clip:
		if j.Reference == nil {
			return fmt.Errorf(`%s: missing key "reference"`, j.Operation)
		}
	}
	if j.Operation != Select && j.Output == nil {
		return fmt.Errorf(`%s: missing key "output"`, j.Operation)
	}
	return nil
}

func unmarshalPredicates(rawPredicates interface{}) ([]predicate.Predicate, error) {
	rawList, ok := rawPredicates.([]interface{})
	if !ok {
		return nil, fmt.Errorf(`"predicates" should be an array`)
	}
	names := make([]string, len(rawList))
	for i, raw := range rawList {
		switch v := raw.(type) {
		case string:
			names[i] = v
		case float64:
			names[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, fmt.Errorf(`predicate should be a name or an index, not a %T`, raw)
		}
	}
	return predicate.ParseAll(names)
}
