// Package shapefile reads ESRI shapefiles into indexed feature collections
// and writes features to new shapefiles.
package shapefile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"

	"github.com/pdok/overlay/feature"
)

const dateLayout = "20060102"

func fieldName(name [11]byte) string {
	b := bytes.Trim(name[:], "\x00")
	if n := bytes.IndexByte(b, 0); n >= 0 {
		b = b[:n]
	}
	return strings.TrimSpace(string(b))
}

func fieldType(f goshp.Field) string {
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			return "INTEGER"
		}
		return "REAL"
	case 'F':
		return "REAL"
	case 'D':
		return "DATE"
	case 'L':
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// shpField maps an attribute column type onto a dBase field.
func shpField(f feature.Field) goshp.Field {
	t := strings.ToUpper(f.Type)
	switch {
	case strings.Contains(t, "INT"):
		return goshp.NumberField(f.Name, 18)
	case strings.Contains(t, "REAL"), strings.Contains(t, "DOUBLE"), strings.Contains(t, "FLOAT"), strings.Contains(t, "NUMERIC"):
		return goshp.FloatField(f.Name, 24, 15)
	case t == "DATE":
		return goshp.DateField(f.Name)
	case t == "BOOLEAN":
		return goshp.StringField(f.Name, 1)
	default:
		return goshp.StringField(f.Name, 254)
	}
}

func parseAttribute(raw string, fieldtype string) (interface{}, error) {
	raw = strings.TrimSpace(strings.Trim(raw, "\x00"))
	if raw == "" {
		return nil, nil
	}
	switch fieldtype {
	case "INTEGER":
		return strconv.ParseInt(raw, 10, 64)
	case "REAL":
		return strconv.ParseFloat(raw, 64)
	case "DATE":
		return time.Parse(dateLayout, raw)
	case "BOOLEAN":
		return strings.ContainsAny(raw, "TtYy"), nil
	}
	return raw, nil
}

// formatAttribute renders v the way the dBase writer accepts it.
func formatAttribute(v interface{}) interface{} {
	switch vv := v.(type) {
	case nil:
		return ""
	case int64:
		return int(vv)
	case int32:
		return int(vv)
	case float32:
		return float64(vv)
	case bool:
		if vv {
			return "T"
		}
		return "F"
	case time.Time:
		return vv.Format(dateLayout)
	case int, float64, string:
		return vv
	default:
		return fmt.Sprint(vv)
	}
}

// Load reads the shapefile into an indexed collection. Features are numbered
// from 1 in file order. The CRS definition is taken from the .prj file when
// there is one.
func Load(file string) (*feature.Collection, error) {
	d, err := shp.NewDecoder(file)
	if err != nil {
		return nil, fmt.Errorf("error opening shapefile %s: %w", file, err)
	}
	defer d.Close()

	var crs feature.CRS
	if prj, err := os.ReadFile(strings.TrimSuffix(file, ".shp") + ".prj"); err == nil {
		if _, err := d.SR(); err != nil {
			return nil, fmt.Errorf("error parsing the projection of %s: %w", file, err)
		}
		crs.Definition = string(prj)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var schema feature.Schema
	var names []string
	for _, f := range d.Fields() {
		name := fieldName(f.Name)
		schema = append(schema, feature.Field{Name: name, Type: fieldType(f)})
		names = append(names, name)
	}
	collection := feature.NewCollection(schema, crs)

	for id := feature.ID(1); ; id++ {
		g, values, more := d.DecodeRowFields(names...)
		if !more || d.Error() != nil {
			break
		}
		f := feature.Feature{ID: id, Attributes: make([]interface{}, len(schema))}
		if f.Geometry, err = toGeometry(g); err != nil {
			return nil, fmt.Errorf("feature %d: %w", id, err)
		}
		for i, field := range schema {
			if f.Attributes[i], err = parseAttribute(values[field.Name], field.Type); err != nil {
				return nil, fmt.Errorf("feature %d, field %s: %w", id, field.Name, err)
			}
		}
		collection.Add(f, feature.FastInsert)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("error reading shapefile %s: %w", file, err)
	}
	return collection, nil
}

// Sink writes features to a new shapefile. Feature ids are not stored.
type Sink struct {
	e       *shp.Encoder
	written int
}

func shapeType(geometryType string) (goshp.ShapeType, error) {
	switch strings.ToUpper(geometryType) {
	case "POINT":
		return goshp.POINT, nil
	case "MULTIPOINT":
		return goshp.MULTIPOINT, nil
	case "LINESTRING", "MULTILINESTRING":
		return goshp.POLYLINE, nil
	case "POLYGON", "MULTIPOLYGON":
		return goshp.POLYGON, nil
	}
	return goshp.NULL, fmt.Errorf("geometry type %s cannot be stored in a shapefile", geometryType)
}

// Create creates (or overwrites) file. A non empty CRS definition is written
// to the .prj file.
func Create(file string, schema feature.Schema, crs feature.CRS, geometryType string) (*Sink, error) {
	t, err := shapeType(geometryType)
	if err != nil {
		return nil, err
	}
	fields := make([]goshp.Field, len(schema))
	for i, f := range schema {
		fields[i] = shpField(f)
	}
	if crs.Definition != "" {
		if err := os.WriteFile(strings.TrimSuffix(file, ".shp")+".prj", []byte(crs.Definition), 0o644); err != nil {
			return nil, err
		}
	}
	e, err := shp.NewEncoderFromFields(file, t, fields...)
	if err != nil {
		return nil, fmt.Errorf("error creating shapefile %s: %w", file, err)
	}
	return &Sink{e: e}, nil
}

func (s *Sink) AddFeature(f feature.Feature, _ feature.InsertHint) error {
	g, err := fromGeometry(f.Geometry)
	if err != nil {
		return fmt.Errorf("feature %d: %w", f.ID, err)
	}
	values := make([]interface{}, len(f.Attributes))
	for i, v := range f.Attributes {
		values[i] = formatAttribute(v)
	}
	if err := s.e.EncodeFields(g, values...); err != nil {
		return fmt.Errorf("feature %d: %w", f.ID, err)
	}
	s.written++
	return nil
}

func (s *Sink) Written() int {
	return s.written
}

func (s *Sink) Close() error {
	s.e.Close()
	return nil
}
