package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-spatial/geom"

	"github.com/pdok/overlay/feature"
	"github.com/pdok/overlay/gpkg"
	"github.com/pdok/overlay/job"
	"github.com/pdok/overlay/shapefile"
)

// layer is a feature table loaded in memory.
type layer struct {
	*feature.Collection
	name         string
	geometryType string
}

type outputSink interface {
	feature.Sink
	Written() int
	Close() error
}

func isShapefile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".shp")
}

func baseName(path string) string {
	file := filepath.Base(path)
	return strings.TrimSuffix(file, filepath.Ext(file))
}

func openLayer(l job.Layer) (layer, error) {
	if _, err := os.Stat(l.Path); err != nil {
		return layer{}, fmt.Errorf("error opening %s: %w", l.Path, err)
	}
	if isShapefile(l.Path) {
		c, err := shapefile.Load(l.Path)
		if err != nil {
			return layer{}, err
		}
		return layer{Collection: c, name: baseName(l.Path), geometryType: geometryTypeOf(c)}, nil
	}

	g, err := gpkg.Open(l.Path)
	if err != nil {
		return layer{}, err
	}
	defer g.Close()
	table, err := g.Table(l.Table)
	if err != nil {
		return layer{}, fmt.Errorf("%s: %w", l.Path, err)
	}
	c, err := g.Load(table)
	if err != nil {
		return layer{}, err
	}
	return layer{Collection: c, name: table.Name, geometryType: table.GeometryType()}, nil
}

// geometryTypeOf names the type of the first geometry, shapefiles do not
// declare one per layer.
func geometryTypeOf(c *feature.Collection) string {
	it := c.Features(feature.Request{Attributes: feature.NoAttributes()})
	for {
		f, ok := it.Next()
		if !ok {
			return "GEOMETRY"
		}
		switch f.Geometry.(type) {
		case nil:
			continue
		case geom.Point, *geom.Point:
			return "POINT"
		case geom.MultiPoint, *geom.MultiPoint:
			return "MULTIPOINT"
		case geom.LineString, *geom.LineString:
			return "LINESTRING"
		case geom.MultiLineString, *geom.MultiLineString:
			return "MULTILINESTRING"
		case geom.Polygon, *geom.Polygon:
			return "POLYGON"
		case geom.MultiPolygon, *geom.MultiPolygon:
			return "MULTIPOLYGON"
		default:
			return "GEOMETRY"
		}
	}
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	var pathError *os.PathError
	if err != nil && !(errors.As(err, &pathError) && errors.Is(pathError.Err, syscall.ENOENT)) {
		return fmt.Errorf("could not remove target file: %w", err)
	}
	return nil
}

// createSink creates the output table with the schema and CRS of input.
func createSink(l job.Layer, input layer, geometryType string, pagesize int, overwrite bool) (outputSink, error) {
	if isShapefile(l.Path) {
		base := strings.TrimSuffix(l.Path, filepath.Ext(l.Path))
		if overwrite {
			for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
				if err := removeIfExists(base + ext); err != nil {
					return nil, err
				}
			}
		} else if _, err := os.Stat(l.Path); err == nil {
			return nil, fmt.Errorf("%s already exists, use --%s to replace it", l.Path, OVERWRITE)
		}
		return shapefile.Create(l.Path, input.Schema(), input.CRS(), geometryType)
	}

	if overwrite {
		if err := removeIfExists(l.Path); err != nil {
			return nil, err
		}
	}
	g, err := gpkg.Open(l.Path)
	if err != nil {
		return nil, err
	}
	name := l.Table
	if name == "" {
		name = input.name
	}
	sink, err := g.CreateSink(name, input.Schema(), input.CRS(), geometryType, pagesize)
	if err != nil {
		g.Close()
		return nil, err
	}
	return gpkgSink{Sink: sink, g: g}, nil
}

type gpkgSink struct {
	*gpkg.Sink
	g *gpkg.Geopackage
}

func (s gpkgSink) Close() error {
	if err := s.Sink.Close(); err != nil {
		s.g.Close()
		return err
	}
	return s.g.Close()
}
