package gpkg

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"

	"github.com/pdok/overlay/feature"
)

const DefaultPageSize = 1000

// Sink writes features to a new feature table, pagesize features per
// transaction. Close must be called to write the last page.
type Sink struct {
	table    Table
	pagesize int
	handle   *gpkg.Handle
	features []feature.Feature
	ext      *geom.Extent
	written  int
}

// CreateSink creates table name (geometry column "geom", primary key "fid")
// with the given attribute schema and returns a sink writing to it.
func (g *Geopackage) CreateSink(name string, schema feature.Schema, crs feature.CRS, geometryType string, pagesize int) (*Sink, error) {
	if pagesize <= 0 {
		pagesize = DefaultPageSize
	}
	t := Table{
		Name:    name,
		gcolumn: "geom",
		gtype:   strings.ToUpper(geometryType),
		srs: gpkg.SpatialReferenceSystem{
			Name:                   crs.Name,
			ID:                     crs.SRSID,
			Organization:           "EPSG",
			OrganizationCoordsysID: crs.SRSID,
			Definition:             crs.Definition,
			Description:            crs.Name,
		},
		columns: []column{{name: "fid", ctype: "INTEGER", notnull: 1, pk: 1}},
	}
	for i, field := range schema {
		t.columns = append(t.columns, column{cid: i + 1, name: field.Name, ctype: field.Type})
	}
	t.columns = append(t.columns, column{cid: len(t.columns), name: t.gcolumn, ctype: strings.ToUpper(geometryType)})

	if crs.SRSID > 0 {
		if t.srs.Name == "" {
			t.srs.Name = crs.String()
		}
		if err := g.handle.UpdateSRS(t.srs); err != nil {
			return nil, fmt.Errorf("error registering %s: %w", crs, err)
		}
	}
	if err := buildTable(g.handle, t); err != nil {
		return nil, err
	}
	return &Sink{table: t, pagesize: pagesize, handle: g.handle}, nil
}

// AddFeature buffers f and writes a page when the buffer is full. A feature
// keeps its id unless hint is RegenerateID or the id is not positive.
func (s *Sink) AddFeature(f feature.Feature, hint feature.InsertHint) error {
	if hint == feature.RegenerateID {
		f.ID = 0
	}
	s.features = append(s.features, f)
	if len(s.features)%s.pagesize == 0 {
		err := s.writeFeatures(s.features)
		s.features = nil
		return err
	}
	return nil
}

// Written returns the number of features committed so far.
func (s *Sink) Written() int {
	return s.written
}

// Close writes the remaining features and updates the extent of the table.
func (s *Sink) Close() error {
	if err := s.writeFeatures(s.features); err != nil {
		return err
	}
	s.features = nil
	if s.ext == nil {
		return nil
	}
	if err := s.handle.UpdateGeometryExtent(s.table.Name, s.ext); err != nil {
		return fmt.Errorf("failed to update new extent: %w", err)
	}
	return nil
}

func (s *Sink) writeFeatures(features []feature.Feature) error {
	if len(features) == 0 {
		return nil
	}
	tx, err := s.handle.Begin()
	if err != nil {
		return fmt.Errorf("could not start a transaction: %w", err)
	}

	stmt, err := tx.Prepare(s.table.insertSQL())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("could not prepare a statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range features {
		var fid interface{}
		if f.ID > 0 {
			fid = int64(f.ID)
		}
		data := append([]interface{}{fid}, f.Attributes...)

		var sb interface{}
		if f.Geometry != nil {
			sb, err = gpkg.NewBinary(int32(s.table.srs.ID), f.Geometry)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("could not create a binary geometry for fid %d: %w", f.ID, err)
			}
			s.extend(f.Geometry)
		}
		data = append(data, sb)

		if _, err = stmt.Exec(data...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("could not insert fid %v: %w", fid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit %d features: %w", len(features), err)
	}
	s.written += len(features)
	return nil
}

func (s *Sink) extend(g geom.Geometry) {
	if s.ext == nil {
		ext, err := geom.NewExtentFromGeometry(g)
		if err != nil {
			log.Println("Failed to create new extent:", err)
			return
		}
		s.ext = ext
		return
	}
	if err := s.ext.AddGeometry(g); err != nil {
		log.Println("Failed to extend extent:", err)
	}
}

// buildTable creates a given destination table with the necessary gpkg_ information
func buildTable(h *gpkg.Handle, t Table) error {
	if _, err := h.Exec(t.createSQL()); err != nil {
		return fmt.Errorf("error building table in target GeoPackage: %w", err)
	}

	err := h.AddGeometryTable(gpkg.TableDescription{
		Name:          t.Name,
		ShortName:     t.Name,
		Description:   t.Name,
		GeometryField: t.gcolumn,
		GeometryType:  geometryTypeFromString(t.gtype),
		SRS:           int32(t.srs.ID),
		//
		Z: gpkg.Prohibited,
		M: gpkg.Prohibited,
	})
	if err != nil {
		return fmt.Errorf("error adding geometry table in target GeoPackage: %w", err)
	}
	return nil
}
