// Package gpkg reads feature tables from a GeoPackage into indexed feature
// collections and writes features to new GeoPackage tables.
package gpkg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"

	"github.com/pdok/overlay/feature"
)

var ErrUnknownTable = errors.New("unknown table")

type column struct {
	cid       int
	name      string
	ctype     string
	notnull   int
	dfltValue *string
	pk        int
}

// Table describes a feature table of a GeoPackage.
type Table struct {
	Name    string
	columns []column
	gcolumn string
	gtype   string
	srs     gpkg.SpatialReferenceSystem
}

// GeometryType returns the declared geometry type name, e.g. MULTIPOLYGON.
func (t Table) GeometryType() string {
	return t.gtype
}

// Schema lists the attribute columns: all columns except the primary key
// and the geometry column.
func (t Table) Schema() feature.Schema {
	var schema feature.Schema
	for _, c := range t.columns {
		if c.pk == 1 || c.name == t.gcolumn {
			continue
		}
		schema = append(schema, feature.Field{Name: c.name, Type: c.ctype})
	}
	return schema
}

func (t Table) CRS() feature.CRS {
	return feature.CRS{SRSID: t.srs.ID, Name: t.srs.Name, Definition: t.srs.Definition}
}

func (t Table) pkColumn() string {
	for _, c := range t.columns {
		if c.pk == 1 {
			return c.name
		}
	}
	return ""
}

// geometryTypeFromString returns the numeric value of a geometry string
func geometryTypeFromString(geometrytype string) gpkg.GeometryType {
	switch strings.ToUpper(geometrytype) {
	case "GEOMETRY":
		return gpkg.Geometry
	case "POINT":
		return gpkg.Point
	case "LINESTRING":
		return gpkg.Linestring
	case "POLYGON":
		return gpkg.Polygon
	case "MULTIPOINT":
		return gpkg.MultiPoint
	case "MULTILINESTRING":
		return gpkg.MultiLinestring
	case "MULTIPOLYGON":
		return gpkg.MultiPolygon
	case "GEOMETRYCOLLECTION":
		return gpkg.GeometryCollection
	default:
		return gpkg.Geometry
	}
}

// MultiType returns the multi variant of a geometry type name.
func MultiType(geometrytype string) string {
	switch t := strings.ToUpper(geometrytype); t {
	case "POINT", "LINESTRING", "POLYGON":
		return "MULTI" + t
	default:
		return t
	}
}

type Geopackage struct {
	handle *gpkg.Handle
}

// Open opens (or creates) the GeoPackage at file.
func Open(file string) (*Geopackage, error) {
	handle, err := gpkg.Open(file)
	if err != nil {
		return nil, fmt.Errorf("error opening GeoPackage %s: %w", file, err)
	}
	return &Geopackage{handle: handle}, nil
}

func (g *Geopackage) Close() error {
	return g.handle.Close()
}

// Tables lists the feature tables registered in gpkg_geometry_columns.
func (g *Geopackage) Tables() ([]Table, error) {
	query := `SELECT table_name, column_name, geometry_type_name, srs_id FROM gpkg_geometry_columns;`
	rows, err := g.handle.Query(query)
	if err != nil {
		return nil, fmt.Errorf("error reading the table information: %w", err)
	}
	defer rows.Close()

	var tables []Table
	var srsIDs []int
	for rows.Next() {
		var t Table
		var srsID int
		if err := rows.Scan(&t.Name, &t.gcolumn, &t.gtype, &srsID); err != nil {
			return nil, fmt.Errorf("error reading the source table information: %w", err)
		}
		t.gtype = strings.ToUpper(t.gtype)
		tables = append(tables, t)
		srsIDs = append(srsIDs, srsID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		if tables[i].columns, err = getTableColumns(g.handle, tables[i].Name); err != nil {
			return nil, err
		}
		if tables[i].srs, err = getSpatialReferenceSystem(g.handle, srsIDs[i]); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

// Table returns the named feature table, or the only one when name is empty.
func (g *Geopackage) Table(name string) (Table, error) {
	tables, err := g.Tables()
	if err != nil {
		return Table{}, err
	}
	if name == "" && len(tables) == 1 {
		return tables[0], nil
	}
	var names []string
	for _, t := range tables {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
		names = append(names, t.Name)
	}
	return Table{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownTable, name, strings.Join(names, ", "))
}

// Load reads all features of t into an indexed collection.
func (g *Geopackage) Load(t Table) (*feature.Collection, error) {
	rows, err := g.handle.Query(t.selectSQL())
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", t.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error reading the columns: %w", err)
	}
	pk := t.pkColumn()
	collection := feature.NewCollection(t.Schema(), t.CRS())

	for rows.Next() {
		vals := make([]interface{}, len(cols))
		valPtrs := make([]interface{}, len(cols))
		for i := 0; i < len(cols); i++ {
			valPtrs[i] = &vals[i]
		}
		if err = rows.Scan(valPtrs...); err != nil {
			return nil, fmt.Errorf("err reading row values: %w", err)
		}

		var f feature.Feature
		for i, colName := range cols {
			switch colName {
			case t.gcolumn:
				raw, ok := vals[i].([]byte)
				if !ok || len(raw) == 0 {
					continue
				}
				wkbgeom, err := gpkg.DecodeGeometry(raw)
				if err != nil {
					return nil, fmt.Errorf("error decoding the geometry of feature %d: %w", f.ID, err)
				}
				f.Geometry = wkbgeom.Geometry
			case pk:
				if id, ok := vals[i].(int64); ok {
					f.ID = feature.ID(id)
				}
			default:
				v, err := attributeValue(vals[i])
				if err != nil {
					return nil, fmt.Errorf("column %s: %w", colName, err)
				}
				f.Attributes = append(f.Attributes, v)
			}
		}
		collection.Add(f, feature.FastInsert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return collection, nil
}

func attributeValue(val interface{}) (interface{}, error) {
	switch v := val.(type) {
	case []uint8:
		asBytes := make([]byte, len(v))
		copy(asBytes, v)
		return string(asBytes), nil
	case int64, float64, time.Time, string, bool, nil:
		return v, nil
	default:
		return nil, fmt.Errorf("unexpected type for sqlite column data: %T", v)
	}
}

// LayerInfo summarizes a feature table.
type LayerInfo struct {
	Table  Table
	Count  int
	Extent *geom.Extent
}

// Info summarizes every feature table of the GeoPackage.
func (g *Geopackage) Info() ([]LayerInfo, error) {
	tables, err := g.Tables()
	if err != nil {
		return nil, err
	}
	infos := make([]LayerInfo, 0, len(tables))
	for _, t := range tables {
		info := LayerInfo{Table: t}
		if err := g.handle.QueryRow(`SELECT COUNT(*) FROM "` + t.Name + `";`).Scan(&info.Count); err != nil {
			return nil, fmt.Errorf("error counting %s: %w", t.Name, err)
		}
		var minX, minY, maxX, maxY *float64
		err := g.handle.QueryRow(`SELECT min_x, min_y, max_x, max_y FROM gpkg_contents WHERE table_name = ?;`, t.Name).
			Scan(&minX, &minY, &maxX, &maxY)
		if err != nil {
			return nil, fmt.Errorf("error reading the extent of %s: %w", t.Name, err)
		}
		if minX != nil && minY != nil && maxX != nil && maxY != nil {
			info.Extent = &geom.Extent{*minX, *minY, *maxX, *maxY}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// createSQL creates a CREATE statement on the given table and column information
// used for creating feature tables in the target Geopackage
func (t Table) createSQL() string {
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%v"`, t.Name)
	var columnparts []string
	for _, column := range t.columns {
		columnpart := `"` + column.name + `" ` + column.ctype
		if column.notnull == 1 {
			columnpart = columnpart + ` NOT NULL`
		}
		if column.pk == 1 {
			columnpart = columnpart + ` PRIMARY KEY AUTOINCREMENT`
		}

		columnparts = append(columnparts, columnpart)
	}

	query := create + `(` + strings.Join(columnparts, `, `) + `);`
	return query
}

// selectSQL build a SELECT statement based on the table and columns
// used for reading the source features
func (t Table) selectSQL() string {
	var csql []string
	for _, c := range t.columns {
		csql = append(csql, `"`+c.name+`"`)
	}
	query := `SELECT ` + strings.Join(csql, `,`) + ` FROM "` + t.Name + `";`
	return query
}

// insertSQL used for writing the features
// build the INSERT statement based on the table and columns,
// the primary key first and the geometry last
func (t Table) insertSQL() string {
	var csql, vsql []string
	if pk := t.pkColumn(); pk != "" {
		csql = append(csql, `"`+pk+`"`)
		vsql = append(vsql, `?`)
	}
	for _, c := range t.columns {
		if c.pk != 1 && c.name != t.gcolumn {
			csql = append(csql, `"`+c.name+`"`)
			vsql = append(vsql, `?`)
		}
	}
	csql = append(csql, `"`+t.gcolumn+`"`)
	vsql = append(vsql, `?`)
	query := `INSERT INTO "` + t.Name + `"(` + strings.Join(csql, `,`) + `) VALUES(` + strings.Join(vsql, `,`) + `)`
	return query
}

// getSpatialReferenceSystem extracts this based on the given SRS id
func getSpatialReferenceSystem(h *gpkg.Handle, id int) (gpkg.SpatialReferenceSystem, error) {
	var srs gpkg.SpatialReferenceSystem
	query := `SELECT srs_name, srs_id, organization, organization_coordsys_id, definition, description FROM gpkg_spatial_ref_sys WHERE srs_id = ?;`

	row := h.QueryRow(query, id)
	var description *string
	err := row.Scan(&srs.Name, &srs.ID, &srs.Organization, &srs.OrganizationCoordsysID, &srs.Definition, &description)
	if err != nil {
		return srs, fmt.Errorf("error reading spatial reference system %d: %w", id, err)
	}
	if description != nil {
		srs.Description = *description
	}
	return srs, nil
}

// getTableColumns collects the column information of a given table
func getTableColumns(h *gpkg.Handle, table string) ([]column, error) {
	var columns []column
	query := `PRAGMA table_info('%v');`
	rows, err := h.Query(fmt.Sprintf(query, table))
	if err != nil {
		return nil, fmt.Errorf("error reading the columns of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var column column
		err := rows.Scan(&column.cid, &column.name, &column.ctype, &column.notnull, &column.dfltValue, &column.pk)
		if err != nil {
			return nil, fmt.Errorf("error getting the column information: %w", err)
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}
