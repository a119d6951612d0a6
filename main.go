package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/pdok/overlay/feature"
	"github.com/pdok/overlay/gpkg"
	"github.com/pdok/overlay/job"
	"github.com/pdok/overlay/predicate"
	"github.com/pdok/overlay/shapefile"
)

const INPUT string = `input`
const INPUTTABLE string = `inputTable`
const REFERENCE string = `reference`
const REFERENCETABLE string = `referenceTable`
const OUTPUT string = `output`
const OUTPUTTABLE string = `outputTable`
const OVERWRITE string = `overwrite`
const PAGESIZE string = `pagesize`
const PREDICATES string = `predicates`
const BEHAVIOUR string = `selectBehaviour`
const SELECTION string = `selection`
const FIELDS string = `fields`
const SORTBYKEY string = `sortByKey`
const MAXQUEUELENGTH string = `maxQueueLength`
const JOB string = `job`
const VERBOSE string = `verbose`

func stringFlag(name, alias, usage string, required bool) *cli.StringFlag {
	f := &cli.StringFlag{
		Name:     name,
		Usage:    usage,
		Required: required,
		EnvVars:  []string{strcase.ToScreamingSnake(name)},
	}
	if alias != "" {
		f.Aliases = []string{alias}
	}
	return f
}

func inputFlags() []cli.Flag {
	return []cli.Flag{
		stringFlag(INPUT, "i", "Input GPKG or shapefile", true),
		stringFlag(INPUTTABLE, "it", "Table of the input GPKG, may be left out when it has only one", false),
	}
}

func referenceFlags(usage string) []cli.Flag {
	return []cli.Flag{
		stringFlag(REFERENCE, "r", usage, true),
		stringFlag(REFERENCETABLE, "rt", "Table of the reference GPKG", false),
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		stringFlag(OUTPUT, "o", "Output GPKG or shapefile", true),
		stringFlag(OUTPUTTABLE, "ot", "Table to create in the output GPKG, defaults to the input table name", false),
		&cli.BoolFlag{
			Name:    OVERWRITE,
			Aliases: []string{"w"},
			Usage:   "Overwrite the output file if it exists",
			EnvVars: []string{strcase.ToScreamingSnake(OVERWRITE)},
		},
		&cli.IntFlag{
			Name:    PAGESIZE,
			Aliases: []string{"p"},
			Usage:   "Page Size, how many features are written per transaction to a target GPKG",
			Value:   gpkg.DefaultPageSize,
			EnvVars: []string{strcase.ToScreamingSnake(PAGESIZE)},
		},
	}
}

func predicateFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:     PREDICATES,
		Aliases:  []string{"pr"},
		Usage:    `Spatial predicates by name or index, a feature matches when one holds. One of: ` + strings.Join(predicateNames(), ", "),
		Required: true,
		EnvVars:  []string{strcase.ToScreamingSnake(PREDICATES)},
	}
}

func groupingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    FIELDS,
			Aliases: []string{"f"},
			Usage:   "Fields to group by, one output feature per distinct combination of values",
			EnvVars: []string{strcase.ToScreamingSnake(FIELDS)},
		},
		&cli.BoolFlag{
			Name:    SORTBYKEY,
			Usage:   "Write the groups ordered by their values instead of in the order they are first read",
			EnvVars: []string{strcase.ToScreamingSnake(SORTBYKEY)},
		},
	}
}

func predicateNames() []string {
	var names []string
	for _, p := range predicate.All() {
		names = append(names, p.String())
	}
	return names
}

func layerFromFlags(c *cli.Context, path, table string) *job.Layer {
	if c.String(path) == "" {
		return nil
	}
	return &job.Layer{Path: c.String(path), Table: c.String(table)}
}

// jobFromFlags builds the same job a job file would describe.
func jobFromFlags(c *cli.Context, operation string) (job.Job, error) {
	j := job.Job{
		Operation:       operation,
		Input:           job.Layer{Path: c.String(INPUT), Table: c.String(INPUTTABLE)},
		Reference:       layerFromFlags(c, REFERENCE, REFERENCETABLE),
		Output:          layerFromFlags(c, OUTPUT, OUTPUTTABLE),
		Overwrite:       c.Bool(OVERWRITE),
		PageSize:        c.Int(PAGESIZE),
		SelectBehaviour: c.String(BEHAVIOUR),
		Selection:       c.Int64Slice(SELECTION),
		Fields:          c.StringSlice(FIELDS),
		SortByKey:       c.Bool(SORTBYKEY),
		MaxQueueLength:  c.Int(MAXQUEUELENGTH),
	}
	if j.PageSize == 0 {
		j.PageSize = gpkg.DefaultPageSize
	}
	if j.SelectBehaviour == "" {
		j.SelectBehaviour = "new"
	}
	if c.IsSet(PREDICATES) {
		var err error
		if j.Predicates, err = predicate.ParseAll(c.StringSlice(PREDICATES)); err != nil {
			return j, err
		}
	}
	return j, j.Validate()
}

func newLogger(c *cli.Context) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if c.Bool(VERBOSE) {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func operationAction(operation string) cli.ActionFunc {
	return func(c *cli.Context) error {
		j, err := jobFromFlags(c, operation)
		if err != nil {
			return err
		}
		return runJob(c, j)
	}
}

func runJob(c *cli.Context, j job.Job) error {
	log.Printf("=== start %s ===", j.Operation)
	if err := execute(c.Context, j, newLogger(c), c.App.Writer); err != nil {
		return err
	}
	log.Printf("=== done %s ===", j.Operation)
	return nil
}

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "overlay"
	app.Usage = "A Golang vector overlay application: spatial joins, clipping and dissolving of feature tables"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    VERBOSE,
			Aliases: []string{"v"},
			Usage:   "Log progress",
			EnvVars: []string{strcase.ToScreamingSnake(VERBOSE)},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:   job.Extract,
			Usage:  "Copy the input features that relate to a reference feature by one of the predicates",
			Flags:  concat(inputFlags(), referenceFlags("Reference GPKG or shapefile"), outputFlags(), []cli.Flag{predicateFlag()}),
			Action: operationAction(job.Extract),
		},
		{
			Name:  job.Select,
			Usage: "Print the ids of the input features that relate to a reference feature by one of the predicates",
			Flags: concat(inputFlags(), referenceFlags("Reference GPKG or shapefile"), []cli.Flag{
				predicateFlag(),
				stringFlag(BEHAVIOUR, "b", "How to combine the matches with --selection: new, add, intersect or remove", false),
				&cli.Int64SliceFlag{
					Name:    SELECTION,
					Aliases: []string{"s"},
					Usage:   "Ids of the current selection",
					EnvVars: []string{strcase.ToScreamingSnake(SELECTION)},
				},
			}),
			Action: operationAction(job.Select),
		},
		{
			Name:   job.Clip,
			Usage:  "Cut the input features to the area covered by the clip features",
			Flags:  concat(inputFlags(), referenceFlags("Clip GPKG or shapefile"), outputFlags()),
			Action: operationAction(job.Clip),
		},
		{
			Name:  job.Dissolve,
			Usage: "Union the input geometries, all of them or per group",
			Flags: concat(inputFlags(), outputFlags(), groupingFlags(), []cli.Flag{
				&cli.IntFlag{
					Name:    MAXQUEUELENGTH,
					Usage:   "Number of geometries collected before they are unioned, 0 for no limit",
					Value:   10000,
					EnvVars: []string{strcase.ToScreamingSnake(MAXQUEUELENGTH)},
				},
			}),
			Action: operationAction(job.Dissolve),
		},
		{
			Name:   job.Collect,
			Usage:  "Collect the input geometries into multi geometries, all of them or per group",
			Flags:  concat(inputFlags(), outputFlags(), groupingFlags()),
			Action: operationAction(job.Collect),
		},
		{
			Name:      "info",
			Usage:     "Describe the tables of a GPKG or a shapefile",
			ArgsUsage: "<file>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return fmt.Errorf("expected one file, got %d", c.NArg())
				}
				return info(c, c.Args().First())
			},
		},
		{
			Name:  "run",
			Usage: "Run the operation described in a JSON job file",
			Flags: []cli.Flag{stringFlag(JOB, "j", "JSON job file", true)},
			Action: func(c *cli.Context) error {
				j, err := job.Load(c.String(JOB))
				if err != nil {
					return err
				}
				return runJob(c, j)
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func concat(flagSets ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, set := range flagSets {
		flags = append(flags, set...)
	}
	return flags
}

func info(c *cli.Context, path string) error {
	out := c.App.Writer
	if isShapefile(path) {
		collection, err := shapefile.Load(path)
		if err != nil {
			return err
		}
		printLayer(c, baseName(path), geometryTypeOf(collection), collection.CRS(), collection.Schema(), collection.Count())
		if ext := collection.Extent(); ext != nil {
			fmt.Fprintf(out, "  extent: %v\n", *ext)
		}
		return nil
	}

	g, err := gpkg.Open(path)
	if err != nil {
		return err
	}
	defer g.Close()
	infos, err := g.Info()
	if err != nil {
		return err
	}
	for _, i := range infos {
		printLayer(c, i.Table.Name, i.Table.GeometryType(), i.Table.CRS(), i.Table.Schema(), i.Count)
		if i.Extent != nil {
			fmt.Fprintf(out, "  extent: %v\n", *i.Extent)
		}
	}
	return nil
}

func printLayer(c *cli.Context, name, geometryType string, crs feature.CRS, schema feature.Schema, count int) {
	out := c.App.Writer
	fmt.Fprintf(out, "%s (%s)\n", name, geometryType)
	fmt.Fprintf(out, "  crs: %s\n", crs)
	fmt.Fprintf(out, "  features: %d\n", count)
	for _, f := range schema {
		fmt.Fprintf(out, "  %s: %s\n", f.Name, f.Type)
	}
}
