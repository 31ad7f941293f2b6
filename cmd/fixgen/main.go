package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	gojson "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/reoring/fixgen"
	"github.com/reoring/fixgen/coverage"
	"github.com/reoring/fixgen/jsonschema"
	"github.com/reoring/fixgen/loader"
	"github.com/reoring/fixgen/metrics"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	_ = godotenv.Load()
	sub := os.Args[1]
	switch sub {
	case "generate":
		generateCmd(os.Args[2:])
	case "coverage":
		coverageCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "fixgen CLI\n\nUsage:\n  fixgen generate -schema file [-count n] [-seed s] [-scenario normal|edge|peak|error] [-config opts.yaml]\n  fixgen coverage -schema file [-mode measure|guided] [-count n] [-seed s] [-dims structure,branches,...] [-json]\n\nEnvironment (also read from .env):\n  FIXGEN_SEED, FIXGEN_COUNT, FIXGEN_SCENARIO, FIXGEN_LOCALE, FIXGEN_CRD_KIND")
}

// common holds the flags shared by every subcommand.
type common struct {
	schema   string
	config   string
	count    int
	seed     uint64
	scenario string
	crdKind  string
	formats  bool
	lax      bool
	verbose  bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.schema, "schema", "", "JSON Schema, OpenAPI or CRD file (JSON or YAML)")
	fs.StringVar(&c.config, "config", "", "options file (YAML or JSON)")
	fs.IntVar(&c.count, "count", 0, "instances per schema root")
	fs.Uint64Var(&c.seed, "seed", 0, "seed (overrides the config file)")
	fs.StringVar(&c.scenario, "scenario", "", "normal, edge, peak or error")
	fs.StringVar(&c.crdKind, "crd-kind", "", "CRD kind to pick from a multi-document YAML")
	fs.BoolVar(&c.formats, "validate-formats", false, "fail on unknown formats and check format values")
	fs.BoolVar(&c.lax, "lax", false, "skip the validation oracle")
	fs.BoolVar(&c.verbose, "v", false, "enable verbose logs")
}

// options merges, in increasing precedence, the config file, FIXGEN_*
// variables and flags.
func (c *common) options() (fixgen.Options, error) {
	var opts fixgen.Options
	if c.config != "" {
		raw, err := os.ReadFile(c.config)
		if err != nil {
			return opts, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(raw, &opts); err != nil {
			return opts, errors.Wrapf(err, "parse config %s", c.config)
		}
	}
	if v := os.Getenv("FIXGEN_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return opts, errors.Wrap(err, "FIXGEN_SEED")
		}
		opts.Seed = uint32(n)
	}
	if v := os.Getenv("FIXGEN_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.Wrap(err, "FIXGEN_COUNT")
		}
		opts.Generate.Count = n
	}
	if v := os.Getenv("FIXGEN_SCENARIO"); v != "" {
		opts.Scenario = v
	}
	if v := os.Getenv("FIXGEN_LOCALE"); v != "" {
		opts.Locale = v
	}
	if c.crdKind == "" {
		c.crdKind = os.Getenv("FIXGEN_CRD_KIND")
	}

	if c.seed != 0 {
		if c.seed > 1<<32-1 {
			return opts, errors.Errorf("seed %d does not fit in 32 bits", c.seed)
		}
		opts.Seed = uint32(c.seed)
	}
	if c.count != 0 {
		opts.Generate.Count = c.count
	}
	if c.scenario != "" {
		opts.Scenario = c.scenario
	}
	if c.formats {
		opts.Validate.ValidateFormats = true
	}
	if c.lax {
		opts.Validate.Mode = fixgen.ValidationLax
	}
	return opts, nil
}

func (c *common) logger() *zap.Logger {
	if !c.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		fatalf("logger: %v", err)
	}
	return l
}

func (c *common) load() *loader.Document {
	if c.schema == "" {
		fatalf("-schema is required")
	}
	doc, err := loader.LoadFile(c.schema, loader.Options{CRDKind: c.crdKind})
	if err != nil {
		fatalf("load %s: %v", c.schema, err)
	}
	return doc
}

func generateCmd(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var c common
	c.register(fs)
	_ = fs.Parse(args)

	opts, err := c.options()
	if err != nil {
		fatalf("options: %v", err)
	}
	doc := c.load()
	logger := c.logger()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	batch, err := fixgen.New(fixgen.WithLogger(logger)).GenerateDocument(ctx, doc, opts)
	if err != nil {
		fatalf("generate: %v", err)
	}
	writeJSON(batch)
	if len(batch.Failures) > 0 {
		fmt.Fprintln(os.Stderr, batch.Failures.Error())
		os.Exit(1)
	}
}

func coverageCmd(args []string) {
	fs := flag.NewFlagSet("coverage", flag.ExitOnError)
	var c common
	c.register(fs)
	var mode, dims string
	var asJSON, showMetrics bool
	fs.StringVar(&mode, "mode", "guided", "measure or guided")
	fs.StringVar(&dims, "dims", "", "comma-separated coverage dimensions")
	fs.BoolVar(&asJSON, "json", false, "print the full report as JSON")
	fs.BoolVar(&showMetrics, "metrics", false, "print the run metrics")
	_ = fs.Parse(args)

	opts, err := c.options()
	if err != nil {
		fatalf("options: %v", err)
	}
	opts.Coverage.Mode = fixgen.CoverageMode(mode)
	if dims != "" {
		opts.Coverage.DimensionsEnabled = splitCSV(dims)
	}
	doc := c.load()
	logger := c.logger()
	defer func() { _ = logger.Sync() }()

	col := metrics.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	batch, err := fixgen.New(fixgen.WithLogger(logger), fixgen.WithMetrics(col)).GenerateDocument(ctx, doc, opts)
	if err != nil {
		fatalf("coverage: %v", err)
	}
	if opts.Coverage.Mode == fixgen.CoverageOff || batch.Coverage == nil {
		fatalf("coverage: mode %q measures nothing", mode)
	}
	if asJSON {
		writeJSON(batch.Coverage)
		return
	}
	printReport(batch.Coverage)
	if showMetrics {
		samples, err := col.Snapshot()
		if err != nil {
			fatalf("metrics: %v", err)
		}
		t := tablewriter.NewWriter(os.Stdout)
		t.SetHeader([]string{"metric", "labels", "value"})
		for _, s := range samples {
			t.Append([]string{s.Name, s.Labels, strconv.FormatFloat(s.Value, 'g', -1, 64)})
		}
		t.Render()
	}
}

func printReport(r *coverage.Report) {
	fmt.Printf("mode=%s seed=%d instances=%d failures=%d targets=%d overall=%.1f%%\n",
		r.Run.Mode, r.Run.Seed, r.Run.Instances, r.Run.Failures, r.Run.TargetCount, r.Metrics.Overall*100)
	if r.Run.HintedDraws > 0 {
		fmt.Printf("base instances=%d base overall=%.1f%% hinted=%d of %d extra draws\n",
			r.Run.BaseInstances, r.Metrics.BaseOverall*100, r.Run.HintedInstances, r.Run.HintedDraws)
	}

	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader([]string{"dimension", "coverage"})
	for _, d := range coverage.AllDimensions {
		if v, ok := r.Metrics.ByDimension[d]; ok {
			t.Append([]string{string(d), pct(v)})
		}
	}
	t.Render()

	if len(r.Metrics.ByOperation) > 0 {
		t = tablewriter.NewWriter(os.Stdout)
		t.SetHeader([]string{"operation", "coverage"})
		for _, op := range jsonschema.SortedKeys(r.Metrics.ByOperation) {
			t.Append([]string{op, pct(r.Metrics.ByOperation[op])})
		}
		t.Render()
	}

	if len(r.UncoveredTargets) > 0 {
		t = tablewriter.NewWriter(os.Stdout)
		t.SetHeader([]string{"uncovered target", "status"})
		for _, tg := range r.UncoveredTargets {
			t.Append([]string{tg.ID, string(tg.Status)})
		}
		t.Render()
	}
	for _, c := range r.Diagnostics.PlannerCapsHit {
		fmt.Printf("planner cap %s (limit %d) dropped %d\n", c.Cap, c.Limit, c.Dropped)
	}
	if n := len(r.UnsatisfiedHints); n > 0 {
		fmt.Printf("%d unsatisfied hints\n", n)
	}
}

func pct(v float64) string { return strconv.FormatFloat(v*100, 'f', 1, 64) + "%" }

func writeJSON(v any) {
	enc := gojson.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatalf("encode: %v", err)
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
