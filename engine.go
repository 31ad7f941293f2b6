package fixgen

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reoring/fixgen/coverage"
	"github.com/reoring/fixgen/generator"
	"github.com/reoring/fixgen/internal/pointer"
	"github.com/reoring/fixgen/jsonschema"
	"github.com/reoring/fixgen/loader"
	"github.com/reoring/fixgen/metrics"
	"github.com/reoring/fixgen/validate"
)

// Engine runs generation batches. It is safe for concurrent use; every batch
// owns its run state, and only an injected EnumCache is shared.
type Engine struct {
	logger       *zap.Logger
	oracle       validate.Oracle
	enumCache    *generator.EnumCache
	metrics      *metrics.Collectors
	enumStrategy generator.EnumStrategy

	// tables[validateFormats]
	tables map[bool]*generator.Table
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithOracle replaces the default validator for strict-mode checks and
// branch attribution.
func WithOracle(o validate.Oracle) EngineOption {
	return func(e *Engine) { e.oracle = o }
}

// WithEnumCache shares round-robin enum counters across batches.
func WithEnumCache(c *generator.EnumCache) EngineOption {
	return func(e *Engine) { e.enumCache = c }
}

// WithMetrics records batch metrics on c.
func WithMetrics(c *metrics.Collectors) EngineOption {
	return func(e *Engine) { e.metrics = c }
}

// WithEnumStrategy sets the strategy used when Options.EnumStrategy is empty.
func WithEnumStrategy(s generator.EnumStrategy) EngineOption {
	return func(e *Engine) { e.enumStrategy = s }
}

// New returns an engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: zap.NewNop(),
		tables: map[bool]*generator.Table{
			false: generator.NewTable(generator.TableOptions{}),
			true:  generator.NewTable(generator.TableOptions{ValidateFormats: true}),
		},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Examples returns sample values satisfying s without drawing randomness.
func (e *Engine) Examples(s *jsonschema.Schema) []any {
	return e.tables[false].Examples(s)
}

// job is one root of a batch.
type job struct {
	root   coverage.Root
	schema *jsonschema.Schema
}

// Generate produces a batch of instances of s.
func (e *Engine) Generate(ctx context.Context, s *jsonschema.Schema, opts Options) (*Batch, error) {
	if s == nil {
		return nil, errors.New("nil schema")
	}
	return e.run(ctx, []job{{schema: s}}, opts, false, nil)
}

// GenerateDocument produces a batch for a loaded document. JSON Schema
// documents yield instances of the root schema; OpenAPI documents yield
// Count instances per operation request and response schema, and measure
// the operations dimension by default.
func (e *Engine) GenerateDocument(ctx context.Context, doc *loader.Document, opts Options) (*Batch, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	var jobs []job
	if !doc.IsOpenAPI() {
		jobs = append(jobs, job{schema: doc.Root})
	}
	for _, op := range doc.Operations {
		if op.Request != nil {
			jobs = append(jobs, job{root: coverage.Root{Operation: op.Key, Role: coverage.RoleRequest}, schema: op.Request})
		}
		if op.Response != nil {
			jobs = append(jobs, job{root: coverage.Root{Operation: op.Key, Role: coverage.RoleResponse}, schema: op.Response})
		}
	}
	if len(jobs) == 0 {
		return nil, errors.New("document has no schema to generate from")
	}
	return e.run(ctx, jobs, opts, doc.IsOpenAPI(), doc.Diag)
}

// GenerateAll runs one batch per schema concurrently. The batches equal
// those of sequential Generate calls.
func (e *Engine) GenerateAll(ctx context.Context, schemas []*jsonschema.Schema, opts Options) ([]*Batch, error) {
	out := make([]*Batch, len(schemas))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range schemas {
		i, s := i, s
		g.Go(func() error {
			b, err := e.Generate(gctx, s, opts)
			if err != nil {
				return errors.Wrapf(err, "schema %d", i)
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) config(opts Options) generator.Config {
	return generator.Config{
		Seed:            opts.Seed,
		Scenario:        generator.Scenario(opts.Scenario),
		MaxDepth:        opts.MaxDepth,
		Locale:          opts.Locale,
		ValidateFormats: opts.Validate.ValidateFormats,
		EnumStrategy:    generator.EnumStrategy(opts.EnumStrategy),
		EnumWeights:     opts.EnumWeights,
		EnumCache:       e.enumCache,
		Logger:          e.logger,
	}
}

func (e *Engine) oracleFor(opts Options) validate.Oracle {
	if e.oracle != nil {
		return e.oracle
	}
	return validate.New(validate.WithFormats(opts.Validate.ValidateFormats))
}

// batchRun is the state of one batch.
type batchRun struct {
	e       *Engine
	opts    Options
	oracle  validate.Oracle
	tracker *coverage.Tracker
	jobs    []job
	runs    []*generator.Run
	batch   *Batch

	hintedDraws int
}

func (e *Engine) run(ctx context.Context, jobs []job, opts Options, document bool, diag *loader.Diag) (*Batch, error) {
	if opts.EnumStrategy == "" && e.enumStrategy != "" {
		opts.EnumStrategy = string(e.enumStrategy)
	}
	opts, err := opts.Resolve()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	mode := string(opts.Coverage.Mode)
	e.logger.Info("batch started",
		zap.String("mode", mode),
		zap.Uint32("seed", opts.Seed),
		zap.String("scenario", opts.Scenario),
		zap.Int("count", opts.Generate.Count),
		zap.Int("roots", len(jobs)))

	br := &batchRun{
		e:      e,
		opts:   opts,
		oracle: e.oracleFor(opts),
		jobs:   jobs,
		runs:   make([]*generator.Run, len(jobs)),
		batch: &Batch{
			Options:     opts,
			Instances:   []Instance{},
			Failures:    Issues{},
			Diagnostics: []Diagnostic{},
		},
	}
	for _, w := range diag.Warnings() {
		br.batch.Diagnostics = append(br.batch.Diagnostics, Diagnostic{
			Code:      DiagLoaderWarning,
			CanonPath: pointer.Root,
			Details:   map[string]any{"message": w},
		})
	}
	if opts.Coverage.Mode != CoverageOff {
		br.tracker = coverage.NewTracker(
			coverage.WithDimensions(opts.dimensions(document)...),
			coverage.WithOracle(br.oracle))
		if err := br.tracker.Begin(); err != nil {
			return nil, err
		}
		for _, j := range jobs {
			if err := br.tracker.Collect(j.root, j.schema); err != nil {
				return nil, errors.Wrapf(err, "collect targets of %q", j.root.Key())
			}
		}
	}

	results, err := br.base(ctx)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		for n, res := range results[i] {
			if err := br.record(i, n, res); err != nil {
				return nil, err
			}
		}
	}
	if opts.Validate.Mode == ValidationLax {
		br.skippedValidation()
	}
	baseInstances, baseOverall := len(br.batch.Instances), 0.0
	if br.tracker != nil {
		baseOverall = br.tracker.Metrics().Overall
	}
	if opts.Coverage.Mode == CoverageGuided {
		if err := br.guided(ctx); err != nil {
			return nil, err
		}
	}
	if br.tracker != nil {
		rep, err := br.tracker.Report()
		if err != nil {
			return nil, err
		}
		rep.Run.Mode = mode
		rep.Run.Seed = opts.Seed
		rep.Run.Instances = len(br.batch.Instances)
		rep.Run.Failures = len(br.batch.Failures)
		rep.Run.BaseInstances = baseInstances
		rep.Run.HintedInstances = len(br.batch.Instances) - baseInstances
		rep.Run.HintedDraws = br.hintedDraws
		rep.Metrics.BaseOverall = baseOverall
		br.batch.Coverage = rep

		byDim := make(map[string]float64, len(rep.Metrics.ByDimension))
		for d, v := range rep.Metrics.ByDimension {
			byDim[string(d)] = v
		}
		e.metrics.Coverage(rep.Metrics.Overall, byDim)
	}
	e.metrics.ObserveBatch(mode, start)

	fields := []zap.Field{
		zap.Int("instances", len(br.batch.Instances)),
		zap.Int("failures", len(br.batch.Failures)),
		zap.Duration("took", time.Since(start)),
	}
	if br.batch.Coverage != nil {
		fields = append(fields, zap.Float64("coverage", br.batch.Coverage.Metrics.Overall))
	}
	e.logger.Info("batch finished", fields...)
	return br.batch, nil
}

// base generates the unhinted instances, one goroutine per root.
func (br *batchRun) base(ctx context.Context) ([][]generator.Result, error) {
	results := make([][]generator.Result, len(br.jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range br.jobs {
		i, j := i, j
		g.Go(func() error {
			run, err := generator.NewRun(br.e.tables[br.opts.Validate.ValidateFormats], br.e.config(br.opts))
			if err != nil {
				return errors.Wrap(ErrInvalidOptions, err.Error())
			}
			br.runs[i] = run
			out := make([]generator.Result, br.opts.Generate.Count)
			for n := range out {
				if err := gctx.Err(); err != nil {
					return err
				}
				out[n] = br.check(run.Generate(j.schema, n), j.schema)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// check runs the oracle over an Ok result in strict mode.
func (br *batchRun) check(res generator.Result, s *jsonschema.Schema) generator.Result {
	if !res.OK() || br.opts.Validate.Mode == ValidationLax {
		return res
	}
	err := br.oracle.Validate(res.Value, s)
	if err == nil {
		return res
	}
	f := &generator.Failure{
		Kind:       generator.FailConstraint,
		Constraint: generator.ConstraintOracle,
		Path:       "",
		SchemaPath: pointer.Root,
		Message:    err.Error(),
	}
	var ve *validate.Error
	if errors.As(err, &ve) {
		f.Path = ve.Path
		f.SchemaPath = ve.SchemaPath
		f.Params = map[string]any{"keyword": ve.Keyword}
	}
	return generator.Result{Failure: f}
}

// record adds base instance n of job i to the batch and the tracker.
func (br *batchRun) record(i, n int, res generator.Result) error {
	j := br.jobs[i]
	if !res.OK() {
		is := IssueFromFailure(n, res.Failure)
		is.Operation, is.Role = j.root.Operation, string(j.root.Role)
		br.batch.Failures = AppendIssues(br.batch.Failures, is)
		br.e.metrics.Failure(string(res.Failure.Kind))
		br.e.logger.Debug("instance failed",
			zap.String("root", j.root.Key()),
			zap.Int("instance", n),
			zap.String("constraint", res.Failure.Constraint),
			zap.String("schema_path", res.Failure.SchemaPath))
		if br.tracker != nil && res.Failure.Constraint != generator.ConstraintOracle {
			if _, err := br.tracker.MarkUnreachable(j.root, res.Failure.SchemaPath); err != nil {
				return err
			}
		}
		return nil
	}
	br.batch.Instances = append(br.batch.Instances, Instance{
		Operation: j.root.Operation,
		Role:      string(j.root.Role),
		Index:     n,
		Value:     res.Value,
	})
	br.e.metrics.Instance(br.opts.Scenario)
	if br.tracker != nil {
		if _, err := br.tracker.Observe(j.root, res.Value); err != nil {
			return err
		}
	}
	return nil
}

func (br *batchRun) skippedValidation() {
	for _, j := range br.jobs {
		d := Diagnostic{
			Code:      DiagValidationSkipped,
			CanonPath: pointer.Root,
			Details:   map[string]any{"skippedValidation": true},
			Metrics:   map[string]any{"validationsPerRow": 0},
		}
		if k := j.root.Key(); k != "" {
			d.Details["root"] = k
		}
		br.batch.Diagnostics = append(br.batch.Diagnostics, d)
	}
}

// guided plans hints for the uncovered targets and keeps every hinted
// instance that hits a new target.
func (br *batchRun) guided(ctx context.Context) error {
	plan := coverage.NewPlanner(br.opts.plannerOptions()).Plan(br.tracker.Uncovered())
	if len(plan.CapsHit) > 0 {
		br.tracker.AddCapsHit(plan.CapsHit...)
		for _, c := range plan.CapsHit {
			br.e.logger.Warn("planner cap hit",
				zap.String("cap", c.Cap),
				zap.Int("limit", c.Limit),
				zap.Int("dropped", c.Dropped))
			br.batch.Diagnostics = append(br.batch.Diagnostics, Diagnostic{
				Code:      DiagPlannerCap,
				CanonPath: pointer.Root,
				Details:   map[string]any{"cap": c.Cap, "limit": c.Limit, "dropped": c.Dropped},
			})
		}
	}

	byKey := make(map[string]int, len(br.jobs))
	next := make(map[string]int, len(br.jobs))
	for i, j := range br.jobs {
		byKey[j.root.Key()] = i
		next[j.root.Key()] = br.opts.Generate.Count
	}
	for _, u := range plan.Units {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := u.Root.Key()
		i, ok := byKey[key]
		if !ok {
			continue
		}
		j := br.jobs[i]
		n := next[key]
		next[key]++

		br.hintedDraws++
		hs := generator.NewHintSet(u.Hints)
		res := br.check(br.runs[i].GenerateWithHints(j.schema, n, hs), j.schema)
		if !res.OK() {
			br.tracker.AddUnsatisfied(coverage.ReasonGenerationFailed, u.Hints...)
			br.e.metrics.Hints("unsatisfied", len(u.Hints))
			br.e.logger.Debug("hinted instance failed",
				zap.String("root", key),
				zap.Int("instance", n),
				zap.String("constraint", res.Failure.Constraint))
			continue
		}
		newHits, err := br.tracker.Observe(u.Root, res.Value)
		if err != nil {
			return err
		}
		unconsumed := hs.Unconsumed()
		if newHits == 0 {
			br.tracker.AddUnsatisfied(coverage.ReasonNoNewTarget, hs.Consumed()...)
			br.tracker.AddUnsatisfied(coverage.ReasonNotConsumed, unconsumed...)
			br.e.metrics.Hints("unsatisfied", len(u.Hints))
			continue
		}
		br.tracker.AddUnsatisfied(coverage.ReasonNotConsumed, unconsumed...)
		br.e.metrics.Hints("applied", len(u.Hints)-len(unconsumed))
		br.e.metrics.Hints("unsatisfied", len(unconsumed))
		br.e.metrics.Instance(br.opts.Scenario)
		br.batch.Instances = append(br.batch.Instances, Instance{
			Operation: j.root.Operation,
			Role:      string(j.root.Role),
			Index:     n,
			Value:     res.Value,
			Hinted:    true,
		})
	}
	return nil
}
