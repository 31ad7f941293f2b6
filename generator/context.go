package generator

import (
	"strconv"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/reoring/fixgen/format"
	"github.com/reoring/fixgen/i18n"
	"github.com/reoring/fixgen/internal/pointer"
	"github.com/reoring/fixgen/jsonschema"
	"github.com/reoring/fixgen/rng"
)

// Scenario biases value selection. Every scenario still yields valid values.
type Scenario string

const (
	ScenarioNormal Scenario = "normal" // uniform
	ScenarioEdge   Scenario = "edge"   // bounds, alternating min/max; minimal optional sets
	ScenarioPeak   Scenario = "peak"   // upper bounds; every optional property
	ScenarioError  Scenario = "error"  // lower bounds
)

// ParseScenario validates a scenario name; "" means normal.
func ParseScenario(s string) (Scenario, error) {
	switch Scenario(s) {
	case "":
		return ScenarioNormal, nil
	case ScenarioNormal, ScenarioEdge, ScenarioPeak, ScenarioError:
		return Scenario(s), nil
	}
	return "", errors.Errorf("unknown scenario %q", s)
}

// DefaultMaxDepth bounds recursion when the caller does not set MaxDepth.
const DefaultMaxDepth = 8

// Config is the resolved configuration of one generation run.
type Config struct {
	Seed            uint32
	Scenario        Scenario
	MaxDepth        int
	Locale          string
	ValidateFormats bool

	EnumStrategy EnumStrategy
	// EnumWeights maps an enum's canonical schema pointer to its weight
	// vector for the weighted strategy.
	EnumWeights map[string][]float64
	// EnumCache, when set, holds round-robin counters across runs.
	EnumCache *EnumCache

	Logger *zap.Logger
}

// Run holds the state shared by every context of one generation run: the RNG
// stream cache, memo cache, format registry and enum counters. It is not
// safe for concurrent use; independent runs never share state except an
// explicitly injected EnumCache.
type Run struct {
	cfg     Config
	table   *Table
	tr      i18n.Translator
	logger  *zap.Logger
	streams map[string]*rng.Stream
	memo    map[string]any
	formats *format.Registry
	rr      map[string]int
	hints   *HintSet
}

// NewRun validates cfg and returns a run bound to table.
func NewRun(table *Table, cfg Config) (*Run, error) {
	if cfg.MaxDepth < 0 {
		return nil, errors.Errorf("maxDepth must be >= 0, got %d", cfg.MaxDepth)
	}
	sc, err := ParseScenario(string(cfg.Scenario))
	if err != nil {
		return nil, err
	}
	cfg.Scenario = sc
	if cfg.EnumStrategy == "" {
		cfg.EnumStrategy = EnumUniform
	}
	if _, err := ParseEnumStrategy(string(cfg.EnumStrategy)); err != nil {
		return nil, err
	}
	if table == nil {
		table = NewTable(TableOptions{ValidateFormats: cfg.ValidateFormats})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Run{
		cfg:     cfg,
		table:   table,
		tr:      i18n.For(cfg.Locale),
		logger:  logger,
		streams: map[string]*rng.Stream{},
		memo:    map[string]any{},
		formats: format.NewRegistry(cfg.Seed),
		rr:      map[string]int{},
	}, nil
}

// Config returns the resolved configuration.
func (r *Run) Config() Config { return r.cfg }

// Table returns the dispatch table of the run.
func (r *Run) Table() *Table { return r.table }

// Formats returns the run's format registry.
func (r *Run) Formats() *format.Registry { return r.formats }

// Root returns the top-level context of instance number instance.
func (r *Run) Root(instance int) *Context {
	return &Context{run: r, instance: instance, SchemaPath: pointer.Root}
}

// Generate produces instance number instance of s.
func (r *Run) Generate(s *jsonschema.Schema, instance int) Result {
	return r.GenerateWithHints(s, instance, nil)
}

// GenerateWithHints is Generate with a hint set active for the duration of
// the call. Hints are consumed at most once; callers read the leftovers from
// hs.Unconsumed.
func (r *Run) GenerateWithHints(s *jsonschema.Schema, instance int, hs *HintSet) Result {
	r.hints = hs
	defer func() { r.hints = nil }()
	res := r.table.Generate(s, r.Root(instance))
	if !res.OK() {
		r.logger.Debug("generation failed",
			zap.Int("instance", instance),
			zap.String("kind", string(res.Failure.Kind)),
			zap.String("constraint", res.Failure.Constraint),
			zap.String("path", res.Failure.Path),
			zap.String("schema_path", res.Failure.SchemaPath))
	}
	return res
}

// Draws reports the total number of RNG draws in the run.
func (r *Run) Draws() uint64 {
	var n uint64
	for _, s := range r.streams {
		n += s.Draws()
	}
	return n
}

func (r *Run) stream(key string) *rng.Stream {
	s, ok := r.streams[key]
	if !ok {
		s = rng.New(r.cfg.Seed, key)
		r.streams[key] = s
	}
	return s
}

// memoize returns the cached value for key, computing it with fn on a miss.
func (r *Run) memoize(key string, fn func() any) any {
	if v, ok := r.memo[key]; ok {
		return v
	}
	v := fn()
	r.memo[key] = v
	return v
}

// memoKey combines a generator prefix with the key-order independent
// serialization of s.
func memoKey(prefix string, s *jsonschema.Schema) string {
	return prefix + ":" + jsonschema.CanonicalSchema(s)
}

// nextRoundRobin returns the rotating index for key among n members.
func (r *Run) nextRoundRobin(key string, n int) int {
	if r.cfg.EnumCache != nil {
		return r.cfg.EnumCache.Next(key, n)
	}
	i := r.rr[key]
	r.rr[key] = i + 1
	return i % n
}

// Context is the per-node generation state. Children extend the instance
// and schema paths and add one to Depth; they share the Run (same seed root,
// distinct path), which is what isolates their random streams.
type Context struct {
	// Path is the JSON pointer of the value being built ("" for the root).
	Path string
	// SchemaPath is the canonical pointer of the schema node ("#/...").
	SchemaPath string
	Depth      int

	instance int
	salt     string
	run      *Run
}

// Run returns the shared run state.
func (c *Context) Run() *Run { return c.run }

// Instance is the index of the top-level value being generated.
func (c *Context) Instance() int { return c.instance }

// Scenario returns the run scenario.
func (c *Context) Scenario() Scenario { return c.run.cfg.Scenario }

// bias is the scenario that steers value selection here. Salted contexts are
// retries after a rejected candidate and draw uniformly: a boundary-pinned
// retry would reproduce the rejected value.
func (c *Context) bias() Scenario {
	if c.salt != "" {
		return ScenarioNormal
	}
	return c.run.cfg.Scenario
}

// AtMaxDepth reports whether recursion must stop at this node.
func (c *Context) AtMaxDepth() bool { return c.Depth >= c.run.cfg.MaxDepth }

// Key is the RNG key of this context: "i<instance>:<path>[~salt]".
func (c *Context) Key() string {
	k := "i" + strconv.Itoa(c.instance) + ":" + c.Path
	if c.salt != "" {
		k += "~" + c.salt
	}
	return k
}

// Rand returns the stream of this context. Contexts with the same key share
// the stream, so successive draws at one location continue the sequence.
func (c *Context) Rand() *rng.Stream { return c.run.stream(c.Key()) }

// Property descends into an object member.
func (c *Context) Property(name, schemaPath string) *Context {
	return &Context{
		Path:       pointer.Join(c.Path, name),
		SchemaPath: schemaPath,
		Depth:      c.Depth + 1,
		instance:   c.instance,
		salt:       c.salt,
		run:        c.run,
	}
}

// Item descends into an array element.
func (c *Context) Item(i int, schemaPath string) *Context {
	return &Context{
		Path:       pointer.Index(c.Path, i),
		SchemaPath: schemaPath,
		Depth:      c.Depth + 1,
		instance:   c.instance,
		salt:       c.salt,
		run:        c.run,
	}
}

// Descend follows a reference: same value location, one level deeper.
func (c *Context) Descend(schemaPath string) *Context {
	return &Context{
		Path:       c.Path,
		SchemaPath: schemaPath,
		Depth:      c.Depth + 1,
		instance:   c.instance,
		salt:       c.salt,
		run:        c.run,
	}
}

// Branch moves to a composition branch of the same node.
func (c *Context) Branch(schemaPath string) *Context {
	cc := *c
	cc.SchemaPath = schemaPath
	return &cc
}

// Salted returns a context whose stream, and the streams of everything below
// it, differ from c's; uniqueness retries use it to draw a fresh candidate
// for the same location.
func (c *Context) Salted(salt string) *Context {
	cc := *c
	if cc.salt != "" {
		salt = cc.salt + "." + salt
	}
	cc.salt = salt
	return &cc
}

// hint consumes the first unused hint of kind at this schema node that
// satisfies match (nil matches any).
func (c *Context) hint(kind HintKind, match func(Hint) bool) (Hint, bool) {
	if c.run.hints == nil {
		return Hint{}, false
	}
	return c.run.hints.take(kind, c.SchemaPath, match)
}

// hasHint reports whether an unused hint of kind targets this node without
// consuming it.
func (c *Context) hasHint(kind HintKind, match func(Hint) bool) bool {
	if c.run.hints == nil {
		return false
	}
	return c.run.hints.peek(kind, c.SchemaPath, match)
}

// fail builds a localized failure located at this context.
func (c *Context) fail(kind FailureKind, constraint string, params map[string]any) Result {
	return Fail(&Failure{
		Kind:       kind,
		Constraint: constraint,
		Path:       c.Path,
		SchemaPath: c.SchemaPath,
		Message:    c.run.tr.Message(constraint, messageData(params)),
		Hint:       remediation[constraint],
		Params:     params,
	})
}
