package fixgen_test

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	"github.com/Laisky/errors/v2"

	"github.com/reoring/fixgen"
	"github.com/reoring/fixgen/coverage"
	"github.com/reoring/fixgen/generator"
	"github.com/reoring/fixgen/jsonschema"
	"github.com/reoring/fixgen/loader"
	"github.com/reoring/fixgen/metrics"
	"github.com/reoring/fixgen/validate"
)

func mustSchema(t *testing.T, src string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	return s
}

const userSchema = `{
	"type": "object",
	"required": ["id", "name", "role"],
	"properties": {
		"id": {"type": "integer", "minimum": 1, "maximum": 1000},
		"name": {"type": "string", "minLength": 1, "maxLength": 12},
		"role": {"enum": ["admin", "editor", "viewer"]},
		"email": {"type": "string", "format": "email"},
		"tags": {"type": "array", "items": {"type": "string"}, "maxItems": 3}
	}
}`

func TestGenerate_Deterministic(t *testing.T) {
	s := mustSchema(t, userSchema)
	opts := fixgen.Options{Seed: 42, Generate: fixgen.GenerateOptions{Count: 20}}
	a, err := fixgen.New().Generate(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := fixgen.New().Generate(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a.Instances) != 20 || a.Err() != nil {
		t.Fatalf("instances=%d err=%v", len(a.Instances), a.Err())
	}
	if !reflect.DeepEqual(a.Values(), b.Values()) {
		t.Fatalf("same seed produced different batches")
	}

	opts.Seed = 43
	c, err := fixgen.New().Generate(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reflect.DeepEqual(a.Values(), c.Values()) {
		t.Fatalf("different seeds produced identical batches")
	}
}

func TestGenerate_GenerateSeedOverrides(t *testing.T) {
	s := mustSchema(t, userSchema)
	a, err := fixgen.New().Generate(context.Background(), s, fixgen.Options{Seed: 1, Generate: fixgen.GenerateOptions{Count: 5, Seed: 9}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := fixgen.New().Generate(context.Background(), s, fixgen.Options{Seed: 9, Generate: fixgen.GenerateOptions{Count: 5}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a.Options.Seed != 9 || !reflect.DeepEqual(a.Values(), b.Values()) {
		t.Fatalf("generate.seed did not override seed")
	}
}

func TestGenerate_PrefixStable(t *testing.T) {
	s := mustSchema(t, userSchema)
	small, err := fixgen.New().Generate(context.Background(), s, fixgen.Options{Seed: 5, Generate: fixgen.GenerateOptions{Count: 3}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	large, err := fixgen.New().Generate(context.Background(), s, fixgen.Options{Seed: 5, Generate: fixgen.GenerateOptions{Count: 8}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reflect.DeepEqual(small.Values(), large.Values()[:3]) {
		t.Fatalf("larger batch does not extend the smaller one")
	}
}

func TestGenerate_GuidedNeverBelowMeasure(t *testing.T) {
	s := mustSchema(t, `{"oneOf": [{"type": "string", "maxLength": 4}, {"type": "integer", "minimum": 0}]}`)
	run := func(mode fixgen.CoverageMode) *fixgen.Batch {
		t.Helper()
		b, err := fixgen.New().Generate(context.Background(), s, fixgen.Options{
			Seed:     11,
			Coverage: fixgen.CoverageOptions{Mode: mode},
			Generate: fixgen.GenerateOptions{Count: 1},
		})
		if err != nil {
			t.Fatalf("generate %s: %v", mode, err)
		}
		return b
	}
	measure := run(fixgen.CoverageMeasure)
	guided := run(fixgen.CoverageGuided)
	again := run(fixgen.CoverageGuided)

	if measure.Coverage.Run.Mode != "measure" || guided.Coverage.Run.Mode != "guided" {
		t.Fatalf("modes: %q %q", measure.Coverage.Run.Mode, guided.Coverage.Run.Mode)
	}
	if mb := measure.Coverage.Metrics.ByDimension[coverage.DimBranches]; mb != 0.5 {
		t.Fatalf("measure branch coverage = %v, want 0.5", mb)
	}
	gm, mm := guided.Coverage.Metrics, measure.Coverage.Metrics
	if gm.Overall < mm.Overall || gm.ByDimension[coverage.DimBranches] < mm.ByDimension[coverage.DimBranches] {
		t.Fatalf("guided %v below measure %v", gm, mm)
	}
	if gm.ByDimension[coverage.DimBranches] != 1 {
		t.Fatalf("guided branch coverage = %v, uncovered %v", gm.ByDimension[coverage.DimBranches], guided.Coverage.UncoveredTargets)
	}

	if !reflect.DeepEqual(measure.Values(), guided.Values()[:1]) {
		t.Fatalf("guided base batch differs from measure")
	}
	if len(guided.Instances) != 2 || !guided.Instances[1].Hinted || guided.Instances[1].Index != 1 {
		t.Fatalf("hinted instances: %#v", guided.Instances)
	}
	if guided.Coverage.Run.Instances != 2 || guided.Coverage.Run.Seed != 11 {
		t.Fatalf("run info: %#v", guided.Coverage.Run)
	}
	// The draws on top of count are reported, and so is the coverage the
	// count budget alone reached.
	if ri := guided.Coverage.Run; ri.BaseInstances != 1 || ri.HintedInstances != 1 || ri.HintedDraws < 1 {
		t.Fatalf("guided budget: %#v", ri)
	}
	if gm.BaseOverall != mm.Overall || mm.BaseOverall != mm.Overall {
		t.Fatalf("base overall: guided %v measure %v/%v", gm.BaseOverall, mm.BaseOverall, mm.Overall)
	}
	if ri := measure.Coverage.Run; ri.BaseInstances != 1 || ri.HintedInstances != 0 || ri.HintedDraws != 0 {
		t.Fatalf("measure budget: %#v", ri)
	}

	x, err := guided.Coverage.Canonical()
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	y, err := again.Coverage.Canonical()
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	if !bytes.Equal(x, y) {
		t.Fatalf("guided reports differ:\n%s\n%s", x, y)
	}
}

func TestGenerate_PlannerCapDiagnostic(t *testing.T) {
	s := mustSchema(t, `{"type": "object", "properties": {
		"a": {"enum": [1, 2, 3, 4]},
		"b": {"enum": ["p", "q", "r", "s"]}
	}}`)
	b, err := fixgen.New().Generate(context.Background(), s, fixgen.Options{
		Seed:     3,
		Scenario: "error",
		Coverage: fixgen.CoverageOptions{Mode: fixgen.CoverageGuided, MaxUnits: 1},
		Generate: fixgen.GenerateOptions{Count: 1},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var found bool
	for _, d := range b.Diagnostics {
		if d.Code == fixgen.DiagPlannerCap && d.Details["cap"] == coverage.CapMaxUnits {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a maxUnits diagnostic, got %#v", b.Diagnostics)
	}
	if caps := b.Coverage.Diagnostics.PlannerCapsHit; len(caps) == 0 || caps[0].Cap != coverage.CapMaxUnits {
		t.Fatalf("report caps: %#v", caps)
	}
}

func TestGenerate_LaxSkipsValidation(t *testing.T) {
	s := mustSchema(t, `{"type": "string"}`)
	lax, err := fixgen.New().Generate(context.Background(), s, fixgen.Options{
		Validate: fixgen.ValidateOptions{Mode: fixgen.ValidationLax},
		Generate: fixgen.GenerateOptions{Count: 2},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(lax.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %#v", lax.Diagnostics)
	}
	d := lax.Diagnostics[0]
	if d.Code != fixgen.DiagValidationSkipped || d.Details["skippedValidation"] != true || d.Metrics["validationsPerRow"] != 0 {
		t.Fatalf("diagnostic = %#v", d)
	}

	strict, err := fixgen.New().Generate(context.Background(), s, fixgen.Options{Generate: fixgen.GenerateOptions{Count: 2}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, d := range strict.Diagnostics {
		if _, ok := d.Details["skippedValidation"]; ok {
			t.Fatalf("strict mode set skippedValidation: %#v", d)
		}
	}
}

type rejectAll struct{}

func (rejectAll) Validate(v any, s *jsonschema.Schema) error {
	return &validate.Error{Path: "", SchemaPath: "#", Keyword: "type", Message: "rejected"}
}

func TestGenerate_OracleRejection(t *testing.T) {
	s := mustSchema(t, `{"type": "boolean"}`)
	m := metrics.New()
	b, err := fixgen.New(fixgen.WithOracle(rejectAll{}), fixgen.WithMetrics(m)).Generate(context.Background(), s, fixgen.Options{
		Coverage: fixgen.CoverageOptions{Mode: fixgen.CoverageMeasure},
		Generate: fixgen.GenerateOptions{Count: 3},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(b.Instances) != 0 || len(b.Failures) != 3 {
		t.Fatalf("instances=%d failures=%d", len(b.Instances), len(b.Failures))
	}
	if f := b.Failures[2]; f.Instance != 2 || f.Constraint != generator.ConstraintOracle || f.Params["keyword"] != "type" {
		t.Fatalf("failure = %#v", f)
	}
	iss, ok := fixgen.AsIssues(b.Err())
	if !ok || len(iss) != 3 {
		t.Fatalf("AsIssues = %v %v", iss, ok)
	}
	if b.Coverage.Run.Failures != 3 || b.Coverage.Run.Instances != 0 {
		t.Fatalf("run info: %#v", b.Coverage.Run)
	}
	for _, tg := range b.Coverage.Targets {
		if tg.Status != coverage.StatusActive {
			t.Fatalf("oracle rejections must not mark targets unreachable: %#v", tg)
		}
	}

	samples, err := m.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	var failures float64
	for _, s := range samples {
		if s.Name == "fixgen_failures_total" {
			failures += s.Value
		}
	}
	if failures != 3 {
		t.Fatalf("failures metric = %v", failures)
	}
}

func TestGenerate_UnsatisfiableMarksUnreachable(t *testing.T) {
	s := mustSchema(t, `{"type": "object", "required": ["n"], "properties": {
		"n": {"type": "integer", "minimum": 5, "maximum": 4}
	}}`)
	b, err := fixgen.New().Generate(context.Background(), s, fixgen.Options{
		Coverage: fixgen.CoverageOptions{Mode: fixgen.CoverageMeasure},
		Generate: fixgen.GenerateOptions{Count: 2},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(b.Failures) != 2 || b.Failures[0].Constraint != generator.ConstraintRange {
		t.Fatalf("failures = %#v", b.Failures)
	}
	var unreachable int
	for _, tg := range b.Coverage.Targets {
		if tg.Status == coverage.StatusUnreachable {
			unreachable++
		}
	}
	if unreachable == 0 {
		t.Fatalf("expected unreachable targets: %#v", b.Coverage.Targets)
	}
}

func TestOptions_ResolveErrors(t *testing.T) {
	for name, o := range map[string]fixgen.Options{
		"negative depth":  {MaxDepth: -1},
		"scenario":        {Scenario: "chaos"},
		"coverage mode":   {Coverage: fixgen.CoverageOptions{Mode: "full"}},
		"dimension":       {Coverage: fixgen.CoverageOptions{DimensionsEnabled: []string{"paths"}}},
		"negative cap":    {Coverage: fixgen.CoverageOptions{MaxUnits: -1}},
		"validation mode": {Validate: fixgen.ValidateOptions{Mode: "loose"}},
		"negative count":  {Generate: fixgen.GenerateOptions{Count: -1}},
		"enum strategy":   {EnumStrategy: "random"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := o.Resolve()
			if !errors.Is(err, fixgen.ErrInvalidOptions) {
				t.Fatalf("expected ErrInvalidOptions, got %v", err)
			}
			s := mustSchema(t, `{"type":"null"}`)
			if _, err := fixgen.New().Generate(context.Background(), s, o); err == nil {
				t.Fatalf("Generate accepted invalid options")
			}
		})
	}
}

func TestOptions_ResolveDefaults(t *testing.T) {
	o, err := fixgen.Options{}.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if o.MaxDepth != generator.DefaultMaxDepth || o.Scenario != "normal" || o.Generate.Count != fixgen.DefaultCount {
		t.Fatalf("defaults = %#v", o)
	}
	if o.Coverage.Mode != fixgen.CoverageOff || o.Validate.Mode != fixgen.ValidationStrict || o.EnumStrategy != "uniform" {
		t.Fatalf("defaults = %#v", o)
	}
}

func TestEngine_EnumStrategyDefault(t *testing.T) {
	s := mustSchema(t, `{"enum": ["a", "b", "c"]}`)
	b, err := fixgen.New(fixgen.WithEnumStrategy(generator.EnumRoundRobin)).Generate(context.Background(), s,
		fixgen.Options{Generate: fixgen.GenerateOptions{Count: 4}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := []any{"a", "b", "c", "a"}
	if !reflect.DeepEqual(b.Values(), want) {
		t.Fatalf("values = %v, want %v", b.Values(), want)
	}
}

func TestGenerateAll_EqualsSequential(t *testing.T) {
	schemas := []*jsonschema.Schema{
		mustSchema(t, userSchema),
		mustSchema(t, `{"type": "array", "items": {"type": "number", "minimum": 0, "maximum": 1}, "minItems": 1}`),
		mustSchema(t, `{"anyOf": [{"type": "boolean"}, {"type": "null"}]}`),
	}
	opts := fixgen.Options{Seed: 99, Coverage: fixgen.CoverageOptions{Mode: fixgen.CoverageGuided}, Generate: fixgen.GenerateOptions{Count: 4}}
	eng := fixgen.New()
	all, err := eng.GenerateAll(context.Background(), schemas, opts)
	if err != nil {
		t.Fatalf("generate all: %v", err)
	}
	for i, s := range schemas {
		one, err := eng.Generate(context.Background(), s, opts)
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
		if !reflect.DeepEqual(all[i].Values(), one.Values()) {
			t.Fatalf("schema %d: concurrent and sequential batches differ", i)
		}
		x, _ := all[i].Coverage.Canonical()
		y, _ := one.Coverage.Canonical()
		if !bytes.Equal(x, y) {
			t.Fatalf("schema %d: reports differ", i)
		}
	}
}

const petAPI = `{
	"openapi": "3.0.3",
	"info": {"title": "pets", "version": "1"},
	"paths": {
		"/pets": {
			"post": {
				"operationId": "createPet",
				"requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}},
				"responses": {"201": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}}}
			}
		}
	},
	"components": {"schemas": {"Pet": {
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string", "minLength": 1}, "age": {"type": "integer", "minimum": 0}}
	}}}
}`

func TestGenerateDocument_OpenAPI(t *testing.T) {
	doc, err := loader.Load([]byte(petAPI), loader.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	b, err := fixgen.New().GenerateDocument(context.Background(), doc, fixgen.Options{
		Seed:     4,
		Coverage: fixgen.CoverageOptions{Mode: fixgen.CoverageMeasure},
		Generate: fixgen.GenerateOptions{Count: 3},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(b.Instances) != 6 {
		t.Fatalf("instances = %d", len(b.Instances))
	}
	if in := b.Instances[3]; in.Operation != "createPet" || in.Role != "response" || in.Index != 0 {
		t.Fatalf("instance = %#v", in)
	}
	m := b.Coverage.Metrics
	if m.ByDimension[coverage.DimOperations] != 1 {
		t.Fatalf("operations coverage = %v", m.ByDimension[coverage.DimOperations])
	}
	if _, ok := m.ByOperation["createPet"]; !ok {
		t.Fatalf("byOperation = %v", m.ByOperation)
	}
	if !b.Coverage.Covered("operations:OP_REQUEST_COVERED:createPet@request:#") {
		t.Fatalf("request target not covered")
	}
}

func TestGenerateDocument_Empty(t *testing.T) {
	doc, err := loader.Load([]byte(`{"openapi": "3.1.0", "paths": {}}`), loader.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := fixgen.New().GenerateDocument(context.Background(), doc, fixgen.Options{}); err == nil {
		t.Fatalf("expected an error for a document without schemas")
	}
}

func TestIssues_ErrorSummary(t *testing.T) {
	iss := fixgen.Issues{
		{Path: "/a", Code: "type-mismatch", Constraint: "type-mismatch"},
		{Path: "/b", Code: "constraint-violation", Constraint: "range"},
		{Path: "/c", Code: "constraint-violation", Constraint: "pattern"},
		{Path: "/d", Code: "depth-limit", Constraint: "depth-limit"},
	}
	s := iss.Error()
	if s == "" || !bytes.Contains([]byte(s), []byte("(total 4)")) {
		t.Fatalf("summary = %q", s)
	}
	if fixgen.Issues(nil).Error() != "" {
		t.Fatalf("empty issues should render empty")
	}
}
