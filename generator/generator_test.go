package generator_test

import (
	"math"
	"reflect"
	"slices"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/reoring/fixgen/generator"
	"github.com/reoring/fixgen/jsonschema"
	"github.com/reoring/fixgen/validate"
)

func mustSchema(t *testing.T, src string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse %s: %v", src, err)
	}
	return s
}

func newRun(t *testing.T, cfg generator.Config) *generator.Run {
	t.Helper()
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = generator.DefaultMaxDepth
	}
	r, err := generator.NewRun(nil, cfg)
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	return r
}

func generateN(t *testing.T, r *generator.Run, s *jsonschema.Schema, n int) []any {
	t.Helper()
	out := make([]any, n)
	for i := range out {
		res := r.Generate(s, i)
		if !res.OK() {
			t.Fatalf("instance %d: %v", i, res.Failure)
		}
		out[i] = res.Value
	}
	return out
}

func TestInteger_SameSeedReplaysDrawForDraw(t *testing.T) {
	s := mustSchema(t, `{"type":"integer","minimum":-10,"maximum":10}`)
	a := generateN(t, newRun(t, generator.Config{Seed: 424242}), s, 20)
	b := generateN(t, newRun(t, generator.Config{Seed: 424242}), s, 20)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed diverged:\n%v\n%v", a, b)
	}
	for i, v := range a {
		n, ok := v.(int64)
		if !ok || n < -10 || n > 10 {
			t.Fatalf("instance %d: %v (%T) outside [-10, 10]", i, v, v)
		}
	}
	c := generateN(t, newRun(t, generator.Config{Seed: 424243}), s, 20)
	if reflect.DeepEqual(a, c) {
		t.Fatalf("different seeds produced the same 20 values")
	}
}

func TestNumber_MultipleOfToleratesRounding(t *testing.T) {
	s := mustSchema(t, `{"type":"number","multipleOf":0.1}`)
	tbl := generator.NewTable(generator.TableOptions{})
	v := 0.1 + 0.2
	if v == 0.3 {
		t.Fatalf("expected IEEE-754 rounding in 0.1+0.2")
	}
	if !tbl.Validate(v, s) {
		t.Fatalf("%v should validate as a multiple of 0.1", v)
	}
	if tbl.Strict().Validate(v, s) {
		t.Fatalf("strict check should reject %v", v)
	}
}

func TestInteger_NoIntegerBetweenExclusiveBounds(t *testing.T) {
	s := mustSchema(t, `{"type":"integer","exclusiveMinimum":0,"exclusiveMaximum":1}`)
	res := newRun(t, generator.Config{Seed: 1}).Generate(s, 0)
	if res.OK() {
		t.Fatalf("expected failure, got %v", res.Value)
	}
	if res.Failure.Kind != generator.FailConstraint || res.Failure.Constraint != generator.ConstraintExclusiveBounds {
		t.Fatalf("unexpected failure: %+v", res.Failure)
	}
	if res.Failure.SchemaPath != "#" || res.Failure.Message == "" {
		t.Fatalf("failure should be located and described: %+v", res.Failure)
	}
}

func TestEnum_RoundRobin(t *testing.T) {
	s := mustSchema(t, `{"enum":["a","b","c"]}`)
	r := newRun(t, generator.Config{Seed: 7, EnumStrategy: generator.EnumRoundRobin})
	got := generateN(t, r, s, 9)
	want := []any{"a", "b", "c", "a", "b", "c", "a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEnum_SharedCacheContinuesAcrossRuns(t *testing.T) {
	s := mustSchema(t, `{"enum":["a","b","c"]}`)
	cache := generator.NewEnumCache()
	cfg := generator.Config{Seed: 7, EnumStrategy: generator.EnumRoundRobin, EnumCache: cache}
	first := newRun(t, cfg).Generate(s, 0)
	second := newRun(t, cfg).Generate(s, 0)
	if first.Value != "a" || second.Value != "b" {
		t.Fatalf("got %v then %v", first.Value, second.Value)
	}
	cache.Reset()
	if v := newRun(t, cfg).Generate(s, 0).Value; v != "a" {
		t.Fatalf("after reset got %v", v)
	}
	// isolated runs restart the rotation
	cfg.EnumCache = nil
	if v := newRun(t, cfg).Generate(s, 0).Value; v != "a" {
		t.Fatalf("isolated run got %v", v)
	}
}

func TestEnum_WeightedAndFixedStrategies(t *testing.T) {
	s := mustSchema(t, `{"enum":["a","b","c"]}`)
	r := newRun(t, generator.Config{
		Seed:         3,
		EnumStrategy: generator.EnumWeighted,
		EnumWeights:  map[string][]float64{"#": {0, 0, 1}},
	})
	for i, v := range generateN(t, r, s, 10) {
		if v != "c" {
			t.Fatalf("instance %d: weighted pick %v", i, v)
		}
	}
	if v := newRun(t, generator.Config{EnumStrategy: generator.EnumFirst}).Generate(s, 0).Value; v != "a" {
		t.Fatalf("first: %v", v)
	}
	if v := newRun(t, generator.Config{EnumStrategy: generator.EnumLast}).Generate(s, 0).Value; v != "c" {
		t.Fatalf("last: %v", v)
	}
}

func TestGenerate_ValuesSatisfyTheirSchema(t *testing.T) {
	schemas := []string{
		`true`,
		`{}`,
		`{"type":"boolean"}`,
		`{"type":"null"}`,
		`{"type":"integer","minimum":5,"maximum":5}`,
		`{"type":"integer","multipleOf":0.5,"minimum":1,"maximum":4}`,
		`{"type":"integer","multipleOf":7}`,
		`{"type":"number","minimum":0.5,"maximum":2.5,"multipleOf":0.25}`,
		`{"type":"number","exclusiveMinimum":0,"exclusiveMaximum":1}`,
		`{"type":"number","minimum":1e300}`,
		`{"type":"string","minLength":3,"maxLength":5}`,
		`{"type":"string","pattern":"^[a-z]{3}-[0-9]{2}$"}`,
		`{"type":"string","pattern":"ab+c"}`,
		`{"type":"string","format":"email"}`,
		`{"type":"string","format":"uuid"}`,
		`{"type":"string","format":"date-time"}`,
		`{"type":"string","format":"uri"}`,
		`{"type":["null","string"],"maxLength":2}`,
		`{"type":"string","enum":["a",1,"b"]}`,
		`{"const":{"k":[1,2]}}`,
		`{"type":"array","items":{"type":"boolean"},"minItems":2,"maxItems":2,"uniqueItems":true}`,
		`{"type":"array","prefixItems":[{"type":"string"},{"type":"integer"}],"items":false}`,
		`{"type":"array","items":{"type":"integer"},"contains":{"const":3}}`,
		`{"type":"object","properties":{"a":{"type":"string"},"b":{"type":"integer"}},"required":["a"],"additionalProperties":false}`,
		`{"type":"object","minProperties":2,"properties":{"x":{"type":"null"}}}`,
		`{"type":"object","properties":{"a":{"type":"string"},"b":{"type":"string"}},"dependentRequired":{"a":["b"]}}`,
		`{"oneOf":[{"type":"string"},{"type":"integer"}]}`,
		`{"anyOf":[{"type":"integer","minimum":0},{"type":"integer","maximum":-5}]}`,
		`{"allOf":[{"type":"integer","minimum":0},{"maximum":10}]}`,
		`{"type":"integer","multipleOf":0.0001}`,
		`{"type":"integer","multipleOf":0.0001,"minimum":0,"maximum":10}`,
		`{"type":"integer","multipleOf":0.3,"minimum":-5,"maximum":20}`,
		`{"type":"integer","minimum":1e20}`,
		`{"type":"integer","minimum":-2e20,"maximum":-1e20}`,
		`{"type":"array","items":{"enum":[1,2,3]},"minItems":3,"maxItems":3,"uniqueItems":true}`,
		`{"type":"array","items":{"type":"integer","minimum":0,"maximum":2},"minItems":3,"uniqueItems":true}`,
		`{"oneOf":[{"type":"integer"},{"type":"number"}]}`,
		`{"oneOf":[{"type":"string","maxLength":3},{"type":"string","minLength":2}]}`,
	}
	tbl := generator.NewTable(generator.TableOptions{})
	oracle := validate.New()
	scenarios := []generator.Scenario{generator.ScenarioNormal, generator.ScenarioEdge, generator.ScenarioPeak, generator.ScenarioError}
	for _, src := range schemas {
		s := mustSchema(t, src)
		for _, sc := range scenarios {
			r, err := generator.NewRun(tbl, generator.Config{Seed: 99, Scenario: sc, MaxDepth: generator.DefaultMaxDepth})
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 25; i++ {
				res := r.Generate(s, i)
				if !res.OK() {
					t.Fatalf("%s [%s] instance %d: %v", src, sc, i, res.Failure)
				}
				if !tbl.Validate(res.Value, s) {
					t.Fatalf("%s [%s] instance %d: %#v does not validate", src, sc, i, res.Value)
				}
				if err := oracle.Validate(res.Value, s); err != nil {
					t.Fatalf("%s [%s] instance %d: %#v: %v", src, sc, i, res.Value, err)
				}
			}
		}
	}
}

func TestInteger_FractionalMultipleOf(t *testing.T) {
	cases := []struct {
		schema string
		want   []int64 // every value, when the range admits few
	}{
		{`{"type":"integer","multipleOf":0.0001,"minimum":0,"maximum":3}`, []int64{0, 1, 2, 3}},
		{`{"type":"integer","multipleOf":2.5,"minimum":1,"maximum":9}`, []int64{5}},
		{`{"type":"integer","multipleOf":1e-20,"minimum":-1,"maximum":1}`, []int64{-1, 0, 1}},
		{`{"type":"integer","multipleOf":0.3,"minimum":1,"maximum":5}`, []int64{3}},
	}
	for _, tc := range cases {
		s := mustSchema(t, tc.schema)
		for i, v := range generateN(t, newRun(t, generator.Config{Seed: 8}), s, 20) {
			n, ok := v.(int64)
			if !ok || !slices.Contains(tc.want, n) {
				t.Fatalf("%s instance %d: %#v, want one of %v", tc.schema, i, v, tc.want)
			}
		}
	}

	res := newRun(t, generator.Config{Seed: 8}).Generate(mustSchema(t, `{"type":"integer","multipleOf":1.5,"minimum":1,"maximum":2}`), 0)
	if res.OK() || res.Failure.Constraint != generator.ConstraintMultipleOfRange {
		t.Fatalf("no integral multiple of 1.5 in [1, 2], got %#v %v", res.Value, res.Failure)
	}
}

func TestInteger_BoundsBeyondSafeRange(t *testing.T) {
	for _, tc := range []struct {
		schema string
		sc     generator.Scenario
		want   any
	}{
		{`{"type":"integer","minimum":1e20}`, generator.ScenarioNormal, 1e20},
		{`{"type":"integer","minimum":1e20}`, generator.ScenarioPeak, 1e20},
		{`{"type":"integer","minimum":1e19,"maximum":2e19}`, generator.ScenarioPeak, 2e19},
		{`{"type":"integer","minimum":1e19,"maximum":2e19}`, generator.ScenarioError, 1e19},
		{`{"type":"integer","minimum":9e18}`, generator.ScenarioNormal, int64(9e18)},
		{`{"type":"integer","maximum":-1e20}`, generator.ScenarioNormal, -1e20},
	} {
		res := newRun(t, generator.Config{Seed: 3, Scenario: tc.sc}).Generate(mustSchema(t, tc.schema), 0)
		if !res.OK() {
			t.Fatalf("%s [%s]: %v", tc.schema, tc.sc, res.Failure)
		}
		if res.Value != tc.want {
			t.Fatalf("%s [%s]: %#v, want %#v", tc.schema, tc.sc, res.Value, tc.want)
		}
	}

	// 1e20+1 rounds back to 1e20, so no exact integer is known above it.
	res := newRun(t, generator.Config{Seed: 3}).Generate(mustSchema(t, `{"type":"integer","exclusiveMinimum":1e20}`), 0)
	if res.OK() || res.Failure.Kind != generator.FailPrecision {
		t.Fatalf("got %#v %v, want a precision failure", res.Value, res.Failure)
	}
}

// Unique arrays over a few values must be fillable in every scenario, even
// where the scenario pins the first draw of each item to one bound.
func TestUniqueItems_SmallDomainsInEveryScenario(t *testing.T) {
	schemas := []string{
		`{"type":"array","items":{"enum":[1,2,3]},"minItems":3,"maxItems":3,"uniqueItems":true}`,
		`{"type":"array","items":{"type":"integer","minimum":0,"maximum":2},"minItems":3,"uniqueItems":true}`,
		`{"type":"array","items":{"type":"integer","minimum":-3,"maximum":3,"multipleOf":3},"minItems":3,"maxItems":3,"uniqueItems":true}`,
		`{"type":"array","items":{"oneOf":[{"type":"integer"},{"type":"number"}]},"minItems":4,"maxItems":4,"uniqueItems":true}`,
	}
	oracle := validate.New()
	for _, src := range schemas {
		s := mustSchema(t, src)
		for _, sc := range []generator.Scenario{generator.ScenarioNormal, generator.ScenarioEdge, generator.ScenarioPeak, generator.ScenarioError} {
			r := newRun(t, generator.Config{Seed: 5, Scenario: sc})
			for i := 0; i < 40; i++ {
				res := r.Generate(s, i)
				if !res.OK() {
					t.Fatalf("%s [%s] instance %d: %v", src, sc, i, res.Failure)
				}
				if err := oracle.Validate(res.Value, s); err != nil {
					t.Fatalf("%s [%s] instance %d: %#v: %v", src, sc, i, res.Value, err)
				}
				if n := len(res.Value.([]any)); n < 3 {
					t.Fatalf("%s [%s] instance %d: %d items", src, sc, i, n)
				}
			}
		}
	}
}

func TestOneOf_OverlappingBranches(t *testing.T) {
	s := mustSchema(t, `{"oneOf":[{"type":"string","maxLength":3},{"type":"string","minLength":2}]}`)
	oracle := validate.New()
	for _, seed := range []uint32{5, 6, 7, 8} {
		r := newRun(t, generator.Config{Seed: seed})
		for i := 0; i < 160; i++ {
			res := r.Generate(s, i)
			if !res.OK() {
				t.Fatalf("seed %d instance %d: %v", seed, i, res.Failure)
			}
			if err := oracle.Validate(res.Value, s); err != nil {
				t.Fatalf("seed %d instance %d: %q: %v", seed, i, res.Value, err)
			}
		}
	}
}

func TestGenerate_FailureKinds(t *testing.T) {
	cases := []struct {
		name       string
		schema     string
		kind       generator.FailureKind
		constraint string
	}{
		{"min above max", `{"type":"integer","minimum":5,"maximum":1}`, generator.FailConstraint, generator.ConstraintRange},
		{"no multiple in range", `{"type":"number","minimum":0.1,"maximum":0.2,"multipleOf":1}`, generator.FailConstraint, generator.ConstraintMultipleOfRange},
		{"non-positive multipleOf", `{"type":"number","multipleOf":0}`, generator.FailConstraint, generator.ConstraintMultipleOf},
		{"draft04 exclusive", `{"$schema":"http://json-schema.org/draft-04/schema#","type":"number","minimum":0,"exclusiveMinimum":true}`, generator.FailConstraint, generator.ConstraintDraft04Exclusive},
		{"const violates sibling", `{"type":"integer","const":5,"minimum":10}`, generator.FailConstraint, generator.ConstraintConst},
		{"enum without candidate", `{"type":"integer","enum":["a"]}`, generator.FailConstraint, generator.ConstraintEnum},
		{"empty enum", `{"enum":[]}`, generator.FailConstraint, generator.ConstraintEnum},
		{"unique booleans", `{"type":"array","items":{"type":"boolean"},"minItems":3,"uniqueItems":true}`, generator.FailConstraint, generator.ConstraintUniqueItems},
		{"minItems above maxItems", `{"type":"array","minItems":3,"maxItems":1}`, generator.FailConstraint, generator.ConstraintMinItems},
		{"minLength above maxLength", `{"type":"string","minLength":4,"maxLength":2}`, generator.FailConstraint, generator.ConstraintMinLength},
		{"required not declared", `{"type":"object","required":["x"]}`, generator.FailSchemaStructure, generator.ConstraintRequired},
		{"minProperties above maxProperties", `{"type":"object","minProperties":3,"maxProperties":1}`, generator.FailSchemaStructure, generator.ConstraintMinProperties},
		{"false schema", `false`, generator.FailConstraint, generator.ConstraintFalseSchema},
		{"oneOf twins", `{"oneOf":[{"type":"integer"},{"type":"integer"}]}`, generator.FailConstraint, generator.ConstraintOneOf},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := newRun(t, generator.Config{Seed: 5}).Generate(mustSchema(t, tc.schema), 0)
			if res.OK() {
				t.Fatalf("expected failure, got %#v", res.Value)
			}
			if res.Failure.Kind != tc.kind || res.Failure.Constraint != tc.constraint {
				t.Fatalf("got %s/%s, want %s/%s", res.Failure.Kind, res.Failure.Constraint, tc.kind, tc.constraint)
			}
			if _, err := res.Unwrap(); err == nil {
				t.Fatalf("Unwrap should return the failure")
			}
		})
	}
}

func TestNumber_NegativeZeroFailsExclusiveMinimumZero(t *testing.T) {
	s := mustSchema(t, `{"type":"number","exclusiveMinimum":0}`)
	tbl := generator.NewTable(generator.TableOptions{})
	if tbl.Validate(math.Copysign(0, -1), s) {
		t.Fatalf("-0 must not satisfy exclusiveMinimum 0")
	}
	r := newRun(t, generator.Config{Seed: 11, Scenario: generator.ScenarioError})
	for i, v := range generateN(t, r, s, 10) {
		if f := v.(float64); !(f > 0) {
			t.Fatalf("instance %d: %v", i, f)
		}
	}
}

func recursiveSchema(required bool) *jsonschema.Schema {
	node := &jsonschema.Schema{Type: jsonschema.TypeSet{"object"}}
	ref := &jsonschema.Schema{Ref: "#", Target: node}
	node.Properties = map[string]*jsonschema.Schema{"child": ref}
	if required {
		node.Required = []string{"child"}
	}
	return node
}

func TestDepthLimit(t *testing.T) {
	res := newRun(t, generator.Config{Seed: 1, MaxDepth: 3}).Generate(recursiveSchema(true), 0)
	if res.OK() || res.Failure.Kind != generator.FailDepthLimit {
		t.Fatalf("expected depth-limit failure, got %+v", res)
	}

	r := newRun(t, generator.Config{Seed: 1, MaxDepth: 3, Scenario: generator.ScenarioPeak})
	v := generateN(t, r, recursiveSchema(false), 1)[0]
	depth := 0
	for {
		m, ok := v.(map[string]any)
		if !ok {
			t.Fatalf("expected object, got %T", v)
		}
		child, ok := m["child"]
		if !ok {
			break
		}
		depth++
		v = child
	}
	if depth == 0 || depth > 3 {
		t.Fatalf("nesting depth %d outside (0, 3]", depth)
	}
}

func TestNewRun_RejectsNegativeMaxDepth(t *testing.T) {
	if _, err := generator.NewRun(nil, generator.Config{MaxDepth: -1}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := generator.NewRun(nil, generator.Config{Scenario: "chaos"}); err == nil {
		t.Fatalf("expected error for unknown scenario")
	}
	if _, err := generator.NewRun(nil, generator.Config{EnumStrategy: "random"}); err == nil {
		t.Fatalf("expected error for unknown enum strategy")
	}
}

func TestPrefixStability(t *testing.T) {
	s := mustSchema(t, `{"type":"object","properties":{"id":{"type":"string","format":"uuid"},"n":{"type":"integer"},"tags":{"type":"array","items":{"type":"string"}}},"required":["id"]}`)
	short := generateN(t, newRun(t, generator.Config{Seed: 42}), s, 5)
	long := generateN(t, newRun(t, generator.Config{Seed: 42}), s, 10)
	if !reflect.DeepEqual(short, long[:5]) {
		t.Fatalf("first five instances changed with a larger count")
	}
}

func TestContextIsolation_SiblingsDoNotShiftStreams(t *testing.T) {
	two := mustSchema(t, `{"type":"object","properties":{"a":{"type":"integer"},"b":{"type":"string"}},"required":["a","b"]}`)
	three := mustSchema(t, `{"type":"object","properties":{"a":{"type":"integer"},"aa":{"type":"number"},"b":{"type":"string"}},"required":["a","aa","b"]}`)
	x := generateN(t, newRun(t, generator.Config{Seed: 8}), two, 5)
	y := generateN(t, newRun(t, generator.Config{Seed: 8}), three, 5)
	for i := range x {
		xm, ym := x[i].(map[string]any), y[i].(map[string]any)
		if xm["a"] != ym["a"] || xm["b"] != ym["b"] {
			t.Fatalf("instance %d: %v vs %v", i, xm, ym)
		}
	}
}

func TestGenerate_ConcurrentRunsShareTable(t *testing.T) {
	s := mustSchema(t, `{"type":"object","properties":{"s":{"type":"string","pattern":"^x[0-9]+$"},"e":{"enum":[1,2,3]},"o":{"oneOf":[{"type":"boolean"},{"type":"null"}]}},"required":["s","e","o"]}`)
	tbl := generator.NewTable(generator.TableOptions{})
	serial := func() []any {
		r, err := generator.NewRun(tbl, generator.Config{Seed: 17, MaxDepth: 4})
		if err != nil {
			t.Error(err)
			return nil
		}
		out := make([]any, 20)
		for i := range out {
			out[i] = r.Generate(s, i).Value
		}
		return out
	}
	want := serial()
	got := make([][]any, 8)
	var g errgroup.Group
	for w := range got {
		w := w
		g.Go(func() error {
			got[w] = serial()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	for w := range got {
		if !reflect.DeepEqual(got[w], want) {
			t.Fatalf("worker %d diverged", w)
		}
	}
}

func TestHints(t *testing.T) {
	t.Run("prefer-branch", func(t *testing.T) {
		s := mustSchema(t, `{"oneOf":[{"const":"x"},{"const":"y"},{"const":"z"}]}`)
		hs := generator.NewHintSet([]generator.Hint{{Kind: generator.HintPreferBranch, SchemaPath: "#", Index: 2}})
		res := newRun(t, generator.Config{Seed: 1}).GenerateWithHints(s, 0, hs)
		if res.Value != "z" {
			t.Fatalf("got %v", res.Value)
		}
		if len(hs.Unconsumed()) != 0 || len(hs.Consumed()) != 1 {
			t.Fatalf("hint should be consumed once")
		}
	})
	t.Run("prefer-enum", func(t *testing.T) {
		s := mustSchema(t, `{"enum":["a","b","c"]}`)
		hs := generator.NewHintSet([]generator.Hint{{Kind: generator.HintPreferEnum, SchemaPath: "#", Index: 1}})
		if v := newRun(t, generator.Config{Seed: 1}).GenerateWithHints(s, 0, hs).Value; v != "b" {
			t.Fatalf("got %v", v)
		}
	})
	t.Run("include-property", func(t *testing.T) {
		s := mustSchema(t, `{"type":"object","properties":{"opt":{"type":"integer"},"other":{"type":"integer"}}}`)
		hs := generator.NewHintSet([]generator.Hint{{Kind: generator.HintIncludeProperty, SchemaPath: "#", Name: "opt"}})
		r := newRun(t, generator.Config{Seed: 1, Scenario: generator.ScenarioError})
		m := r.GenerateWithHints(s, 0, hs).Value.(map[string]any)
		if _, ok := m["opt"]; !ok || len(m) != 1 {
			t.Fatalf("got %v", m)
		}
	})
	t.Run("prefer-boundary", func(t *testing.T) {
		s := mustSchema(t, `{"type":"object","properties":{"n":{"type":"integer","minimum":1,"maximum":9}},"required":["n"]}`)
		hs := generator.NewHintSet([]generator.Hint{{Kind: generator.HintPreferBoundary, SchemaPath: "#/properties/n", Boundary: generator.BoundaryMax}})
		m := newRun(t, generator.Config{Seed: 1}).GenerateWithHints(s, 0, hs).Value.(map[string]any)
		if m["n"] != int64(9) {
			t.Fatalf("got %v", m["n"])
		}
	})
	t.Run("unsatisfied", func(t *testing.T) {
		s := mustSchema(t, `{"type":"integer"}`)
		hs := generator.NewHintSet([]generator.Hint{{Kind: generator.HintPreferBranch, SchemaPath: "#/nowhere"}})
		newRun(t, generator.Config{Seed: 1}).GenerateWithHints(s, 0, hs)
		if len(hs.Unconsumed()) != 1 {
			t.Fatalf("hint for an absent node should stay unconsumed")
		}
	})
}

func TestScenarios_PickBounds(t *testing.T) {
	s := mustSchema(t, `{"type":"object","properties":{"n":{"type":"integer","minimum":1,"maximum":9},"opt":{"type":"boolean"}},"required":["n"]}`)
	peak := generateN(t, newRun(t, generator.Config{Seed: 2, Scenario: generator.ScenarioPeak}), s, 5)
	low := generateN(t, newRun(t, generator.Config{Seed: 2, Scenario: generator.ScenarioError}), s, 5)
	for i := range peak {
		pm, lm := peak[i].(map[string]any), low[i].(map[string]any)
		if pm["n"] != int64(9) || lm["n"] != int64(1) {
			t.Fatalf("instance %d: peak %v error %v", i, pm["n"], lm["n"])
		}
		if _, ok := pm["opt"]; !ok {
			t.Fatalf("peak should include optional properties: %v", pm)
		}
		if _, ok := lm["opt"]; ok {
			t.Fatalf("error scenario should omit optional properties: %v", lm)
		}
	}
}

func TestFormats(t *testing.T) {
	s := mustSchema(t, `{"type":"string","format":"email"}`)
	for i, v := range generateN(t, newRun(t, generator.Config{Seed: 4, ValidateFormats: true}), s, 10) {
		str := v.(string)
		if !strings.Contains(str, "@") || !strings.HasSuffix(str, ".example") {
			t.Fatalf("instance %d: %q", i, str)
		}
	}

	unknown := mustSchema(t, `{"type":"string","format":"ipv4"}`)
	res := newRun(t, generator.Config{Seed: 4, ValidateFormats: true}).Generate(unknown, 0)
	if res.OK() || res.Failure.Kind != generator.FailUnsupportedFormat {
		t.Fatalf("expected unsupported-format, got %+v", res)
	}
	if res := newRun(t, generator.Config{Seed: 4}).Generate(unknown, 0); !res.OK() {
		t.Fatalf("unknown formats are annotations without validation: %v", res.Failure)
	}
}

func TestFailure_LocalizedMessage(t *testing.T) {
	s := mustSchema(t, `{"type":"integer","minimum":5,"maximum":1}`)
	en := newRun(t, generator.Config{Locale: "en"}).Generate(s, 0).Failure
	ja := newRun(t, generator.Config{Locale: "ja-JP"}).Generate(s, 0).Failure
	if en.Message == ja.Message {
		t.Fatalf("expected localized messages, both %q", en.Message)
	}
	if !strings.Contains(en.Message, "5") || en.Hint == "" {
		t.Fatalf("message should carry params and a remediation hint: %+v", en)
	}
}

func TestTable_ExamplesValidate(t *testing.T) {
	tbl := generator.NewTable(generator.TableOptions{})
	s := mustSchema(t, `{"type":"integer","minimum":3,"maximum":8,"examples":[4,100]}`)
	ex := tbl.Examples(s)
	if len(ex) == 0 {
		t.Fatalf("expected examples")
	}
	for _, e := range ex {
		if !tbl.Validate(e, s) {
			t.Fatalf("example %v does not validate", e)
		}
	}
}
