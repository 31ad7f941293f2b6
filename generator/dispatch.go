// Package generator turns JSON Schema nodes into concrete values.
//
// Every node is dispatched through a priority-ordered Table: enum and const
// outrank $ref and composition, which outrank the type generators. Each
// generator is a pure function of (schema, Context); its randomness comes
// from the Context's stream, keyed by seed and instance path, so identical
// inputs always replay identical values. Failures are returned as Result
// values, never panics.
package generator

import (
	"sort"

	"github.com/reoring/fixgen/internal/numeric"
	"github.com/reoring/fixgen/jsonschema"
)

// Generator produces and checks values for the schema nodes it supports.
type Generator interface {
	Supports(s *jsonschema.Schema) bool
	Generate(s *jsonschema.Schema, ctx *Context) Result
	// Validate is the generator's own constraint check, used to self-check
	// generated values and to filter enum/const candidates.
	Validate(v any, s *jsonschema.Schema) bool
	// Examples returns sample values that satisfy s.
	Examples(s *jsonschema.Schema) []any
	Priority() int
}

// Dispatch priorities.
const (
	PriorityNever       = 1000
	PriorityEnum        = 100
	PriorityConst       = 100
	PriorityRef         = 90
	PriorityComposition = 80
	PriorityType        = 10
	PriorityAny         = 0
)

// TableOptions configures a Table.
type TableOptions struct {
	// ValidateFormats makes unknown formats a failure and checks generated
	// format values.
	ValidateFormats bool
}

// Table is the priority-ordered dispatch table. A Table is immutable after
// construction and safe to share between runs.
type Table struct {
	opts     TableOptions
	mode     numeric.Mode
	gens     []Generator
	byKind   map[jsonschema.Kind]Generator
	patterns *patternCache
	strict   *Table
}

// NewTable returns the table with every built-in generator registered.
func NewTable(opts TableOptions) *Table {
	pc := &patternCache{}
	t := newTable(opts, numeric.Tolerant, pc)
	t.strict = newTable(opts, numeric.Strict, pc)
	t.strict.strict = t.strict
	return t
}

func newTable(opts TableOptions, mode numeric.Mode, pc *patternCache) *Table {
	t := &Table{opts: opts, mode: mode, patterns: pc, byKind: map[jsonschema.Kind]Generator{}}
	t.register(jsonschema.KindNever, &neverGenerator{})
	t.register(jsonschema.KindEnum, &enumGenerator{t: t})
	t.register(jsonschema.KindConst, &constGenerator{t: t})
	t.register(jsonschema.KindRef, &refGenerator{t: t})
	t.register(jsonschema.KindAllOf, &allOfGenerator{t: t})
	t.register(jsonschema.KindOneOf, &branchGenerator{t: t, kind: jsonschema.KindOneOf})
	t.register(jsonschema.KindAnyOf, &branchGenerator{t: t, kind: jsonschema.KindAnyOf})
	t.register(jsonschema.KindBoolean, &booleanGenerator{})
	t.register(jsonschema.KindInteger, &integerGenerator{t: t})
	t.register(jsonschema.KindNumber, &numberGenerator{t: t})
	t.register(jsonschema.KindString, &stringGenerator{t: t})
	t.register(jsonschema.KindArray, &arrayGenerator{t: t})
	t.register(jsonschema.KindObject, &objectGenerator{t: t})
	t.register(jsonschema.KindNull, &nullGenerator{})
	t.register(jsonschema.KindAny, &anyGenerator{})
	sort.SliceStable(t.gens, func(i, j int) bool { return t.gens[i].Priority() > t.gens[j].Priority() })
	return t
}

func (t *Table) register(k jsonschema.Kind, g Generator) {
	t.gens = append(t.gens, g)
	t.byKind[k] = g
}

// Strict returns the view of the table whose numeric checks use exact
// multipleOf arithmetic.
func (t *Table) Strict() *Table { return t.strict }

// Lookup returns the highest priority generator supporting s.
func (t *Table) Lookup(s *jsonschema.Schema) Generator {
	for _, g := range t.gens {
		if g.Supports(s) {
			return g
		}
	}
	return t.byKind[jsonschema.KindAny]
}

// Generate dispatches s and self-checks the produced value.
func (t *Table) Generate(s *jsonschema.Schema, ctx *Context) Result {
	g := t.Lookup(s)
	res := g.Generate(s, ctx)
	if res.OK() && !g.Validate(res.Value, s) {
		return ctx.fail(FailConstraint, ConstraintSelfCheck, map[string]any{"kind": jsonschema.Classify(s).String()})
	}
	return res
}

// Validate reports whether v satisfies s. Type-generator schemas route on the
// JSON type of v, so `type` lists and untyped schemas are checked the way a
// validator checks them.
func (t *Table) Validate(v any, s *jsonschema.Schema) bool {
	if s.IsTrue() {
		return true
	}
	k := jsonschema.Classify(s)
	if !isTypeKind(k) {
		return t.Lookup(s).Validate(v, s)
	}
	if v == nil && s.Nullable {
		return true
	}
	vk := valueKind(v)
	switch {
	case vk == jsonschema.KindNever:
		return false
	case len(s.Type) == 0:
		// untyped: keywords of other types do not apply
	case s.Type.Has(vk.String()):
	case vk == jsonschema.KindInteger && s.Type.Has("number"):
	default:
		return false
	}
	return t.byKind[vk].Validate(v, s)
}

// Examples returns the examples of the generator for s that validate.
func (t *Table) Examples(s *jsonschema.Schema) []any {
	var out []any
	for _, e := range t.Lookup(s).Examples(s) {
		if t.Validate(e, s) {
			out = append(out, e)
		}
	}
	return out
}

func isTypeKind(k jsonschema.Kind) bool {
	switch k {
	case jsonschema.KindBoolean, jsonschema.KindInteger, jsonschema.KindNumber, jsonschema.KindString,
		jsonschema.KindArray, jsonschema.KindObject, jsonschema.KindNull:
		return true
	}
	// KindAny covers untyped schemas, whose keywords still apply per type.
	return k == jsonschema.KindAny
}

// valueKind maps the JSON type of v to the generator kind that checks it.
func valueKind(v any) jsonschema.Kind {
	if k, ok := jsonschema.TypeKind(jsonschema.TypeName(v)); ok {
		return k
	}
	return jsonschema.KindNever
}
