package generator

import (
	"strconv"

	"github.com/reoring/fixgen/internal/pointer"
	"github.com/reoring/fixgen/jsonschema"
)

// optionalWeight is the inclusion probability of an optional property.
const optionalWeight = 0.5

type objectGenerator struct{ t *Table }

func (g *objectGenerator) Supports(s *jsonschema.Schema) bool {
	return jsonschema.Classify(s) == jsonschema.KindObject
}

func (g *objectGenerator) Priority() int { return PriorityType }

// propertySchema returns the schema for member name and its canonical
// pointer. Declared properties win; matching patternProperties are merged
// in; otherwise additionalProperties applies. ok is false when the object
// admits no such member.
func (g *objectGenerator) propertySchema(s *jsonschema.Schema, sp, name string) (*jsonschema.Schema, string, bool) {
	var out *jsonschema.Schema
	var at string
	if p, ok := s.Properties[name]; ok {
		out, at = p, pointer.Join(sp, "properties", name)
	}
	for _, pat := range jsonschema.SortedKeys(s.PatternProperties) {
		if ok, _ := g.t.patterns.match(pat, name); !ok {
			continue
		}
		pp := s.PatternProperties[pat]
		if out == nil {
			out, at = pp, pointer.Join(sp, "patternProperties", pat)
			continue
		}
		out = jsonschema.Merge(out.Resolve(), pp.Resolve())
	}
	if out != nil {
		return out, at, true
	}
	if s.AdditionalProperties.IsFalse() {
		return nil, "", false
	}
	return s.AdditionalProperties, pointer.Join(sp, "additionalProperties"), true
}

// closure adds the dependentRequired names of every present member until
// nothing changes.
func closure(s *jsonschema.Schema, names []string, present map[string]bool) []string {
	for i := 0; i < len(names); i++ {
		for _, dep := range s.DependentRequired[names[i]] {
			if !present[dep] {
				present[dep] = true
				names = append(names, dep)
			}
		}
	}
	return names
}

func (g *objectGenerator) Generate(s *jsonschema.Schema, ctx *Context) Result {
	minProps, maxProps := 0, -1
	if s.MinProperties != nil {
		minProps = *s.MinProperties
	}
	if s.MaxProperties != nil {
		maxProps = *s.MaxProperties
		if minProps > maxProps {
			return ctx.fail(FailSchemaStructure, ConstraintMinProperties, map[string]any{"min": minProps, "max": maxProps})
		}
	}
	for _, name := range s.Required {
		// a required name needs a declared, pattern or explicit additional schema
		if ps, _, ok := g.propertySchema(s, ctx.SchemaPath, name); !ok || ps == nil {
			return ctx.fail(FailSchemaStructure, ConstraintRequired, map[string]any{"name": name})
		}
	}
	if ctx.AtMaxDepth() {
		if len(s.Required) > 0 || minProps > 0 {
			return ctx.fail(FailDepthLimit, ConstraintDepth, map[string]any{"depth": ctx.Depth})
		}
		return Ok(map[string]any{})
	}

	present := map[string]bool{}
	var names []string
	for _, name := range s.Required {
		if !present[name] {
			present[name] = true
			names = append(names, name)
		}
	}
	names = closure(s, names, present)
	if maxProps >= 0 && len(names) > maxProps {
		return ctx.fail(FailSchemaStructure, ConstraintMaxProperties, map[string]any{"max": maxProps, "required": len(names)})
	}

	for _, name := range g.optionalOrder(s, ctx) {
		if present[name] {
			continue
		}
		next := map[string]bool{name: true}
		for k := range present {
			next[k] = true
		}
		grown := closure(s, append(append([]string(nil), names...), name), next)
		if maxProps >= 0 && len(grown) > maxProps {
			continue
		}
		names, present = grown, next
	}

	// dependent schemas of present members tighten the object
	eff := s
	for _, name := range names {
		if dep, ok := s.DependentSchemas[name]; ok {
			eff = jsonschema.Merge(eff, dep.Resolve())
		}
	}
	if eff != s {
		for _, name := range eff.Required {
			if !present[name] {
				present[name] = true
				names = append(names, name)
			}
		}
		names = closure(eff, names, present)
	}

	out := make(map[string]any, len(names))
	for _, name := range names {
		ps, at, ok := g.propertySchema(eff, ctx.SchemaPath, name)
		if !ok {
			return ctx.fail(FailSchemaStructure, ConstraintRequired, map[string]any{"name": name})
		}
		res := g.t.Generate(ps, ctx.Property(name, at))
		if !res.OK() {
			return res
		}
		out[name] = res.Value
	}

	if len(out) < minProps {
		if res, ok := g.fill(eff, ctx, out, minProps); !ok {
			return res
		}
	}
	return Ok(out)
}

// optionalOrder returns the optional members to include, in the order they
// are considered. Hinted members come first; scenario peak takes every
// member, edge and error none, normal each with optionalWeight.
func (g *objectGenerator) optionalOrder(s *jsonschema.Schema, ctx *Context) []string {
	var hinted, drawn []string
	sc := ctx.bias()
	for _, name := range s.PropertyNames() {
		if s.IsRequired(name) || s.Properties[name].IsFalse() {
			continue
		}
		if _, ok := ctx.hint(HintIncludeProperty, func(h Hint) bool { return h.Name == name }); ok {
			hinted = append(hinted, name)
			continue
		}
		switch sc {
		case ScenarioPeak:
			drawn = append(drawn, name)
		case ScenarioEdge, ScenarioError:
		default:
			if ctx.Rand().Float64() < optionalWeight {
				drawn = append(drawn, name)
			}
		}
	}
	return append(hinted, drawn...)
}

// fill adds members until out reaches minProps: remaining declared
// properties first, then generated names admitted by additionalProperties.
func (g *objectGenerator) fill(s *jsonschema.Schema, ctx *Context, out map[string]any, minProps int) (Result, bool) {
	add := func(name string) (Result, bool) {
		ps, at, ok := g.propertySchema(s, ctx.SchemaPath, name)
		if !ok {
			return Result{}, true
		}
		if ps == nil {
			ps = &jsonschema.Schema{Type: jsonschema.TypeSet{"string"}}
		}
		res := g.t.Generate(ps, ctx.Property(name, at))
		if !res.OK() {
			return res, false
		}
		out[name] = res.Value
		return Result{}, true
	}
	for _, name := range s.PropertyNames() {
		if len(out) >= minProps {
			return Result{}, true
		}
		if _, ok := out[name]; ok || s.Properties[name].IsFalse() || len(s.DependentRequired[name]) > 0 {
			continue
		}
		if res, ok := add(name); !ok {
			return res, false
		}
	}
	if !s.AdditionalProperties.IsFalse() {
		for i := 1; len(out) < minProps && i <= minProps+len(s.Properties); i++ {
			name := "extra" + strconv.Itoa(i)
			if _, ok := out[name]; ok {
				continue
			}
			if res, ok := add(name); !ok {
				return res, false
			}
		}
	}
	if len(out) < minProps {
		return ctx.fail(FailSchemaStructure, ConstraintMinProperties, map[string]any{"min": minProps, "max": len(out)}), false
	}
	return Result{}, true
}

func (g *objectGenerator) Validate(v any, s *jsonschema.Schema) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if s.MinProperties != nil && len(obj) < *s.MinProperties {
		return false
	}
	if s.MaxProperties != nil && len(obj) > *s.MaxProperties {
		return false
	}
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			return false
		}
	}
	for name, deps := range s.DependentRequired {
		if _, ok := obj[name]; !ok {
			continue
		}
		for _, d := range deps {
			if _, ok := obj[d]; !ok {
				return false
			}
		}
	}
	for name, dep := range s.DependentSchemas {
		if _, ok := obj[name]; ok && !g.t.Validate(v, dep) {
			return false
		}
	}
	for name, val := range obj {
		ps, _, ok := g.propertySchema(s, "", name)
		if !ok || !g.t.Validate(val, ps) {
			return false
		}
	}
	return true
}

func (g *objectGenerator) Examples(s *jsonschema.Schema) []any {
	out := append([]any(nil), s.Examples...)
	if s.Default != nil {
		out = append(out, s.Default)
	}
	return append(out, map[string]any{})
}
