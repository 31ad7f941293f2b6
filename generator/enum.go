package generator

import (
	"github.com/Laisky/errors/v2"

	"github.com/reoring/fixgen/jsonschema"
)

// EnumStrategy selects how an enum member is picked.
type EnumStrategy string

const (
	EnumUniform    EnumStrategy = "uniform"
	EnumWeighted   EnumStrategy = "weighted"
	EnumRoundRobin EnumStrategy = "round-robin"
	EnumFirst      EnumStrategy = "first"
	EnumLast       EnumStrategy = "last"
)

// ParseEnumStrategy validates a strategy name; "" means uniform.
func ParseEnumStrategy(s string) (EnumStrategy, error) {
	switch EnumStrategy(s) {
	case "":
		return EnumUniform, nil
	case EnumUniform, EnumWeighted, EnumRoundRobin, EnumFirst, EnumLast:
		return EnumStrategy(s), nil
	}
	return "", errors.Errorf("unknown enum strategy %q", s)
}

// siblings returns s without enum and const, i.e. the keywords an enum or
// const value must additionally satisfy.
func siblings(s *jsonschema.Schema) *jsonschema.Schema {
	c := s.Clone()
	c.Enum, c.HasEnum = nil, false
	c.Const, c.HasConst = nil, false
	return c
}

type enumGenerator struct{ t *Table }

func (g *enumGenerator) Supports(s *jsonschema.Schema) bool { return s != nil && s.HasEnum }

func (g *enumGenerator) Priority() int { return PriorityEnum }

// candidates returns the indices of the members that pass the sibling
// keywords under the strict numeric check.
func (g *enumGenerator) candidates(s *jsonschema.Schema, ctx *Context) []int {
	return ctx.run.memoize(memoKey("enum", s), func() any {
		sib := siblings(s)
		strict := g.t.Strict()
		var out []int
		for i, m := range s.Enum {
			if strict.Validate(m, sib) {
				out = append(out, i)
			}
		}
		return out
	}).([]int)
}

func (g *enumGenerator) Generate(s *jsonschema.Schema, ctx *Context) Result {
	cands := g.candidates(s, ctx)
	if len(cands) == 0 {
		return ctx.fail(FailConstraint, ConstraintEnum, map[string]any{"members": len(s.Enum)})
	}
	if h, ok := ctx.hint(HintPreferEnum, func(h Hint) bool { return containsInt(cands, h.Index) }); ok {
		return Ok(cloneValue(s.Enum[h.Index]))
	}
	return Ok(cloneValue(s.Enum[g.pick(s, cands, ctx)]))
}

func (g *enumGenerator) pick(s *jsonschema.Schema, cands []int, ctx *Context) int {
	cfg := ctx.run.cfg
	switch cfg.EnumStrategy {
	case EnumFirst:
		return cands[0]
	case EnumLast:
		return cands[len(cands)-1]
	case EnumRoundRobin:
		key := ctx.SchemaPath + "|" + jsonschema.Canonical(s.Enum)
		return cands[ctx.run.nextRoundRobin(key, len(cands))]
	case EnumWeighted:
		if i, ok := weightedPick(cfg.EnumWeights[ctx.SchemaPath], cands, ctx); ok {
			return i
		}
	}
	switch ctx.bias() {
	case ScenarioEdge:
		if ctx.Rand().Bool() {
			return cands[len(cands)-1]
		}
		return cands[0]
	case ScenarioPeak:
		return cands[len(cands)-1]
	case ScenarioError:
		return cands[0]
	}
	return cands[ctx.Rand().Intn(len(cands))]
}

// weightedPick samples cands by the cumulative distribution of their
// normalized weights. Missing or non-positive weight vectors report !ok.
func weightedPick(weights []float64, cands []int, ctx *Context) (int, bool) {
	var total float64
	for _, i := range cands {
		if i < len(weights) && weights[i] > 0 {
			total += weights[i]
		}
	}
	if total <= 0 {
		return 0, false
	}
	r := ctx.Rand().Float64()
	var acc float64
	last := -1
	for _, i := range cands {
		if i >= len(weights) || weights[i] <= 0 {
			continue
		}
		acc += weights[i] / total
		last = i
		if r < acc {
			return i, true
		}
	}
	return last, true
}

func (g *enumGenerator) Validate(v any, s *jsonschema.Schema) bool {
	for _, m := range s.Enum {
		if jsonschema.Equal(v, m) {
			return g.t.Validate(v, siblings(s))
		}
	}
	return false
}

func (g *enumGenerator) Examples(s *jsonschema.Schema) []any {
	return append([]any(nil), s.Enum...)
}

type constGenerator struct{ t *Table }

func (g *constGenerator) Supports(s *jsonschema.Schema) bool { return s != nil && s.HasConst }

func (g *constGenerator) Priority() int { return PriorityConst }

func (g *constGenerator) Generate(s *jsonschema.Schema, ctx *Context) Result {
	if !g.t.Strict().Validate(s.Const, siblings(s)) {
		return ctx.fail(FailConstraint, ConstraintConst, map[string]any{"const": jsonschema.Canonical(s.Const)})
	}
	return Ok(cloneValue(s.Const))
}

func (g *constGenerator) Validate(v any, s *jsonschema.Schema) bool {
	return jsonschema.Equal(v, s.Const) && g.t.Validate(v, siblings(s))
}

func (g *constGenerator) Examples(s *jsonschema.Schema) []any { return []any{s.Const} }

func containsInt(list []int, x int) bool {
	for _, v := range list {
		if v == x {
			return true
		}
	}
	return false
}
