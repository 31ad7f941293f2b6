package generator

import "github.com/reoring/fixgen/jsonschema"

type booleanGenerator struct{}

func (booleanGenerator) Supports(s *jsonschema.Schema) bool {
	return jsonschema.Classify(s) == jsonschema.KindBoolean
}

func (booleanGenerator) Priority() int { return PriorityType }

func (booleanGenerator) Generate(_ *jsonschema.Schema, ctx *Context) Result {
	return Ok(ctx.Rand().Float64() < 0.5)
}

func (booleanGenerator) Validate(v any, _ *jsonschema.Schema) bool {
	_, ok := v.(bool)
	return ok
}

func (booleanGenerator) Examples(*jsonschema.Schema) []any { return []any{true, false} }

type nullGenerator struct{}

func (nullGenerator) Supports(s *jsonschema.Schema) bool {
	return jsonschema.Classify(s) == jsonschema.KindNull
}

func (nullGenerator) Priority() int { return PriorityType }

func (nullGenerator) Generate(*jsonschema.Schema, *Context) Result { return Ok(nil) }

func (nullGenerator) Validate(v any, _ *jsonschema.Schema) bool { return v == nil }

func (nullGenerator) Examples(*jsonschema.Schema) []any { return []any{nil} }

// anyGenerator serves `true`, `{}` and schemas whose keywords constrain no
// particular type. It emits a small scalar of a randomly chosen type.
type anyGenerator struct{}

func (anyGenerator) Supports(s *jsonschema.Schema) bool {
	return jsonschema.Classify(s) == jsonschema.KindAny
}

func (anyGenerator) Priority() int { return PriorityAny }

func (anyGenerator) Generate(_ *jsonschema.Schema, ctx *Context) Result {
	r := ctx.Rand()
	switch r.Intn(4) {
	case 0:
		return Ok(nil)
	case 1:
		return Ok(r.Bool())
	case 2:
		return Ok(int64(r.Intn(2001)) - 1000)
	default:
		return Ok(randomWord(r, 1+r.Intn(8)))
	}
}

func (anyGenerator) Validate(v any, _ *jsonschema.Schema) bool {
	return jsonschema.TypeName(v) != ""
}

func (anyGenerator) Examples(*jsonschema.Schema) []any { return []any{nil, true, int64(0), "x"} }

// neverGenerator serves the `false` schema.
type neverGenerator struct{}

func (neverGenerator) Supports(s *jsonschema.Schema) bool { return s.IsFalse() }

func (neverGenerator) Priority() int { return PriorityNever }

func (neverGenerator) Generate(_ *jsonschema.Schema, ctx *Context) Result {
	return ctx.fail(FailConstraint, ConstraintFalseSchema, nil)
}

func (neverGenerator) Validate(any, *jsonschema.Schema) bool { return false }

func (neverGenerator) Examples(*jsonschema.Schema) []any { return nil }
