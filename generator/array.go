package generator

import (
	"math"
	"strconv"

	"github.com/reoring/fixgen/internal/pointer"
	"github.com/reoring/fixgen/jsonschema"
)

const (
	defaultItemSpan = 3
	maxItemSpan     = 64
	uniqueAttempts  = 24
)

type arrayGenerator struct{ t *Table }

func (g *arrayGenerator) Supports(s *jsonschema.Schema) bool {
	return jsonschema.Classify(s) == jsonschema.KindArray
}

func (g *arrayGenerator) Priority() int { return PriorityType }

// itemSchema returns the schema and canonical pointer of position i.
func itemSchema(s *jsonschema.Schema, sp string, i int) (*jsonschema.Schema, string) {
	prefix, rest := s.TupleItems()
	if i < len(prefix) {
		key := "prefixItems"
		if len(s.PrefixItems) == 0 {
			key = "items"
		}
		return prefix[i], pointer.Index(pointer.Join(sp, key), i)
	}
	switch {
	case len(s.PrefixItems) > 0:
		return rest, pointer.Join(sp, "items")
	case len(s.ItemsTuple) > 0:
		return rest, pointer.Join(sp, "additionalItems")
	}
	return rest, pointer.Join(sp, "items")
}

// itemBounds returns the generated length window [lo, hi] and the declared
// maximum (-1 when unbounded).
func itemBounds(s *jsonschema.Schema) (lo, hi, declaredMax int) {
	declaredMax = -1
	if s.MinItems != nil {
		lo = *s.MinItems
	}
	if s.MaxItems != nil {
		declaredMax = *s.MaxItems
		hi = min(*s.MaxItems, lo+maxItemSpan)
	} else {
		hi = lo + defaultItemSpan
	}
	prefix, rest := s.TupleItems()
	if rest.IsFalse() {
		hi = min(hi, len(prefix))
		if declaredMax < 0 || declaredMax > len(prefix) {
			declaredMax = len(prefix)
		}
	}
	return lo, hi, declaredMax
}

// distinctBound is the number of distinct values an item schema admits, or
// -1 when it is effectively unbounded.
func distinctBound(s *jsonschema.Schema) int {
	s = s.Resolve()
	switch jsonschema.Classify(s) {
	case jsonschema.KindNever:
		return 0
	case jsonschema.KindConst:
		return 1
	case jsonschema.KindEnum:
		return len(s.Enum)
	case jsonschema.KindNull:
		return 1
	case jsonschema.KindBoolean:
		return 2
	case jsonschema.KindInteger:
		if len(s.Type) > 1 {
			return -1
		}
		iv := integerInterval(s)
		if iv.loSet && iv.hiSet && iv.hi-iv.lo < math.MaxInt32 {
			n := int(iv.hi - iv.lo + 1)
			if n < 0 {
				return 0
			}
			return n
		}
	}
	return -1
}

func (g *arrayGenerator) Generate(s *jsonschema.Schema, ctx *Context) Result {
	lo, hi, declaredMax := itemBounds(s)
	if declaredMax >= 0 && lo > declaredMax {
		return ctx.fail(FailConstraint, ConstraintMinItems, map[string]any{"min": lo, "max": declaredMax})
	}
	needContains := s.Contains != nil && !s.Contains.IsTrue()
	if needContains && lo == 0 {
		lo = 1
		if hi < 1 {
			return ctx.fail(FailConstraint, ConstraintContains, nil)
		}
	}
	if ctx.AtMaxDepth() {
		if lo > 0 {
			return ctx.fail(FailDepthLimit, ConstraintDepth, map[string]any{"depth": ctx.Depth})
		}
		return Ok([]any{})
	}

	if s.UniqueItems {
		prefix, rest := s.TupleItems()
		if b := distinctBound(rest); b >= 0 {
			limit := len(prefix) + b
			if lo > limit {
				return ctx.fail(FailConstraint, ConstraintUniqueItems, map[string]any{"min": lo})
			}
			hi = min(hi, limit)
		}
	}

	n := g.length(ctx, lo, hi)
	out := make([]any, 0, n)
	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		item, sp := itemSchema(s, ctx.SchemaPath, i)
		if needContains && i == n-1 && !g.anyContains(out, s.Contains) {
			item = jsonschema.Merge(item.Resolve(), s.Contains.Resolve())
		}
		v, res, ok := g.item(s, item, ctx.Item(i, sp), seen)
		if !ok {
			return res
		}
		out = append(out, v)
	}
	if needContains && !g.anyContains(out, s.Contains) {
		return ctx.fail(FailConstraint, ConstraintContains, nil)
	}
	return Ok(out)
}

// length picks the item count: hints, then scenario, then uniform.
func (g *arrayGenerator) length(ctx *Context, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	n := lo
	switch numericSide(ctx) {
	case BoundaryMin:
	case BoundaryMax:
		n = hi
	default:
		n = lo + ctx.Rand().Intn(hi-lo+1)
	}
	if n == 0 && hi > 0 {
		if _, ok := ctx.hint(HintNonEmpty, nil); ok {
			n = 1
		}
	}
	return n
}

// item generates one element. With uniqueItems, collisions are retried on
// salted streams up to uniqueAttempts times.
func (g *arrayGenerator) item(s, item *jsonschema.Schema, ctx *Context, seen map[string]bool) (any, Result, bool) {
	res := g.t.Generate(item, ctx)
	if !res.OK() {
		return nil, res, false
	}
	if !s.UniqueItems {
		return res.Value, res, true
	}
	for attempt := 1; ; attempt++ {
		key := jsonschema.Canonical(res.Value)
		if !seen[key] {
			seen[key] = true
			return res.Value, res, true
		}
		if attempt > uniqueAttempts {
			if v, ok := g.unseen(item, seen); ok {
				seen[jsonschema.Canonical(v)] = true
				return v, Ok(v), true
			}
			return nil, ctx.fail(FailConstraint, ConstraintUniqueItems, map[string]any{"min": len(seen) + 1}), false
		}
		res = g.t.Generate(item, ctx.Salted("u"+strconv.Itoa(attempt)))
		if !res.OK() {
			return nil, res, false
		}
	}
}

// maxEnumerated bounds the domain walked by unseen.
const maxEnumerated = 1024

// unseen walks a small finite item domain in order and returns the first
// valid value not in seen.
func (g *arrayGenerator) unseen(item *jsonschema.Schema, seen map[string]bool) (any, bool) {
	for _, v := range domain(item.Resolve()) {
		if !seen[jsonschema.Canonical(v)] && g.t.Validate(v, item) {
			return v, true
		}
	}
	return nil, false
}

// domain lists every value of an enumerable schema, or nil.
func domain(s *jsonschema.Schema) []any {
	switch jsonschema.Classify(s) {
	case jsonschema.KindConst:
		return []any{cloneValue(s.Const)}
	case jsonschema.KindEnum:
		out := make([]any, len(s.Enum))
		for i, m := range s.Enum {
			out[i] = cloneValue(m)
		}
		return out
	case jsonschema.KindNull:
		return []any{nil}
	case jsonschema.KindBoolean:
		return []any{false, true}
	case jsonschema.KindInteger:
		iv := integerInterval(s)
		if !iv.loSet || !iv.hiSet || iv.hi-iv.lo >= maxEnumerated {
			return nil
		}
		var out []any
		for v := iv.lo; v <= iv.hi; v++ {
			out = append(out, int64(v))
		}
		return out
	}
	return nil
}

func (g *arrayGenerator) anyContains(items []any, contains *jsonschema.Schema) bool {
	for _, v := range items {
		if g.t.Validate(v, contains) {
			return true
		}
	}
	return false
}

func (g *arrayGenerator) Validate(v any, s *jsonschema.Schema) bool {
	arr, ok := v.([]any)
	if !ok {
		return false
	}
	if s.MinItems != nil && len(arr) < *s.MinItems {
		return false
	}
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		return false
	}
	for i, e := range arr {
		item, _ := itemSchema(s, "", i)
		if !g.t.Validate(e, item) {
			return false
		}
	}
	if s.UniqueItems {
		seen := make(map[string]bool, len(arr))
		for _, e := range arr {
			k := jsonschema.Canonical(e)
			if seen[k] {
				return false
			}
			seen[k] = true
		}
	}
	if s.Contains != nil && !g.anyContains(arr, s.Contains) {
		return false
	}
	return true
}

func (g *arrayGenerator) Examples(s *jsonschema.Schema) []any {
	out := append([]any(nil), s.Examples...)
	if s.Default != nil {
		out = append(out, s.Default)
	}
	return append(out, []any{})
}
