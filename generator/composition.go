package generator

import (
	"strconv"

	"github.com/reoring/fixgen/internal/pointer"
	"github.com/reoring/fixgen/jsonschema"
)

// refGenerator follows a resolved $ref. Keywords next to the $ref are merged
// into the target.
type refGenerator struct{ t *Table }

func (g *refGenerator) Supports(s *jsonschema.Schema) bool {
	return jsonschema.Classify(s) == jsonschema.KindRef
}

func (g *refGenerator) Priority() int { return PriorityRef }

// split returns the target and the sibling keywords; siblings is nil when
// the node is a bare reference.
func (g *refGenerator) split(s *jsonschema.Schema) (target, siblings *jsonschema.Schema) {
	target = s.Target.Resolve()
	sib := s.Clone()
	sib.Ref, sib.Target = "", nil
	if m, ok := sib.ToValue().(map[string]any); ok && len(m) == 0 {
		return target, nil
	}
	return target, sib
}

func (g *refGenerator) Generate(s *jsonschema.Schema, ctx *Context) Result {
	// a reference cycle with no container in between never reaches a base case
	if ctx.Depth > ctx.run.cfg.MaxDepth {
		return ctx.fail(FailDepthLimit, ConstraintDepth, map[string]any{"depth": ctx.Depth})
	}
	target, sib := g.split(s)
	eff := target
	if sib != nil {
		eff = jsonschema.Merge(sib, target)
	}
	return g.t.Generate(eff, ctx.Descend(s.Ref))
}

func (g *refGenerator) Validate(v any, s *jsonschema.Schema) bool {
	target, sib := g.split(s)
	if !g.t.Validate(v, target) {
		return false
	}
	return sib == nil || g.t.Validate(v, sib)
}

func (g *refGenerator) Examples(s *jsonschema.Schema) []any {
	target, _ := g.split(s)
	return g.t.Lookup(target).Examples(target)
}

// allOfGenerator generates against the merge of the parent keywords and
// every branch.
type allOfGenerator struct{ t *Table }

func (g *allOfGenerator) Supports(s *jsonschema.Schema) bool {
	return jsonschema.Classify(s) == jsonschema.KindAllOf
}

func (g *allOfGenerator) Priority() int { return PriorityComposition }

func (g *allOfGenerator) base(s *jsonschema.Schema) *jsonschema.Schema {
	b := s.Clone()
	b.AllOf = nil
	return b
}

func (g *allOfGenerator) Generate(s *jsonschema.Schema, ctx *Context) Result {
	merged := g.base(s)
	for _, b := range s.AllOf {
		merged = jsonschema.Merge(merged, b.Resolve())
	}
	if merged.IsFalse() {
		return ctx.fail(FailConstraint, ConstraintFalseSchema, map[string]any{"keyword": "allOf"})
	}
	return g.t.Generate(merged, ctx)
}

func (g *allOfGenerator) Validate(v any, s *jsonschema.Schema) bool {
	if !g.t.Validate(v, g.base(s)) {
		return false
	}
	for _, b := range s.AllOf {
		if !g.t.Validate(v, b) {
			return false
		}
	}
	return true
}

func (g *allOfGenerator) Examples(s *jsonschema.Schema) []any {
	var out []any
	for _, b := range s.AllOf {
		out = append(out, g.t.Examples(b)...)
	}
	return out
}

// branchRounds bounds how many times each branch is tried.
const branchRounds = 8

// branchGenerator serves oneOf and anyOf. Branches are tried in rotation
// from a hinted or randomly drawn start, each merged with the parent
// keywords. For oneOf a value is accepted only when exactly one branch
// validates it.
type branchGenerator struct {
	t    *Table
	kind jsonschema.Kind
}

func (g *branchGenerator) Supports(s *jsonschema.Schema) bool {
	return jsonschema.Classify(s) == g.kind
}

func (g *branchGenerator) Priority() int { return PriorityComposition }

// split returns the parent keywords and the branches of g's keyword.
func (g *branchGenerator) split(s *jsonschema.Schema) (*jsonschema.Schema, []*jsonschema.Schema) {
	parent := s.Clone()
	if g.kind == jsonschema.KindOneOf {
		parent.OneOf = nil
		return parent, s.OneOf
	}
	parent.AnyOf = nil
	return parent, s.AnyOf
}

func (g *branchGenerator) constraint() string {
	if g.kind == jsonschema.KindOneOf {
		return ConstraintOneOf
	}
	return ConstraintAnyOf
}

func (g *branchGenerator) Generate(s *jsonschema.Schema, ctx *Context) Result {
	parent, branches := g.split(s)
	n := len(branches)
	var start int
	if h, ok := ctx.hint(HintPreferBranch, func(h Hint) bool { return h.Index >= 0 && h.Index < n }); ok {
		start = h.Index
	} else {
		start = ctx.Rand().Intn(n)
	}
	keyword := g.kind.String()
	merged := make([]*jsonschema.Schema, n)
	for i, b := range branches {
		merged[i] = jsonschema.Merge(parent, b.Resolve())
	}
	// The first round draws on the node's own stream; later rounds retry each
	// branch on a salted stream, so overlapping oneOf branches get fresh
	// candidates.
	for round := 0; round < branchRounds; round++ {
		for k := 0; k < n; k++ {
			i := (start + k) % n
			if merged[i].IsFalse() {
				continue
			}
			bctx := ctx.Branch(pointer.Index(pointer.Join(ctx.SchemaPath, keyword), i))
			if round > 0 {
				bctx = bctx.Salted("b" + strconv.Itoa(i) + "." + strconv.Itoa(round))
			}
			res := g.t.Generate(merged[i], bctx)
			if !res.OK() {
				continue
			}
			if g.kind == jsonschema.KindOneOf && g.matches(res.Value, branches) != 1 {
				continue
			}
			return res
		}
	}
	return ctx.fail(FailConstraint, g.constraint(), map[string]any{"branches": n})
}

func (g *branchGenerator) matches(v any, branches []*jsonschema.Schema) int {
	n := 0
	for _, b := range branches {
		if g.t.Validate(v, b) {
			n++
		}
	}
	return n
}

func (g *branchGenerator) Validate(v any, s *jsonschema.Schema) bool {
	parent, branches := g.split(s)
	if !g.t.Validate(v, parent) {
		return false
	}
	n := g.matches(v, branches)
	if g.kind == jsonschema.KindOneOf {
		return n == 1
	}
	return n > 0
}

func (g *branchGenerator) Examples(s *jsonschema.Schema) []any {
	_, branches := g.split(s)
	var out []any
	for _, b := range branches {
		out = append(out, g.t.Examples(b)...)
	}
	return out
}
