package coverage

import (
	"sort"
	"strconv"

	"github.com/reoring/fixgen/generator"
	"github.com/reoring/fixgen/internal/pointer"
)

// Planner defaults.
const (
	DefaultMaxUnits           = 64
	DefaultMaxHintsPerUnit    = 16
	DefaultMaxBranchesPerNode = 8
)

// Cap names reported in CapHit.
const (
	CapMaxUnits           = "maxUnits"
	CapMaxHintsPerUnit    = "maxHintsPerUnit"
	CapMaxBranchesPerNode = "maxBranchesPerNode"
)

// PlannerOptions bounds a plan. Zero fields take the defaults.
type PlannerOptions struct {
	MaxUnits           int
	MaxHintsPerUnit    int
	MaxBranchesPerNode int
}

func (o PlannerOptions) withDefaults() PlannerOptions {
	if o.MaxUnits <= 0 {
		o.MaxUnits = DefaultMaxUnits
	}
	if o.MaxHintsPerUnit <= 0 {
		o.MaxHintsPerUnit = DefaultMaxHintsPerUnit
	}
	if o.MaxBranchesPerNode <= 0 {
		o.MaxBranchesPerNode = DefaultMaxBranchesPerNode
	}
	return o
}

// Unit is one guided generation call: the hints to apply to one instance of
// Root and the targets they aim at.
type Unit struct {
	Root    Root
	Hints   []generator.Hint
	Targets []string
}

// Plan is the planner output.
type Plan struct {
	Units   []Unit
	CapsHit []CapHit
}

// Planner turns uncovered targets into hint units.
type Planner struct {
	opts PlannerOptions
}

// NewPlanner returns a planner with opts.
func NewPlanner(opts PlannerOptions) *Planner {
	return &Planner{opts: opts.withDefaults()}
}

// Plan packs the hints of uncovered greedily into units. Targets are taken
// in ID order, so equal inputs produce equal plans.
func (p *Planner) Plan(uncovered []Target) Plan {
	targets := append([]Target(nil), uncovered...)
	sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })

	var plan Plan
	branchesPerNode := map[string]int{}
	droppedBranches, droppedHints := 0, 0

	var units []Unit
	open := map[string]int{} // root key -> index of the unit being filled
	for _, tg := range targets {
		own, ok := ownHint(tg)
		if !ok && tg.Kind != KindSchemaNode {
			continue
		}
		if tg.Kind == KindOneOfBranch || tg.Kind == KindAnyOfBranch {
			node := tg.Root().Key() + "|" + pointer.Parent(pointer.Parent(tg.CanonPath))
			if branchesPerNode[node] >= p.opts.MaxBranchesPerNode {
				droppedBranches++
				continue
			}
			branchesPerNode[node]++
		}
		hints := ancestorHints(tg)
		if ok && !containsHint(hints, own) {
			hints = append(hints, own)
		}
		if len(hints) == 0 {
			continue
		}
		if over := len(hints) - p.opts.MaxHintsPerUnit; over > 0 {
			// keep the target's own hint and its nearest ancestors
			hints = hints[over:]
			droppedHints += over
		}

		idx, exists := open[tg.Root().Key()]
		if !exists || !fits(units[idx].Hints, hints, p.opts.MaxHintsPerUnit) {
			units = append(units, Unit{Root: tg.Root()})
			idx = len(units) - 1
			open[tg.Root().Key()] = idx
		}
		u := &units[idx]
		for _, h := range hints {
			if !containsHint(u.Hints, h) {
				u.Hints = append(u.Hints, h)
			}
		}
		u.Targets = append(u.Targets, tg.ID)
	}

	if droppedBranches > 0 {
		plan.CapsHit = append(plan.CapsHit, CapHit{Cap: CapMaxBranchesPerNode, Limit: p.opts.MaxBranchesPerNode, Dropped: droppedBranches})
	}
	if droppedHints > 0 {
		plan.CapsHit = append(plan.CapsHit, CapHit{Cap: CapMaxHintsPerUnit, Limit: p.opts.MaxHintsPerUnit, Dropped: droppedHints})
	}
	if len(units) > p.opts.MaxUnits {
		plan.CapsHit = append(plan.CapsHit, CapHit{Cap: CapMaxUnits, Limit: p.opts.MaxUnits, Dropped: len(units) - p.opts.MaxUnits})
		units = units[:p.opts.MaxUnits]
	}
	plan.Units = units
	return plan
}

// ownHint is the hint that targets tg directly.
func ownHint(tg Target) (generator.Hint, bool) {
	h := generator.Hint{TargetID: tg.ID}
	switch tg.Kind {
	case KindOneOfBranch, KindAnyOfBranch:
		i, err := strconv.Atoi(pointer.Last(tg.CanonPath))
		if err != nil {
			return h, false
		}
		h.Kind, h.SchemaPath, h.Index = generator.HintPreferBranch, pointer.Parent(pointer.Parent(tg.CanonPath)), i
	case KindEnumValue:
		i, err := strconv.Atoi(enumIndex(tg.ID))
		if err != nil {
			return h, false
		}
		h.Kind, h.SchemaPath, h.Index = generator.HintPreferEnum, tg.CanonPath, i
	case KindPropertyPresent:
		h.Kind, h.SchemaPath, h.Name = generator.HintIncludeProperty, pointer.Parent(pointer.Parent(tg.CanonPath)), pointer.Last(tg.CanonPath)
	case KindNumericMin, KindStringMinLength, KindArrayMinItems:
		h.Kind, h.SchemaPath, h.Boundary = generator.HintPreferBoundary, tg.CanonPath, generator.BoundaryMin
	case KindNumericMax, KindStringMaxLength, KindArrayMaxItems:
		h.Kind, h.SchemaPath, h.Boundary = generator.HintPreferBoundary, tg.CanonPath, generator.BoundaryMax
	default:
		return h, false
	}
	return h, true
}

func enumIndex(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '#' {
			return id[i+1:]
		}
	}
	return ""
}

// ancestorHints derives the hints that steer generation down to the
// target's node: include-property for every properties/<name> step,
// prefer-branch for oneOf/anyOf steps and non-empty for items steps.
func ancestorHints(tg Target) []generator.Hint {
	tokens := pointer.Split(tg.CanonPath)
	base := pointer.Root
	if len(tokens) > 0 && (tokens[0] == "$defs" || tokens[0] == "definitions" || tokens[0] == "components") {
		// the reference site is unknown; start below the definition
		n := 2
		if tokens[0] == "components" {
			n = 3
		}
		if len(tokens) < n {
			return nil
		}
		base = pointer.Join(base, tokens[:n]...)
		tokens = tokens[n:]
	}
	var out []generator.Hint
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == "properties" && i+1 < len(tokens):
			out = append(out, generator.Hint{Kind: generator.HintIncludeProperty, SchemaPath: base, Name: tokens[i+1], TargetID: tg.ID})
		case (tok == "oneOf" || tok == "anyOf") && i+1 < len(tokens):
			if idx, err := strconv.Atoi(tokens[i+1]); err == nil {
				out = append(out, generator.Hint{Kind: generator.HintPreferBranch, SchemaPath: base, Index: idx, TargetID: tg.ID})
			}
		case tok == "items" || tok == "additionalItems" || tok == "prefixItems":
			out = append(out, generator.Hint{Kind: generator.HintNonEmpty, SchemaPath: base, TargetID: tg.ID})
			base = pointer.Join(base, tok)
			continue
		default:
			base = pointer.Join(base, tok)
			continue
		}
		base = pointer.Join(base, tok, tokens[i+1])
		i++
	}
	return out
}

// fits reports whether hints can join have without a conflicting hint
// for the same node or exceeding limit.
func fits(have, hints []generator.Hint, limit int) bool {
	n := len(have)
	for _, h := range hints {
		if containsHint(have, h) {
			continue
		}
		for _, x := range have {
			if x.Kind == h.Kind && x.SchemaPath == h.SchemaPath && h.Kind != generator.HintIncludeProperty {
				return false
			}
		}
		n++
	}
	return n <= limit
}

func containsHint(list []generator.Hint, h generator.Hint) bool {
	for _, x := range list {
		if x.Kind == h.Kind && x.SchemaPath == h.SchemaPath && x.Index == h.Index && x.Name == h.Name && x.Boundary == h.Boundary {
			return true
		}
	}
	return false
}
