package generator

import (
	"math"
	"slices"

	"github.com/reoring/fixgen/internal/numeric"
	"github.com/reoring/fixgen/jsonschema"
)

const (
	// defaultNumericWindow is the span used for a missing bound.
	defaultNumericWindow = 1000
	// segmentSize is the largest index range sampled in one draw; wider
	// multipleOf ranges pick a segment first.
	segmentSize = 1_000_000
	// reconstructAttempts bounds the neighbouring indices tried when k*step
	// does not round-trip.
	reconstructAttempts = 32
)

// interval is an inclusive numeric range after exclusive-bound normalization.
type interval struct {
	lo, hi       float64
	exclusive    bool // an exclusive keyword took part
	loSet, hiSet bool
}

// draft04Exclusive reports a Draft-04 boolean exclusive bound.
func draft04Exclusive(s *jsonschema.Schema) bool {
	return (s.ExclusiveMinimum != nil && s.ExclusiveMinimum.IsBool) ||
		(s.ExclusiveMaximum != nil && s.ExclusiveMaximum.IsBool)
}

// numberInterval folds minimum/maximum and exclusive bounds into an inclusive
// interval. Exclusive bounds move by one ULP.
func numberInterval(s *jsonschema.Schema) interval {
	iv := interval{lo: math.Inf(-1), hi: math.Inf(1)}
	if s.Minimum != nil {
		iv.lo, iv.loSet = *s.Minimum, true
	}
	if s.Maximum != nil {
		iv.hi, iv.hiSet = *s.Maximum, true
	}
	if b := s.ExclusiveMinimum; b != nil && !b.IsBool {
		if v := numeric.NextUp(b.Value); !iv.loSet || v > iv.lo {
			iv.lo = v
		}
		iv.loSet, iv.exclusive = true, true
	}
	if b := s.ExclusiveMaximum; b != nil && !b.IsBool {
		if v := numeric.NextDown(b.Value); !iv.hiSet || v < iv.hi {
			iv.hi = v
		}
		iv.hiSet, iv.exclusive = true, true
	}
	return iv
}

// integerInterval is numberInterval for integers: floor(exMin)+1 and
// ceil(exMax)-1, non-integral inclusive bounds rounded inward.
func integerInterval(s *jsonschema.Schema) interval {
	iv := interval{lo: math.Inf(-1), hi: math.Inf(1)}
	if s.Minimum != nil {
		iv.lo, iv.loSet = math.Ceil(*s.Minimum), true
	}
	if s.Maximum != nil {
		iv.hi, iv.hiSet = math.Floor(*s.Maximum), true
	}
	if b := s.ExclusiveMinimum; b != nil && !b.IsBool {
		if v := math.Floor(b.Value) + 1; !iv.loSet || v > iv.lo {
			iv.lo = v
		}
		iv.loSet, iv.exclusive = true, true
	}
	if b := s.ExclusiveMaximum; b != nil && !b.IsBool {
		if v := math.Ceil(b.Value) - 1; !iv.hiSet || v < iv.hi {
			iv.hi = v
		}
		iv.hiSet, iv.exclusive = true, true
	}
	return iv
}

// window fills missing bounds with a finite default span.
func (iv interval) window() interval {
	switch {
	case !iv.loSet && !iv.hiSet:
		iv.lo, iv.hi = -defaultNumericWindow, defaultNumericWindow
	case !iv.loSet:
		iv.lo = iv.hi - defaultNumericWindow
	case !iv.hiSet:
		iv.hi = iv.lo + defaultNumericWindow
	}
	return iv
}

// failure reports an empty interval.
func (iv interval) failure(ctx *Context) Result {
	params := map[string]any{"min": iv.lo, "max": iv.hi}
	if iv.exclusive {
		return ctx.fail(FailConstraint, ConstraintExclusiveBounds, params)
	}
	return ctx.fail(FailConstraint, ConstraintRange, params)
}

// numericSide resolves which end of a range a node should favour: hints
// first, then the scenario. "" means uniform.
func numericSide(ctx *Context) string {
	if h, ok := ctx.hint(HintPreferBoundary, nil); ok {
		return h.Boundary
	}
	switch ctx.bias() {
	case ScenarioEdge:
		if ctx.Rand().Bool() {
			return BoundaryMax
		}
		return BoundaryMin
	case ScenarioPeak:
		return BoundaryMax
	case ScenarioError:
		return BoundaryMin
	}
	return ""
}

// checkNumber applies the numeric keywords to f.
func checkNumber(f float64, s *jsonschema.Schema, mode numeric.Mode) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	if s.Minimum != nil && f < *s.Minimum {
		return false
	}
	if s.Maximum != nil && f > *s.Maximum {
		return false
	}
	// -0 is not > 0: the comparison below rejects it for exclusiveMinimum 0.
	if b := s.ExclusiveMinimum; b != nil {
		if b.IsBool {
			if b.Flag && s.Minimum != nil && f <= *s.Minimum {
				return false
			}
		} else if !(f > b.Value) {
			return false
		}
	}
	if b := s.ExclusiveMaximum; b != nil {
		if b.IsBool {
			if b.Flag && s.Maximum != nil && f >= *s.Maximum {
				return false
			}
		} else if !(f < b.Value) {
			return false
		}
	}
	if s.MultipleOf != nil && !numeric.MultipleOf(f, *s.MultipleOf, mode) {
		return false
	}
	return true
}

// pickIndex chooses an index in [kmin, kmax]. Ranges above segmentSize pick a
// segment, then an offset inside it.
func pickIndex(ctx *Context, kmin, kmax int64, side string) int64 {
	switch side {
	case BoundaryMin:
		return kmin
	case BoundaryMax:
		return kmax
	}
	n := kmax - kmin + 1
	if n <= segmentSize {
		return kmin + ctx.Rand().Int63n(n)
	}
	segments := (n + segmentSize - 1) / segmentSize
	seg := ctx.Rand().Int63n(segments)
	start := kmin + seg*segmentSize
	size := min(int64(segmentSize), kmax-start+1)
	return start + ctx.Rand().Int63n(size)
}

// indexRange returns [ceil(lo/step), floor(hi/step)] with ratios that are
// within rounding of an integer snapped to it.
func indexRange(lo, hi, step float64) (kmin, kmax float64) {
	kmin = math.Ceil(numeric.SnapRatio(lo / step))
	kmax = math.Floor(numeric.SnapRatio(hi / step))
	return kmin, kmax
}

// maxIndex keeps kmax-kmin+1 inside int64.
const maxIndex = 1 << 61

// multipleInRange draws a multiple of step in [lo, hi] and verifies the
// reconstruction. ok is false with a failure result when no multiple works.
func multipleInRange(ctx *Context, s *jsonschema.Schema, iv interval, step float64, mode numeric.Mode) (float64, Result, bool) {
	kmin, kmax := indexRange(iv.lo, iv.hi, step)
	if kmin > kmax {
		return 0, ctx.fail(FailConstraint, ConstraintMultipleOfRange, map[string]any{"step": step, "min": iv.lo, "max": iv.hi}), false
	}
	if math.Abs(kmin) > maxIndex || math.Abs(kmax) > maxIndex {
		return 0, ctx.fail(FailPrecision, ConstraintPrecision, map[string]any{"step": step, "min": iv.lo, "max": iv.hi}), false
	}
	lo, hi := int64(kmin), int64(kmax)
	k := pickIndex(ctx, lo, hi, numericSide(ctx))
	decimals := numeric.Decimals(step)
	for i := 0; i < reconstructAttempts; i++ {
		// k, k+1, k-1, k+2, k-2, ...
		off := int64((i + 1) / 2)
		if i%2 == 0 {
			off = -off
		}
		idx := k + off
		if idx < lo || idx > hi {
			continue
		}
		v := float64(idx) * step
		if snapped := numeric.RoundTo(v, decimals); checkNumber(snapped, s, mode) {
			return numeric.PositiveZero(snapped), Result{}, true
		}
		if checkNumber(v, s, mode) {
			return numeric.PositiveZero(v), Result{}, true
		}
	}
	return 0, ctx.fail(FailPrecision, ConstraintPrecision, map[string]any{"step": step, "min": iv.lo, "max": iv.hi}), false
}

type numberGenerator struct{ t *Table }

func (g *numberGenerator) Supports(s *jsonschema.Schema) bool {
	return jsonschema.Classify(s) == jsonschema.KindNumber
}

func (g *numberGenerator) Priority() int { return PriorityType }

func (g *numberGenerator) Generate(s *jsonschema.Schema, ctx *Context) Result {
	if draft04Exclusive(s) {
		return ctx.fail(FailConstraint, ConstraintDraft04Exclusive, nil)
	}
	iv := numberInterval(s)
	if iv.lo > iv.hi {
		return iv.failure(ctx)
	}
	iv = iv.window()
	if s.MultipleOf != nil {
		step := *s.MultipleOf
		if !numeric.ValidStep(step) {
			return ctx.fail(FailConstraint, ConstraintMultipleOf, map[string]any{"step": step})
		}
		v, fail, ok := multipleInRange(ctx, s, iv, step, g.t.mode)
		if !ok {
			return fail
		}
		return Ok(v)
	}
	var v float64
	switch numericSide(ctx) {
	case BoundaryMin:
		v = iv.lo
	case BoundaryMax:
		v = iv.hi
	default:
		f := ctx.Rand().Float53()
		v = iv.lo*(1-f) + iv.hi*f
		v = math.Max(iv.lo, math.Min(iv.hi, v))
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return ctx.fail(FailPrecision, ConstraintPrecision, map[string]any{"min": iv.lo, "max": iv.hi})
	}
	return Ok(numeric.PositiveZero(v))
}

func (g *numberGenerator) Validate(v any, s *jsonschema.Schema) bool {
	f, ok := jsonschema.AsFloat(v)
	return ok && checkNumber(f, s, g.t.mode)
}

func (g *numberGenerator) Examples(s *jsonschema.Schema) []any {
	out := append([]any(nil), s.Examples...)
	if s.Default != nil {
		out = append(out, s.Default)
	}
	iv := numberInterval(s)
	if iv.loSet {
		out = append(out, iv.lo)
	}
	if iv.hiSet {
		out = append(out, iv.hi)
	}
	if !iv.loSet && !iv.hiSet {
		out = append(out, 0.0)
	}
	return out
}

type integerGenerator struct{ t *Table }

func (g *integerGenerator) Supports(s *jsonschema.Schema) bool {
	return jsonschema.Classify(s) == jsonschema.KindInteger
}

func (g *integerGenerator) Priority() int { return PriorityType }

func (g *integerGenerator) Generate(s *jsonschema.Schema, ctx *Context) Result {
	if draft04Exclusive(s) {
		return ctx.fail(FailConstraint, ConstraintDraft04Exclusive, nil)
	}
	iv := integerInterval(s)
	if iv.lo > iv.hi {
		return iv.failure(ctx)
	}
	iv = iv.window()
	if iv.lo > numeric.MaxSafeInteger || iv.hi < -numeric.MaxSafeInteger {
		return g.beyondSafe(s, ctx, iv)
	}
	iv.lo = math.Max(iv.lo, -numeric.MaxSafeInteger)
	iv.hi = math.Min(iv.hi, numeric.MaxSafeInteger)
	step := 1.0
	if s.MultipleOf != nil {
		step = *s.MultipleOf
		if !numeric.ValidStep(step) {
			return ctx.fail(FailConstraint, ConstraintMultipleOf, map[string]any{"step": step})
		}
		step = integralStep(step)
		if step == 0 {
			return ctx.fail(FailConstraint, ConstraintMultipleOfRange, map[string]any{"step": *s.MultipleOf, "min": iv.lo, "max": iv.hi})
		}
	}
	kmin, kmax := math.Ceil(iv.lo/step), math.Floor(iv.hi/step)
	if kmin > kmax {
		return ctx.fail(FailConstraint, ConstraintMultipleOfRange, map[string]any{"step": step, "min": iv.lo, "max": iv.hi})
	}
	k := pickIndex(ctx, int64(kmin), int64(kmax), numericSide(ctx))
	return Ok(k * int64(step))
}

// beyondSafe serves a window that lies entirely outside the exactly
// representable integers. Only the declared bounds are known to be exact, so
// one of them is returned when it satisfies the schema.
func (g *integerGenerator) beyondSafe(s *jsonschema.Schema, ctx *Context, iv interval) Result {
	var cands []float64
	if iv.loSet {
		cands = append(cands, iv.lo)
	}
	if iv.hiSet {
		cands = append(cands, iv.hi)
	}
	if numericSide(ctx) == BoundaryMax {
		slices.Reverse(cands)
	}
	for _, v := range cands {
		if checkNumber(v, s, g.t.mode) {
			return Ok(integerValue(v))
		}
	}
	return ctx.fail(FailPrecision, ConstraintPrecision, map[string]any{"min": iv.lo, "max": iv.hi})
}

// integerValue returns v as int64 when it fits, else as the float64 itself.
func integerValue(v float64) any {
	if math.Abs(v) < math.MaxInt64 {
		return int64(v)
	}
	return v
}

// integralStep returns the smallest positive integer that is a multiple of
// step, or 0 when none is found.
func integralStep(step float64) float64 {
	if step < 1 && numeric.IsMultipleOf(1, step) {
		return 1
	}
	if d := numeric.Decimals(step); d >= 0 {
		// step = p / 10^d; the smallest integral multiple is p / gcd(p, 10^d).
		scale := math.Pow(10, float64(d))
		if p := math.Round(step * scale); p >= 1 && p <= numeric.MaxSafeInteger {
			return p / float64(gcd(int64(p), int64(scale)))
		}
	}
	for m := 1.0; m <= 1000; m++ {
		v := step * m
		if r := math.Round(v); r >= 1 && math.Abs(v-r) <= numeric.ULP(v)*m {
			return r
		}
	}
	return 0
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func (g *integerGenerator) Validate(v any, s *jsonschema.Schema) bool {
	if !jsonschema.IsInteger(v) {
		return false
	}
	f, _ := jsonschema.AsFloat(v)
	return checkNumber(f, s, g.t.mode)
}

func (g *integerGenerator) Examples(s *jsonschema.Schema) []any {
	out := append([]any(nil), s.Examples...)
	if s.Default != nil {
		out = append(out, s.Default)
	}
	iv := integerInterval(s)
	if iv.loSet && math.Abs(iv.lo) <= numeric.MaxSafeInteger {
		out = append(out, int64(iv.lo))
	}
	if iv.hiSet && math.Abs(iv.hi) <= numeric.MaxSafeInteger {
		out = append(out, int64(iv.hi))
	}
	if !iv.loSet && !iv.hiSet {
		out = append(out, int64(0))
	}
	return out
}
