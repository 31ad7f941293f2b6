package generator

import (
	"regexp/syntax"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/reoring/fixgen/format"
	"github.com/reoring/fixgen/jsonschema"
	"github.com/reoring/fixgen/rng"
)

const (
	defaultStringSpan = 16
	maxStringSpan     = 256
	patternAttempts   = 16
	maxPatternRepeat  = 3
	patternTimeout    = 100 * time.Millisecond
)

// patternCache memoizes compiled patterns. It is shared by concurrent runs.
type patternCache struct {
	ecma   sync.Map // pattern -> *regexp2.Regexp or error
	syntax sync.Map // pattern -> *syntax.Regexp or error
}

// match reports whether s matches pattern under ECMA-262 semantics
// (unanchored search).
func (p *patternCache) match(pattern, s string) (bool, error) {
	v, ok := p.ecma.Load(pattern)
	if !ok {
		re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
		if err != nil {
			v = err
		} else {
			re.MatchTimeout = patternTimeout
			v = re
		}
		p.ecma.Store(pattern, v)
	}
	if err, isErr := v.(error); isErr {
		return false, err
	}
	return v.(*regexp2.Regexp).MatchString(s)
}

// tree returns the parsed pattern for generation. ECMA constructs Go cannot
// parse (lookaround, backreferences) return an error.
func (p *patternCache) tree(pattern string) (*syntax.Regexp, error) {
	v, ok := p.syntax.Load(pattern)
	if !ok {
		re, err := syntax.Parse(pattern, syntax.Perl)
		if err != nil {
			v = err
		} else {
			v = re
		}
		p.syntax.Store(pattern, v)
	}
	if err, isErr := v.(error); isErr {
		return nil, err
	}
	return v.(*syntax.Regexp), nil
}

type stringGenerator struct{ t *Table }

func (g *stringGenerator) Supports(s *jsonschema.Schema) bool {
	return jsonschema.Classify(s) == jsonschema.KindString
}

func (g *stringGenerator) Priority() int { return PriorityType }

// lengthBounds returns the inclusive length window used for plain strings.
func lengthBounds(s *jsonschema.Schema) (lo, hi int) {
	if s.MinLength != nil {
		lo = *s.MinLength
	}
	if s.MaxLength != nil {
		return lo, min(*s.MaxLength, lo+maxStringSpan)
	}
	return lo, lo + defaultStringSpan
}

func lengthOK(str string, s *jsonschema.Schema) bool {
	n := utf8.RuneCountInString(str)
	if s.MinLength != nil && n < *s.MinLength {
		return false
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		return false
	}
	return true
}

func (g *stringGenerator) Generate(s *jsonschema.Schema, ctx *Context) Result {
	lo, hi := lengthBounds(s)
	if s.MaxLength != nil && lo > *s.MaxLength {
		return ctx.fail(FailConstraint, ConstraintMinLength, map[string]any{"min": lo, "max": *s.MaxLength})
	}
	if s.Format != "" {
		if format.Supported(s.Format) {
			return g.formatValue(s, ctx)
		}
		if g.t.opts.ValidateFormats {
			return ctx.fail(FailUnsupportedFormat, ConstraintFormat, map[string]any{"format": s.Format})
		}
	}
	if s.Pattern != "" {
		return g.patternValue(s, ctx)
	}
	var n int
	switch numericSide(ctx) {
	case BoundaryMin:
		n = lo
	case BoundaryMax:
		n = hi
	default:
		n = lo + ctx.Rand().Intn(hi-lo+1)
	}
	return Ok(randomWord(ctx.Rand(), n))
}

func (g *stringGenerator) formatValue(s *jsonschema.Schema, ctx *Context) Result {
	for i := 0; i < patternAttempts; i++ {
		v, err := ctx.run.formats.Generate(s.Format)
		if err != nil {
			return ctx.fail(FailUnsupportedFormat, ConstraintFormat, map[string]any{"format": s.Format})
		}
		if !lengthOK(v, s) {
			continue
		}
		if s.Pattern != "" {
			if ok, _ := g.t.patterns.match(s.Pattern, v); !ok {
				continue
			}
		}
		return Ok(v)
	}
	return ctx.fail(FailConstraint, ConstraintFormatLength, map[string]any{"format": s.Format})
}

func (g *stringGenerator) patternValue(s *jsonschema.Schema, ctx *Context) Result {
	if _, err := g.t.patterns.match(s.Pattern, ""); err != nil {
		return ctx.fail(FailSchemaStructure, ConstraintPattern, map[string]any{"pattern": s.Pattern})
	}
	tree, treeErr := g.t.patterns.tree(s.Pattern)
	r := ctx.Rand()
	lo, hi := lengthBounds(s)
	for i := 0; i < patternAttempts; i++ {
		var str string
		if treeErr == nil {
			var b strings.Builder
			writeRegexp(&b, tree, r)
			str = b.String()
		} else {
			str = randomWord(r, lo+r.Intn(hi-lo+1))
		}
		if n := utf8.RuneCountInString(str); n < lo && !anchoredEnd(s.Pattern) {
			// an unanchored match survives a suffix
			str += randomWord(r, lo-n)
		}
		if !lengthOK(str, s) {
			continue
		}
		if ok, _ := g.t.patterns.match(s.Pattern, str); ok {
			return Ok(str)
		}
	}
	return ctx.fail(FailConstraint, ConstraintPattern, map[string]any{"pattern": s.Pattern})
}

func anchoredEnd(pattern string) bool {
	return strings.HasSuffix(pattern, "$") && !strings.HasSuffix(pattern, `\$`)
}

// writeRegexp emits one string the regexp matches. Unbounded repetition is
// capped at maxPatternRepeat extra copies.
func writeRegexp(b *strings.Builder, re *syntax.Regexp, r *rng.Stream) {
	repeat := func(sub *syntax.Regexp, lo, hi int) {
		n := lo + r.Intn(hi-lo+1)
		for i := 0; i < n; i++ {
			writeRegexp(b, sub, r)
		}
	}
	switch re.Op {
	case syntax.OpLiteral:
		for _, c := range re.Rune {
			b.WriteRune(c)
		}
	case syntax.OpCharClass:
		b.WriteRune(classRune(re.Rune, r))
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		b.WriteByte(alnum[r.Intn(len(alnum))])
	case syntax.OpCapture:
		writeRegexp(b, re.Sub[0], r)
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			writeRegexp(b, sub, r)
		}
	case syntax.OpAlternate:
		writeRegexp(b, re.Sub[r.Intn(len(re.Sub))], r)
	case syntax.OpStar:
		repeat(re.Sub[0], 0, maxPatternRepeat)
	case syntax.OpPlus:
		repeat(re.Sub[0], 1, 1+maxPatternRepeat)
	case syntax.OpQuest:
		repeat(re.Sub[0], 0, 1)
	case syntax.OpRepeat:
		hi := re.Max
		if hi < 0 || hi > re.Min+maxPatternRepeat {
			hi = re.Min + maxPatternRepeat
		}
		repeat(re.Sub[0], re.Min, hi)
	}
}

// classRune picks a rune from a character class, preferring printable ASCII.
func classRune(ranges []rune, r *rng.Stream) rune {
	const lo, hi = 0x21, 0x7e
	total := 0
	for i := 0; i+1 < len(ranges); i += 2 {
		if a, z := max(ranges[i], lo), min(ranges[i+1], hi); a <= z {
			total += int(z-a) + 1
		}
	}
	if total == 0 {
		if len(ranges) < 2 {
			return 'a'
		}
		span := min(int(ranges[1]-ranges[0])+1, 256)
		return ranges[0] + rune(r.Intn(span))
	}
	n := r.Intn(total)
	for i := 0; i+1 < len(ranges); i += 2 {
		a, z := max(ranges[i], lo), min(ranges[i+1], hi)
		if a > z {
			continue
		}
		w := int(z-a) + 1
		if n < w {
			return a + rune(n)
		}
		n -= w
	}
	return 'a'
}

func (g *stringGenerator) Validate(v any, s *jsonschema.Schema) bool {
	str, ok := v.(string)
	if !ok || !lengthOK(str, s) {
		return false
	}
	if s.Pattern != "" {
		if ok, err := g.t.patterns.match(s.Pattern, str); err != nil || !ok {
			return false
		}
	}
	if s.Format != "" && g.t.opts.ValidateFormats && format.Supported(s.Format) {
		return format.Validate(s.Format, str) == nil
	}
	return true
}

func (g *stringGenerator) Examples(s *jsonschema.Schema) []any {
	out := append([]any(nil), s.Examples...)
	if s.Default != nil {
		out = append(out, s.Default)
	}
	lo, _ := lengthBounds(s)
	return append(out, strings.Repeat("a", lo))
}
