// Package validate is the validation oracle generated values are checked
// against. It re-implements the JSON Schema keywords independently of the
// generators so that a generator bug cannot hide behind its own self-check.
package validate

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/Laisky/errors/v2"
	"github.com/dlclark/regexp2"
	"github.com/patrickmn/go-cache"

	"github.com/reoring/fixgen/format"
	"github.com/reoring/fixgen/internal/numeric"
	"github.com/reoring/fixgen/internal/pointer"
	"github.com/reoring/fixgen/jsonschema"
)

// Oracle judges whether a value satisfies a schema.
type Oracle interface {
	Validate(v any, s *jsonschema.Schema) error
}

// ErrInvalid is matched by every *Error with errors.Is.
var ErrInvalid = errors.New("value does not satisfy schema")

// Error describes the first keyword a value violates.
type Error struct {
	Path       string
	SchemaPath string
	Keyword    string
	Message    string
}

func (e *Error) Error() string {
	p := e.Path
	if p == "" {
		p = "/"
	}
	return fmt.Sprintf("%s at %s (%s): %s", e.Keyword, p, e.SchemaPath, e.Message)
}

func (e *Error) Unwrap() error { return ErrInvalid }

// maxRefHops bounds $ref chains that do not consume any instance.
const maxRefHops = 64

const patternTimeout = 250 * time.Millisecond

// Validator is the default Oracle. It is safe for concurrent use.
type Validator struct {
	formats bool
	mode    numeric.Mode
}

// Option configures a Validator.
type Option func(*Validator)

// WithFormats makes the validator check the formats the format registry
// knows. Unknown formats stay annotations.
func WithFormats(on bool) Option {
	return func(v *Validator) { v.formats = on }
}

// WithStrictMultipleOf replaces the ULP-tolerant multipleOf check with exact
// division.
func WithStrictMultipleOf() Option {
	return func(v *Validator) { v.mode = numeric.Strict }
}

// New returns a validator.
func New(opts ...Option) *Validator {
	v := &Validator{mode: numeric.Tolerant}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Validate returns nil when value satisfies s, otherwise an *Error.
func (v *Validator) Validate(value any, s *jsonschema.Schema) error {
	return v.check(value, s, "", pointer.Root, 0)
}

// Valid reports whether value satisfies s.
func (v *Validator) Valid(value any, s *jsonschema.Schema) bool {
	return v.Validate(value, s) == nil
}

// compiled ECMA-262 patterns, shared by every validator
var patterns = cache.New(cache.NoExpiration, 0)

func compile(pattern string) (*regexp2.Regexp, error) {
	if re, ok := patterns.Get(pattern); ok {
		return re.(*regexp2.Regexp), nil
	}
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return nil, errors.Wrapf(err, "compile pattern %q", pattern)
	}
	re.MatchTimeout = patternTimeout
	patterns.Set(pattern, re, cache.NoExpiration)
	return re, nil
}

// MatchPattern reports whether s contains a match of the ECMA-262 pattern.
func MatchPattern(pattern, s string) (bool, error) {
	re, err := compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s)
}

func fail(path, sp, keyword, msg string, args ...any) *Error {
	return &Error{Path: path, SchemaPath: sp, Keyword: keyword, Message: fmt.Sprintf(msg, args...)}
}

func (v *Validator) check(value any, s *jsonschema.Schema, path, sp string, hops int) error {
	switch {
	case s.IsTrue():
		return nil
	case s.IsFalse():
		return fail(path, sp, "false", "no value is allowed")
	}
	if s.Ref != "" && s.Target != nil {
		if hops >= maxRefHops {
			return fail(path, sp, "$ref", "reference chain longer than %d", maxRefHops)
		}
		if err := v.check(value, s.Target, path, s.Ref, hops+1); err != nil {
			return err
		}
	}
	if err := v.checkType(value, s, path, sp); err != nil {
		return err
	}
	if value == nil && s.Nullable {
		return nil
	}
	if s.HasEnum && !containsValue(s.Enum, value) {
		return fail(path, sp, "enum", "%s is not an enum member", jsonschema.Canonical(value))
	}
	if s.HasConst && !jsonschema.Equal(value, s.Const) {
		return fail(path, sp, "const", "%s is not %s", jsonschema.Canonical(value), jsonschema.Canonical(s.Const))
	}

	var err error
	switch t := value.(type) {
	case string:
		err = v.checkString(t, s, path, sp)
	case []any:
		err = v.checkArray(t, s, path, sp)
	case map[string]any:
		err = v.checkObject(t, s, path, sp, hops)
	default:
		if f, ok := jsonschema.AsFloat(value); ok {
			err = v.checkNumber(f, s, path, sp)
		}
	}
	if err != nil {
		return err
	}
	return v.checkComposition(value, s, path, sp, hops)
}

func (v *Validator) checkType(value any, s *jsonschema.Schema, path, sp string) error {
	if len(s.Type) == 0 {
		return nil
	}
	name := jsonschema.TypeName(value)
	switch {
	case s.Type.Has(name):
	case name == "integer" && s.Type.Has("number"):
	case value == nil && s.Nullable:
	default:
		return fail(path, pointer.Join(sp, "type"), "type", "expected %v, got %s", []string(s.Type), name)
	}
	return nil
}

func containsValue(list []any, value any) bool {
	for _, m := range list {
		if jsonschema.Equal(m, value) {
			return true
		}
	}
	return false
}

func (v *Validator) checkNumber(f float64, s *jsonschema.Schema, path, sp string) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fail(path, sp, "type", "%v is not a JSON number", f)
	}
	if s.Minimum != nil {
		excl := s.ExclusiveMinimum != nil && s.ExclusiveMinimum.IsBool && s.ExclusiveMinimum.Flag
		if f < *s.Minimum || (excl && f == *s.Minimum) {
			return fail(path, pointer.Join(sp, "minimum"), "minimum", "%v is below %v", f, *s.Minimum)
		}
	}
	if s.Maximum != nil {
		excl := s.ExclusiveMaximum != nil && s.ExclusiveMaximum.IsBool && s.ExclusiveMaximum.Flag
		if f > *s.Maximum || (excl && f == *s.Maximum) {
			return fail(path, pointer.Join(sp, "maximum"), "maximum", "%v is above %v", f, *s.Maximum)
		}
	}
	// -0 > 0 is false, so -0 fails exclusiveMinimum 0
	if b := s.ExclusiveMinimum; b != nil && !b.IsBool && !(f > b.Value) {
		return fail(path, pointer.Join(sp, "exclusiveMinimum"), "exclusiveMinimum", "%v is not greater than %v", f, b.Value)
	}
	if b := s.ExclusiveMaximum; b != nil && !b.IsBool && !(f < b.Value) {
		return fail(path, pointer.Join(sp, "exclusiveMaximum"), "exclusiveMaximum", "%v is not less than %v", f, b.Value)
	}
	if s.MultipleOf != nil && !numeric.MultipleOf(f, *s.MultipleOf, v.mode) {
		return fail(path, pointer.Join(sp, "multipleOf"), "multipleOf", "%v is not a multiple of %v", f, *s.MultipleOf)
	}
	return nil
}

func (v *Validator) checkString(str string, s *jsonschema.Schema, path, sp string) error {
	n := utf8.RuneCountInString(str)
	if s.MinLength != nil && n < *s.MinLength {
		return fail(path, pointer.Join(sp, "minLength"), "minLength", "length %d is below %d", n, *s.MinLength)
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		return fail(path, pointer.Join(sp, "maxLength"), "maxLength", "length %d is above %d", n, *s.MaxLength)
	}
	if s.Pattern != "" {
		ok, err := MatchPattern(s.Pattern, str)
		if err != nil {
			return fail(path, pointer.Join(sp, "pattern"), "pattern", "%v", err)
		}
		if !ok {
			return fail(path, pointer.Join(sp, "pattern"), "pattern", "%q does not match %s", str, s.Pattern)
		}
	}
	if v.formats && s.Format != "" && format.Supported(s.Format) {
		if err := format.Validate(s.Format, str); err != nil {
			return fail(path, pointer.Join(sp, "format"), "format", "%v", err)
		}
	}
	return nil
}

func (v *Validator) checkArray(arr []any, s *jsonschema.Schema, path, sp string) error {
	if s.MinItems != nil && len(arr) < *s.MinItems {
		return fail(path, pointer.Join(sp, "minItems"), "minItems", "%d items, want at least %d", len(arr), *s.MinItems)
	}
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		return fail(path, pointer.Join(sp, "maxItems"), "maxItems", "%d items, want at most %d", len(arr), *s.MaxItems)
	}
	prefix, rest := s.TupleItems()
	prefixKey, restKey := "items", "items"
	switch {
	case len(s.PrefixItems) > 0:
		prefixKey = "prefixItems"
	case len(s.ItemsTuple) > 0:
		restKey = "additionalItems"
	}
	for i, e := range arr {
		var err error
		if i < len(prefix) {
			err = v.check(e, prefix[i], pointer.Index(path, i), pointer.Index(pointer.Join(sp, prefixKey), i), 0)
		} else {
			err = v.check(e, rest, pointer.Index(path, i), pointer.Join(sp, restKey), 0)
		}
		if err != nil {
			return err
		}
	}
	if s.UniqueItems {
		seen := make(map[string]int, len(arr))
		for i, e := range arr {
			k := jsonschema.Canonical(e)
			if j, dup := seen[k]; dup {
				return fail(path, pointer.Join(sp, "uniqueItems"), "uniqueItems", "items %d and %d are equal", j, i)
			}
			seen[k] = i
		}
	}
	if s.Contains != nil {
		found := false
		for _, e := range arr {
			if v.check(e, s.Contains, "", "", 0) == nil {
				found = true
				break
			}
		}
		if !found {
			return fail(path, pointer.Join(sp, "contains"), "contains", "no item matches contains")
		}
	}
	return nil
}

func (v *Validator) checkObject(obj map[string]any, s *jsonschema.Schema, path, sp string, hops int) error {
	if s.MinProperties != nil && len(obj) < *s.MinProperties {
		return fail(path, pointer.Join(sp, "minProperties"), "minProperties", "%d properties, want at least %d", len(obj), *s.MinProperties)
	}
	if s.MaxProperties != nil && len(obj) > *s.MaxProperties {
		return fail(path, pointer.Join(sp, "maxProperties"), "maxProperties", "%d properties, want at most %d", len(obj), *s.MaxProperties)
	}
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			return fail(path, pointer.Join(sp, "required"), "required", "missing property %q", name)
		}
	}
	for _, name := range jsonschema.SortedKeys(obj) {
		val := obj[name]
		at := pointer.Join(path, name)
		matched := false
		if ps, ok := s.Properties[name]; ok {
			matched = true
			if err := v.check(val, ps, at, pointer.Join(sp, "properties", name), 0); err != nil {
				return err
			}
		}
		for _, pat := range jsonschema.SortedKeys(s.PatternProperties) {
			ok, err := MatchPattern(pat, name)
			if err != nil {
				return fail(at, pointer.Join(sp, "patternProperties", pat), "patternProperties", "%v", err)
			}
			if !ok {
				continue
			}
			matched = true
			if err := v.check(val, s.PatternProperties[pat], at, pointer.Join(sp, "patternProperties", pat), 0); err != nil {
				return err
			}
		}
		if !matched && s.AdditionalProperties != nil {
			if s.AdditionalProperties.IsFalse() {
				return fail(at, pointer.Join(sp, "additionalProperties"), "additionalProperties", "property %q is not allowed", name)
			}
			if err := v.check(val, s.AdditionalProperties, at, pointer.Join(sp, "additionalProperties"), 0); err != nil {
				return err
			}
		}
	}
	for _, name := range jsonschema.SortedKeys(s.DependentRequired) {
		if _, ok := obj[name]; !ok {
			continue
		}
		for _, dep := range s.DependentRequired[name] {
			if _, ok := obj[dep]; !ok {
				return fail(path, pointer.Join(sp, "dependentRequired", name), "dependentRequired", "%q requires %q", name, dep)
			}
		}
	}
	for _, name := range jsonschema.SortedKeys(s.DependentSchemas) {
		if _, ok := obj[name]; !ok {
			continue
		}
		if err := v.check(obj, s.DependentSchemas[name], path, pointer.Join(sp, "dependentSchemas", name), hops+1); err != nil {
			return err
		}
	}
	return nil
}

// Composition keywords apply to the same instance, so they count against
// the reference budget like $ref does.
func (v *Validator) checkComposition(value any, s *jsonschema.Schema, path, sp string, hops int) error {
	if hops >= maxRefHops && len(s.AllOf)+len(s.AnyOf)+len(s.OneOf) > 0 {
		return fail(path, sp, "$ref", "reference chain longer than %d", maxRefHops)
	}
	for i, b := range s.AllOf {
		if err := v.check(value, b, path, pointer.Index(pointer.Join(sp, "allOf"), i), hops+1); err != nil {
			return err
		}
	}
	if len(s.AnyOf) > 0 && v.count(value, s.AnyOf, path, sp, "anyOf", hops) == 0 {
		return fail(path, pointer.Join(sp, "anyOf"), "anyOf", "no branch matches")
	}
	if len(s.OneOf) > 0 {
		if n := v.count(value, s.OneOf, path, sp, "oneOf", hops); n != 1 {
			return fail(path, pointer.Join(sp, "oneOf"), "oneOf", "%d branches match, want exactly one", n)
		}
	}
	return nil
}

func (v *Validator) count(value any, branches []*jsonschema.Schema, path, sp, keyword string, hops int) int {
	n := 0
	for i, b := range branches {
		if v.check(value, b, path, pointer.Index(pointer.Join(sp, keyword), i), hops+1) == nil {
			n++
		}
	}
	return n
}

// Matching returns the indices of the branches value satisfies. The
// coverage tracker uses it to attribute a value to oneOf/anyOf branches.
func (v *Validator) Matching(value any, branches []*jsonschema.Schema) []int {
	var out []int
	for i, b := range branches {
		if v.Valid(value, b) {
			out = append(out, i)
		}
	}
	return out
}

var _ Oracle = (*Validator)(nil)
