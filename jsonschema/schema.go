package jsonschema

// Schema is the in-memory JSON Schema node consumed by the generators and the
// coverage tracker. Nodes are treated as immutable once built; helpers that
// need a modified node (Merge, WithoutComposition) return copies.
//
// Constraint keywords that may be absent use pointers so that zero values are
// not mistaken for constraints.
type Schema struct {
	// Bool is set for the boolean schemas `true` and `false`.
	Bool *bool

	// Core
	SchemaURI   string
	ID          string
	Ref         string
	Type        TypeSet
	Title       string
	Description string
	Format      string
	Default     any
	Examples    []any
	Nullable    bool
	Draft       Draft
	Enum        []any
	HasEnum     bool
	Const       any
	HasConst    bool
	Defs        map[string]*Schema
	Definitions map[string]*Schema

	// Numeric
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *Bound
	ExclusiveMaximum *Bound
	MultipleOf       *float64

	// String
	MinLength *int
	MaxLength *int
	Pattern   string

	// Array
	Items           *Schema
	ItemsTuple      []*Schema // Draft-07 array form of items
	PrefixItems     []*Schema
	AdditionalItems *Schema
	Contains        *Schema
	MinItems        *int
	MaxItems        *int
	UniqueItems     bool

	// Object
	Properties           map[string]*Schema
	Required             []string
	AdditionalProperties *Schema
	PatternProperties    map[string]*Schema
	MinProperties        *int
	MaxProperties        *int
	DependentRequired    map[string][]string
	DependentSchemas     map[string]*Schema

	// Composition
	OneOf []*Schema
	AnyOf []*Schema
	AllOf []*Schema

	// Target is the resolved node of Ref, filled by the loader.
	Target *Schema
}

// Bound is an exclusiveMinimum/exclusiveMaximum value. Draft 6+ uses a number;
// Draft 4 used a boolean modifier of minimum/maximum, kept here so that the
// generators can reject it explicitly.
type Bound struct {
	Value  float64
	IsBool bool
	Flag   bool
}

// NumBound returns a numeric exclusive bound.
func NumBound(v float64) *Bound { return &Bound{Value: v} }

// Draft identifies the JSON Schema dialect a document declares.
type Draft int

const (
	DraftUnknown Draft = iota
	Draft04
	Draft06
	Draft07
	Draft201909
	Draft202012
)

// TypeSet holds the `type` keyword, which may be a string or a list.
type TypeSet []string

// Has reports whether t lists name.
func (t TypeSet) Has(name string) bool {
	for _, n := range t {
		if n == name {
			return true
		}
	}
	return false
}

// True returns the `true` schema.
func True() *Schema {
	b := true
	return &Schema{Bool: &b}
}

// False returns the `false` schema.
func False() *Schema {
	b := false
	return &Schema{Bool: &b}
}

// IsFalse reports whether s is the `false` schema.
func (s *Schema) IsFalse() bool { return s != nil && s.Bool != nil && !*s.Bool }

// IsTrue reports whether s is the `true` schema or nil (absent schema).
func (s *Schema) IsTrue() bool { return s == nil || (s.Bool != nil && *s.Bool) }

// Resolve follows $ref links to the first node that is not a pure reference.
// A chain that loops back returns the last node reached.
func (s *Schema) Resolve() *Schema {
	seen := 0
	for s != nil && s.Ref != "" && s.Target != nil && seen < 64 {
		s = s.Target
		seen++
	}
	return s
}

// Clone returns a shallow copy; maps and slices are shared.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// WithoutComposition returns a copy of s with oneOf/anyOf/allOf removed. It
// is the "parent keywords" half of a branch merge.
func (s *Schema) WithoutComposition() *Schema {
	c := s.Clone()
	c.OneOf, c.AnyOf, c.AllOf = nil, nil, nil
	return c
}

// TupleItems returns the positional item schemas and the schema for the
// remaining positions, following the draft the node was parsed under:
// prefixItems + items (2019-09/2020-12) or items[] + additionalItems (Draft 7).
func (s *Schema) TupleItems() (prefix []*Schema, rest *Schema) {
	if len(s.PrefixItems) > 0 {
		return s.PrefixItems, s.Items
	}
	if len(s.ItemsTuple) > 0 {
		return s.ItemsTuple, s.AdditionalItems
	}
	return nil, s.Items
}

// PropertyNames returns the declared property names in a stable order.
func (s *Schema) PropertyNames() []string {
	return sortedKeys(s.Properties)
}

// IsRequired reports whether name is listed in required.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// IntPtr and FloatPtr are small constructors used by callers building schemas
// in code.
func IntPtr(v int) *int           { return &v }
func FloatPtr(v float64) *float64 { return &v }
