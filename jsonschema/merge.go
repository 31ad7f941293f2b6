package jsonschema

import "math"

// Merge returns a node accepting (approximately) the intersection of a and b,
// the way allOf branches and oneOf parent keywords are combined before
// generation. Bounds are tightened, required lists unioned, shared
// properties merged recursively, enums intersected. Keywords only one side
// sets are copied. Composition keywords are carried over from b.
func Merge(a, b *Schema) *Schema {
	switch {
	case a.IsFalse() || b.IsFalse():
		return False()
	case a == nil || a.Bool != nil:
		return b.Clone()
	case b == nil || b.Bool != nil:
		return a.Clone()
	}
	types, ok := mergeTypes(a.Type, b.Type)
	if !ok {
		return False()
	}
	out := b.Clone()
	out.Type = types
	if out.Format == "" {
		out.Format = a.Format
	}
	if out.Pattern == "" {
		out.Pattern = a.Pattern
	}
	if out.Ref == "" {
		out.Ref, out.Target = a.Ref, a.Target
	}
	if out.Draft == DraftUnknown {
		out.Draft = a.Draft
	}
	out.UniqueItems = a.UniqueItems || b.UniqueItems
	out.Nullable = a.Nullable && b.Nullable

	switch {
	case a.HasEnum && b.HasEnum:
		var both []any
		for _, x := range a.Enum {
			for _, y := range b.Enum {
				if Equal(x, y) {
					both = append(both, x)
					break
				}
			}
		}
		out.Enum, out.HasEnum = both, true
	case a.HasEnum:
		out.Enum, out.HasEnum = a.Enum, true
	}
	if a.HasConst && !b.HasConst {
		out.Const, out.HasConst = a.Const, true
	}
	if len(out.Examples) == 0 {
		out.Examples = a.Examples
	}

	out.Minimum = maxPtr(a.Minimum, b.Minimum)
	out.Maximum = minPtr(a.Maximum, b.Maximum)
	out.ExclusiveMinimum = mergeBound(a.ExclusiveMinimum, b.ExclusiveMinimum, math.Max)
	out.ExclusiveMaximum = mergeBound(a.ExclusiveMaximum, b.ExclusiveMaximum, math.Min)
	if out.MultipleOf == nil {
		out.MultipleOf = a.MultipleOf
	}
	out.MinLength = maxIntPtr(a.MinLength, b.MinLength)
	out.MaxLength = minIntPtr(a.MaxLength, b.MaxLength)
	out.MinItems = maxIntPtr(a.MinItems, b.MinItems)
	out.MaxItems = minIntPtr(a.MaxItems, b.MaxItems)
	out.MinProperties = maxIntPtr(a.MinProperties, b.MinProperties)
	out.MaxProperties = minIntPtr(a.MaxProperties, b.MaxProperties)

	if out.Items == nil {
		out.Items = a.Items
	} else if a.Items != nil {
		out.Items = Merge(a.Items, b.Items)
	}
	if len(out.ItemsTuple) == 0 {
		out.ItemsTuple = a.ItemsTuple
	}
	if len(out.PrefixItems) == 0 {
		out.PrefixItems = a.PrefixItems
	}
	if out.AdditionalItems == nil {
		out.AdditionalItems = a.AdditionalItems
	}
	if out.Contains == nil {
		out.Contains = a.Contains
	}

	if len(a.Properties) > 0 {
		props := make(map[string]*Schema, len(a.Properties)+len(b.Properties))
		for k, v := range a.Properties {
			props[k] = v
		}
		for k, v := range b.Properties {
			if av, ok := props[k]; ok {
				props[k] = Merge(av, v)
				continue
			}
			props[k] = v
		}
		out.Properties = props
	}
	out.Required = unionStrings(a.Required, b.Required)
	switch {
	case a.AdditionalProperties != nil && b.AdditionalProperties != nil:
		out.AdditionalProperties = Merge(a.AdditionalProperties, b.AdditionalProperties)
	case out.AdditionalProperties == nil:
		out.AdditionalProperties = a.AdditionalProperties
	}
	if len(out.PatternProperties) == 0 {
		out.PatternProperties = a.PatternProperties
	}
	if len(a.DependentRequired) > 0 {
		dr := make(map[string][]string, len(a.DependentRequired)+len(b.DependentRequired))
		for k, v := range a.DependentRequired {
			dr[k] = v
		}
		for k, v := range b.DependentRequired {
			dr[k] = unionStrings(dr[k], v)
		}
		out.DependentRequired = dr
	}
	if len(out.DependentSchemas) == 0 {
		out.DependentSchemas = a.DependentSchemas
	}
	if len(a.AllOf) > 0 {
		out.AllOf = append(append([]*Schema(nil), a.AllOf...), b.AllOf...)
	}
	if len(out.OneOf) == 0 {
		out.OneOf = a.OneOf
	}
	if len(out.AnyOf) == 0 {
		out.AnyOf = a.AnyOf
	}
	return out
}

// mergeTypes intersects two type keywords; ok is false when they are
// disjoint.
func mergeTypes(a, b TypeSet) (TypeSet, bool) {
	if len(a) == 0 {
		return b, true
	}
	if len(b) == 0 {
		return a, true
	}
	var out TypeSet
	for _, x := range a {
		for _, y := range b {
			switch {
			case x == y:
				out = append(out, x)
			case x == "integer" && y == "number", x == "number" && y == "integer":
				out = append(out, "integer")
			}
		}
	}
	return out, len(out) > 0
}

func mergeBound(a, b *Bound, pick func(x, y float64) float64) *Bound {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.IsBool || b.IsBool:
		return b
	}
	return &Bound{Value: pick(a.Value, b.Value)}
}

func maxPtr(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	v := math.Max(*a, *b)
	return &v
}

func minPtr(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	v := math.Min(*a, *b)
	return &v
}

func maxIntPtr(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	v := max(*a, *b)
	return &v
}

func minIntPtr(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	v := min(*a, *b)
	return &v
}

func unionStrings(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	out := append([]string(nil), a...)
	for _, x := range b {
		found := false
		for _, y := range out {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			out = append(out, x)
		}
	}
	return out
}
