package jsonschema

import gojson "github.com/goccy/go-json"

// MarshalJSON renders the schema back to its JSON form. Resolved $ref
// targets are not inlined, so cyclic documents serialize finitely.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return gojson.Marshal(s.ToValue())
}

// ToValue converts the schema to a JSON value (bool or map[string]any).
func (s *Schema) ToValue() any {
	if s == nil {
		return true
	}
	if s.Bool != nil {
		return *s.Bool
	}
	m := map[string]any{}
	put := func(k string, v any, ok bool) {
		if ok {
			m[k] = v
		}
	}
	put("$schema", s.SchemaURI, s.SchemaURI != "")
	put("$id", s.ID, s.ID != "")
	put("$ref", s.Ref, s.Ref != "")
	if len(s.Type) == 1 {
		m["type"] = s.Type[0]
	} else if len(s.Type) > 1 {
		ts := make([]any, len(s.Type))
		for i, t := range s.Type {
			ts[i] = t
		}
		m["type"] = ts
	}
	put("title", s.Title, s.Title != "")
	put("description", s.Description, s.Description != "")
	put("format", s.Format, s.Format != "")
	put("pattern", s.Pattern, s.Pattern != "")
	put("nullable", true, s.Nullable)
	put("uniqueItems", true, s.UniqueItems)
	put("enum", s.Enum, s.HasEnum)
	put("const", s.Const, s.HasConst)
	put("default", s.Default, s.Default != nil)
	put("examples", s.Examples, len(s.Examples) > 0)

	putF := func(k string, v *float64) {
		if v != nil {
			m[k] = *v
		}
	}
	putF("minimum", s.Minimum)
	putF("maximum", s.Maximum)
	putF("multipleOf", s.MultipleOf)
	putB := func(k string, b *Bound) {
		if b == nil {
			return
		}
		if b.IsBool {
			m[k] = b.Flag
			return
		}
		m[k] = b.Value
	}
	putB("exclusiveMinimum", s.ExclusiveMinimum)
	putB("exclusiveMaximum", s.ExclusiveMaximum)
	putI := func(k string, v *int) {
		if v != nil {
			m[k] = *v
		}
	}
	putI("minLength", s.MinLength)
	putI("maxLength", s.MaxLength)
	putI("minItems", s.MinItems)
	putI("maxItems", s.MaxItems)
	putI("minProperties", s.MinProperties)
	putI("maxProperties", s.MaxProperties)

	if s.Items != nil {
		m["items"] = s.Items.ToValue()
	} else if len(s.ItemsTuple) > 0 {
		m["items"] = listValue(s.ItemsTuple)
	}
	put("prefixItems", listValue(s.PrefixItems), len(s.PrefixItems) > 0)
	putS := func(k string, v *Schema) {
		if v != nil {
			m[k] = v.ToValue()
		}
	}
	putS("additionalItems", s.AdditionalItems)
	putS("contains", s.Contains)
	putS("additionalProperties", s.AdditionalProperties)
	putM := func(k string, v map[string]*Schema) {
		if len(v) == 0 {
			return
		}
		out := make(map[string]any, len(v))
		for name, sub := range v {
			out[name] = sub.ToValue()
		}
		m[k] = out
	}
	putM("properties", s.Properties)
	putM("patternProperties", s.PatternProperties)
	putM("$defs", s.Defs)
	putM("definitions", s.Definitions)
	putM("dependentSchemas", s.DependentSchemas)
	if len(s.Required) > 0 {
		m["required"] = s.Required
	}
	if len(s.DependentRequired) > 0 {
		m["dependentRequired"] = s.DependentRequired
	}
	put("oneOf", listValue(s.OneOf), len(s.OneOf) > 0)
	put("anyOf", listValue(s.AnyOf), len(s.AnyOf) > 0)
	put("allOf", listValue(s.AllOf), len(s.AllOf) > 0)
	return m
}

func listValue(list []*Schema) []any {
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = s.ToValue()
	}
	return out
}
