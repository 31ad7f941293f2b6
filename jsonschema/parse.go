package jsonschema

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	gojson "github.com/goccy/go-json"
)

// Parse decodes a JSON schema document. Numbers are decoded as json.Number and
// normalized so that integer literals keep full int64 precision.
func Parse(data []byte) (*Schema, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "jsonschema: invalid JSON")
	}
	return FromValue(raw)
}

// FromValue builds a Schema from a decoded JSON value (bool or
// map[string]any, as produced by encoding/json, go-json or the YAML loader).
func FromValue(v any) (*Schema, error) {
	p := &parser{}
	return p.node(v, "#", DraftUnknown)
}

type parser struct{}

func (p *parser) node(v any, at string, draft Draft) (*Schema, error) {
	switch t := v.(type) {
	case bool:
		if t {
			return True(), nil
		}
		return False(), nil
	case map[string]any:
		return p.object(t, at, draft)
	case nil:
		return nil, errors.Errorf("jsonschema: null schema at %s", at)
	default:
		return nil, errors.Errorf("jsonschema: schema at %s must be an object or boolean, got %T", at, v)
	}
}

func (p *parser) object(m map[string]any, at string, draft Draft) (*Schema, error) {
	s := &Schema{}
	var err error

	if uri, ok := m["$schema"].(string); ok {
		s.SchemaURI = uri
		draft = DraftFromURI(uri)
	}
	s.Draft = draft
	s.ID, _ = m["$id"].(string)
	s.Ref, _ = m["$ref"].(string)
	s.Title, _ = m["title"].(string)
	s.Description, _ = m["description"].(string)
	s.Format, _ = m["format"].(string)
	s.Pattern, _ = m["pattern"].(string)
	s.Nullable, _ = m["nullable"].(bool)
	s.UniqueItems, _ = m["uniqueItems"].(bool)

	switch t := m["type"].(type) {
	case string:
		s.Type = TypeSet{t}
	case []any:
		for _, e := range t {
			name, ok := e.(string)
			if !ok {
				return nil, errors.Errorf("jsonschema: type entries must be strings at %s", at)
			}
			s.Type = append(s.Type, name)
		}
	case nil:
	default:
		return nil, errors.Errorf("jsonschema: invalid type keyword at %s", at)
	}

	if raw, ok := m["enum"]; ok {
		arr, ok := raw.([]any)
		if !ok {
			return nil, errors.Errorf("jsonschema: enum must be an array at %s", at)
		}
		s.HasEnum = true
		s.Enum = make([]any, len(arr))
		for i, e := range arr {
			s.Enum[i] = NormalizeValue(e)
		}
	}
	if raw, ok := m["const"]; ok {
		s.HasConst = true
		s.Const = NormalizeValue(raw)
	}
	if raw, ok := m["default"]; ok {
		s.Default = NormalizeValue(raw)
	}
	if arr, ok := m["examples"].([]any); ok {
		for _, e := range arr {
			s.Examples = append(s.Examples, NormalizeValue(e))
		}
	}
	if raw, ok := m["example"]; ok {
		s.Examples = append(s.Examples, NormalizeValue(raw))
	}

	if s.Minimum, err = optFloat(m, "minimum", at); err != nil {
		return nil, err
	}
	if s.Maximum, err = optFloat(m, "maximum", at); err != nil {
		return nil, err
	}
	if s.MultipleOf, err = optFloat(m, "multipleOf", at); err != nil {
		return nil, err
	}
	if s.ExclusiveMinimum, err = optBound(m, "exclusiveMinimum", at); err != nil {
		return nil, err
	}
	if s.ExclusiveMaximum, err = optBound(m, "exclusiveMaximum", at); err != nil {
		return nil, err
	}
	for key, dst := range map[string]**int{
		"minLength":     &s.MinLength,
		"maxLength":     &s.MaxLength,
		"minItems":      &s.MinItems,
		"maxItems":      &s.MaxItems,
		"minProperties": &s.MinProperties,
		"maxProperties": &s.MaxProperties,
	} {
		if *dst, err = optInt(m, key, at); err != nil {
			return nil, err
		}
	}

	switch t := m["items"].(type) {
	case []any:
		if s.ItemsTuple, err = p.listDraft(t, at+"/items", draft); err != nil {
			return nil, err
		}
	case nil:
	default:
		if s.Items, err = p.node(t, at+"/items", draft); err != nil {
			return nil, err
		}
	}
	if raw, ok := m["prefixItems"].([]any); ok {
		if s.PrefixItems, err = p.listDraft(raw, at+"/prefixItems", draft); err != nil {
			return nil, err
		}
	}
	for key, dst := range map[string]**Schema{
		"additionalItems":      &s.AdditionalItems,
		"contains":             &s.Contains,
		"additionalProperties": &s.AdditionalProperties,
	} {
		raw, ok := m[key]
		if !ok {
			continue
		}
		if *dst, err = p.node(raw, at+"/"+key, draft); err != nil {
			return nil, err
		}
	}
	for key, dst := range map[string]*map[string]*Schema{
		"properties":        &s.Properties,
		"patternProperties": &s.PatternProperties,
		"$defs":             &s.Defs,
		"definitions":       &s.Definitions,
		"dependentSchemas":  &s.DependentSchemas,
	} {
		raw, ok := m[key]
		if !ok {
			continue
		}
		mm, ok := raw.(map[string]any)
		if !ok {
			return nil, errors.Errorf("jsonschema: %s must be an object at %s", key, at)
		}
		if *dst, err = p.mapOf(mm, at+"/"+key, draft); err != nil {
			return nil, err
		}
	}
	if raw, ok := m["required"]; ok {
		if s.Required, err = stringList(raw, at+"/required"); err != nil {
			return nil, err
		}
	}
	if raw, ok := m["dependentRequired"].(map[string]any); ok {
		s.DependentRequired = make(map[string][]string, len(raw))
		for k, v := range raw {
			if s.DependentRequired[k], err = stringList(v, at+"/dependentRequired/"+k); err != nil {
				return nil, err
			}
		}
	}
	if raw, ok := m["dependencies"].(map[string]any); ok {
		for k, v := range raw {
			if arr, ok := v.([]any); ok {
				names, err := stringList(arr, at+"/dependencies/"+k)
				if err != nil {
					return nil, err
				}
				if s.DependentRequired == nil {
					s.DependentRequired = map[string][]string{}
				}
				s.DependentRequired[k] = append(s.DependentRequired[k], names...)
				continue
			}
			dep, err := p.node(v, at+"/dependencies/"+k, draft)
			if err != nil {
				return nil, err
			}
			if s.DependentSchemas == nil {
				s.DependentSchemas = map[string]*Schema{}
			}
			s.DependentSchemas[k] = dep
		}
	}
	for key, dst := range map[string]*[]*Schema{
		"oneOf": &s.OneOf,
		"anyOf": &s.AnyOf,
		"allOf": &s.AllOf,
	} {
		raw, ok := m[key]
		if !ok {
			continue
		}
		arr, ok := raw.([]any)
		if !ok {
			return nil, errors.Errorf("jsonschema: %s must be an array at %s", key, at)
		}
		if *dst, err = p.listDraft(arr, at+"/"+key, draft); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) listDraft(arr []any, at string, draft Draft) ([]*Schema, error) {
	out := make([]*Schema, len(arr))
	for i, e := range arr {
		n, err := p.node(e, at+"/"+strconv.Itoa(i), draft)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (p *parser) mapOf(m map[string]any, at string, draft Draft) (map[string]*Schema, error) {
	out := make(map[string]*Schema, len(m))
	for k, v := range m {
		n, err := p.node(v, at+"/"+k, draft)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}

// DraftFromURI maps a $schema URI to a Draft.
func DraftFromURI(uri string) Draft {
	switch {
	case strings.Contains(uri, "draft-04"):
		return Draft04
	case strings.Contains(uri, "draft-06"):
		return Draft06
	case strings.Contains(uri, "draft-07"):
		return Draft07
	case strings.Contains(uri, "2019-09"):
		return Draft201909
	case strings.Contains(uri, "2020-12"):
		return Draft202012
	default:
		return DraftUnknown
	}
}

func optFloat(m map[string]any, key, at string) (*float64, error) {
	raw, ok := m[key]
	if !ok {
		return nil, nil
	}
	f, ok := AsFloat(raw)
	if !ok {
		return nil, errors.Errorf("jsonschema: %s must be a number at %s", key, at)
	}
	return &f, nil
}

func optBound(m map[string]any, key, at string) (*Bound, error) {
	raw, ok := m[key]
	if !ok {
		return nil, nil
	}
	if b, ok := raw.(bool); ok {
		return &Bound{IsBool: true, Flag: b}, nil
	}
	f, ok := AsFloat(raw)
	if !ok {
		return nil, errors.Errorf("jsonschema: %s must be a number at %s", key, at)
	}
	return &Bound{Value: f}, nil
}

func optInt(m map[string]any, key, at string) (*int, error) {
	raw, ok := m[key]
	if !ok {
		return nil, nil
	}
	f, ok := AsFloat(raw)
	if !ok || f < 0 || f != float64(int(f)) {
		return nil, errors.Errorf("jsonschema: %s must be a non-negative integer at %s", key, at)
	}
	n := int(f)
	return &n, nil
}

func stringList(raw any, at string) ([]string, error) {
	arr, ok := raw.([]any)
	if !ok {
		if ss, ok := raw.([]string); ok {
			return append([]string(nil), ss...), nil
		}
		return nil, errors.Errorf("jsonschema: expected array of strings at %s", at)
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, errors.Errorf("jsonschema: expected string entries at %s", at)
		}
		out = append(out, s)
	}
	return out, nil
}
