package jsonschema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/fixgen/jsonschema"
)

func TestParse_Keywords(t *testing.T) {
	s, err := jsonschema.Parse([]byte(`{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": ["integer", "null"],
		"minimum": 1,
		"exclusiveMaximum": 10,
		"multipleOf": 0.5,
		"enum": [1, 2.5, null],
		"const": null
	}`))
	require.NoError(t, err)
	assert.Equal(t, jsonschema.Draft07, s.Draft)
	assert.Equal(t, jsonschema.TypeSet{"integer", "null"}, s.Type)
	require.NotNil(t, s.Minimum)
	assert.Equal(t, 1.0, *s.Minimum)
	require.NotNil(t, s.ExclusiveMaximum)
	assert.False(t, s.ExclusiveMaximum.IsBool)
	assert.Equal(t, 10.0, s.ExclusiveMaximum.Value)
	assert.True(t, s.HasEnum)
	assert.Equal(t, []any{int64(1), 2.5, nil}, s.Enum)
	assert.True(t, s.HasConst)
	assert.Nil(t, s.Const)
}

func TestParse_Draft04BooleanExclusive(t *testing.T) {
	s, err := jsonschema.Parse([]byte(`{"type":"number","minimum":0,"exclusiveMinimum":true}`))
	require.NoError(t, err)
	require.NotNil(t, s.ExclusiveMinimum)
	assert.True(t, s.ExclusiveMinimum.IsBool)
	assert.True(t, s.ExclusiveMinimum.Flag)
}

func TestParse_BooleanSchemas(t *testing.T) {
	s, err := jsonschema.Parse([]byte(`{"properties":{"a":true,"b":false}}`))
	require.NoError(t, err)
	assert.True(t, s.Properties["a"].IsTrue())
	assert.True(t, s.Properties["b"].IsFalse())
	assert.Equal(t, jsonschema.KindNever, jsonschema.Classify(s.Properties["b"]))
	assert.Equal(t, jsonschema.KindObject, jsonschema.Classify(s))
}

func TestParse_ItemsForms(t *testing.T) {
	s, err := jsonschema.Parse([]byte(`{"items":[{"type":"string"},{"type":"integer"}],"additionalItems":false}`))
	require.NoError(t, err)
	prefix, rest := s.TupleItems()
	require.Len(t, prefix, 2)
	assert.True(t, rest.IsFalse())

	s, err = jsonschema.Parse([]byte(`{"prefixItems":[{"type":"string"}],"items":{"type":"boolean"}}`))
	require.NoError(t, err)
	prefix, rest = s.TupleItems()
	require.Len(t, prefix, 1)
	assert.Equal(t, jsonschema.TypeSet{"boolean"}, rest.Type)
}

func TestParse_Dependencies(t *testing.T) {
	s, err := jsonschema.Parse([]byte(`{
		"dependencies": {"a": ["b"], "c": {"required": ["d"]}},
		"dependentRequired": {"x": ["y"]}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, s.DependentRequired["a"])
	assert.Equal(t, []string{"y"}, s.DependentRequired["x"])
	require.Contains(t, s.DependentSchemas, "c")
	assert.Equal(t, []string{"d"}, s.DependentSchemas["c"].Required)
}

func TestParse_Errors(t *testing.T) {
	for _, doc := range []string{
		`{"type": 3}`,
		`{"minLength": -1}`,
		`{"minItems": 1.5}`,
		`{"enum": "a"}`,
		`{"oneOf": {}}`,
		`{"minimum": "x"}`,
		`null`,
		`{`,
	} {
		_, err := jsonschema.Parse([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, jsonschema.Equal(int64(1), 1.0))
	assert.True(t, jsonschema.Equal(map[string]any{"a": []any{int64(1), "x"}}, map[string]any{"a": []any{1.0, "x"}}))
	assert.False(t, jsonschema.Equal(map[string]any{"a": 1.0}, map[string]any{"a": 1.0, "b": nil}))
	assert.False(t, jsonschema.Equal("1", int64(1)))
	assert.False(t, jsonschema.Equal(nil, false))
	assert.True(t, jsonschema.Equal(nil, nil))
	assert.False(t, jsonschema.Equal(int64(9007199254740993), int64(9007199254740992)))
}

func TestCanonical_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"b": int64(1), "a": []any{true, nil}}
	b := map[string]any{"a": []any{true, nil}, "b": 1.0}
	assert.Equal(t, jsonschema.Canonical(a), jsonschema.Canonical(b))
	assert.NotEqual(t, jsonschema.Canonical([]any{int64(1), int64(2)}), jsonschema.Canonical([]any{int64(2), int64(1)}))
}

func TestCanonicalSchema_Stable(t *testing.T) {
	s1, err := jsonschema.Parse([]byte(`{"type":"object","properties":{"a":{"type":"string"},"b":{"type":"integer"}}}`))
	require.NoError(t, err)
	s2, err := jsonschema.Parse([]byte(`{"properties":{"b":{"type":"integer"},"a":{"type":"string"}},"type":"object"}`))
	require.NoError(t, err)
	assert.Equal(t, jsonschema.CanonicalSchema(s1), jsonschema.CanonicalSchema(s2))
}

func TestClassify_Priority(t *testing.T) {
	cases := []struct {
		doc  string
		want jsonschema.Kind
	}{
		{`{"type":"string","enum":["a"]}`, jsonschema.KindEnum},
		{`{"type":"string","const":"a"}`, jsonschema.KindConst},
		{`{"type":"string","oneOf":[{"minLength":1}]}`, jsonschema.KindOneOf},
		{`{"anyOf":[{"type":"string"}]}`, jsonschema.KindAnyOf},
		{`{"allOf":[{"type":"string"}],"anyOf":[{}]}`, jsonschema.KindAllOf},
		{`{"type":["foo","number"]}`, jsonschema.KindNumber},
		{`{"properties":{}}`, jsonschema.KindAny},
		{`{"required":["a"]}`, jsonschema.KindObject},
		{`{"minItems":1}`, jsonschema.KindArray},
		{`{"pattern":"^a$"}`, jsonschema.KindString},
		{`{"maximum":3}`, jsonschema.KindNumber},
		{`{}`, jsonschema.KindAny},
		{`true`, jsonschema.KindAny},
	}
	for _, tc := range cases {
		s, err := jsonschema.Parse([]byte(tc.doc))
		require.NoError(t, err, tc.doc)
		assert.Equal(t, tc.want, jsonschema.Classify(s), tc.doc)
	}
}

func TestMerge_Intersects(t *testing.T) {
	a, err := jsonschema.Parse([]byte(`{"type":"number","minimum":0,"maximum":100,"required":["a"],"properties":{"a":{"type":"integer","minimum":5}}}`))
	require.NoError(t, err)
	b, err := jsonschema.Parse([]byte(`{"type":"integer","minimum":10,"required":["b"],"properties":{"a":{"maximum":7}}}`))
	require.NoError(t, err)

	m := jsonschema.Merge(a, b)
	assert.Equal(t, jsonschema.TypeSet{"integer"}, m.Type)
	assert.Equal(t, 10.0, *m.Minimum)
	assert.Equal(t, 100.0, *m.Maximum)
	assert.ElementsMatch(t, []string{"a", "b"}, m.Required)
	assert.Equal(t, 5.0, *m.Properties["a"].Minimum)
	assert.Equal(t, 7.0, *m.Properties["a"].Maximum)
}

func TestMerge_DisjointTypesIsFalse(t *testing.T) {
	a, _ := jsonschema.Parse([]byte(`{"type":"string"}`))
	b, _ := jsonschema.Parse([]byte(`{"type":"integer"}`))
	assert.True(t, jsonschema.Merge(a, b).IsFalse())
}

func TestMerge_EnumIntersection(t *testing.T) {
	a, _ := jsonschema.Parse([]byte(`{"enum":["a","b","c"]}`))
	b, _ := jsonschema.Parse([]byte(`{"enum":["c","b","z"]}`))
	m := jsonschema.Merge(a, b)
	assert.Equal(t, []any{"b", "c"}, m.Enum)
}
