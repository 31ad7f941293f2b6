package jsonschema

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// NormalizeValue converts decoded JSON/YAML values to the canonical Go shapes
// used throughout the module: integral numbers become int64, other numbers
// float64, containers []any and map[string]any.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return string(t)
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return float64(t)
	case float32:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = NormalizeValue(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = NormalizeValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			if ks, ok := k.(string); ok {
				out[ks] = NormalizeValue(vv)
			}
		}
		return out
	default:
		return v
	}
}

// AsFloat reports the numeric value of v for any Go numeric type or
// json.Number.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// IsNumber reports whether v is a JSON number.
func IsNumber(v any) bool {
	_, ok := AsFloat(v)
	return ok
}

// IsInteger reports whether v is a JSON number with no fractional part.
func IsInteger(v any) bool {
	switch t := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		if _, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return true
		}
	}
	f, ok := AsFloat(v)
	return ok && !math.IsInf(f, 0) && !math.IsNaN(f) && math.Trunc(f) == f
}

// TypeName returns the JSON type name of v ("null", "boolean", "integer",
// "number", "string", "array", "object"), or "" for non-JSON values.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if IsInteger(v) {
		return "integer"
	}
	if IsNumber(v) {
		return "number"
	}
	return ""
}

// Equal is deep structural equality over JSON values. Numbers compare by
// value regardless of Go representation; objects ignore key order.
func Equal(a, b any) bool {
	if fa, ok := AsFloat(a); ok {
		fb, ok := AsFloat(b)
		if !ok {
			return false
		}
		ia, aInt := a.(int64)
		ib, bInt := b.(int64)
		if aInt && bInt {
			return ia == ib
		}
		return fa == fb
	}
	switch ta := a.(type) {
	case nil:
		return b == nil
	case bool:
		tb, ok := b.(bool)
		return ok && ta == tb
	case string:
		tb, ok := b.(string)
		return ok && ta == tb
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !Equal(ta[i], tb[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		tb, ok := b.(map[string]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, va := range ta {
			vb, ok := tb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Canonical returns a key-order independent serialization of a JSON value,
// suitable as a map key for deduplication. go-json sorts map keys, and
// numbers are rendered through float64 so that 1 and 1.0 collide.
func Canonical(v any) string {
	b, err := gojson.Marshal(canonicalize(v))
	if err != nil {
		return "\x00invalid"
	}
	return string(b)
}

func canonicalize(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = canonicalize(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = canonicalize(vv)
		}
		return out
	case string, bool, nil:
		return t
	}
	if f, ok := AsFloat(v); ok {
		if f == 0 {
			return float64(0)
		}
		return f
	}
	return v
}

// CanonicalSchema serializes a schema with sorted keys; it is the memo-cache
// key component for a schema node.
func CanonicalSchema(s *Schema) string {
	b, err := gojson.Marshal(s)
	if err != nil {
		return "\x00invalid"
	}
	return string(b)
}

func sortedKeys[V any](m map[string]V) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string { return sortedKeys(m) }
