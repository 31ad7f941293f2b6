package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestStrictYAMLReader_DuplicateKey(t *testing.T) {
	for name, y := range map[string]string{
		"root":   "kind: A\nkind: B\n",
		"nested": "metadata:\n  name: a\n  name: b\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewStrictYAMLReader(bytes.NewReader([]byte(y))).Next()
			var de *DuplicateKeyError
			if !errors.As(err, &de) {
				t.Fatalf("expected DuplicateKeyError, got %T %v", err, err)
			}
			if de.FirstLine <= 0 || de.Line <= de.FirstLine {
				t.Fatalf("bad positions first=%d dup=%d", de.FirstLine, de.Line)
			}
		})
	}
}

func TestStrictYAMLReader_Scalars(t *testing.T) {
	v, err := NewStrictYAMLReader(bytes.NewReader([]byte(
		"i: 42\nbig: 9223372036854775808\nf: 1.5\nb: true\nn: null\ns: '7'\nlist: [1, x]\nbase: &a {k: 1}\nref: *a\n"))).Next()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m := v.(map[string]any)
	if m["i"] != int64(42) {
		t.Fatalf("i = %#v", m["i"])
	}
	if m["big"] != json.Number("9223372036854775808") {
		t.Fatalf("big = %#v", m["big"])
	}
	if m["f"] != 1.5 || m["b"] != true || m["n"] != nil || m["s"] != "7" {
		t.Fatalf("scalars = %#v", m)
	}
	if l := m["list"].([]any); l[0] != int64(1) || l[1] != "x" {
		t.Fatalf("list = %#v", l)
	}
	if ref := m["ref"].(map[string]any); ref["k"] != int64(1) {
		t.Fatalf("alias = %#v", ref)
	}
}

func TestStrictYAMLReader_ReadAll(t *testing.T) {
	docs, err := NewStrictYAMLReader(bytes.NewReader([]byte("kind: A\n---\nkind: B\n"))).ReadAll()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
}

func TestCheckJSONKeys(t *testing.T) {
	if err := checkJSONKeys([]byte(`{"a":[{"b":1},{"b":2}],"c":{"d":"a","e":["a","a"]}}`)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := checkJSONKeys([]byte(`{"a":[1,{"x":1,"x":2}]}`))
	var de *JSONDuplicateKeyError
	if !errors.As(err, &de) {
		t.Fatalf("expected JSONDuplicateKeyError, got %T %v", err, err)
	}
	if de.Key != "x" || de.Path != "/a/1" {
		t.Fatalf("key=%q path=%q", de.Key, de.Path)
	}
	if _, err := Load([]byte(`{"type":"string","type":"integer"}`), Options{}); !errors.As(err, &de) {
		t.Fatalf("Load accepted a duplicate key: %v", err)
	}
}
