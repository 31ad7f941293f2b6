// Package loader turns JSON or YAML documents into resolved schemas.
//
// A document is either a plain JSON Schema, a Kubernetes CRD (or a bare
// openAPIV3Schema wrapper) or an OpenAPI 3 document. Local "$ref"s are
// resolved in place by setting Schema.Target; OpenAPI documents also yield
// one Operation per path item method with its request and response schemas.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/Laisky/errors/v2"
	gojson "github.com/goccy/go-json"

	"github.com/reoring/fixgen/jsonschema"
)

// Options controls document loading.
type Options struct {
	// CRDKind selects the CustomResourceDefinition with spec.names.kind in
	// a multi-document YAML stream. Empty takes the first document.
	CRDKind string
}

// Diag carries non-fatal warnings produced while loading.
type Diag struct {
	warnings []string
}

// HasWarnings reports whether any warning was recorded.
func (d *Diag) HasWarnings() bool { return d != nil && len(d.warnings) > 0 }

// Warnings returns a copy of the recorded warnings.
func (d *Diag) Warnings() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.warnings...)
}

func (d *Diag) warnf(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

// Document is a loaded schema document.
type Document struct {
	// Root is the top-level schema; nil for OpenAPI documents.
	Root *jsonschema.Schema
	// Operations lists the OpenAPI operations in path and method order.
	Operations []Operation
	Diag       *Diag

	raw map[string]any
}

// IsOpenAPI reports whether the document was an OpenAPI document.
func (d *Document) IsOpenAPI() bool { return d.Root == nil }

// Operation returns the operation with key.
func (d *Document) Operation(key string) (Operation, bool) {
	for _, op := range d.Operations {
		if op.Key == key {
			return op, true
		}
	}
	return Operation{}, false
}

// LoadFile reads and loads the document at path.
func LoadFile(path string, opts Options) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read schema %q", path)
	}
	doc, err := Load(data, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "load schema %q", path)
	}
	return doc, nil
}

// Load decodes data as JSON when it starts with '{' and as YAML otherwise.
// Duplicate object keys are an error in both encodings.
func Load(data []byte, opts Options) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("loader: empty document")
	}
	if trimmed[0] == '{' || string(trimmed) == "true" || string(trimmed) == "false" {
		if err := checkJSONKeys(trimmed); err != nil {
			return nil, errors.Wrap(err, "loader: invalid JSON")
		}
		dec := gojson.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, errors.Wrap(err, "loader: invalid JSON")
		}
		return FromValue(v, opts)
	}
	docs, err := NewStrictYAMLReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "loader: invalid YAML")
	}
	v, err := pickDocument(docs, opts.CRDKind)
	if err != nil {
		return nil, err
	}
	return FromValue(v, opts)
}

// pickDocument selects the document of a YAML stream to load.
func pickDocument(docs []any, crdKind string) (any, error) {
	var nonEmpty []any
	for _, d := range docs {
		if d != nil {
			nonEmpty = append(nonEmpty, d)
		}
	}
	if len(nonEmpty) == 0 {
		return nil, errors.New("loader: no YAML document")
	}
	if crdKind == "" {
		return nonEmpty[0], nil
	}
	for _, d := range nonEmpty {
		m, _ := d.(map[string]any)
		if k, _ := m["kind"].(string); k != "CustomResourceDefinition" {
			continue
		}
		spec, _ := m["spec"].(map[string]any)
		names, _ := spec["names"].(map[string]any)
		if k, _ := names["kind"].(string); k == crdKind {
			return d, nil
		}
	}
	return nil, errors.Errorf("loader: CRD kind %q not found in YAML stream", crdKind)
}

// FromValue loads an already decoded document (map[string]any or bool).
func FromValue(v any, opts Options) (*Document, error) {
	if v == nil {
		return nil, errors.New("loader: nil document")
	}
	v = jsonschema.NormalizeValue(v)
	doc := &Document{Diag: &Diag{}}
	root, isMap := v.(map[string]any)
	if isMap {
		doc.raw = root
		if isOpenAPI(root) {
			if err := doc.loadOpenAPI(); err != nil {
				return nil, err
			}
			return doc, nil
		}
		if spec, ok := root["openAPIV3Schema"].(map[string]any); ok {
			v = spec
		} else if unwrapped := unwrapCRDSchema(root); unwrapped != nil {
			v = unwrapped
		}
	}
	s, err := jsonschema.FromValue(v)
	if err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]any); ok {
		doc.raw = m
	}
	newResolver(doc).resolve(s)
	doc.Root = s
	return doc, nil
}

func isOpenAPI(root map[string]any) bool {
	if v, ok := root["openapi"].(string); ok && strings.HasPrefix(v, "3") {
		return true
	}
	_, paths := root["paths"].(map[string]any)
	_, schema := root["type"]
	return paths && !schema
}

// unwrapCRDSchema extracts openAPIV3Schema from a Kubernetes CRD, preferring
// a served version, then the legacy spec.validation location.
func unwrapCRDSchema(root map[string]any) map[string]any {
	spec, ok := root["spec"].(map[string]any)
	if !ok {
		return nil
	}
	if vers, ok := spec["versions"].([]any); ok {
		var firstFound map[string]any
		for _, v := range vers {
			vm, _ := v.(map[string]any)
			if vm == nil {
				continue
			}
			served := true
			if sv, ok := vm["served"].(bool); ok {
				served = sv
			}
			sch, _ := vm["schema"].(map[string]any)
			oas, ok := sch["openAPIV3Schema"].(map[string]any)
			if !ok {
				continue
			}
			if served {
				return oas
			}
			if firstFound == nil {
				firstFound = oas
			}
		}
		if firstFound != nil {
			return firstFound
		}
	}
	if val, ok := spec["validation"].(map[string]any); ok {
		if oas, ok := val["openAPIV3Schema"].(map[string]any); ok {
			return oas
		}
	}
	return nil
}
