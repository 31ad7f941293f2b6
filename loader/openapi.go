package loader

import (
	"sort"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/reoring/fixgen/internal/pointer"
	"github.com/reoring/fixgen/jsonschema"
)

// Operation is one OpenAPI operation with its JSON request body and its
// success (or default) response schema. Either schema may be nil.
type Operation struct {
	// Key is the operationId, or "METHOD /path" when the operation has none.
	Key      string
	Method   string
	Path     string
	Request  *jsonschema.Schema
	Response *jsonschema.Schema
	// ResponseStatus is the status code the response schema was taken from.
	ResponseStatus string
}

var methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

const jsonMedia = "application/json"

func (d *Document) loadOpenAPI() error {
	paths, ok := d.raw["paths"].(map[string]any)
	if !ok {
		return errors.New("loader: OpenAPI document has no paths")
	}
	r := newResolver(d)
	seen := map[string]bool{}
	for _, p := range jsonschema.SortedKeys(paths) {
		item, _ := d.deref(paths[p]).(map[string]any)
		if item == nil {
			continue
		}
		for _, m := range methods {
			raw, ok := item[m].(map[string]any)
			if !ok {
				continue
			}
			op := Operation{Method: strings.ToUpper(m), Path: p}
			op.Key = op.Method + " " + p
			if id, _ := raw["operationId"].(string); id != "" {
				op.Key = id
			}
			if seen[op.Key] {
				return errors.Errorf("loader: duplicate operation %q", op.Key)
			}
			seen[op.Key] = true

			var err error
			if body, _ := d.deref(raw["requestBody"]).(map[string]any); body != nil {
				if op.Request, err = d.mediaSchema(body, r); err != nil {
					return errors.Wrapf(err, "operation %s request", op.Key)
				}
			}
			if resp, status := d.successResponse(raw); resp != nil {
				op.ResponseStatus = status
				if op.Response, err = d.mediaSchema(resp, r); err != nil {
					return errors.Wrapf(err, "operation %s response %s", op.Key, status)
				}
			}
			if op.Request == nil && op.Response == nil {
				d.Diag.warnf("operation %s has no %s schema", op.Key, jsonMedia)
			}
			d.Operations = append(d.Operations, op)
		}
	}
	return nil
}

// successResponse picks the lowest 2xx response, else default.
func (d *Document) successResponse(op map[string]any) (map[string]any, string) {
	responses, _ := op["responses"].(map[string]any)
	codes := make([]string, 0, len(responses))
	for code := range responses {
		if len(code) == 3 && code[0] == '2' {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	if len(codes) == 0 {
		if _, ok := responses["default"]; ok {
			codes = append(codes, "default")
		}
	}
	for _, code := range codes {
		if resp, _ := d.deref(responses[code]).(map[string]any); resp != nil {
			return resp, code
		}
	}
	return nil, ""
}

// mediaSchema parses content["application/json"].schema (or a
// "+json" media type) of a request body or response object.
func (d *Document) mediaSchema(obj map[string]any, r *resolver) (*jsonschema.Schema, error) {
	content, _ := obj["content"].(map[string]any)
	media, ok := content[jsonMedia].(map[string]any)
	if !ok {
		for _, k := range jsonschema.SortedKeys(content) {
			if strings.HasSuffix(k, "+json") {
				media, _ = content[k].(map[string]any)
				break
			}
		}
	}
	raw, ok := media["schema"]
	if !ok {
		return nil, nil
	}
	s, err := jsonschema.FromValue(raw)
	if err != nil {
		return nil, err
	}
	r.walk(s)
	return s, nil
}

// deref follows a "$ref" on a non-schema OpenAPI object (path item,
// request body, response).
func (d *Document) deref(v any) any {
	for i := 0; i < 8; i++ {
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		ref, ok := m["$ref"].(string)
		if !ok {
			return v
		}
		next, found := walkRaw(d.raw, pointer.Split(ref))
		if !strings.HasPrefix(ref, "#") || !found {
			d.Diag.warnf("$ref %q does not resolve", ref)
			return nil
		}
		v = next
	}
	return v
}
