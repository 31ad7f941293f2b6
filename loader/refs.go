package loader

import (
	"strconv"
	"strings"

	"github.com/reoring/fixgen/internal/pointer"
	"github.com/reoring/fixgen/jsonschema"
)

// resolver links every local $ref of a document to its target node. Each
// ref string is parsed once, so cyclic refs share nodes instead of
// expanding; the generator's depth guard terminates the recursion.
type resolver struct {
	doc     *Document
	targets map[string]*jsonschema.Schema
	seen    map[*jsonschema.Schema]bool
}

func newResolver(doc *Document) *resolver {
	return &resolver{
		doc:     doc,
		targets: map[string]*jsonschema.Schema{},
		seen:    map[*jsonschema.Schema]bool{},
	}
}

// resolve walks a document root schema.
func (r *resolver) resolve(root *jsonschema.Schema) {
	r.targets[pointer.Root] = root
	r.walk(root)
}

func (r *resolver) walk(s *jsonschema.Schema) {
	if s == nil || r.seen[s] {
		return
	}
	r.seen[s] = true
	if s.Ref != "" && s.Target == nil {
		s.Target = r.lookup(s.Ref)
	}
	for _, c := range children(s) {
		r.walk(c)
	}
}

// lookup returns the node ref points at, parsing it on first use.
func (r *resolver) lookup(ref string) *jsonschema.Schema {
	if t, ok := r.targets[ref]; ok {
		return t
	}
	if !strings.HasPrefix(ref, "#") {
		r.doc.Diag.warnf("$ref %q not supported (local refs only)", ref)
		return nil
	}
	node, ok := walkRaw(r.doc.raw, pointer.Split(ref))
	if !ok {
		r.doc.Diag.warnf("$ref %q does not resolve", ref)
		return nil
	}
	t, err := jsonschema.FromValue(node)
	if err != nil {
		r.doc.Diag.warnf("$ref %q: %v", ref, err)
		return nil
	}
	r.targets[ref] = t
	r.walk(t)
	return t
}

// walkRaw follows pointer tokens through decoded JSON.
func walkRaw(v any, tokens []string) (any, bool) {
	for _, tok := range tokens {
		switch t := v.(type) {
		case map[string]any:
			next, ok := t[tok]
			if !ok {
				return nil, false
			}
			v = next
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false
			}
			v = t[i]
		default:
			return nil, false
		}
	}
	return v, true
}

// children lists the direct subschemas of s.
func children(s *jsonschema.Schema) []*jsonschema.Schema {
	var out []*jsonschema.Schema
	add := func(list ...*jsonschema.Schema) {
		for _, c := range list {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	addMap := func(m map[string]*jsonschema.Schema) {
		for _, k := range jsonschema.SortedKeys(m) {
			add(m[k])
		}
	}
	add(s.Items, s.AdditionalItems, s.Contains, s.AdditionalProperties)
	add(s.ItemsTuple...)
	add(s.PrefixItems...)
	add(s.OneOf...)
	add(s.AnyOf...)
	add(s.AllOf...)
	addMap(s.Properties)
	addMap(s.PatternProperties)
	addMap(s.DependentSchemas)
	addMap(s.Defs)
	addMap(s.Definitions)
	return out
}
