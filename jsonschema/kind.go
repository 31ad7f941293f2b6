package jsonschema

// Kind is the closed set of generator categories a schema node can fall
// into. Classify assigns exactly one, in dispatch priority order.
type Kind int

const (
	KindNever Kind = iota // the false schema
	KindEnum
	KindConst
	KindRef
	KindAllOf
	KindOneOf
	KindAnyOf
	KindBoolean
	KindInteger
	KindNumber
	KindString
	KindArray
	KindObject
	KindNull
	KindAny
)

var kindNames = [...]string{
	KindNever:   "never",
	KindEnum:    "enum",
	KindConst:   "const",
	KindRef:     "ref",
	KindAllOf:   "allOf",
	KindOneOf:   "oneOf",
	KindAnyOf:   "anyOf",
	KindBoolean: "boolean",
	KindInteger: "integer",
	KindNumber:  "number",
	KindString:  "string",
	KindArray:   "array",
	KindObject:  "object",
	KindNull:    "null",
	KindAny:     "any",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// TypeKind maps a `type` keyword value to its Kind.
func TypeKind(name string) (Kind, bool) {
	switch name {
	case "boolean":
		return KindBoolean, true
	case "integer":
		return KindInteger, true
	case "number":
		return KindNumber, true
	case "string":
		return KindString, true
	case "array":
		return KindArray, true
	case "object":
		return KindObject, true
	case "null":
		return KindNull, true
	default:
		return KindAny, false
	}
}

// Classify returns the Kind used to dispatch s. enum and const win over
// composition, which wins over the type keyword. Without a type keyword the
// kind is inferred from type-specific keywords.
func Classify(s *Schema) Kind {
	switch {
	case s.IsFalse():
		return KindNever
	case s == nil || s.Bool != nil:
		return KindAny
	case s.HasEnum:
		return KindEnum
	case s.HasConst:
		return KindConst
	case s.Ref != "" && s.Target != nil:
		return KindRef
	case len(s.AllOf) > 0:
		return KindAllOf
	case len(s.OneOf) > 0:
		return KindOneOf
	case len(s.AnyOf) > 0:
		return KindAnyOf
	}
	for _, t := range s.Type {
		if k, ok := TypeKind(t); ok {
			return k
		}
	}
	return InferKind(s)
}

// InferKind guesses the type of an untyped schema from its keywords.
func InferKind(s *Schema) Kind {
	switch {
	case len(s.Properties) > 0 || len(s.Required) > 0 || s.MinProperties != nil || s.MaxProperties != nil ||
		s.AdditionalProperties != nil || len(s.PatternProperties) > 0 || len(s.DependentRequired) > 0:
		return KindObject
	case s.Items != nil || len(s.ItemsTuple) > 0 || len(s.PrefixItems) > 0 || s.MinItems != nil ||
		s.MaxItems != nil || s.Contains != nil || s.UniqueItems:
		return KindArray
	case s.MinLength != nil || s.MaxLength != nil || s.Pattern != "" || s.Format != "":
		return KindString
	case s.Minimum != nil || s.Maximum != nil || s.ExclusiveMinimum != nil || s.ExclusiveMaximum != nil ||
		s.MultipleOf != nil:
		return KindNumber
	default:
		return KindAny
	}
}
