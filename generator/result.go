package generator

import (
	"fmt"

	"github.com/reoring/fixgen/internal/pointer"
)

// FailureKind classifies why a value could not be produced.
type FailureKind string

const (
	FailTypeMismatch      FailureKind = "type-mismatch"
	FailConstraint        FailureKind = "constraint-violation"
	FailPrecision         FailureKind = "precision-limit"
	FailUnsupportedFormat FailureKind = "unsupported-format"
	FailSchemaStructure   FailureKind = "schema-structure-error"
	FailDepthLimit        FailureKind = "depth-limit"
)

// Constraint tags carried by failures (machine readable).
const (
	ConstraintType             = "type-mismatch"
	ConstraintRange            = "range"
	ConstraintExclusiveBounds  = "exclusive-bounds"
	ConstraintMultipleOf       = "multipleOf"
	ConstraintMultipleOfRange  = "multipleOf-range"
	ConstraintPrecision        = "precision-limit"
	ConstraintDraft04Exclusive = "draft04-exclusive"
	ConstraintConst            = "const-constraints"
	ConstraintEnum             = "enum-constraints"
	ConstraintUniqueItems      = "unique-items"
	ConstraintMinItems         = "min-items"
	ConstraintContains         = "contains"
	ConstraintMinLength        = "min-length"
	ConstraintPattern          = "pattern"
	ConstraintFormat           = "unsupported-format"
	ConstraintFormatLength     = "format-length"
	ConstraintOneOf            = "one-of"
	ConstraintAnyOf            = "any-of"
	ConstraintRequired         = "required"
	ConstraintMinProperties    = "min-properties"
	ConstraintMaxProperties    = "max-properties"
	ConstraintFalseSchema      = "false-schema"
	ConstraintDepth            = "depth-limit"
	ConstraintOracle           = "oracle"
	ConstraintSelfCheck        = "self-check"
)

var remediation = map[string]string{
	ConstraintRange:            "lower minimum or raise maximum",
	ConstraintExclusiveBounds:  "widen the exclusive bounds",
	ConstraintMultipleOf:       "use a positive, finite multipleOf",
	ConstraintMultipleOfRange:  "widen the range or use a smaller multipleOf",
	ConstraintPrecision:        "widen the range or reduce the magnitude of the bounds",
	ConstraintDraft04Exclusive: "use numeric exclusiveMinimum/exclusiveMaximum (draft 6+)",
	ConstraintConst:            "make const satisfy the sibling keywords",
	ConstraintEnum:             "add an enum member that satisfies the sibling keywords",
	ConstraintUniqueItems:      "lower minItems or widen the item schema",
	ConstraintMinLength:        "lower minLength or raise maxLength",
	ConstraintRequired:         "declare the property under properties",
	ConstraintMinProperties:    "lower minProperties or allow additional properties",
	ConstraintMaxProperties:    "raise maxProperties",
	ConstraintDepth:            "raise maxDepth or make the recursive part optional",
	ConstraintFormat:           "register the format or disable format validation",
}

// Failure is a typed generation failure. It is returned as a value and
// implements error so batches can aggregate failures.
type Failure struct {
	Kind       FailureKind    `json:"kind"`
	Constraint string         `json:"constraint"`
	Path       string         `json:"path"`
	SchemaPath string         `json:"schemaPath"`
	Message    string         `json:"message"`
	Hint       string         `json:"hint,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s (%s) at %s: %s", f.Kind, f.Constraint, pointer.Display(f.Path), f.Message)
}

// Result is the outcome of one generator call: either Value or Failure.
type Result struct {
	Value   any
	Failure *Failure
}

// Ok wraps a value.
func Ok(v any) Result { return Result{Value: v} }

// Fail wraps a failure.
func Fail(f *Failure) Result { return Result{Failure: f} }

// OK reports whether the result carries a value.
func (r Result) OK() bool { return r.Failure == nil }

// Unwrap returns the value, or the failure as an error.
func (r Result) Unwrap() (any, error) {
	if r.Failure != nil {
		return nil, r.Failure
	}
	return r.Value, nil
}

// messageData renders params for translator placeholders.
func messageData(params map[string]any) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = fmt.Sprint(v)
	}
	return out
}
