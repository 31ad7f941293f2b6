// Package coverage measures how much of a schema a batch of generated
// instances exercises and plans generation hints for what it missed.
//
// A Tracker enumerates Targets from the static schema (or from every
// operation of a document), observes instances against them and reports
// per-dimension ratios. A Planner turns the uncovered targets into packed
// units of generator.Hint values for guided generation.
package coverage

import (
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
)

// Dimension groups related targets.
type Dimension string

const (
	DimStructure  Dimension = "structure"
	DimBranches   Dimension = "branches"
	DimEnum       Dimension = "enum"
	DimBoundaries Dimension = "boundaries"
	DimOperations Dimension = "operations"
)

// AllDimensions lists every dimension in report order.
var AllDimensions = []Dimension{DimStructure, DimBranches, DimEnum, DimBoundaries, DimOperations}

// DefaultDimensions is used when no dimension is enabled explicitly.
var DefaultDimensions = []Dimension{DimStructure, DimBranches, DimEnum}

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, error) {
	for _, d := range AllDimensions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", errors.Errorf("unknown coverage dimension %q", s)
}

// Kind is the measurable event a target waits for.
type Kind string

const (
	KindSchemaNode       Kind = "SCHEMA_NODE"
	KindPropertyPresent  Kind = "PROPERTY_PRESENT"
	KindOneOfBranch      Kind = "ONE_OF_BRANCH_COVERED"
	KindAnyOfBranch      Kind = "ANY_OF_BRANCH_COVERED"
	KindEnumValue        Kind = "ENUM_VALUE_HIT"
	KindNumericMin       Kind = "NUMERIC_MIN_HIT"
	KindNumericMax       Kind = "NUMERIC_MAX_HIT"
	KindStringMinLength  Kind = "STRING_MIN_LENGTH_HIT"
	KindStringMaxLength  Kind = "STRING_MAX_LENGTH_HIT"
	KindArrayMinItems    Kind = "ARRAY_MIN_ITEMS_HIT"
	KindArrayMaxItems    Kind = "ARRAY_MAX_ITEMS_HIT"
	KindOperationRequest Kind = "OP_REQUEST_COVERED"
	KindOperationResp    Kind = "OP_RESPONSE_COVERED"
)

var kindDimension = map[Kind]Dimension{
	KindSchemaNode:       DimStructure,
	KindPropertyPresent:  DimStructure,
	KindOneOfBranch:      DimBranches,
	KindAnyOfBranch:      DimBranches,
	KindEnumValue:        DimEnum,
	KindNumericMin:       DimBoundaries,
	KindNumericMax:       DimBoundaries,
	KindStringMinLength:  DimBoundaries,
	KindStringMaxLength:  DimBoundaries,
	KindArrayMinItems:    DimBoundaries,
	KindArrayMaxItems:    DimBoundaries,
	KindOperationRequest: DimOperations,
	KindOperationResp:    DimOperations,
}

// DimensionOf returns the dimension k belongs to.
func DimensionOf(k Kind) Dimension { return kindDimension[k] }

// Status is the reachability of a target.
type Status string

const (
	StatusActive      Status = "active"
	StatusUnreachable Status = "unreachable"
)

// Role distinguishes the request and response schema of an operation.
type Role string

const (
	RoleNone     Role = ""
	RoleRequest  Role = "request"
	RoleResponse Role = "response"
)

// Root is one schema the tracker measures: a plain schema (no operation) or
// the request/response schema of a document operation.
type Root struct {
	Operation string
	Role      Role
}

// Key identifies the root inside target IDs.
func (r Root) Key() string {
	if r.Role == RoleNone {
		return r.Operation
	}
	return r.Operation + "@" + string(r.Role)
}

// Target is one measurable unit of coverage.
type Target struct {
	ID        string         `json:"id"`
	Dimension Dimension      `json:"dimension"`
	Kind      Kind           `json:"kind"`
	CanonPath string         `json:"canonPath"`
	Operation string         `json:"operation,omitempty"`
	Role      Role           `json:"role,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Status    Status         `json:"status"`
	Hit       bool           `json:"hit"`
}

// Root returns the root the target was collected from.
func (t Target) Root() Root { return Root{Operation: t.Operation, Role: t.Role} }

// TargetID builds the stable identifier
// "dimension:kind:operation:canonPath[#param]".
func TargetID(kind Kind, root Root, canonPath string, param string) string {
	var b strings.Builder
	b.WriteString(string(DimensionOf(kind)))
	b.WriteByte(':')
	b.WriteString(string(kind))
	b.WriteByte(':')
	b.WriteString(root.Key())
	b.WriteByte(':')
	b.WriteString(canonPath)
	if param != "" {
		b.WriteByte('#')
		b.WriteString(param)
	}
	return b.String()
}

func indexParam(i int) string { return strconv.Itoa(i) }
