package fixgen

import "github.com/reoring/fixgen/coverage"

// Instance is one generated value of a batch.
type Instance struct {
	Operation string `json:"operation,omitempty"`
	Role      string `json:"role,omitempty"`
	// Index is the instance number the value was generated for. Hinted
	// instances continue after the base batch.
	Index  int  `json:"index"`
	Value  any  `json:"value"`
	Hinted bool `json:"hinted,omitempty"`
}

// Diagnostic codes.
const (
	DiagValidationSkipped = "validation-skipped"
	DiagPlannerCap        = "planner-cap"
	DiagLoaderWarning     = "loader-warning"
)

// Diagnostic is a non-fatal note about a batch.
type Diagnostic struct {
	Code      string         `json:"code"`
	CanonPath string         `json:"canonPath"`
	Details   map[string]any `json:"details"`
	Metrics   map[string]any `json:"metrics,omitempty"`
}

// Batch is the output of one Generate call.
type Batch struct {
	// Options are the resolved options the batch ran with.
	Options     Options          `json:"-"`
	Instances   []Instance       `json:"instances"`
	Failures    Issues           `json:"failures"`
	Diagnostics []Diagnostic     `json:"diagnostics"`
	Coverage    *coverage.Report `json:"coverage,omitempty"`
}

// Values returns the instance values in batch order.
func (b *Batch) Values() []any {
	out := make([]any, len(b.Instances))
	for i, in := range b.Instances {
		out[i] = in.Value
	}
	return out
}

// Err returns the failures as an error, or nil when every attempt succeeded.
func (b *Batch) Err() error {
	if len(b.Failures) == 0 {
		return nil
	}
	return b.Failures
}
