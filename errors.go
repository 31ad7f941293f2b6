package fixgen

import (
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/reoring/fixgen/generator"
	"github.com/reoring/fixgen/internal/pointer"
)

// Issue is one failed generation attempt of a batch.
type Issue struct {
	// Instance is the instance index the failure belongs to.
	Instance  int    `json:"instance"`
	Operation string `json:"operation,omitempty"`
	Role      string `json:"role,omitempty"`
	// Path is the instance pointer where generation failed ("" for the root).
	Path       string `json:"path"`
	SchemaPath string `json:"schemaPath"`
	// Code is the failure kind (type-mismatch, constraint-violation, ...).
	Code       string         `json:"code"`
	Constraint string         `json:"constraint"`
	Message    string         `json:"message"`
	Hint       string         `json:"hint,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
}

// Issues collects the failures of a batch and implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(iss), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		fmt.Fprintf(b, "%s (%s) at %s", it.Code, it.Constraint, pointer.Display(it.Path))
	}
	if len(iss) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// AppendIssues appends issues to dst, initializing it when needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	return append(dst, more...)
}

// AsIssues extracts Issues from err.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// IssueFromFailure converts a generator failure of instance.
func IssueFromFailure(instance int, f *generator.Failure) Issue {
	return Issue{
		Instance:   instance,
		Path:       f.Path,
		SchemaPath: f.SchemaPath,
		Code:       string(f.Kind),
		Constraint: f.Constraint,
		Message:    f.Message,
		Hint:       f.Hint,
		Params:     f.Params,
	}
}

// ErrInvalidOptions wraps every configuration error returned by
// Options.Resolve.
var ErrInvalidOptions = errors.New("fixgen: invalid options")
