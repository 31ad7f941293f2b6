package generator

// HintKind is the bias a hint applies to one schema node.
type HintKind string

const (
	HintPreferBranch    HintKind = "prefer-branch"    // oneOf/anyOf: start with branch Index
	HintPreferEnum      HintKind = "prefer-enum"      // enum: pick member Index
	HintIncludeProperty HintKind = "include-property" // object: include optional property Name
	HintPreferBoundary  HintKind = "prefer-boundary"  // number/string/array: pick Boundary ("min"|"max")
	HintNonEmpty        HintKind = "non-empty"        // array: at least one item
)

// Boundary values of a prefer-boundary hint.
const (
	BoundaryMin = "min"
	BoundaryMax = "max"
)

// Hint steers one generator call toward an uncovered coverage target.
// SchemaPath is the canonical pointer of the node the hint applies to.
type Hint struct {
	Kind       HintKind `json:"kind"`
	SchemaPath string   `json:"schemaPath"`
	Index      int      `json:"index,omitempty"`
	Name       string   `json:"name,omitempty"`
	Boundary   string   `json:"boundary,omitempty"`
	TargetID   string   `json:"targetId,omitempty"`
}

// HintSet is the set of hints active during one generation call. Each hint
// is consumed at most once.
type HintSet struct {
	hints []Hint
	used  []bool
}

// NewHintSet wraps hints.
func NewHintSet(hints []Hint) *HintSet {
	return &HintSet{hints: hints, used: make([]bool, len(hints))}
}

// Len returns the number of hints.
func (h *HintSet) Len() int { return len(h.hints) }

func (h *HintSet) find(kind HintKind, schemaPath string, match func(Hint) bool) int {
	for i, x := range h.hints {
		if h.used[i] || x.Kind != kind || x.SchemaPath != schemaPath {
			continue
		}
		if match == nil || match(x) {
			return i
		}
	}
	return -1
}

func (h *HintSet) take(kind HintKind, schemaPath string, match func(Hint) bool) (Hint, bool) {
	i := h.find(kind, schemaPath, match)
	if i < 0 {
		return Hint{}, false
	}
	h.used[i] = true
	return h.hints[i], true
}

func (h *HintSet) peek(kind HintKind, schemaPath string, match func(Hint) bool) bool {
	return h.find(kind, schemaPath, match) >= 0
}

// Consumed returns the hints that were applied.
func (h *HintSet) Consumed() []Hint {
	var out []Hint
	for i, x := range h.hints {
		if h.used[i] {
			out = append(out, x)
		}
	}
	return out
}

// Unconsumed returns the hints no generator applied.
func (h *HintSet) Unconsumed() []Hint {
	var out []Hint
	for i, x := range h.hints {
		if !h.used[i] {
			out = append(out, x)
		}
	}
	return out
}
