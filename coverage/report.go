package coverage

import (
	"time"

	gojson "github.com/goccy/go-json"
)

// RunInfo is the run metadata of a report.
type RunInfo struct {
	StartedAt   time.Time `json:"startedAt"`
	DurationMs  int64     `json:"durationMs"`
	Mode        string    `json:"mode,omitempty"`
	Seed        uint32    `json:"seed"`
	Instances   int       `json:"instances"`
	Failures    int       `json:"failures"`
	TargetCount int       `json:"targetCount"`
	// BaseInstances come from the count budget; HintedInstances are the
	// guided additions kept on top of it, out of HintedDraws attempts.
	BaseInstances   int `json:"baseInstances"`
	HintedInstances int `json:"hintedInstances"`
	HintedDraws     int `json:"hintedDraws"`
}

// Metrics are hit ratios in [0, 1]. Unreachable targets are excluded from
// the denominators; an empty denominator yields 1.
type Metrics struct {
	Overall float64 `json:"overall"`
	// BaseOverall is the overall ratio after the base instances only. It
	// equals Overall unless guided instances were added.
	BaseOverall float64               `json:"baseOverall"`
	ByDimension map[Dimension]float64 `json:"byDimension"`
	ByOperation map[string]float64    `json:"byOperation"`
}

// CapHit records a planner cap that dropped work.
type CapHit struct {
	Cap     string `json:"cap"`
	Limit   int    `json:"limit"`
	Dropped int    `json:"dropped"`
}

// Diagnostics collects planner caps hit during the run.
type Diagnostics struct {
	PlannerCapsHit []CapHit `json:"plannerCapsHit"`
}

// Report is the immutable result of a coverage run.
type Report struct {
	Run              RunInfo           `json:"run"`
	Targets          []Target          `json:"targets"`
	UncoveredTargets []Target          `json:"uncoveredTargets"`
	Metrics          Metrics           `json:"metrics"`
	Diagnostics      Diagnostics       `json:"diagnostics"`
	UnsatisfiedHints []UnsatisfiedHint `json:"unsatisfiedHints"`
}

type ratio struct{ hit, total int }

func (r *ratio) add(tg *Target) {
	if tg.Status == StatusUnreachable && !tg.Hit {
		return
	}
	r.total++
	if tg.Hit {
		r.hit++
	}
}

func (r ratio) value() float64 {
	if r.total == 0 {
		return 1
	}
	return float64(r.hit) / float64(r.total)
}

// Metrics computes the current ratios.
func (t *Tracker) Metrics() Metrics {
	var overall ratio
	dims := map[Dimension]*ratio{}
	for _, d := range AllDimensions {
		if t.dims[d] {
			dims[d] = &ratio{}
		}
	}
	ops := map[string]*ratio{}
	for _, tg := range t.targets {
		overall.add(tg)
		dims[tg.Dimension].add(tg)
		if tg.Operation != "" {
			r, ok := ops[tg.Operation]
			if !ok {
				r = &ratio{}
				ops[tg.Operation] = r
			}
			r.add(tg)
		}
	}
	m := Metrics{
		Overall:     overall.value(),
		BaseOverall: overall.value(),
		ByDimension: make(map[Dimension]float64, len(dims)),
		ByOperation: make(map[string]float64, len(ops)),
	}
	for d, r := range dims {
		m.ByDimension[d] = r.value()
	}
	for op, r := range ops {
		m.ByOperation[op] = r.value()
	}
	return m
}

// Report finishes the run: observing -> reporting. The report does not
// change afterwards.
func (t *Tracker) Report() (*Report, error) {
	if err := t.want(StateCollecting, StateObserving); err != nil {
		return nil, err
	}
	t.state = StateReporting
	targets := t.Targets()
	uncovered := t.Uncovered()
	if uncovered == nil {
		uncovered = []Target{}
	}
	unsatisfied := append([]UnsatisfiedHint{}, t.unsatisfied...)
	caps := append([]CapHit{}, t.capsHit...)
	return &Report{
		Run: RunInfo{
			StartedAt:   t.started,
			DurationMs:  t.now().Sub(t.started).Milliseconds(),
			Instances:   t.instances,
			Failures:    t.failures,
			TargetCount: len(targets),
		},
		Targets:          targets,
		UncoveredTargets: uncovered,
		Metrics:          t.Metrics(),
		Diagnostics:      Diagnostics{PlannerCapsHit: caps},
		UnsatisfiedHints: unsatisfied,
	}, nil
}

// Canonical renders the report without its timing fields and with object
// keys sorted, so reports of identical runs compare byte for byte.
func (r *Report) Canonical() ([]byte, error) {
	c := *r
	c.Run.StartedAt = time.Time{}
	c.Run.DurationMs = 0
	raw, err := gojson.Marshal(c)
	if err != nil {
		return nil, err
	}
	var v any
	if err := gojson.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return gojson.Marshal(v)
}

// Covered reports whether the target with id was hit.
func (r *Report) Covered(id string) bool {
	for _, tg := range r.Targets {
		if tg.ID == id {
			return tg.Hit
		}
	}
	return false
}
