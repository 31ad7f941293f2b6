// Package metrics exposes Prometheus collectors for generation and coverage
// runs.
package metrics

import (
	"sort"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fixgen"

// Collectors groups the run metrics. A nil *Collectors is valid and records
// nothing.
type Collectors struct {
	reg       *prometheus.Registry
	instances *prometheus.CounterVec
	failures  *prometheus.CounterVec
	coverage  *prometheus.GaugeVec
	duration  *prometheus.HistogramVec
	hints     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Collectors {
	c := &Collectors{
		reg: prometheus.NewRegistry(),
		instances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_total",
			Help:      "Generated instances that passed every check.",
		}, []string{"scenario"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Generation failures by failure kind.",
		}, []string{"kind"}),
		coverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coverage_ratio",
			Help:      "Coverage ratio of the last run by dimension; \"overall\" for the total.",
		}, []string{"dimension"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"mode"}),
		hints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "planner_hints_total",
			Help:      "Planner hints by outcome.",
		}, []string{"outcome"}),
	}
	c.reg.MustRegister(c.instances, c.failures, c.coverage, c.duration, c.hints)
	return c
}

// Registry returns the registry the collectors are registered on.
func (c *Collectors) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.reg
}

// Instance counts one accepted instance.
func (c *Collectors) Instance(scenario string) {
	if c == nil {
		return
	}
	c.instances.WithLabelValues(scenario).Inc()
}

// Failure counts one failure of kind.
func (c *Collectors) Failure(kind string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(kind).Inc()
}

// Coverage records the ratios of a finished run.
func (c *Collectors) Coverage(overall float64, byDimension map[string]float64) {
	if c == nil {
		return
	}
	c.coverage.WithLabelValues("overall").Set(overall)
	for d, v := range byDimension {
		c.coverage.WithLabelValues(d).Set(v)
	}
}

// Hints counts planner hints by outcome ("applied", "unsatisfied").
func (c *Collectors) Hints(outcome string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.hints.WithLabelValues(outcome).Add(float64(n))
}

// ObserveBatch records the duration of a batch started at start.
func (c *Collectors) ObserveBatch(mode string, start time.Time) {
	if c == nil {
		return
	}
	c.duration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

// Sample is one gathered counter or gauge value.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Snapshot gathers the counters and gauges, sorted by name and labels.
// Histograms are reported by their sample count.
func (c *Collectors) Snapshot() ([]Sample, error) {
	if c == nil {
		return nil, nil
	}
	mfs, err := c.reg.Gather()
	if err != nil {
		return nil, errors.Wrap(err, "gather metrics")
	}
	var out []Sample
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			s := Sample{Name: mf.GetName()}
			for i, lp := range m.GetLabel() {
				if i > 0 {
					s.Labels += ","
				}
				s.Labels += lp.GetName() + "=" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				s.Value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				s.Name += "_count"
				s.Value = float64(m.GetHistogram().GetSampleCount())
			}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}
