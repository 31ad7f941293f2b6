package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/fixgen/metrics"
)

func TestCollectors_Record(t *testing.T) {
	c := metrics.New()
	c.Instance("normal")
	c.Instance("normal")
	c.Failure("depth-limit")
	c.Coverage(0.5, map[string]float64{"enum": 0.25})
	c.Hints("applied", 3)
	c.Hints("unsatisfied", 0)
	c.ObserveBatch("guided", time.Now())

	n, err := testutil.GatherAndCount(c.Registry(), "fixgen_instances_total", "fixgen_coverage_ratio")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	samples, err := c.Snapshot()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, s := range samples {
		got[s.Name+"{"+s.Labels+"}"] = s.Value
	}
	assert.Equal(t, 2.0, got["fixgen_instances_total{scenario=normal}"])
	assert.Equal(t, 1.0, got["fixgen_failures_total{kind=depth-limit}"])
	assert.Equal(t, 0.5, got["fixgen_coverage_ratio{dimension=overall}"])
	assert.Equal(t, 0.25, got["fixgen_coverage_ratio{dimension=enum}"])
	assert.Equal(t, 3.0, got["fixgen_planner_hints_total{outcome=applied}"])
	assert.Equal(t, 1.0, got["fixgen_batch_duration_seconds_count{mode=guided}"])
	_, ok := got["fixgen_planner_hints_total{outcome=unsatisfied}"]
	assert.False(t, ok)
}

func TestCollectors_NilIsNoop(t *testing.T) {
	var c *metrics.Collectors
	c.Instance("normal")
	c.Failure("x")
	c.Coverage(1, nil)
	c.ObserveBatch("off", time.Now())
	samples, err := c.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, samples)
	assert.Nil(t, c.Registry())
}
