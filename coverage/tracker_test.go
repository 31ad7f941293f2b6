package coverage_test

import (
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/fixgen/coverage"
	"github.com/reoring/fixgen/jsonschema"
)

const petSchema = `{
	"type": "object",
	"required": ["kind"],
	"properties": {
		"kind": {"enum": ["a", "b"]},
		"n": {"type": "integer", "minimum": 1, "maximum": 3},
		"v": {"oneOf": [{"type": "string"}, {"type": "integer"}]}
	}
}`

func schema(t *testing.T, src string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Parse([]byte(src))
	require.NoError(t, err)
	return s
}

func collect(t *testing.T, src string, opts ...coverage.TrackerOption) *coverage.Tracker {
	t.Helper()
	tr := coverage.NewTracker(opts...)
	require.NoError(t, tr.Begin())
	require.NoError(t, tr.Collect(coverage.Root{}, schema(t, src)))
	return tr
}

func ids(targets []coverage.Target) []string {
	out := make([]string, 0, len(targets))
	for _, tg := range targets {
		out = append(out, tg.ID)
	}
	return out
}

func TestTracker_CollectIDs(t *testing.T) {
	tr := collect(t, petSchema)
	got := ids(tr.Targets())
	for _, want := range []string{
		"structure:SCHEMA_NODE::#",
		"structure:PROPERTY_PRESENT::#/properties/kind",
		"structure:SCHEMA_NODE::#/properties/v/oneOf/1",
		"enum:ENUM_VALUE_HIT::#/properties/kind#0",
		"enum:ENUM_VALUE_HIT::#/properties/kind#1",
		"branches:ONE_OF_BRANCH_COVERED::#/properties/v/oneOf/0",
		"branches:ONE_OF_BRANCH_COVERED::#/properties/v/oneOf/1",
	} {
		assert.Contains(t, got, want)
	}
	// boundaries are not a default dimension
	for _, id := range got {
		assert.NotContains(t, id, "boundaries:")
	}
	assert.Len(t, got, 13)
}

func TestTracker_ObserveAndMetrics(t *testing.T) {
	tr := collect(t, petSchema)
	n, err := tr.Observe(coverage.Root{}, map[string]any{"kind": "a", "v": "x"})
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, coverage.StateObserving, tr.State())

	n, err = tr.Observe(coverage.Root{}, map[string]any{"kind": "a", "v": "y"})
	require.NoError(t, err)
	assert.Zero(t, n)

	m := tr.Metrics()
	assert.InDelta(t, 8.0/13.0, m.Overall, 1e-9)
	assert.InDelta(t, 6.0/9.0, m.ByDimension[coverage.DimStructure], 1e-9)
	assert.InDelta(t, 0.5, m.ByDimension[coverage.DimBranches], 1e-9)
	assert.InDelta(t, 0.5, m.ByDimension[coverage.DimEnum], 1e-9)
	assert.Empty(t, m.ByOperation)

	n, err = tr.Observe(coverage.Root{}, map[string]any{"kind": "b", "n": int64(2), "v": int64(4)})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.InDelta(t, 1.0, tr.Metrics().Overall, 1e-9)
	assert.Empty(t, tr.Uncovered())
}

func TestTracker_EmptyDenominator(t *testing.T) {
	tr := collect(t, `{"type":"string"}`, coverage.WithDimensions(coverage.DimBoundaries))
	assert.Empty(t, tr.Targets())
	m := tr.Metrics()
	assert.Equal(t, 1.0, m.Overall)
	assert.Equal(t, 1.0, m.ByDimension[coverage.DimBoundaries])
}

func TestTracker_UnreachableEnumMember(t *testing.T) {
	tr := collect(t, `{"type":"string","enum":["a",1]}`, coverage.WithDimensions(coverage.DimEnum))
	targets := tr.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, coverage.StatusActive, targets[0].Status)
	assert.Equal(t, coverage.StatusUnreachable, targets[1].Status)

	_, err := tr.Observe(coverage.Root{}, "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, tr.Metrics().ByDimension[coverage.DimEnum])
	assert.Empty(t, tr.Uncovered())
}

func TestTracker_Boundaries(t *testing.T) {
	tr := collect(t, `{"type":"integer","exclusiveMinimum":0,"maximum":9,"multipleOf":3}`,
		coverage.WithDimensions(coverage.DimBoundaries))
	targets := tr.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, 3.0, targets[0].Params["value"])
	assert.Equal(t, 9.0, targets[1].Params["value"])

	n, err := tr.Observe(coverage.Root{}, int64(6))
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = tr.Observe(coverage.Root{}, int64(3))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = tr.Observe(coverage.Root{}, 9.0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTracker_LengthBoundaries(t *testing.T) {
	tr := collect(t, `{"type":"array","minItems":1,"maxItems":2,"items":{"type":"string","minLength":2}}`,
		coverage.WithDimensions(coverage.DimBoundaries))
	n, err := tr.Observe(coverage.Root{}, []any{"日本"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"boundaries:ARRAY_MAX_ITEMS_HIT::#"}, ids(tr.Uncovered()))
}

func TestTracker_Operations(t *testing.T) {
	req := coverage.Root{Operation: "POST /pets", Role: coverage.RoleRequest}
	resp := coverage.Root{Operation: "POST /pets", Role: coverage.RoleResponse}
	tr := coverage.NewTracker(coverage.WithDimensions(coverage.DimOperations, coverage.DimStructure))
	require.NoError(t, tr.Begin())
	require.NoError(t, tr.Collect(req, schema(t, `{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`)))
	require.NoError(t, tr.Collect(resp, schema(t, `{"type":"integer"}`)))
	assert.Error(t, tr.Collect(req, schema(t, `true`)))
	assert.Equal(t, []coverage.Root{req, resp}, tr.Roots())

	// an invalid request body does not cover the operation
	_, err := tr.Observe(req, map[string]any{})
	require.NoError(t, err)
	_, err = tr.Observe(req, map[string]any{"name": "x"})
	require.NoError(t, err)

	uncovered := ids(tr.Uncovered())
	assert.NotContains(t, uncovered, "operations:OP_REQUEST_COVERED:POST /pets@request:#")
	assert.Contains(t, uncovered, "operations:OP_RESPONSE_COVERED:POST /pets@response:#")
	assert.InDelta(t, 4.0/6.0, tr.Metrics().ByOperation["POST /pets"], 1e-9)

	_, err = tr.Observe(coverage.Root{Operation: "GET /x"}, 1)
	assert.Error(t, err)
}

func TestTracker_StateMachine(t *testing.T) {
	tr := coverage.NewTracker()
	assert.Equal(t, coverage.StateIdle, tr.State())

	_, err := tr.Observe(coverage.Root{}, 1)
	assert.True(t, errors.Is(err, coverage.ErrTrackerState))
	assert.True(t, errors.Is(tr.Collect(coverage.Root{}, jsonschema.True()), coverage.ErrTrackerState))
	_, err = tr.Report()
	assert.True(t, errors.Is(err, coverage.ErrTrackerState))

	require.NoError(t, tr.Begin())
	assert.True(t, errors.Is(tr.Begin(), coverage.ErrTrackerState))
	require.NoError(t, tr.Collect(coverage.Root{}, jsonschema.True()))
	_, err = tr.Observe(coverage.Root{}, 1)
	require.NoError(t, err)
	assert.True(t, errors.Is(tr.Collect(coverage.Root{Operation: "x"}, jsonschema.True()), coverage.ErrTrackerState))

	_, err = tr.Report()
	require.NoError(t, err)
	assert.Equal(t, coverage.StateReporting, tr.State())
	_, err = tr.Observe(coverage.Root{}, 1)
	assert.True(t, errors.Is(err, coverage.ErrTrackerState))
	_, err = tr.MarkUnreachable(coverage.Root{}, "#")
	assert.True(t, errors.Is(err, coverage.ErrTrackerState))

	tr.Reset()
	assert.Equal(t, coverage.StateIdle, tr.State())
	assert.Empty(t, tr.Targets())
	require.NoError(t, tr.Begin())
}

func TestTracker_MarkUnreachable(t *testing.T) {
	tr := collect(t, petSchema)
	_, err := tr.Observe(coverage.Root{}, map[string]any{"kind": "a"})
	require.NoError(t, err)

	n, err := tr.MarkUnreachable(coverage.Root{}, "#/properties/v")
	require.NoError(t, err)
	// v's node and property targets plus both branches and their nodes
	assert.Equal(t, 6, n)
	for _, id := range ids(tr.Uncovered()) {
		assert.NotContains(t, id, "#/properties/v")
	}

	// hit targets stay active
	n, err = tr.MarkUnreachable(coverage.Root{}, "#/properties/kind")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rep, err := tr.Report()
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Run.Failures)
	assert.Equal(t, 1, rep.Run.Instances)
}

func TestReport_Canonical(t *testing.T) {
	build := func(start time.Time) []byte {
		clock := start
		tr := collect(t, petSchema, coverage.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}))
		_, err := tr.Observe(coverage.Root{}, map[string]any{"kind": "b", "v": int64(1)})
		require.NoError(t, err)
		tr.AddCapsHit(coverage.CapHit{Cap: coverage.CapMaxUnits, Limit: 1, Dropped: 2})
		rep, err := tr.Report()
		require.NoError(t, err)
		assert.Equal(t, int64(1000), rep.Run.DurationMs)
		assert.True(t, rep.Covered("branches:ONE_OF_BRANCH_COVERED::#/properties/v/oneOf/1"))
		assert.False(t, rep.Covered("branches:ONE_OF_BRANCH_COVERED::#/properties/v/oneOf/0"))
		out, err := rep.Canonical()
		require.NoError(t, err)
		return out
	}
	a := build(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	b := build(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), `"plannerCapsHit":[{"cap":"maxUnits","dropped":2,"limit":1}]`)
}

func TestParseDimension(t *testing.T) {
	d, err := coverage.ParseDimension("boundaries")
	require.NoError(t, err)
	assert.Equal(t, coverage.DimBoundaries, d)
	_, err = coverage.ParseDimension("paths")
	assert.Error(t, err)
}
