package coverage

import (
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/Laisky/errors/v2"

	"github.com/reoring/fixgen/generator"
	"github.com/reoring/fixgen/internal/numeric"
	"github.com/reoring/fixgen/internal/pointer"
	"github.com/reoring/fixgen/jsonschema"
	"github.com/reoring/fixgen/validate"
)

// ErrTrackerState is returned by calls the tracker's current state does not
// allow.
var ErrTrackerState = errors.New("coverage tracker: invalid state")

// State is the tracker lifecycle: idle, collecting, observing, reporting.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateObserving
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateObserving:
		return "observing"
	case StateReporting:
		return "reporting"
	}
	return "unknown"
}

// maxHops bounds schema recursion that consumes no instance ($ref cycles).
const maxHops = 64

// UnsatisfiedHint is a planner hint no generator applied, or whose instance
// was discarded.
type UnsatisfiedHint struct {
	Hint   generator.Hint `json:"hint"`
	Reason string         `json:"reason"`
}

// Reasons recorded for unsatisfied hints.
const (
	ReasonNotConsumed      = "not-consumed"
	ReasonGenerationFailed = "generation-failed"
	ReasonNoNewTarget      = "no-new-target"
)

// Tracker collects targets and observes instances against them. It is not
// safe for concurrent use.
type Tracker struct {
	state   State
	dims    map[Dimension]bool
	oracle  validate.Oracle
	reach   *validate.Validator
	now     func() time.Time
	started time.Time

	roots     map[string]*jsonschema.Schema
	rootOrder []Root
	targets   []*Target
	byID      map[string]*Target

	instances   int
	failures    int
	unsatisfied []UnsatisfiedHint
	capsHit     []CapHit
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithDimensions enables only dims.
func WithDimensions(dims ...Dimension) TrackerOption {
	return func(t *Tracker) {
		t.dims = map[Dimension]bool{}
		for _, d := range dims {
			t.dims[d] = true
		}
	}
}

// WithOracle sets the validator used to attribute values to branches.
func WithOracle(o validate.Oracle) TrackerOption {
	return func(t *Tracker) { t.oracle = o }
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker returns an idle tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		oracle: validate.New(),
		reach:  validate.New(validate.WithStrictMultipleOf()),
		now:    time.Now,
	}
	WithDimensions(DefaultDimensions...)(t)
	for _, o := range opts {
		o(t)
	}
	t.clear()
	return t
}

func (t *Tracker) clear() {
	t.state = StateIdle
	t.roots = map[string]*jsonschema.Schema{}
	t.rootOrder = nil
	t.targets = nil
	t.byID = map[string]*Target{}
	t.instances, t.failures = 0, 0
	t.unsatisfied, t.capsHit = nil, nil
}

// State returns the lifecycle state.
func (t *Tracker) State() State { return t.state }

// Enabled reports whether dimension d is measured.
func (t *Tracker) Enabled(d Dimension) bool { return t.dims[d] }

func (t *Tracker) want(states ...State) error {
	for _, s := range states {
		if t.state == s {
			return nil
		}
	}
	return errors.Wrapf(ErrTrackerState, "tracker is %s", t.state)
}

// Begin starts a run: idle -> collecting.
func (t *Tracker) Begin() error {
	if err := t.want(StateIdle); err != nil {
		return err
	}
	t.state = StateCollecting
	t.started = t.now()
	return nil
}

// Reset drops all state and returns the tracker to idle.
func (t *Tracker) Reset() { t.clear() }

// Collect enumerates the targets of s for root. It is only valid while
// collecting.
func (t *Tracker) Collect(root Root, s *jsonschema.Schema) error {
	if err := t.want(StateCollecting); err != nil {
		return err
	}
	if _, dup := t.roots[root.Key()]; dup {
		return errors.Errorf("root %q collected twice", root.Key())
	}
	t.roots[root.Key()] = s
	t.rootOrder = append(t.rootOrder, root)
	switch root.Role {
	case RoleRequest:
		t.add(root, KindOperationRequest, pointer.Root, "", nil, StatusActive)
	case RoleResponse:
		t.add(root, KindOperationResp, pointer.Root, "", nil, StatusActive)
	}
	c := &collector{t: t, root: root, visited: map[string]bool{}}
	c.walk(s, pointer.Root, 0)
	return nil
}

// Roots returns the collected roots in collection order.
func (t *Tracker) Roots() []Root { return append([]Root(nil), t.rootOrder...) }

// Schema returns the schema collected for root.
func (t *Tracker) Schema(root Root) *jsonschema.Schema { return t.roots[root.Key()] }

func (t *Tracker) add(root Root, kind Kind, sp, param string, params map[string]any, status Status) {
	dim := DimensionOf(kind)
	if !t.dims[dim] {
		return
	}
	id := TargetID(kind, root, sp, param)
	if _, dup := t.byID[id]; dup {
		return
	}
	tg := &Target{
		ID:        id,
		Dimension: dim,
		Kind:      kind,
		CanonPath: sp,
		Operation: root.Operation,
		Role:      root.Role,
		Params:    params,
		Status:    status,
	}
	t.targets = append(t.targets, tg)
	t.byID[id] = tg
}

type collector struct {
	t       *Tracker
	root    Root
	visited map[string]bool
}

func (c *collector) walk(s *jsonschema.Schema, sp string, hops int) {
	if s == nil || s.Bool != nil || c.visited[sp] || hops > maxHops {
		return
	}
	c.visited[sp] = true
	add := func(kind Kind, at, param string, params map[string]any) {
		c.t.add(c.root, kind, at, param, params, StatusActive)
	}
	add(KindSchemaNode, sp, "", nil)
	if s.Ref != "" && s.Target != nil {
		c.walk(s.Target, s.Ref, hops+1)
	}

	if s.HasEnum {
		sib := s.Clone()
		sib.Enum, sib.HasEnum = nil, false
		sib.Const, sib.HasConst = nil, false
		for i, m := range s.Enum {
			status := StatusActive
			if !c.t.reach.Valid(m, sib) {
				status = StatusUnreachable
			}
			c.t.add(c.root, KindEnumValue, sp, indexParam(i), map[string]any{"value": m}, status)
		}
	}

	if lo, ok := lowest(s); ok {
		add(KindNumericMin, sp, "", map[string]any{"value": lo})
	}
	if hi, ok := highest(s); ok {
		add(KindNumericMax, sp, "", map[string]any{"value": hi})
	}
	if s.MinLength != nil {
		add(KindStringMinLength, sp, "", map[string]any{"value": *s.MinLength})
	}
	if s.MaxLength != nil {
		add(KindStringMaxLength, sp, "", map[string]any{"value": *s.MaxLength})
	}
	if s.MinItems != nil {
		add(KindArrayMinItems, sp, "", map[string]any{"value": *s.MinItems})
	}
	if s.MaxItems != nil {
		add(KindArrayMaxItems, sp, "", map[string]any{"value": *s.MaxItems})
	}

	for i, b := range s.OneOf {
		at := pointer.Index(pointer.Join(sp, "oneOf"), i)
		add(KindOneOfBranch, at, "", map[string]any{"index": i})
		c.walk(b, at, hops+1)
	}
	for i, b := range s.AnyOf {
		at := pointer.Index(pointer.Join(sp, "anyOf"), i)
		add(KindAnyOfBranch, at, "", map[string]any{"index": i})
		c.walk(b, at, hops+1)
	}
	for i, b := range s.AllOf {
		c.walk(b, pointer.Index(pointer.Join(sp, "allOf"), i), hops+1)
	}

	for _, name := range s.PropertyNames() {
		at := pointer.Join(sp, "properties", name)
		if ps := s.Properties[name]; !ps.IsFalse() {
			add(KindPropertyPresent, at, "", map[string]any{"name": name, "required": s.IsRequired(name)})
			c.walk(ps, at, 0)
		}
	}
	for _, pat := range jsonschema.SortedKeys(s.PatternProperties) {
		c.walk(s.PatternProperties[pat], pointer.Join(sp, "patternProperties", pat), 0)
	}
	c.walk(s.AdditionalProperties, pointer.Join(sp, "additionalProperties"), 0)
	for _, name := range jsonschema.SortedKeys(s.DependentSchemas) {
		c.walk(s.DependentSchemas[name], pointer.Join(sp, "dependentSchemas", name), hops+1)
	}

	for i, item := range s.PrefixItems {
		c.walk(item, pointer.Index(pointer.Join(sp, "prefixItems"), i), 0)
	}
	for i, item := range s.ItemsTuple {
		c.walk(item, pointer.Index(pointer.Join(sp, "items"), i), 0)
	}
	c.walk(s.Items, pointer.Join(sp, "items"), 0)
	c.walk(s.AdditionalItems, pointer.Join(sp, "additionalItems"), 0)
	c.walk(s.Contains, pointer.Join(sp, "contains"), 0)
}

// integerOnly reports whether s admits integers but not other numbers.
func integerOnly(s *jsonschema.Schema) bool {
	return s.Type.Has("integer") && !s.Type.Has("number")
}

// lowest returns the smallest value the numeric keywords of s admit.
func lowest(s *jsonschema.Schema) (float64, bool) {
	lo, ok := math.Inf(-1), false
	if s.Minimum != nil {
		lo, ok = *s.Minimum, true
	}
	if b := s.ExclusiveMinimum; b != nil && !b.IsBool {
		v := numeric.NextUp(b.Value)
		if integerOnly(s) {
			v = math.Floor(b.Value) + 1
		}
		lo, ok = math.Max(lo, v), true
	}
	if !ok {
		return 0, false
	}
	if integerOnly(s) {
		lo = math.Ceil(lo)
	}
	if s.MultipleOf != nil && numeric.ValidStep(*s.MultipleOf) {
		step := *s.MultipleOf
		lo = math.Ceil(numeric.SnapRatio(lo/step)) * step
	}
	return lo, true
}

// highest is lowest for the upper bound.
func highest(s *jsonschema.Schema) (float64, bool) {
	hi, ok := math.Inf(1), false
	if s.Maximum != nil {
		hi, ok = *s.Maximum, true
	}
	if b := s.ExclusiveMaximum; b != nil && !b.IsBool {
		v := numeric.NextDown(b.Value)
		if integerOnly(s) {
			v = math.Ceil(b.Value) - 1
		}
		hi, ok = math.Min(hi, v), true
	}
	if !ok {
		return 0, false
	}
	if integerOnly(s) {
		hi = math.Floor(hi)
	}
	if s.MultipleOf != nil && numeric.ValidStep(*s.MultipleOf) {
		step := *s.MultipleOf
		hi = math.Floor(numeric.SnapRatio(hi/step)) * step
	}
	return hi, true
}

func near(a, b float64) bool {
	return a == b || math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

// Observe attributes instance v of root to the targets it hits and returns
// the number of targets hit for the first time.
func (t *Tracker) Observe(root Root, v any) (int, error) {
	if err := t.want(StateCollecting, StateObserving); err != nil {
		return 0, err
	}
	s, ok := t.roots[root.Key()]
	if !ok {
		return 0, errors.Errorf("root %q was not collected", root.Key())
	}
	t.state = StateObserving
	t.instances++
	o := &observer{t: t, root: root}
	if root.Role != RoleNone && t.oracle.Validate(v, s) == nil {
		kind := KindOperationRequest
		if root.Role == RoleResponse {
			kind = KindOperationResp
		}
		o.hit(kind, pointer.Root, "")
	}
	o.walk(v, s, pointer.Root, 0)
	return o.newHits, nil
}

// MarkUnreachable records a failed generation at schemaPath: targets at or
// below it that no instance has hit become unreachable.
func (t *Tracker) MarkUnreachable(root Root, schemaPath string) (int, error) {
	if err := t.want(StateCollecting, StateObserving); err != nil {
		return 0, err
	}
	t.failures++
	n := 0
	for _, tg := range t.targets {
		if tg.Hit || tg.Status == StatusUnreachable || tg.Root() != root {
			continue
		}
		if tg.Dimension == DimOperations || !pointer.HasPrefix(tg.CanonPath, schemaPath) {
			continue
		}
		tg.Status = StatusUnreachable
		n++
	}
	return n, nil
}

// AddUnsatisfied records hints that did not produce coverage.
func (t *Tracker) AddUnsatisfied(reason string, hints ...generator.Hint) {
	for _, h := range hints {
		t.unsatisfied = append(t.unsatisfied, UnsatisfiedHint{Hint: h, Reason: reason})
	}
}

// AddCapsHit records planner caps for the report.
func (t *Tracker) AddCapsHit(caps ...CapHit) { t.capsHit = append(t.capsHit, caps...) }

// Targets returns a copy of every target in collection order.
func (t *Tracker) Targets() []Target {
	out := make([]Target, len(t.targets))
	for i, tg := range t.targets {
		out[i] = *tg
	}
	return out
}

// Uncovered returns the active targets no instance has hit, sorted by ID.
func (t *Tracker) Uncovered() []Target {
	var out []Target
	for _, tg := range t.targets {
		if !tg.Hit && tg.Status == StatusActive {
			out = append(out, *tg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type observer struct {
	t       *Tracker
	root    Root
	newHits int
}

func (o *observer) hit(kind Kind, sp, param string) {
	tg, ok := o.t.byID[TargetID(kind, o.root, sp, param)]
	if !ok || tg.Hit {
		return
	}
	tg.Hit = true
	tg.Status = StatusActive
	o.newHits++
}

func (o *observer) matches(v any, s *jsonschema.Schema) bool {
	return o.t.oracle.Validate(v, s) == nil
}

func (o *observer) walk(v any, s *jsonschema.Schema, sp string, hops int) {
	if s == nil || s.Bool != nil || hops > maxHops {
		return
	}
	o.hit(KindSchemaNode, sp, "")
	if s.Ref != "" && s.Target != nil {
		o.walk(v, s.Target, s.Ref, hops+1)
	}
	if s.HasEnum {
		for i, m := range s.Enum {
			if jsonschema.Equal(m, v) {
				o.hit(KindEnumValue, sp, indexParam(i))
				break
			}
		}
	}

	for i, b := range s.OneOf {
		if at := pointer.Index(pointer.Join(sp, "oneOf"), i); o.matches(v, b) {
			o.hit(KindOneOfBranch, at, "")
			o.walk(v, b, at, hops+1)
		}
	}
	for i, b := range s.AnyOf {
		if at := pointer.Index(pointer.Join(sp, "anyOf"), i); o.matches(v, b) {
			o.hit(KindAnyOfBranch, at, "")
			o.walk(v, b, at, hops+1)
		}
	}
	for i, b := range s.AllOf {
		o.walk(v, b, pointer.Index(pointer.Join(sp, "allOf"), i), hops+1)
	}

	switch val := v.(type) {
	case string:
		n := utf8.RuneCountInString(val)
		if s.MinLength != nil && n == *s.MinLength {
			o.hit(KindStringMinLength, sp, "")
		}
		if s.MaxLength != nil && n == *s.MaxLength {
			o.hit(KindStringMaxLength, sp, "")
		}
	case []any:
		o.array(val, s, sp)
	case map[string]any:
		o.object(val, s, sp, hops)
	case bool, nil:
	default:
		f, ok := jsonschema.AsFloat(v)
		if !ok {
			return
		}
		if lo, ok := lowest(s); ok && near(f, lo) {
			o.hit(KindNumericMin, sp, "")
		}
		if hi, ok := highest(s); ok && near(f, hi) {
			o.hit(KindNumericMax, sp, "")
		}
	}
}

func (o *observer) array(arr []any, s *jsonschema.Schema, sp string) {
	if s.MinItems != nil && len(arr) == *s.MinItems {
		o.hit(KindArrayMinItems, sp, "")
	}
	if s.MaxItems != nil && len(arr) == *s.MaxItems {
		o.hit(KindArrayMaxItems, sp, "")
	}
	prefix, rest := s.TupleItems()
	prefixKey, restKey := "items", "items"
	switch {
	case len(s.PrefixItems) > 0:
		prefixKey = "prefixItems"
	case len(s.ItemsTuple) > 0:
		restKey = "additionalItems"
	}
	for i, e := range arr {
		if i < len(prefix) {
			o.walk(e, prefix[i], pointer.Index(pointer.Join(sp, prefixKey), i), 0)
			continue
		}
		o.walk(e, rest, pointer.Join(sp, restKey), 0)
	}
	if s.Contains != nil {
		for _, e := range arr {
			if o.matches(e, s.Contains) {
				o.walk(e, s.Contains, pointer.Join(sp, "contains"), 0)
				break
			}
		}
	}
}

func (o *observer) object(obj map[string]any, s *jsonschema.Schema, sp string, hops int) {
	for _, name := range jsonschema.SortedKeys(obj) {
		val := obj[name]
		matched := false
		if ps, ok := s.Properties[name]; ok {
			matched = true
			at := pointer.Join(sp, "properties", name)
			o.hit(KindPropertyPresent, at, "")
			o.walk(val, ps, at, 0)
		}
		for _, pat := range jsonschema.SortedKeys(s.PatternProperties) {
			if ok, _ := validate.MatchPattern(pat, name); ok {
				matched = true
				o.walk(val, s.PatternProperties[pat], pointer.Join(sp, "patternProperties", pat), 0)
			}
		}
		if !matched {
			o.walk(val, s.AdditionalProperties, pointer.Join(sp, "additionalProperties"), 0)
		}
	}
	for _, name := range jsonschema.SortedKeys(s.DependentSchemas) {
		if _, ok := obj[name]; ok {
			o.walk(obj, s.DependentSchemas[name], pointer.Join(sp, "dependentSchemas", name), hops+1)
		}
	}
}
