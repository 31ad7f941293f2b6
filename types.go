package fixgen

import (
	"github.com/Laisky/errors/v2"

	"github.com/reoring/fixgen/coverage"
	"github.com/reoring/fixgen/generator"
)

// CoverageMode selects whether and how a batch measures coverage.
type CoverageMode string

const (
	CoverageOff     CoverageMode = "off"     // no tracker
	CoverageMeasure CoverageMode = "measure" // observe the base batch
	CoverageGuided  CoverageMode = "guided"  // measure, then plan hinted instances
)

// ValidationMode selects whether every value is checked by the oracle.
type ValidationMode string

const (
	ValidationStrict ValidationMode = "strict"
	ValidationLax    ValidationMode = "lax"
)

// DefaultCount is the batch size when Generate.Count is zero.
const DefaultCount = 10

// CoverageOptions configures the coverage run.
type CoverageOptions struct {
	Mode              CoverageMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	DimensionsEnabled []string     `json:"dimensionsEnabled,omitempty" yaml:"dimensionsEnabled,omitempty"`

	MaxUnits           int `json:"maxUnits,omitempty" yaml:"maxUnits,omitempty"`
	MaxHintsPerUnit    int `json:"maxHintsPerUnit,omitempty" yaml:"maxHintsPerUnit,omitempty"`
	MaxBranchesPerNode int `json:"maxBranchesPerNode,omitempty" yaml:"maxBranchesPerNode,omitempty"`
}

// GenerateOptions sizes the batch.
type GenerateOptions struct {
	Count int `json:"count,omitempty" yaml:"count,omitempty"`
	// Seed overrides Options.Seed when non-zero.
	Seed uint32 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// ValidateOptions configures self-checks and the oracle.
type ValidateOptions struct {
	ValidateFormats bool           `json:"validateFormats,omitempty" yaml:"validateFormats,omitempty"`
	Mode            ValidationMode `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// Options configures one batch.
type Options struct {
	Seed     uint32          `json:"seed" yaml:"seed"`
	Scenario string          `json:"scenario,omitempty" yaml:"scenario,omitempty"`
	MaxDepth int             `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty"`
	Locale   string          `json:"locale,omitempty" yaml:"locale,omitempty"`
	Coverage CoverageOptions `json:"coverage" yaml:"coverage"`
	Generate GenerateOptions `json:"generate" yaml:"generate"`
	Validate ValidateOptions `json:"validate" yaml:"validate"`

	EnumStrategy string `json:"enumStrategy,omitempty" yaml:"enumStrategy,omitempty"`
	// EnumWeights maps an enum's canonical schema pointer to its weights.
	EnumWeights map[string][]float64 `json:"enumWeights,omitempty" yaml:"enumWeights,omitempty"`
}

// Resolve validates o and fills in the defaults. Every error wraps
// ErrInvalidOptions.
func (o Options) Resolve() (Options, error) {
	if o.MaxDepth < 0 {
		return o, errors.Wrapf(ErrInvalidOptions, "maxDepth must be >= 0, got %d", o.MaxDepth)
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = generator.DefaultMaxDepth
	}
	sc, err := generator.ParseScenario(o.Scenario)
	if err != nil {
		return o, errors.Wrap(ErrInvalidOptions, err.Error())
	}
	o.Scenario = string(sc)
	es, err := generator.ParseEnumStrategy(o.EnumStrategy)
	if err != nil {
		return o, errors.Wrap(ErrInvalidOptions, err.Error())
	}
	o.EnumStrategy = string(es)

	switch o.Coverage.Mode {
	case "":
		o.Coverage.Mode = CoverageOff
	case CoverageOff, CoverageMeasure, CoverageGuided:
	default:
		return o, errors.Wrapf(ErrInvalidOptions, "unknown coverage mode %q", o.Coverage.Mode)
	}
	for _, d := range o.Coverage.DimensionsEnabled {
		if _, err := coverage.ParseDimension(d); err != nil {
			return o, errors.Wrap(ErrInvalidOptions, err.Error())
		}
	}
	if o.Coverage.MaxUnits < 0 || o.Coverage.MaxHintsPerUnit < 0 || o.Coverage.MaxBranchesPerNode < 0 {
		return o, errors.Wrap(ErrInvalidOptions, "planner caps must be >= 0")
	}

	switch o.Validate.Mode {
	case "":
		o.Validate.Mode = ValidationStrict
	case ValidationStrict, ValidationLax:
	default:
		return o, errors.Wrapf(ErrInvalidOptions, "unknown validation mode %q", o.Validate.Mode)
	}

	if o.Generate.Count < 0 {
		return o, errors.Wrapf(ErrInvalidOptions, "generate.count must be >= 0, got %d", o.Generate.Count)
	}
	if o.Generate.Count == 0 {
		o.Generate.Count = DefaultCount
	}
	if o.Generate.Seed != 0 {
		o.Seed = o.Generate.Seed
	}
	return o, nil
}

// dimensions returns the enabled coverage dimensions; document batches
// measure operations by default.
func (o Options) dimensions(document bool) []coverage.Dimension {
	if len(o.Coverage.DimensionsEnabled) == 0 {
		dims := append([]coverage.Dimension(nil), coverage.DefaultDimensions...)
		if document {
			dims = append(dims, coverage.DimOperations)
		}
		return dims
	}
	dims := make([]coverage.Dimension, 0, len(o.Coverage.DimensionsEnabled))
	for _, s := range o.Coverage.DimensionsEnabled {
		d, _ := coverage.ParseDimension(s)
		dims = append(dims, d)
	}
	return dims
}

func (o Options) plannerOptions() coverage.PlannerOptions {
	return coverage.PlannerOptions{
		MaxUnits:           o.Coverage.MaxUnits,
		MaxHintsPerUnit:    o.Coverage.MaxHintsPerUnit,
		MaxBranchesPerNode: o.Coverage.MaxBranchesPerNode,
	}
}
