// Package numeric holds the floating point helpers shared by the generators
// and the validator: ULP-tolerant and strict multipleOf checks, and exclusive
// bound normalization.
package numeric

import (
	"math"
	"strconv"
	"strings"
)

// MaxSafeInteger is the largest integer every float64 can hold exactly.
const MaxSafeInteger = 1<<53 - 1

// Mode selects how multipleOf is checked.
type Mode int

const (
	// Tolerant accepts values within the ULP-based tolerance of a multiple.
	Tolerant Mode = iota
	// Strict requires value/step to be an exact integer.
	Strict
)

// ULP returns the distance from |x| to the next larger float64.
func ULP(x float64) float64 {
	x = math.Abs(x)
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return math.NaN()
	}
	return math.Nextafter(x, math.Inf(1)) - x
}

// IsMultipleOf reports whether v is a multiple of step, tolerating IEEE-754
// rounding: |v - k*step| <= ulp(v) + |k|*ulp(step) + |v|*1e-15 with
// k = round(v/step).
func IsMultipleOf(v, step float64) bool {
	if !validStep(step) || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	if v == 0 {
		return true
	}
	k := math.Round(v / step)
	diff := math.Abs(v - k*step)
	return diff <= ULP(v)+math.Abs(k)*ULP(step)+math.Abs(v)*1e-15
}

// IsMultipleOfStrict reports whether v/step is an exact integer.
func IsMultipleOfStrict(v, step float64) bool {
	if !validStep(step) || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	q := v / step
	return !math.IsInf(q, 0) && q == math.Trunc(q)
}

// MultipleOf dispatches on mode.
func MultipleOf(v, step float64, mode Mode) bool {
	if mode == Strict {
		return IsMultipleOfStrict(v, step)
	}
	return IsMultipleOf(v, step)
}

// ValidStep reports whether step is usable as multipleOf.
func ValidStep(step float64) bool { return validStep(step) }

func validStep(step float64) bool {
	return step > 0 && !math.IsInf(step, 0) && !math.IsNaN(step)
}

// NextUp and NextDown move one ULP toward +Inf and -Inf.
func NextUp(x float64) float64   { return math.Nextafter(x, math.Inf(1)) }
func NextDown(x float64) float64 { return math.Nextafter(x, math.Inf(-1)) }

// SnapRatio rounds r to the nearest integer when it lies within a few ULPs
// of it, so that 0.3/0.1 counts as index 3.
func SnapRatio(r float64) float64 {
	n := math.Round(r)
	if math.Abs(r-n) <= 1e-9*math.Max(1, math.Abs(r)) {
		return n
	}
	return r
}

// Decimals returns the number of fractional decimal digits of the shortest
// representation of x, or -1 when x has no short decimal form.
func Decimals(x float64) int {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	d := len(s) - i - 1
	if d > 15 {
		return -1
	}
	return d
}

// RoundTo rounds x to d decimal places. d < 0 returns x unchanged.
func RoundTo(x float64, d int) float64 {
	if d < 0 {
		return x
	}
	p := math.Pow(10, float64(d))
	r := math.Round(x*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return x
	}
	return r
}

// PositiveZero maps -0 to +0 and leaves every other value unchanged.
func PositiveZero(x float64) float64 {
	if x == 0 {
		return 0
	}
	return x
}
