package analytics

import (
	"math"
	"sort"
)

// quantilePoints are the percentiles of the six-breakpoint scale.
var quantilePoints = [6]float64{0, 0.2, 0.4, 0.6, 0.8, 1}

// QuantileScale computes the six color breakpoints over the positive values
// only, so a mostly empty boundary set cannot collapse every bucket to zero.
// Fewer than one positive value yields six zero breakpoints. Breakpoints are
// non-decreasing and deterministic for a given input.
func QuantileScale(values []float64) []float64 {
	positive := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			positive = append(positive, v)
		}
	}
	sort.Float64s(positive)

	scale := make([]float64, len(quantilePoints))
	if len(positive) == 0 {
		return scale
	}
	for i, q := range quantilePoints {
		idx := int(math.Floor(q * float64(len(positive)-1)))
		scale[i] = positive[idx]
	}
	return scale
}

// colorBucket maps a value onto the scale: the index of the first breakpoint
// at or above it. A degenerate scale (all breakpoints equal, including the
// single-positive-value case) assigns bucket 0 to everything.
func colorBucket(value float64, scale []float64) int {
	if len(scale) == 0 || scale[len(scale)-1] <= scale[0] {
		return 0
	}
	for i, b := range scale {
		if value <= b {
			return i
		}
	}
	return len(scale) - 1
}
