package emath

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Some functions that only operate on basic types, that are useful

// Linspace returns n evenly spaced values from min to max inclusive, like
// numpy's linspace. A single step yields just min; n < 1 yields nil.
func Linspace(min, max float64, n int) []float64 {
	switch {
	case n < 1:
		return nil
	case n == 1:
		return []float64{min}
	}
	v := floats.Span(make([]float64, n), min, max)
	v[n-1] = max
	return v
}

// NearestValue returns the element of the ascending slice `ordered` that is
// closest to v. Ties go to the lower element. Values outside the range of
// `ordered` snap to its first or last element. An empty slice, or a NaN v,
// returns v.
func NearestValue(v float64, ordered []float64) float64 {
	if len(ordered) == 0 || math.IsNaN(v) {
		return v
	}

	// i is the first candidate >= v
	i := sort.SearchFloat64s(ordered, v)
	switch {
	case i == 0:
		return ordered[0]
	case i == len(ordered):
		return ordered[len(ordered)-1]
	}

	lo, hi := ordered[i-1], ordered[i]
	if hi-v < v-lo {
		return hi
	}
	return lo
}

// Clamp limits f to [min, max].
func Clamp(f, min, max float64) float64 {
	return math.Max(min, math.Min(max, f))
}

// MaxForBits is the largest unsigned value representable in `bits` bits.
func MaxForBits(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << uint(bits)) - 1
}
