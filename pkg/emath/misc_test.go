package emath_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abworrall/emva1288/pkg/emath"
)

func ExampleLinspace() {
	fmt.Println(emath.Linspace(0, 16, 5))
	// Output: [0 4 8 12 16]
}

func ExampleNearestValue() {
	fmt.Println(emath.NearestValue(6.5, []float64{0, 4, 8, 12, 16}))
	// Output: 8
}

func TestLinspace(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
		n        int
		want     []float64
	}{
		{"none", 0, 1, 0, nil},
		{"single step", 0.01, 17, 1, []float64{0.01}},
		{"two steps", 1, 2, 2, []float64{1, 2}},
		{"equal bounds", 3, 3, 3, []float64{3, 3, 3}},
		{"quarters", 0, 1, 5, []float64{0, 0.25, 0.5, 0.75, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDeltaSlice(t, tt.want, emath.Linspace(tt.min, tt.max, tt.n), 1e-12)
		})
	}
}

func TestLinspaceEndpointsExact(t *testing.T) {
	v := emath.Linspace(0.01, 17, 255)
	assert.Len(t, v, 255)
	assert.Equal(t, 0.01, v[0])
	assert.Equal(t, 17.0, v[254])
}

func TestNearestValue(t *testing.T) {
	cands := []float64{0, 4, 8, 12, 16}
	tests := []struct {
		in, want float64
	}{
		{-100, 0},
		{0, 0},
		{1.9, 0},
		{2, 0}, // tie goes low
		{2.1, 4},
		{8, 8},
		{10, 8}, // tie goes low
		{15, 16},
		{16, 16},
		{1e9, 16},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, emath.NearestValue(tt.in, cands), "NearestValue(%v)", tt.in)
	}
}

func TestNearestValueDegenerate(t *testing.T) {
	assert.Equal(t, 0.5, emath.NearestValue(123, []float64{0.5}))
	assert.Equal(t, 2.0, emath.NearestValue(-1, []float64{2, 2, 2}))
	assert.Equal(t, 7.0, emath.NearestValue(7, nil))
	assert.True(t, math.IsNaN(emath.NearestValue(math.NaN(), []float64{0, 1, 2})), "NaN must not snap to an end")
}

func TestNearestValueIdempotent(t *testing.T) {
	cands := emath.Linspace(0.01, 17, 255)
	for _, v := range []float64{-3, 0.3, 1.0, 5.55, 16.99, 40} {
		once := emath.NearestValue(v, cands)
		assert.Equal(t, once, emath.NearestValue(once, cands))
	}
}

func TestClampAndMaxForBits(t *testing.T) {
	assert.Equal(t, 0.0, emath.Clamp(-2, 0, 255))
	assert.Equal(t, 255.0, emath.Clamp(300, 0, 255))
	assert.Equal(t, 17.5, emath.Clamp(17.5, 0, 255))

	assert.Equal(t, uint64(255), emath.MaxForBits(8))
	assert.Equal(t, uint64(4095), emath.MaxForBits(12))
	assert.Equal(t, uint64(1<<32-1), emath.MaxForBits(32))
}
