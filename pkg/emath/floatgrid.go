package emath

import (
	"fmt"
	"math"
)

// A FloatGrid is a row-major grid of floats, used for the per-pixel
// fixed-pattern maps (DSNU in electrons, PRNU as a gain factor).
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFilled returns a w*h grid with every value set to v.
func NewFloatGridFilled(w, h int, v float64) FloatGrid {
	fg := NewFloatGrid(w, h)
	for i := range fg.values {
		fg.values[i] = v
	}
	return fg
}

// NewFloatGridFromRows copies a [row][col] slice into a grid. All rows must
// have the same, non-zero, length.
func NewFloatGridFromRows(rows [][]float64) (FloatGrid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return FloatGrid{}, fmt.Errorf("grid rows: empty")
	}
	w := len(rows[0])
	fg := NewFloatGrid(w, len(rows))
	for y, row := range rows {
		if len(row) != w {
			return FloatGrid{}, fmt.Errorf("grid row %d: has %d values, want %d", y, len(row), w)
		}
		copy(fg.values[y*w:(y+1)*w], row)
	}
	return fg, nil
}

func (fg *FloatGrid) Set(x, y int, v float64) { fg.values[fg.stride*y+x] = v }
func (fg FloatGrid) Get(x, y int) float64     { return fg.values[fg.stride*y+x] }
func (fg FloatGrid) Dx() int                  { return fg.stride }

func (fg FloatGrid) Dy() int {
	if fg.stride == 0 {
		return 0
	}
	return len(fg.values) / fg.stride
}

// At is the value at flat (row-major) index i.
func (fg FloatGrid) At(i int) float64 { return fg.values[i] }

// Len is the number of values in the grid.
func (fg FloatGrid) Len() int { return len(fg.values) }

// Values returns a copy of the underlying row-major values.
func (fg FloatGrid) Values() []float64 {
	v := make([]float64, len(fg.values))
	copy(v, fg.values)
	return v
}

// HasSize reports whether the grid is exactly w columns by h rows.
func (fg FloatGrid) HasSize(w, h int) bool {
	return fg.Dx() == w && fg.Dy() == h && len(fg.values) == w*h
}

func (fg FloatGrid) Copy() FloatGrid {
	g2 := FloatGrid{stride: fg.stride, values: make([]float64, len(fg.values))}
	copy(g2.values, fg.values)
	return g2
}

// Apply replaces every value v with f(v).
func (fg *FloatGrid) Apply(f func(float64) float64) {
	for i, v := range fg.values {
		fg.values[i] = f(v)
	}
}

// MinMax returns the smallest and largest values; both are NaN for an empty grid.
func (fg FloatGrid) MinMax() (float64, float64) {
	if len(fg.values) == 0 {
		return math.NaN(), math.NaN()
	}
	min, max := fg.values[0], fg.values[0]
	for _, v := range fg.values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return min, max
}

func (fg FloatGrid) Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}
