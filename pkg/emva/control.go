package emva

import (
	"fmt"
	"math"

	"github.com/abworrall/emva1288/pkg/emath"
)

// A Control is a hardware setting, like the system gain or the black
// offset, that is written through a finite-resolution register: it can only
// hold one of a fixed, ascending set of evenly spaced values between a
// minimum and a maximum.
type Control struct {
	Name       string
	candidates []float64
	value      float64
}

// NewControl builds the candidate set, and sets the control to the
// candidate closest to `initial`.
func NewControl(name string, min, max float64, steps int, initial float64) Control {
	c := Control{
		Name:       name,
		candidates: emath.Linspace(min, max, steps),
	}
	if len(c.candidates) > 0 {
		c.value = c.candidates[0]
	}
	c.Set(initial)
	return c
}

// Set snaps v to the nearest candidate (ties go to the lower one), and
// returns the value actually set. NaN leaves the control as it was.
func (c *Control) Set(v float64) float64 {
	if math.IsNaN(v) {
		return c.value
	}
	c.value = emath.NearestValue(v, c.candidates)
	return c.value
}

func (c Control) Value() float64 { return c.value }
func (c Control) Min() float64   { return c.candidates[0] }
func (c Control) Max() float64   { return c.candidates[len(c.candidates)-1] }

// Candidates returns a copy of all the values the control can hold.
func (c Control) Candidates() []float64 {
	out := make([]float64, len(c.candidates))
	copy(out, c.candidates)
	return out
}

func (c Control) String() string {
	return fmt.Sprintf("%s=%.6g [%.6g..%.6g, %d steps]", c.Name, c.value, c.Min(), c.Max(), len(c.candidates))
}
