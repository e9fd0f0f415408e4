package emva

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/codahale/hdrhistogram"
	"gonum.org/v1/gonum/stat"

	"github.com/abworrall/emva1288/pkg/emath"
)

// A Frame is one simulated image: Width*Height digital numbers, row major,
// each in [0, 2^BitDepth-1]. It implements image.Image as 16 bit gray, with
// the DN values scaled to fill the 16 bits.
type Frame struct {
	Width    int
	Height   int
	BitDepth int
	Pix      []uint32

	// The settings the frame was grabbed with
	Radiance    float64 // W/(sr*cm^2)
	Exposure    float64 // ns
	Gain        float64 // DN/e-
	BlackOffset float64 // DN
}

func NewFrame(w, h, bitDepth int) *Frame {
	return &Frame{
		Width:    w,
		Height:   h,
		BitDepth: bitDepth,
		Pix:      make([]uint32, w*h),
	}
}

func (f *Frame) DN(x, y int) uint32 { return f.Pix[y*f.Width+x] }
func (f *Frame) MaxDN() uint32      { return uint32(emath.MaxForBits(f.BitDepth)) }

// Implement golang's image.Image interface
func (f *Frame) ColorModel() color.Model { return color.Gray16Model }
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }
func (f *Frame) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(f.Bounds())) {
		return color.Gray16{}
	}
	return color.Gray16{Y: f.gray16(f.DN(x, y))}
}

// Gray16 copies the frame into an image.Gray16, the form most encoders
// know how to write losslessly.
func (f *Frame) Gray16() *image.Gray16 {
	img := image.NewGray16(f.Bounds())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: f.gray16(f.DN(x, y))})
		}
	}
	return img
}

func (f *Frame) gray16(dn uint32) uint16 {
	if f.BitDepth <= 16 {
		// Replicate the top bits into the bottom, so MaxDN maps to 0xFFFF
		top := dn << uint(16-f.BitDepth)
		v := top
		for shift := f.BitDepth; shift < 16; shift += f.BitDepth {
			v |= top >> uint(shift)
		}
		return uint16(v)
	}
	return uint16(dn >> uint(f.BitDepth-16))
}

// FrameStats summarizes the DN values of a frame.
type FrameStats struct {
	Mean      float64
	Variance  float64 // unbiased, over all pixels, so includes fixed-pattern noise
	Min       uint32
	Max       uint32
	Saturated int // pixels at MaxDN
	Zero      int // pixels at 0
}

func (fs FrameStats) String() string {
	return fmt.Sprintf("mean=%.3f var=%.3f std=%.3f min=%d max=%d saturated=%d zero=%d",
		fs.Mean, fs.Variance, math.Sqrt(fs.Variance), fs.Min, fs.Max, fs.Saturated, fs.Zero)
}

func (f *Frame) Stats() FrameStats {
	fs := FrameStats{}
	if len(f.Pix) == 0 {
		return fs
	}

	maxDN := f.MaxDN()
	fs.Min, fs.Max = f.Pix[0], f.Pix[0]
	for _, v := range f.Pix {
		if v < fs.Min {
			fs.Min = v
		}
		if v > fs.Max {
			fs.Max = v
		}
		if v == maxDN {
			fs.Saturated++
		}
		if v == 0 {
			fs.Zero++
		}
	}

	fs.Mean, fs.Variance = stat.MeanVariance(f.Float64s(), nil)
	if len(f.Pix) < 2 {
		fs.Variance = 0
	}
	return fs
}

// Float64s returns the DN values as float64s, row major.
func (f *Frame) Float64s() []float64 {
	out := make([]float64, len(f.Pix))
	for i, v := range f.Pix {
		out[i] = float64(v)
	}
	return out
}

// Histogram records every DN value of the frame, to 3 significant figures.
func (f *Frame) Histogram() *hdrhistogram.Histogram {
	h := hdrhistogram.New(1, max(int64(f.MaxDN()), 2), 3)
	for _, v := range f.Pix {
		// Can't fail, every value is <= MaxDN
		h.RecordValue(int64(v))
	}
	return h
}

// TemporalVariance estimates the temporal noise (DN^2) from a pair of frames
// taken with identical settings. Differencing them cancels out the fixed
// pattern noise: var(A-B)/2.
func TemporalVariance(a, b *Frame) (float64, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return 0, fmt.Errorf("frame size mismatch: %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	if len(a.Pix) < 2 {
		return 0, fmt.Errorf("temporal variance: %d pixels, need 2", len(a.Pix))
	}
	diff := make([]float64, len(a.Pix))
	for i := range a.Pix {
		diff[i] = float64(a.Pix[i]) - float64(b.Pix[i])
	}
	return stat.Variance(diff, nil) / 2, nil
}
