package emva

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(bitDepth int, pix ...uint32) *Frame {
	f := NewFrame(len(pix), 1, bitDepth)
	copy(f.Pix, pix)
	return f
}

func TestFrameStats(t *testing.T) {
	fs := testFrame(8, 0, 255, 128, 1).Stats()
	assert.Equal(t, 96.0, fs.Mean)
	assert.InDelta(t, 44546.0/3, fs.Variance, 1e-9)
	assert.Equal(t, uint32(0), fs.Min)
	assert.Equal(t, uint32(255), fs.Max)
	assert.Equal(t, 1, fs.Saturated)
	assert.Equal(t, 1, fs.Zero)
	assert.Contains(t, fs.String(), "mean=96.000")

	assert.Equal(t, FrameStats{}, NewFrame(0, 0, 8).Stats())
}

func TestFrameDN(t *testing.T) {
	f := NewFrame(3, 2, 10)
	f.Pix[1*3+2] = 1000
	assert.Equal(t, uint32(1000), f.DN(2, 1))
	assert.Equal(t, uint32(1023), f.MaxDN())
}

func TestFrameHistogram(t *testing.T) {
	f := testFrame(12, 10, 10, 20, 4095, 0)
	h := f.Histogram()
	assert.Equal(t, int64(5), h.TotalCount())
	assert.Equal(t, int64(4095), h.Max())
	assert.Equal(t, int64(10), h.ValueAtQuantile(50))
	assert.InDelta(t, (10+10+20+4095+0)/5.0, h.Mean(), 1e-9)

	// Tiny bit depths still get a usable histogram
	assert.Equal(t, int64(3), testFrame(1, 1, 0, 1).Histogram().TotalCount())
}

func TestFrameIsAnImage(t *testing.T) {
	var _ image.Image = (*Frame)(nil)

	tests := []struct {
		bits int
		dn   uint32
		want uint16
	}{
		{8, 0, 0},
		{8, 255, 0xFFFF},
		{8, 128, 0x8080},
		{12, 4095, 0xFFFF},
		{12, 0x800, 0x8008},
		{16, 0x1234, 0x1234},
		{1, 1, 0xFFFF},
		{32, 0xFFFFFFFF, 0xFFFF},
		{32, 0x00010000, 0x0001},
	}
	for _, tt := range tests {
		f := testFrame(tt.bits, tt.dn)
		assert.Equal(t, color.Gray16{Y: tt.want}, f.At(0, 0), "%d bits, dn %d", tt.bits, tt.dn)
	}

	f := NewFrame(4, 3, 8)
	assert.Equal(t, image.Rect(0, 0, 4, 3), f.Bounds())
	assert.Equal(t, color.Gray16Model, f.ColorModel())
	assert.Equal(t, color.Gray16{}, f.At(4, 0))
	assert.Equal(t, color.Gray16{}, f.At(-1, 2))

	f.Pix[5] = 255
	g := f.Gray16()
	assert.Equal(t, f.Bounds(), g.Bounds())
	assert.Equal(t, uint16(0xFFFF), g.Gray16At(1, 1).Y)
	assert.Equal(t, uint16(0), g.Gray16At(0, 0).Y)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, f))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.Bounds(), img.Bounds())
}

func TestTemporalVariance(t *testing.T) {
	a := testFrame(8, 5, 6, 7, 8)
	v, err := TemporalVariance(a, a)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	v, err = TemporalVariance(testFrame(8, 2, 0, 2, 0), testFrame(8, 0, 0, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, v, 1e-12)

	// A constant offset between the frames is fixed pattern, not noise
	v, err = TemporalVariance(testFrame(8, 12, 10, 12, 10), testFrame(8, 10, 10, 10, 10))
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, v, 1e-12)

	_, err = TemporalVariance(NewFrame(2, 2, 8), NewFrame(4, 1, 8))
	assert.Error(t, err)
}

func TestGrabbedFrameHistogram(t *testing.T) {
	s := newTestSensor(t, func(c *Config) { c.BitDepth = 10 })
	f := grab(t, s, s.RequiredRadiance(AtMean(500)))
	h := f.Histogram()
	assert.Equal(t, int64(len(f.Pix)), h.TotalCount())
	assert.LessOrEqual(t, h.Max(), int64(s.MaxDN()))
}

func TestSinglePixelFrame(t *testing.T) {
	fs := testFrame(8, 42).Stats()
	assert.Equal(t, 42.0, fs.Mean)
	assert.Equal(t, 0.0, fs.Variance)

	_, err := TemporalVariance(testFrame(8, 1), testFrame(8, 2))
	assert.Error(t, err)
}

func TestSinglePixelSensor(t *testing.T) {
	s := newTestSensor(t, func(c *Config) { c.Width, c.Height = 1, 1 })
	f := grab(t, s, s.RequiredRadiance(AtMean(100)))
	assert.Equal(t, 0.0, f.Stats().Variance)

	_, err := s.PhotonTransfer(context.Background(), 1e-4, SweepExposures(1e6, 2e6))
	assert.Error(t, err)
}
