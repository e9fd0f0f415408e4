package frameio

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/emva1288/pkg/emath"
	"github.com/abworrall/emva1288/pkg/emva"
)

func testFrame(t *testing.T) *emva.Frame {
	t.Helper()
	c := emva.NewConfig()
	c.Width, c.Height, c.BitDepth = 20, 10, 12
	s, err := emva.NewSensor(c)
	require.NoError(t, err)
	s.SetGain(0.5)
	f, err := s.Grab(context.Background(), s.RequiredRadiance(emva.AtMean(1000)))
	require.NoError(t, err)
	return f
}

func TestWriteFrameTIFF(t *testing.T) {
	f := testFrame(t)
	fn := filepath.Join(t.TempDir(), "frame.tiff")
	require.NoError(t, WriteFrame(f, fn))

	img, err := ReadTIFF(fn)
	require.NoError(t, err)
	g, ok := img.(*image.Gray16)
	require.True(t, ok, "got %T", img)
	assert.Equal(t, f.Bounds(), g.Bounds())
	assert.Equal(t, f.Gray16().Pix, g.Pix)
}

func TestWriteFramePNG(t *testing.T) {
	f := testFrame(t)
	fn := filepath.Join(t.TempDir(), "frame.PNG")
	require.NoError(t, WriteFrame(f, fn))

	r, err := os.Open(fn)
	require.NoError(t, err)
	defer r.Close()
	img, err := png.Decode(r)
	require.NoError(t, err)
	assert.Equal(t, f.Gray16().Pix, img.(*image.Gray16).Pix)
}

func TestWriteFrameErrors(t *testing.T) {
	f := testFrame(t)
	assert.Error(t, WriteFrame(f, filepath.Join(t.TempDir(), "frame.jpg")))
	assert.Error(t, WriteFrame(f, filepath.Join(t.TempDir(), "nodir", "frame.tif")))

	_, err := ReadTIFF(filepath.Join(t.TempDir(), "missing.tif"))
	assert.Error(t, err)
}

func TestHDRRoundTrip(t *testing.T) {
	fg := emath.NewFloatGridFilled(7, 5, 1.0)
	fg.Set(2, 3, 1.25)
	fg.Set(6, 0, 0.5)
	fg.Set(0, 4, 0)

	fn := filepath.Join(t.TempDir(), "prnu.hdr")
	require.NoError(t, WriteHDR(fg, fn))

	got, err := ReadHDR(fn)
	require.NoError(t, err)
	require.True(t, got.HasSize(7, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 7; x++ {
			assert.InDelta(t, fg.Get(x, y), got.Get(x, y), 0.01*fg.Get(x, y)+1e-9, "(%d,%d)", x, y)
		}
	}
}

func TestHDRErrors(t *testing.T) {
	fg := emath.NewFloatGrid(3, 3)
	fg.Set(1, 1, -2)
	assert.Error(t, WriteHDR(fg, filepath.Join(t.TempDir(), "dsnu.hdr")))

	_, err := ReadHDR(filepath.Join(t.TempDir(), "missing.hdr"))
	assert.Error(t, err)

	_, err = ReadHDR(writeJunk(t))
	assert.Error(t, err)
}

func writeJunk(t *testing.T) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "junk.hdr")
	require.NoError(t, os.WriteFile(fn, []byte("not a radiance file\n"), 0o644))
	return fn
}

func TestMapImage(t *testing.T) {
	fg := emath.NewFloatGrid(120, 40)
	fg.Set(119, 39, 10)
	img := MapImage(fg, "dsnu")
	assert.Equal(t, image.Rect(0, 0, 120, 40), img.Bounds())

	// Opposite ends of the ramp
	r0, g0, b0, _ := img.At(60, 39).RGBA()
	r1, g1, b1, _ := img.At(119, 39).RGBA()
	assert.Greater(t, b0, r0)
	assert.Greater(t, r1, b1)
	assert.NotEqual(t, [3]uint32{r0, g0, b0}, [3]uint32{r1, g1, b1})

	// A flat map still renders
	flat := MapImage(emath.NewFloatGridFilled(8, 8, 3), "flat")
	assert.Equal(t, 8, flat.Bounds().Dx())
}

func TestPTCImage(t *testing.T) {
	ptc := emva.PhotonTransferCurve{MaxDN: 4095}
	for _, m := range []float64{100, 500, 1000, 2000} {
		ptc.Points = append(ptc.Points, emva.PTCPoint{MeanBright: m, VarBright: m / 2})
	}
	img := PTCImage(ptc)
	assert.Equal(t, image.Rect(0, 0, plotW, plotH), img.Bounds())
	require.NoError(t, WritePNG(img, filepath.Join(t.TempDir(), "ptc.png")))

	// No points, no fit, still a plot
	assert.NotNil(t, PTCImage(emva.PhotonTransferCurve{}))
}

func TestCloseFileReportsError(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "f.bin")
	f, err := os.Create(fn)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Closing twice fails; that failure must come back
	var werr error
	closeFile(f, &werr)
	assert.Error(t, werr)
	assert.Contains(t, werr.Error(), "f.bin")

	// An earlier error wins over the close error
	f, err = os.Create(fn)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	werr = assert.AnError
	closeFile(f, &werr)
	assert.Equal(t, assert.AnError, werr)

	// A clean close leaves err alone
	f, err = os.Create(fn)
	require.NoError(t, err)
	werr = nil
	closeFile(f, &werr)
	assert.NoError(t, werr)
}
