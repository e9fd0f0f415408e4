package frameio

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/emva1288/pkg/emath"
)

// GridImage presents a FloatGrid as a gray HDR image, so it can be saved
// in Radiance RGBE format. RGBE keeps about 1% precision and
// cannot hold negative values.
type GridImage struct {
	emath.FloatGrid
}

// Implement golang's image.Image interface
func (gi GridImage) ColorModel() color.Model { return hdrcolor.RGBModel }
func (gi GridImage) Bounds() image.Rectangle { return image.Rect(0, 0, gi.Dx(), gi.Dy()) }
func (gi GridImage) At(x, y int) color.Color { return gi.HDRAt(x, y) }

// Implement hdr.Image
func (gi GridImage) HDRAt(x, y int) hdrcolor.Color {
	v := gi.Get(x, y)
	return hdrcolor.RGB{R: v, G: v, B: v}
}
func (gi GridImage) Size() int { return gi.Len() }

// WriteHDR saves a non-negative map, such as a PRNU map, as a .hdr file.
func WriteHDR(fg emath.FloatGrid, filename string) (err error) {
	if lo, _ := fg.MinMax(); lo < 0 {
		return fmt.Errorf("write hdr '%s': map has negative values (min %f)", filename, lo)
	}

	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer closeFile(writer, &err)
	return rgbe.Encode(writer, GridImage{fg})
}

// ReadHDR loads a map saved by WriteHDR. Colour images are reduced to the
// mean of their channels.
func ReadHDR(filename string) (emath.FloatGrid, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return emath.FloatGrid{}, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer reader.Close()

	img, err := rgbe.Decode(reader)
	if err != nil {
		return emath.FloatGrid{}, fmt.Errorf("rgbe decoding '%s': %v", filename, err)
	}
	himg, ok := img.(hdr.Image)
	if !ok {
		return emath.FloatGrid{}, fmt.Errorf("rgbe decoding '%s': got %T, not an HDR image", filename, img)
	}

	b := himg.Bounds()
	fg := emath.NewFloatGrid(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := himg.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
			fg.Set(x, y, (r+g+bl)/3)
		}
	}
	return fg, nil
}
