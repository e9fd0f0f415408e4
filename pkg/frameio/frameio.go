// Package frameio writes simulated frames and fixed-pattern maps to disk, and
// renders a few diagnostic images.
package frameio

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/abworrall/emva1288/pkg/emva"
)

func WritePNG(img image.Image, filename string) (err error) {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer closeFile(writer, &err)
	return png.Encode(writer, img)
}

// WriteTIFF writes a deflate compressed TIFF. A *image.Gray16 comes out as
// a 16 bit grayscale TIFF.
func WriteTIFF(img image.Image, filename string) (err error) {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer closeFile(writer, &err)
	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate})
}

// closeFile closes a file that was written to, reporting the close error
// through err unless something already went wrong.
func closeFile(f *os.File, err *error) {
	if cerr := f.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("close '%s': %v", f.Name(), cerr)
	}
}

func ReadTIFF(filename string) (image.Image, error) {
	if reader, err := os.Open(filename); err != nil {
		return nil, fmt.Errorf("open+r img '%s': %v", filename, err)
	} else {
		defer reader.Close()
		img, err := tiff.Decode(reader)
		if err != nil {
			return nil, fmt.Errorf("tiff loading '%s': %v", filename, err)
		}
		return img, nil
	}
}

// WriteFrame writes a frame as 16 bit grayscale, picking the format from
// the filename's extension (.png, .tif or .tiff). DN values are scaled up
// to fill the 16 bits.
func WriteFrame(f *emva.Frame, filename string) error {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".png":
		return WritePNG(f.Gray16(), filename)
	case ".tif", ".tiff":
		return WriteTIFF(f.Gray16(), filename)
	default:
		return fmt.Errorf("write frame '%s': unknown extension %q", filename, ext)
	}
}
