package frameio

import (
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/abworrall/emva1288/pkg/emath"
	"github.com/abworrall/emva1288/pkg/emva"
)

var (
	rampLow  = colorful.Hsv(240, 1, 0.5) // dark blue
	rampHigh = colorful.Hsv(40, 1, 1)    // orange
)

// MapImage renders a fixed-pattern map as a false colour image, blue for
// the smallest value and orange for the largest, with a title and the
// value range written across the top.
func MapImage(fg emath.FloatGrid, title string) image.Image {
	lo, hi := fg.MinMax()
	span := hi - lo

	img := image.NewRGBA(image.Rect(0, 0, fg.Dx(), fg.Dy()))
	for y := 0; y < fg.Dy(); y++ {
		for x := 0; x < fg.Dx(); x++ {
			t := 0.5
			if span > 0 {
				t = (fg.Get(x, y) - lo) / span
			}
			img.Set(x, y, rampLow.BlendHcl(rampHigh, t).Clamped())
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(fmt.Sprintf("%s [%.4g, %.4g]", title, lo, hi), 10, 20)
	return dc.Image()
}

const (
	plotW, plotH = 800, 600
	plotMargin   = 60.0
)

// PTCImage plots the dark-corrected temporal variance against the
// dark-corrected mean of each point, plus the fitted gain if there is one.
func PTCImage(ptc emva.PhotonTransferCurve) image.Image {
	dc := gg.NewContext(plotW, plotH)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	xs := make([]float64, len(ptc.Points))
	ys := make([]float64, len(ptc.Points))
	xMax, yMax := 1.0, 1.0
	for i, p := range ptc.Points {
		xs[i], ys[i] = p.MeanBright-p.MeanDark, p.VarBright-p.VarDark
		xMax, yMax = math.Max(xMax, xs[i]), math.Max(yMax, ys[i])
	}

	w, h := plotW-2*plotMargin, plotH-2*plotMargin
	toX := func(v float64) float64 { return plotMargin + w*v/xMax }
	toY := func(v float64) float64 { return plotH - plotMargin - h*v/yMax }

	// Axes
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(plotMargin, plotH-plotMargin, plotW-plotMargin, plotH-plotMargin)
	dc.DrawLine(plotMargin, plotMargin, plotMargin, plotH-plotMargin)
	dc.Stroke()
	dc.DrawStringAnchored(fmt.Sprintf("mean - dark (DN), max %.1f", xMax), plotW/2, plotH-plotMargin/2, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("temporal variance (DN^2), max %.1f", yMax), plotMargin, plotMargin/2, 0, 0.5)

	if k, err := ptc.FitGain(); err == nil {
		dc.SetRGB(0.8, 0.1, 0.1)
		dc.DrawLine(toX(0), toY(0), toX(xMax), toY(k*xMax))
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("K = %.4f DN/e-", k), plotW-plotMargin, plotMargin, 1, 0.5)
	}

	dc.SetRGB(0.1, 0.2, 0.8)
	for i := range xs {
		dc.DrawCircle(toX(xs[i]), toY(ys[i]), 4)
		dc.Fill()
	}

	return dc.Image()
}
