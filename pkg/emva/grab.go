package emva

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

// Grab simulates one frame of a spatially uniform scene with the given
// radiance (W/(sr*cm^2)), at the sensor's current settings.
//
// Each pixel is drawn from a normal distribution with the model's mean and
// variance (a gaussian stand-in for the poisson photon statistics, fine at
// the electron counts a real sensor sees). It is then multiplied by the PRNU
// map, gets K*DSNU and the black offset added, is rounded half-to-even and
// clipped to [0, MaxDN].
//
// The random stream advances, but the sensor's settings are untouched.
// Rows are generated in parallel; the only error is ctx being cancelled.
func (s *Sensor) Grab(ctx context.Context, radiance float64) (*Frame, error) {
	c, frameSeed := s.nextFrameSeed()

	mean := s.meanOutput(radiance, c)
	variance := s.varianceOutput(radiance, c)
	if !(variance >= 0) {
		panic(fmt.Sprintf("emva: output variance %v for radiance %v; the config validation should prevent this", variance, radiance))
	}
	std := math.Sqrt(variance)

	w, h := s.cfg.Width, s.cfg.Height
	f := NewFrame(w, h, s.cfg.BitDepth)
	f.Radiance = radiance
	f.Exposure = c.exposure
	f.Gain = c.k
	f.BlackOffset = c.blackOffset

	maxDN := float64(s.maxDN)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for band := 0; band*bandRows < h; band++ {
		y0, y1 := band*bandRows, min((band+1)*bandRows, h)

		g.Go(func() error {
			n := distuv.Normal{Mu: mean, Sigma: std, Src: rand.NewPCG(frameSeed, uint64(band))}

			for y := y0; y < y1; y++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				for x := 0; x < w; x++ {
					i := y*w + x
					v := n.Rand()*s.prnu.At(i) + c.k*s.dsnu.At(i) + c.blackOffset
					f.Pix[i] = digitize(v, maxDN)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("grab: %w", err)
	}

	s.log.Debug("grabbed frame", "radiance", radiance, "exposure_ns", c.exposure,
		"gain", c.k, "black_offset", c.blackOffset, "mean_dn", mean, "std_dn", std)

	return f, nil
}

// digitize rounds v to the nearest integer, ties to even (like numpy's
// rint), and clips to [0, maxDN]. NaN becomes 0.
func digitize(v, maxDN float64) uint32 {
	v = math.RoundToEven(v)
	switch {
	case !(v > 0):
		return 0
	case v > maxDN:
		return uint32(maxDN)
	}
	return uint32(v)
}
