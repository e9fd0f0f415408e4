package emva

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/abworrall/emva1288/pkg/emath"
)

// The photon transfer measurement, as a calibration rig would run it
// against a real camera: step the exposure at a fixed radiance, take a pair
// of bright frames and a pair of dark frames at each step, and look at how
// the temporal variance grows with the mean. The slope is the system gain.

// A PTCPoint is one exposure step of a photon transfer sweep.
type PTCPoint struct {
	Exposure   float64 // ns
	Photons    float64 // mean photons per pixel
	MeanBright float64 // DN, mean over both bright frames
	MeanDark   float64 // DN
	VarBright  float64 // DN^2, temporal only (see TemporalVariance)
	VarDark    float64 // DN^2
}

func (p PTCPoint) String() string {
	return fmt.Sprintf("exp=%10.0fns photons=%12.1f mean=%10.3f dark=%8.3f var=%10.3f darkvar=%8.3f",
		p.Exposure, p.Photons, p.MeanBright, p.MeanDark, p.VarBright, p.VarDark)
}

// PhotonTransferCurve is the result of a sweep.
type PhotonTransferCurve struct {
	Radiance float64
	MaxDN    uint64
	Points   []PTCPoint
}

// FitGain estimates the system gain K (DN/e-) as the slope of the
// dark-corrected variance against the dark-corrected mean. Only points
// below 70% of saturation are used, as clipping flattens the variance.
func (ptc PhotonTransferCurve) FitGain() (float64, error) {
	limit := 0.7 * float64(ptc.MaxDN)
	var xs, ys []float64
	for _, p := range ptc.Points {
		if p.MeanBright > limit {
			continue
		}
		xs = append(xs, p.MeanBright-p.MeanDark)
		ys = append(ys, p.VarBright-p.VarDark)
	}
	if len(xs) < 2 {
		return 0, fmt.Errorf("fit gain: %d usable points of %d, need 2", len(xs), len(ptc.Points))
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0, fmt.Errorf("fit gain: no slope through %d points, are all the means equal?", len(xs))
	}
	return slope, nil
}

// A SweepOption picks the exposures of a photon transfer sweep.
type SweepOption func(*sweep)

type sweep struct {
	exposures []float64
}

// SweepExposures sets the exact exposures (ns) to step through.
func SweepExposures(ns ...float64) SweepOption {
	return func(sw *sweep) { sw.exposures = ns }
}

// SweepSteps steps through n exposures evenly spaced between min and max ns.
func SweepSteps(min, max float64, n int) SweepOption {
	return func(sw *sweep) { sw.exposures = emath.Linspace(min, max, n) }
}

// PhotonTransfer runs a photon transfer sweep at the given radiance. By
// default it takes 10 exposures spanning the sensor's exposure range. The
// sensor's exposure is restored afterwards; other goroutines grabbing
// frames during a sweep will see the exposure change.
func (s *Sensor) PhotonTransfer(ctx context.Context, radiance float64, opts ...SweepOption) (PhotonTransferCurve, error) {
	sw := sweep{exposures: emath.Linspace(s.cfg.ExposureMin, s.cfg.ExposureMax, 10)}
	for _, opt := range opts {
		opt(&sw)
	}

	ptc := PhotonTransferCurve{Radiance: radiance, MaxDN: s.maxDN}
	if len(sw.exposures) == 0 {
		return ptc, fmt.Errorf("photon transfer: no exposures to sweep")
	}

	orig := s.Exposure()
	defer s.SetExposure(orig)

	for _, exp := range sw.exposures {
		s.SetExposure(exp)

		p := PTCPoint{Exposure: exp, Photons: s.PhotonsFor(radiance)}
		var err error
		if p.MeanBright, p.VarBright, err = s.grabPair(ctx, radiance); err != nil {
			return ptc, fmt.Errorf("photon transfer bright @%.0fns: %w", exp, err)
		}
		if p.MeanDark, p.VarDark, err = s.grabPair(ctx, 0); err != nil {
			return ptc, fmt.Errorf("photon transfer dark @%.0fns: %w", exp, err)
		}

		s.log.Debug("photon transfer point", "exposure_ns", exp, "mean_dn", p.MeanBright, "var_dn2", p.VarBright)
		ptc.Points = append(ptc.Points, p)
	}

	return ptc, nil
}

// grabPair grabs two frames, and returns their mean and temporal variance.
func (s *Sensor) grabPair(ctx context.Context, radiance float64) (float64, float64, error) {
	a, err := s.Grab(ctx, radiance)
	if err != nil {
		return 0, 0, err
	}
	b, err := s.Grab(ctx, radiance)
	if err != nil {
		return 0, 0, err
	}

	v, err := TemporalVariance(a, b)
	if err != nil {
		return 0, 0, err
	}
	mean := (stat.Mean(a.Float64s(), nil) + stat.Mean(b.Float64s(), nil)) / 2
	return mean, v, nil
}
