package emva

import (
	"github.com/abworrall/emva1288/pkg/radiometry"
)

// A QueryOption overrides one of the defaults of RequiredRadiance or
// PhotonsFor.
type QueryOption func(*query)

type query struct {
	mean     float64 // DN
	exposure float64 // ns
}

// AtMean sets the target mean output, in DN. RequiredRadiance defaults to
// MaxDN, i.e. the radiance that saturates the sensor.
func AtMean(dn float64) QueryOption {
	return func(q *query) { q.mean = dn }
}

// AtExposure sets the exposure time, in ns. Defaults to the sensor's
// current exposure.
func AtExposure(ns float64) QueryOption {
	return func(q *query) { q.exposure = ns }
}

func (s *Sensor) resolveQuery(c controls, opts []QueryOption) query {
	q := query{
		mean:     float64(s.maxDN),
		exposure: c.exposure,
	}
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// RequiredRadiance solves the model backwards: the radiance (W/(sr*cm^2))
// that gives a mean output of AtMean (default MaxDN) with an exposure of
// AtExposure (default the current exposure), at the current gain.
//
// The result is not clamped. When the dark signal alone is above the target
// mean, the radiance comes back negative. A zero quantum efficiency or
// exposure gives an infinite radiance.
func (s *Sensor) RequiredRadiance(opts ...QueryOption) float64 {
	c := s.state()
	q := s.resolveQuery(c, opts)

	electrons := q.mean / c.k
	lightElectrons := electrons - s.meanDarkElectrons(q.exposure)
	photons := lightElectrons / s.qe

	return radiometry.RadianceFromPhotons(q.exposure, s.cfg.Wavelength, photons, s.cfg.PixelArea, s.cfg.FNumber)
}

// PhotonsFor is the mean number of photons hitting one pixel for the given
// radiance, during AtExposure (default the current exposure). AtMean is
// ignored.
func (s *Sensor) PhotonsFor(radiance float64, opts ...QueryOption) float64 {
	q := s.resolveQuery(s.state(), opts)
	return s.photons(radiance, q.exposure)
}
