package emva

import (
	"math"

	"github.com/abworrall/emva1288/pkg/radiometry"
)

// The EMVA1288 statistic chain. Public methods evaluate at the sensor's
// current settings; the lower case versions take them explicitly, so that
// Grab and RequiredRadiance can work from one snapshot.
//
// None of these validate their inputs: a negative radiance or exposure gives
// a number, but not a physically meaningful one.

// DarkCurrent is the dark current at the sensor temperature (e-/s); it
// doubles every TemperatureDoubling degrees above TemperatureRef.
func (s *Sensor) DarkCurrent() float64 {
	dt := (s.cfg.Temperature - s.cfg.TemperatureRef) / s.cfg.TemperatureDoubling
	return s.cfg.DarkCurrentRef * math.Pow(2, dt)
}

// MeanDarkElectrons is the mean number of electrons in a pixel with no light.
func (s *Sensor) MeanDarkElectrons() float64 { return s.meanDarkElectrons(s.Exposure()) }

// DarkVariance is the temporal dark noise (e-^2).
func (s *Sensor) DarkVariance() float64 { return s.darkVariance(s.Exposure()) }

// MeanLightElectrons is the mean number of photo-electrons from the scene.
func (s *Sensor) MeanLightElectrons(radiance float64) float64 {
	return s.meanLightElectrons(radiance, s.Exposure())
}

// LightVariance is the shot noise (e-^2); photo-electrons are Poisson
// distributed, so the variance equals the mean.
func (s *Sensor) LightVariance(radiance float64) float64 {
	return s.meanLightElectrons(radiance, s.Exposure())
}

// QuantizationVariance is the variance of a uniform rounding error over one DN.
func (s *Sensor) QuantizationVariance() float64 { return quantizationVariance }

const quantizationVariance = 1.0 / 12.0

// MeanOutput is the expected digital value (DN) of a pixel, before the black
// offset and fixed-pattern noise are applied.
func (s *Sensor) MeanOutput(radiance float64) float64 {
	return s.meanOutput(radiance, s.state())
}

// VarianceOutput is the temporal variance of the digital value (DN^2).
func (s *Sensor) VarianceOutput(radiance float64) float64 {
	return s.varianceOutput(radiance, s.state())
}

// SNR is the signal-to-noise ratio: the mean signal above dark, over the
// temporal noise.
func (s *Sensor) SNR(radiance float64) float64 {
	c := s.state()
	signal := c.k * s.meanLightElectrons(radiance, c.exposure)
	return signal / math.Sqrt(s.varianceOutput(radiance, c))
}

func (s *Sensor) meanDarkElectrons(exposure float64) float64 {
	return s.DarkCurrent()*exposure/1e9 + s.cfg.DarkSignalOffset
}

func (s *Sensor) darkVariance(exposure float64) float64 {
	return s.cfg.DarkNoiseVarianceOffset + s.DarkCurrent()*exposure/1e9
}

func (s *Sensor) meanLightElectrons(radiance, exposure float64) float64 {
	return s.qe * s.photons(radiance, exposure)
}

func (s *Sensor) photons(radiance, exposure float64) float64 {
	return radiometry.Photons(exposure, s.cfg.Wavelength, radiance, s.cfg.PixelArea, s.cfg.FNumber)
}

func (s *Sensor) meanOutput(radiance float64, c controls) float64 {
	return c.k * (s.meanDarkElectrons(c.exposure) + s.meanLightElectrons(radiance, c.exposure))
}

// The gain applies to the electron-domain noise; quantization noise is
// added after it, directly in DN.
func (s *Sensor) varianceOutput(radiance float64, c controls) float64 {
	electrons := s.darkVariance(c.exposure) + s.meanLightElectrons(radiance, c.exposure)
	return c.k*c.k*electrons + quantizationVariance
}
