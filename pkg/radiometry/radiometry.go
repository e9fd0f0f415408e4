// Package radiometry converts between scene radiance and the number of
// photons that land on one pixel, for a simple camera model: a lambertian
// source imaged through a lens of a given f-number onto a square pixel.
//
// Units follow the EMVA1288 conventions used across this module: exposure
// in ns, wavelength in nm, radiance in W/(sr*cm^2), pixel area in um^2.
package radiometry

import (
	"math"

	"github.com/abworrall/emva1288/pkg/emath"
)

const (
	Planck       = 6.62607015e-34 // J*s
	SpeedOfLight = 299792458.0    // m/s

	// DefaultQEPeak and friends shape DefaultQE.
	DefaultQEPeak       = 0.75  // fraction
	DefaultQEPeakNm     = 525.0 // nm
	DefaultQEWidthNm    = 120.0 // nm (1 sigma)
	DefaultQECutoffLoNm = 300.0 // nm
	DefaultQECutoffHiNm = 1100.0
)

// Irradiance is the irradiance at the sensor plane (in W/m^2) for a scene
// radiance (in W/(sr*cm^2)), imaged through a lens with the given f-number.
func Irradiance(radiance, fNumber float64) float64 {
	return math.Pi * radiance * 1e4 / (1 + 4*fNumber*fNumber)
}

// photonsPerRadiance is the number of photons per unit radiance; both
// conversions go through it so that they are exact inverses of each other.
func photonsPerRadiance(exposureNs, wavelengthNm, pixelAreaUm2, fNumber float64) float64 {
	t := exposureNs * 1e-9    // s
	w := wavelengthNm * 1e-9  // m
	a := pixelAreaUm2 * 1e-12 // m^2
	photonEnergy := Planck * SpeedOfLight / w

	return Irradiance(1.0, fNumber) * a * t / photonEnergy
}

// Photons is the mean number of photons collected by one pixel during the
// exposure.
func Photons(exposureNs, wavelengthNm, radiance, pixelAreaUm2, fNumber float64) float64 {
	return radiance * photonsPerRadiance(exposureNs, wavelengthNm, pixelAreaUm2, fNumber)
}

// RadianceFromPhotons is the inverse of Photons: the scene radiance that
// would deliver `photons` to one pixel. Negative photon counts are passed
// straight through, yielding a negative radiance.
func RadianceFromPhotons(exposureNs, wavelengthNm, photons, pixelAreaUm2, fNumber float64) float64 {
	return photons / photonsPerRadiance(exposureNs, wavelengthNm, pixelAreaUm2, fNumber)
}

// DefaultQE is a plausible quantum efficiency curve for a silicon sensor: a
// gaussian centred in the green, zero outside the silicon response band.
func DefaultQE(wavelengthNm float64) float64 {
	if wavelengthNm <= DefaultQECutoffLoNm || wavelengthNm >= DefaultQECutoffHiNm {
		return 0
	}
	d := (wavelengthNm - DefaultQEPeakNm) / DefaultQEWidthNm
	qe := DefaultQEPeak * math.Exp(-0.5*d*d)
	return emath.Clamp(qe, 0, 1)
}
