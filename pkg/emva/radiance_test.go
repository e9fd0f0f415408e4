package emva

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredRadianceDefaultsToSaturation(t *testing.T) {
	s := newTestSensor(t, nil)
	r := s.RequiredRadiance()
	assert.Greater(t, r, 0.0)
	assert.InEpsilon(t, float64(s.MaxDN()), s.MeanOutput(r), 1e-9)
}

func TestRequiredRadianceRoundTrip(t *testing.T) {
	s := newTestSensor(t, func(c *Config) {
		c.BitDepth = 12
		c.QuantumEfficiency = QE(0.4)
		c.DarkCurrentRef = 50
		c.DarkSignalOffset = 30
		c.Temperature = 40
	})
	s.SetGain(0.2)
	s.SetExposure(2e7)

	floor := s.MeanOutput(0)
	for _, m := range []float64{floor, floor + 1, 100, 1000, 2047.5, float64(s.MaxDN())} {
		r := s.RequiredRadiance(AtMean(m), AtExposure(s.Exposure()))
		assert.InDelta(t, m, s.MeanOutput(r), 1e-6*m+1e-9, "mean %v", m)
	}
	assert.InDelta(t, 0, s.RequiredRadiance(AtMean(floor)), 1e-12)
}

// The dark electrons come from the queried exposure, not the current one.
func TestRequiredRadianceAtExposure(t *testing.T) {
	s := newTestSensor(t, func(c *Config) {
		c.DarkCurrentRef = 2000
		c.Temperature = 30
	})
	const other = 2e8
	r := s.RequiredRadiance(AtMean(200), AtExposure(other))
	assert.NotEqual(t, r, s.RequiredRadiance(AtMean(200)))

	s.SetExposure(other)
	assert.InEpsilon(t, 200, s.MeanOutput(r), 1e-9)
}

func TestRequiredRadianceNotClamped(t *testing.T) {
	s := newTestSensor(t, func(c *Config) { c.DarkSignalOffset = 1000 })
	k := s.Gain()
	assert.Less(t, s.RequiredRadiance(AtMean(k*500)), 0.0, "dark signal above the target")

	s = newTestSensor(t, func(c *Config) { c.QuantumEfficiency = QE(0) })
	assert.True(t, math.IsInf(s.RequiredRadiance(), 1))
}

func TestPhotonsFor(t *testing.T) {
	s := newTestSensor(t, nil)
	r := s.RequiredRadiance(AtMean(100))

	p := s.PhotonsFor(r)
	assert.InEpsilon(t, 100/s.Gain()/s.QuantumEfficiency(), p, 1e-9)
	assert.InEpsilon(t, 2*p, s.PhotonsFor(r, AtExposure(2*s.Exposure())), 1e-9)
	assert.Equal(t, p, s.PhotonsFor(r, AtMean(7)), "AtMean is ignored")
	assert.Equal(t, 0.0, s.PhotonsFor(0))
}
