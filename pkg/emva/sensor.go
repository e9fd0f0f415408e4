// Package emva simulates an image sensor following the EMVA1288 linear
// camera model. A Sensor turns a (spatially uniform) scene radiance into
// frames of digital numbers whose per-pixel mean and variance follow the
// model: photon shot noise, dark current, temporal dark noise, fixed-pattern
// noise (DSNU and PRNU), quantization and clipping.
//
// The model can also be run backwards, see RequiredRadiance.
package emva

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/abworrall/emva1288/pkg/emath"
	"github.com/abworrall/emva1288/pkg/radiometry"
)

const (
	// Streams for the PCG sources, so the fixed patterns and the frames
	// never share random numbers for a given seed.
	streamFrames = 0xF4A3E
	streamDSNU   = 0xD5A0
	streamPRNU   = 0x940A

	// Grab generates rows in bands of this many; each band gets its own
	// random stream, so frames don't depend on the number of workers.
	bandRows = 32
)

// Sensor is a simulated camera sensor. Its configuration and fixed-pattern
// maps are fixed at construction; only the exposure, the gain and the black
// offset can change afterwards. A Sensor is safe for concurrent use.
type Sensor struct {
	cfg   Config  // Exposure, K and BlackOffset in here are the initial values only
	qe    float64 // resolved quantum efficiency
	maxDN uint64

	dsnu emath.FloatGrid // e-, additive
	prnu emath.FloatGrid // multiplicative, 1.0 == no deviation

	log     *slog.Logger
	workers int

	mu          sync.RWMutex
	exposure    float64
	gain        Control
	blackOffset Control
	seeds       *rand.Rand // source of per-frame seeds
}

// A SensorOption customizes NewSensor.
type SensorOption func(*Sensor) error

// WithDSNU supplies the dark signal non-uniformity map, in electrons. It
// must be cfg.Width x cfg.Height.
func WithDSNU(dsnu emath.FloatGrid) SensorOption {
	return func(s *Sensor) error {
		if !dsnu.HasSize(s.cfg.Width, s.cfg.Height) {
			return fmt.Errorf("%w: dsnu is %dx%d, sensor is %dx%d", ErrInvalidConfig,
				dsnu.Dx(), dsnu.Dy(), s.cfg.Width, s.cfg.Height)
		}
		s.dsnu = dsnu.Copy()
		return nil
	}
}

// WithPRNU supplies the photo response non-uniformity map, as a gain factor
// per pixel. It must be cfg.Width x cfg.Height.
func WithPRNU(prnu emath.FloatGrid) SensorOption {
	return func(s *Sensor) error {
		if !prnu.HasSize(s.cfg.Width, s.cfg.Height) {
			return fmt.Errorf("%w: prnu is %dx%d, sensor is %dx%d", ErrInvalidConfig,
				prnu.Dx(), prnu.Dy(), s.cfg.Width, s.cfg.Height)
		}
		s.prnu = prnu.Copy()
		return nil
	}
}

func WithLogger(l *slog.Logger) SensorOption {
	return func(s *Sensor) error {
		if l != nil {
			s.log = l
		}
		return nil
	}
}

// WithWorkers limits how many goroutines Grab uses. Defaults to GOMAXPROCS.
func WithWorkers(n int) SensorOption {
	return func(s *Sensor) error {
		if n < 1 {
			return fmt.Errorf("workers %d: must be >= 1", n)
		}
		s.workers = n
		return nil
	}
}

// NewSensor validates the config and builds a sensor. Fixed-pattern maps
// not supplied as options are generated from cfg.DSNUStdDev and
// cfg.PRNUStdDev; with a zero std-dev they are all zeros (DSNU) or all ones
// (PRNU).
func NewSensor(cfg Config, opts ...SensorOption) (*Sensor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Sensor{
		cfg:      cfg,
		maxDN:    cfg.MaxDN(),
		log:      slog.New(slog.DiscardHandler),
		workers:  runtime.GOMAXPROCS(0),
		exposure: cfg.Exposure,
		seeds:    rand.New(rand.NewPCG(cfg.Seed, streamFrames)),
	}

	if cfg.QuantumEfficiency != nil {
		s.qe = *cfg.QuantumEfficiency
	} else {
		s.qe = radiometry.DefaultQE(cfg.Wavelength)
	}

	s.gain = NewControl("K", cfg.KMin, cfg.KMax, cfg.KSteps, cfg.K)
	s.blackOffset = NewControl("blackoffset", cfg.BlackOffsetMin, cfg.BlackOffsetMax, cfg.BlackOffsetSteps, cfg.BlackOffset)

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	// Anything not supplied gets an explicit default map
	if s.dsnu.Len() == 0 {
		s.dsnu = fixedPattern(cfg.Width, cfg.Height, 0, cfg.DSNUStdDev, cfg.Seed, streamDSNU)
	}
	if s.prnu.Len() == 0 {
		s.prnu = fixedPattern(cfg.Width, cfg.Height, 1, cfg.PRNUStdDev, cfg.Seed, streamPRNU)
	}

	s.log.Debug("sensor created",
		"width", cfg.Width, "height", cfg.Height, "bit_depth", cfg.BitDepth,
		"qe", s.qe, "exposure_ns", s.exposure,
		"gain", s.gain.Value(), "black_offset", s.blackOffset.Value(),
		"dsnu", s.dsnu.Stats(), "prnu", s.prnu.Stats())

	return s, nil
}

// fixedPattern returns a w*h grid of values drawn from N(mean, stddev).
func fixedPattern(w, h int, mean, stddev float64, seed, stream uint64) emath.FloatGrid {
	fg := emath.NewFloatGridFilled(w, h, mean)
	if stddev == 0 {
		return fg
	}
	n := distuv.Normal{Mu: mean, Sigma: stddev, Src: rand.NewPCG(seed, stream)}
	fg.Apply(func(float64) float64 { return n.Rand() })
	return fg
}

func (s *Sensor) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("Sensor[%dx%d, %d bit, qe=%.3f, exposure=%.0fns, %s, %s]",
		s.cfg.Width, s.cfg.Height, s.cfg.BitDepth, s.qe, s.exposure, s.gain, s.blackOffset)
}

// {{{ Mutators

// SetExposure sets the exposure time, in ns. The exposure bounds in the
// config are advisory: values outside them are accepted, with a warning.
func (s *Sensor) SetExposure(ns float64) {
	if ns < s.cfg.ExposureMin || ns > s.cfg.ExposureMax {
		s.log.Warn("exposure outside sensor range",
			"exposure_ns", ns, "min_ns", s.cfg.ExposureMin, "max_ns", s.cfg.ExposureMax)
	}
	s.mu.Lock()
	s.exposure = ns
	s.mu.Unlock()
}

// SetGain sets the system gain K (DN/e-) to the available gain closest to
// k, and returns it.
func (s *Sensor) SetGain(k float64) float64 {
	s.mu.Lock()
	got := s.gain.Set(k)
	s.mu.Unlock()

	if got != k {
		s.log.Debug("gain snapped", "requested", k, "gain", got)
	}
	return got
}

// SetBlackOffset sets the black offset (DN) to the available offset closest
// to dn, and returns it.
func (s *Sensor) SetBlackOffset(dn float64) float64 {
	s.mu.Lock()
	got := s.blackOffset.Set(dn)
	s.mu.Unlock()

	if got != dn {
		s.log.Debug("black offset snapped", "requested", dn, "black_offset", got)
	}
	return got
}

// }}}
// {{{ Accessors

func (s *Sensor) Width() int                       { return s.cfg.Width }
func (s *Sensor) Height() int                      { return s.cfg.Height }
func (s *Sensor) PixelArea() float64               { return s.cfg.PixelArea }
func (s *Sensor) FNumber() float64                 { return s.cfg.FNumber }
func (s *Sensor) BitDepth() int                    { return s.cfg.BitDepth }
func (s *Sensor) MaxDN() uint64                    { return s.maxDN }
func (s *Sensor) Temperature() float64             { return s.cfg.Temperature }
func (s *Sensor) TemperatureRef() float64          { return s.cfg.TemperatureRef }
func (s *Sensor) TemperatureDoubling() float64     { return s.cfg.TemperatureDoubling }
func (s *Sensor) Wavelength() float64              { return s.cfg.Wavelength }
func (s *Sensor) QuantumEfficiency() float64       { return s.qe }
func (s *Sensor) DarkCurrentRef() float64          { return s.cfg.DarkCurrentRef }
func (s *Sensor) DarkSignalOffset() float64        { return s.cfg.DarkSignalOffset }
func (s *Sensor) DarkNoiseVarianceOffset() float64 { return s.cfg.DarkNoiseVarianceOffset }
func (s *Sensor) ExposureMin() float64             { return s.cfg.ExposureMin }
func (s *Sensor) ExposureMax() float64             { return s.cfg.ExposureMax }
func (s *Sensor) GainCandidates() []float64        { return s.gain.Candidates() }
func (s *Sensor) BlackOffsetCandidates() []float64 { return s.blackOffset.Candidates() }

func (s *Sensor) Exposure() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exposure
}

// Gain is the current system gain K, in DN/e-.
func (s *Sensor) Gain() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gain.Value()
}

func (s *Sensor) BlackOffset() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blackOffset.Value()
}

// DSNU returns a copy of the dark signal non-uniformity map (e-).
func (s *Sensor) DSNU() emath.FloatGrid { return s.dsnu.Copy() }

// PRNU returns a copy of the photo response non-uniformity map.
func (s *Sensor) PRNU() emath.FloatGrid { return s.prnu.Copy() }

// Config returns the sensor's configuration, with the current exposure,
// gain and black offset, and the resolved quantum efficiency.
func (s *Sensor) Config() Config {
	c := s.cfg
	st := s.state()
	c.Exposure, c.K, c.BlackOffset = st.exposure, st.k, st.blackOffset
	c.QuantumEfficiency = QE(s.qe)
	return c
}

// }}}

// controls is a consistent snapshot of the mutable settings.
type controls struct {
	exposure    float64
	k           float64
	blackOffset float64
}

func (s *Sensor) state() controls {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return controls{s.exposure, s.gain.Value(), s.blackOffset.Value()}
}

// nextFrameSeed returns the controls to grab a frame with, and a fresh seed.
func (s *Sensor) nextFrameSeed() (controls, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return controls{s.exposure, s.gain.Value(), s.blackOffset.Value()}, s.seeds.Uint64()
}
