package emva

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/knadh/koanf"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/emva1288/pkg/emath"
)

/* Example config file; every key is optional, missing keys take the
   values from NewConfig().

width: 64
height: 48
bit_depth: 12
wavelength: 550
quantum_efficiency: 0.6
dark_current_ref: 20
exposure: 2000000
k: 0.1
black_offset: 4
prnu_stddev: 0.01
dsnu_stddev: 2
seed: 1288

*/

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid sensor config")

// Config is the full set of parameters for a Sensor. Exposure values are
// in ns, temperatures in degrees C, wavelength in nm, pixel area in um^2.
type Config struct {
	FNumber   float64 `koanf:"f_number" yaml:"f_number"`
	PixelArea float64 `koanf:"pixel_area" yaml:"pixel_area"`
	BitDepth  int     `koanf:"bit_depth" yaml:"bit_depth"`
	Width     int     `koanf:"width" yaml:"width"`
	Height    int     `koanf:"height" yaml:"height"`

	Temperature         float64 `koanf:"temperature" yaml:"temperature"`
	TemperatureRef      float64 `koanf:"temperature_ref" yaml:"temperature_ref"`           // Dark current equals DarkCurrentRef here
	TemperatureDoubling float64 `koanf:"temperature_doubling" yaml:"temperature_doubling"` // Dark current doubles every this many degrees

	Wavelength        float64  `koanf:"wavelength" yaml:"wavelength"`
	QuantumEfficiency *float64 `koanf:"quantum_efficiency,omitempty" yaml:"quantum_efficiency,omitempty"` // nil: radiometry.DefaultQE(Wavelength)

	Exposure    float64 `koanf:"exposure" yaml:"exposure"`
	ExposureMin float64 `koanf:"exposure_min" yaml:"exposure_min"`
	ExposureMax float64 `koanf:"exposure_max" yaml:"exposure_max"`

	K      float64 `koanf:"k" yaml:"k"` // DN/e-
	KMin   float64 `koanf:"k_min" yaml:"k_min"`
	KMax   float64 `koanf:"k_max" yaml:"k_max"`
	KSteps int     `koanf:"k_steps" yaml:"k_steps"`

	BlackOffset      float64 `koanf:"black_offset" yaml:"black_offset"` // DN
	BlackOffsetMin   float64 `koanf:"black_offset_min" yaml:"black_offset_min"`
	BlackOffsetMax   float64 `koanf:"black_offset_max" yaml:"black_offset_max"`
	BlackOffsetSteps int     `koanf:"black_offset_steps" yaml:"black_offset_steps"`

	DarkCurrentRef          float64 `koanf:"dark_current_ref" yaml:"dark_current_ref"`                     // e-/s at TemperatureRef
	DarkSignalOffset        float64 `koanf:"dark_signal_offset" yaml:"dark_signal_offset"`                 // e-
	DarkNoiseVarianceOffset float64 `koanf:"dark_noise_variance_offset" yaml:"dark_noise_variance_offset"` // e-^2

	// Used to generate fixed-pattern maps when none are given to NewSensor
	DSNUStdDev float64 `koanf:"dsnu_stddev" yaml:"dsnu_stddev"` // e-
	PRNUStdDev float64 `koanf:"prnu_stddev" yaml:"prnu_stddev"` // fraction, 0.01 == 1%

	Seed uint64 `koanf:"seed" yaml:"seed"`
}

// NewConfig returns the default 640x480, 8 bit sensor.
func NewConfig() Config {
	return Config{
		FNumber:   8,
		PixelArea: 25,
		BitDepth:  8,
		Width:     640,
		Height:    480,

		Temperature:         22,
		TemperatureRef:      30,
		TemperatureDoubling: 8,

		Wavelength: 525,

		Exposure:    1000000,
		ExposureMin: 10000,
		ExposureMax: 500000000,

		K:      0.01,
		KMin:   0.01,
		KMax:   17,
		KSteps: 255,

		BlackOffset:      0,
		BlackOffsetMin:   0,
		BlackOffsetMax:   16,
		BlackOffsetSteps: 255,

		DarkCurrentRef:          0,
		DarkSignalOffset:        0,
		DarkNoiseVarianceOffset: 10,
	}
}

// QE is a convenience for filling in Config.QuantumEfficiency.
func QE(qe float64) *float64 { return &qe }

// LoadConfig layers a YAML file over the defaults from NewConfig, and
// validates the result.
func LoadConfig(filename string) (Config, error) {
	if _, err := os.Stat(filename); err != nil {
		return Config{}, fmt.Errorf("config '%s': %w", filename, err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(NewConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config defaults: %w", err)
	}
	if err := k.Load(file.Provider(filename), kyaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("config parse '%s': %w", filename, err)
	}

	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, fmt.Errorf("config unmarshal '%s': %w", filename, err)
	}

	return c, c.Validate()
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		// Config is all plain fields, so this can't happen
		panic(fmt.Sprintf("can't marshal config yaml: %v", err))
	}
	return string(b)
}

// MaxDN is the clipping ceiling, 2^BitDepth - 1.
func (c Config) MaxDN() uint64 {
	return emath.MaxForBits(c.BitDepth)
}

func invalid(field string, v interface{}, why string) error {
	return fmt.Errorf("%w: %s=%v %s", ErrInvalidConfig, field, v, why)
}

// Validate checks the physical sanity of the parameters. It does not look at
// the exposure bounds relative to Exposure; those are advisory.
func (c Config) Validate() error {
	finite := func(field string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid(field, v, "must be finite")
		}
		return nil
	}
	for field, v := range map[string]float64{
		"f_number": c.FNumber, "pixel_area": c.PixelArea, "temperature": c.Temperature,
		"temperature_ref": c.TemperatureRef, "temperature_doubling": c.TemperatureDoubling,
		"wavelength": c.Wavelength, "exposure": c.Exposure, "exposure_min": c.ExposureMin,
		"exposure_max": c.ExposureMax, "k": c.K, "k_min": c.KMin, "k_max": c.KMax,
		"black_offset": c.BlackOffset, "black_offset_min": c.BlackOffsetMin,
		"black_offset_max": c.BlackOffsetMax, "dark_current_ref": c.DarkCurrentRef,
		"dark_signal_offset": c.DarkSignalOffset, "dark_noise_variance_offset": c.DarkNoiseVarianceOffset,
		"dsnu_stddev": c.DSNUStdDev, "prnu_stddev": c.PRNUStdDev,
	} {
		if err := finite(field, v); err != nil {
			return err
		}
	}

	switch {
	case c.Width <= 0:
		return invalid("width", c.Width, "must be > 0")
	case c.Height <= 0:
		return invalid("height", c.Height, "must be > 0")
	case c.PixelArea <= 0:
		return invalid("pixel_area", c.PixelArea, "must be > 0")
	case c.FNumber <= 0:
		return invalid("f_number", c.FNumber, "must be > 0")
	case c.BitDepth < 1 || c.BitDepth > 32:
		return invalid("bit_depth", c.BitDepth, "must be in [1,32]")
	case c.TemperatureDoubling == 0:
		return invalid("temperature_doubling", c.TemperatureDoubling, "must not be 0")
	case c.Wavelength <= 0:
		return invalid("wavelength", c.Wavelength, "must be > 0")
	case c.Exposure < 0:
		return invalid("exposure", c.Exposure, "must be >= 0")
	case c.ExposureMin < 0:
		return invalid("exposure_min", c.ExposureMin, "must be >= 0")
	case c.ExposureMin > c.ExposureMax:
		return invalid("exposure_min", c.ExposureMin, fmt.Sprintf("must be <= exposure_max (%v)", c.ExposureMax))
	case c.KSteps < 1:
		return invalid("k_steps", c.KSteps, "must be >= 1")
	case c.KMin > c.KMax:
		return invalid("k_min", c.KMin, fmt.Sprintf("must be <= k_max (%v)", c.KMax))
	case c.KMin <= 0:
		return invalid("k_min", c.KMin, "must be > 0")
	case c.BlackOffsetSteps < 1:
		return invalid("black_offset_steps", c.BlackOffsetSteps, "must be >= 1")
	case c.BlackOffsetMin > c.BlackOffsetMax:
		return invalid("black_offset_min", c.BlackOffsetMin, fmt.Sprintf("must be <= black_offset_max (%v)", c.BlackOffsetMax))
	case c.DarkCurrentRef < 0:
		return invalid("dark_current_ref", c.DarkCurrentRef, "must be >= 0")
	case c.DarkNoiseVarianceOffset < 0:
		return invalid("dark_noise_variance_offset", c.DarkNoiseVarianceOffset, "must be >= 0")
	case c.DSNUStdDev < 0:
		return invalid("dsnu_stddev", c.DSNUStdDev, "must be >= 0")
	case c.PRNUStdDev < 0:
		return invalid("prnu_stddev", c.PRNUStdDev, "must be >= 0")
	}

	if c.QuantumEfficiency != nil {
		if qe := *c.QuantumEfficiency; math.IsNaN(qe) || qe < 0 || qe > 1 {
			return invalid("quantum_efficiency", qe, "must be in [0,1]")
		}
	}

	return nil
}
