package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/abworrall/emva1288/pkg/emath"
	"github.com/abworrall/emva1288/pkg/emva"
	"github.com/abworrall/emva1288/pkg/frameio"
	"github.com/abworrall/emva1288/pkg/logging"
)

var (
	Log *slog.Logger

	fVerbosity  int
	fLogFormat  string
	fConfigFile string

	fRadiance float64
	fFill     float64
	fExposure time.Duration
	fGain     float64
	fOffset   float64
	fFrames   int
	fWorkers  int

	fOutputDir string
	fFormat    string
	fPRNUIn    string
	fPRNUOut   string
	fMaps      bool
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fLogFormat, "logformat", "text", "log output format, text or json")
	flag.StringVar(&fConfigFile, "config", "", "sensor config yaml file (default: built in sensor)")

	flag.Float64Var(&fRadiance, "radiance", -1, "scene radiance in W/(sr*cm^2); negative means use -fill")
	flag.Float64Var(&fFill, "fill", 0.5, "pick the radiance that gives this fraction of MaxDN")
	flag.DurationVar(&fExposure, "exposure", 0, "exposure time, e.g. 1ms (default: from config)")
	flag.Float64Var(&fGain, "gain", -1, "system gain K in DN/e-, snapped to the sensor's steps (default: from config)")
	flag.Float64Var(&fOffset, "offset", -1, "black offset in DN, snapped to the sensor's steps (default: from config)")
	flag.IntVar(&fFrames, "frames", 1, "how many frames to grab")
	flag.IntVar(&fWorkers, "workers", 0, "goroutines per frame (default: GOMAXPROCS)")

	flag.StringVar(&fOutputDir, "o", "", "write each frame into this dir")
	flag.StringVar(&fFormat, "format", "tif", "output image format, tif or png")
	flag.StringVar(&fPRNUIn, "prnu", "", "load the PRNU map from this .hdr file")
	flag.StringVar(&fPRNUOut, "saveprnu", "", "save the PRNU map to this .hdr file")
	flag.BoolVar(&fMaps, "maps", false, "render the DSNU and PRNU maps as PNGs into the -o dir")
}

func main() {
	flag.Parse()
	Log = logging.New(os.Stderr, fVerbosity, fLogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		Log.Error("emva-grab failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := emva.NewConfig()
	if fConfigFile != "" {
		var err error
		if cfg, err = emva.LoadConfig(fConfigFile); err != nil {
			return err
		}
	}

	opts := []emva.SensorOption{emva.WithLogger(Log)}
	if fWorkers > 0 {
		opts = append(opts, emva.WithWorkers(fWorkers))
	}
	if fPRNUIn != "" {
		prnu, err := frameio.ReadHDR(fPRNUIn)
		if err != nil {
			return err
		}
		Log.Info("loaded PRNU map", "file", fPRNUIn, "map", prnu.Stats())
		opts = append(opts, emva.WithPRNU(prnu))
	}

	s, err := emva.NewSensor(cfg, opts...)
	if err != nil {
		return err
	}

	// Override the config file with command line args, if relevant
	if fExposure > 0 {
		s.SetExposure(float64(fExposure.Nanoseconds()))
	}
	if fGain >= 0 {
		s.SetGain(fGain)
	}
	if fOffset >= 0 {
		s.SetBlackOffset(fOffset)
	}

	if fVerbosity > 0 {
		fmt.Printf("Final configuration:-\n\n%s\n", s.Config().AsYaml())
	}

	radiance := fRadiance
	if radiance < 0 {
		radiance = s.RequiredRadiance(emva.AtMean(fFill * float64(s.MaxDN())))
	}

	fmt.Printf("%s\n", s)
	fmt.Printf("radiance %.6g W/(sr*cm^2), %.1f photons/pixel\n", radiance, s.PhotonsFor(radiance))
	fmt.Printf("model: mean=%.3f DN, var=%.3f DN^2, SNR=%.2f\n",
		s.MeanOutput(radiance), s.VarianceOutput(radiance), s.SNR(radiance))

	if fOutputDir != "" {
		if err := os.MkdirAll(fOutputDir, 0o755); err != nil {
			return fmt.Errorf("output dir '%s': %w", fOutputDir, err)
		}
	}

	if fPRNUOut != "" {
		if err := frameio.WriteHDR(s.PRNU(), fPRNUOut); err != nil {
			return err
		}
		Log.Info("saved PRNU map", "file", fPRNUOut)
	}
	if fMaps {
		if err := writeMaps(s); err != nil {
			return err
		}
	}

	var last *emva.Frame
	for i := 0; i < fFrames; i++ {
		f, err := s.Grab(ctx, radiance)
		if err != nil {
			return err
		}
		fmt.Printf("frame %03d: %s\n", i, f.Stats())

		if fOutputDir != "" {
			fn := filepath.Join(fOutputDir, fmt.Sprintf("frame-%03d.%s", i, fFormat))
			if err := frameio.WriteFrame(f, fn); err != nil {
				return err
			}
			Log.Debug("frame written", "file", fn)
		}
		last = f
	}

	if last != nil {
		h := last.Histogram()
		fmt.Printf("last frame DN quantiles: p1=%d p50=%d p99=%d max=%d\n",
			h.ValueAtQuantile(1), h.ValueAtQuantile(50), h.ValueAtQuantile(99), h.Max())
	}

	return nil
}

func writeMaps(s *emva.Sensor) error {
	dir := fOutputDir
	if dir == "" {
		dir = "."
	}
	for name, fg := range map[string]emath.FloatGrid{"dsnu": s.DSNU(), "prnu": s.PRNU()} {
		fn := filepath.Join(dir, name+".png")
		if err := frameio.WritePNG(frameio.MapImage(fg, name), fn); err != nil {
			return err
		}
		Log.Info("map rendered", "file", fn, "map", fg.Stats())
	}
	return nil
}
