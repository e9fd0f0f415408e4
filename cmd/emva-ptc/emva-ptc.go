package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/abworrall/emva1288/pkg/emva"
	"github.com/abworrall/emva1288/pkg/frameio"
	"github.com/abworrall/emva1288/pkg/logging"
)

var (
	Log *slog.Logger

	fVerbosity  int
	fLogFormat  string
	fConfigFile string

	fFill     float64
	fSteps    int
	fMinExp   time.Duration
	fMaxExp   time.Duration
	fGain     float64
	fPlotFile string
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fLogFormat, "logformat", "text", "log output format, text or json")
	flag.StringVar(&fConfigFile, "config", "", "sensor config yaml file (default: built in sensor)")

	flag.Float64Var(&fFill, "fill", 0.9, "the radiance is picked to reach this fraction of MaxDN at the longest exposure")
	flag.IntVar(&fSteps, "steps", 20, "number of exposure steps")
	flag.DurationVar(&fMinExp, "minexp", 0, "shortest exposure (default: sensor minimum)")
	flag.DurationVar(&fMaxExp, "maxexp", 0, "longest exposure (default: 100 x the shortest)")
	flag.Float64Var(&fGain, "gain", -1, "system gain K in DN/e- (default: from config)")
	flag.StringVar(&fPlotFile, "plot", "", "draw the curve into this PNG file")
}

func main() {
	flag.Parse()
	Log = logging.New(os.Stderr, fVerbosity, fLogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		Log.Error("emva-ptc failed", "err", err)
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

	s, err := emva.NewSensor(cfg, emva.WithLogger(Log))
	if err != nil {
		return err
	}
	if fGain >= 0 {
		s.SetGain(fGain)
	}

	minExp := s.ExposureMin()
	if fMinExp > 0 {
		minExp = float64(fMinExp.Nanoseconds())
	}
	maxExp := 100 * minExp
	if fMaxExp > 0 {
		maxExp = float64(fMaxExp.Nanoseconds())
	}

	radiance := s.RequiredRadiance(emva.AtMean(fFill*float64(s.MaxDN())), emva.AtExposure(maxExp))
	fmt.Printf("%s\n", s)
	fmt.Printf("sweeping %d exposures %.0fns..%.0fns at radiance %.6g W/(sr*cm^2)\n", fSteps, minExp, maxExp, radiance)

	start := time.Now()
	ptc, err := s.PhotonTransfer(ctx, radiance, emva.SweepSteps(minExp, maxExp, fSteps))
	if err != nil {
		return err
	}
	Log.Info("sweep done", "points", len(ptc.Points), "elapsed", time.Since(start))

	for _, p := range ptc.Points {
		fmt.Printf("%s\n", p)
	}

	if k, err := ptc.FitGain(); err != nil {
		Log.Warn("no gain fit", "err", err)
	} else {
		fmt.Printf("fitted K = %.5f DN/e-, configured K = %.5f DN/e- (%+.2f%%)\n", k, s.Gain(), 100*(k-s.Gain())/s.Gain())
	}

	if fPlotFile != "" {
		if err := frameio.WritePNG(frameio.PTCImage(ptc), fPlotFile); err != nil {
			return err
		}
		Log.Info("plot written", "file", fPlotFile)
	}

	return nil
}
