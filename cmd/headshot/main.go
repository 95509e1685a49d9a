package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/esimov/headshot"
	"github.com/esimov/headshot/backend"
	"github.com/esimov/headshot/logger"
	"github.com/esimov/headshot/utils"
	"github.com/pkg/errors"
)

const HelpBanner = `
┬ ┬┌─┐┌─┐┌┬┐┌─┐┬ ┬┌─┐┌┬┐
├─┤├┤ ├─┤ ││└─┐├─┤│ │ │
┴ ┴└─┘┴ ┴─┴┘└─┘┴ ┴└─┘ ┴

Face to skin compositing tool.
    Version: %s

`

// Version indicates the current build version.
var Version string

// thresholds is a comma separated list of the three detector stage thresholds.
type thresholds [3]float32

func (t *thresholds) String() string {
	vals := make([]string, len(t))
	for i, v := range t {
		vals[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(vals, ",")
}

func (t *thresholds) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != len(t) {
		return errors.Errorf("expected %d comma separated values, got %d", len(t), len(parts))
	}
	var out thresholds
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return errors.Wrapf(err, "threshold %d", i+1)
		}
		out[i] = float32(v)
	}
	*t = out
	return nil
}

func main() {
	log.SetFlags(0)

	cfg := headshot.DefaultConfig()
	stages := thresholds(cfg.Params.Thresholds)

	var (
		detector = string(cfg.Backend)
		minSize  = float64(cfg.Params.MinSize)
		factor   = float64(cfg.Params.Factor)
	)

	flags := flag.NewFlagSet("headshot", flag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flags.PrintDefaults()
	}
	flags.StringVar(&cfg.PhotoPath, "in", cfg.PhotoPath, "Photo")
	flags.StringVar(&cfg.TemplatePath, "template", cfg.TemplatePath, "Skin template")
	flags.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "Destination")
	flags.StringVar(&detector, "backend", detector, "Face detector: tensorflow or cascade")
	flags.StringVar(&cfg.ModelPath, "model", "", "Detection graph (defaults to the embedded one)")
	flags.StringVar(&cfg.CascadePath, "cc", "", "Cascade classifier, used with -backend=cascade")
	flags.Float64Var(&minSize, "min", minSize, "Minimum face size in pixels")
	flags.Float64Var(&factor, "factor", factor, "Image pyramid scale factor")
	flags.Var(&stages, "thresholds", "Detector stage thresholds")
	verbose := flags.Bool("v", false, "Verbose output")
	logFile := flags.String("log", "", "Log file")
	flags.Parse(os.Args[1:])

	cfg.Backend = headshot.Backend(detector)
	cfg.Params = headshot.Params{
		MinSize:    float32(minSize),
		Thresholds: stages,
		Factor:     float32(factor),
	}

	if err := run(cfg, *verbose, *logFile); err != nil {
		log.Fatalf("%s%s",
			utils.DecorateText("\nError generating the skin: ", utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", err), utils.DefaultMessage),
		)
	}
}

func run(cfg headshot.Config, verbose bool, logFile string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ HEADSHOT", utils.StatusMessage),
		utils.DecorateText("is looking for a face...", utils.DefaultMessage))
	spinner := utils.NewSpinner(spinnerText, time.Millisecond*200)
	spinner.StopMsg = fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ HEADSHOT", utils.StatusMessage),
		utils.DecorateText("is looking for a face... ✔", utils.DefaultMessage))

	// Capture CTRL-C signal and restore the cursor visibility back.
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		spinner.RestoreCursor()
		os.Exit(1)
	}()

	proc := &headshot.Processor{
		NewDetector: backend.New,
		Logger:      logger.New(logger.Options{Verbose: verbose, File: logFile}),
		Spinner:     spinner,
	}

	now := time.Now()
	if err := proc.Execute(cfg); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nThe skin has been saved as: %s %s\n",
		utils.DecorateText(filepath.Base(cfg.OutputPath), utils.SuccessMessage),
		utils.DefaultColor,
	)
	fmt.Fprintf(os.Stderr, "Execution time: %s\n",
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))

	return nil
}
