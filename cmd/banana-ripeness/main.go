package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ironsheep/banana-ripeness/internal/annotate"
	"github.com/ironsheep/banana-ripeness/internal/batch"
	"github.com/ironsheep/banana-ripeness/internal/config"
	"github.com/ironsheep/banana-ripeness/internal/detection"
	"github.com/ironsheep/banana-ripeness/internal/logging"
	"github.com/ironsheep/banana-ripeness/internal/ripeness"
	"github.com/ironsheep/banana-ripeness/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	envFile := os.Getenv("BANANA_ENV_FILE")
	if envFile == "" {
		envFile = config.DefaultEnvFile
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(&cfg).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// newApp builds the command line. Flag defaults come from cfg and parsed
// values are written back into it. Flags are global, so they go before the
// command: banana-ripeness --input photos process.
func newApp(cfg *config.Config) *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "banana-ripeness %s\n", Version)
		fmt.Fprintf(c.App.Writer, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(c.App.Writer, "  Git commit: %s\n", GitCommit)
	}

	process := func(c *cli.Context) error {
		return runProcess(c.Context, *cfg)
	}

	return &cli.App{
		Name:            "banana-ripeness",
		Usage:           "estimate banana ripeness from peel color",
		Version:         Version,
		HideHelpCommand: true,
		Flags:           pipelineFlags(cfg),
		Action:          process,
		Commands: []*cli.Command{
			{
				Name:   "process",
				Usage:  "annotate every image in the input folder (default)",
				Action: process,
			},
			{
				Name:  "serve",
				Usage: "run the MCP tool server on stdin/stdout",
				Action: func(c *cli.Context) error {
					return runServe(c.Context, *cfg)
				},
			},
		},
	}
}

// pipelineFlags returns the flags bound to cfg.
func pipelineFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "folder of images to process",
			Value:       cfg.InputDir,
			Destination: &cfg.InputDir,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "folder for annotated images",
			Value:       cfg.OutputDir,
			Destination: &cfg.OutputDir,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "detector backend: onnx, remote or colorblob",
			Value:       cfg.Detector.Backend,
			Destination: &cfg.Detector.Backend,
		},
		&cli.StringFlag{
			Name:        "model",
			Usage:       "YOLOv8 ONNX model `FILE`",
			Value:       cfg.Detector.ModelPath,
			Destination: &cfg.Detector.ModelPath,
		},
		&cli.StringFlag{
			Name:        "ort-lib",
			Usage:       "ONNX Runtime shared library `FILE`",
			Value:       cfg.Detector.RuntimeLibrary,
			Destination: &cfg.Detector.RuntimeLibrary,
		},
		&cli.StringFlag{
			Name:        "remote-url",
			Usage:       "websocket URL of the remote detector",
			Value:       cfg.Detector.RemoteURL,
			Destination: &cfg.Detector.RemoteURL,
		},
		&cli.Float64Flag{
			Name:        "min-confidence",
			Usage:       "minimum banana detection confidence",
			Value:       cfg.MinConfidence,
			Destination: &cfg.MinConfidence,
		},
		&cli.IntFlag{
			Name:        "workers",
			Aliases:     []string{"j"},
			Usage:       "images processed in parallel",
			Value:       cfg.Workers,
			Destination: &cfg.Workers,
		},
		&cli.BoolFlag{
			Name:        "continue-on-error",
			Usage:       "keep going when an image fails",
			Value:       cfg.ContinueOnError,
			Destination: &cfg.ContinueOnError,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "debug, info, warn or error",
			Value:       cfg.LogLevel,
			Destination: &cfg.LogLevel,
		},
	}
}

// setup validates cfg and opens the logger and detector. The caller must
// close the detector.
func setup(cfg config.Config) (*logrus.Logger, detection.Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	det, err := detection.Open(cfg.Detector, cfg.Workers, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s detector: %w", cfg.Detector.Backend, err)
	}
	return logger, det, nil
}

func runProcess(ctx context.Context, cfg config.Config) error {
	logger, det, err := setup(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := det.Close(); err != nil {
			logger.WithError(err).Warn("failed to close detector")
		}
	}()

	estimator := ripeness.NewEstimator(det,
		ripeness.WithMinConfidence(cfg.MinConfidence),
		ripeness.WithClassID(cfg.BananaClassID),
	)
	driver := batch.NewDriver(cfg, estimator, annotate.New(0), logger, color.Output)

	summary, err := driver.ProcessFolder(ctx, cfg.InputDir, cfg.OutputDir)
	if summary != nil {
		logger.WithFields(logrus.Fields{
			"total":     summary.Total,
			"annotated": summary.Annotated,
			"skipped":   summary.Skipped,
			"failed":    summary.Failed,
		}).Info("done")
	}
	return err
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger, det, err := setup(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := det.Close(); err != nil {
			logger.WithError(err).Warn("failed to close detector")
		}
	}()

	logger.WithFields(logrus.Fields{
		"version": Version,
		"commit":  GitCommit,
		"backend": cfg.Detector.Backend,
	}).Debug("starting MCP server")

	return server.New(cfg, det, logger, Version).Run(ctx)
}
