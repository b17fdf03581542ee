// Package config holds the run configuration for the ripeness pipeline.
//
// Defaults process ./bananastest into ./resultados at 800x600. Load
// layers an optional .env file and BANANA_* environment variables on top of
// the defaults; the CLI applies its flags last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Detector backend names accepted in DetectorConfig.Backend.
const (
	BackendONNX      = "onnx"
	BackendRemote    = "remote"
	BackendColorBlob = "colorblob"
)

const (
	DefaultInputDir      = "bananastest"
	DefaultOutputDir     = "resultados"
	DefaultModelPath     = "models/banana.onnx"
	DefaultMinConfidence = 0.5
	DefaultCanvasWidth   = 800
	DefaultCanvasHeight  = 600
	DefaultJPEGQuality   = 95
	DefaultEnvFile       = ".env"
)

// DetectorConfig selects and tunes the detection backend.
type DetectorConfig struct {
	// Backend is one of BackendONNX, BackendRemote or BackendColorBlob.
	Backend string

	// ModelPath is the ONNX export of the banana detector.
	ModelPath string

	// RuntimeLibrary is the path of the ONNX Runtime shared library.
	// Empty means the platform default next to the binary.
	RuntimeLibrary string

	// ScoreThreshold is the candidate threshold applied before NMS.
	ScoreThreshold float64

	// IOUThreshold is the overlap above which NMS suppresses a box.
	IOUThreshold float64

	// RemoteURL is the websocket endpoint of the remote backend.
	RemoteURL string

	// Timeout bounds a single remote inference round trip.
	Timeout time.Duration
}

// Config is passed explicitly to every constructor that needs it.
type Config struct {
	InputDir  string
	OutputDir string

	Detector DetectorConfig

	// MinConfidence is the threshold a banana detection must reach.
	MinConfidence float64

	// BananaClassID is the model class that denotes a banana.
	BananaClassID int

	CanvasWidth  int
	CanvasHeight int

	// Workers is the number of images processed concurrently.
	Workers int

	// ContinueOnError isolates per-file failures instead of halting the batch.
	ContinueOnError bool

	JPEGQuality int

	LogLevel string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		InputDir:  DefaultInputDir,
		OutputDir: DefaultOutputDir,
		Detector: DetectorConfig{
			Backend:        BackendONNX,
			ModelPath:      DefaultModelPath,
			ScoreThreshold: 0.25,
			IOUThreshold:   0.7,
			RemoteURL:      "ws://localhost:8080/ws",
			Timeout:        30 * time.Second,
		},
		MinConfidence: DefaultMinConfidence,
		BananaClassID: 0,
		CanvasWidth:   DefaultCanvasWidth,
		CanvasHeight:  DefaultCanvasHeight,
		Workers:       1,
		JPEGQuality:   DefaultJPEGQuality,
		LogLevel:      "info",
	}
}

// Load returns Default overlaid with the values found in envFile (if it
// exists) and in the process environment. Variables already set in the
// environment take precedence over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	cfg := Default()
	var err error

	cfg.InputDir = getEnvOrDefault("BANANA_INPUT_DIR", cfg.InputDir)
	cfg.OutputDir = getEnvOrDefault("BANANA_OUTPUT_DIR", cfg.OutputDir)
	cfg.Detector.Backend = getEnvOrDefault("BANANA_DETECTOR", cfg.Detector.Backend)
	cfg.Detector.ModelPath = getEnvOrDefault("BANANA_MODEL_PATH", cfg.Detector.ModelPath)
	cfg.Detector.RuntimeLibrary = getEnvOrDefault("BANANA_ORT_LIB", cfg.Detector.RuntimeLibrary)
	cfg.Detector.RemoteURL = getEnvOrDefault("BANANA_REMOTE_URL", cfg.Detector.RemoteURL)
	cfg.LogLevel = getEnvOrDefault("BANANA_LOG_LEVEL", cfg.LogLevel)

	if cfg.Detector.Timeout, err = getEnvAsDuration("BANANA_REMOTE_TIMEOUT", cfg.Detector.Timeout); err != nil {
		return Config{}, err
	}
	if cfg.MinConfidence, err = getEnvAsFloat("BANANA_MIN_CONFIDENCE", cfg.MinConfidence); err != nil {
		return Config{}, err
	}
	if cfg.BananaClassID, err = getEnvAsInt("BANANA_CLASS_ID", cfg.BananaClassID); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = getEnvAsInt("BANANA_WORKERS", cfg.Workers); err != nil {
		return Config{}, err
	}
	if cfg.JPEGQuality, err = getEnvAsInt("BANANA_JPEG_QUALITY", cfg.JPEGQuality); err != nil {
		return Config{}, err
	}
	if cfg.ContinueOnError, err = getEnvAsBool("BANANA_CONTINUE_ON_ERROR", cfg.ContinueOnError); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input directory is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be between 0 and 1, got %g", c.MinConfidence)
	}
	if c.CanvasWidth < 1 || c.CanvasHeight < 1 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.CanvasWidth, c.CanvasHeight)
	}
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("workers must be between 1 and 64, got %d", c.Workers)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG quality must be between 1 and 100, got %d", c.JPEGQuality)
	}

	switch c.Detector.Backend {
	case BackendONNX:
		if c.Detector.ModelPath == "" {
			return fmt.Errorf("model path is required for the %s backend", BackendONNX)
		}
	case BackendRemote:
		if c.Detector.RemoteURL == "" {
			return fmt.Errorf("remote URL is required for the %s backend", BackendRemote)
		}
	case BackendColorBlob:
	default:
		return fmt.Errorf("unknown detector backend %q", c.Detector.Backend)
	}

	if c.Detector.IOUThreshold <= 0 || c.Detector.IOUThreshold > 1 {
		return fmt.Errorf("IoU threshold must be in (0,1], got %g", c.Detector.IOUThreshold)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, valueStr)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, valueStr)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, valueStr)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, valueStr)
	}
	return value, nil
}
