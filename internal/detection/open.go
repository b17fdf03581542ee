package detection

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/banana-ripeness/internal/config"
)

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown detector backend")

// Open builds the detector selected by cfg. workers is the number of callers
// that may call Detect concurrently; the ONNX backend sizes its session pool
// to match.
func Open(cfg config.DetectorConfig, workers int, logger logrus.FieldLogger) (Detector, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("backend", cfg.Backend)

	switch cfg.Backend {
	case config.BackendONNX:
		d, err := NewONNXDetector(ONNXOptions{
			ModelPath:      cfg.ModelPath,
			RuntimeLibrary: cfg.RuntimeLibrary,
			Sessions:       workers,
			Decode: DecodeOptions{
				ScoreThreshold: cfg.ScoreThreshold,
				IOUThreshold:   cfg.IOUThreshold,
				MaxDetections:  DefaultDecodeOptions().MaxDetections,
			},
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.BackendRemote:
		d, err := NewRemoteDetector(RemoteOptions{
			URL:     cfg.RemoteURL,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.BackendColorBlob:
		return NewColorBlobDetector(DefaultColorBlobOptions()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
