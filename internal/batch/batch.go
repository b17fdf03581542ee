// Package batch runs the ripeness pipeline over a folder of images.
//
// Each supported image in the input folder is loaded onto a fixed-size
// canvas, estimated, annotated when a banana was found, and written to the
// output folder under the same file name.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/banana-ripeness/internal/annotate"
	"github.com/ironsheep/banana-ripeness/internal/config"
	bimg "github.com/ironsheep/banana-ripeness/internal/imaging"
	"github.com/ironsheep/banana-ripeness/internal/ripeness"
)

// Failure codes carried by FileError.
const (
	CodeLoadFailed   = "LOAD_FAILED"
	CodeDetectFailed = "DETECT_FAILED"
	CodeWriteFailed  = "WRITE_FAILED"
)

// FileError is a failure to process one file.
type FileError struct {
	Code string
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.File, e.Code, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// FileResult is the outcome for one input file.
type FileResult struct {
	Name       string           `json:"name"`
	OutputPath string           `json:"output_path,omitempty"`
	Result     *ripeness.Result `json:"result,omitempty"`
	Err        error            `json:"-"`
}

// Summary describes a finished batch. Results are in file name order and
// only include files that were attempted.
type Summary struct {
	Total     int          `json:"total"`
	Annotated int          `json:"annotated"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Results   []FileResult `json:"results"`
}

// Driver processes folders. It is safe to reuse across calls but a single
// ProcessFolder call should not race another writing to the same output.
type Driver struct {
	cfg       config.Config
	estimator *ripeness.Estimator
	annotator *annotate.Annotator
	logger    logrus.FieldLogger

	mu       sync.Mutex
	progress io.Writer
	saved    *color.Color
	notice   *color.Color
}

// NewDriver returns a Driver. Progress lines go to progress; a nil writer
// discards them.
func NewDriver(cfg config.Config, estimator *ripeness.Estimator, annotator *annotate.Annotator, logger logrus.FieldLogger, progress io.Writer) *Driver {
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if annotator == nil {
		annotator = annotate.New(0)
	}
	return &Driver{
		cfg:       cfg,
		estimator: estimator,
		annotator: annotator,
		logger:    logger,
		progress:  progress,
		saved:     color.New(color.FgGreen),
		notice:    color.New(color.FgYellow),
	}
}

// ProcessFolder processes every supported image directly under inputDir and
// writes the results to outputDir, which is created if needed.
//
// Unless the configuration sets ContinueOnError, the first failing file
// stops the batch and its *FileError is returned. Otherwise every file is
// attempted and the failures are returned combined.
func (d *Driver) ProcessFolder(ctx context.Context, inputDir, outputDir string) (*Summary, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	names, err := bimg.ListImages(inputDir)
	if err != nil {
		return nil, err
	}

	workers := d.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	d.logger.WithFields(logrus.Fields{
		"input":   inputDir,
		"output":  outputDir,
		"images":  len(names),
		"workers": workers,
	}).Info("processing folder")

	results := make([]FileResult, len(names))
	attempted := make([]bool, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, name := range names {
		if gctx.Err() != nil {
			break
		}
		i, name := i, name
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			attempted[i] = true
			results[i] = d.processFile(gctx, name, inputDir, outputDir)
			if results[i].Err != nil && !d.cfg.ContinueOnError {
				return results[i].Err
			}
			return nil
		})
	}
	waitErr := g.Wait()

	summary := &Summary{Total: len(names)}
	var combined error
	for i := range results {
		if !attempted[i] {
			continue
		}
		r := results[i]
		summary.Results = append(summary.Results, r)
		switch {
		case r.Err != nil:
			summary.Failed++
			combined = multierr.Append(combined, r.Err)
		case r.Result != nil:
			summary.Annotated++
		default:
			summary.Skipped++
		}
	}

	d.logger.WithFields(logrus.Fields{
		"annotated": summary.Annotated,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}).Info("folder processed")

	if !d.cfg.ContinueOnError {
		if waitErr == nil {
			waitErr = ctx.Err()
		}
		return summary, waitErr
	}
	if combined == nil {
		combined = ctx.Err()
	}
	return summary, combined
}

// processFile runs the pipeline for one file. The canvas it loads is owned
// by this call alone.
func (d *Driver) processFile(ctx context.Context, name, inputDir, outputDir string) FileResult {
	fr := FileResult{Name: name}
	log := d.logger.WithField("file", name)

	canvas, err := bimg.LoadCanvas(filepath.Join(inputDir, name), d.cfg.CanvasWidth, d.cfg.CanvasHeight)
	if err != nil {
		log.WithError(err).Error("failed to load image")
		fr.Err = &FileError{Code: CodeLoadFailed, File: name, Err: err}
		return fr
	}

	res, err := d.estimator.Estimate(ctx, canvas)
	if err != nil {
		log.WithError(err).Error("failed to estimate ripeness")
		fr.Err = &FileError{Code: CodeDetectFailed, File: name, Err: err}
		return fr
	}

	if res != nil {
		d.annotator.Annotate(canvas, res.Percentage, res.MeanHue, res.Box)
		log.WithFields(logrus.Fields{
			"confidence": res.Confidence,
			"hue":        res.MeanHue,
			"percentage": res.Percentage,
		}).Debug("banana found")
	} else {
		d.printf(d.notice, "No banana detected with the minimum confidence: %s\n", name)
	}

	out := filepath.Join(outputDir, name)
	if err := bimg.Save(out, canvas, d.cfg.JPEGQuality); err != nil {
		log.WithError(err).Error("failed to write image")
		fr.Err = &FileError{Code: CodeWriteFailed, File: name, Err: err}
		return fr
	}

	fr.OutputPath = out
	fr.Result = res
	d.printf(d.saved, "Image saved to: %s\n", out)
	return fr
}

func (d *Driver) printf(c *color.Color, format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = c.Fprintf(d.progress, format, args...)
}

// AsFileErrors returns every *FileError contained in err.
func AsFileErrors(err error) []*FileError {
	var out []*FileError
	for _, e := range multierr.Errors(err) {
		var fe *FileError
		if errors.As(e, &fe) {
			out = append(out, fe)
		}
	}
	return out
}
