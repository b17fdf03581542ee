package detection

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
)

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// initRuntime loads the ONNX Runtime shared library once per process.
func initRuntime(library string) error {
	runtimeOnce.Do(func() {
		if library != "" {
			ort.SetSharedLibraryPath(library)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			runtimeErr = fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
		}
	})
	return runtimeErr
}

// ONNXOptions configures an ONNXDetector.
type ONNXOptions struct {
	// ModelPath is the YOLOv8 detection model exported to ONNX.
	ModelPath string

	// RuntimeLibrary is the ONNX Runtime shared library. Empty uses the
	// library's default lookup.
	RuntimeLibrary string

	// Sessions is the number of independent sessions, i.e. how many images
	// can be inferred at the same time. Values below 1 mean 1.
	Sessions int

	Decode DecodeOptions

	Logger logrus.FieldLogger
}

type onnxSession struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (s *onnxSession) destroy() error {
	var err error
	if s.session != nil {
		err = multierr.Append(err, s.session.Destroy())
	}
	if s.input != nil {
		err = multierr.Append(err, s.input.Destroy())
	}
	if s.output != nil {
		err = multierr.Append(err, s.output.Destroy())
	}
	return err
}

// ONNXDetector runs a YOLOv8 model with ONNX Runtime.
//
// The model must take a single [1,3,S,S] float input and produce a
// [1,4+nc,N] float output; S, nc and N are read from the model file.
type ONNXDetector struct {
	opts       ONNXOptions
	inputSize  int
	numClasses int
	numBoxes   int

	pool     chan *onnxSession
	sessions []*onnxSession
}

// NewONNXDetector loads the model and creates the session pool. A failure
// here is fatal for a run: nothing can be detected without the model.
func NewONNXDetector(opts ONNXOptions) (*ONNXDetector, error) {
	if opts.Sessions < 1 {
		opts.Sessions = 1
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	if err := initRuntime(opts.RuntimeLibrary); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", opts.ModelPath, err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("model %s: expected 1 input and at least 1 output, got %d and %d",
			opts.ModelPath, len(inputs), len(outputs))
	}

	inDims := inputs[0].Dimensions
	if len(inDims) != 4 || inDims[1] != 3 || inDims[2] <= 0 || inDims[2] != inDims[3] {
		return nil, fmt.Errorf("model %s: unsupported input shape %v", opts.ModelPath, inDims)
	}
	outDims := outputs[0].Dimensions
	if len(outDims) != 3 || outDims[1] <= 4 || outDims[2] <= 0 {
		return nil, fmt.Errorf("model %s: unsupported output shape %v", opts.ModelPath, outDims)
	}

	d := &ONNXDetector{
		opts:       opts,
		inputSize:  int(inDims[2]),
		numClasses: int(outDims[1]) - 4,
		numBoxes:   int(outDims[2]),
		pool:       make(chan *onnxSession, opts.Sessions),
	}

	for i := 0; i < opts.Sessions; i++ {
		s, err := d.newSession(inputs[0].Name, outputs[0].Name)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to create session %d: %w", i, err), d.Close())
		}
		d.sessions = append(d.sessions, s)
		d.pool <- s
	}

	opts.Logger.WithFields(logrus.Fields{
		"model":    opts.ModelPath,
		"input":    d.inputSize,
		"classes":  d.numClasses,
		"sessions": opts.Sessions,
	}).Debug("ONNX detector ready")

	return d, nil
}

func (d *ONNXDetector) newSession(inputName, outputName string) (*onnxSession, error) {
	s := &onnxSession{}
	var err error

	size := int64(d.inputSize)
	s.input, err = ort.NewTensor(ort.NewShape(1, 3, size, size), make([]float32, 3*size*size))
	if err != nil {
		return nil, err
	}

	s.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+d.numClasses), int64(d.numBoxes)))
	if err != nil {
		return nil, multierr.Append(err, s.destroy())
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, multierr.Append(err, s.destroy())
	}
	defer options.Destroy()

	s.session, err = ort.NewAdvancedSession(
		d.opts.ModelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.ArbitraryTensor{s.input},
		[]ort.ArbitraryTensor{s.output},
		options,
	)
	if err != nil {
		return nil, multierr.Append(err, s.destroy())
	}

	return s, nil
}

// Detect letterboxes img to the model input, runs the model and decodes the
// output back to img coordinates.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	var s *onnxSession
	select {
	case s = <-d.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { d.pool <- s }()

	b := img.Bounds()
	lb := NewLetterbox(b.Dx(), b.Dy(), d.inputSize)
	fillBlob(lb.Apply(img), s.input.GetData())

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return DecodeYOLO(s.output.GetData(), d.numClasses, d.numBoxes, lb, d.opts.Decode), nil
}

// Close releases every session. The detector must not be used afterwards.
func (d *ONNXDetector) Close() error {
	var err error
	for _, s := range d.sessions {
		err = multierr.Append(err, s.destroy())
	}
	d.sessions = nil
	return err
}
