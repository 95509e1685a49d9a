package headshot

import (
	"image"
	"io"
	"os"

	"github.com/esimov/headshot/imop"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Processor options
type Processor struct {
	// Detector locates the face candidates in the photo.
	Detector Detector
	// NewDetector builds the detector of the configured backend when Execute
	// runs without a Detector. A detector built this way implementing io.Closer
	// is closed once the run completes.
	NewDetector func(cfg Config) (Detector, error)
	// Params are passed to the detector on every run. The zero value means DefaultParams.
	Params Params
	// Logger receives the pipeline trace. Nothing is logged when nil.
	Logger *logrus.Logger
	// Spinner, when set, is started for the duration of Execute.
	Spinner Spinner
}

// Spinner is the progress indicator shown while a run is in progress.
type Spinner interface {
	Start()
	Stop()
}

// Composite detects the face in photo and pastes its thumbnail into a copy of template.
func (p *Processor) Composite(photo, template image.Image) (*image.NRGBA, error) {
	return p.composite(p.runLogger(), p.Detector, p.params(), photo, template)
}

// Process decodes the photo and the template, runs the pipeline and encodes the
// result into w. Files are encoded according to their extension, other writers receive PNG.
func (p *Processor) Process(photo, template io.Reader, w io.Writer) error {
	log := p.runLogger()

	src, err := decodeReader(photo)
	if err != nil {
		return &ResourceLoadError{Resource: "photo", Err: err}
	}
	tmpl, err := decodeReader(template)
	if err != nil {
		return &ResourceLoadError{Resource: "template", Err: err}
	}

	out, err := p.composite(log, p.Detector, p.params(), src, tmpl)
	if err != nil {
		return err
	}

	if err := encodeImg(w, out); err != nil {
		var path string
		if f, ok := w.(*os.File); ok {
			path = f.Name()
		}
		return &OutputWriteError{Path: path, Err: err}
	}
	return nil
}

func (p *Processor) composite(
	log logrus.FieldLogger,
	detector Detector,
	params Params,
	photo, template image.Image,
) (*image.NRGBA, error) {
	if detector == nil {
		return nil, &InferenceError{Err: errors.New("no face detector configured")}
	}

	src := imgToNRGBA(photo)
	tensor, err := NewPixelTensor(src)
	if err != nil {
		return nil, &ResourceLoadError{Resource: "photo", Err: err}
	}

	log.WithFields(logrus.Fields{
		"width":      tensor.Width,
		"height":     tensor.Height,
		"min_size":   params.MinSize,
		"thresholds": params.Thresholds,
		"factor":     params.Factor,
	}).Debug("running face detector")

	boxes, probs, err := detector.Detect(tensor, params)
	if err != nil {
		return nil, inferenceError(err)
	}
	if len(boxes) != 4*len(probs) {
		return nil, &InferenceError{
			Err: errors.Errorf("detector returned %d box values for %d confidences", len(boxes), len(probs)),
		}
	}

	bbox, err := Select(boxes, probs)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"candidates": len(probs),
		"box":        bbox.Rect().String(),
		"prob":       bbox.Prob,
	}).Info("face selected")

	out, err := imop.Compose(src, bbox.Rect(), template)
	if err != nil {
		return nil, err
	}
	log.WithField("at", imop.Origin.String()).Debug("thumbnail pasted into template")

	return out, nil
}

// params returns the processor parameters, falling back to DefaultParams.
func (p *Processor) params() Params {
	if p.Params == (Params{}) {
		return DefaultParams
	}
	return p.Params
}

// inferenceError keeps the typed detector errors and wraps anything else.
func inferenceError(err error) error {
	var (
		contract *GraphContractError
		infer    *InferenceError
		load     *ResourceLoadError
	)
	if errors.As(err, &contract) || errors.As(err, &infer) || errors.As(err, &load) {
		return err
	}
	return &InferenceError{Err: err}
}

// runLogger returns a logger tagged with a fresh run identifier.
func (p *Processor) runLogger() logrus.FieldLogger {
	if p.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return p.Logger.WithField("run_id", uuid.NewString())
}
