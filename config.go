package headshot

import (
	"github.com/go-playground/validator/v10"
)

// Backend names the detector implementation used by the pipeline.
type Backend string

const (
	// TensorFlow runs the embedded MTCNN graph.
	TensorFlow Backend = "tensorflow"
	// Cascade runs the pigo pixel intensity comparison cascade.
	Cascade Backend = "cascade"
)

// Params are the fixed hyperparameters passed to the detector on every run.
type Params struct {
	// MinSize is the smallest face edge, in pixels, the detector looks for.
	MinSize float32 `validate:"gt=0"`
	// Thresholds holds the acceptance score of each of the three cascade stages.
	Thresholds [3]float32 `validate:"dive,gte=0,lte=1"`
	// Factor is the scale step between two levels of the image pyramid.
	Factor float32 `validate:"gt=0,lt=1"`
}

// DefaultParams are the hyperparameters the pretrained graph was tuned with.
var DefaultParams = Params{
	MinSize:    20,
	Thresholds: [3]float32{0.6, 0.7, 0.7},
	Factor:     0.709,
}

// Config describes a single pipeline run.
type Config struct {
	PhotoPath    string `validate:"required"`
	TemplatePath string `validate:"required"`
	OutputPath   string `validate:"required"`

	// Backend, ModelPath and CascadePath select the detector that
	// Processor.NewDetector builds when the processor has none.
	Backend     Backend `validate:"oneof=tensorflow cascade"`
	ModelPath   string
	CascadePath string `validate:"required_if=Backend cascade"`

	Params Params
}

// DefaultConfig returns the configuration used when the program runs without flags.
func DefaultConfig() Config {
	return Config{
		PhotoPath:    "photo.png",
		TemplatePath: "minecraft-skin-template.png",
		OutputPath:   "out.png",
		Backend:      TensorFlow,
		Params:       DefaultParams,
	}
}

var validate = validator.New()

// Validate checks the configuration fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}
