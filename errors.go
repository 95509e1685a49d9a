package headshot

import (
	"fmt"

	"github.com/esimov/headshot/imop"
	"github.com/pkg/errors"
)

// ErrNoFaceDetected is returned when the detector reports no face candidate.
var ErrNoFaceDetected = errors.New("no face detected in the photo")

// ErrEmptyImage is returned when an image has no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// CropOutOfBoundsError is returned when the selected face box does not fit inside the photo.
type CropOutOfBoundsError = imop.CropOutOfBoundsError

// TemplateTooSmallError is returned when the template cannot hold the face thumbnail.
type TemplateTooSmallError = imop.TemplateTooSmallError

// ResourceLoadError is returned when the photo, the template
// or the detection model cannot be read or decoded.
type ResourceLoadError struct {
	Resource string
	Path     string
	Err      error
}

func (e *ResourceLoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("could not load the %s %q: %v", e.Resource, e.Path, e.Err)
	}
	return fmt.Sprintf("could not load the %s: %v", e.Resource, e.Err)
}

func (e *ResourceLoadError) Unwrap() error { return e.Err }

// GraphRole tells whether a named graph operation is fed or fetched.
type GraphRole string

const (
	GraphInput  GraphRole = "input"
	GraphOutput GraphRole = "output"
)

// GraphContractError is returned when the detection graph
// does not expose one of the expected named operations.
type GraphContractError struct {
	Name string
	Role GraphRole
}

func (e *GraphContractError) Error() string {
	return fmt.Sprintf("detection graph has no %s operation named %q", e.Role, e.Name)
}

// InferenceError is returned when running the detector itself fails.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("face detection failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// OutputWriteError is returned when the composited image cannot be persisted.
type OutputWriteError struct {
	Path string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("could not write the output image %q: %v", e.Path, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }

// ConfigError is returned when the pipeline configuration is invalid.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
