// Package detectortest provides a scripted headshot.Detector for tests.
package detectortest

import (
	"sync"

	"github.com/esimov/headshot"
)

// Static returns the same outputs on every call and records what it was fed.
type Static struct {
	Boxes []float32
	Probs []float32
	Err   error

	mu     sync.Mutex
	calls  int
	tensor *headshot.PixelTensor
	params headshot.Params
}

var _ headshot.Detector = (*Static)(nil)

// Detect implements headshot.Detector.
func (s *Static) Detect(t *headshot.PixelTensor, p headshot.Params) ([]float32, []float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.tensor, s.params = t, p
	if s.Err != nil {
		return nil, nil, s.Err
	}
	return s.Boxes, s.Probs, nil
}

// Calls returns the number of Detect invocations.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Last returns the tensor and the parameters of the latest Detect call.
func (s *Static) Last() (*headshot.PixelTensor, headshot.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tensor, s.params
}
