// Package backend builds the face detector named by a headshot.Config.
//
// It is kept apart from the headshot package since the detectors themselves
// depend on it. Plug New into a Processor to let Execute load the detector:
//
//	p := &headshot.Processor{NewDetector: backend.New}
//	err := p.Execute(headshot.DefaultConfig())
package backend

import (
	"github.com/esimov/headshot"
	"github.com/esimov/headshot/cascade"
	"github.com/esimov/headshot/tfgraph"
	"github.com/pkg/errors"
)

// New loads the detector selected by cfg.Backend. The TensorFlow backend
// reads cfg.ModelPath when set and the embedded graph otherwise; the cascade
// backend reads cfg.CascadePath.
func New(cfg headshot.Config) (headshot.Detector, error) {
	switch cfg.Backend {
	case headshot.Cascade:
		d, err := cascade.Load(cfg.CascadePath)
		if err != nil {
			return nil, err
		}
		return d, nil
	case headshot.TensorFlow:
		load := tfgraph.Load
		if cfg.ModelPath != "" {
			load = func() (*tfgraph.Graph, error) { return tfgraph.LoadFile(cfg.ModelPath) }
		}
		g, err := load()
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, &headshot.ConfigError{Err: errors.Errorf("unknown backend %q", cfg.Backend)}
}
