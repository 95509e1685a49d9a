// Package tfgraph runs face detection with a frozen MTCNN TensorFlow graph.
//
// The graph definition is embedded into the binary from the model directory.
// It is treated as a black box: the package feeds the pixel tensor together
// with the three hyperparameters and fetches the raw box and confidence outputs.
package tfgraph

import (
	"embed"
	"os"
	"sync"

	"github.com/esimov/headshot"
	tf "github.com/galeone/tensorflow/tensorflow/go"
	"github.com/pkg/errors"
)

//go:embed model
var modelFS embed.FS

// ModelFile is the path of the graph definition inside the embedded model directory.
const ModelFile = "model/mtcnn.pb"

// Names of the operations the graph has to expose.
const (
	InputOp      = "input"
	MinSizeOp    = "min_size"
	ThresholdsOp = "thresholds"
	FactorOp     = "factor"
	BoxOp        = "box"
	ProbOp       = "prob"
)

// ErrClosed is returned by Detect once the graph has been closed.
var ErrClosed = errors.New("detection graph is closed")

// Graph is a loaded detection graph. It keeps only the imported graph
// definition; every Detect call runs in its own session.
type Graph struct {
	mu    sync.RWMutex
	graph *tf.Graph

	input      tf.Output
	minSize    tf.Output
	thresholds tf.Output
	factor     tf.Output

	box  tf.Output
	prob tf.Output
}

var _ headshot.Detector = (*Graph)(nil)

// Load imports the embedded graph definition.
func Load() (*Graph, error) {
	def, err := modelFS.ReadFile(ModelFile)
	if err != nil {
		return nil, &headshot.ResourceLoadError{Resource: "embedded detection graph", Path: ModelFile, Err: err}
	}
	return New(def)
}

// LoadFile imports a graph definition stored on disk.
func LoadFile(path string) (*Graph, error) {
	def, err := os.ReadFile(path)
	if err != nil {
		return nil, &headshot.ResourceLoadError{Resource: "detection graph", Path: path, Err: err}
	}
	return New(def)
}

// New imports a serialized GraphDef and resolves the named operations.
// A graph lacking one of them is rejected with a *headshot.GraphContractError.
func New(def []byte) (*Graph, error) {
	graph := tf.NewGraph()
	if err := graph.Import(def, ""); err != nil {
		return nil, &headshot.ResourceLoadError{Resource: "detection graph", Err: err}
	}

	g := &Graph{graph: graph}
	bindings := []struct {
		name   string
		role   headshot.GraphRole
		output *tf.Output
	}{
		{InputOp, headshot.GraphInput, &g.input},
		{MinSizeOp, headshot.GraphInput, &g.minSize},
		{ThresholdsOp, headshot.GraphInput, &g.thresholds},
		{FactorOp, headshot.GraphInput, &g.factor},
		{BoxOp, headshot.GraphOutput, &g.box},
		{ProbOp, headshot.GraphOutput, &g.prob},
	}
	for _, b := range bindings {
		op := graph.Operation(b.name)
		if op == nil {
			return nil, &headshot.GraphContractError{Name: b.name, Role: b.role}
		}
		*b.output = op.Output(0)
	}
	return g, nil
}

// Detect runs the graph once over t and returns the flattened box and confidence outputs.
func (g *Graph) Detect(t *headshot.PixelTensor, p headshot.Params) ([]float32, []float32, error) {
	if t == nil || t.Height < 1 || t.Width < 1 {
		return nil, nil, &headshot.InferenceError{Err: headshot.ErrEmptyImage}
	}
	if len(t.Data) != t.Height*t.Width*3 {
		return nil, nil, &headshot.InferenceError{
			Err: errors.Errorf("pixel tensor holds %d values, want %dx%dx3", len(t.Data), t.Height, t.Width),
		}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.graph == nil {
		return nil, nil, &headshot.InferenceError{Err: ErrClosed}
	}

	feeds, err := g.feeds(t, p)
	if err != nil {
		return nil, nil, &headshot.InferenceError{Err: err}
	}

	sess, err := tf.NewSession(g.graph, nil)
	if err != nil {
		return nil, nil, &headshot.InferenceError{Err: errors.Wrap(err, "could not open a session")}
	}
	defer sess.Close()

	res, err := sess.Run(feeds, []tf.Output{g.box, g.prob}, nil)
	if err != nil {
		return nil, nil, &headshot.InferenceError{Err: err}
	}

	boxes, err := flatten(res[0].Value())
	if err != nil {
		return nil, nil, &headshot.InferenceError{Err: errors.Wrap(err, BoxOp)}
	}
	probs, err := flatten(res[1].Value())
	if err != nil {
		return nil, nil, &headshot.InferenceError{Err: errors.Wrap(err, ProbOp)}
	}
	if len(boxes) != 4*len(probs) {
		return nil, nil, &headshot.InferenceError{
			Err: errors.Errorf("graph returned %d box values for %d confidences", len(boxes), len(probs)),
		}
	}
	return boxes, probs, nil
}

// Close releases the imported graph. Detect fails with ErrClosed afterwards.
// Closing an already closed graph is a no-op.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.graph = nil
	return nil
}

// feeds builds the four input tensors.
func (g *Graph) feeds(t *headshot.PixelTensor, p headshot.Params) (map[tf.Output]*tf.Tensor, error) {
	input, err := tf.NewTensor(t.Data)
	if err != nil {
		return nil, errors.Wrap(err, InputOp)
	}
	if err := input.Reshape(t.Shape()); err != nil {
		return nil, errors.Wrap(err, InputOp)
	}
	minSize, err := tf.NewTensor(p.MinSize)
	if err != nil {
		return nil, errors.Wrap(err, MinSizeOp)
	}
	thresholds, err := tf.NewTensor(p.Thresholds[:])
	if err != nil {
		return nil, errors.Wrap(err, ThresholdsOp)
	}
	factor, err := tf.NewTensor(p.Factor)
	if err != nil {
		return nil, errors.Wrap(err, FactorOp)
	}

	return map[tf.Output]*tf.Tensor{
		g.input:      input,
		g.minSize:    minSize,
		g.thresholds: thresholds,
		g.factor:     factor,
	}, nil
}

// flatten converts a fetched float tensor value into a flat slice in row-major order.
func flatten(v interface{}) ([]float32, error) {
	switch v := v.(type) {
	case float32:
		return []float32{v}, nil
	case []float32:
		return v, nil
	case [][]float32:
		out := make([]float32, 0, len(v)*4)
		for _, row := range v {
			out = append(out, row...)
		}
		return out, nil
	case [][][]float32:
		var out []float32
		for _, plane := range v {
			for _, row := range plane {
				out = append(out, row...)
			}
		}
		return out, nil
	}
	return nil, errors.Errorf("unexpected tensor value of type %T", v)
}
