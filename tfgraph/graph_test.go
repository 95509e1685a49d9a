package tfgraph

import (
	"bytes"
	"errors"
	"testing"

	"github.com/esimov/headshot"
	tf "github.com/galeone/tensorflow/tensorflow/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGraph builds a graph honouring the detection contract, except for the
// operations listed in skip. The outputs are constants, so the session run
// does not depend on the fed values.
func fakeGraph(t *testing.T, box interface{}, prob []float32, skip ...string) []byte {
	t.Helper()

	skipped := make(map[string]bool)
	for _, name := range skip {
		skipped[name] = true
	}

	g := tf.NewGraph()
	for _, name := range []string{InputOp, MinSizeOp, ThresholdsOp, FactorOp} {
		if skipped[name] {
			continue
		}
		_, err := g.AddOperation(tf.OpSpec{
			Type:  "Placeholder",
			Name:  name,
			Attrs: map[string]interface{}{"dtype": tf.Float},
		})
		require.NoError(t, err)
	}

	constant := func(name string, value interface{}) {
		if skipped[name] {
			return
		}
		tensor, err := tf.NewTensor(value)
		require.NoError(t, err)
		_, err = g.AddOperation(tf.OpSpec{
			Type:  "Const",
			Name:  name,
			Attrs: map[string]interface{}{"dtype": tensor.DataType(), "value": tensor},
		})
		require.NoError(t, err)
	}
	constant(BoxOp, box)
	constant(ProbOp, prob)

	var buf bytes.Buffer
	_, err := g.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func pixelTensor(h, w int) *headshot.PixelTensor {
	return &headshot.PixelTensor{Height: h, Width: w, Data: make([]float32, h*w*3)}
}

func TestGraph_Detect(t *testing.T) {
	def := fakeGraph(t,
		[][]float32{{30, 31, 70, 71}, {1, 2, 3, 4}},
		[]float32{0.5, 0.9},
	)
	g, err := New(def)
	require.NoError(t, err)

	boxes, probs, err := g.Detect(pixelTensor(100, 120), headshot.DefaultParams)
	require.NoError(t, err)
	assert.Equal(t, []float32{30, 31, 70, 71, 1, 2, 3, 4}, boxes)
	assert.Equal(t, []float32{0.5, 0.9}, probs)

	bbox, err := headshot.Select(boxes, probs)
	require.NoError(t, err)
	assert.Equal(t, headshot.BoundingBox{X1: 31, Y1: 30, X2: 71, Y2: 70, Prob: 0.5}, bbox)
}

func TestGraph_DetectNoFaces(t *testing.T) {
	g, err := New(fakeGraph(t, []float32{}, []float32{}))
	require.NoError(t, err)

	boxes, probs, err := g.Detect(pixelTensor(4, 4), headshot.DefaultParams)
	require.NoError(t, err)
	assert.Empty(t, boxes)
	assert.Empty(t, probs)
}

func TestGraph_MissingOperation(t *testing.T) {
	testCases := []struct {
		missing string
		role    headshot.GraphRole
	}{
		{InputOp, headshot.GraphInput},
		{MinSizeOp, headshot.GraphInput},
		{ThresholdsOp, headshot.GraphInput},
		{FactorOp, headshot.GraphInput},
		{BoxOp, headshot.GraphOutput},
		{ProbOp, headshot.GraphOutput},
	}

	for _, tc := range testCases {
		t.Run(tc.missing, func(t *testing.T) {
			def := fakeGraph(t, [][]float32{{0, 0, 1, 1}}, []float32{1}, tc.missing)
			_, err := New(def)

			var cerr *headshot.GraphContractError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tc.missing, cerr.Name)
			assert.Equal(t, tc.role, cerr.Role)
		})
	}
}

func TestGraph_InvalidDefinition(t *testing.T) {
	_, err := New([]byte("definitely not a protobuf graph"))

	var lerr *headshot.ResourceLoadError
	assert.True(t, errors.As(err, &lerr), "got %v", err)
}

func TestGraph_InconsistentOutputs(t *testing.T) {
	g, err := New(fakeGraph(t, [][]float32{{0, 0, 1, 1}}, []float32{0.7, 0.8}))
	require.NoError(t, err)

	_, _, err = g.Detect(pixelTensor(2, 2), headshot.DefaultParams)
	var ierr *headshot.InferenceError
	assert.True(t, errors.As(err, &ierr), "got %v", err)
}

func TestGraph_RejectsMalformedTensor(t *testing.T) {
	g, err := New(fakeGraph(t, [][]float32{{0, 0, 1, 1}}, []float32{1}))
	require.NoError(t, err)

	for _, tensor := range []*headshot.PixelTensor{
		nil,
		{Height: 0, Width: 3},
		{Height: 2, Width: 2, Data: make([]float32, 5)},
	} {
		_, _, err := g.Detect(tensor, headshot.DefaultParams)
		var ierr *headshot.InferenceError
		assert.True(t, errors.As(err, &ierr), "got %v", err)
	}
}

func TestGraph_LoadFileMissing(t *testing.T) {
	_, err := LoadFile("does/not/exist.pb")

	var lerr *headshot.ResourceLoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, "does/not/exist.pb", lerr.Path)
}

func TestGraph_Flatten(t *testing.T) {
	out, err := flatten([][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, out)

	out, err = flatten(float32(3))
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, out)

	_, err = flatten([]int32{1})
	assert.Error(t, err)
}

func TestGraph_DetectAfterClose(t *testing.T) {
	g, err := New(fakeGraph(t, [][]float32{{0, 0, 1, 1}}, []float32{1}))
	require.NoError(t, err)

	require.NoError(t, g.Close())
	require.NoError(t, g.Close())

	_, _, err = g.Detect(pixelTensor(2, 2), headshot.DefaultParams)
	var ierr *headshot.InferenceError
	require.True(t, errors.As(err, &ierr), "got %v", err)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestGraph_LoadWithoutEmbeddedModel(t *testing.T) {
	if _, err := modelFS.ReadFile(ModelFile); err == nil {
		t.Skip("a detection graph is embedded")
	}

	_, err := Load()
	var lerr *headshot.ResourceLoadError
	require.True(t, errors.As(err, &lerr), "got %v", err)
	assert.Equal(t, ModelFile, lerr.Path)
}
