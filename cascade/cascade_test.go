package cascade

import (
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/esimov/headshot"
	pigo "github.com/esimov/pigo/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticCascade packs a single stump tree of depth zero: every window gets
// the score pred, and windows scoring at or below threshold are rejected.
func syntheticCascade(pred, threshold float32) []byte {
	buf := make([]byte, 8)
	buf = binary.LittleEndian.AppendUint32(buf, 0) // tree depth
	buf = binary.LittleEndian.AppendUint32(buf, 1) // number of trees
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(pred))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(threshold))
	return buf
}

func solidTensor(h, w int, b, g, r float32) *headshot.PixelTensor {
	data := make([]float32, 0, h*w*3)
	for i := 0; i < h*w; i++ {
		data = append(data, b, g, r)
	}
	return &headshot.PixelTensor{Height: h, Width: w, Data: data}
}

func TestCascade_Grayscale(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]uint8{255}, Grayscale(solidTensor(1, 1, 255, 255, 255)))
	assert.Equal([]uint8{0}, Grayscale(solidTensor(1, 1, 0, 0, 0)))
	// Channels are read in B, G, R order.
	assert.Equal([]uint8{76}, Grayscale(solidTensor(1, 1, 0, 0, 255)))
	assert.Equal([]uint8{150}, Grayscale(solidTensor(1, 1, 0, 255, 0)))
	assert.Equal([]uint8{29}, Grayscale(solidTensor(1, 1, 255, 0, 0)))
}

func TestCascade_Confidence(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(float32(0), Confidence(-3))
	assert.Equal(float32(0), Confidence(0))
	assert.InDelta(0.5, Confidence(QualityHalf), 1e-6)
	assert.Less(Confidence(10), Confidence(20))
	assert.Less(Confidence(1000), float32(1))
}

func TestCascade_Rank(t *testing.T) {
	dets := []pigo.Detection{
		{Row: 50, Col: 40, Scale: 20, Q: 10},  // 0.667, dropped
		{Row: 30, Col: 30, Scale: 40, Q: 45},  // 0.9
		{Row: 5, Col: 95, Scale: 30, Q: 20},   // 0.8, clamped
		{Row: 60, Col: 60, Scale: 10, Q: 120}, // 0.96
	}

	boxes, probs := rank(dets, 100, 80, 0.7)
	require.Len(t, probs, 3)
	require.Len(t, boxes, 12)

	assert.InDelta(t, 0.96, probs[0], 1e-6)
	assert.InDelta(t, 0.9, probs[1], 1e-6)
	assert.InDelta(t, 0.8, probs[2], 1e-6)

	// (top, left, bottom, right)
	assert.Equal(t, []float32{55, 55, 65, 65}, boxes[0:4])
	assert.Equal(t, []float32{10, 10, 50, 50}, boxes[4:8])
	assert.Equal(t, []float32{0, 80, 20, 100}, boxes[8:12])

	bbox, err := headshot.Select(boxes, probs)
	require.NoError(t, err)
	assert.Equal(t, headshot.BoundingBox{X1: 55, Y1: 55, X2: 65, Y2: 65, Prob: probs[0]}, bbox)
}

func TestCascade_DetectAcceptAll(t *testing.T) {
	d, err := New(syntheticCascade(20, 0))
	require.NoError(t, err)

	boxes, probs, err := d.Detect(solidTensor(32, 32, 90, 120, 200), headshot.DefaultParams)
	require.NoError(t, err)
	require.NotEmpty(t, probs)
	require.Len(t, boxes, 4*len(probs))

	for i, p := range probs {
		assert.GreaterOrEqual(t, p, headshot.DefaultParams.Thresholds[2])
		assert.Less(t, p, float32(1))
		if i > 0 {
			assert.GreaterOrEqual(t, probs[i-1], p)
		}
	}
	for i := 0; i < len(boxes); i += 4 {
		top, left, bottom, right := boxes[i], boxes[i+1], boxes[i+2], boxes[i+3]
		assert.True(t, top >= 0 && top < bottom && bottom <= 32, "rows %v..%v", top, bottom)
		assert.True(t, left >= 0 && left < right && right <= 32, "cols %v..%v", left, right)
	}
}

func TestCascade_DetectRejectAll(t *testing.T) {
	d, err := New(syntheticCascade(-5, 0))
	require.NoError(t, err)

	boxes, probs, err := d.Detect(solidTensor(32, 32, 0, 0, 0), headshot.DefaultParams)
	require.NoError(t, err)
	assert.Empty(t, boxes)
	assert.Empty(t, probs)

	_, err = headshot.Select(boxes, probs)
	assert.ErrorIs(t, err, headshot.ErrNoFaceDetected)
}

func TestCascade_DetectRejectsEmptyTensor(t *testing.T) {
	d, err := New(syntheticCascade(20, 0))
	require.NoError(t, err)

	_, _, err = d.Detect(&headshot.PixelTensor{}, headshot.DefaultParams)
	var ierr *headshot.InferenceError
	assert.True(t, errors.As(err, &ierr))
}

func TestCascade_MalformedFile(t *testing.T) {
	_, err := New([]byte{1, 2, 3})

	var lerr *headshot.ResourceLoadError
	assert.True(t, errors.As(err, &lerr), "got %v", err)
}

func TestCascade_LoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facefinder")
	_, err := Load(path)

	var lerr *headshot.ResourceLoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, path, lerr.Path)
}
