// Package cascade implements a headshot.Detector backed by the pigo pixel
// intensity comparison cascade. It needs no native libraries, which makes it
// a handy fallback when TensorFlow is not available on the host.
package cascade

import (
	"fmt"
	"os"
	"sort"

	"github.com/esimov/headshot"
	"github.com/esimov/headshot/utils"
	pigo "github.com/esimov/pigo/core"
	"github.com/pkg/errors"
)

// QualityHalf is the cascade score mapped to a confidence of 0.5.
const QualityHalf = 5.0

const (
	minWindow      = 10
	minScaleFactor = 1.1
)

// Detector runs a pigo cascade over the grayscale version of the pixel tensor.
type Detector struct {
	classifier *pigo.Pigo

	// ShiftFactor is the detection window step, relative to the window size.
	ShiftFactor float64
	// IoUThreshold is the overlap above which two detections are merged.
	IoUThreshold float64
	// Angle rotates the detection window; 0.0 is 0 radians and 1.0 is 2*pi radians.
	Angle float64
}

var _ headshot.Detector = (*Detector)(nil)

// New unpacks the binary cascade file.
func New(cascade []byte) (d *Detector, err error) {
	// Unpack indexes the packet without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, &headshot.ResourceLoadError{
				Resource: "face cascade",
				Err:      fmt.Errorf("malformed cascade file: %v", r),
			}
		}
	}()

	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, &headshot.ResourceLoadError{Resource: "face cascade", Err: err}
	}

	return &Detector{
		classifier:   classifier,
		ShiftFactor:  0.1,
		IoUThreshold: 0.2,
	}, nil
}

// Load reads and unpacks the cascade file found at path.
func Load(path string) (*Detector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &headshot.ResourceLoadError{Resource: "face cascade", Path: path, Err: err}
	}
	return New(data)
}

// Detect runs the cascade and returns the faces ordered by decreasing confidence,
// in the same (top, left, bottom, right) layout the detection graph uses.
// The last stage threshold of p is the minimum confidence of a returned face.
func (d *Detector) Detect(t *headshot.PixelTensor, p headshot.Params) ([]float32, []float32, error) {
	if t == nil || t.Height < 1 || t.Width < 1 {
		return nil, nil, &headshot.InferenceError{Err: headshot.ErrEmptyImage}
	}
	if len(t.Data) != t.Height*t.Width*3 {
		return nil, nil, &headshot.InferenceError{
			Err: errors.Errorf("pixel tensor holds %d values, want %dx%dx3", len(t.Data), t.Height, t.Width),
		}
	}

	scaleFactor := minScaleFactor
	if p.Factor > 0 && p.Factor < 1 {
		scaleFactor = utils.Max(1/float64(p.Factor), minScaleFactor)
	}

	cParams := pigo.CascadeParams{
		MinSize:     utils.Max(int(p.MinSize), minWindow),
		MaxSize:     utils.Max(t.Width, t.Height),
		ShiftFactor: d.ShiftFactor,
		ScaleFactor: scaleFactor,

		ImageParams: pigo.ImageParams{
			Pixels: Grayscale(t),
			Rows:   t.Height,
			Cols:   t.Width,
			Dim:    t.Width,
		},
	}

	// Run the classifier over the obtained leaf nodes and return the detection results.
	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := d.classifier.RunCascade(cParams, d.Angle)

	// Calculate the intersection over union (IoU) of two clusters.
	dets = d.classifier.ClusterDetections(dets, d.IoUThreshold)

	boxes, probs := rank(dets, t.Width, t.Height, p.Thresholds[2])
	return boxes, probs, nil
}

// Grayscale converts the BGR pixel tensor to the luma plane the cascade works on.
func Grayscale(t *headshot.PixelTensor) []uint8 {
	gray := make([]uint8, t.Height*t.Width)
	for i := range gray {
		b, g, r := t.Data[i*3], t.Data[i*3+1], t.Data[i*3+2]
		lum := 0.299*r + 0.587*g + 0.114*b
		gray[i] = uint8(utils.Clamp(lum+0.5, 0, 255))
	}
	return gray
}

// Confidence maps an unbounded cascade score onto [0, 1).
func Confidence(q float32) float32 {
	if q <= 0 {
		return 0
	}
	return q / (q + QualityHalf)
}

type face struct {
	box  [4]float32
	prob float32
}

// rank converts the detections to flat boxes clamped to the image, drops the
// ones below minProb and orders the rest by decreasing confidence.
func rank(dets []pigo.Detection, width, height int, minProb float32) ([]float32, []float32) {
	faces := make([]face, 0, len(dets))
	for _, det := range dets {
		prob := Confidence(det.Q)
		if prob < minProb {
			continue
		}
		half := det.Scale / 2
		faces = append(faces, face{
			box: [4]float32{
				float32(utils.Clamp(det.Row-half, 0, height)),
				float32(utils.Clamp(det.Col-half, 0, width)),
				float32(utils.Clamp(det.Row+half, 0, height)),
				float32(utils.Clamp(det.Col+half, 0, width)),
			},
			prob: prob,
		})
	}
	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].prob > faces[j].prob
	})

	boxes := make([]float32, 0, len(faces)*4)
	probs := make([]float32, 0, len(faces))
	for _, f := range faces {
		boxes = append(boxes, f.box[:]...)
		probs = append(probs, f.prob)
	}
	return boxes, probs
}
