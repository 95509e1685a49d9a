package headshot

import "image"

// BoundingBox is a face candidate: the top-left (X1, Y1) and bottom-right
// (X2, Y2) corners in photo pixels and the detection confidence.
type BoundingBox struct {
	X1, Y1 float32
	X2, Y2 float32
	Prob   float32
}

// FromRowCol builds a BoundingBox from one raw detector box. The detector
// emits (top row, left column, bottom row, right column), so the y and x
// axes come in swapped order relative to the box fields.
func FromRowCol(raw [4]float32, prob float32) BoundingBox {
	return BoundingBox{
		Y1:   raw[0],
		X1:   raw[1],
		Y2:   raw[2],
		X2:   raw[3],
		Prob: prob,
	}
}

// Rect returns the crop region of the box with its origin and size truncated
// to whole pixels. The result is not canonicalized: an inverted box yields an
// empty rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	x, y := int(b.X1), int(b.Y1)
	w, h := int(b.X2-b.X1), int(b.Y2-b.Y1)
	return image.Rectangle{
		Min: image.Point{X: x, Y: y},
		Max: image.Point{X: x + w, Y: y + h},
	}
}

// Candidates pairs every group of four raw box values with the matching
// confidence, keeping the detector output order. Incomplete trailing groups
// and confidences without a box are dropped.
func Candidates(rawBoxes, rawProbs []float32) []BoundingBox {
	n := len(rawBoxes) / 4
	if len(rawProbs) < n {
		n = len(rawProbs)
	}

	boxes := make([]BoundingBox, 0, n)
	for i := 0; i < n; i++ {
		var raw [4]float32
		copy(raw[:], rawBoxes[i*4:i*4+4])
		boxes = append(boxes, FromRowCol(raw, rawProbs[i]))
	}
	return boxes
}

// Select returns the first candidate in detector output order.
// This is deliberately not the most confident one.
func Select(rawBoxes, rawProbs []float32) (BoundingBox, error) {
	boxes := Candidates(rawBoxes, rawProbs)
	if len(boxes) == 0 {
		return BoundingBox{}, ErrNoFaceDetected
	}
	return boxes[0], nil
}
