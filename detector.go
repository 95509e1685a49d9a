package headshot

// Detector runs a face detector over a pixel tensor.
//
// Implementations return the raw flat outputs: four values per face laid out
// as (top, left, bottom, right) in boxes, and one confidence per face in probs,
// so that len(boxes) == 4*len(probs). The order of the faces is the detector's
// own output order.
type Detector interface {
	Detect(t *PixelTensor, p Params) (boxes, probs []float32, err error)
}
