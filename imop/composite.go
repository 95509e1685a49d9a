// Package imop implements the image operations used to transfer a detected face
// region onto a skin template: cropping the source, downsampling the crop to a
// fixed size thumbnail and pasting the thumbnail at a fixed template position.
//
// All operations work on copies; neither the source nor the template is mutated.
package imop

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ThumbSize is the edge length of the thumbnail written into the template.
const ThumbSize = 8

// Origin is the template pixel receiving the top-left thumbnail pixel.
var Origin = image.Point{X: 16, Y: 8}

// MinTemplateSize is the smallest template able to hold the thumbnail at Origin.
var MinTemplateSize = image.Point{X: Origin.X + ThumbSize, Y: Origin.Y + ThumbSize}

// CropOutOfBoundsError is returned when the crop rectangle is empty
// or does not fit entirely inside the source image.
type CropOutOfBoundsError struct {
	Rect   image.Rectangle
	Bounds image.Rectangle
}

func (e *CropOutOfBoundsError) Error() string {
	if e.Rect.Empty() {
		return fmt.Sprintf("crop region %v is empty", e.Rect)
	}
	return fmt.Sprintf("crop region %v falls outside the source image bounds %v", e.Rect, e.Bounds)
}

// TemplateTooSmallError is returned when the template cannot hold the thumbnail.
type TemplateTooSmallError struct {
	Size image.Point
	Min  image.Point
}

func (e *TemplateTooSmallError) Error() string {
	return fmt.Sprintf("template is %dx%d, need at least %dx%d",
		e.Size.X, e.Size.Y, e.Min.X, e.Min.Y)
}

// Crop extracts the r region of src. Unlike imaging.Crop the rectangle is never
// clamped: a region reaching outside of src is an error.
func Crop(src image.Image, r image.Rectangle) (*image.NRGBA, error) {
	bounds := src.Bounds()
	if r.Empty() || !r.In(bounds) {
		return nil, &CropOutOfBoundsError{Rect: r, Bounds: bounds}
	}
	return imaging.Crop(src, r), nil
}

// Thumbnail downsamples src to a ThumbSize x ThumbSize image using an
// area-average (box) filter, so a uniform region stays uniform.
func Thumbnail(src image.Image) *image.NRGBA {
	return imaging.Resize(src, ThumbSize, ThumbSize, imaging.Box)
}

// Placement maps a thumbnail pixel (row, col) to its template coordinate.
func Placement(row, col int) image.Point {
	return image.Point{X: Origin.X + col, Y: Origin.Y + row}
}

// Paste returns a copy of template with thumb written row-major at Placement.
// Only the ThumbSize x ThumbSize block at Origin differs from the template.
func Paste(template image.Image, thumb *image.NRGBA) (*image.NRGBA, error) {
	size := template.Bounds().Size()
	if size.X < MinTemplateSize.X || size.Y < MinTemplateSize.Y {
		return nil, &TemplateTooSmallError{Size: size, Min: MinTemplateSize}
	}
	dst := imaging.Clone(template)

	tb := thumb.Bounds()
	for row := 0; row < ThumbSize && row < tb.Dy(); row++ {
		for col := 0; col < ThumbSize && col < tb.Dx(); col++ {
			pt := Placement(row, col)
			dst.SetNRGBA(pt.X, pt.Y, thumb.NRGBAAt(tb.Min.X+col, tb.Min.Y+row))
		}
	}
	return dst, nil
}

// Compose crops r out of src, reduces it to a thumbnail and pastes it into a copy of template.
func Compose(src image.Image, r image.Rectangle, template image.Image) (*image.NRGBA, error) {
	face, err := Crop(src, r)
	if err != nil {
		return nil, err
	}
	return Paste(template, Thumbnail(face))
}
