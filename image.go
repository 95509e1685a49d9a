package headshot

import (
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/esimov/headshot/utils"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
)

// PixelTensor is the flattened detector input: height*width*3 float values
// in B, G, R channel order, row by row.
type PixelTensor struct {
	Height int
	Width  int
	Data   []float32
}

// Shape returns the tensor dimensions as expected by the detection graph.
func (t *PixelTensor) Shape() []int64 {
	return []int64{int64(t.Height), int64(t.Width), 3}
}

// NewPixelTensor flattens img into a BGR ordered PixelTensor.
func NewPixelTensor(img image.Image) (*PixelTensor, error) {
	src := imgToNRGBA(img)
	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	if width < 1 || height < 1 {
		return nil, ErrEmptyImage
	}

	data := make([]float32, 0, width*height*3)
	for y := 0; y < height; y++ {
		i := src.PixOffset(0, y)
		for x := 0; x < width; x++ {
			px := src.Pix[i : i+4 : i+4]
			data = append(data, float32(px[2]), float32(px[1]), float32(px[0]))
			i += 4
		}
	}

	return &PixelTensor{Height: height, Width: width, Data: data}, nil
}

// decodeImg decodes an image file to type image.Image.
func decodeImg(src string) (image.Image, error) {
	ctype, err := utils.DetectContentType(src)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(ctype, "image") {
		return nil, errors.Errorf("%s is not an image file (%s)", filepath.Base(src), ctype)
	}

	file, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return decodeReader(file)
}

// decodeReader decodes an image honouring its EXIF orientation.
func decodeReader(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "could not decode the image")
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return img, nil
}

// encodeImg encodes an image to a destination of type io.Writer.
// Files are encoded in the format matching their extension, anything else as PNG.
func encodeImg(w io.Writer, img image.Image) error {
	switch w := w.(type) {
	case *os.File:
		format, err := outputFormat(w.Name())
		if err != nil {
			return err
		}
		return imaging.Encode(w, img, format, imaging.JPEGQuality(100))
	default:
		return imaging.Encode(w, img, imaging.PNG)
	}
}

// outputFormat returns the encoding matching the file extension.
// Names without an extension, like /dev/stdout, are encoded as PNG.
func outputFormat(name string) (imaging.Format, error) {
	if filepath.Ext(name) == "" {
		return imaging.PNG, nil
	}
	return imaging.FormatFromFilename(name)
}

// imgToNRGBA converts any image type to *image.NRGBA with min-point at (0, 0).
func imgToNRGBA(img image.Image) *image.NRGBA {
	srcBounds := img.Bounds()
	if srcBounds.Min.X == 0 && srcBounds.Min.Y == 0 {
		if src0, ok := img.(*image.NRGBA); ok {
			return src0
		}
	}
	srcMinX := srcBounds.Min.X
	srcMinY := srcBounds.Min.Y

	dstBounds := srcBounds.Sub(srcBounds.Min)
	dstW := dstBounds.Dx()
	dstH := dstBounds.Dy()
	dst := image.NewNRGBA(dstBounds)

	switch src := img.(type) {
	case *image.NRGBA:
		rowSize := srcBounds.Dx() * 4
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			si := src.PixOffset(srcMinX, srcMinY+dstY)
			copy(dst.Pix[di:di+rowSize], src.Pix[si:si+rowSize])
		}
	case *image.YCbCr:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				srcX := srcMinX + dstX
				srcY := srcMinY + dstY
				siy := src.YOffset(srcX, srcY)
				sic := src.COffset(srcX, srcY)
				r, g, b := color.YCbCrToRGB(src.Y[siy], src.Cb[sic], src.Cr[sic])
				dst.Pix[di+0] = r
				dst.Pix[di+1] = g
				dst.Pix[di+2] = b
				dst.Pix[di+3] = 0xff
				di += 4
			}
		}
	default:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				c := color.NRGBAModel.Convert(img.At(srcMinX+dstX, srcMinY+dstY)).(color.NRGBA)
				dst.Pix[di+0] = c.R
				dst.Pix[di+1] = c.G
				dst.Pix[di+2] = c.B
				dst.Pix[di+3] = c.A
				di += 4
			}
		}
	}

	return dst
}
