// Package preprocess turns a data-URL encoded picture into the normalized
// CHW float tensor the classifier expects.
package preprocess

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/Brownie44l1/sign-api/internal/model"
	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const channels = 3

// MaxPixels caps the declared canvas of an input image. Larger images are
// rejected from their header, before any pixel data is decoded.
const MaxPixels = 178956970

type Pipeline struct {
	size int
	mean [channels]float32
	std  [channels]float32
}

// New builds a pipeline that resizes to size×size and normalizes each
// channel with mean and std.
func New(size int, mean, std []float32) (*Pipeline, error) {
	if size <= 0 {
		return nil, fmt.Errorf("image size must be positive, got %d", size)
	}
	if len(mean) != channels || len(std) != channels {
		return nil, fmt.Errorf("mean and std need %d channels", channels)
	}

	p := &Pipeline{size: size}
	for c := 0; c < channels; c++ {
		if std[c] == 0 {
			return nil, fmt.Errorf("std[%d] is zero", c)
		}
		p.mean[c] = mean[c]
		p.std[c] = std[c]
	}
	return p, nil
}

func FromManifest(m *model.Manifest) (*Pipeline, error) {
	return New(m.ImageSize, m.Mean, m.Std)
}

// Process runs the whole chain: data URL, image decode, tensor.
func (p *Pipeline) Process(dataURL string) ([]float32, error) {
	data, err := DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}

	return p.ProcessImage(data)
}

// ProcessImage decodes raw image bytes into the model tensor.
func (p *Pipeline) ProcessImage(data []byte) ([]float32, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	return p.Tensor(img), nil
}

// DecodeDataURL drops everything up to the first comma and base64-decodes
// the rest.
func DecodeDataURL(s string) ([]byte, error) {
	_, payload, ok := strings.Cut(s, ",")
	if !ok {
		return nil, model.NewError(model.ErrDecode, errors.New("image data has no ',' separator"))
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, model.NewError(model.ErrDecode, fmt.Errorf("invalid base64 payload: %w", err))
	}

	return data, nil
}

// DecodeImage decodes data into an opaque RGB image. JPEG, PNG, GIF, BMP,
// TIFF and WebP are supported.
func DecodeImage(data []byte) (*image.RGBA, error) {
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, model.NewError(model.ErrFormat, fmt.Errorf("cannot identify image file (detected %s)", mime.String()))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, model.NewError(model.ErrFormat, fmt.Errorf("cannot decode %s image: %w", mime.String(), err))
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, model.NewError(model.ErrFormat,
			fmt.Errorf("image size (%d pixels) exceeds limit of %d pixels", pixels, MaxPixels))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, model.NewError(model.ErrFormat, fmt.Errorf("cannot decode %s image: %w", mime.String(), err))
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, model.NewError(model.ErrFormat, errors.New("image has zero size"))
	}

	return toRGB(img), nil
}

// toRGB copies img into an opaque RGBA image. Alpha is dropped, not
// composited, so a transparent pixel keeps its color.
func toRGB(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}

	return dst
}

// Tensor resizes img and returns it as a [1, 3, size, size] tensor in
// row-major CHW order.
func (p *Pipeline) Tensor(img image.Image) []float32 {
	resized := resize.Resize(uint(p.size), uint(p.size), img, resize.Bilinear)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	inputData := make([]float32, channels*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)

			pixelIndex := y*width + x
			inputData[pixelIndex] = p.normalize(0, c.R)
			inputData[plane+pixelIndex] = p.normalize(1, c.G)
			inputData[2*plane+pixelIndex] = p.normalize(2, c.B)
		}
	}

	return inputData
}

func (p *Pipeline) normalize(channel int, v uint8) float32 {
	return (float32(v)/255.0 - p.mean[channel]) / p.std[channel]
}
