package preprocess

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/Brownie44l1/sign-api/internal/model"
)

var (
	imagenetMean = []float32{0.485, 0.456, 0.406}
	imagenetStd  = []float32{0.229, 0.224, 0.225}
)

func newPipeline(t *testing.T, size int) *Pipeline {
	t.Helper()
	p, err := New(size, imagenetMean, imagenetStd)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngDataURL(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// pngHeader returns a PNG signature and IHDR chunk declaring a w×h
// grayscale canvas with no pixel data behind it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 17)
	copy(ihdr, "IHDR")
	binary.BigEndian.PutUint32(ihdr[4:], w)
	binary.BigEndian.PutUint32(ihdr[8:], h)
	ihdr[12] = 8 // bit depth, color type 0 (gray)

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(13))
	buf.Write(ihdr)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr))
	return buf.Bytes()
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestNewRejectsBadParameters(t *testing.T) {
	if _, err := New(0, imagenetMean, imagenetStd); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := New(224, imagenetMean[:2], imagenetStd); err == nil {
		t.Error("expected error for two channel mean")
	}
	if _, err := New(224, imagenetMean, []float32{0.2, 0, 0.2}); err == nil {
		t.Error("expected error for zero std")
	}
}

func TestDecodeDataURL(t *testing.T) {
	data, err := DecodeDataURL("data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello")))
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("decoded %q", data)
	}

	// Everything before the first comma is ignored, prefix or not.
	data, err = DecodeDataURL("," + base64.StdEncoding.EncodeToString([]byte("hi")))
	if err != nil || string(data) != "hi" {
		t.Errorf("bare payload: %q, %v", data, err)
	}
}

func TestDecodeDataURLErrors(t *testing.T) {
	cases := map[string]string{
		"no comma":       "data:image/png;base64",
		"empty string":   "",
		"invalid base64": "data:image/png;base64,@@not-base64@@",
		"second comma":   "data:image/png;base64,aGVs,bG8=",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDataURL(input)
			if !errors.Is(err, model.ErrDecode) {
				t.Fatalf("expected decode error, got %v", err)
			}
		})
	}
}

func TestDecodeImageRejectsText(t *testing.T) {
	_, err := DecodeImage([]byte("hello"))
	if !errors.Is(err, model.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if !strings.Contains(err.Error(), "cannot identify image file") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestDecodeImageRejectsTruncatedPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(8, 8, color.White)); err != nil {
		t.Fatal(err)
	}

	_, err := DecodeImage(buf.Bytes()[:buf.Len()/2])
	if !errors.Is(err, model.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestDecodeImageRejectsOversizedCanvas(t *testing.T) {
	_, err := DecodeImage(pngHeader(100000, 100000))
	if !errors.Is(err, model.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if !strings.Contains(err.Error(), "exceeds limit") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestDecodeImageChecksLimitBeforeDecoding(t *testing.T) {
	// Within the limit the header alone passes the size check and the
	// missing pixel data is what fails.
	_, err := DecodeImage(pngHeader(64, 64))
	if !errors.Is(err, model.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if strings.Contains(err.Error(), "exceeds limit") {
		t.Errorf("small canvas hit the pixel limit: %q", err.Error())
	}
}

func TestDecodeImageDropsAlpha(t *testing.T) {
	src := solid(4, 4, color.NRGBA{R: 200, G: 10, B: 30, A: 0})
	data, err := DecodeDataURL(pngDataURL(t, src))
	if err != nil {
		t.Fatal(err)
	}

	img, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}

	got := img.RGBAAt(2, 2)
	want := color.RGBA{R: 200, G: 10, B: 30, A: 255}
	if got != want {
		t.Errorf("pixel = %v, want %v", got, want)
	}
}

func TestDecodeImageGrayscale(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 5, 5))
	for i := range gray.Pix {
		gray.Pix[i] = 90
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gray, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatal(err)
	}

	img, err := DecodeImage(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}

	c := img.RGBAAt(1, 1)
	if c.R != c.G || c.G != c.B || c.A != 255 {
		t.Errorf("expected equal channels, got %v", c)
	}
}

func TestTensorShapeAndNormalization(t *testing.T) {
	p := newPipeline(t, 224)
	c := color.RGBA{R: 255, G: 128, B: 0, A: 255}

	tensor := p.Tensor(solid(37, 19, c))

	plane := 224 * 224
	if len(tensor) != 3*plane {
		t.Fatalf("tensor has %d values, want %d", len(tensor), 3*plane)
	}

	want := [3]float32{
		(1 - 0.485) / 0.229,
		(128.0/255.0 - 0.456) / 0.224,
		(0 - 0.406) / 0.225,
	}
	for ch := 0; ch < 3; ch++ {
		for _, i := range []int{0, plane / 2, plane - 1} {
			if got := tensor[ch*plane+i]; !approx(got, want[ch]) {
				t.Fatalf("channel %d index %d = %v, want %v", ch, i, got, want[ch])
			}
		}
	}
}

func TestTensorIsChannelMajor(t *testing.T) {
	p := newPipeline(t, 2)

	// Left column red, right column blue, already at target size.
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		img.SetRGBA(0, y, color.RGBA{R: 255, A: 255})
		img.SetRGBA(1, y, color.RGBA{B: 255, A: 255})
	}

	tensor := p.Tensor(img)
	red, blue := tensor[0:4], tensor[8:12]

	high := func(ch int) float32 { return (1 - imagenetMean[ch]) / imagenetStd[ch] }
	low := func(ch int) float32 { return -imagenetMean[ch] / imagenetStd[ch] }

	if !approx(red[0], high(0)) || !approx(red[1], low(0)) || !approx(red[2], high(0)) {
		t.Errorf("red plane = %v", red)
	}
	if !approx(blue[0], low(2)) || !approx(blue[1], high(2)) {
		t.Errorf("blue plane = %v", blue)
	}
}

func TestProcessIsDeterministic(t *testing.T) {
	p := newPipeline(t, 224)
	src := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 7)
	}
	dataURL := pngDataURL(t, src)

	first, err := p.Process(dataURL)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	second, err := p.Process(dataURL)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("value %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestProcessImageMatchesProcess(t *testing.T) {
	p := newPipeline(t, 16)
	dataURL := pngDataURL(t, solid(10, 7, color.NRGBA{R: 40, G: 220, B: 90, A: 255}))

	data, err := DecodeDataURL(dataURL)
	if err != nil {
		t.Fatal(err)
	}
	fromBytes, err := p.ProcessImage(data)
	if err != nil {
		t.Fatalf("ProcessImage: %v", err)
	}
	fromURL, err := p.Process(dataURL)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	for i := range fromURL {
		if fromBytes[i] != fromURL[i] {
			t.Fatalf("value %d differs: %v vs %v", i, fromBytes[i], fromURL[i])
		}
	}
}

func TestProcessErrors(t *testing.T) {
	p := newPipeline(t, 224)

	cases := map[string]struct {
		input string
		kind  error
	}{
		"no comma":      {"not a data url", model.ErrDecode},
		"text payload":  {"data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello")), model.ErrFormat},
		"empty payload": {"data:image/png;base64,", model.ErrFormat},
		"huge canvas":   {"data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader(20000, 20000)), model.ErrFormat},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Process(tc.input)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
		})
	}
}
