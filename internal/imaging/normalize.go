package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedImage = errors.New("unsupported or corrupt image")

// Normalized is an upload re-encoded as PNG.
type Normalized struct {
	Data         []byte
	Width        int
	Height       int
	SourceFormat string
}

const ContentType = "image/png"

// DefaultMaxPixels bounds the declared width*height accepted for decoding.
const DefaultMaxPixels = 40_000_000

// Normalize decodes jpeg, png, gif or webp input, scales it down so the longest
// side is at most maxDim (0 disables scaling) and re-encodes it as PNG.
// Inputs declaring more than maxPixels pixels are rejected before decoding;
// maxPixels <= 0 means DefaultMaxPixels.
func Normalize(data []byte, maxDim, maxPixels int) (*Normalized, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrUnsupportedImage)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedImage, cfg.Width, cfg.Height, maxPixels)
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	out := src
	b := src.Bounds()
	if w, h := fit(b.Dx(), b.Dy(), maxDim); w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	ob := out.Bounds()
	return &Normalized{Data: buf.Bytes(), Width: ob.Dx(), Height: ob.Dy(), SourceFormat: format}, nil
}

// fit keeps the aspect ratio while bounding the longest side.
func fit(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}
