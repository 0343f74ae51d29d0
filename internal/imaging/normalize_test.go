package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func encode(t *testing.T, format string, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNormalizeConvertsToPNG(t *testing.T) {
	for _, format := range []string{"jpeg", "png", "gif"} {
		t.Run(format, func(t *testing.T) {
			out, err := Normalize(encode(t, format, 64, 48), 1536, 0)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if out.SourceFormat != format {
				t.Fatalf("SourceFormat = %q", out.SourceFormat)
			}
			if out.Width != 64 || out.Height != 48 {
				t.Fatalf("size = %dx%d", out.Width, out.Height)
			}
			if _, err := png.Decode(bytes.NewReader(out.Data)); err != nil {
				t.Fatalf("output is not png: %v", err)
			}
		})
	}
}

func TestNormalizeBoundsLongestSide(t *testing.T) {
	out, err := Normalize(encode(t, "png", 400, 100), 200, 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Width != 200 || out.Height != 50 {
		t.Fatalf("size = %dx%d, want 200x50", out.Width, out.Height)
	}

	out, err = Normalize(encode(t, "png", 100, 400), 200, 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Width != 50 || out.Height != 200 {
		t.Fatalf("size = %dx%d, want 50x200", out.Width, out.Height)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, in := range [][]byte{nil, []byte("definitely not an image")} {
		if _, err := Normalize(in, 100, 0); !errors.Is(err, ErrUnsupportedImage) {
			t.Fatalf("err = %v, want ErrUnsupportedImage", err)
		}
	}
}

func TestFit(t *testing.T) {
	tests := []struct{ w, h, max, ww, wh int }{
		{100, 100, 0, 100, 100},
		{100, 50, 200, 100, 50},
		{3000, 2000, 1500, 1500, 1000},
		{10000, 1, 100, 100, 1},
	}
	for _, tc := range tests {
		if w, h := fit(tc.w, tc.h, tc.max); w != tc.ww || h != tc.wh {
			t.Errorf("fit(%d,%d,%d) = %d,%d want %d,%d", tc.w, tc.h, tc.max, w, h, tc.ww, tc.wh)
		}
	}
}

// withDimensions rewrites the IHDR size of a PNG, leaving the pixel data as is.
func withDimensions(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	if string(out[12:16]) != "IHDR" {
		t.Fatal("IHDR is not the first chunk")
	}
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestNormalizeRejectsOversizedDeclaredDimensions(t *testing.T) {
	bomb := withDimensions(t, encode(t, "png", 4, 4), 16000, 16000)

	cfg, err := png.DecodeConfig(bytes.NewReader(bomb))
	if err != nil {
		t.Fatalf("crafted header unreadable: %v", err)
	}
	if cfg.Width != 16000 || cfg.Height != 16000 {
		t.Fatalf("crafted header = %dx%d", cfg.Width, cfg.Height)
	}

	if _, err := Normalize(bomb, 1024, 0); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("err = %v, want ErrUnsupportedImage", err)
	}
}

func TestNormalizeHonoursPixelCap(t *testing.T) {
	in := encode(t, "png", 100, 50)
	if _, err := Normalize(in, 0, 4999); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("err = %v, want ErrUnsupportedImage", err)
	}
	out, err := Normalize(in, 0, 5000)
	if err != nil {
		t.Fatalf("Normalize at the cap: %v", err)
	}
	if out.Width != 100 || out.Height != 50 {
		t.Fatalf("size = %dx%d", out.Width, out.Height)
	}
}
