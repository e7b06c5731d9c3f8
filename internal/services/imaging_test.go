package services

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTransformWidthOnlyPreservesAspect(t *testing.T) {
	src := encodeTestPNG(t, 200, 100)

	out, ext, err := TransformImage(src, TransformOptions{Width: 100}, "png")
	if err != nil {
		t.Fatal(err)
	}
	if ext != "png" {
		t.Errorf("ext = %q, want png", ext)
	}
	w, h, err := ImageDimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if w != 100 {
		t.Errorf("width = %d, want 100", w)
	}
	// round(100 / 200 * 100) = 50, ±1 for rounding
	if h < 49 || h > 51 {
		t.Errorf("height = %d, want 50 ±1", h)
	}
}

func TestTransformHeightOnlyPreservesAspect(t *testing.T) {
	src := encodeTestPNG(t, 300, 150)

	out, _, err := TransformImage(src, TransformOptions{Height: 50}, "png")
	if err != nil {
		t.Fatal(err)
	}
	w, h, err := ImageDimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if h != 50 {
		t.Errorf("height = %d, want 50", h)
	}
	if w < 99 || w > 101 {
		t.Errorf("width = %d, want 100 ±1", w)
	}
}

func TestTransformExplicitDimensions(t *testing.T) {
	src := encodeTestPNG(t, 64, 64)

	out, _, err := TransformImage(src, TransformOptions{Width: 30, Height: 10}, "png")
	if err != nil {
		t.Fatal(err)
	}
	w, h, err := ImageDimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if w != 30 || h != 10 {
		t.Errorf("got %dx%d, want 30x10", w, h)
	}
}

func TestTransformFormatConversion(t *testing.T) {
	src := encodeTestPNG(t, 32, 32)

	out, ext, err := TransformImage(src, TransformOptions{Format: "jpeg"}, "png")
	if err != nil {
		t.Fatal(err)
	}
	if ext != "jpeg" {
		t.Errorf("ext = %q, want jpeg", ext)
	}
	if _, format, err := image.Decode(bytes.NewReader(out)); err != nil || format != "jpeg" {
		t.Errorf("output not decodable as jpeg: format=%q err=%v", format, err)
	}
}

func TestTransformUnknownFormat(t *testing.T) {
	src := encodeTestPNG(t, 8, 8)

	_, _, err := TransformImage(src, TransformOptions{Format: "exe"}, "png")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("got %v, want ErrUnsupported", err)
	}
}

func TestTransformGarbageInput(t *testing.T) {
	if _, _, err := TransformImage([]byte("not an image"), TransformOptions{Width: 10}, "png"); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestHumanSize(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{2048, "2.00 KB"},
		{1536, "1.50 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, c := range cases {
		if got := HumanSize(c.size); got != c.want {
			t.Errorf("HumanSize(%d) = %q, want %q", c.size, got, c.want)
		}
	}
}
