package services

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
)

// TransformOptions describe an optional on-the-fly image conversion. Zero
// values mean "leave alone".
type TransformOptions struct {
	Format string
	Width  int
	Height int
}

func (o TransformOptions) Requested() bool {
	return o.Format != "" || o.Width > 0 || o.Height > 0
}

// TransformImage decodes src, resizes it per the requested dimensions and
// re-encodes it. When only one dimension is given the other is derived from
// the original aspect ratio: round(given / original_axis * other_axis).
// The returned extension is the format actually encoded.
func TransformImage(src []byte, opts TransformOptions, originalExt string) (out []byte, ext string, err error) {
	img, srcFormat, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()

	width, height := opts.Width, opts.Height
	switch {
	case width > 0 && height > 0:
		// explicit dimensions, aspect ratio not preserved
	case width > 0:
		height = int(math.Round(float64(width) / float64(origW) * float64(origH)))
	case height > 0:
		width = int(math.Round(float64(height) / float64(origH) * float64(origW)))
	}
	if width > 0 || height > 0 {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}

	ext = strings.ToLower(opts.Format)
	if ext == "" {
		ext = strings.ToLower(originalExt)
	}
	if ext == "" {
		ext = srcFormat
	}

	format, err := encodeFormat(ext)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, "", fmt.Errorf("failed to encode image as %s: %w", ext, err)
	}
	return buf.Bytes(), ext, nil
}

// ImageDimensions reports the pixel size of an encoded image.
func ImageDimensions(src []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func encodeFormat(ext string) (imaging.Format, error) {
	switch ext {
	case "jpg", "jpeg":
		return imaging.JPEG, nil
	case "png":
		return imaging.PNG, nil
	case "gif":
		return imaging.GIF, nil
	case "tif", "tiff":
		return imaging.TIFF, nil
	case "bmp":
		return imaging.BMP, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

// IsImageType reports whether a MIME type belongs to the image family.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
