package thumbnailer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	jpegQuality = 90

	// maxSourcePixels bounds the decoded size of an original.
	maxSourcePixels = 50_000_000

	// maxDerivativeSide bounds both sides of a generated derivative.
	maxDerivativeSide = 10_000
)

// ErrImageTooLarge is returned for originals or derivatives over the size limits.
var ErrImageTooLarge = errors.New("image too large")

// decode returns the image and the name of its format. The header is checked
// against maxPixels before any pixel is allocated.
func decode(data []byte, maxPixels int) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("in internal/thumbnailer/resize.go/decode(): error while `image.DecodeConfig()` calling: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxPixels/cfg.Height {
		return nil, "", fmt.Errorf("in internal/thumbnailer/resize.go/decode(): %dx%d: %w", cfg.Width, cfg.Height, ErrImageTooLarge)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("in internal/thumbnailer/resize.go/decode(): error while `image.Decode()` calling: %w", err)
	}

	return img, format, nil
}

// scaledHeight keeps the aspect ratio of a src image scaled to width.
func scaledHeight(src image.Rectangle, width int) int {
	if src.Dx() == 0 {
		return 1
	}
	height := int((int64(src.Dy())*int64(width) + int64(src.Dx()/2)) / int64(src.Dx()))
	if height < 1 {
		return 1
	}

	return height
}

// checkDerivative fails when the derivative of src at width would exceed maxDerivativeSide.
func checkDerivative(src image.Rectangle, width int) error {
	if width > maxDerivativeSide || scaledHeight(src, width) > maxDerivativeSide {
		return fmt.Errorf("in internal/thumbnailer/resize.go/checkDerivative(): %dx%d at width %d: %w", src.Dx(), src.Dy(), width, ErrImageTooLarge)
	}

	return nil
}

// resize scales img to width and encodes it in format. Formats without an
// encoder in reach (webp) are written as png.
func resize(img image.Image, format string, width int) ([]byte, error) {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, width, scaledHeight(bounds, width)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/thumbnailer/resize.go/resize(): error while encoding %s: %w", format, err)
	}

	return buf.Bytes(), nil
}
