package image

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var (
	ErrNotDecoded = errors.New("image not decoded")
	ErrTooLarge   = errors.New("image too large")
)

type Encoder interface {
	Encode(ctx context.Context, img image.Image, quality float32) (io.Reader, int64, error)
}

type CustomImage struct {
	img image.Image

	t Encoder
}

func NewCustomImage(t Encoder) *CustomImage {
	return &CustomImage{t: t}
}

// Decode reads the full image, applying its EXIF orientation.
func (ci *CustomImage) Decode(reader io.Reader) (err error) {
	ci.img, err = imaging.Decode(reader, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("the image file could not be opened: %w", err)
	}

	return nil
}

func (ci *CustomImage) Transform(funcs ...Transform) error {
	if ci.img == nil {
		return ErrNotDecoded
	}

	for _, f := range funcs {
		img, err := f(ci.img)
		if err != nil {
			return err
		}
		ci.img = img
	}

	return nil
}

func (ci *CustomImage) Size() (width, height int) {
	if ci.img == nil {
		return 0, 0
	}
	b := ci.img.Bounds()
	return b.Dx(), b.Dy()
}

func (ci *CustomImage) Encode(ctx context.Context, quality float32) (io.Reader, int64, error) {
	if ci.img == nil {
		return nil, 0, ErrNotDecoded
	}
	return ci.t.Encode(ctx, ci.img, quality)
}

// DecodeSize reads only the image header and reports the stored dimensions,
// without applying orientation.
func DecodeSize(reader io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, fmt.Errorf("the image file could not be opened: %w", err)
	}

	return cfg.Width, cfg.Height, nil
}

// CheckPixels reads only the header and fails with ErrTooLarge when the image
// holds more than maxPixels pixels.
func CheckPixels(reader io.Reader, maxPixels int64) error {
	width, height, err := DecodeSize(reader)
	if err != nil {
		return err
	}

	if int64(width)*int64(height) > maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, width, height, maxPixels)
	}

	return nil
}
