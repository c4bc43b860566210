package image

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

var ErrInvalidSize = errors.New("invalid target size")

type Transform func(image.Image) (image.Image, error)

// Scale is a pair of factors applied to the source width and height.
type Scale struct {
	Width  float64
	Height float64
}

// MaxPixelScale fits the image inside width x height keeping its aspect
// ratio. A zero bound is ignored.
func MaxPixelScale(width, height float64, srcWidth, srcHeight int) (Scale, error) {
	wf := width / float64(srcWidth)
	hf := height / float64(srcHeight)

	switch {
	case wf == 0 && hf == 0:
		return Scale{}, ErrInvalidSize
	case wf == 0:
		wf = hf
	case hf == 0:
		hf = wf
	case wf > hf:
		wf = hf
	default:
		hf = wf
	}

	return Scale{Width: wf, Height: hf}, nil
}

// MinPixelScale shrinks the image so its smaller side meets the bound; it
// never enlarges.
func MinPixelScale(width, height float64, srcWidth, srcHeight int) (Scale, error) {
	wf := width / float64(srcWidth)
	hf := height / float64(srcHeight)

	switch {
	case wf == 0 && hf == 0:
		return Scale{}, ErrInvalidSize
	case wf > hf && wf <= 1:
		hf = wf
	case hf <= 1:
		wf = hf
	default:
		wf, hf = 1, 1
	}

	return Scale{Width: wf, Height: hf}, nil
}

// WidthScale scales both sides so the result is width pixels wide.
func WidthScale(width float64, srcWidth int) (Scale, error) {
	if width == 0 {
		return Scale{}, ErrInvalidSize
	}

	f := width / float64(srcWidth)
	return Scale{Width: f, Height: f}, nil
}

// FactorScale uses the factors as given. A zero factor takes the other one.
func FactorScale(widthFactor, heightFactor float64) (Scale, error) {
	switch {
	case widthFactor == 0 && heightFactor == 0:
		return Scale{}, ErrInvalidSize
	case widthFactor == 0:
		widthFactor = heightFactor
	case heightFactor == 0:
		heightFactor = widthFactor
	}

	return Scale{Width: widthFactor, Height: heightFactor}, nil
}

func (s Scale) Density(d float64) Scale {
	return Scale{Width: s.Width * d, Height: s.Height * d}
}

// maxDimension bounds a single side before the pixel limit is applied, so
// the product of two sides always fits in an int64.
const maxDimension = 1 << 24

// Target returns the output dimensions for a source of the given size.
func (s Scale) Target(srcWidth, srcHeight int) (int, int) {
	return scaled(srcWidth, s.Width), scaled(srcHeight, s.Height)
}

func scaled(n int, f float64) int {
	v := math.Round(float64(n) * f)
	switch {
	case v < 1:
		return 1
	case v > maxDimension:
		return maxDimension
	}
	return int(v)
}

func (s Scale) valid() bool {
	for _, f := range []float64{s.Width, s.Height} {
		if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return false
		}
	}
	return true
}

// WithScale resizes by s. A target larger than maxPixels fails with
// ErrInvalidSize; maxPixels <= 0 disables the check.
func WithScale(s Scale, maxPixels int64) Transform {
	return func(img image.Image) (image.Image, error) {
		if !s.valid() {
			return nil, ErrInvalidSize
		}

		b := img.Bounds()
		width, height := s.Target(b.Dx(), b.Dy())
		if maxPixels > 0 && int64(width)*int64(height) > maxPixels {
			return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidSize, width, height, maxPixels)
		}
		if width == b.Dx() && height == b.Dy() {
			return img, nil
		}

		return imaging.Resize(img, width, height, imaging.Lanczos), nil
	}
}
