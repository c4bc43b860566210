package format

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"imageresizer/shared/log"
)

type Jpeg struct {
	logger *zap.Logger
}

func MustJpeg(logger *zap.Logger) *Jpeg {
	return &Jpeg{logger: logger}
}

func (w *Jpeg) Encode(ctx context.Context, img image.Image, quality float32) (io.Reader, int64, error) {
	logger := log.LoggerWithTrace(ctx, w.logger)
	logger.Debug(fmt.Sprintf("Converting image to jpeg with quality: %f", quality))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(clampQuality(quality))); err != nil {
		logger.Error("Error converting image to jpeg", zap.Error(err))
		return nil, 0, err
	}

	return &buf, int64(buf.Len()), nil
}

// clampQuality maps quality onto the 1-100 range the jpeg encoder accepts.
func clampQuality(quality float32) int {
	switch {
	case quality < 1:
		return 1
	case quality > 100:
		return 100
	}
	return int(quality)
}
