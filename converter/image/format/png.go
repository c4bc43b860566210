package format

import (
	"bytes"
	"context"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"imageresizer/shared/log"
)

type Png struct {
	logger *zap.Logger
}

func MustPng(logger *zap.Logger) *Png {
	return &Png{logger: logger}
}

// Encode ignores quality; png output is lossless.
func (w *Png) Encode(ctx context.Context, img image.Image, _ float32) (io.Reader, int64, error) {
	logger := log.LoggerWithTrace(ctx, w.logger)
	logger.Debug("Converting image to png")

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		logger.Error("Error converting image to png", zap.Error(err))
		return nil, 0, err
	}

	return &buf, int64(buf.Len()), nil
}
