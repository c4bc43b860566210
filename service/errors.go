package service

import "errors"

var (
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrMissingFilename   = errors.New("no value for filename")
	ErrUnsupportedSource = errors.New("unsupported image source")
	ErrDownloadFailed    = errors.New("image download failed")
)
