package image

import (
	"sync"

	"go.uber.org/zap"

	"imageresizer/converter/image/format"
)

var (
	lock           = &sync.Mutex{}
	singleInstance *Strategy
)

type Strategy struct {
	m map[Type]Encoder
}

func MustStrategy(logger *zap.Logger) *Strategy {
	lock.Lock()
	defer lock.Unlock()

	if singleInstance != nil {
		return singleInstance
	}

	singleInstance = &Strategy{m: map[Type]Encoder{
		JPEG: format.MustJpeg(logger),
		PNG:  format.MustPng(logger),
	}}

	return singleInstance
}

// Apply returns nil for a type without an encoder.
func (s *Strategy) Apply(t Type) Encoder {
	return s.m[t]
}
