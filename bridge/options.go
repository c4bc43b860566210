package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownOption = errors.New("unknown option")

// Flag is a boolean carried as 0 or 1. It decodes from JSON numbers and
// booleans alike.
type Flag int

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true":
		*f = 1
		return nil
	case "false":
		*f = 0
		return nil
	}

	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flag must be a number or boolean: %w", err)
	}
	*f = Flag(n)

	return nil
}

// ResizeOptions lists every option recognized by ResizeImage. Zero-valued
// strings and a zero or NaN Quality fall back to defaults, a fractional
// Quality is truncated; pointer fields fall back
// only when nil, so an explicit 0 is kept.
type ResizeOptions struct {
	Format       Format        `json:"format,omitempty"`
	ImageType    ImageDataType `json:"imageType,omitempty"`
	ResizeType   ResizeType    `json:"resizeType,omitempty"`
	Quality      float64       `json:"quality,omitempty"`
	StoreImage   *Flag         `json:"storeImage,omitempty"`
	PixelDensity *float64      `json:"pixelDensity,omitempty"`
	Directory    string        `json:"directory,omitempty"`
	Filename     string        `json:"filename,omitempty"`
	PhotoAlbum   *Flag         `json:"photoAlbum,omitempty"`
}

type SizeOptions struct {
	ImageType ImageDataType `json:"imageType,omitempty"`
}

type StoreOptions struct {
	Format     Format        `json:"format,omitempty"`
	ImageType  ImageDataType `json:"imageType,omitempty"`
	Filename   *string       `json:"filename,omitempty"`
	Directory  *string       `json:"directory,omitempty"`
	Quality    float64       `json:"quality,omitempty"`
	PhotoAlbum *Flag         `json:"photoAlbum,omitempty"`
}

// Ptr returns a pointer to v, for filling optional fields inline.
func Ptr[T any](v T) *T {
	return &v
}

func DecodeResizeOptions(data []byte) (*ResizeOptions, error) {
	opts := &ResizeOptions{}
	return opts, decodeStrict(data, opts)
}

func DecodeSizeOptions(data []byte) (*SizeOptions, error) {
	opts := &SizeOptions{}
	return opts, decodeStrict(data, opts)
}

func DecodeStoreOptions(data []byte) (*StoreOptions, error) {
	opts := &StoreOptions{}
	return opts, decodeStrict(data, opts)
}

// decodeStrict decodes a JSON options object, rejecting keys the target does
// not declare. Empty input and null leave v untouched.
func decodeStrict(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return fmt.Errorf("%w: %s", ErrUnknownOption, strings.TrimPrefix(err.Error(), "json: unknown field "))
		}
		return fmt.Errorf("invalid options: %w", err)
	}

	return nil
}
