package bridge

import "math"

// ServiceName is the executor service every bridge call is addressed to.
const ServiceName = "ImageResizePlugin"

type Format string

const (
	FormatJPG Format = "jpg"
	FormatPNG Format = "png"
)

type ImageDataType string

const (
	ImageDataBase64 ImageDataType = "base64Image"
	ImageDataURL    ImageDataType = "urlImage"
)

type ResizeType string

const (
	ResizeFactor   ResizeType = "factorResize"
	ResizePixel    ResizeType = "pixelResize"
	ResizeWidth    ResizeType = "widthResize"
	ResizeMinPixel ResizeType = "minPixelResize"
)

const (
	DefaultResizeQuality = 70
	DefaultStoreQuality  = 100
	DefaultPixelDensity  = 1
)

// ResizeRequest is the record sent with the resizeImage action.
type ResizeRequest struct {
	Data          string        `json:"data" validate:"required"`
	Width         float64       `json:"width" validate:"gte=0"`
	Height        float64       `json:"height" validate:"gte=0"`
	Format        Format        `json:"format" validate:"oneof=jpg png"`
	ImageDataType ImageDataType `json:"imageDataType" validate:"oneof=base64Image urlImage"`
	ResizeType    ResizeType    `json:"resizeType" validate:"oneof=factorResize pixelResize widthResize minPixelResize"`
	Quality       int           `json:"quality" validate:"gte=0,lte=100"`
	StoreImage    Flag          `json:"storeImage" validate:"oneof=0 1"`
	PixelDensity  float64       `json:"pixelDensity" validate:"gt=0"`
	Directory     string        `json:"directory"`
	Filename      string        `json:"filename"`
	PhotoAlbum    Flag          `json:"photoAlbum" validate:"oneof=0 1"`
}

// SizeRequest is the record sent with the imageSize action.
type SizeRequest struct {
	Data          string        `json:"data" validate:"required"`
	ImageDataType ImageDataType `json:"imageDataType" validate:"oneof=base64Image urlImage"`
}

// StoreRequest is the record sent with the storeImage action. Filename and
// Directory carry the caller's values as given; nil means the caller left
// them out and the key is omitted from the encoded record.
type StoreRequest struct {
	Data          string        `json:"data" validate:"required"`
	Format        Format        `json:"format" validate:"oneof=jpg png"`
	ImageDataType ImageDataType `json:"imageDataType" validate:"oneof=base64Image urlImage"`
	Filename      *string       `json:"filename,omitempty"`
	Directory     *string       `json:"directory,omitempty"`
	Quality       int           `json:"quality" validate:"gte=0,lte=100"`
	PhotoAlbum    Flag          `json:"photoAlbum" validate:"oneof=0 1"`
}

// NewResizeRequest builds the record for a resize call. The width field takes
// the height argument whenever width is non-zero, matching what deployed
// executors were built against. See NewLiteralResizeRequest.
func NewResizeRequest(imageData string, width, height float64, opts *ResizeOptions) ResizeRequest {
	w := 0.0
	if truthy(width) {
		w = orZero(height)
	}
	return buildResize(imageData, w, orZero(height), opts)
}

// NewLiteralResizeRequest builds the record for a resize call using the width
// argument for the width field.
func NewLiteralResizeRequest(imageData string, width, height float64, opts *ResizeOptions) ResizeRequest {
	return buildResize(imageData, orZero(width), orZero(height), opts)
}

func buildResize(imageData string, width, height float64, opts *ResizeOptions) ResizeRequest {
	if opts == nil {
		opts = &ResizeOptions{}
	}

	req := ResizeRequest{
		Data:          imageData,
		Width:         width,
		Height:        height,
		Format:        or(opts.Format, FormatJPG),
		ImageDataType: or(opts.ImageType, ImageDataBase64),
		ResizeType:    or(opts.ResizeType, ResizePixel),
		Quality:       quality(opts.Quality, DefaultResizeQuality),
		StoreImage:    0,
		PixelDensity:  DefaultPixelDensity,
		Directory:     opts.Directory,
		Filename:      opts.Filename,
		PhotoAlbum:    0,
	}
	if opts.StoreImage != nil {
		req.StoreImage = *opts.StoreImage
	}
	if opts.PixelDensity != nil {
		req.PixelDensity = *opts.PixelDensity
	}
	if opts.PhotoAlbum != nil {
		req.PhotoAlbum = *opts.PhotoAlbum
	}

	return req
}

// NewSizeRequest builds the record for an imageSize call.
func NewSizeRequest(imageData string, opts *SizeOptions) SizeRequest {
	if opts == nil {
		opts = &SizeOptions{}
	}

	return SizeRequest{
		Data:          imageData,
		ImageDataType: or(opts.ImageType, ImageDataBase64),
	}
}

// NewStoreRequest builds the record for a storeImage call.
func NewStoreRequest(imageData string, opts *StoreOptions) StoreRequest {
	if opts == nil {
		opts = &StoreOptions{}
	}

	req := StoreRequest{
		Data:          imageData,
		Format:        or(opts.Format, FormatJPG),
		ImageDataType: or(opts.ImageType, ImageDataBase64),
		Filename:      opts.Filename,
		Directory:     opts.Directory,
		Quality:       quality(opts.Quality, DefaultStoreQuality),
		PhotoAlbum:    1,
	}
	if opts.PhotoAlbum != nil {
		req.PhotoAlbum = *opts.PhotoAlbum
	}

	return req
}

// or returns def when v is the zero value.
func or[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func truthy(f float64) bool {
	return f != 0 && !math.IsNaN(f)
}

// quality truncates q toward zero, keeping it inside the int32 range.
func quality(q float64, def int) int {
	switch {
	case !truthy(q):
		return def
	case q > math.MaxInt32:
		return math.MaxInt32
	case q < math.MinInt32:
		return math.MinInt32
	}
	return int(q)
}

func orZero(f float64) float64 {
	if !truthy(f) {
		return 0
	}
	return f
}
