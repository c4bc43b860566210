package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"imageresizer/bridge"
	"imageresizer/cache"
	"imageresizer/catalog"
	img "imageresizer/converter/image"
	"imageresizer/shared/log"
	"imageresizer/shared/metrics"
	"imageresizer/storage"
)

var tracer = otel.Tracer("imageresizer/service")

// ImageService executes the resizer actions against real image data.
type ImageService struct {
	strategy   *img.Strategy
	validate   *validator.Validate
	loader     *Loader
	tempStore  storage.Store
	albumStore storage.Store
	catalog    imageCatalog
	cache      sizeCache
	metrics    *metrics.Metrics
	logger     *zap.Logger

	maxInputPixels  int64
	maxOutputPixels int64
}

type Option func(*ImageService)

func WithCatalog(c *catalog.Catalog) Option {
	return func(s *ImageService) {
		if c != nil {
			s.catalog = c
		}
	}
}

func WithSizeCache(c *cache.SizeCache) Option {
	return func(s *ImageService) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ImageService) {
		s.metrics = m
	}
}

// WithPixelLimits caps the decoded source and the resized output. A
// non-positive value keeps the default.
func WithPixelLimits(maxInput, maxOutput int64) Option {
	return func(s *ImageService) {
		if maxInput > 0 {
			s.maxInputPixels = maxInput
		}
		if maxOutput > 0 {
			s.maxOutputPixels = maxOutput
		}
	}
}

func WithLoader(l *Loader) Option {
	return func(s *ImageService) {
		s.loader = l
	}
}

const (
	defaultMaxDownload = 32 << 20
	DefaultMaxPixels   = 50_000_000
)

func NewImageService(
	strategy *img.Strategy,
	tempStore, albumStore storage.Store,
	logger *zap.Logger,
	opts ...Option,
) *ImageService {
	s := &ImageService{
		strategy:   strategy,
		validate:   NewValidator(),
		loader:     NewLoader(&http.Client{Timeout: 30 * time.Second}, defaultMaxDownload, logger),
		tempStore:  tempStore,
		albumStore: albumStore,
		logger:     logger,

		maxInputPixels:  DefaultMaxPixels,
		maxOutputPixels: DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *ImageService) Resize(ctx context.Context, req bridge.ResizeRequest) (*bridge.ResizeResult, error) {
	ctx, span := s.start(ctx, bridge.ActionResizeImage, req.ImageDataType)
	defer span.End()
	logger := log.LoggerWithTrace(ctx, s.logger)

	started := time.Now()
	res, err := s.resize(ctx, req)
	s.finish(span, bridge.ActionResizeImage, started, err)
	if err != nil {
		logger.Error("Error resizing image", zap.Error(err))
		return nil, err
	}

	logger.Debug("Resized image", zap.Int("width", res.Width), zap.Int("height", res.Height))

	return res, nil
}

func (s *ImageService) resize(ctx context.Context, req bridge.ResizeRequest) (*bridge.ResizeResult, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, invalidParams(err)
	}

	typ, err := img.MakeFromString(string(req.Format))
	if err != nil {
		return nil, err
	}

	ci, err := s.decode(ctx, typ, req.ImageDataType, req.Data)
	if err != nil {
		return nil, err
	}

	w, h := ci.Size()
	scale, err := scaleFor(req, w, h)
	if err != nil {
		return nil, err
	}
	if err = ci.Transform(img.WithScale(scale, s.maxOutputPixels)); err != nil {
		return nil, err
	}

	encoded, err := encode(ctx, ci, req.Quality)
	if err != nil {
		return nil, err
	}
	w, h = ci.Size()

	if req.StoreImage == 1 {
		url, err := s.put(ctx, putParams{
			action:    bridge.ActionResizeImage,
			album:     req.PhotoAlbum == 1,
			directory: req.Directory,
			filename:  req.Filename,
			typ:       typ,
			data:      encoded,
			width:     w,
			height:    h,
		})
		if err != nil {
			return nil, err
		}

		return &bridge.ResizeResult{FilePath: url, Width: w, Height: h}, nil
	}

	return &bridge.ResizeResult{
		ImageData: base64.StdEncoding.EncodeToString(encoded),
		Width:     w,
		Height:    h,
	}, nil
}

// scaleFor maps the resize mode to scale factors. Pixel based modes are
// multiplied by the pixel density, factors are used as given.
func scaleFor(req bridge.ResizeRequest, srcWidth, srcHeight int) (img.Scale, error) {
	var (
		scale img.Scale
		err   error
	)

	switch req.ResizeType {
	case bridge.ResizeFactor:
		return img.FactorScale(req.Width, req.Height)
	case bridge.ResizeWidth:
		scale, err = img.WidthScale(req.Width, srcWidth)
	case bridge.ResizeMinPixel:
		scale, err = img.MinPixelScale(req.Width, req.Height, srcWidth, srcHeight)
	default:
		scale, err = img.MaxPixelScale(req.Width, req.Height, srcWidth, srcHeight)
	}
	if err != nil {
		return img.Scale{}, err
	}

	return scale.Density(req.PixelDensity), nil
}

func (s *ImageService) Measure(ctx context.Context, req bridge.SizeRequest) (*bridge.SizeResult, error) {
	ctx, span := s.start(ctx, bridge.ActionImageSize, req.ImageDataType)
	defer span.End()
	logger := log.LoggerWithTrace(ctx, s.logger)

	started := time.Now()
	res, err := s.measure(ctx, req)
	s.finish(span, bridge.ActionImageSize, started, err)
	if err != nil {
		logger.Error("Error measuring image", zap.Error(err))
		return nil, err
	}

	return res, nil
}

func (s *ImageService) measure(ctx context.Context, req bridge.SizeRequest) (*bridge.SizeResult, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, invalidParams(err)
	}

	cacheable := s.cache != nil && req.ImageDataType == bridge.ImageDataURL
	if cacheable {
		if res, ok := s.cache.Get(ctx, req); ok {
			return res, nil
		}
	}

	data, err := s.loader.Load(ctx, req.ImageDataType, req.Data)
	if err != nil {
		return nil, err
	}

	w, h, err := img.DecodeSize(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	res := &bridge.SizeResult{Width: w, Height: h}
	if cacheable {
		s.cache.Set(ctx, req, res)
	}

	return res, nil
}

func (s *ImageService) Store(ctx context.Context, req bridge.StoreRequest) (*bridge.StoreResult, error) {
	ctx, span := s.start(ctx, bridge.ActionStoreImage, req.ImageDataType)
	defer span.End()
	logger := log.LoggerWithTrace(ctx, s.logger)

	started := time.Now()
	res, err := s.store(ctx, req)
	s.finish(span, bridge.ActionStoreImage, started, err)
	if err != nil {
		logger.Error("Error storing image", zap.Error(err))
		return nil, err
	}

	logger.Debug("Stored image", zap.String("url", res.URL))

	return res, nil
}

func (s *ImageService) store(ctx context.Context, req bridge.StoreRequest) (*bridge.StoreResult, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, invalidParams(err)
	}
	if req.Filename == nil {
		return nil, ErrMissingFilename
	}

	typ, err := img.MakeFromString(string(req.Format))
	if err != nil {
		return nil, err
	}

	ci, err := s.decode(ctx, typ, req.ImageDataType, req.Data)
	if err != nil {
		return nil, err
	}

	encoded, err := encode(ctx, ci, req.Quality)
	if err != nil {
		return nil, err
	}
	w, h := ci.Size()

	var directory string
	if req.Directory != nil {
		directory = *req.Directory
	}

	url, err := s.put(ctx, putParams{
		action:    bridge.ActionStoreImage,
		album:     req.PhotoAlbum == 1,
		directory: directory,
		filename:  *req.Filename,
		typ:       typ,
		data:      encoded,
		width:     w,
		height:    h,
	})
	if err != nil {
		return nil, err
	}

	return &bridge.StoreResult{URL: url, Width: w, Height: h}, nil
}

func (s *ImageService) decode(ctx context.Context, typ img.Type, dataType bridge.ImageDataType, data string) (*img.CustomImage, error) {
	raw, err := s.loader.Load(ctx, dataType, data)
	if err != nil {
		return nil, err
	}
	if err = img.CheckPixels(bytes.NewReader(raw), s.maxInputPixels); err != nil {
		return nil, err
	}

	encoder := s.strategy.Apply(typ)
	if encoder == nil {
		return nil, fmt.Errorf("no encoder for %s", typ)
	}

	ci := img.NewCustomImage(encoder)
	if err = ci.Decode(bytes.NewReader(raw)); err != nil {
		return nil, err
	}

	return ci, nil
}

func encode(ctx context.Context, ci *img.CustomImage, quality int) ([]byte, error) {
	reader, _, err := ci.Encode(ctx, float32(quality))
	if err != nil {
		return nil, err
	}

	return io.ReadAll(reader)
}

type putParams struct {
	action    bridge.Action
	album     bool
	directory string
	filename  string
	typ       img.Type
	data      []byte
	width     int
	height    int
}

// put writes to the album store or the temporary store. A name without an
// extension gets the one matching the format; an empty name gets a random one.
func (s *ImageService) put(ctx context.Context, p putParams) (string, error) {
	logger := log.LoggerWithTrace(ctx, s.logger)

	filename := p.filename
	if filename == "" {
		filename = uuid.NewString()
	}
	if path.Ext(filename) == "" {
		filename += p.typ.Extension()
	}
	name := path.Join(p.directory, filename)

	store := s.tempStore
	if p.album {
		store = s.albumStore
	}

	url, err := store.Put(ctx, name, p.data, p.typ.ContentType())
	if err != nil {
		return "", err
	}
	s.metrics.RecordStored(len(p.data))

	if s.catalog != nil {
		err = s.catalog.Record(ctx, catalog.StoredImage{
			URL:       url,
			Name:      name,
			Format:    p.typ.String(),
			Width:     p.width,
			Height:    p.height,
			Bytes:     len(p.data),
			Album:     p.album,
			Action:    p.action.String(),
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			logger.Warn("Error recording stored image", zap.String("url", url), zap.Error(err))
		}
	}

	return url, nil
}

func (s *ImageService) start(ctx context.Context, action bridge.Action, dataType bridge.ImageDataType) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, "service."+action.String(), oteltrace.WithAttributes(
		attribute.String("image.data_type", string(dataType)),
	))
}

func (s *ImageService) finish(span oteltrace.Span, action bridge.Action, started time.Time, err error) {
	s.metrics.RecordAction(action.String(), started, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
