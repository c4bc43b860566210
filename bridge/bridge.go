package bridge

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"imageresizer/shared/log"
	"imageresizer/shared/metrics"
)

type (
	SuccessFunc func(Response)
	FailFunc    func(string)
)

// Bridge builds request records and hands them to an Invoker. Calls never
// block the caller and never fail synchronously; every outcome arrives
// through the returned Pending or the callbacks.
type Bridge struct {
	invoker      Invoker
	logger       *zap.Logger
	metrics      *metrics.Metrics
	literalWidth bool
}

type Option func(*Bridge)

// WithLiteralWidth makes resize records take width from the width argument.
func WithLiteralWidth() Option {
	return func(b *Bridge) {
		b.literalWidth = true
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

func New(invoker Invoker, logger *zap.Logger, opts ...Option) *Bridge {
	b := &Bridge{invoker: invoker, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Pending is the eventual outcome of one bridge call.
type Pending struct {
	done chan struct{}
	resp Response
	err  error
}

// Done is closed once the outcome is available.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the call completes or ctx is done. A ctx error does not
// cancel the call itself.
func (p *Pending) Wait(ctx context.Context) (Response, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ResizeRequest returns the record a Resize call with these arguments sends.
func (b *Bridge) ResizeRequest(imageData string, width, height float64, opts *ResizeOptions) ResizeRequest {
	if b.literalWidth {
		return NewLiteralResizeRequest(imageData, width, height, opts)
	}
	return NewResizeRequest(imageData, width, height, opts)
}

func (b *Bridge) Resize(ctx context.Context, imageData string, width, height float64, opts *ResizeOptions) *Pending {
	return b.dispatch(ctx, ActionResizeImage, b.ResizeRequest(imageData, width, height, opts), nil)
}

func (b *Bridge) Size(ctx context.Context, imageData string, opts *SizeOptions) *Pending {
	return b.dispatch(ctx, ActionImageSize, NewSizeRequest(imageData, opts), nil)
}

func (b *Bridge) Store(ctx context.Context, imageData string, opts *StoreOptions) *Pending {
	return b.dispatch(ctx, ActionStoreImage, NewStoreRequest(imageData, opts), nil)
}

// ResizeImage resizes imageData. width and height are pixels, factors or a
// target width depending on the resize type.
func (b *Bridge) ResizeImage(ctx context.Context, success SuccessFunc, fail FailFunc, imageData string,
	width, height float64, opts *ResizeOptions) {
	b.dispatch(ctx, ActionResizeImage, b.ResizeRequest(imageData, width, height, opts), callbacks(success, fail))
}

// GetImageSize reports the dimensions of the unmodified image.
func (b *Bridge) GetImageSize(ctx context.Context, success SuccessFunc, fail FailFunc, imageData string,
	opts *SizeOptions) {
	b.dispatch(ctx, ActionImageSize, NewSizeRequest(imageData, opts), callbacks(success, fail))
}

// StoreImage writes imageData to persistent storage; success receives the url.
func (b *Bridge) StoreImage(ctx context.Context, success SuccessFunc, fail FailFunc, imageData string,
	opts *StoreOptions) {
	b.dispatch(ctx, ActionStoreImage, NewStoreRequest(imageData, opts), callbacks(success, fail))
}

func callbacks(success SuccessFunc, fail FailFunc) func(Response, error) {
	return func(resp Response, err error) {
		if err != nil {
			if fail != nil {
				fail(err.Error())
			}
			return
		}
		if success != nil {
			success(resp)
		}
	}
}

func (b *Bridge) dispatch(ctx context.Context, action Action, record any, onDone func(Response, error)) *Pending {
	p := &Pending{done: make(chan struct{})}

	go func() {
		p.resp, p.err = b.invoke(ctx, action, record)
		b.metrics.RecordBridgeCall(action.String(), p.err)
		close(p.done)

		if onDone != nil {
			onDone(p.resp, p.err)
		}
	}()

	return p
}

func (b *Bridge) invoke(ctx context.Context, action Action, record any) (resp Response, err error) {
	ctx, span := otel.Tracer("imageresizer/bridge").Start(ctx, action.String())
	defer span.End()
	span.SetAttributes(attribute.String("service", ServiceName))

	logger := log.LoggerWithTrace(ctx, b.logger)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: executor panicked: %v", action, r)
		}
		if err != nil {
			span.RecordError(err)
			logger.Debug("Bridge call failed", zap.String("action", action.String()), zap.Error(err))
		}
	}()

	logger.Debug("Dispatching bridge call", zap.String("action", action.String()))

	return b.invoker.Invoke(ctx, ServiceName, action, []any{record})
}
