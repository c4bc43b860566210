package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"imageresizer/shared/log"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrBadArgs       = errors.New("bad arguments")
)

// Dispatcher is the executor-side Invoker: it routes an action to the
// matching Backend method.
type Dispatcher struct {
	backend Backend
	logger  *zap.Logger
}

func NewDispatcher(backend Backend, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{backend: backend, logger: logger}
}

// Invoke accepts records either as their Go types or as JSON
// (json.RawMessage, []byte, or any value that round-trips through JSON).
func (d *Dispatcher) Invoke(ctx context.Context, service string, action Action, args []any) (Response, error) {
	logger := log.LoggerWithTrace(ctx, d.logger).With(zap.String("action", action.String()))

	if service != ServiceName {
		err := fmt.Errorf("%w: %s.%s", ErrUnknownAction, service, action)
		logger.Error(err.Error())
		return nil, err
	}

	if len(args) != 1 {
		err := fmt.Errorf("%w: expected 1 record, got %d", ErrBadArgs, len(args))
		logger.Error(err.Error())
		return nil, err
	}

	var (
		result any
		err    error
	)

	switch action {
	case ActionResizeImage:
		result, err = call(ctx, args[0], d.backend.Resize)
	case ActionImageSize:
		result, err = call(ctx, args[0], d.backend.Measure)
	case ActionStoreImage:
		result, err = call(ctx, args[0], d.backend.Store)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if err != nil {
		logger.Error("Action failed", zap.Error(err))
		return nil, err
	}

	return toResponse(result)
}

func call[Req, Res any](ctx context.Context, arg any, fn func(context.Context, Req) (*Res, error)) (*Res, error) {
	req, err := decodeArg[Req](arg)
	if err != nil {
		return nil, err
	}
	return fn(ctx, req)
}

func decodeArg[T any](arg any) (T, error) {
	var req T

	switch v := arg.(type) {
	case T:
		return v, nil
	case *T:
		if v == nil {
			return req, fmt.Errorf("%w: nil record", ErrBadArgs)
		}
		return *v, nil
	case json.RawMessage:
		return req, unmarshalArg(v, &req)
	case []byte:
		return req, unmarshalArg(v, &req)
	}

	b, err := json.Marshal(arg)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrBadArgs, err)
	}

	return req, unmarshalArg(b, &req)
}

func unmarshalArg(b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadArgs, err)
	}
	return nil
}
