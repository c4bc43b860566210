package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"imageresizer/api/model"
	"imageresizer/bridge"
	"imageresizer/shared/log"
)

var ErrTransport = errors.New("executor unreachable")

// Invoker sends bridge calls to an executor over HTTP.
type Invoker struct {
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

func NewInvoker(baseURL string, timeout time.Duration, logger *zap.Logger) *Invoker {
	return &Invoker{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout, logger: logger}
}

// Invoke posts {"args": [...]} to {base}/exec/{service}/{action}. A non-200
// answer becomes an *bridge.ExecutorFailure carrying the executor's message.
func (i *Invoker) Invoke(ctx context.Context, service string, action bridge.Action, args []any) (bridge.Response, error) {
	logger := log.LoggerWithTrace(ctx, i.logger).With(zap.String("action", action.String()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := model.InvokeRequest{Args: make([]json.RawMessage, 0, len(args))}
	for _, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("encode %s record: %w", action, err)
		}
		req.Args = append(req.Args, b)
	}

	target := fmt.Sprintf("%s/exec/%s/%s", i.baseURL, url.PathEscape(service), url.PathEscape(action.String()))

	agent := fiber.Post(target).JSON(req)
	if i.timeout > 0 {
		agent.Timeout(i.remaining(ctx))
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		agent.Set(k, v)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		err := fmt.Errorf("%w: %w", ErrTransport, errors.Join(errs...))
		logger.Error("Error calling executor", zap.String("url", target), zap.Error(err))
		return nil, err
	}

	if code != fiber.StatusOK {
		failure := model.ErrorResponse{}
		if err := json.Unmarshal(body, &failure); err != nil || failure.Error == "" {
			failure.Error = fmt.Sprintf("executor answered with status %d", code)
		}
		logger.Debug("Executor failure", zap.Int("status", code), zap.String("error", failure.Error))
		return nil, &bridge.ExecutorFailure{Message: failure.Error}
	}

	resp := bridge.Response{}
	if err := json.Unmarshal(body, &resp); err != nil {
		logger.Error("Error decoding executor response", zap.Error(err))
		return nil, fmt.Errorf("decode %s response: %w", action, err)
	}

	return resp, nil
}

// remaining shortens the timeout to the context deadline when that is sooner.
func (i *Invoker) remaining(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < i.timeout {
			return left
		}
	}
	return i.timeout
}
