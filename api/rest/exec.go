package rest

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"imageresizer/api/model"
	"imageresizer/bridge"
	"imageresizer/shared/log"
)

// ExecController exposes an Invoker so a bridge in another process can reach
// it through remote.Invoker.
type ExecController struct {
	invoker bridge.Invoker
	timeout time.Duration
	logger  *zap.Logger
}

func NewExecController(app fiber.Router, invoker bridge.Invoker, timeout time.Duration, logger *zap.Logger) *ExecController {
	e := &ExecController{invoker: invoker, timeout: timeout, logger: logger}

	app.Post("/exec/:service/:action", e.Exec)

	return e
}

// Exec runs one action
//
//	@Summary		Execute a resizer action
//	@Description	Runs resizeImage, imageSize or storeImage with a single request record.
//	@Tags			exec
//	@Accept			json
//	@Produce		json
//	@Param			service	path		string				true	"Service name"
//	@Param			action	path		string				true	"Action"
//	@Param			request	body		model.InvokeRequest	true	"Records"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	model.ErrorResponse
//	@Failure		404		{object}	model.ErrorResponse
//	@Failure		422		{object}	model.ErrorResponse
//	@Router			/exec/{service}/{action} [post]
func (e *ExecController) Exec(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), e.timeout)
	defer cancel()
	logger := log.LoggerWithTrace(ctx, e.logger)

	action, err := bridge.MakeActionFromString(c.Params("action"))
	if err != nil {
		logger.Error("Unknown action", zap.Error(err))
		return fail(c, fiber.StatusNotFound, err)
	}

	body := &model.InvokeRequest{}
	if err = c.BodyParser(body); err != nil {
		logger.Error("Error parsing body", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, err)
	}

	args := make([]any, len(body.Args))
	for i, a := range body.Args {
		args[i] = a
	}

	resp, err := e.invoker.Invoke(ctx, c.Params("service"), action, args)
	switch {
	case errors.Is(err, bridge.ErrUnknownAction):
		return fail(c, fiber.StatusNotFound, err)
	case errors.Is(err, bridge.ErrBadArgs):
		return fail(c, fiber.StatusBadRequest, err)
	case err != nil:
		return fail(c, fiber.StatusUnprocessableEntity, err)
	}

	return c.JSON(resp)
}

func fail(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(model.ErrorResponse{Error: err.Error()})
}
