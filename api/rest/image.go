package rest

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"imageresizer/api/model"
	"imageresizer/bridge"
	"imageresizer/catalog"
	"imageresizer/shared/log"
)

type imageLister interface {
	List(ctx context.Context, limit int64) ([]catalog.StoredImage, error)
}

// ImageController is the host-facing surface: each route builds a record
// through the bridge and waits for its outcome.
type ImageController struct {
	bridge  *bridge.Bridge
	lister  imageLister
	timeout time.Duration
	logger  *zap.Logger
}

// NewImageController registers GET /images only when a catalog is given.
func NewImageController(app fiber.Router, b *bridge.Bridge, c *catalog.Catalog, timeout time.Duration, logger *zap.Logger) *ImageController {
	i := &ImageController{bridge: b, timeout: timeout, logger: logger}

	app.Get("/healthz", i.Health)
	app.Post("/images/resize", i.Resize)
	app.Post("/images/size", i.Size)
	app.Post("/images/store", i.Store)

	if c != nil {
		i.lister = c
		app.Get("/images", i.List)
	}

	return i
}

// Resize image
//
//	@Summary		Resize an image
//	@Description	Resizes base64 or URL image data. Options use the resizeImage option keys.
//	@Tags			image
//	@Accept			json
//	@Produce		json
//	@Param			request	body		model.ResizeRequest	true	"Image and options"
//	@Success		200		{object}	bridge.ResizeResult
//	@Failure		400		{object}	model.ErrorResponse
//	@Failure		422		{object}	model.ErrorResponse
//	@Router			/images/resize [post]
func (i *ImageController) Resize(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), i.timeout)
	defer cancel()
	logger := log.LoggerWithTrace(ctx, i.logger)

	body := &model.ResizeRequest{}
	if err := c.BodyParser(body); err != nil {
		logger.Error("Error parsing body", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, err)
	}

	opts, err := bridge.DecodeResizeOptions(body.Options)
	if err != nil {
		return i.badOptions(c, logger, err)
	}

	return i.respond(ctx, c, logger, i.bridge.Resize(ctx, body.Data, body.Width, body.Height, opts))
}

// Size of image
//
//	@Summary		Measure an image
//	@Tags			image
//	@Accept			json
//	@Produce		json
//	@Param			request	body		model.SizeRequest	true	"Image and options"
//	@Success		200		{object}	bridge.SizeResult
//	@Failure		400		{object}	model.ErrorResponse
//	@Failure		422		{object}	model.ErrorResponse
//	@Router			/images/size [post]
func (i *ImageController) Size(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), i.timeout)
	defer cancel()
	logger := log.LoggerWithTrace(ctx, i.logger)

	body := &model.SizeRequest{}
	if err := c.BodyParser(body); err != nil {
		logger.Error("Error parsing body", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, err)
	}

	opts, err := bridge.DecodeSizeOptions(body.Options)
	if err != nil {
		return i.badOptions(c, logger, err)
	}

	return i.respond(ctx, c, logger, i.bridge.Size(ctx, body.Data, opts))
}

// Store image
//
//	@Summary		Store an image
//	@Description	Writes the image to the photo album or the temporary directory. options.filename is required.
//	@Tags			image
//	@Accept			json
//	@Produce		json
//	@Param			request	body		model.StoreRequest	true	"Image and options"
//	@Success		200		{object}	bridge.StoreResult
//	@Failure		400		{object}	model.ErrorResponse
//	@Failure		422		{object}	model.ErrorResponse
//	@Router			/images/store [post]
func (i *ImageController) Store(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), i.timeout)
	defer cancel()
	logger := log.LoggerWithTrace(ctx, i.logger)

	body := &model.StoreRequest{}
	if err := c.BodyParser(body); err != nil {
		logger.Error("Error parsing body", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, err)
	}

	opts, err := bridge.DecodeStoreOptions(body.Options)
	if err != nil {
		return i.badOptions(c, logger, err)
	}

	return i.respond(ctx, c, logger, i.bridge.Store(ctx, body.Data, opts))
}

// List stored images
//
//	@Summary		List stored images
//	@Tags			image
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of records"
//	@Success		200		{array}		catalog.StoredImage
//	@Failure		500		{object}	model.ErrorResponse
//	@Router			/images [get]
func (i *ImageController) List(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), i.timeout)
	defer cancel()
	logger := log.LoggerWithTrace(ctx, i.logger)

	images, err := i.lister.List(ctx, int64(c.QueryInt("limit", catalog.DefaultListLimit)))
	if err != nil {
		logger.Error("Error listing images", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(images)
}

// Health
//
//	@Summary	Liveness probe
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	model.HealthResponse
//	@Router		/healthz [get]
func (i *ImageController) Health(c *fiber.Ctx) error {
	return c.JSON(model.HealthResponse{Status: "ok"})
}

func (i *ImageController) badOptions(c *fiber.Ctx, logger *zap.Logger, err error) error {
	if errors.Is(err, bridge.ErrUnknownOption) {
		logger.Warn("Rejected options", zap.Error(err))
	} else {
		logger.Error("Error parsing options", zap.Error(err))
	}
	return fail(c, fiber.StatusBadRequest, err)
}

func (i *ImageController) respond(ctx context.Context, c *fiber.Ctx, logger *zap.Logger, p *bridge.Pending) error {
	resp, err := p.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Error("Timed out waiting for the executor", zap.Error(err))
		return fail(c, fiber.StatusGatewayTimeout, err)
	}
	if err != nil {
		return fail(c, fiber.StatusUnprocessableEntity, err)
	}

	return c.JSON(resp)
}
