package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hyperdxio/otel-config-go/otelconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"imageresizer/api/rest"
	"imageresizer/bridge"
	"imageresizer/cache"
	"imageresizer/catalog"
	"imageresizer/config"
	img "imageresizer/converter/image"
	"imageresizer/remote"
	"imageresizer/service"
	"imageresizer/shared/log"
	"imageresizer/shared/metrics"
	"imageresizer/shared/trace"
	"imageresizer/storage"
)

//	@title			Image resizer service
//	@version		1.0
//	@description	Resizes, measures and stores images through the ImageResizePlugin bridge

// @BasePath	/
func main() {
	serviceConfig := config.MustNew()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := trace.InitTrace(os.Stdout)
	if err != nil {
		slog.Error("Error initializing tracer", "error", err)
		panic(err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down tracer provider", "error", err)
		}
	}()

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		slog.Error("Error configuring OpenTelemetry", "error", err)
	} else {
		defer otelShutdown()
	}

	logger, logShutdown := log.InitLogger(ctx, serviceConfig.LogLevel)
	defer func() {
		_ = logger.Sync()
		if err := logShutdown(context.Background()); err != nil {
			slog.Error("Error shutting down logger provider", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	tempStore, albumStore := mustStores(serviceConfig, logger)

	serviceOpts := []service.Option{
		service.WithMetrics(appMetrics),
		service.WithPixelLimits(serviceConfig.MaxInputPixels, serviceConfig.MaxOutputPixels),
		service.WithLoader(service.NewLoader(
			&http.Client{Timeout: serviceConfig.RequestTimeout()},
			serviceConfig.MaxDownloadBytes(),
			logger,
			fileRoots(serviceConfig, tempStore, albumStore)...,
		)),
	}

	var imageCatalog *catalog.Catalog
	if serviceConfig.MongoURI != "" {
		client, err := mongo.Connect(options.Client().ApplyURI(serviceConfig.MongoURI))
		if err != nil {
			logger.Fatal("Error connecting to MongoDB", zap.Error(err))
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("Error disconnecting from MongoDB", zap.Error(err))
			}
		}()

		imageCatalog = catalog.New(client, serviceConfig.MongoDatabase, serviceConfig.MongoCollection, logger)
		serviceOpts = append(serviceOpts, service.WithCatalog(imageCatalog))
	}

	if serviceConfig.CacheEnabled {
		dragonflyConfig, err := config.NewDragonflyConfig()
		if err != nil {
			logger.Fatal("Error reading cache config", zap.Error(err))
		}

		rdb := redis.NewClient(&redis.Options{
			Addr:     dragonflyConfig.Addr(),
			Password: dragonflyConfig.Password,
			DB:       dragonflyConfig.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Cache unreachable, continuing without it", zap.Error(err))
		} else {
			serviceOpts = append(serviceOpts, service.WithSizeCache(cache.NewSizeCache(rdb, serviceConfig.CacheTTL(), logger)))
		}
	}

	imageService := service.NewImageService(img.MustStrategy(logger), tempStore, albumStore, logger, serviceOpts...)
	dispatcher := bridge.NewDispatcher(imageService, logger)

	var invoker bridge.Invoker = dispatcher
	if serviceConfig.ExecutorURL != "" {
		invoker = remote.NewInvoker(serviceConfig.ExecutorURL, serviceConfig.RequestTimeout(), logger)
		logger.Info("Using remote executor", zap.String("url", serviceConfig.ExecutorURL))
	}

	bridgeOpts := []bridge.Option{bridge.WithMetrics(appMetrics)}
	if serviceConfig.LiteralWidth {
		bridgeOpts = append(bridgeOpts, bridge.WithLiteralWidth())
	}
	imageBridge := bridge.New(invoker, logger, bridgeOpts...)

	app := fiber.New(fiber.Config{
		AppName:   serviceConfig.AppName,
		BodyLimit: serviceConfig.BodyLimitMB << 20,
	})
	app.Use(
		recover.New(),
		otelfiber.Middleware(),
		fiberzap.New(fiberzap.Config{Logger: logger}),
		compress.New(compress.Config{Level: compress.LevelBestSpeed}),
		etag.New(),
		limiter.New(limiter.Config{
			Next: func(c *fiber.Ctx) bool {
				return c.IP() == "127.0.0.1"
			},
			Max:        serviceConfig.RateLimitMaxRequests,
			Expiration: serviceConfig.RateLimitDuration(),
		}),
		swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "Image resizer service",
		}),
	)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	rest.NewExecController(app, dispatcher, serviceConfig.RequestTimeout(), logger)
	rest.NewImageController(app, imageBridge, imageCatalog, serviceConfig.RequestTimeout(), logger)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Error shutting down server", zap.Error(err))
		}
	}()

	if err = app.Listen(":" + serviceConfig.Port); err != nil {
		logger.Panic(err.Error())
	}
}

// fileRoots lists the directories file sources may be read from.
func fileRoots(cfg *config.Config, stores ...storage.Store) []string {
	if cfg.FileURLRoot != "" {
		return []string{cfg.FileURLRoot}
	}

	var roots []string
	for _, st := range stores {
		if local, ok := st.(*storage.LocalStore); ok {
			roots = append(roots, local.Root())
		}
	}
	return roots
}

// mustStores returns the temporary store and the photo album store. The album
// lives in S3 when a bucket is configured.
func mustStores(cfg *config.Config, logger *zap.Logger) (storage.Store, storage.Store) {
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "imageresizer")
	}

	tempStore, err := storage.NewLocalStore(tempDir, logger)
	if err != nil {
		logger.Fatal("Error creating temporary store", zap.Error(err))
	}

	if !cfg.S3Enabled() {
		albumStore, err := storage.NewLocalStore(cfg.AlbumDir, logger)
		if err != nil {
			logger.Fatal("Error creating album store", zap.Error(err))
		}
		return tempStore, albumStore
	}

	awsSession, err := session.NewSession(&aws.Config{
		Region:           aws.String(cfg.S3Region),
		Credentials:      credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Endpoint:         aws.String(cfg.S3Endpoint),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		logger.Fatal("Failed to create aws session", zap.Error(err))
	}

	return tempStore, storage.NewS3Store(s3.New(awsSession), cfg.S3Bucket, cfg.S3Prefix, cfg.S3Endpoint, logger)
}
