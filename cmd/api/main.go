package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docsearch/docs"
	"docsearch/internal/config"
	"docsearch/internal/database"
	"docsearch/internal/database/migration"
	"docsearch/internal/extractor"
	handlers "docsearch/internal/http/handler"
	"docsearch/internal/http/middleware"
	"docsearch/internal/index"
	"docsearch/internal/index/bleveindex"
	"docsearch/internal/index/postgres"
	"docsearch/internal/logging"
	"docsearch/internal/otel"
	"docsearch/internal/service"
	"docsearch/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Document Search API
// @version 1.0
// @description Upload documents, extract their text and search them.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger := logging.NewStdout(cfg.LogLevel, logging.LoadLocation(cfg.Timezone))

	if err := run(cfg, logger); err != nil {
		logger.Error("server_exit", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown_failed", slog.String("error", err.Error()))
		}
	}()

	store, err := newStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize file storage: %w", err)
	}

	idx, err := newIndex(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize index: %w", err)
	}
	defer func() {
		if err := idx.Close(); err != nil {
			logger.Warn("index_close_failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := service.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register service metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register http metrics: %w", err)
	}

	ingestSvc := service.NewIngestService(store, idx, extractor.NewRegistry(), metrics, logger, service.IngestOptions{
		Workers: cfg.Upload.Workers,
		TempDir: cfg.Upload.TempDir,
	})
	docSvc := service.NewDocumentService(store, idx, metrics, logger, service.SearchOptions{
		DefaultLimit: cfg.Index.DefaultLimit,
		MaxLimit:     cfg.Index.MaxLimit,
	})

	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.Upload.MaxBytes),
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowCredentials: cfg.CORSAllowOrigins != "*",
	}))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, idx, ingestSvc, docSvc)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_start",
			slog.String("addr", ":"+cfg.Port),
			slog.String("storage_backend", cfg.Storage.Backend),
			slog.String("index_backend", cfg.Index.Backend),
		)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func newStorage(cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case config.StorageMinIO:
		// Reusable S3-compatible object storage client (MinIO-supported)
		return storage.NewMinIO(cfg.MinIO)
	default:
		return storage.NewLocal(cfg.Storage.LocalDir)
	}
}

// newIndex opens the configured index. Closing the index releases the
// database pool when the postgres backend is selected.
func newIndex(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (index.Index, error) {
	switch cfg.Index.Backend {
	case config.IndexPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
			db.Close()
			return nil, err
		}
		return postgres.NewDocumentPostgres(db), nil
	default:
		return bleveindex.NewBleveIndex(cfg.Index.BlevePath, logger)
	}
}
