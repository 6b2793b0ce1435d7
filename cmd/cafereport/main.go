package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cafereport/internal/backend"
	"cafereport/internal/cache"
	"cafereport/internal/cli"
	"cafereport/internal/core"
	"cafereport/internal/draft"
	apphttp "cafereport/internal/http"
	"cafereport/internal/log"
	"cafereport/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting cafereport",
		log.FieldOperation, log.OpStartup,
		"environment", cfg.Environment,
		"draft_backend", cfg.DraftBackend,
		"report_backend", cfg.ReportBackend)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()

	res, err := backend.NewFactory(logger).CreateBackend(initCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err)
		os.Exit(1)
	}

	drafts, err := draft.NewStore(initCtx, res.Drafts, logger)
	if err != nil {
		logger.Error("Failed to load draft", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	builder := core.NewReportBuilder(cfg.MinRowAmount, core.DefaultCatalog())
	reports := services.NewReportService(services.Options{
		Drafts:      drafts,
		Builder:     builder,
		Sink:        res.Sink,
		Previous:    res.Sink,
		Events:      res.Events,
		Backend:     cfg.ReportBackend,
		PreviousTTL: cfg.PreviousTotalTTL,
		Caches:      caches,
		Logger:      logger,
	})
	caches.StartCleanup(time.Minute)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:                ":" + cfg.Port,
		Drafts:              drafts,
		Reports:             reports,
		Builder:             builder,
		Checks:              res.Checks,
		SubmitRatePerMinute: cfg.SubmitRatePerMinute,
		TrustedProxies:      cfg.TrustedProxies,
		Logger:              logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldOperation, log.OpShutdown, log.FieldError, err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldOperation, log.OpShutdown, log.FieldError, err)
		}
	})

	logger.Info("Listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
