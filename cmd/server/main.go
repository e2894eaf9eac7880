package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/findash/bank-import-service/internal/config"
	"github.com/findash/bank-import-service/internal/eventbus"
	"github.com/findash/bank-import-service/internal/handler"
	"github.com/findash/bank-import-service/internal/matching"
	"github.com/findash/bank-import-service/internal/scheduler"
	"github.com/findash/bank-import-service/internal/server"
	"github.com/findash/bank-import-service/internal/service"
	"github.com/findash/bank-import-service/internal/storage"
	"github.com/findash/bank-import-service/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.Logging.Level)
	defer log.Sync()

	ctx := context.Background()
	log.Info(ctx, "Starting application")

	repo := storage.NewMemoryStore()
	log.Info(ctx, "Repository initialized")

	eventBusCfg := &eventbus.Config{
		ChannelBuffer: cfg.EventBus.ChannelBufferSize,
		MaxRetries:    cfg.EventBus.MaxRetries,
	}
	bus := eventbus.New(log, eventBusCfg)

	auditConsumer := eventbus.NewAuditConsumer(repo, log, cfg.EventBus.WorkerCount)
	if err := bus.Subscribe(eventbus.EventTypeImportLifecycle, auditConsumer); err != nil {
		log.Fatal(ctx, "Failed to subscribe consumer",
			"error", err,
		)
	}

	if err := bus.Start(ctx); err != nil {
		log.Fatal(ctx, "Failed to start event bus",
			"error", err,
		)
	}
	log.Info(ctx, "Event bus started")

	engine := matching.NewEngine(repo, repo, repo, log)
	importService := service.NewImportService(repo, engine, bus, log)
	log.Info(ctx, "Services initialized")

	overdueScheduler := scheduler.NewOverdueScheduler(repo, log, cfg.Scheduler.OverdueInterval)
	overdueScheduler.Start(ctx)

	importHandler := handler.NewImportHandler(importService, log)
	healthHandler := handler.NewHealthHandler()

	srv := server.New(cfg, log, importHandler, healthHandler)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal(ctx, "Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	log.Info(ctx, "Application started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown in order:
	// 1. Stop accepting new HTTP requests
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "HTTP server shutdown error",
			"error", err,
		)
	}

	// 2. Stop the overdue scheduler
	if err := overdueScheduler.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "Scheduler shutdown error",
			"error", err,
		)
	}

	// 3. Stop event bus and wait for workers to finish
	if err := bus.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "Event bus shutdown error",
			"error", err,
		)
	}

	log.Info(ctx, "Application stopped gracefully")
}
