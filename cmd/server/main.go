package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wekeepgrowing/semo-keyhub/internal/bootstrap"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	grpcServer "github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/http"
	"github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/scheduler"
	"github.com/wekeepgrowing/semo-keyhub/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := bootstrap.New(ctx, cfg, zapLogger)
	if err != nil {
		// Fatal skips deferred calls; release whatever New managed to open first.
		container.Close()
		zapLogger.Fatal("Failed to initialize service", zap.Error(err))
	}
	defer container.Close()

	// Grace period sweep
	var sweeper *scheduler.Runner
	if cfg.Lifecycle.SweepEnabled {
		sweeper = scheduler.NewRunner("grace_sweep", cfg.Lifecycle.SweepInterval, true, func(ctx context.Context) error {
			_, err := container.GraceSweep.Sweep(ctx, time.Now().UTC())
			return err
		}, zapLogger)
		sweeper.Start()
	}

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, zapLogger.Named("grpc"))
	httpSrv := httpServer.NewServer(cfg, zapLogger.Named("http"), httpServer.Services{
		Keys:      container.Keys,
		Promotion: container.Promotion,
		Tiers:     container.Tiers,
		Platforms: container.Platforms,
		Processor: container.Processor,
		Webhooks:  container.Webhooks,
		Verifier:  container.Identity,
		Ensurer:   container.Platforms,
		Readiness: container.Readiness(),
	})

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 15*time.Second)
	defer shutdownCancel()

	if sweeper != nil {
		sweeper.Stop()
	}

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}
