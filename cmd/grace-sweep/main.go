package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/bootstrap"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	"github.com/wekeepgrowing/semo-keyhub/pkg/logger"
	"go.uber.org/zap"
)

// grace-sweep runs one lifecycle pass outside the server, e.g. from a cron job.
func main() {
	platformFlag := flag.String("platform", "", "purge a single platform by id instead of sweeping; it must be canceled and past retention")
	atFlag := flag.String("at", "", "evaluate as of this RFC3339 time instead of now")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	now := time.Now().UTC()
	if *atFlag != "" {
		now, err = time.Parse(time.RFC3339, *atFlag)
		if err != nil {
			zapLogger.Fatal("Invalid -at value", zap.String("at", *atFlag), zap.Error(err))
		}
	}

	ctx := context.Background()
	container, err := bootstrap.New(ctx, cfg, zapLogger)
	if err != nil {
		// Fatal skips deferred calls; release whatever New managed to open first.
		container.Close()
		zapLogger.Fatal("Failed to initialize service", zap.Error(err))
	}
	defer container.Close()

	if *platformFlag != "" {
		platformID, err := uuid.Parse(*platformFlag)
		if err != nil {
			zapLogger.Fatal("Invalid -platform value", zap.String("platform", *platformFlag), zap.Error(err))
		}
		report, err := container.GraceSweep.Purge(ctx, platformID, now)
		if err != nil {
			zapLogger.Fatal("Purge failed", zap.Error(err))
		}
		zapLogger.Info("Purge finished", zap.Any("report", report))
		return
	}

	report, err := container.GraceSweep.Sweep(ctx, now)
	if err != nil {
		zapLogger.Fatal("Sweep failed", zap.Error(err))
	}
	zapLogger.Info("Sweep finished", zap.Any("report", report))
}
