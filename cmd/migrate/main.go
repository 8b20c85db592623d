package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	"github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/database"
	"github.com/wekeepgrowing/semo-keyhub/pkg/logger"
	"go.uber.org/zap"
)

const usage = `usage: migrate <command>

commands:
  up            apply all pending migrations
  down [n]      roll back n migrations (default 1)
  goto <v>      migrate to version v
  force <v>     set version v without running migrations (clears dirty state)
  status        print the current version`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	m, err := database.NewMigrator(&cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize migrator", zap.Error(err))
	}
	defer m.Close()

	if err := run(m, flag.Args()); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		zapLogger.Fatal("Migration command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		zapLogger.Info("No migrations applied")
	case err != nil:
		zapLogger.Fatal("Failed to read migration version", zap.Error(err))
	default:
		zapLogger.Info("Migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
}

func run(m *migrate.Migrate, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		return m.Steps(-steps)
	case "goto", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s requires a version", args[0])
		}
		v, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if args[0] == "force" {
			return m.Force(int(v))
		}
		return m.Migrate(uint(v))
	case "status":
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
