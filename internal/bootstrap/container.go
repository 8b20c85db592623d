package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/cache"
	"github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/database"
	"github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/identity"
	stripeProvider "github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/provider/stripe"
	"github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/storage"
	"github.com/wekeepgrowing/semo-keyhub/internal/usecase"
	"github.com/wekeepgrowing/semo-keyhub/pkg/messaging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container owns every long-lived dependency of the service.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	DB         *gorm.DB
	Repos      *database.Repositories
	Management *redis.Client
	Customer   *redis.Client
	Identity   *identity.Client

	Projector  *usecase.CacheProjector
	Keys       *usecase.KeyManager
	Promotion  *usecase.PromotionEngine
	Tiers      *usecase.TierUsecase
	Platforms  *usecase.PlatformUsecase
	Processor  *usecase.ProcessorUsecase
	Webhooks   *usecase.BillingEventProcessor
	GraceSweep *usecase.GracePeriodMonitor
}

// New connects to the database and both caches, then builds the use cases. Close releases
// whatever was opened, also after a partial failure.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	db, err := database.NewConnection(&cfg.Database, logger.Named("database"))
	if err != nil {
		return c, err
	}
	c.DB = db

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(&cfg.Database, logger.Named("migrate")); err != nil {
			return c, err
		}
	}

	c.Management, err = cache.NewRedisClient(cfg.Cache.Management, logger)
	if err != nil {
		return c, fmt.Errorf("management cache: %w", err)
	}
	c.Customer, err = cache.NewRedisClient(cfg.Cache.Customer, logger)
	if err != nil {
		return c, fmt.Errorf("customer cache: %w", err)
	}

	sealer, err := crypto.NewAESEncryptionService(cfg.Service.EncryptionKey)
	if err != nil {
		return c, fmt.Errorf("service.encryption_key: %w", err)
	}

	assets, err := newAssetStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return c, err
	}

	c.Repos = database.NewRepositories(db, logger, cfg.Identity.FreePlan)
	c.Identity = identity.NewClient(cfg.Identity, logger.Named("identity"))
	billing := stripeProvider.NewStripeProvider(cfg.Stripe, logger.Named("stripe"))

	lifecycle := cfg.Lifecycle
	c.Projector = usecase.NewCacheProjector(
		cache.NewRedisRepository(c.Management, logger, "management"),
		cache.NewRedisRepository(c.Customer, logger, "customer"),
		c.Repos.Platform,
		cfg.Cache.TTL,
		lifecycle.GracePeriod(),
		logger,
	).WithInvalidation(messaging.FromClient(c.Customer), cfg.Cache.InvalidationChannel)
	c.Keys = usecase.NewKeyManager(c.Repos.Project, c.Repos.Tier, c.Repos.KeyLock, lifecycle.LockTTL,
		c.Projector, sealer, logger.Named("keys"))
	c.Promotion = usecase.NewPromotionEngine(c.Repos.Project, c.Repos.Tier, c.Repos.ProcessorToken, c.Repos.KeyLock,
		lifecycle.LockTTL, billing, c.Projector, sealer, logger)
	c.Tiers = usecase.NewTierUsecase(c.Repos.Project, c.Repos.Tier, c.Repos.ProcessorToken, billing, c.Projector, logger)
	c.Platforms = usecase.NewPlatformUsecase(c.Repos.Platform, c.Repos.Project, c.Repos.Tier, billing, c.Projector, sealer,
		usecase.PlatformUsecaseConfig{
			PlanPrices:  cfg.Stripe.PlanPrices,
			BillingMode: model.Mode(cfg.Stripe.BillingMode),
			TrialDays:   cfg.Stripe.TrialDays,
		}, logger)
	c.Processor = usecase.NewProcessorUsecase(c.Repos.ProcessorToken, billing, sealer, logger)
	c.Webhooks = usecase.NewBillingEventProcessor(billing, c.Identity, c.Repos.Platform, c.Repos.BillingEvent, c.Projector,
		usecase.BillingEventProcessorConfig{
			WebhookSecret:     cfg.Stripe.WebhookSecret,
			FreePlan:          cfg.Identity.FreePlan,
			PeriodEndFallback: lifecycle.PeriodEndFallback,
		}, logger)
	c.GraceSweep = usecase.NewGracePeriodMonitor(c.Repos.Platform, c.Repos.Purge, assets, c.Projector,
		lifecycle.GracePeriod(), lifecycle.RetentionPeriod(), logger)

	return c, nil
}

func newAssetStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (provider.AssetStorage, error) {
	if !cfg.Enabled() {
		logger.Warn("Asset storage bucket not configured, purges skip tenant assets")
		return storage.NoopAssetStorage{}, nil
	}
	s3, err := storage.NewS3AssetStorage(ctx, cfg, logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("asset storage: %w", err)
	}
	return s3, nil
}

// Close releases the connections opened by New.
func (c *Container) Close() {
	if c.Customer != nil {
		if err := c.Customer.Close(); err != nil {
			c.Logger.Error("Failed to close customer cache", zap.Error(err))
		}
	}
	if c.Management != nil {
		if err := c.Management.Close(); err != nil {
			c.Logger.Error("Failed to close management cache", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := database.Close(c.DB, c.Logger); err != nil {
			c.Logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
}

// Readiness returns ping checks for the database and both caches.
func (c *Container) Readiness() map[string]func(ctx context.Context) error {
	return map[string]func(ctx context.Context) error{
		"database": func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"management_cache": func(ctx context.Context) error {
			return c.Management.Ping(ctx).Err()
		},
		"customer_cache": func(ctx context.Context) error {
			return c.Customer.Ping(ctx).Err()
		},
	}
}
