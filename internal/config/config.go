package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/wekeepgrowing/semo-keyhub/pkg/config"
	"github.com/wekeepgrowing/semo-keyhub/pkg/logger"
)

// ServiceName is used for the config file name and the env var prefix (KEYHUB_...).
const ServiceName = "keyhub"

type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       logger.Config   `mapstructure:"log"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"service.name":                  ServiceName,
		"service.environment":           "development",
		"server.http.host":              "0.0.0.0",
		"server.http.port":              8080,
		"server.grpc.host":              "0.0.0.0",
		"server.grpc.port":              9090,
		"database.port":                 5432,
		"database.ssl_mode":             "disable",
		"database.max_open_conns":       20,
		"database.max_idle_conns":       5,
		"database.conn_max_lifetime":    "30m",
		"database.conn_max_idle_time":   "5m",
		"database.auto_migrate":         true,
		"log.level":                     "info",
		"log.format":                    "json",
		"log.output":                    "stdout",
		"cache.ttl":                     "720h",
		"cache.management.port":         6379,
		"cache.customer.port":           6379,
		"cache.customer.db":             1,
		"cache.invalidation_channel":    "keyhub:invalidate",
		"storage.region":                "us-east-1",
		"storage.prefix":                "platforms",
		"stripe.billing_mode":           "production",
		"stripe.trial_days":             0,
		"identity.free_plan":            "free",
		"identity.timeout":              "10s",
		"lifecycle.grace_period_days":   7,
		"lifecycle.retention_days":      30,
		"lifecycle.sweep_interval":      "24h",
		"lifecycle.sweep_enabled":       true,
		"lifecycle.lock_ttl":            "2m",
		"lifecycle.period_end_fallback": "336h",
	}
}

// LoadConfig reads configs/{APP_ENV}/keyhub.yaml (falling back to configs/example) and
// applies KEYHUB_* environment overrides.
func LoadConfig() (*Config, error) {
	var cfg Config
	if _, err := pkgconfig.NewLoader(ServiceName).WithDefaults(defaults()).Load(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late at request time.
func (c *Config) Validate() error {
	if c.Lifecycle.GracePeriodDays <= 0 {
		return fmt.Errorf("lifecycle.grace_period_days must be positive")
	}
	if c.Lifecycle.RetentionDays < c.Lifecycle.GracePeriodDays {
		return fmt.Errorf("lifecycle.retention_days (%d) must not be shorter than grace_period_days (%d)",
			c.Lifecycle.RetentionDays, c.Lifecycle.GracePeriodDays)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Service.Environment == "production"
}

type LifecycleConfig struct {
	GracePeriodDays int           `mapstructure:"grace_period_days"`
	RetentionDays   int           `mapstructure:"retention_days"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	SweepEnabled    bool          `mapstructure:"sweep_enabled"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	// PeriodEndFallback is added to "now" when a subscription event carries neither a period end nor a trial end.
	PeriodEndFallback time.Duration `mapstructure:"period_end_fallback"`
}

// GracePeriod returns the grace window as a duration.
func (l LifecycleConfig) GracePeriod() time.Duration {
	return time.Duration(l.GracePeriodDays) * 24 * time.Hour
}

// RetentionPeriod returns the retention window as a duration.
func (l LifecycleConfig) RetentionPeriod() time.Duration {
	return time.Duration(l.RetentionDays) * 24 * time.Hour
}
