package config

import (
	"net"
	"strconv"
	"time"
)

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	ClientURL   string `mapstructure:"client_url"`
	// EncryptionKey is the hex-encoded 32-byte AES key for processor tokens and last-issued secrets.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// CacheConfig configures the two derived caches.
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	Management RedisConfig   `mapstructure:"management"`
	Customer   RedisConfig   `mapstructure:"customer"`

	// InvalidationChannel is the pub/sub channel on the customer cache that receives a message
	// after every projection. Empty disables broadcasting.
	InvalidationChannel string `mapstructure:"invalidation_channel"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port for the go-redis client.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StorageConfig points at the S3-compatible bucket holding tenant assets.
type StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	EndpointURL     string `mapstructure:"endpoint_url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Prefix          string `mapstructure:"prefix"`
}

// Enabled reports whether asset purging can talk to a bucket.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

type StripeConfig struct {
	// SandboxSecretKey and ProductionSecretKey are the platform account keys per mode.
	SandboxSecretKey    string `mapstructure:"sandbox_secret_key"`
	ProductionSecretKey string `mapstructure:"production_secret_key"`
	WebhookSecret       string `mapstructure:"webhook_secret"`
	// BillingMode selects which key bills tenants for their own platform subscription.
	BillingMode string `mapstructure:"billing_mode"`
	// PlanPrices maps a platform plan name (e.g. "pro") to a processor price id.
	PlanPrices map[string]string `mapstructure:"plan_prices"`
	TrialDays  int               `mapstructure:"trial_days"`
}

type IdentityConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	ProjectURL string        `mapstructure:"project_url"`
	APIKey     string        `mapstructure:"api_key"`
	FreePlan   string        `mapstructure:"free_plan"`
	Timeout    time.Duration `mapstructure:"timeout"`
}
