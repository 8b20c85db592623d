package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/database"
	"github.com/wekeepgrowing/semo-keyhub/internal/usecase"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testGracePeriod = 7 * 24 * time.Hour
	testRetention   = 30 * 24 * time.Hour
	testCacheTTL    = 30 * 24 * time.Hour
	testLockTTL     = time.Minute
)

var errCacheMiss = errors.New("cache miss")

// memoryCache is an in-process CacheRepository. Setting err makes every call fail.
type memoryCache struct {
	mu    sync.Mutex
	items map[string]string
	err   error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string]string{}}
}

func (c *memoryCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return c.SetMulti(ctx, map[string]string{key: value}, expiration)
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	value, ok := c.items[key]
	if !ok {
		return "", errCacheMiss
	}
	return value, nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	return c.DeleteMulti(ctx, []string{key})
}

func (c *memoryCache) SetMulti(ctx context.Context, items map[string]string, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	for k, v := range items {
		c.items[k] = v
	}
	return nil
}

func (c *memoryCache) DeleteMulti(ctx context.Context, keys []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *memoryCache) IsNotFound(err error) bool {
	return errors.Is(err, errCacheMiss)
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

func (c *memoryCache) value(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[key]
}

// MockBillingProvider is a mock implementation of provider.BillingProvider
type MockBillingProvider struct {
	mock.Mock
}

func (m *MockBillingProvider) CreateProduct(ctx context.Context, req *provider.CreateProductRequest) (string, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(context.Context, *provider.CreateProductRequest) string); ok {
		return fn(ctx, req), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

func (m *MockBillingProvider) CreatePrice(ctx context.Context, req *provider.CreatePriceRequest) (string, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(context.Context, *provider.CreatePriceRequest) string); ok {
		return fn(ctx, req), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

func (m *MockBillingProvider) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutSessionRequest) (*provider.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CheckoutSession), args.Error(1)
}

func (m *MockBillingProvider) GetSubscription(ctx context.Context, mode model.Mode, subscriptionID string) (*provider.Subscription, error) {
	args := m.Called(ctx, mode, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Subscription), args.Error(1)
}

func (m *MockBillingProvider) VerifyWebhook(payload []byte, signature, secret string) (*provider.WebhookEvent, error) {
	args := m.Called(payload, signature, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.WebhookEvent), args.Error(1)
}

func (m *MockBillingProvider) ExchangeOAuthCode(ctx context.Context, mode model.Mode, code string) (*provider.OAuthToken, error) {
	args := m.Called(ctx, mode, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.OAuthToken), args.Error(1)
}

// MockIdentityProvider is a mock implementation of provider.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyToken(ctx context.Context, bearer string) (*provider.Subject, error) {
	args := m.Called(ctx, bearer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Subject), args.Error(1)
}

func (m *MockIdentityProvider) UpdateSubjectMetadata(ctx context.Context, subjectID string, metadata provider.SubjectMetadata) error {
	args := m.Called(ctx, subjectID, metadata)
	return args.Error(0)
}

// recordingStorage is an AssetStorage that remembers deleted prefixes.
type recordingStorage struct {
	prefixes []string
	count    int
	err      error
}

func (s *recordingStorage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	s.prefixes = append(s.prefixes, prefix)
	if s.err != nil {
		return 0, s.err
	}
	return s.count, nil
}

// fixture wires the use cases against an in-memory database and caches.
type fixture struct {
	db         *gorm.DB
	repos      *database.Repositories
	management *memoryCache
	customer   *memoryCache
	billing    *MockBillingProvider
	identity   *MockIdentityProvider
	sealer     *crypto.AESEncryptionService
	projector  *usecase.CacheProjector
	logger     *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Platform{},
		&model.Project{},
		&model.Tier{},
		&model.BillingEvent{},
		&model.ProcessorToken{},
		&model.Customer{},
		&model.UsageRecord{},
		&model.KeyLock{},
	))

	sealer, err := crypto.NewAESEncryptionService(strings.Repeat("5a", 32))
	require.NoError(t, err)

	logger := zap.NewNop()
	repos := database.NewRepositories(db, logger, "free")
	management := newMemoryCache()
	customer := newMemoryCache()

	return &fixture{
		db:         db,
		repos:      repos,
		management: management,
		customer:   customer,
		billing:    new(MockBillingProvider),
		identity:   new(MockIdentityProvider),
		sealer:     sealer,
		projector:  usecase.NewCacheProjector(management, customer, repos.Platform, testCacheTTL, testGracePeriod, logger),
		logger:     logger,
	}
}

func (f *fixture) keyManager() *usecase.KeyManager {
	return usecase.NewKeyManager(f.repos.Project, f.repos.Tier, f.repos.KeyLock, testLockTTL, f.projector, f.sealer, f.logger)
}

func (f *fixture) tierUsecase() *usecase.TierUsecase {
	return usecase.NewTierUsecase(f.repos.Project, f.repos.Tier, f.repos.ProcessorToken, f.billing, f.projector, f.logger)
}

func (f *fixture) promotionEngine() *usecase.PromotionEngine {
	return usecase.NewPromotionEngine(f.repos.Project, f.repos.Tier, f.repos.ProcessorToken, f.repos.KeyLock,
		testLockTTL, f.billing, f.projector, f.sealer, f.logger)
}

func (f *fixture) platform(t *testing.T, subjectID string) *model.Platform {
	t.Helper()
	platform, err := f.repos.Platform.EnsureBySubjectID(context.Background(), subjectID)
	require.NoError(t, err)
	require.NotNil(t, platform)
	return platform
}

func (f *fixture) connect(t *testing.T, platformID uuid.UUID, mode model.Mode, accountID string) {
	t.Helper()
	enc, iv, err := f.sealer.Encrypt("tok_" + accountID)
	require.NoError(t, err)
	require.NoError(t, f.repos.ProcessorToken.Upsert(context.Background(), &model.ProcessorToken{
		PlatformID:     platformID,
		Mode:           mode,
		AccountID:      accountID,
		AccessTokenEnc: enc,
		AccessTokenIV:  iv,
		Scope:          "read_write",
	}))
}

func int64Ptr(v int64) *int64 {
	return &v
}

func timePtr(v time.Time) *time.Time {
	return &v
}
