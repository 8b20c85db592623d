package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/entity"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "keyhub"

// PublishableKeyCacheKey maps a publishable key to its platform id.
func PublishableKeyCacheKey(publishableKey string) string {
	return fmt.Sprintf("%s:pk:%s", cacheKeyPrefix, publishableKey)
}

// SecretHashCacheKey maps a secret hash to its publishable key.
func SecretHashCacheKey(secretHash string) string {
	return fmt.Sprintf("%s:sk:%s", cacheKeyPrefix, secretHash)
}

// TiersCacheKey holds the tier set and mode of one project.
func TiersCacheKey(platformID uuid.UUID, publishableKey string) string {
	return fmt.Sprintf("%s:tiers:%s:%s", cacheKeyPrefix, platformID, publishableKey)
}

// SubscriptionCacheKey holds the platform's SubscriptionCacheEntry.
func SubscriptionCacheKey(platformID uuid.UUID) string {
	return fmt.Sprintf("%s:sub:%s", cacheKeyPrefix, platformID)
}

// CacheProjector writes derived lookups to the management and customer caches after store
// writes. Every write goes to both caches; failures are logged and never returned.
type CacheProjector struct {
	management  repository.CacheRepository
	customer    repository.CacheRepository
	platforms   repository.PlatformRepository
	ttl         time.Duration
	gracePeriod time.Duration
	logger      *zap.Logger

	publisher InvalidationPublisher
	channel   string
}

// InvalidationPublisher broadcasts cache changes. messaging.PubSub satisfies it.
type InvalidationPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// NewCacheProjector creates a projector. ttl bounds how long a missed write can leave an
// entry stale.
func NewCacheProjector(
	management repository.CacheRepository,
	customer repository.CacheRepository,
	platforms repository.PlatformRepository,
	ttl time.Duration,
	gracePeriod time.Duration,
	logger *zap.Logger,
) *CacheProjector {
	return &CacheProjector{
		management:  management,
		customer:    customer,
		platforms:   platforms,
		ttl:         ttl,
		gracePeriod: gracePeriod,
		logger:      logger.Named("cache_projector"),
	}
}

// WithInvalidation makes the projector publish an entity.CacheInvalidation on channel after
// every write and eviction.
func (p *CacheProjector) WithInvalidation(publisher InvalidationPublisher, channel string) *CacheProjector {
	p.publisher = publisher
	p.channel = channel
	return p
}

func (p *CacheProjector) publish(ctx context.Context, op string, keys []string) {
	if p.publisher == nil || p.channel == "" {
		return
	}
	event := entity.CacheInvalidation{Op: op, Keys: keys, At: time.Now().UnixMilli()}
	if err := p.publisher.Publish(ctx, p.channel, event); err != nil {
		p.logger.Warn("Cache invalidation publish failed",
			zap.String("channel", p.channel),
			zap.Strings("keys", keys),
			zap.Error(err))
	}
}

func (p *CacheProjector) caches() map[string]repository.CacheRepository {
	return map[string]repository.CacheRepository{
		"management": p.management,
		"customer":   p.customer,
	}
}

func (p *CacheProjector) write(ctx context.Context, items map[string]string) {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for name, cache := range p.caches() {
		if err := cache.SetMulti(ctx, items, p.ttl); err != nil {
			p.logger.Warn("Cache projection failed",
				zap.String("cache", name),
				zap.Strings("keys", keys),
				zap.Error(err))
		}
	}
	p.publish(ctx, "set", keys)
}

func (p *CacheProjector) remove(ctx context.Context, keys []string) {
	for name, cache := range p.caches() {
		if err := cache.DeleteMulti(ctx, keys); err != nil {
			p.logger.Warn("Cache eviction failed",
				zap.String("cache", name),
				zap.Strings("keys", keys),
				zap.Error(err))
		}
	}
	p.publish(ctx, "delete", keys)
}

// ProjectKeys writes the publishable key and secret hash reverse lookups.
func (p *CacheProjector) ProjectKeys(ctx context.Context, project *model.Project) {
	p.write(ctx, map[string]string{
		PublishableKeyCacheKey(project.PublishableKey): project.PlatformID.String(),
		SecretHashCacheKey(project.SecretKeyHash):      project.PublishableKey,
	})
}

// RemoveSecretHash drops the reverse lookup of a retired secret.
func (p *CacheProjector) RemoveSecretHash(ctx context.Context, secretHash string) {
	p.remove(ctx, []string{SecretHashCacheKey(secretHash)})
}

// ProjectTiers writes the tier set of one project.
func (p *CacheProjector) ProjectTiers(ctx context.Context, project *model.Project, tiers []*model.Tier) {
	payload, err := json.Marshal(TiersEntry(project, tiers))
	if err != nil {
		p.logger.Error("Failed to encode tier projection",
			zap.String("publishable_key", project.PublishableKey),
			zap.Error(err))
		return
	}
	p.write(ctx, map[string]string{
		TiersCacheKey(project.PlatformID, project.PublishableKey): string(payload),
	})
}

// ProjectProject writes every lookup derived from one project.
func (p *CacheProjector) ProjectProject(ctx context.Context, project *model.Project, tiers []*model.Tier) {
	p.ProjectKeys(ctx, project)
	p.ProjectTiers(ctx, project, tiers)
}

// EvictProject removes every lookup derived from one project.
func (p *CacheProjector) EvictProject(ctx context.Context, project *model.Project) {
	p.remove(ctx, []string{
		PublishableKeyCacheKey(project.PublishableKey),
		SecretHashCacheKey(project.SecretKeyHash),
		TiersCacheKey(project.PlatformID, project.PublishableKey),
	})
}

// ProjectSubscription writes the platform's subscription entry.
func (p *CacheProjector) ProjectSubscription(ctx context.Context, platform *model.Platform) {
	payload, err := json.Marshal(p.SubscriptionEntry(platform))
	if err != nil {
		p.logger.Error("Failed to encode subscription projection",
			zap.String("platform_id", platform.PlatformID.String()),
			zap.Error(err))
		return
	}
	p.write(ctx, map[string]string{
		SubscriptionCacheKey(platform.PlatformID): string(payload),
	})
}

// SubscriptionEntry derives the cache entry from the stored platform. The grace end is only
// set for canceled subscriptions with a known period end.
func (p *CacheProjector) SubscriptionEntry(platform *model.Platform) *entity.SubscriptionCacheEntry {
	entry := &entity.SubscriptionCacheEntry{Status: string(platform.Status)}
	if platform.CurrentPeriodEnd != nil {
		periodEnd := platform.CurrentPeriodEnd.UnixMilli()
		entry.CurrentPeriodEnd = &periodEnd
		if platform.Status == model.SubscriptionStatusCanceled {
			graceEnd := platform.CurrentPeriodEnd.Add(p.gracePeriod).UnixMilli()
			entry.GracePeriodEnd = &graceEnd
		}
	}
	return entry
}

// ReadSubscription reads the customer cache and rebuilds the entry from the store on a miss.
// It returns nil when the platform does not exist.
func (p *CacheProjector) ReadSubscription(ctx context.Context, platformID uuid.UUID) (*entity.SubscriptionCacheEntry, error) {
	raw, err := p.customer.Get(ctx, SubscriptionCacheKey(platformID))
	if err == nil {
		var entry entity.SubscriptionCacheEntry
		if jsonErr := json.Unmarshal([]byte(raw), &entry); jsonErr == nil {
			return &entry, nil
		}
		p.logger.Warn("Discarding undecodable subscription entry",
			zap.String("platform_id", platformID.String()))
	} else if !p.customer.IsNotFound(err) {
		p.logger.Warn("Subscription cache read failed, falling back to store",
			zap.String("platform_id", platformID.String()),
			zap.Error(err))
	}

	platform, err := p.platforms.GetByID(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, nil
	}

	p.ProjectSubscription(ctx, platform)
	return p.SubscriptionEntry(platform), nil
}

// TiersEntry derives the cached tier set of one project.
func TiersEntry(project *model.Project, tiers []*model.Tier) *entity.ProjectTiersCacheEntry {
	entry := &entity.ProjectTiersCacheEntry{
		PublishableKey: project.PublishableKey,
		Mode:           string(project.Mode),
		ProjectType:    string(project.ProjectType),
		Status:         string(project.Status),
		Tiers:          make([]entity.CachedTier, 0, len(tiers)),
	}
	for _, tier := range tiers {
		cached := entity.CachedTier{
			Name:        tier.Name,
			DisplayName: tier.DisplayName,
			Price:       tier.Price,
			Currency:    tier.Currency,
			Limit:       tier.UsageLimit,
			Features:    tier.Metadata.Data().Features(),
		}
		if tier.PriceID != nil {
			cached.PriceID = *tier.PriceID
		}
		entry.Tiers = append(entry.Tiers, cached)
	}
	return entry
}
