package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tierRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTierRepository creates a new tier repository
func NewTierRepository(db *gorm.DB, logger *zap.Logger) repository.TierRepository {
	return &tierRepository{
		db:     db,
		logger: logger,
	}
}

// ListByProject returns tiers in display order
func (r *tierRepository) ListByProject(ctx context.Context, publishableKey string) ([]*model.Tier, error) {
	var tiers []*model.Tier

	err := r.db.WithContext(ctx).
		Where("publishable_key = ?", publishableKey).
		Order("sort_order ASC, id ASC").
		Find(&tiers).Error
	if err != nil {
		r.logger.Error("Failed to list tiers",
			zap.String("publishable_key", publishableKey),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}

	return tiers, nil
}

// Get retrieves a single tier
func (r *tierRepository) Get(ctx context.Context, publishableKey, name string) (*model.Tier, error) {
	var tier model.Tier

	err := r.db.WithContext(ctx).
		Where("publishable_key = ? AND name = ?", publishableKey, name).
		First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get tier",
			zap.String("publishable_key", publishableKey),
			zap.String("name", name),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get tier: %w", err)
	}

	return &tier, nil
}

// Upsert inserts or replaces a tier keyed by (publishable_key, name)
func (r *tierRepository) Upsert(ctx context.Context, tier *model.Tier) (*model.Tier, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "publishable_key"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name", "price", "currency", "usage_limit",
				"price_id", "product_id", "sort_order", "metadata", "updated_at",
			}),
		}).
		Create(tier).Error
	if err != nil {
		r.logger.Error("Failed to upsert tier",
			zap.String("publishable_key", tier.PublishableKey),
			zap.String("name", tier.Name),
			zap.Error(err))
		return nil, fmt.Errorf("failed to upsert tier: %w", err)
	}

	return r.Get(ctx, tier.PublishableKey, tier.Name)
}

// Delete removes a tier. It reports whether a row existed.
func (r *tierRepository) Delete(ctx context.Context, publishableKey, name string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("publishable_key = ? AND name = ?", publishableKey, name).
		Delete(&model.Tier{})
	if result.Error != nil {
		r.logger.Error("Failed to delete tier",
			zap.String("publishable_key", publishableKey),
			zap.String("name", name),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to delete tier: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}
