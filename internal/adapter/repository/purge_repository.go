package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type purgeRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPurgeRepository creates the repository used by the retention sweep
func NewPurgeRepository(db *gorm.DB, logger *zap.Logger) repository.PurgeRepository {
	return &purgeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *purgeRepository) deleteByPlatform(ctx context.Context, value interface{}, table string, platformID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("platform_id = ?", platformID).
		Delete(value)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", table, result.Error)
	}

	r.logger.Info("Purged tenant rows",
		zap.String("platform_id", platformID.String()),
		zap.String("table", table),
		zap.Int64("rows", result.RowsAffected))
	return result.RowsAffected, nil
}

func (r *purgeRepository) DeleteUsageRecords(ctx context.Context, platformID uuid.UUID) (int64, error) {
	return r.deleteByPlatform(ctx, &model.UsageRecord{}, "usage_records", platformID)
}

func (r *purgeRepository) DeleteCustomers(ctx context.Context, platformID uuid.UUID) (int64, error) {
	return r.deleteByPlatform(ctx, &model.Customer{}, "customers", platformID)
}

func (r *purgeRepository) DeleteProcessorTokens(ctx context.Context, platformID uuid.UUID) (int64, error) {
	return r.deleteByPlatform(ctx, &model.ProcessorToken{}, "processor_tokens", platformID)
}

// DeleteTiers removes tiers of every project the platform owns
func (r *purgeRepository) DeleteTiers(ctx context.Context, platformID uuid.UUID) (int64, error) {
	projectKeys := r.db.Model(&model.Project{}).
		Select("publishable_key").
		Where("platform_id = ?", platformID)

	result := r.db.WithContext(ctx).
		Where("publishable_key IN (?)", projectKeys).
		Delete(&model.Tier{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete tiers: %w", result.Error)
	}

	r.logger.Info("Purged tenant rows",
		zap.String("platform_id", platformID.String()),
		zap.String("table", "tiers"),
		zap.Int64("rows", result.RowsAffected))
	return result.RowsAffected, nil
}

// DeleteProjects removes the platform's projects and returns them so callers can evict caches
func (r *purgeRepository) DeleteProjects(ctx context.Context, platformID uuid.UUID) ([]*model.Project, error) {
	var projects []*model.Project

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("platform_id = ?", platformID).Find(&projects).Error; err != nil {
			return err
		}
		if len(projects) == 0 {
			return nil
		}
		return tx.Where("platform_id = ?", platformID).Delete(&model.Project{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete projects: %w", err)
	}

	r.logger.Info("Purged tenant rows",
		zap.String("platform_id", platformID.String()),
		zap.String("table", "projects"),
		zap.Int("rows", len(projects)))
	return projects, nil
}
