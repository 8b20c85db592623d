package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type keyLockRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewKeyLockRepository creates a new advisory lock repository
func NewKeyLockRepository(db *gorm.DB, logger *zap.Logger) repository.KeyLockRepository {
	return &keyLockRepository{
		db:     db,
		logger: logger,
	}
}

// Acquire inserts the lock row, or takes over a row whose lease has expired. The conditional
// upsert is a single statement so two callers cannot both win.
func (r *keyLockRepository) Acquire(ctx context.Context, publishableKey, holder, operation string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	lock := &model.KeyLock{
		PublishableKey: publishableKey,
		Holder:         holder,
		Operation:      operation,
		ExpiresAt:      now.Add(ttl),
		CreatedAt:      now,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "publishable_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"holder", "operation", "expires_at", "created_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Lt{Column: clause.Column{Table: model.KeyLock{}.TableName(), Name: "expires_at"}, Value: now},
			}},
		}).
		Create(lock)
	if result.Error != nil {
		r.logger.Error("Failed to acquire key lock",
			zap.String("publishable_key", publishableKey),
			zap.String("operation", operation),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to acquire key lock: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// Extend renews an unexpired lease owned by holder. An expired lease is not revived, since
// another caller may already have acquired it.
func (r *keyLockRepository) Extend(ctx context.Context, publishableKey, holder string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.KeyLock{}).
		Where("publishable_key = ? AND holder = ? AND expires_at >= ?", publishableKey, holder, now).
		Update("expires_at", now.Add(ttl))
	if result.Error != nil {
		r.logger.Error("Failed to extend key lock",
			zap.String("publishable_key", publishableKey),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to extend key lock: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// Release drops the lock if it is still held by holder
func (r *keyLockRepository) Release(ctx context.Context, publishableKey, holder string) error {
	err := r.db.WithContext(ctx).
		Where("publishable_key = ? AND holder = ?", publishableKey, holder).
		Delete(&model.KeyLock{}).Error
	if err != nil {
		r.logger.Error("Failed to release key lock",
			zap.String("publishable_key", publishableKey),
			zap.Error(err))
		return fmt.Errorf("failed to release key lock: %w", err)
	}

	return nil
}
