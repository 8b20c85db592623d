package repository

import (
	"context"
	"fmt"

	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type billingEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewBillingEventRepository creates a new billing event ledger
func NewBillingEventRepository(db *gorm.DB, logger *zap.Logger) repository.BillingEventRepository {
	return &billingEventRepository{
		db:     db,
		logger: logger,
	}
}

// Exists reports whether the event id is already in the ledger
func (r *billingEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.BillingEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	if err != nil {
		r.logger.Error("Failed to check billing event",
			zap.String("event_id", eventID),
			zap.Error(err))
		return false, fmt.Errorf("failed to check billing event: %w", err)
	}

	return count > 0, nil
}

// Record appends the event. A duplicate id is ignored and reported as not inserted.
func (r *billingEventRepository) Record(ctx context.Context, event *model.BillingEvent) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if result.Error != nil {
		r.logger.Error("Failed to record billing event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to record billing event: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}
