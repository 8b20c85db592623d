package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type platformRepository struct {
	db       *gorm.DB
	logger   *zap.Logger
	columns  columnSet
	freePlan string
}

// NewPlatformRepository creates a new platform repository
func NewPlatformRepository(db *gorm.DB, logger *zap.Logger, freePlan string) repository.PlatformRepository {
	return &platformRepository{
		db:       db,
		logger:   logger,
		columns:  detectColumns(db, logger, &model.Platform{}, "purged_at"),
		freePlan: freePlan,
	}
}

func (r *platformRepository) first(ctx context.Context, query string, args ...interface{}) (*model.Platform, error) {
	var platform model.Platform
	err := r.db.WithContext(ctx).Where(query, args...).First(&platform).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &platform, nil
}

// GetByID retrieves a platform by its id
func (r *platformRepository) GetByID(ctx context.Context, platformID uuid.UUID) (*model.Platform, error) {
	platform, err := r.first(ctx, "platform_id = ?", platformID)
	if err != nil {
		r.logger.Error("Failed to get platform",
			zap.String("platform_id", platformID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get platform: %w", err)
	}
	return platform, nil
}

// GetBySubjectID retrieves a platform by identity provider subject
func (r *platformRepository) GetBySubjectID(ctx context.Context, subjectID string) (*model.Platform, error) {
	platform, err := r.first(ctx, "identity_subject_id = ?", subjectID)
	if err != nil {
		r.logger.Error("Failed to get platform by subject",
			zap.String("subject_id", subjectID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get platform: %w", err)
	}
	return platform, nil
}

// GetByStripeCustomerID retrieves a platform by its billing customer id
func (r *platformRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Platform, error) {
	platform, err := r.first(ctx, "stripe_customer_id = ?", customerID)
	if err != nil {
		r.logger.Error("Failed to get platform by customer",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get platform: %w", err)
	}
	return platform, nil
}

// EnsureBySubjectID creates the platform on first identity verification. Concurrent first
// requests race on the unique subject index; the loser reads the winner's row.
func (r *platformRepository) EnsureBySubjectID(ctx context.Context, subjectID string) (*model.Platform, error) {
	existing, err := r.GetBySubjectID(ctx, subjectID)
	if err != nil || existing != nil {
		return existing, err
	}

	platform := &model.Platform{
		PlatformID:        uuid.New(),
		IdentitySubjectID: subjectID,
		Plan:              r.freePlan,
		Status:            model.SubscriptionStatusNone,
	}

	tx := r.columns.omitMissing(r.db.WithContext(ctx))
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity_subject_id"}},
		DoNothing: true,
	}).Create(platform).Error
	if err != nil {
		r.logger.Error("Failed to create platform",
			zap.String("subject_id", subjectID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create platform: %w", err)
	}

	created, err := r.GetBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if created != nil && created.PlatformID == platform.PlatformID {
		r.logger.Info("Platform created",
			zap.String("platform_id", created.PlatformID.String()),
			zap.String("subject_id", subjectID))
	}
	return created, nil
}

// UpdateSubscription applies a billing-driven subscription change and returns the new row
func (r *platformRepository) UpdateSubscription(ctx context.Context, platformID uuid.UUID, update repository.SubscriptionUpdate) (*model.Platform, error) {
	updates := map[string]interface{}{
		"status":     update.Status,
		"updated_at": time.Now().UTC(),
	}
	if update.Plan != nil {
		updates["plan"] = *update.Plan
	}
	if update.StripeCustomerID != nil {
		updates["stripe_customer_id"] = *update.StripeCustomerID
	}
	if update.StripeSubscriptionID != nil {
		updates["stripe_subscription_id"] = *update.StripeSubscriptionID
	}
	if update.TrialEndsAt != nil {
		updates["trial_ends_at"] = update.TrialEndsAt.UTC()
	}
	if update.CurrentPeriodEnd != nil {
		updates["current_period_end"] = update.CurrentPeriodEnd.UTC()
	}

	result := r.db.WithContext(ctx).
		Model(&model.Platform{}).
		Where("platform_id = ?", platformID).
		Updates(updates)
	if result.Error != nil {
		r.logger.Error("Failed to update platform subscription",
			zap.String("platform_id", platformID.String()),
			zap.String("status", string(update.Status)),
			zap.Error(result.Error))
		return nil, fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, platformID)
}

// ListCanceledWithPeriodEnd lists canceled platforms the grace sweep has to look at
func (r *platformRepository) ListCanceledWithPeriodEnd(ctx context.Context) ([]*model.Platform, error) {
	var platforms []*model.Platform
	err := r.db.WithContext(ctx).
		Where("status = ? AND current_period_end IS NOT NULL", model.SubscriptionStatusCanceled).
		Order("current_period_end ASC").
		Find(&platforms).Error
	if err != nil {
		r.logger.Error("Failed to list canceled platforms", zap.Error(err))
		return nil, fmt.Errorf("failed to list canceled platforms: %w", err)
	}
	return platforms, nil
}

// MarkPurged sets the terminal purged status
func (r *platformRepository) MarkPurged(ctx context.Context, platformID uuid.UUID, at time.Time) error {
	updates := map[string]interface{}{
		"status":     model.SubscriptionStatusPurged,
		"updated_at": at.UTC(),
	}
	if r.columns.has("purged_at") {
		updates["purged_at"] = at.UTC()
	}

	err := r.db.WithContext(ctx).
		Model(&model.Platform{}).
		Where("platform_id = ?", platformID).
		Updates(updates).Error
	if err != nil {
		r.logger.Error("Failed to mark platform purged",
			zap.String("platform_id", platformID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to mark platform purged: %w", err)
	}
	return nil
}
