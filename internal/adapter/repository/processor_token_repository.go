package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type processorTokenRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewProcessorTokenRepository creates a new processor token repository
func NewProcessorTokenRepository(db *gorm.DB, logger *zap.Logger) repository.ProcessorTokenRepository {
	return &processorTokenRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the token for one (platform, mode) pair
func (r *processorTokenRepository) Get(ctx context.Context, platformID uuid.UUID, mode model.Mode) (*model.ProcessorToken, error) {
	var token model.ProcessorToken

	err := r.db.WithContext(ctx).
		Where("platform_id = ? AND mode = ?", platformID, mode).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get processor token",
			zap.String("platform_id", platformID.String()),
			zap.String("mode", string(mode)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get processor token: %w", err)
	}

	return &token, nil
}

// Upsert stores the token, replacing any earlier authorization for the same mode
func (r *processorTokenRepository) Upsert(ctx context.Context, token *model.ProcessorToken) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "platform_id"}, {Name: "mode"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"account_id", "access_token_enc", "access_token_iv",
				"refresh_token_enc", "refresh_token_iv", "scope", "updated_at",
			}),
		}).
		Create(token).Error
	if err != nil {
		r.logger.Error("Failed to upsert processor token",
			zap.String("platform_id", token.PlatformID.String()),
			zap.String("mode", string(token.Mode)),
			zap.Error(err))
		return fmt.Errorf("failed to upsert processor token: %w", err)
	}

	return nil
}
