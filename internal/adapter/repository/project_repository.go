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

type projectRepository struct {
	db      *gorm.DB
	logger  *zap.Logger
	columns columnSet
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB, logger *zap.Logger) repository.ProjectRepository {
	return &projectRepository{
		db:      db,
		logger:  logger,
		columns: detectColumns(db, logger, &model.Project{}, "secret_key_enc", "secret_key_iv", "promoted_from"),
	}
}

// GetByPublishableKey retrieves a project by its publishable key
func (r *projectRepository) GetByPublishableKey(ctx context.Context, publishableKey string) (*model.Project, error) {
	var project model.Project

	err := r.db.WithContext(ctx).
		Where("publishable_key = ?", publishableKey).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get project",
			zap.String("publishable_key", publishableKey),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// ListByPlatform lists all projects of a platform, oldest first
func (r *projectRepository) ListByPlatform(ctx context.Context, platformID uuid.UUID) ([]*model.Project, error) {
	var projects []*model.Project

	err := r.db.WithContext(ctx).
		Where("platform_id = ?", platformID).
		Order("created_at ASC").
		Find(&projects).Error
	if err != nil {
		r.logger.Error("Failed to list projects",
			zap.String("platform_id", platformID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// Upsert inserts the project or replaces its mutable fields. Platform, mode and project
// type are fixed at creation and are not part of the update set.
func (r *projectRepository) Upsert(ctx context.Context, project *model.Project) error {
	updateColumns := []string{"name", "status", "secret_key_hash", "updated_at"}
	for _, optional := range []string{"secret_key_enc", "secret_key_iv"} {
		if r.columns.has(optional) {
			updateColumns = append(updateColumns, optional)
		}
	}

	tx := r.columns.omitMissing(r.db.WithContext(ctx))
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "publishable_key"}},
		DoUpdates: clause.AssignmentColumns(updateColumns),
	}).Create(project).Error
	if err != nil {
		r.logger.Error("Failed to upsert project",
			zap.String("publishable_key", project.PublishableKey),
			zap.Error(err))
		return fmt.Errorf("failed to upsert project: %w", err)
	}

	return nil
}

// CreateWithTiers inserts a project and all of its tiers atomically
func (r *projectRepository) CreateWithTiers(ctx context.Context, project *model.Project, tiers []*model.Tier) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.columns.omitMissing(tx).Create(project).Error; err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		for _, tier := range tiers {
			tier.PublishableKey = project.PublishableKey
		}
		if len(tiers) > 0 {
			if err := tx.Create(&tiers).Error; err != nil {
				return fmt.Errorf("failed to create tiers: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to create project with tiers",
			zap.String("publishable_key", project.PublishableKey),
			zap.Int("tier_count", len(tiers)),
			zap.Error(err))
		return err
	}

	return nil
}

// UpdateSecret replaces the secret hash. Nothing else on the row changes.
func (r *projectRepository) UpdateSecret(ctx context.Context, publishableKey, secretHash string, sealed, iv *string) error {
	updates := map[string]interface{}{
		"secret_key_hash": secretHash,
		"updated_at":      time.Now().UTC(),
	}
	if r.columns.has("secret_key_enc") && r.columns.has("secret_key_iv") {
		updates["secret_key_enc"] = sealed
		updates["secret_key_iv"] = iv
	}

	result := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("publishable_key = ?", publishableKey).
		Updates(updates)
	if result.Error != nil {
		r.logger.Error("Failed to update project secret",
			zap.String("publishable_key", publishableKey),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update project secret: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("project not found: %s", publishableKey)
	}

	return nil
}
