package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
)

type ProjectRepository interface {
	GetByPublishableKey(ctx context.Context, publishableKey string) (*model.Project, error)
	ListByPlatform(ctx context.Context, platformID uuid.UUID) ([]*model.Project, error)
	// Upsert inserts or replaces the project keyed by publishable key. Mode and project type
	// are never changed on an existing row.
	Upsert(ctx context.Context, project *model.Project) error
	// CreateWithTiers inserts a new project and its tiers in one transaction.
	CreateWithTiers(ctx context.Context, project *model.Project, tiers []*model.Tier) error
	// UpdateSecret replaces only the secret hash (and the sealed last-issued secret).
	UpdateSecret(ctx context.Context, publishableKey, secretHash string, sealed, iv *string) error
}

type TierRepository interface {
	ListByProject(ctx context.Context, publishableKey string) ([]*model.Tier, error)
	Get(ctx context.Context, publishableKey, name string) (*model.Tier, error)
	// Upsert inserts or replaces the tier keyed by (publishable key, name).
	Upsert(ctx context.Context, tier *model.Tier) (*model.Tier, error)
	Delete(ctx context.Context, publishableKey, name string) (bool, error)
}
