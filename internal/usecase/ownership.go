package usecase

import (
	"context"

	"github.com/google/uuid"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
)

// loadOwnedProject returns the project only if platformID owns it.
func loadOwnedProject(ctx context.Context, projects repository.ProjectRepository, platformID uuid.UUID, publishableKey string) (*model.Project, error) {
	project, err := projects.GetByPublishableKey(ctx, publishableKey)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domainErrors.ErrProjectNotFound
	}
	if project.PlatformID != platformID {
		return nil, domainErrors.NewOwnershipError(platformID.String(), publishableKey)
	}
	return project, nil
}
