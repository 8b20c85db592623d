package database

import (
	"github.com/wekeepgrowing/semo-keyhub/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Platform       domainRepo.PlatformRepository
	Project        domainRepo.ProjectRepository
	Tier           domainRepo.TierRepository
	BillingEvent   domainRepo.BillingEventRepository
	ProcessorToken domainRepo.ProcessorTokenRepository
	KeyLock        domainRepo.KeyLockRepository
	Purge          domainRepo.PurgeRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger, freePlan string) *Repositories {
	return &Repositories{
		Platform:       repository.NewPlatformRepository(db, logger, freePlan),
		Project:        repository.NewProjectRepository(db, logger),
		Tier:           repository.NewTierRepository(db, logger),
		BillingEvent:   repository.NewBillingEventRepository(db, logger),
		ProcessorToken: repository.NewProcessorTokenRepository(db, logger),
		KeyLock:        repository.NewKeyLockRepository(db, logger),
		Purge:          repository.NewPurgeRepository(db, logger),
	}
}
