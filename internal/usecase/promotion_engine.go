package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// PromotionEngine copies a sandbox project into a new, independent production project.
type PromotionEngine struct {
	projects  repository.ProjectRepository
	tiers     repository.TierRepository
	tokens    repository.ProcessorTokenRepository
	billing   provider.BillingProvider
	locker    *keyLocker
	projector *CacheProjector
	sealer    SecretSealer
	logger    *zap.Logger
}

// NewPromotionEngine creates a new promotion engine
func NewPromotionEngine(
	projects repository.ProjectRepository,
	tiers repository.TierRepository,
	tokens repository.ProcessorTokenRepository,
	locks repository.KeyLockRepository,
	lockTTL time.Duration,
	billing provider.BillingProvider,
	projector *CacheProjector,
	sealer SecretSealer,
	logger *zap.Logger,
) *PromotionEngine {
	return &PromotionEngine{
		projects:  projects,
		tiers:     tiers,
		tokens:    tokens,
		billing:   billing,
		locker:    newKeyLocker(locks, lockTTL, logger),
		projector: projector,
		sealer:    sealer,
		logger:    logger.Named("promotion"),
	}
}

// Promote creates a production project from sandboxKey. Every call creates a new project;
// the sandbox project and its tiers are never modified.
//
// Processor objects are created tier by tier and the first failure aborts the promotion
// before anything is written. Objects created before the failure are left in place.
func (e *PromotionEngine) Promote(ctx context.Context, platformID uuid.UUID, sandboxKey string) (*entity.PromotionResult, error) {
	if !strings.HasPrefix(sandboxKey, "pk_"+string(model.ModeSandbox)+"_") {
		return nil, domainErrors.ErrNotSandboxKey
	}

	logger := e.logger.With(
		zap.String("platform_id", platformID.String()),
		zap.String("sandbox_key", sandboxKey))

	sandbox, err := loadOwnedProject(ctx, e.projects, platformID, sandboxKey)
	if err != nil {
		if errors.Is(err, domainErrors.ErrOwnership) {
			logger.Warn("Promotion rejected for foreign key")
		}
		return nil, err
	}
	if sandbox.Mode != model.ModeSandbox {
		return nil, domainErrors.ErrNotSandboxKey
	}

	token, err := e.tokens.Get(ctx, platformID, model.ModeProduction)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, domainErrors.ErrProductionNotAuthorized
	}

	var result *entity.PromotionResult
	err = e.locker.withLock(ctx, sandboxKey, "promote", func(lease *keyLease) error {
		result, err = e.promote(ctx, logger, lease, sandbox, token.AccountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Project promoted",
		zap.String("publishable_key", result.Keys.PublishableKey),
		zap.Int("tiers", len(result.Tiers)))
	return result, nil
}

func (e *PromotionEngine) promote(ctx context.Context, logger *zap.Logger, lease *keyLease, sandbox *model.Project, accountID string) (*entity.PromotionResult, error) {
	// Read from the store, never the cache.
	sandboxTiers, err := e.tiers.ListByProject(ctx, sandbox.PublishableKey)
	if err != nil {
		return nil, err
	}

	production := make([]*model.Tier, 0, len(sandboxTiers))
	for _, tier := range sandboxTiers {
		// Processor calls are slow; keep the lease alive for every tier.
		if err := lease.renew(ctx); err != nil {
			logger.Error("Aborting promotion, key lock lost",
				zap.Int("tiers_done", len(production)),
				zap.Error(err))
			return nil, err
		}
		promoted, err := e.createProcessorObjects(ctx, sandbox, tier, accountID)
		if err != nil {
			logger.Error("Aborting promotion after processor failure",
				zap.String("tier", tier.Name),
				zap.Int("tiers_done", len(production)),
				zap.Error(err))
			return nil, err
		}
		production = append(production, promoted)
	}

	keys, err := GenerateKeyPair(model.ModeProduction)
	if err != nil {
		return nil, err
	}

	promotedFrom := sandbox.PublishableKey
	project := &model.Project{
		PublishableKey: keys.PublishableKey,
		PlatformID:     sandbox.PlatformID,
		Name:           sandbox.Name,
		ProjectType:    sandbox.ProjectType,
		Mode:           model.ModeProduction,
		Status:         model.ProjectStatusActive,
		SecretKeyHash:  HashSecret(keys.SecretKey),
		PromotedFrom:   &promotedFrom,
	}
	if e.sealer != nil {
		if sealed, iv, err := e.sealer.Encrypt(keys.SecretKey); err == nil {
			project.SecretKeyEnc = &sealed
			project.SecretKeyIV = &iv
		} else {
			logger.Error("Failed to seal promoted secret for export", zap.Error(err))
		}
	}

	if err := e.projects.CreateWithTiers(ctx, project, production); err != nil {
		return nil, err
	}

	e.projector.ProjectProject(ctx, project, production)

	result := &entity.PromotionResult{
		SandboxKey:  sandbox.PublishableKey,
		Keys:        *keys,
		ProjectName: project.Name,
		ProjectType: string(project.ProjectType),
		Tiers:       make([]entity.TierInfo, 0, len(production)),
	}
	for _, tier := range production {
		result.Tiers = append(result.Tiers, entity.TierInfo{
			Name:      tier.Name,
			Price:     tier.Price,
			Limit:     tier.UsageLimit,
			PriceID:   *tier.PriceID,
			ProductID: *tier.ProductID,
		})
	}
	return result, nil
}

// createProcessorObjects creates the production product and price for one sandbox tier and
// returns the unsaved production tier.
func (e *PromotionEngine) createProcessorObjects(ctx context.Context, sandbox *model.Project, tier *model.Tier, accountID string) (*model.Tier, error) {
	meta := tier.Metadata.Data()
	objectMetadata := map[string]string{
		provider.MetadataTier: tier.Name,
		"promoted_from":       sandbox.PublishableKey,
	}

	productReq := &provider.CreateProductRequest{
		Mode:      model.ModeProduction,
		AccountID: accountID,
		Name:      tier.DisplayName,
		Metadata:  objectMetadata,
	}
	if meta.Store != nil {
		productReq.Description = meta.Store.Description
		productReq.ImageURL = meta.Store.ImageURL
	}
	productID, err := e.billing.CreateProduct(ctx, productReq)
	if err != nil {
		return nil, &domainErrors.ProcessorError{Step: "create product", Tier: tier.Name, Cause: err}
	}

	priceID, err := e.billing.CreatePrice(ctx, &provider.CreatePriceRequest{
		Mode:      model.ModeProduction,
		AccountID: accountID,
		ProductID: productID,
		Amount:    tier.Price,
		Currency:  tier.Currency,
		Interval:  priceInterval(sandbox.ProjectType, meta),
		Metadata:  objectMetadata,
	})
	if err != nil {
		return nil, &domainErrors.ProcessorError{Step: "create price", Tier: tier.Name, Cause: err}
	}

	return &model.Tier{
		Name:        tier.Name,
		DisplayName: tier.DisplayName,
		Price:       tier.Price,
		Currency:    tier.Currency,
		UsageLimit:  tier.UsageLimit,
		PriceID:     &priceID,
		ProductID:   &productID,
		SortOrder:   tier.SortOrder,
		Metadata:    datatypes.NewJSONType(meta),
	}, nil
}

// priceInterval is recurring for metered projects (monthly unless the tier says otherwise)
// and one-time for store projects.
func priceInterval(projectType model.ProjectType, meta model.TierMetadataV1) string {
	if projectType != model.ProjectTypeMetered {
		return ""
	}
	if meta.Metered != nil && meta.Metered.BillingInterval != "" {
		return meta.Metered.BillingInterval
	}
	return "month"
}
