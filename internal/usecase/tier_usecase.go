package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const defaultCurrency = "usd"

// TierInput is the editable part of a tier.
type TierInput struct {
	Name        string
	DisplayName string
	Price       int64
	Currency    string
	UsageLimit  *int64
	SortOrder   int
	Metadata    model.TierMetadataV1
}

// TierUsecase edits the tiers of an owned project.
type TierUsecase struct {
	projects  repository.ProjectRepository
	tiers     repository.TierRepository
	tokens    repository.ProcessorTokenRepository
	billing   provider.BillingProvider
	projector *CacheProjector
	logger    *zap.Logger
}

// NewTierUsecase creates a new tier usecase
func NewTierUsecase(
	projects repository.ProjectRepository,
	tiers repository.TierRepository,
	tokens repository.ProcessorTokenRepository,
	billing provider.BillingProvider,
	projector *CacheProjector,
	logger *zap.Logger,
) *TierUsecase {
	return &TierUsecase{
		projects:  projects,
		tiers:     tiers,
		tokens:    tokens,
		billing:   billing,
		projector: projector,
		logger:    logger.Named("tiers"),
	}
}

// List returns the tiers of an owned project in display order.
func (u *TierUsecase) List(ctx context.Context, platformID uuid.UUID, publishableKey string) ([]*model.Tier, error) {
	if _, err := loadOwnedProject(ctx, u.projects, platformID, publishableKey); err != nil {
		return nil, err
	}
	return u.tiers.ListByProject(ctx, publishableKey)
}

// Upsert creates or replaces a tier by name. When the platform has authorized the project's
// mode with the processor, a product and price are created for new tiers and whenever the
// amount, currency or billing interval changes.
func (u *TierUsecase) Upsert(ctx context.Context, platformID uuid.UUID, publishableKey string, input TierInput) (*model.Tier, error) {
	project, err := loadOwnedProject(ctx, u.projects, platformID, publishableKey)
	if err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domainErrors.ErrInvalidTier)
	}
	if input.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domainErrors.ErrInvalidTier)
	}
	if input.UsageLimit != nil && *input.UsageLimit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domainErrors.ErrInvalidTier)
	}
	if err := input.Metadata.Validate(project.ProjectType); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidTier, err)
	}
	input.Currency = strings.ToLower(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = defaultCurrency
	}
	if input.DisplayName == "" {
		input.DisplayName = input.Name
	}

	existing, err := u.tiers.Get(ctx, publishableKey, input.Name)
	if err != nil {
		return nil, err
	}

	tier := &model.Tier{
		PublishableKey: publishableKey,
		Name:           input.Name,
		DisplayName:    input.DisplayName,
		Price:          input.Price,
		Currency:       input.Currency,
		UsageLimit:     input.UsageLimit,
		SortOrder:      input.SortOrder,
		Metadata:       datatypes.NewJSONType(input.Metadata),
	}
	priceChanged := existing == nil ||
		existing.Price != tier.Price ||
		existing.Currency != tier.Currency ||
		priceInterval(project.ProjectType, existing.Metadata.Data()) != priceInterval(project.ProjectType, input.Metadata)
	if existing != nil {
		tier.ProductID = existing.ProductID
		if !priceChanged {
			tier.PriceID = existing.PriceID
		}
	}

	if priceChanged || tier.PriceID == nil {
		if err := u.syncProcessorPrice(ctx, project, tier); err != nil {
			return nil, err
		}
	}

	saved, err := u.tiers.Upsert(ctx, tier)
	if err != nil {
		return nil, err
	}

	u.reproject(ctx, project)

	u.logger.Info("Tier saved",
		zap.String("publishable_key", publishableKey),
		zap.String("tier", saved.Name),
		zap.Int64("price", saved.Price),
		zap.Bool("has_price_id", saved.PriceID != nil))
	return saved, nil
}

// Delete removes a tier from an owned project.
func (u *TierUsecase) Delete(ctx context.Context, platformID uuid.UUID, publishableKey, name string) error {
	project, err := loadOwnedProject(ctx, u.projects, platformID, publishableKey)
	if err != nil {
		return err
	}

	deleted, err := u.tiers.Delete(ctx, publishableKey, name)
	if err != nil {
		return err
	}
	if !deleted {
		return domainErrors.ErrTierNotFound
	}

	u.reproject(ctx, project)

	u.logger.Info("Tier deleted",
		zap.String("publishable_key", publishableKey),
		zap.String("tier", name))
	return nil
}

// syncProcessorPrice creates the processor objects for tier in the project's mode. Without an
// authorization for that mode the tier is saved without a price id.
func (u *TierUsecase) syncProcessorPrice(ctx context.Context, project *model.Project, tier *model.Tier) error {
	token, err := u.tokens.Get(ctx, project.PlatformID, project.Mode)
	if err != nil {
		return err
	}
	if token == nil {
		return nil
	}

	meta := tier.Metadata.Data()
	objectMetadata := map[string]string{
		provider.MetadataTier: tier.Name,
		"publishable_key":     project.PublishableKey,
	}

	if tier.ProductID == nil {
		productReq := &provider.CreateProductRequest{
			Mode:      project.Mode,
			AccountID: token.AccountID,
			Name:      tier.DisplayName,
			Metadata:  objectMetadata,
		}
		if meta.Store != nil {
			productReq.Description = meta.Store.Description
			productReq.ImageURL = meta.Store.ImageURL
		}
		productID, err := u.billing.CreateProduct(ctx, productReq)
		if err != nil {
			return fmt.Errorf("failed to create product for tier %q: %w", tier.Name, err)
		}
		tier.ProductID = &productID
	}

	priceID, err := u.billing.CreatePrice(ctx, &provider.CreatePriceRequest{
		Mode:      project.Mode,
		AccountID: token.AccountID,
		ProductID: *tier.ProductID,
		Amount:    tier.Price,
		Currency:  tier.Currency,
		Interval:  priceInterval(project.ProjectType, meta),
		Metadata:  objectMetadata,
	})
	if err != nil {
		return fmt.Errorf("failed to create price for tier %q: %w", tier.Name, err)
	}
	tier.PriceID = &priceID
	return nil
}

func (u *TierUsecase) reproject(ctx context.Context, project *model.Project) {
	tiers, err := u.tiers.ListByProject(ctx, project.PublishableKey)
	if err != nil {
		u.logger.Warn("Failed to reload tiers for cache projection",
			zap.String("publishable_key", project.PublishableKey),
			zap.Error(err))
		return
	}
	u.projector.ProjectTiers(ctx, project, tiers)
}
