package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
)

// zeroDecimalCurrencies are charged in whole units.
var zeroDecimalCurrencies = map[string]bool{
	"jpy": true,
	"krw": true,
	"vnd": true,
}

// PlatformUsecaseConfig holds the settings for the platform's own subscription checkout.
type PlatformUsecaseConfig struct {
	// PlanPrices maps a plan name to the processor price id.
	PlanPrices  map[string]string
	BillingMode model.Mode
	TrialDays   int
}

// PlatformUsecase handles tenant-level reads and the tenant's own plan purchase.
type PlatformUsecase struct {
	platforms repository.PlatformRepository
	projects  repository.ProjectRepository
	tiers     repository.TierRepository
	billing   provider.BillingProvider
	projector *CacheProjector
	sealer    SecretSealer
	cfg       PlatformUsecaseConfig
	logger    *zap.Logger
}

// NewPlatformUsecase creates a new platform usecase
func NewPlatformUsecase(
	platforms repository.PlatformRepository,
	projects repository.ProjectRepository,
	tiers repository.TierRepository,
	billing provider.BillingProvider,
	projector *CacheProjector,
	sealer SecretSealer,
	cfg PlatformUsecaseConfig,
	logger *zap.Logger,
) *PlatformUsecase {
	return &PlatformUsecase{
		platforms: platforms,
		projects:  projects,
		tiers:     tiers,
		billing:   billing,
		projector: projector,
		sealer:    sealer,
		cfg:       cfg,
		logger:    logger.Named("platforms"),
	}
}

// EnsurePlatform returns the platform of a verified identity subject, creating it on first sight.
func (u *PlatformUsecase) EnsurePlatform(ctx context.Context, subjectID string) (*model.Platform, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject id is required")
	}
	platform, err := u.platforms.EnsureBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, domainErrors.ErrPlatformNotFound
	}
	return platform, nil
}

// Subscription returns the cached subscription view, rebuilding it on a cache miss.
func (u *PlatformUsecase) Subscription(ctx context.Context, platformID uuid.UUID) (*entity.SubscriptionCacheEntry, error) {
	entry, err := u.projector.ReadSubscription(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domainErrors.ErrPlatformNotFound
	}
	return entry, nil
}

// Export lists the platform's projects for the dashboard. Secrets are the last issued ones,
// decrypted, and only included when includeSecrets is set.
func (u *PlatformUsecase) Export(ctx context.Context, platformID uuid.UUID, includeSecrets bool) (*entity.PlatformExport, error) {
	platform, err := u.platforms.GetByID(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, domainErrors.ErrPlatformNotFound
	}

	projects, err := u.projects.ListByPlatform(ctx, platformID)
	if err != nil {
		return nil, err
	}

	export := &entity.PlatformExport{
		PlatformID:       platform.PlatformID.String(),
		Plan:             platform.Plan,
		Status:           string(platform.Status),
		CurrentPeriodEnd: platform.CurrentPeriodEnd,
		Projects:         make([]entity.ProjectExport, 0, len(projects)),
	}

	for _, project := range projects {
		tiers, err := u.tiers.ListByProject(ctx, project.PublishableKey)
		if err != nil {
			return nil, err
		}

		item := entity.ProjectExport{
			PublishableKey: project.PublishableKey,
			Name:           project.Name,
			ProjectType:    string(project.ProjectType),
			Mode:           string(project.Mode),
			Status:         string(project.Status),
			Tiers:          make([]entity.TierExport, 0, len(tiers)),
			CreatedAt:      project.CreatedAt,
		}
		if project.PromotedFrom != nil {
			item.PromotedFrom = *project.PromotedFrom
		}
		if includeSecrets {
			item.SecretKey = u.openSecret(project)
		}
		for _, tier := range tiers {
			te := entity.TierExport{
				Name:         tier.Name,
				DisplayName:  tier.DisplayName,
				Price:        tier.Price,
				DisplayPrice: FormatPrice(tier.Price, tier.Currency),
				Currency:     tier.Currency,
				Limit:        tier.UsageLimit,
			}
			if tier.PriceID != nil {
				te.PriceID = *tier.PriceID
			}
			item.Tiers = append(item.Tiers, te)
		}
		export.Projects = append(export.Projects, item)
	}

	return export, nil
}

// openSecret decrypts the stored copy of the last issued secret. It is never derived from
// the hash; projects without a stored copy export no secret.
func (u *PlatformUsecase) openSecret(project *model.Project) string {
	if u.sealer == nil || project.SecretKeyEnc == nil || project.SecretKeyIV == nil {
		return ""
	}
	secret, err := u.sealer.Decrypt(*project.SecretKeyEnc, *project.SecretKeyIV)
	if err != nil {
		u.logger.Error("Failed to open stored secret",
			zap.String("publishable_key", project.PublishableKey),
			zap.Error(err))
		return ""
	}
	return secret
}

// CreateCheckoutSession starts the purchase of a platform plan. The session carries the
// platform id as client reference and the subject id and plan in metadata; the completed
// checkout webhook uses them to find the platform.
func (u *PlatformUsecase) CreateCheckoutSession(ctx context.Context, platformID uuid.UUID, plan, successURL, cancelURL string) (*provider.CheckoutSession, error) {
	priceID, ok := u.cfg.PlanPrices[plan]
	if !ok || priceID == "" {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrUnknownPlan, plan)
	}

	platform, err := u.platforms.GetByID(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, domainErrors.ErrPlatformNotFound
	}

	req := &provider.CheckoutSessionRequest{
		Mode:              u.cfg.BillingMode,
		PriceID:           priceID,
		ClientReferenceID: platform.PlatformID.String(),
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		Metadata: map[string]string{
			provider.MetadataSubjectID:  platform.IdentitySubjectID,
			provider.MetadataPlatformID: platform.PlatformID.String(),
			provider.MetadataTier:       plan,
		},
	}
	if platform.StripeCustomerID != nil {
		req.CustomerID = *platform.StripeCustomerID
	}
	// Trials are only offered on the first subscription.
	if platform.StripeSubscriptionID == nil {
		req.TrialDays = u.cfg.TrialDays
	}

	session, err := u.billing.CreateCheckoutSession(ctx, req)
	if err != nil {
		u.logger.Error("Failed to create checkout session",
			zap.String("platform_id", platformID.String()),
			zap.String("plan", plan),
			zap.Error(err))
		return nil, err
	}

	u.logger.Info("Checkout session created",
		zap.String("platform_id", platformID.String()),
		zap.String("plan", plan),
		zap.String("session_id", session.ID))
	return session, nil
}

// FormatPrice renders a minor-unit amount as e.g. "29.00 USD".
func FormatPrice(amount int64, currency string) string {
	currency = strings.ToLower(currency)
	var value string
	if zeroDecimalCurrencies[currency] {
		value = decimal.NewFromInt(amount).String()
	} else {
		value = decimal.New(amount, -2).StringFixed(2)
	}
	return value + " " + strings.ToUpper(currency)
}
