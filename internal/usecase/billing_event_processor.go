package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
)

// BillingEventProcessorConfig holds the processor's static settings.
type BillingEventProcessorConfig struct {
	WebhookSecret string
	FreePlan      string
	// PeriodEndFallback is added to the current time when an event carries neither a period
	// end nor a trial end.
	PeriodEndFallback time.Duration
}

// BillingEventProcessor verifies billing webhooks and applies them exactly once per event id.
type BillingEventProcessor struct {
	billing   provider.BillingProvider
	identity  provider.IdentityProvider
	platforms repository.PlatformRepository
	events    repository.BillingEventRepository
	projector *CacheProjector
	cfg       BillingEventProcessorConfig
	logger    *zap.Logger
}

// NewBillingEventProcessor creates a new billing event processor
func NewBillingEventProcessor(
	billing provider.BillingProvider,
	identity provider.IdentityProvider,
	platforms repository.PlatformRepository,
	events repository.BillingEventRepository,
	projector *CacheProjector,
	cfg BillingEventProcessorConfig,
	logger *zap.Logger,
) *BillingEventProcessor {
	return &BillingEventProcessor{
		billing:   billing,
		identity:  identity,
		platforms: platforms,
		events:    events,
		projector: projector,
		cfg:       cfg,
		logger:    logger.Named("billing_events"),
	}
}

// MapSubscriptionStatus maps a processor status onto the platform status. Unknown statuses
// map to active so a new upstream status never blocks paying tenants.
func MapSubscriptionStatus(external string) model.SubscriptionStatus {
	switch external {
	case "trialing":
		return model.SubscriptionStatusTrialing
	case "active":
		return model.SubscriptionStatusActive
	case "past_due", "unpaid":
		return model.SubscriptionStatusPastDue
	case "canceled", "incomplete_expired":
		return model.SubscriptionStatusCanceled
	default:
		return model.SubscriptionStatusActive
	}
}

// Process verifies one webhook delivery and applies it. Replays of a recorded event id return
// success without side effects. The ledger is written last so a failure part way through is
// retried by the processor instead of being skipped.
func (p *BillingEventProcessor) Process(ctx context.Context, payload []byte, signature string) (*entity.WebhookResult, error) {
	if p.cfg.WebhookSecret == "" {
		p.logger.Error("Webhook received but no signing secret is configured")
		return nil, domainErrors.ErrWebhookSecretMissing
	}

	event, err := p.billing.VerifyWebhook(payload, signature, p.cfg.WebhookSecret)
	if err != nil {
		p.logger.Warn("Rejected webhook", zap.Error(err))
		return nil, err
	}
	if event.ID == "" {
		return nil, fmt.Errorf("%w: event id missing", domainErrors.ErrMalformedEvent)
	}

	logger := p.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type))

	result := &entity.WebhookResult{EventID: event.ID, EventType: event.Type}

	platform, err := p.resolvePlatform(ctx, event)
	if err != nil {
		logger.Warn("Could not resolve platform for event", zap.Error(err))
		return nil, err
	}
	if platform != nil {
		result.PlatformID = platform.PlatformID.String()
		logger = logger.With(zap.String("platform_id", result.PlatformID))
	}

	recorded, err := p.events.Exists(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if recorded {
		logger.Info("Replayed event ignored")
		result.Replayed = true
		return result, nil
	}

	switch {
	case platform != nil && platform.Status == model.SubscriptionStatusPurged:
		logger.Info("Event for purged platform recorded without changes")
		result.Ignored = true
	case event.Type == provider.EventSubscriptionCreated, event.Type == provider.EventSubscriptionUpdated:
		err = p.applySubscription(ctx, logger, platform, event.Subscription, event.Subscription.CustomerID)
	case event.Type == provider.EventSubscriptionDeleted:
		err = p.applyDeletion(ctx, logger, platform, event.Subscription)
	case event.Type == provider.EventCheckoutCompleted:
		err = p.applyCheckout(ctx, logger, platform, event)
	default:
		logger.Debug("Unhandled event type recorded without changes")
		result.Ignored = true
	}
	if err != nil {
		logger.Error("Failed to apply billing event", zap.Error(err))
		return nil, err
	}

	ledger := &model.BillingEvent{
		EventID:     event.ID,
		EventType:   event.Type,
		ProcessedAt: time.Now().UTC(),
	}
	if platform != nil {
		ledger.PlatformID = &platform.PlatformID
	}
	inserted, err := p.events.Record(ctx, ledger)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// A concurrent delivery of the same event finished first.
		logger.Info("Event already recorded by a concurrent delivery")
		result.Replayed = true
	}

	logger.Info("Billing event processed", zap.Bool("ignored", result.Ignored))
	return result, nil
}

// resolvePlatform finds the platform an event concerns. Unrecognised event types resolve to nil.
func (p *BillingEventProcessor) resolvePlatform(ctx context.Context, event *provider.WebhookEvent) (*model.Platform, error) {
	switch event.Type {
	case provider.EventSubscriptionCreated, provider.EventSubscriptionUpdated, provider.EventSubscriptionDeleted:
		if event.Subscription == nil {
			return nil, fmt.Errorf("%w: subscription payload missing", domainErrors.ErrMalformedEvent)
		}
		return p.platformFromReferences(ctx, event.ID, "", event.Subscription.Metadata, event.Subscription.CustomerID)

	case provider.EventCheckoutCompleted:
		if event.Checkout == nil {
			return nil, fmt.Errorf("%w: checkout payload missing", domainErrors.ErrMalformedEvent)
		}
		if event.Checkout.Metadata[provider.MetadataTier] == "" {
			return nil, &domainErrors.MissingMetadataError{EventID: event.ID, Field: provider.MetadataTier}
		}
		return p.platformFromReferences(ctx, event.ID, event.Checkout.ClientReferenceID, event.Checkout.Metadata, "")
	}
	return nil, nil
}

// platformFromReferences tries the client reference (a platform id), then the subject id in
// metadata, then the processor customer id.
func (p *BillingEventProcessor) platformFromReferences(ctx context.Context, eventID, clientReference string, metadata map[string]string, customerID string) (*model.Platform, error) {
	if clientReference != "" {
		if platformID, err := uuid.Parse(clientReference); err == nil {
			platform, err := p.platforms.GetByID(ctx, platformID)
			if err != nil || platform != nil {
				return platform, err
			}
		}
	}

	subjectID := metadata[provider.MetadataSubjectID]
	if subjectID != "" {
		platform, err := p.platforms.GetBySubjectID(ctx, subjectID)
		if err != nil || platform != nil {
			return platform, err
		}
	}

	if customerID != "" {
		platform, err := p.platforms.GetByStripeCustomerID(ctx, customerID)
		if err != nil || platform != nil {
			return platform, err
		}
	}

	if clientReference == "" && subjectID == "" && customerID == "" {
		return nil, &domainErrors.MissingMetadataError{EventID: eventID, Field: provider.MetadataSubjectID}
	}
	return nil, domainErrors.ErrPlatformNotFound
}

// periodEnd falls back to the trial end, then to now plus the configured fallback.
func (p *BillingEventProcessor) periodEnd(sub *provider.Subscription) time.Time {
	if sub.CurrentPeriodEnd != nil {
		return *sub.CurrentPeriodEnd
	}
	if sub.TrialEnd != nil {
		return *sub.TrialEnd
	}
	return time.Now().UTC().Add(p.cfg.PeriodEndFallback)
}

func (p *BillingEventProcessor) applySubscription(ctx context.Context, logger *zap.Logger, platform *model.Platform, sub *provider.Subscription, customerID string) error {
	status := MapSubscriptionStatus(sub.Status)
	periodEnd := p.periodEnd(sub)

	update := repository.SubscriptionUpdate{
		Status:           status,
		CurrentPeriodEnd: &periodEnd,
		TrialEndsAt:      sub.TrialEnd,
	}
	if sub.ID != "" {
		update.StripeSubscriptionID = &sub.ID
	}
	if customerID != "" {
		update.StripeCustomerID = &customerID
	}
	if tier := sub.Metadata[provider.MetadataTier]; tier != "" {
		update.Plan = &tier
	}

	updated, err := p.platforms.UpdateSubscription(ctx, platform.PlatformID, update)
	if err != nil {
		return err
	}
	if updated == nil {
		return domainErrors.ErrPlatformNotFound
	}

	p.projector.ProjectSubscription(ctx, updated)

	plan := updated.Plan
	if status == model.SubscriptionStatusCanceled {
		plan = p.cfg.FreePlan
	}
	p.syncIdentityPlan(ctx, logger, updated, plan)

	logger.Info("Subscription state applied",
		zap.String("external_status", sub.Status),
		zap.String("status", string(status)),
		zap.Time("current_period_end", periodEnd))
	return nil
}

// applyDeletion cancels the subscription. The last known period end is kept for the grace
// period; a payload without one leaves the stored value untouched.
func (p *BillingEventProcessor) applyDeletion(ctx context.Context, logger *zap.Logger, platform *model.Platform, sub *provider.Subscription) error {
	freePlan := p.cfg.FreePlan
	update := repository.SubscriptionUpdate{
		Status:           model.SubscriptionStatusCanceled,
		Plan:             &freePlan,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}

	updated, err := p.platforms.UpdateSubscription(ctx, platform.PlatformID, update)
	if err != nil {
		return err
	}
	if updated == nil {
		return domainErrors.ErrPlatformNotFound
	}

	p.projector.ProjectSubscription(ctx, updated)
	p.syncIdentityPlan(ctx, logger, updated, freePlan)

	logger.Info("Subscription canceled")
	return nil
}

// applyCheckout reads the subscription the checkout created so trials start as trialing.
func (p *BillingEventProcessor) applyCheckout(ctx context.Context, logger *zap.Logger, platform *model.Platform, event *provider.WebhookEvent) error {
	checkout := event.Checkout
	if checkout.SubscriptionID == "" {
		return fmt.Errorf("%w: checkout %s has no subscription", domainErrors.ErrMalformedEvent, checkout.ID)
	}

	mode := model.ModeSandbox
	if event.Livemode {
		mode = model.ModeProduction
	}
	sub, err := p.billing.GetSubscription(ctx, mode, checkout.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", checkout.SubscriptionID, err)
	}

	if sub.Metadata == nil {
		sub.Metadata = map[string]string{}
	}
	sub.Metadata[provider.MetadataTier] = checkout.Metadata[provider.MetadataTier]

	customerID := checkout.CustomerID
	if customerID == "" {
		customerID = sub.CustomerID
	}
	return p.applySubscription(ctx, logger, platform, sub, customerID)
}

func (p *BillingEventProcessor) syncIdentityPlan(ctx context.Context, logger *zap.Logger, platform *model.Platform, plan string) {
	err := p.identity.UpdateSubjectMetadata(ctx, platform.IdentitySubjectID, provider.SubjectMetadata{Plan: plan})
	if err != nil {
		logger.Warn("Failed to update identity plan metadata",
			zap.String("subject_id", platform.IdentitySubjectID),
			zap.String("plan", plan),
			zap.Error(err))
	}
}
