package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
)

// SubscriptionUpdate carries the subscription fields a billing event changes.
// Nil pointers leave the stored value untouched.
type SubscriptionUpdate struct {
	Status               model.SubscriptionStatus
	Plan                 *string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	TrialEndsAt          *time.Time
	CurrentPeriodEnd     *time.Time
}

type PlatformRepository interface {
	GetByID(ctx context.Context, platformID uuid.UUID) (*model.Platform, error)
	GetBySubjectID(ctx context.Context, subjectID string) (*model.Platform, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Platform, error)
	// EnsureBySubjectID returns the platform for subjectID, creating it on first sight.
	EnsureBySubjectID(ctx context.Context, subjectID string) (*model.Platform, error)
	UpdateSubscription(ctx context.Context, platformID uuid.UUID, update SubscriptionUpdate) (*model.Platform, error)
	// ListCanceledWithPeriodEnd returns canceled platforms whose current period end is known.
	ListCanceledWithPeriodEnd(ctx context.Context) ([]*model.Platform, error)
	MarkPurged(ctx context.Context, platformID uuid.UUID, at time.Time) error
}
