package model

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the platform's own subscription state.
type SubscriptionStatus string

const (
	SubscriptionStatusNone     SubscriptionStatus = "none"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	// SubscriptionStatusPurged is terminal; the grace sweep skips purged platforms.
	SubscriptionStatusPurged SubscriptionStatus = "purged"
)

// Platform is a tenant. Subscription fields are written only by billing event processing
// and the purge marker by the grace sweep.
type Platform struct {
	PlatformID           uuid.UUID          `gorm:"type:uuid;primaryKey" json:"platform_id"`
	IdentitySubjectID    string             `gorm:"size:255;not null;uniqueIndex" json:"identity_subject_id"`
	Plan                 string             `gorm:"size:64;not null;default:'free'" json:"plan"`
	Status               SubscriptionStatus `gorm:"size:20;not null;default:'none';index" json:"status"`
	StripeCustomerID     *string            `gorm:"size:100;index" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string            `gorm:"size:100" json:"stripe_subscription_id,omitempty"`
	TrialEndsAt          *time.Time         `json:"trial_ends_at,omitempty"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty"`
	PurgedAt             *time.Time         `json:"purged_at,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Platform) TableName() string {
	return "platforms"
}
