package provider

import (
	"context"
	"time"

	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
)

// Webhook event types the service acts on. Anything else is recorded and ignored.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventCheckoutCompleted   = "checkout.session.completed"
)

// Metadata keys carried on checkout sessions and subscriptions.
const (
	MetadataSubjectID  = "subject_id"
	MetadataPlatformID = "platform_id"
	MetadataTier       = "tier"
)

// BillingProvider is the external billing processor.
type BillingProvider interface {
	// CreateProduct creates a product on the connected account given in req and returns its id.
	CreateProduct(ctx context.Context, req *CreateProductRequest) (string, error)
	// CreatePrice creates a price for an existing product and returns its id.
	CreatePrice(ctx context.Context, req *CreatePriceRequest) (string, error)
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, mode model.Mode, subscriptionID string) (*Subscription, error)
	// VerifyWebhook checks the signature and decodes the event.
	VerifyWebhook(payload []byte, signature, secret string) (*WebhookEvent, error)
	// ExchangeOAuthCode completes the connect flow for one mode.
	ExchangeOAuthCode(ctx context.Context, mode model.Mode, code string) (*OAuthToken, error)
}

type CreateProductRequest struct {
	Mode        model.Mode
	AccountID   string
	Name        string
	Description string
	ImageURL    string
	Metadata    map[string]string
}

type CreatePriceRequest struct {
	Mode      model.Mode
	AccountID string
	ProductID string
	Amount    int64
	Currency  string
	// Interval is empty for one-time prices, otherwise "month" or "year".
	Interval string
	Metadata map[string]string
}

type CheckoutSessionRequest struct {
	Mode              model.Mode
	PriceID           string
	CustomerID        string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	TrialDays         int
	Metadata          map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Subscription is the subset of a processor subscription the service uses.
type Subscription struct {
	ID               string
	CustomerID       string
	Status           string
	CurrentPeriodEnd *time.Time
	TrialEnd         *time.Time
	Metadata         map[string]string
}

// CheckoutCompleted is the payload of a completed checkout session.
type CheckoutCompleted struct {
	ID                string
	ClientReferenceID string
	CustomerID        string
	SubscriptionID    string
	Metadata          map[string]string
}

// WebhookEvent is a verified processor event. Exactly one of Subscription and Checkout is set
// for the event types listed above.
type WebhookEvent struct {
	ID           string
	Type         string
	Livemode     bool
	Created      time.Time
	Subscription *Subscription
	Checkout     *CheckoutCompleted
}

type OAuthToken struct {
	AccountID    string
	AccessToken  string
	RefreshToken string
	Scope        string
	Livemode     bool
}

// ProviderError represents an error from the billing processor
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

func (e *ProviderError) Error() string {
	return e.Code + ": " + e.Message
}
