package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"go.uber.org/zap"
)

// StripeProvider implements BillingProvider. One API client exists per mode; calls on a
// tenant's connected account set the Stripe-Account header.
type StripeProvider struct {
	clients map[model.Mode]*client.API
	logger  *zap.Logger
}

// NewStripeProvider creates a provider from the per-mode platform keys. A mode without a
// key is left unconfigured and calls for it fail.
func NewStripeProvider(cfg config.StripeConfig, logger *zap.Logger) *StripeProvider {
	p := &StripeProvider{
		clients: make(map[model.Mode]*client.API, 2),
		logger:  logger,
	}
	if cfg.SandboxSecretKey != "" {
		p.clients[model.ModeSandbox] = client.New(cfg.SandboxSecretKey, nil)
	}
	if cfg.ProductionSecretKey != "" {
		p.clients[model.ModeProduction] = client.New(cfg.ProductionSecretKey, nil)
	}
	return p
}

func (s *StripeProvider) client(mode model.Mode) (*client.API, error) {
	sc, ok := s.clients[mode]
	if !ok {
		return nil, &provider.ProviderError{
			Code:    "NOT_CONFIGURED",
			Message: fmt.Sprintf("no Stripe key configured for %s mode", mode),
		}
	}
	return sc, nil
}

func newParams(ctx context.Context, accountID string, metadata map[string]string) stripe.Params {
	params := stripe.Params{Context: ctx}
	if accountID != "" {
		params.SetStripeAccount(accountID)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	return params
}

// CreateProduct creates a product on the connected account
func (s *StripeProvider) CreateProduct(ctx context.Context, req *provider.CreateProductRequest) (string, error) {
	sc, err := s.client(req.Mode)
	if err != nil {
		return "", err
	}

	params := &stripe.ProductParams{
		Params: newParams(ctx, req.AccountID, req.Metadata),
		Name:   stripe.String(req.Name),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.ImageURL != "" {
		params.Images = stripe.StringSlice([]string{req.ImageURL})
	}

	product, err := sc.Products.New(params)
	if err != nil {
		s.logger.Error("Failed to create Stripe product",
			zap.String("mode", string(req.Mode)),
			zap.String("account_id", req.AccountID),
			zap.String("name", req.Name),
			zap.Error(err))
		return "", toProviderError(err)
	}

	s.logger.Info("Stripe product created",
		zap.String("mode", string(req.Mode)),
		zap.String("product_id", product.ID))
	return product.ID, nil
}

// CreatePrice creates a one-time or recurring price for a product
func (s *StripeProvider) CreatePrice(ctx context.Context, req *provider.CreatePriceRequest) (string, error) {
	sc, err := s.client(req.Mode)
	if err != nil {
		return "", err
	}

	params := &stripe.PriceParams{
		Params:     newParams(ctx, req.AccountID, req.Metadata),
		Product:    stripe.String(req.ProductID),
		UnitAmount: stripe.Int64(req.Amount),
		Currency:   stripe.String(req.Currency),
	}
	if req.Interval != "" {
		params.Recurring = &stripe.PriceRecurringParams{
			Interval: stripe.String(req.Interval),
		}
	}

	price, err := sc.Prices.New(params)
	if err != nil {
		s.logger.Error("Failed to create Stripe price",
			zap.String("mode", string(req.Mode)),
			zap.String("account_id", req.AccountID),
			zap.String("product_id", req.ProductID),
			zap.Error(err))
		return "", toProviderError(err)
	}

	s.logger.Info("Stripe price created",
		zap.String("mode", string(req.Mode)),
		zap.String("price_id", price.ID))
	return price.ID, nil
}

// CreateCheckoutSession starts a subscription checkout on the platform account
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutSessionRequest) (*provider.CheckoutSession, error) {
	sc, err := s.client(req.Mode)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Params: newParams(ctx, "", req.Metadata),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.ClientReferenceID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: req.Metadata,
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	if req.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(req.TrialDays))
	}

	session, err := sc.CheckoutSessions.New(params)
	if err != nil {
		s.logger.Error("Failed to create checkout session",
			zap.String("mode", string(req.Mode)),
			zap.String("client_reference_id", req.ClientReferenceID),
			zap.Error(err))
		return nil, toProviderError(err)
	}

	return &provider.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// GetSubscription fetches a subscription from the platform account
func (s *StripeProvider) GetSubscription(ctx context.Context, mode model.Mode, subscriptionID string) (*provider.Subscription, error) {
	sc, err := s.client(mode)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}}
	sub, err := sc.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		s.logger.Error("Failed to get subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, toProviderError(err)
	}

	out := &provider.Subscription{
		ID:               sub.ID,
		Status:           string(sub.Status),
		CurrentPeriodEnd: unixPtr(sub.CurrentPeriodEnd),
		TrialEnd:         unixPtr(sub.TrialEnd),
		Metadata:         sub.Metadata,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	return out, nil
}

// ExchangeOAuthCode completes Stripe Connect for one mode
func (s *StripeProvider) ExchangeOAuthCode(ctx context.Context, mode model.Mode, code string) (*provider.OAuthToken, error) {
	sc, err := s.client(mode)
	if err != nil {
		return nil, err
	}

	token, err := sc.OAuth.New(&stripe.OAuthTokenParams{
		Params:    stripe.Params{Context: ctx},
		GrantType: stripe.String("authorization_code"),
		Code:      stripe.String(code),
	})
	if err != nil {
		s.logger.Error("Failed to exchange OAuth code",
			zap.String("mode", string(mode)),
			zap.Error(err))
		return nil, toProviderError(err)
	}

	return &provider.OAuthToken{
		AccountID:    token.StripeUserID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Scope:        string(token.Scope),
		Livemode:     token.Livemode,
	}, nil
}

// VerifyWebhook checks the Stripe-Signature header and decodes the event payload.
// Event bodies are read as raw JSON so fields that moved between API versions still resolve.
func (s *StripeProvider) VerifyWebhook(payload []byte, signature, secret string) (*provider.WebhookEvent, error) {
	if secret == "" {
		return nil, domainErrors.ErrWebhookSecretMissing
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		secret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidSignature, err)
	}

	out := &provider.WebhookEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		Livemode: event.Livemode,
		Created:  time.Unix(event.Created, 0).UTC(),
	}

	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case provider.EventSubscriptionCreated, provider.EventSubscriptionUpdated, provider.EventSubscriptionDeleted:
		var raw map[string]interface{}
		if err := json.Unmarshal(event.Data.Raw, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedEvent, err)
		}
		out.Subscription = parseSubscription(raw)
	case provider.EventCheckoutCompleted:
		var raw map[string]interface{}
		if err := json.Unmarshal(event.Data.Raw, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedEvent, err)
		}
		out.Checkout = parseCheckout(raw)
	}

	return out, nil
}

func parseSubscription(raw map[string]interface{}) *provider.Subscription {
	sub := &provider.Subscription{
		ID:         stringField(raw, "id"),
		CustomerID: idField(raw, "customer"),
		Status:     stringField(raw, "status"),
		TrialEnd:   unixField(raw, "trial_end"),
		Metadata:   metadataField(raw),
	}

	sub.CurrentPeriodEnd = unixField(raw, "current_period_end")
	if sub.CurrentPeriodEnd == nil {
		// Newer API versions only carry the period on subscription items.
		if items, ok := raw["items"].(map[string]interface{}); ok {
			if data, ok := items["data"].([]interface{}); ok && len(data) > 0 {
				if item, ok := data[0].(map[string]interface{}); ok {
					sub.CurrentPeriodEnd = unixField(item, "current_period_end")
				}
			}
		}
	}
	return sub
}

func parseCheckout(raw map[string]interface{}) *provider.CheckoutCompleted {
	return &provider.CheckoutCompleted{
		ID:                stringField(raw, "id"),
		ClientReferenceID: stringField(raw, "client_reference_id"),
		CustomerID:        idField(raw, "customer"),
		SubscriptionID:    idField(raw, "subscription"),
		Metadata:          metadataField(raw),
	}
}

func stringField(raw map[string]interface{}, key string) string {
	v, _ := raw[key].(string)
	return v
}

// idField reads an id that may be expanded into an object.
func idField(raw map[string]interface{}, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case map[string]interface{}:
		return stringField(v, "id")
	}
	return ""
}

func unixField(raw map[string]interface{}, key string) *time.Time {
	v, ok := raw[key].(float64)
	if !ok || v <= 0 {
		return nil
	}
	return unixPtr(int64(v))
}

func metadataField(raw map[string]interface{}) map[string]string {
	out := make(map[string]string)
	meta, ok := raw["metadata"].(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range meta {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func toProviderError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		code := string(stripeErr.Code)
		if code == "" {
			code = string(stripeErr.Type)
		}
		return &provider.ProviderError{
			Code:    code,
			Message: stripeErr.Msg,
			Status:  stripeErr.HTTPStatusCode,
		}
	}
	return &provider.ProviderError{Code: "STRIPE_ERROR", Message: err.Error()}
}

var _ provider.BillingProvider = (*StripeProvider)(nil)
