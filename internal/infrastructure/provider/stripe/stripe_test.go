package stripe

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"go.uber.org/zap"
)

const testSecret = "whsec_test_secret"

func signed(t *testing.T, payload string) (body []byte, header string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func TestStripeProvider_VerifyWebhook(t *testing.T) {
	p := NewStripeProvider(config.StripeConfig{}, zap.NewNop())

	t.Run("subscription event", func(t *testing.T) {
		body, header := signed(t, `{
			"id": "evt_1", "object": "event", "type": "customer.subscription.updated",
			"livemode": false, "created": 1700000000,
			"data": {"object": {
				"id": "sub_1", "object": "subscription", "customer": "cus_1", "status": "active",
				"current_period_end": 1735689600,
				"metadata": {"subject_id": "user-1", "tier": "pro"}
			}}
		}`)

		event, err := p.VerifyWebhook(body, header, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, provider.EventSubscriptionUpdated, event.Type)
		require.NotNil(t, event.Subscription)
		assert.Equal(t, "cus_1", event.Subscription.CustomerID)
		assert.Equal(t, "active", event.Subscription.Status)
		require.NotNil(t, event.Subscription.CurrentPeriodEnd)
		assert.Equal(t, int64(1735689600), event.Subscription.CurrentPeriodEnd.Unix())
		assert.Equal(t, "user-1", event.Subscription.Metadata[provider.MetadataSubjectID])
		assert.Nil(t, event.Checkout)
	})

	t.Run("period end on subscription items", func(t *testing.T) {
		body, header := signed(t, `{
			"id": "evt_2", "object": "event", "type": "customer.subscription.created",
			"created": 1700000000,
			"data": {"object": {
				"id": "sub_2", "customer": {"id": "cus_2"}, "status": "trialing", "trial_end": 1701000000,
				"items": {"data": [{"current_period_end": 1702000000}]}
			}}
		}`)

		event, err := p.VerifyWebhook(body, header, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "cus_2", event.Subscription.CustomerID)
		require.NotNil(t, event.Subscription.CurrentPeriodEnd)
		assert.Equal(t, int64(1702000000), event.Subscription.CurrentPeriodEnd.Unix())
		require.NotNil(t, event.Subscription.TrialEnd)
	})

	t.Run("checkout event", func(t *testing.T) {
		body, header := signed(t, `{
			"id": "evt_3", "object": "event", "type": "checkout.session.completed",
			"created": 1700000000,
			"data": {"object": {
				"id": "cs_1", "client_reference_id": "3f0e6a3c-5a55-4f0f-9d5e-0a8f7a0b1c2d",
				"customer": "cus_3", "subscription": "sub_3", "metadata": {"tier": "pro"}
			}}
		}`)

		event, err := p.VerifyWebhook(body, header, testSecret)
		require.NoError(t, err)
		require.NotNil(t, event.Checkout)
		assert.Equal(t, "sub_3", event.Checkout.SubscriptionID)
		assert.Equal(t, "pro", event.Checkout.Metadata[provider.MetadataTier])
	})

	t.Run("bad signature", func(t *testing.T) {
		body, _ := signed(t, `{"id": "evt_4", "object": "event", "type": "invoice.paid", "data": {"object": {}}}`)
		_, err := p.VerifyWebhook(body, "t=1,v1=deadbeef", testSecret)
		assert.True(t, errors.Is(err, domainErrors.ErrInvalidSignature))
	})

	t.Run("missing secret", func(t *testing.T) {
		body, header := signed(t, `{"id": "evt_5", "object": "event", "type": "invoice.paid", "data": {"object": {}}}`)
		_, err := p.VerifyWebhook(body, header, "")
		assert.True(t, errors.Is(err, domainErrors.ErrWebhookSecretMissing))
	})
}

func TestStripeProvider_UnconfiguredMode(t *testing.T) {
	p := NewStripeProvider(config.StripeConfig{SandboxSecretKey: "sk_test_123"}, zap.NewNop())

	_, err := p.client(model.ModeSandbox)
	assert.NoError(t, err)

	_, err = p.client(model.ModeProduction)
	var providerErr *provider.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, "NOT_CONFIGURED", providerErr.Code)
}
