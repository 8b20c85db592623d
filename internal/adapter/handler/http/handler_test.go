package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/entity"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"github.com/wekeepgrowing/semo-keyhub/internal/middleware/auth"
	"github.com/wekeepgrowing/semo-keyhub/internal/usecase"
	"github.com/wekeepgrowing/semo-keyhub/pkg/logger"
	"go.uber.org/zap"
)

var testPlatform = &auth.AuthPlatform{
	PlatformID: uuid.MustParse("5f0c3a51-0b9f-4a53-9b0e-0d7a3f2e8c11"),
	SubjectID:  "subject-1",
	Email:      "dev@example.com",
	Role:       "authenticated",
}

// MockKeyService is a mock implementation of KeyService
type MockKeyService struct {
	mock.Mock
}

func (m *MockKeyService) CreateProject(ctx context.Context, platformID uuid.UUID, name string, projectType model.ProjectType, mode model.Mode) (*model.Project, *entity.KeyPair, error) {
	args := m.Called(ctx, platformID, name, projectType, mode)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Project), args.Get(1).(*entity.KeyPair), args.Error(2)
}

func (m *MockKeyService) RotateSecret(ctx context.Context, platformID uuid.UUID, publishableKey string, mode model.Mode) (string, error) {
	args := m.Called(ctx, platformID, publishableKey, mode)
	return args.String(0), args.Error(1)
}

// MockPromotionService is a mock implementation of PromotionService
type MockPromotionService struct {
	mock.Mock
}

func (m *MockPromotionService) Promote(ctx context.Context, platformID uuid.UUID, sandboxKey string) (*entity.PromotionResult, error) {
	args := m.Called(ctx, platformID, sandboxKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PromotionResult), args.Error(1)
}

// MockTierService is a mock implementation of TierService
type MockTierService struct {
	mock.Mock
}

func (m *MockTierService) List(ctx context.Context, platformID uuid.UUID, publishableKey string) ([]*model.Tier, error) {
	args := m.Called(ctx, platformID, publishableKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Tier), args.Error(1)
}

func (m *MockTierService) Upsert(ctx context.Context, platformID uuid.UUID, publishableKey string, input usecase.TierInput) (*model.Tier, error) {
	args := m.Called(ctx, platformID, publishableKey, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tier), args.Error(1)
}

func (m *MockTierService) Delete(ctx context.Context, platformID uuid.UUID, publishableKey, name string) error {
	args := m.Called(ctx, platformID, publishableKey, name)
	return args.Error(0)
}

// MockPlatformService is a mock implementation of PlatformService
type MockPlatformService struct {
	mock.Mock
}

func (m *MockPlatformService) Export(ctx context.Context, platformID uuid.UUID, includeSecrets bool) (*entity.PlatformExport, error) {
	args := m.Called(ctx, platformID, includeSecrets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PlatformExport), args.Error(1)
}

func (m *MockPlatformService) Subscription(ctx context.Context, platformID uuid.UUID) (*entity.SubscriptionCacheEntry, error) {
	args := m.Called(ctx, platformID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SubscriptionCacheEntry), args.Error(1)
}

func (m *MockPlatformService) CreateCheckoutSession(ctx context.Context, platformID uuid.UUID, plan, successURL, cancelURL string) (*provider.CheckoutSession, error) {
	args := m.Called(ctx, platformID, plan, successURL, cancelURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CheckoutSession), args.Error(1)
}

// MockProcessorService is a mock implementation of ProcessorService
type MockProcessorService struct {
	mock.Mock
}

func (m *MockProcessorService) Connect(ctx context.Context, platformID uuid.UUID, mode model.Mode, code string) (*model.ProcessorToken, error) {
	args := m.Called(ctx, platformID, mode, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProcessorToken), args.Error(1)
}

// MockWebhookProcessor is a mock implementation of WebhookProcessor
type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) Process(ctx context.Context, payload []byte, signature string) (*entity.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.WebhookResult), args.Error(1)
}

// newTestEcho wires the production error handler and validator.
func newTestEcho() *echo.Echo {
	e := echo.New()
	logger.WithEchoLogger(e, zap.NewNop())
	e.Validator = NewRequestValidator()
	return e
}

// authenticated stands in for the JWT middleware.
func authenticated(platform *auth.AuthPlatform) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if platform != nil {
				c.SetRequest(c.Request().WithContext(auth.WithPlatform(c.Request().Context(), platform)))
			}
			return next(c)
		}
	}
}

func doRequest(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
