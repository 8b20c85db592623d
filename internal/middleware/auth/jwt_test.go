package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/infrastructure/identity"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// MockPlatformEnsurer is a mock implementation of PlatformEnsurer
type MockPlatformEnsurer struct {
	mock.Mock
}

func (m *MockPlatformEnsurer) EnsurePlatform(ctx context.Context, subjectID string) (*model.Platform, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Platform), args.Error(1)
}

func createJWT(subject string, secret string, expiresIn time.Duration) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"email": "dev@example.com",
		"role":  "authenticated",
		"exp":   time.Now().Add(expiresIn).Unix(),
		"iat":   time.Now().Unix(),
	})
	tokenString, _ := token.SignedString([]byte(secret))
	return tokenString
}

func newTestMiddleware(platforms PlatformEnsurer) echo.MiddlewareFunc {
	logger := zap.NewNop()
	return JWTMiddleware(JWTConfig{
		Verifier:  identity.NewClient(config.IdentityConfig{JWTSecret: testSecret}, logger),
		Platforms: platforms,
		Logger:    logger,
		SkipPaths: []string{"/health", "/webhook"},
	})
}

func serve(t *testing.T, mw echo.MiddlewareFunc, path, authorization string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := mw(handler)(c)
	assert.NoError(t, err)
	return rec
}

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func TestJWTMiddleware_SuccessfulAuthentication(t *testing.T) {
	platforms := new(MockPlatformEnsurer)
	platformID := uuid.New()
	platforms.On("EnsurePlatform", mock.Anything, "subject-1").Return(&model.Platform{
		PlatformID:        platformID,
		IdentitySubjectID: "subject-1",
		Status:            model.SubscriptionStatusActive,
	}, nil)

	rec := serve(t, newTestMiddleware(platforms), "/api/v1/platform", "Bearer "+createJWT("subject-1", testSecret, time.Hour),
		func(c echo.Context) error {
			platform, err := GetPlatformFromContext(c)
			assert.NoError(t, err)
			assert.Equal(t, platformID, platform.PlatformID)
			assert.Equal(t, "subject-1", platform.SubjectID)
			assert.Equal(t, "dev@example.com", platform.Email)
			assert.Equal(t, platformID.String(), c.Get("platform_id"))
			return okHandler(c)
		})

	assert.Equal(t, http.StatusOK, rec.Code)
	platforms.AssertExpectations(t)
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantCode      string
	}{
		{"missing header", "", http.StatusUnauthorized, "MISSING_AUTH_HEADER"},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "INVALID_AUTH_FORMAT"},
		{"wrong secret", "Bearer " + createJWT("subject-1", "other-secret", time.Hour), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"expired", "Bearer " + createJWT("subject-1", testSecret, -time.Minute), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"no subject", "Bearer " + createJWT("", testSecret, time.Hour), http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platforms := new(MockPlatformEnsurer)
			rec := serve(t, newTestMiddleware(platforms), "/api/v1/platform", tt.authorization, okHandler)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
			platforms.AssertNotCalled(t, "EnsurePlatform", mock.Anything, mock.Anything)
		})
	}
}

func TestJWTMiddleware_PlatformResolution(t *testing.T) {
	token := "Bearer " + createJWT("subject-2", testSecret, time.Hour)

	t.Run("store failure", func(t *testing.T) {
		platforms := new(MockPlatformEnsurer)
		platforms.On("EnsurePlatform", mock.Anything, "subject-2").Return(nil, errors.New("connection reset"))

		rec := serve(t, newTestMiddleware(platforms), "/api/v1/platform", token, okHandler)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "PLATFORM_UNAVAILABLE")
	})

	t.Run("purged platform", func(t *testing.T) {
		platforms := new(MockPlatformEnsurer)
		platforms.On("EnsurePlatform", mock.Anything, "subject-2").Return(&model.Platform{
			PlatformID: uuid.New(),
			Status:     model.SubscriptionStatusPurged,
		}, nil)

		rec := serve(t, newTestMiddleware(platforms), "/api/v1/platform", token, okHandler)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "PLATFORM_PURGED")
	})
}

func TestJWTMiddleware_SkipPaths(t *testing.T) {
	platforms := new(MockPlatformEnsurer)
	rec := serve(t, newTestMiddleware(platforms), "/webhook", "", okHandler)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPlatformFromContext_Missing(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := GetPlatformFromContext(c)
	assert.Error(t, err)
}
