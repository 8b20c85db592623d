package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"go.uber.org/zap"
)

func sign(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestClient_VerifyToken(t *testing.T) {
	client := NewClient(config.IdentityConfig{JWTSecret: "test-secret"}, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name    string
		token   string
		wantID  string
		wantErr error
	}{
		{
			name: "valid token",
			token: sign(t, jwt.SigningMethodHS256, "test-secret", jwt.MapClaims{
				"sub":   "user-123",
				"email": "dev@example.com",
				"role":  "authenticated",
				"exp":   time.Now().Add(time.Hour).Unix(),
			}),
			wantID: "user-123",
		},
		{
			name: "expired token",
			token: sign(t, jwt.SigningMethodHS256, "test-secret", jwt.MapClaims{
				"sub": "user-123",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
			wantErr: ErrInvalidToken,
		},
		{
			name: "no expiry",
			token: sign(t, jwt.SigningMethodHS256, "test-secret", jwt.MapClaims{
				"sub": "user-123",
			}),
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong secret",
			token: sign(t, jwt.SigningMethodHS256, "other-secret", jwt.MapClaims{
				"sub": "user-123",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantErr: ErrInvalidToken,
		},
		{
			name: "missing subject",
			token: sign(t, jwt.SigningMethodHS256, "test-secret", jwt.MapClaims{
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantErr: ErrMissingSubject,
		},
		{
			name:    "garbage",
			token:   "not-a-jwt",
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, err := client.VerifyToken(ctx, tt.token)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, subject)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, subject.ID)
			assert.Equal(t, "dev@example.com", subject.Email)
		})
	}
}

func TestClient_UpdateSubjectMetadata(t *testing.T) {
	t.Run("writes app metadata", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/auth/v1/admin/users/user-123", r.URL.Path)
			assert.Equal(t, "service-key", r.Header.Get("apikey"))
			assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

			var body map[string]map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "pro", body["app_metadata"]["plan"])

			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"id":"user-123"}`))
		}))
		defer server.Close()

		client := NewClient(config.IdentityConfig{ProjectURL: server.URL + "/", APIKey: "service-key", Timeout: time.Second}, zap.NewNop())
		err := client.UpdateSubjectMetadata(context.Background(), "user-123", provider.SubjectMetadata{Plan: "pro"})
		assert.NoError(t, err)
	})

	t.Run("error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"msg":"User not found"}`))
		}))
		defer server.Close()

		client := NewClient(config.IdentityConfig{ProjectURL: server.URL, APIKey: "service-key", Timeout: time.Second}, zap.NewNop())
		err := client.UpdateSubjectMetadata(context.Background(), "user-404", provider.SubjectMetadata{Plan: "pro"})
		assert.Error(t, err)
	})

	t.Run("not configured", func(t *testing.T) {
		client := NewClient(config.IdentityConfig{}, zap.NewNop())
		assert.NoError(t, client.UpdateSubjectMetadata(context.Background(), "user-123", provider.SubjectMetadata{Plan: "pro"}))
	})
}
