package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"go.uber.org/zap"
)

// AuthPlatform is the authenticated caller: an identity subject and the platform it owns.
type AuthPlatform struct {
	PlatformID uuid.UUID `json:"platform_id"`
	SubjectID  string    `json:"subject_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
}

// contextKey is used for storing the platform in context
type contextKey string

const (
	platformContextKey contextKey = "authenticated_platform"
)

// TokenVerifier verifies identity provider bearer tokens.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, bearer string) (*provider.Subject, error)
}

// PlatformEnsurer maps a verified subject to its platform, creating it on first sight.
type PlatformEnsurer interface {
	EnsurePlatform(ctx context.Context, subjectID string) (*model.Platform, error)
}

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Verifier  TokenVerifier
	Platforms PlatformEnsurer
	Logger    *zap.Logger
	SkipPaths []string // Paths to skip JWT validation
}

// JWTMiddleware verifies the identity provider token and resolves the caller's platform.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Authorization header required",
					"code":  "MISSING_AUTH_HEADER",
				})
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader || tokenString == "" {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid authorization header format. Expected: Bearer <token>",
					"code":  "INVALID_AUTH_FORMAT",
				})
			}

			subject, err := config.Verifier.VerifyToken(c.Request().Context(), tokenString)
			if err != nil {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid or expired token",
					"code":  "INVALID_TOKEN",
				})
			}

			platform, err := config.Platforms.EnsurePlatform(c.Request().Context(), subject.ID)
			if err != nil {
				config.Logger.Error("Failed to resolve platform for subject",
					zap.String("subject_id", subject.ID),
					zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"error": "Failed to resolve platform",
					"code":  "PLATFORM_UNAVAILABLE",
				})
			}
			if platform.Status == model.SubscriptionStatusPurged {
				config.Logger.Warn("Request from purged platform",
					zap.String("platform_id", platform.PlatformID.String()))
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "Platform data has been purged",
					"code":  "PLATFORM_PURGED",
				})
			}

			authPlatform := &AuthPlatform{
				PlatformID: platform.PlatformID,
				SubjectID:  subject.ID,
				Email:      subject.Email,
				Role:       subject.Role,
			}

			ctx := context.WithValue(c.Request().Context(), platformContextKey, authPlatform)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("platform_id", platform.PlatformID.String())

			config.Logger.Debug("Platform authenticated",
				zap.String("platform_id", platform.PlatformID.String()),
				zap.String("subject_id", subject.ID),
				zap.String("path", path))

			return next(c)
		}
	}
}

// GetPlatformFromContext extracts the authenticated platform from the request context
func GetPlatformFromContext(c echo.Context) (*AuthPlatform, error) {
	platform, ok := c.Request().Context().Value(platformContextKey).(*AuthPlatform)
	if !ok || platform == nil {
		return nil, fmt.Errorf("no authenticated platform found in context")
	}
	return platform, nil
}

// WithPlatform returns a copy of ctx carrying platform. Handler tests use it to skip the middleware.
func WithPlatform(ctx context.Context, platform *AuthPlatform) context.Context {
	return context.WithValue(ctx, platformContextKey, platform)
}
