package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrMissingSubject = errors.New("token has no subject")
)

// Client talks to a Supabase-compatible identity provider: tokens are verified locally with
// the shared HMAC secret, metadata writes go through the admin REST API.
type Client struct {
	jwtSecret  []byte
	projectURL string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new identity provider client
func NewClient(cfg config.IdentityConfig, logger *zap.Logger) *Client {
	return &Client{
		jwtSecret:  []byte(cfg.JWTSecret),
		projectURL: strings.TrimRight(cfg.ProjectURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// VerifyToken validates an HMAC-signed access token and returns its subject
func (c *Client) VerifyToken(ctx context.Context, bearer string) (*provider.Subject, error) {
	token, err := jwt.Parse(bearer, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ErrMissingSubject
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return &provider.Subject{
		ID:    subject,
		Email: email,
		Role:  role,
	}, nil
}

type adminUserUpdate struct {
	AppMetadata provider.SubjectMetadata `json:"app_metadata"`
}

// UpdateSubjectMetadata writes the platform plan into the user's app metadata
func (c *Client) UpdateSubjectMetadata(ctx context.Context, subjectID string, metadata provider.SubjectMetadata) error {
	if c.projectURL == "" || c.apiKey == "" {
		c.logger.Debug("Identity admin API not configured, skipping metadata update",
			zap.String("subject_id", subjectID))
		return nil
	}

	body, err := json.Marshal(adminUserUpdate{AppMetadata: metadata})
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	endpoint := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.projectURL, url.PathEscape(subjectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Identity provider request failed",
			zap.String("subject_id", subjectID),
			zap.Error(err))
		return fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Identity provider rejected metadata update",
			zap.String("subject_id", subjectID),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response_body", string(respBody)))
		return fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	c.logger.Info("Subject metadata updated",
		zap.String("subject_id", subjectID),
		zap.String("plan", metadata.Plan))
	return nil
}

var _ provider.IdentityProvider = (*Client)(nil)
