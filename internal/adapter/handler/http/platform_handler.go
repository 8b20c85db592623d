package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/entity"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	apperrors "github.com/wekeepgrowing/semo-keyhub/pkg/errors"
	"go.uber.org/zap"
)

type PlatformService interface {
	Export(ctx context.Context, platformID uuid.UUID, includeSecrets bool) (*entity.PlatformExport, error)
	Subscription(ctx context.Context, platformID uuid.UUID) (*entity.SubscriptionCacheEntry, error)
	CreateCheckoutSession(ctx context.Context, platformID uuid.UUID, plan, successURL, cancelURL string) (*provider.CheckoutSession, error)
}

type PlatformHandler struct {
	platforms PlatformService
	clientURL string
	logger    *zap.Logger
}

// NewPlatformHandler creates the handler. clientURL is the dashboard origin used when a
// checkout request omits its redirect URLs.
func NewPlatformHandler(platforms PlatformService, clientURL string, logger *zap.Logger) *PlatformHandler {
	return &PlatformHandler{
		platforms: platforms,
		clientURL: clientURL,
		logger:    logger,
	}
}

type CreateCheckoutRequest struct {
	Plan       string `json:"plan" validate:"required,max=64"`
	SuccessURL string `json:"success_url" validate:"omitempty,url"`
	CancelURL  string `json:"cancel_url" validate:"omitempty,url"`
}

type CreateCheckoutResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Export returns the dashboard view. Secrets are only included with include_secrets=true.
func (h *PlatformHandler) Export(c echo.Context) error {
	platform, err := currentPlatform(c)
	if err != nil {
		return err
	}

	includeSecrets := false
	if raw := c.QueryParam("include_secrets"); raw != "" {
		includeSecrets, err = strconv.ParseBool(raw)
		if err != nil {
			return apperrors.NewAppError(apperrors.ErrInvalidArgument, "include_secrets must be a boolean", err)
		}
	}

	export, err := h.platforms.Export(c.Request().Context(), platform.PlatformID, includeSecrets)
	if err != nil {
		return toAppError(err)
	}

	if includeSecrets {
		h.logger.Info("Platform export with secrets",
			zap.String("platform_id", platform.PlatformID.String()),
			zap.String("subject_id", platform.SubjectID))
	}
	return c.JSON(http.StatusOK, export)
}

func (h *PlatformHandler) Subscription(c echo.Context) error {
	platform, err := currentPlatform(c)
	if err != nil {
		return err
	}

	entry, err := h.platforms.Subscription(c.Request().Context(), platform.PlatformID)
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *PlatformHandler) CreateCheckout(c echo.Context) error {
	platform, err := currentPlatform(c)
	if err != nil {
		return err
	}

	var req CreateCheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.SuccessURL == "" {
		req.SuccessURL = h.clientURL + "/billing/success"
	}
	if req.CancelURL == "" {
		req.CancelURL = h.clientURL + "/billing/cancel"
	}

	session, err := h.platforms.CreateCheckoutSession(c.Request().Context(), platform.PlatformID, req.Plan, req.SuccessURL, req.CancelURL)
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusCreated, CreateCheckoutResponse{ID: session.ID, URL: session.URL})
}
