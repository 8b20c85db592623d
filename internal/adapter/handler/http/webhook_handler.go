package http

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/entity"
	apperrors "github.com/wekeepgrowing/semo-keyhub/pkg/errors"
	"go.uber.org/zap"
)

// maxWebhookBody caps the payload read from the billing processor.
const maxWebhookBody = 1 << 20

type WebhookProcessor interface {
	Process(ctx context.Context, payload []byte, signature string) (*entity.WebhookResult, error)
}

type WebhookHandler struct {
	processor WebhookProcessor
	logger    *zap.Logger
}

func NewWebhookHandler(processor WebhookProcessor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		logger:    logger,
	}
}

// HandleWebhook verifies and applies one billing processor event. Any non-2xx response makes
// the processor redeliver.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Error reading request body", err)
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if signature == "" {
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Missing Stripe-Signature header", nil)
	}

	result, err := h.processor.Process(c.Request().Context(), body, signature)
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"received": true,
		"event_id": result.EventID,
		"replayed": result.Replayed,
		"ignored":  result.Ignored,
	})
}
