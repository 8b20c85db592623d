package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"go.uber.org/zap"
)

type ProcessorService interface {
	Connect(ctx context.Context, platformID uuid.UUID, mode model.Mode, code string) (*model.ProcessorToken, error)
}

type ProcessorHandler struct {
	processor ProcessorService
	logger    *zap.Logger
}

func NewProcessorHandler(processor ProcessorService, logger *zap.Logger) *ProcessorHandler {
	return &ProcessorHandler{
		processor: processor,
		logger:    logger,
	}
}

type ConnectProcessorRequest struct {
	Mode string `json:"mode" validate:"required,oneof=sandbox production"`
	Code string `json:"code" validate:"required"`
}

// Connect completes the processor OAuth flow for one mode.
func (h *ProcessorHandler) Connect(c echo.Context) error {
	platform, err := currentPlatform(c)
	if err != nil {
		return err
	}

	var req ConnectProcessorRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.processor.Connect(c.Request().Context(), platform.PlatformID, model.Mode(req.Mode), req.Code)
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"mode":       token.Mode,
		"account_id": token.AccountID,
		"scope":      token.Scope,
	})
}
