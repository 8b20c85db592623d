package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/usecase"
	"go.uber.org/zap"
)

type TierService interface {
	List(ctx context.Context, platformID uuid.UUID, publishableKey string) ([]*model.Tier, error)
	Upsert(ctx context.Context, platformID uuid.UUID, publishableKey string, input usecase.TierInput) (*model.Tier, error)
	Delete(ctx context.Context, platformID uuid.UUID, publishableKey, name string) error
}

type TierHandler struct {
	tiers  TierService
	logger *zap.Logger
}

func NewTierHandler(tiers TierService, logger *zap.Logger) *TierHandler {
	return &TierHandler{
		tiers:  tiers,
		logger: logger,
	}
}

type UpsertTierRequest struct {
	Name        string               `json:"name" validate:"required,max=64"`
	DisplayName string               `json:"display_name" validate:"max=255"`
	Price       int64                `json:"price" validate:"gte=0"`
	Currency    string               `json:"currency" validate:"omitempty,len=3,alpha"`
	Limit       *int64               `json:"limit" validate:"omitempty,gte=0"`
	SortOrder   int                  `json:"sort_order"`
	Metadata    model.TierMetadataV1 `json:"metadata"`
}

func (h *TierHandler) ListTiers(c echo.Context) error {
	platform, err := currentPlatform(c)
	if err != nil {
		return err
	}

	tiers, err := h.tiers.List(c.Request().Context(), platform.PlatformID, c.Param("key"))
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"publishable_key": c.Param("key"),
		"tiers":           tiers,
	})
}

func (h *TierHandler) UpsertTier(c echo.Context) error {
	platform, err := currentPlatform(c)
	if err != nil {
		return err
	}

	var req UpsertTierRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tier, err := h.tiers.Upsert(c.Request().Context(), platform.PlatformID, c.Param("key"), usecase.TierInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Price:       req.Price,
		Currency:    req.Currency,
		UsageLimit:  req.Limit,
		SortOrder:   req.SortOrder,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusOK, tier)
}

func (h *TierHandler) DeleteTier(c echo.Context) error {
	platform, err := currentPlatform(c)
	if err != nil {
		return err
	}

	if err := h.tiers.Delete(c.Request().Context(), platform.PlatformID, c.Param("key"), c.Param("name")); err != nil {
		return toAppError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
