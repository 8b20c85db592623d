package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/entity"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"go.uber.org/zap"
)

type KeyService interface {
	CreateProject(ctx context.Context, platformID uuid.UUID, name string, projectType model.ProjectType, mode model.Mode) (*model.Project, *entity.KeyPair, error)
	RotateSecret(ctx context.Context, platformID uuid.UUID, publishableKey string, mode model.Mode) (string, error)
}

type PromotionService interface {
	Promote(ctx context.Context, platformID uuid.UUID, sandboxKey string) (*entity.PromotionResult, error)
}

type ProjectHandler struct {
	keys      KeyService
	promotion PromotionService
	logger    *zap.Logger
}

func NewProjectHandler(keys KeyService, promotion PromotionService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		keys:      keys,
		promotion: promotion,
		logger:    logger,
	}
}

type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	ProjectType string `json:"project_type" validate:"required,oneof=metered store"`
	Mode        string `json:"mode" validate:"required,oneof=sandbox production"`
}

type CreateProjectResponse struct {
	Project *model.Project  `json:"project"`
	Keys    *entity.KeyPair `json:"keys"`
}

type RotateSecretRequest struct {
	Mode string `json:"mode" validate:"required,oneof=sandbox production"`
}

// CreateProject issues a new key pair. The secret is only ever returned here.
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	platform, err := currentPlatform(c)
	if err != nil {
		return err
	}

	var req CreateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	project, keys, err := h.keys.CreateProject(c.Request().Context(), platform.PlatformID, req.Name,
		model.ProjectType(req.ProjectType), model.Mode(req.Mode))
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusCreated, CreateProjectResponse{Project: project, Keys: keys})
}

func (h *ProjectHandler) RotateSecret(c echo.Context) error {
	platform, err := currentPlatform(c)
	if err != nil {
		return err
	}

	var req RotateSecretRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	publishableKey := c.Param("key")
	secret, err := h.keys.RotateSecret(c.Request().Context(), platform.PlatformID, publishableKey, model.Mode(req.Mode))
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusOK, entity.KeyPair{PublishableKey: publishableKey, SecretKey: secret})
}

func (h *ProjectHandler) Promote(c echo.Context) error {
	platform, err := currentPlatform(c)
	if err != nil {
		return err
	}

	result, err := h.promotion.Promote(c.Request().Context(), platform.PlatformID, c.Param("key"))
	if err != nil {
		h.logger.Warn("Promotion failed",
			zap.String("platform_id", platform.PlatformID.String()),
			zap.String("sandbox_key", c.Param("key")),
			zap.Error(err))
		return toAppError(err)
	}

	return c.JSON(http.StatusCreated, result)
}
