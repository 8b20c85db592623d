package http

import (
	"errors"

	"github.com/labstack/echo/v4"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"github.com/wekeepgrowing/semo-keyhub/internal/middleware/auth"
	apperrors "github.com/wekeepgrowing/semo-keyhub/pkg/errors"
)

// toAppError maps a use case error onto the response code rendered by the echo error handler.
func toAppError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var providerErr *provider.ProviderError
	switch {
	case errors.Is(err, domainErrors.ErrOwnership):
		return apperrors.NewAppError(apperrors.ErrUnauthorized, domainErrors.ErrOwnership.Error(), err)

	case errors.Is(err, domainErrors.ErrProjectNotFound),
		errors.Is(err, domainErrors.ErrTierNotFound),
		errors.Is(err, domainErrors.ErrPlatformNotFound):
		return apperrors.NewAppError(apperrors.ErrNotFound, err.Error(), err)

	case errors.Is(err, domainErrors.ErrMutationInProgress):
		return apperrors.NewAppError(apperrors.ErrConflict, err.Error(), err)

	case errors.Is(err, domainErrors.ErrProductionNotAuthorized):
		return apperrors.NewAppError(apperrors.ErrPreconditionFailed, err.Error(), err)

	case errors.Is(err, domainErrors.ErrInvalidMode),
		errors.Is(err, domainErrors.ErrInvalidProjectType),
		errors.Is(err, domainErrors.ErrModeMismatch),
		errors.Is(err, domainErrors.ErrInvalidTier),
		errors.Is(err, domainErrors.ErrNotSandboxKey),
		errors.Is(err, domainErrors.ErrUnknownPlan),
		errors.Is(err, domainErrors.ErrWebhookSecretMissing),
		errors.Is(err, domainErrors.ErrInvalidSignature),
		errors.Is(err, domainErrors.ErrMalformedEvent),
		errors.Is(err, domainErrors.ErrMissingEventMetadata):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, err.Error(), err)

	case errors.Is(err, domainErrors.ErrPromotionFailed):
		return apperrors.NewAppError(apperrors.ErrUpstream, err.Error(), err)

	case errors.As(err, &providerErr):
		return apperrors.NewAppError(apperrors.ErrUpstream, "billing processor request failed", err)
	}

	return apperrors.NewAppError(apperrors.ErrInternal, "internal server error", err)
}

// bindAndValidate decodes the request body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Invalid request body", err)
	}
	return c.Validate(req)
}

// currentPlatform returns the platform resolved by the auth middleware.
func currentPlatform(c echo.Context) (*auth.AuthPlatform, error) {
	platform, err := auth.GetPlatformFromContext(c)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrUnauthenticated, "Authentication required", err)
	}
	return platform, nil
}
