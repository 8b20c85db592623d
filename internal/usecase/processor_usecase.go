package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
)

// ProcessorUsecase stores a platform's authorization with the billing processor.
type ProcessorUsecase struct {
	tokens  repository.ProcessorTokenRepository
	billing provider.BillingProvider
	sealer  SecretSealer
	logger  *zap.Logger
}

// NewProcessorUsecase creates a new processor usecase
func NewProcessorUsecase(
	tokens repository.ProcessorTokenRepository,
	billing provider.BillingProvider,
	sealer SecretSealer,
	logger *zap.Logger,
) *ProcessorUsecase {
	return &ProcessorUsecase{
		tokens:  tokens,
		billing: billing,
		sealer:  sealer,
		logger:  logger.Named("processor"),
	}
}

// Connect exchanges an OAuth code for mode and stores the tokens encrypted. Connecting again
// replaces the stored tokens for that mode.
func (u *ProcessorUsecase) Connect(ctx context.Context, platformID uuid.UUID, mode model.Mode, code string) (*model.ProcessorToken, error) {
	if !mode.Valid() {
		return nil, domainErrors.ErrInvalidMode
	}
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}

	oauth, err := u.billing.ExchangeOAuthCode(ctx, mode, code)
	if err != nil {
		u.logger.Error("Failed to exchange authorization code",
			zap.String("platform_id", platformID.String()),
			zap.String("mode", string(mode)),
			zap.Error(err))
		return nil, err
	}
	if oauth.Livemode != (mode == model.ModeProduction) {
		u.logger.Warn("Authorization mode does not match requested mode",
			zap.String("platform_id", platformID.String()),
			zap.String("mode", string(mode)),
			zap.Bool("livemode", oauth.Livemode))
		return nil, domainErrors.ErrModeMismatch
	}

	accessEnc, accessIV, err := u.sealer.Encrypt(oauth.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to seal access token: %w", err)
	}

	token := &model.ProcessorToken{
		PlatformID:     platformID,
		Mode:           mode,
		AccountID:      oauth.AccountID,
		AccessTokenEnc: accessEnc,
		AccessTokenIV:  accessIV,
		Scope:          oauth.Scope,
	}
	if oauth.RefreshToken != "" {
		refreshEnc, refreshIV, err := u.sealer.Encrypt(oauth.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to seal refresh token: %w", err)
		}
		token.RefreshTokenEnc = &refreshEnc
		token.RefreshTokenIV = &refreshIV
	}

	if err := u.tokens.Upsert(ctx, token); err != nil {
		return nil, err
	}

	u.logger.Info("Billing processor connected",
		zap.String("platform_id", platformID.String()),
		zap.String("mode", string(mode)),
		zap.String("account_id", oauth.AccountID))
	return token, nil
}
