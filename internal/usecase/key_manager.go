package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
)

// KeyManager issues and rotates project credentials. Plaintext secrets are returned to the
// caller once and only the hash (plus an encrypted copy for the owner's export) is stored.
type KeyManager struct {
	projects  repository.ProjectRepository
	tiers     repository.TierRepository
	locker    *keyLocker
	projector *CacheProjector
	sealer    SecretSealer
	logger    *zap.Logger
}

// NewKeyManager creates a new key manager
func NewKeyManager(
	projects repository.ProjectRepository,
	tiers repository.TierRepository,
	locks repository.KeyLockRepository,
	lockTTL time.Duration,
	projector *CacheProjector,
	sealer SecretSealer,
	logger *zap.Logger,
) *KeyManager {
	return &KeyManager{
		projects:  projects,
		tiers:     tiers,
		locker:    newKeyLocker(locks, lockTTL, logger),
		projector: projector,
		sealer:    sealer,
		logger:    logger,
	}
}

// seal encrypts the secret for the owner's export. A sealing failure only loses the export
// copy, never the key itself.
func (m *KeyManager) seal(publishableKey, secret string) (*string, *string) {
	if m.sealer == nil {
		return nil, nil
	}
	ciphertext, iv, err := m.sealer.Encrypt(secret)
	if err != nil {
		m.logger.Error("Failed to seal secret for export",
			zap.String("publishable_key", publishableKey),
			zap.Error(err))
		return nil, nil
	}
	return &ciphertext, &iv
}

// CreateProject creates a project with a fresh key pair and no tiers.
func (m *KeyManager) CreateProject(ctx context.Context, platformID uuid.UUID, name string, projectType model.ProjectType, mode model.Mode) (*model.Project, *entity.KeyPair, error) {
	if !mode.Valid() {
		return nil, nil, domainErrors.ErrInvalidMode
	}
	if !projectType.Valid() {
		return nil, nil, domainErrors.ErrInvalidProjectType
	}

	keys, err := GenerateKeyPair(mode)
	if err != nil {
		return nil, nil, err
	}
	sealed, iv := m.seal(keys.PublishableKey, keys.SecretKey)

	project := &model.Project{
		PublishableKey: keys.PublishableKey,
		PlatformID:     platformID,
		Name:           strings.TrimSpace(name),
		ProjectType:    projectType,
		Mode:           mode,
		Status:         model.ProjectStatusActive,
		SecretKeyHash:  HashSecret(keys.SecretKey),
		SecretKeyEnc:   sealed,
		SecretKeyIV:    iv,
	}
	if err := m.projects.Upsert(ctx, project); err != nil {
		return nil, nil, err
	}

	m.projector.ProjectProject(ctx, project, nil)

	m.logger.Info("Project created",
		zap.String("platform_id", platformID.String()),
		zap.String("publishable_key", project.PublishableKey),
		zap.String("mode", string(mode)),
		zap.String("project_type", string(projectType)))
	return project, keys, nil
}

// RotateSecret replaces the secret of an owned project. Only the hash changes: the publishable
// key, tiers and customer data stay as they are.
func (m *KeyManager) RotateSecret(ctx context.Context, platformID uuid.UUID, publishableKey string, mode model.Mode) (string, error) {
	if !mode.Valid() {
		return "", domainErrors.ErrInvalidMode
	}

	project, err := loadOwnedProject(ctx, m.projects, platformID, publishableKey)
	if err != nil {
		if errors.Is(err, domainErrors.ErrOwnership) {
			m.logger.Warn("Rotation rejected for foreign key",
				zap.String("platform_id", platformID.String()),
				zap.String("publishable_key", publishableKey))
		}
		return "", err
	}
	if keyMode, ok := ModeOfKey(publishableKey); !ok || keyMode != mode || project.Mode != mode {
		return "", domainErrors.ErrModeMismatch
	}

	var secret string
	err = m.locker.withLock(ctx, publishableKey, "rotate", func(*keyLease) error {
		// Re-read under the lock: a rotation that committed since the read above changed the
		// hash, and that hash is the one to retire.
		current, err := loadOwnedProject(ctx, m.projects, platformID, publishableKey)
		if err != nil {
			return err
		}

		keys, err := GenerateKeyPair(mode)
		if err != nil {
			return err
		}
		newHash := HashSecret(keys.SecretKey)
		sealed, iv := m.seal(publishableKey, keys.SecretKey)

		if err := m.projects.UpdateSecret(ctx, publishableKey, newHash, sealed, iv); err != nil {
			return err
		}

		oldHash := current.SecretKeyHash
		current.SecretKeyHash = newHash
		m.projector.RemoveSecretHash(ctx, oldHash)
		m.projector.ProjectKeys(ctx, current)

		secret = keys.SecretKey
		return nil
	})
	if err != nil {
		return "", err
	}

	m.logger.Info("Secret rotated",
		zap.String("platform_id", platformID.String()),
		zap.String("publishable_key", publishableKey))
	return secret, nil
}
