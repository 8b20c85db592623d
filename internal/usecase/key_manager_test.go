package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"github.com/wekeepgrowing/semo-keyhub/internal/usecase"
	"gorm.io/datatypes"
)

func TestKeyManager_CreateProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	platform := f.platform(t, "subject-create")

	project, keys, err := f.keyManager().CreateProject(ctx, platform.PlatformID, "  Weather API ", model.ProjectTypeMetered, model.ModeSandbox)
	require.NoError(t, err)

	assert.Equal(t, keys.PublishableKey, project.PublishableKey)
	assert.Equal(t, "Weather API", project.Name)
	assert.Equal(t, usecase.HashSecret(keys.SecretKey), project.SecretKeyHash)

	stored, err := f.repos.Project.GetByPublishableKey(ctx, project.PublishableKey)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.ModeSandbox, stored.Mode)
	require.NotNil(t, stored.SecretKeyEnc)

	opened, err := f.sealer.Decrypt(*stored.SecretKeyEnc, *stored.SecretKeyIV)
	require.NoError(t, err)
	assert.Equal(t, keys.SecretKey, opened)

	for _, cache := range []*memoryCache{f.management, f.customer} {
		assert.Equal(t, platform.PlatformID.String(), cache.value(usecase.PublishableKeyCacheKey(project.PublishableKey)))
		assert.Equal(t, project.PublishableKey, cache.value(usecase.SecretHashCacheKey(project.SecretKeyHash)))
		assert.True(t, cache.has(usecase.TiersCacheKey(platform.PlatformID, project.PublishableKey)))
	}

	t.Run("invalid mode", func(t *testing.T) {
		_, _, err := f.keyManager().CreateProject(ctx, platform.PlatformID, "x", model.ProjectTypeStore, "live")
		assert.ErrorIs(t, err, domainErrors.ErrInvalidMode)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, _, err := f.keyManager().CreateProject(ctx, platform.PlatformID, "x", "bundle", model.ModeSandbox)
		assert.ErrorIs(t, err, domainErrors.ErrInvalidProjectType)
	})
}

func TestKeyManager_RotateSecret(t *testing.T) {
	ctx := context.Background()

	t.Run("only the secret hash changes", func(t *testing.T) {
		f := newFixture(t)
		platform := f.platform(t, "subject-rotate")
		manager := f.keyManager()

		project, keys, err := manager.CreateProject(ctx, platform.PlatformID, "Primary", model.ProjectTypeMetered, model.ModeSandbox)
		require.NoError(t, err)
		other, _, err := manager.CreateProject(ctx, platform.PlatformID, "Secondary", model.ProjectTypeStore, model.ModeSandbox)
		require.NoError(t, err)

		_, err = f.repos.Tier.Upsert(ctx, &model.Tier{
			PublishableKey: project.PublishableKey,
			Name:           "pro",
			DisplayName:    "Pro",
			Price:          2900,
			Currency:       "usd",
			UsageLimit:     int64Ptr(500),
			Metadata:       datatypes.NewJSONType(model.TierMetadataV1{Metered: &model.MeteredTierMetadata{BillingInterval: "month"}}),
		})
		require.NoError(t, err)

		tiersBefore, err := f.repos.Tier.ListByProject(ctx, project.PublishableKey)
		require.NoError(t, err)
		otherBefore, err := f.repos.Project.GetByPublishableKey(ctx, other.PublishableKey)
		require.NoError(t, err)

		oldHash := usecase.HashSecret(keys.SecretKey)
		secret, err := manager.RotateSecret(ctx, platform.PlatformID, project.PublishableKey, model.ModeSandbox)
		require.NoError(t, err)
		assert.NotEqual(t, keys.SecretKey, secret)
		assert.Regexp(t, `^sk_sandbox_[0-9a-f]{64}$`, secret)

		after, err := f.repos.Project.GetByPublishableKey(ctx, project.PublishableKey)
		require.NoError(t, err)
		assert.Equal(t, usecase.HashSecret(secret), after.SecretKeyHash)
		assert.Equal(t, project.PublishableKey, after.PublishableKey)
		assert.Equal(t, project.Name, after.Name)
		assert.Equal(t, project.PlatformID, after.PlatformID)

		tiersAfter, err := f.repos.Tier.ListByProject(ctx, project.PublishableKey)
		require.NoError(t, err)
		assert.Equal(t, tiersBefore, tiersAfter)

		otherAfter, err := f.repos.Project.GetByPublishableKey(ctx, other.PublishableKey)
		require.NoError(t, err)
		assert.Equal(t, otherBefore, otherAfter)

		for _, cache := range []*memoryCache{f.management, f.customer} {
			assert.False(t, cache.has(usecase.SecretHashCacheKey(oldHash)))
			assert.Equal(t, project.PublishableKey, cache.value(usecase.SecretHashCacheKey(after.SecretKeyHash)))
		}
	})

	t.Run("foreign key fails closed", func(t *testing.T) {
		f := newFixture(t)
		owner := f.platform(t, "subject-owner")
		intruder := f.platform(t, "subject-intruder")

		project, _, err := f.keyManager().CreateProject(ctx, owner.PlatformID, "Owned", model.ProjectTypeMetered, model.ModeSandbox)
		require.NoError(t, err)

		_, err = f.keyManager().RotateSecret(ctx, intruder.PlatformID, project.PublishableKey, model.ModeSandbox)
		require.Error(t, err)
		assert.ErrorIs(t, err, domainErrors.ErrOwnership)

		stored, err := f.repos.Project.GetByPublishableKey(ctx, project.PublishableKey)
		require.NoError(t, err)
		assert.Equal(t, project.SecretKeyHash, stored.SecretKeyHash)
	})

	t.Run("unknown key", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.keyManager().RotateSecret(ctx, uuid.New(), "pk_sandbox_00000000000000000000000000000000", model.ModeSandbox)
		assert.ErrorIs(t, err, domainErrors.ErrProjectNotFound)
	})

	t.Run("mode must match the key", func(t *testing.T) {
		f := newFixture(t)
		platform := f.platform(t, "subject-mode")
		project, _, err := f.keyManager().CreateProject(ctx, platform.PlatformID, "Sandbox", model.ProjectTypeMetered, model.ModeSandbox)
		require.NoError(t, err)

		_, err = f.keyManager().RotateSecret(ctx, platform.PlatformID, project.PublishableKey, model.ModeProduction)
		assert.ErrorIs(t, err, domainErrors.ErrModeMismatch)
	})

	t.Run("concurrent mutation is rejected", func(t *testing.T) {
		f := newFixture(t)
		platform := f.platform(t, "subject-locked")
		project, _, err := f.keyManager().CreateProject(ctx, platform.PlatformID, "Locked", model.ProjectTypeMetered, model.ModeSandbox)
		require.NoError(t, err)

		acquired, err := f.repos.KeyLock.Acquire(ctx, project.PublishableKey, "other-holder", "promote", time.Minute)
		require.NoError(t, err)
		require.True(t, acquired)

		_, err = f.keyManager().RotateSecret(ctx, platform.PlatformID, project.PublishableKey, model.ModeSandbox)
		assert.ErrorIs(t, err, domainErrors.ErrMutationInProgress)

		require.NoError(t, f.repos.KeyLock.Release(ctx, project.PublishableKey, "other-holder"))
		_, err = f.keyManager().RotateSecret(ctx, platform.PlatformID, project.PublishableKey, model.ModeSandbox)
		assert.NoError(t, err)
	})
}

// interleavedProjects runs a rotation once, right after the first project read.
type interleavedProjects struct {
	repository.ProjectRepository
	interleave func()
}

func (r *interleavedProjects) GetByPublishableKey(ctx context.Context, publishableKey string) (*model.Project, error) {
	project, err := r.ProjectRepository.GetByPublishableKey(ctx, publishableKey)
	if r.interleave != nil {
		fn := r.interleave
		r.interleave = nil
		fn()
	}
	return project, err
}

func TestKeyManager_RotateSecret_RetiresHashCommittedBeforeLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	platform := f.platform(t, "subject-interleaved")

	project, keys, err := f.keyManager().CreateProject(ctx, platform.PlatformID, "Interleaved", model.ProjectTypeMetered, model.ModeSandbox)
	require.NoError(t, err)

	var middleSecret string
	projects := &interleavedProjects{ProjectRepository: f.repos.Project}
	projects.interleave = func() {
		middleSecret, err = f.keyManager().RotateSecret(ctx, platform.PlatformID, project.PublishableKey, model.ModeSandbox)
		require.NoError(t, err)
	}
	manager := usecase.NewKeyManager(projects, f.repos.Tier, f.repos.KeyLock, testLockTTL, f.projector, f.sealer, f.logger)

	finalSecret, err := manager.RotateSecret(ctx, platform.PlatformID, project.PublishableKey, model.ModeSandbox)
	require.NoError(t, err)
	require.NotEmpty(t, middleSecret)

	stored, err := f.repos.Project.GetByPublishableKey(ctx, project.PublishableKey)
	require.NoError(t, err)
	assert.Equal(t, usecase.HashSecret(finalSecret), stored.SecretKeyHash)

	for _, cache := range []*memoryCache{f.management, f.customer} {
		assert.False(t, cache.has(usecase.SecretHashCacheKey(usecase.HashSecret(keys.SecretKey))))
		assert.False(t, cache.has(usecase.SecretHashCacheKey(usecase.HashSecret(middleSecret))),
			"a rotated-out secret must not resolve from the cache")
		assert.Equal(t, project.PublishableKey, cache.value(usecase.SecretHashCacheKey(stored.SecretKeyHash)))
	}
}
