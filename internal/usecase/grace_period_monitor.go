package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
)

// GracePeriodMonitor classifies canceled platforms and purges those past retention.
type GracePeriodMonitor struct {
	platforms   repository.PlatformRepository
	purge       repository.PurgeRepository
	assets      provider.AssetStorage
	projector   *CacheProjector
	gracePeriod time.Duration
	retention   time.Duration
	logger      *zap.Logger
}

// NewGracePeriodMonitor creates a new grace period monitor
func NewGracePeriodMonitor(
	platforms repository.PlatformRepository,
	purge repository.PurgeRepository,
	assets provider.AssetStorage,
	projector *CacheProjector,
	gracePeriod time.Duration,
	retention time.Duration,
	logger *zap.Logger,
) *GracePeriodMonitor {
	return &GracePeriodMonitor{
		platforms:   platforms,
		purge:       purge,
		assets:      assets,
		projector:   projector,
		gracePeriod: gracePeriod,
		retention:   retention,
		logger:      logger.Named("grace_monitor"),
	}
}

// Evaluate classifies a canceled subscription whose period ended at periodEnd.
func (m *GracePeriodMonitor) Evaluate(periodEnd, now time.Time) entity.GraceState {
	switch {
	case now.Before(periodEnd.Add(m.gracePeriod)):
		return entity.GraceStateInGrace
	case now.Before(periodEnd.Add(m.retention)):
		return entity.GraceStateBlocked
	default:
		return entity.GraceStatePurge
	}
}

// Sweep evaluates every canceled platform with a known period end. A failed purge is counted
// and the platform stays canceled so the next sweep tries again.
func (m *GracePeriodMonitor) Sweep(ctx context.Context, now time.Time) (*entity.SweepReport, error) {
	platforms, err := m.platforms.ListCanceledWithPeriodEnd(ctx)
	if err != nil {
		return nil, err
	}

	report := &entity.SweepReport{StartedAt: now}
	for _, platform := range platforms {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if platform.CurrentPeriodEnd == nil {
			continue
		}
		report.Checked++

		state := m.Evaluate(*platform.CurrentPeriodEnd, now)
		fields := []zap.Field{
			zap.String("platform_id", platform.PlatformID.String()),
			zap.Time("current_period_end", *platform.CurrentPeriodEnd),
		}

		switch state {
		case entity.GraceStateInGrace:
			report.InGrace++
		case entity.GraceStateBlocked:
			report.Blocked++
			m.logger.Info("Platform past grace period, access blocked", fields...)
		case entity.GraceStatePurge:
			purged, err := m.Purge(ctx, platform.PlatformID, now)
			if err != nil || len(purged.Failed) > 0 {
				report.PurgeFailures++
				m.logger.Error("Platform purge incomplete", append(fields, zap.Error(err))...)
				continue
			}
			report.Purged++
		}
	}

	m.logger.Info("Grace sweep finished",
		zap.Int("checked", report.Checked),
		zap.Int("in_grace", report.InGrace),
		zap.Int("blocked", report.Blocked),
		zap.Int("purged", report.Purged),
		zap.Int("purge_failures", report.PurgeFailures))
	return report, nil
}

// Purge deletes every tenant-scoped resource of platformID. The platform must be canceled and
// past retention at now, otherwise ErrPurgeNotDue is returned and nothing is touched.
// Each resource type is attempted even if an earlier one failed. The platform is marked
// purged only when nothing failed.
func (m *GracePeriodMonitor) Purge(ctx context.Context, platformID uuid.UUID, now time.Time) (*entity.PurgeReport, error) {
	logger := m.logger.With(zap.String("platform_id", platformID.String()))

	if err := m.checkPurgeDue(ctx, platformID, now); err != nil {
		logger.Warn("Purge refused", zap.Error(err))
		return nil, err
	}
	report := &entity.PurgeReport{}

	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			report.Failed = append(report.Failed, name)
			logger.Error("Purge step failed", zap.String("resource", name), zap.Error(err))
		}
	}

	step("usage_records", func() (err error) {
		report.UsageRecords, err = m.purge.DeleteUsageRecords(ctx, platformID)
		return err
	})
	step("customers", func() (err error) {
		report.Customers, err = m.purge.DeleteCustomers(ctx, platformID)
		return err
	})
	step("tiers", func() (err error) {
		report.Tiers, err = m.purge.DeleteTiers(ctx, platformID)
		return err
	})
	step("projects", func() error {
		projects, err := m.purge.DeleteProjects(ctx, platformID)
		if err != nil {
			return err
		}
		for _, project := range projects {
			m.projector.EvictProject(ctx, project)
		}
		report.Projects = len(projects)
		return nil
	})
	step("processor_tokens", func() (err error) {
		report.ProcessorTokens, err = m.purge.DeleteProcessorTokens(ctx, platformID)
		return err
	})
	step("assets", func() (err error) {
		report.Assets, err = m.assets.DeletePrefix(ctx, platformID.String()+"/")
		return err
	})

	if len(report.Failed) > 0 {
		return report, nil
	}

	if err := m.platforms.MarkPurged(ctx, platformID, now); err != nil {
		return report, err
	}

	platform, err := m.platforms.GetByID(ctx, platformID)
	if err != nil {
		logger.Warn("Failed to reload purged platform for cache projection", zap.Error(err))
	} else if platform != nil {
		m.projector.ProjectSubscription(ctx, platform)
	}

	logger.Info("Platform purged",
		zap.Int64("usage_records", report.UsageRecords),
		zap.Int64("customers", report.Customers),
		zap.Int64("tiers", report.Tiers),
		zap.Int("projects", report.Projects),
		zap.Int64("processor_tokens", report.ProcessorTokens),
		zap.Int("assets", report.Assets))
	return report, nil
}


func (m *GracePeriodMonitor) checkPurgeDue(ctx context.Context, platformID uuid.UUID, now time.Time) error {
	platform, err := m.platforms.GetByID(ctx, platformID)
	if err != nil {
		return err
	}
	if platform == nil {
		return domainErrors.ErrPlatformNotFound
	}
	if platform.Status != model.SubscriptionStatusCanceled || platform.CurrentPeriodEnd == nil {
		return fmt.Errorf("%w: status is %s", domainErrors.ErrPurgeNotDue, platform.Status)
	}
	if state := m.Evaluate(*platform.CurrentPeriodEnd, now); state != entity.GraceStatePurge {
		return fmt.Errorf("%w: %s until %s", domainErrors.ErrPurgeNotDue, state,
			platform.CurrentPeriodEnd.Add(m.retention).Format(time.RFC3339))
	}
	return nil
}
