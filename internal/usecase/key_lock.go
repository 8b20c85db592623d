package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/wekeepgrowing/semo-keyhub/internal/domain/errors"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
)

// keyLocker serialises rotation and promotion per publishable key.
type keyLocker struct {
	locks  repository.KeyLockRepository
	ttl    time.Duration
	logger *zap.Logger
}

func newKeyLocker(locks repository.KeyLockRepository, ttl time.Duration, logger *zap.Logger) *keyLocker {
	return &keyLocker{locks: locks, ttl: ttl, logger: logger}
}

// keyLease is a held lock. Long operations call renew between steps so the lease cannot
// lapse while they are still working.
type keyLease struct {
	locker         *keyLocker
	publishableKey string
	holder         string
}

// renew extends the lease by the locker's TTL. If the lease already lapsed, another caller
// may hold the key, so the operation must stop.
func (l *keyLease) renew(ctx context.Context) error {
	held, err := l.locker.locks.Extend(ctx, l.publishableKey, l.holder, l.locker.ttl)
	if err != nil {
		return err
	}
	if !held {
		l.locker.logger.Warn("Key lock lease lapsed",
			zap.String("publishable_key", l.publishableKey),
			zap.Duration("ttl", l.locker.ttl))
		return fmt.Errorf("%w: lock lease lapsed", domainErrors.ErrMutationInProgress)
	}
	return nil
}

// withLock runs fn while holding the lock on publishableKey. ErrMutationInProgress is
// returned when another holder has it.
func (l *keyLocker) withLock(ctx context.Context, publishableKey, operation string, fn func(lease *keyLease) error) error {
	holder := uuid.NewString()

	acquired, err := l.locks.Acquire(ctx, publishableKey, holder, operation, l.ttl)
	if err != nil {
		return err
	}
	if !acquired {
		l.logger.Warn("Key is locked by another mutation",
			zap.String("publishable_key", publishableKey),
			zap.String("operation", operation))
		return domainErrors.ErrMutationInProgress
	}

	defer func() {
		// The request context may already be canceled; the lock must still be dropped.
		if err := l.locks.Release(context.WithoutCancel(ctx), publishableKey, holder); err != nil {
			l.logger.Warn("Failed to release key lock, it will expire",
				zap.String("publishable_key", publishableKey),
				zap.Duration("ttl", l.ttl),
				zap.Error(err))
		}
	}()

	return fn(&keyLease{locker: l, publishableKey: publishableKey, holder: holder})
}
