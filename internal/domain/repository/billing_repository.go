package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
)

// BillingEventRepository is the append-only event ledger.
type BillingEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	// Record inserts the event unless it already exists. It reports whether a row was written.
	Record(ctx context.Context, event *model.BillingEvent) (bool, error)
}

type ProcessorTokenRepository interface {
	Get(ctx context.Context, platformID uuid.UUID, mode model.Mode) (*model.ProcessorToken, error)
	Upsert(ctx context.Context, token *model.ProcessorToken) error
}

// KeyLockRepository holds advisory locks keyed by publishable key.
type KeyLockRepository interface {
	// Acquire takes the lock unless another holder has an unexpired lock on the key.
	Acquire(ctx context.Context, publishableKey, holder, operation string, ttl time.Duration) (bool, error)
	// Extend pushes the expiry of a lock still held by holder to now+ttl. It reports false
	// when holder no longer owns the lock.
	Extend(ctx context.Context, publishableKey, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, publishableKey, holder string) error
}

// PurgeRepository deletes tenant-scoped rows one resource type at a time.
type PurgeRepository interface {
	DeleteUsageRecords(ctx context.Context, platformID uuid.UUID) (int64, error)
	DeleteCustomers(ctx context.Context, platformID uuid.UUID) (int64, error)
	DeleteTiers(ctx context.Context, platformID uuid.UUID) (int64, error)
	// DeleteProjects removes the platform's projects and returns the deleted rows.
	DeleteProjects(ctx context.Context, platformID uuid.UUID) ([]*model.Project, error)
	DeleteProcessorTokens(ctx context.Context, platformID uuid.UUID) (int64, error)
}
