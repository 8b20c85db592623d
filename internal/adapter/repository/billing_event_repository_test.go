package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"go.uber.org/zap"
)

func TestBillingEventRepository_RecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewBillingEventRepository(newTestDB(t), zap.NewNop())
	platformID := uuid.New()

	exists, err := repo.Exists(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, exists)

	inserted, err := repo.Record(ctx, &model.BillingEvent{
		EventID:     "evt_1",
		EventType:   "customer.subscription.updated",
		PlatformID:  &platformID,
		ProcessedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Record(ctx, &model.BillingEvent{
		EventID:     "evt_1",
		EventType:   "customer.subscription.updated",
		ProcessedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	exists, err = repo.Exists(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, exists)
}
