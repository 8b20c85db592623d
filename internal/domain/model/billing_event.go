package model

import (
	"time"

	"github.com/google/uuid"
)

// BillingEvent is the append-only ledger of processed billing webhooks. EventID is the
// processor's event id and the idempotency key.
type BillingEvent struct {
	EventID     string     `gorm:"size:255;primaryKey" json:"event_id"`
	EventType   string     `gorm:"size:100;not null;index" json:"event_type"`
	PlatformID  *uuid.UUID `gorm:"type:uuid;index" json:"platform_id,omitempty"`
	ProcessedAt time.Time  `gorm:"not null" json:"processed_at"`
}

// TableName specifies the table name for GORM
func (BillingEvent) TableName() string {
	return "billing_events"
}
