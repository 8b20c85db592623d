package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is an end customer of a tenant project. Rows are written by request-time
// enforcement; this service only counts and purges them.
type Customer struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PlatformID     uuid.UUID `gorm:"type:uuid;not null;index" json:"platform_id"`
	PublishableKey string    `gorm:"size:64;not null;index" json:"publishable_key"`
	ExternalID     string    `gorm:"size:255;not null" json:"external_id"`
	Email          *string   `gorm:"size:255" json:"email,omitempty"`
	TierName       *string   `gorm:"size:64" json:"tier_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// UsageRecord counts metered usage for one customer in one period.
type UsageRecord struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PlatformID     uuid.UUID `gorm:"type:uuid;not null;index" json:"platform_id"`
	PublishableKey string    `gorm:"size:64;not null;index" json:"publishable_key"`
	CustomerID     uint64    `gorm:"not null;index" json:"customer_id"`
	PeriodStart    time.Time `gorm:"not null" json:"period_start"`
	Quantity       int64     `gorm:"not null;default:0" json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (UsageRecord) TableName() string {
	return "usage_records"
}
