package model

import (
	"time"

	"github.com/google/uuid"
)

// ProcessorToken lets the service act on a tenant's billing processor account.
// Sandbox and production are authorized independently, hence the composite key.
type ProcessorToken struct {
	PlatformID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"platform_id"`
	Mode            Mode      `gorm:"size:20;primaryKey" json:"mode"`
	AccountID       string    `gorm:"size:100;not null" json:"account_id"`
	AccessTokenEnc  string    `gorm:"type:text;not null" json:"-"`
	AccessTokenIV   string    `gorm:"size:32;not null" json:"-"`
	RefreshTokenEnc *string   `gorm:"type:text" json:"-"`
	RefreshTokenIV  *string   `gorm:"size:32" json:"-"`
	Scope           string    `gorm:"size:50" json:"scope"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ProcessorToken) TableName() string {
	return "processor_tokens"
}
