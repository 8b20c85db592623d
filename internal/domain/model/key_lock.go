package model

import "time"

// KeyLock is a short-lived advisory lock allowing at most one in-flight mutation
// (rotation or promotion) per publishable key. Expired rows may be taken over.
type KeyLock struct {
	PublishableKey string    `gorm:"size:64;primaryKey"`
	Holder         string    `gorm:"size:64;not null"`
	Operation      string    `gorm:"size:32;not null"`
	ExpiresAt      time.Time `gorm:"not null;index"`
	CreatedAt      time.Time
}

// TableName specifies the table name for GORM
func (KeyLock) TableName() string {
	return "key_locks"
}
