package model

import (
	"time"

	"github.com/google/uuid"
)

// Mode is the environment a project's keys belong to. It is embedded in key prefixes.
type Mode string

const (
	ModeSandbox    Mode = "sandbox"
	ModeProduction Mode = "production"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeSandbox || m == ModeProduction
}

// ProjectType is fixed when the project is created.
type ProjectType string

const (
	ProjectTypeMetered ProjectType = "metered"
	ProjectTypeStore   ProjectType = "store"
)

func (t ProjectType) Valid() bool {
	return t == ProjectTypeMetered || t == ProjectTypeStore
}

type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusDisabled ProjectStatus = "disabled"
)

// Project is one API credential pair. Only the secret's hash is stored; SecretKeyEnc holds the
// last issued secret sealed with AES-GCM for the dashboard export.
type Project struct {
	PublishableKey string        `gorm:"size:64;primaryKey" json:"publishable_key"`
	PlatformID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"platform_id"`
	Name           string        `gorm:"size:255;not null" json:"name"`
	ProjectType    ProjectType   `gorm:"size:20;not null" json:"project_type"`
	Mode           Mode          `gorm:"size:20;not null" json:"mode"`
	Status         ProjectStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	SecretKeyHash  string        `gorm:"size:64;not null;uniqueIndex" json:"-"`
	SecretKeyEnc   *string       `gorm:"type:text" json:"-"`
	SecretKeyIV    *string       `gorm:"size:32" json:"-"`
	PromotedFrom   *string       `gorm:"size:64" json:"promoted_from,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Project) TableName() string {
	return "projects"
}
