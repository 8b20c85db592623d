package model

import (
	"time"

	"gorm.io/datatypes"
)

// Tier is a purchasable plan or product inside a project. Sandbox and production tiers
// are independent rows.
type Tier struct {
	ID             uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PublishableKey string  `gorm:"size:64;not null;uniqueIndex:idx_tiers_project_name,priority:1" json:"publishable_key"`
	Name           string  `gorm:"size:64;not null;uniqueIndex:idx_tiers_project_name,priority:2" json:"name"`
	DisplayName    string  `gorm:"size:255;not null" json:"display_name"`
	Price          int64   `gorm:"not null;default:0" json:"price"`
	Currency       string  `gorm:"size:3;not null;default:'usd'" json:"currency"`
	UsageLimit     *int64  `json:"usage_limit,omitempty"`
	PriceID        *string `gorm:"size:100" json:"price_id,omitempty"`
	ProductID      *string `gorm:"size:100" json:"product_id,omitempty"`
	SortOrder      int     `gorm:"not null;default:0" json:"sort_order"`

	Metadata datatypes.JSONType[TierMetadataV1] `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Tier) TableName() string {
	return "tiers"
}

// Unlimited reports whether the tier has no usage cap.
func (t *Tier) Unlimited() bool {
	return t.UsageLimit == nil
}
