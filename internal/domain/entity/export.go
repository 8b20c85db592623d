package entity

import "time"

// PlatformExport is the dashboard view of a tenant and its projects.
type PlatformExport struct {
	PlatformID       string          `json:"platform_id"`
	Plan             string          `json:"plan"`
	Status           string          `json:"status"`
	CurrentPeriodEnd *time.Time      `json:"current_period_end,omitempty"`
	Projects         []ProjectExport `json:"projects"`
}

type ProjectExport struct {
	PublishableKey string `json:"publishable_key"`
	Name           string `json:"name"`
	ProjectType    string `json:"project_type"`
	Mode           string `json:"mode"`
	Status         string `json:"status"`
	// SecretKey is the last issued secret, decrypted. Only set when the caller asked for it.
	SecretKey    string       `json:"secret_key,omitempty"`
	PromotedFrom string       `json:"promoted_from,omitempty"`
	Tiers        []TierExport `json:"tiers"`
	CreatedAt    time.Time    `json:"created_at"`
}

type TierExport struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	Price        int64  `json:"price"`
	DisplayPrice string `json:"display_price"`
	Currency     string `json:"currency"`
	Limit        *int64 `json:"limit"`
	PriceID      string `json:"price_id,omitempty"`
}
