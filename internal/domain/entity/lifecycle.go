package entity

import "time"

// GraceState classifies a canceled platform relative to its period end.
type GraceState string

const (
	GraceStateInGrace GraceState = "in_grace"
	GraceStateBlocked GraceState = "blocked"
	GraceStatePurge   GraceState = "purge"
)

// SweepReport summarises one grace sweep run.
type SweepReport struct {
	StartedAt     time.Time `json:"started_at"`
	Checked       int       `json:"checked"`
	InGrace       int       `json:"in_grace"`
	Blocked       int       `json:"blocked"`
	Purged        int       `json:"purged"`
	PurgeFailures int       `json:"purge_failures"`
}

// PurgeReport lists what one tenant purge removed. Failed names the resource types whose
// deletion failed; the other resource types were still attempted.
type PurgeReport struct {
	UsageRecords    int64    `json:"usage_records"`
	Customers       int64    `json:"customers"`
	Tiers           int64    `json:"tiers"`
	Projects        int      `json:"projects"`
	ProcessorTokens int64    `json:"processor_tokens"`
	Assets          int      `json:"assets"`
	Failed          []string `json:"failed,omitempty"`
}
