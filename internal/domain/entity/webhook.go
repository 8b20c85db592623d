package entity

// WebhookResult describes how an inbound billing event was handled.
type WebhookResult struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	PlatformID string `json:"platform_id,omitempty"`
	Replayed   bool   `json:"replayed"`
	Ignored    bool   `json:"ignored"`
}
