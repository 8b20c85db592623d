package entity

// KeyPair is returned to the caller exactly once, at creation, rotation or promotion.
// SecretKey must never be persisted or logged.
type KeyPair struct {
	PublishableKey string `json:"publishable_key"`
	SecretKey      string `json:"secret_key"`
}
