package errors

import (
	"errors"
	"fmt"
)

// Credential and project errors
var (
	ErrOwnership          = errors.New("publishable key is not owned by this platform")
	ErrProjectNotFound    = errors.New("project not found")
	ErrTierNotFound       = errors.New("tier not found")
	ErrPlatformNotFound   = errors.New("platform not found")
	ErrInvalidMode        = errors.New("invalid mode")
	ErrInvalidProjectType = errors.New("invalid project type")
	ErrModeMismatch       = errors.New("mode does not match the publishable key")
	ErrInvalidTier        = errors.New("invalid tier")
	ErrMutationInProgress = errors.New("another mutation is in progress for this key")
)

// Promotion errors
var (
	ErrNotSandboxKey           = errors.New("key is not a sandbox publishable key")
	ErrProductionNotAuthorized = errors.New("platform has not authorized production billing")
	ErrPromotionFailed         = errors.New("promotion failed")
)

// Billing errors
var (
	ErrWebhookSecretMissing = errors.New("webhook signing secret is not configured")
	ErrInvalidSignature     = errors.New("webhook signature verification failed")
	ErrMalformedEvent       = errors.New("malformed webhook event")
	ErrMissingEventMetadata = errors.New("webhook event is missing required metadata")
	ErrUnknownPlan          = errors.New("unknown plan")
)

// Lifecycle errors
var (
	ErrPurgeNotDue = errors.New("platform is not past its retention period")
)

// OwnershipError reports a mutation against a key that belongs to another platform.
type OwnershipError struct {
	PlatformID     string
	PublishableKey string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("%s (platform: %s, key: %s)", ErrOwnership.Error(), e.PlatformID, e.PublishableKey)
}

func (e *OwnershipError) Unwrap() error {
	return ErrOwnership
}

// NewOwnershipError creates a new ownership error
func NewOwnershipError(platformID, publishableKey string) *OwnershipError {
	return &OwnershipError{PlatformID: platformID, PublishableKey: publishableKey}
}

// MissingMetadataError names the metadata key an event lacked.
type MissingMetadataError struct {
	EventID string
	Field   string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("%s: %s (event: %s)", ErrMissingEventMetadata.Error(), e.Field, e.EventID)
}

func (e *MissingMetadataError) Unwrap() error {
	return ErrMissingEventMetadata
}

// ProcessorError wraps a billing processor failure for one promoted tier.
type ProcessorError struct {
	Step  string
	Tier  string
	Cause error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("%s: %s for tier %q: %v", ErrPromotionFailed.Error(), e.Step, e.Tier, e.Cause)
}

func (e *ProcessorError) Unwrap() []error {
	return []error{ErrPromotionFailed, e.Cause}
}
