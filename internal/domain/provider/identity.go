package provider

import "context"

// Subject is a verified identity-provider user.
type Subject struct {
	ID    string
	Email string
	Role  string
}

// SubjectMetadata is written to the identity provider so other services can read the plan.
type SubjectMetadata struct {
	Plan string `json:"plan"`
}

type IdentityProvider interface {
	VerifyToken(ctx context.Context, bearer string) (*Subject, error)
	UpdateSubjectMetadata(ctx context.Context, subjectID string, metadata SubjectMetadata) error
}
