package model

import (
	"errors"
	"fmt"
)

// TierMetadataV1 holds the per-type tier details. Exactly one variant is set and it must
// match the owning project's type.
type TierMetadataV1 struct {
	Metered *MeteredTierMetadata `json:"metered,omitempty"`
	Store   *StoreTierMetadata   `json:"store,omitempty"`
}

type MeteredTierMetadata struct {
	Features        []string `json:"features,omitempty"`
	BillingInterval string   `json:"billing_interval,omitempty"`
	TrialDays       int      `json:"trial_days,omitempty"`
}

type StoreTierMetadata struct {
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Inventory   *int     `json:"inventory,omitempty"`
	Features    []string `json:"features,omitempty"`
}

var errMetadataVariant = errors.New("tier metadata variant does not match project type")

// Validate checks that the variant matches projectType. An empty metadata value is
// normalised to the empty variant for that type.
func (m *TierMetadataV1) Validate(projectType ProjectType) error {
	switch projectType {
	case ProjectTypeMetered:
		if m.Store != nil {
			return errMetadataVariant
		}
		if m.Metered == nil {
			m.Metered = &MeteredTierMetadata{}
		}
		switch m.Metered.BillingInterval {
		case "":
			m.Metered.BillingInterval = "month"
		case "month", "year":
		default:
			return fmt.Errorf("unsupported billing interval %q", m.Metered.BillingInterval)
		}
		if m.Metered.TrialDays < 0 {
			return errors.New("trial days must not be negative")
		}
	case ProjectTypeStore:
		if m.Metered != nil {
			return errMetadataVariant
		}
		if m.Store == nil {
			m.Store = &StoreTierMetadata{}
		}
		if m.Store.Inventory != nil && *m.Store.Inventory < 0 {
			return errors.New("inventory must not be negative")
		}
	default:
		return fmt.Errorf("unknown project type %q", projectType)
	}
	return nil
}

// Features returns the feature list of whichever variant is set.
func (m TierMetadataV1) Features() []string {
	switch {
	case m.Metered != nil:
		return m.Metered.Features
	case m.Store != nil:
		return m.Store.Features
	}
	return nil
}
