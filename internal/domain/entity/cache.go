package entity

// SubscriptionCacheEntry is the derived subscription view read by request-time enforcement.
// Times are epoch milliseconds.
type SubscriptionCacheEntry struct {
	Status           string `json:"status"`
	CurrentPeriodEnd *int64 `json:"currentPeriodEnd"`
	GracePeriodEnd   *int64 `json:"gracePeriodEnd"`
}

// ProjectTiersCacheEntry is the platformId -> {tiers, mode} lookup for one project.
type ProjectTiersCacheEntry struct {
	PublishableKey string       `json:"publishableKey"`
	Mode           string       `json:"mode"`
	ProjectType    string       `json:"projectType"`
	Status         string       `json:"status"`
	Tiers          []CachedTier `json:"tiers"`
}

type CachedTier struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Price       int64    `json:"price"`
	Currency    string   `json:"currency"`
	Limit       *int64   `json:"limit"`
	PriceID     string   `json:"priceId,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// CacheInvalidation is broadcast after the projector changes cache entries so that nodes
// holding in-process copies drop them.
type CacheInvalidation struct {
	Op   string   `json:"op"`
	Keys []string `json:"keys"`
	At   int64    `json:"at"`
}
