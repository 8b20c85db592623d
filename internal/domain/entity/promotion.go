package entity

// PromotionResult is returned once per promotion. The secret inside Keys is not stored.
type PromotionResult struct {
	SandboxKey  string     `json:"sandbox_key"`
	Keys        KeyPair    `json:"keys"`
	ProjectName string     `json:"project_name"`
	ProjectType string     `json:"project_type"`
	Tiers       []TierInfo `json:"tiers"`
}

type TierInfo struct {
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Limit     *int64 `json:"limit"`
	PriceID   string `json:"price_id"`
	ProductID string `json:"product_id"`
}
