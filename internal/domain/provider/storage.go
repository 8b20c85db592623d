package provider

import "context"

// AssetStorage removes tenant assets from object storage.
type AssetStorage interface {
	// DeletePrefix deletes every object under prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}
