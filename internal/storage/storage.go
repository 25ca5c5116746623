package storage

import (
	"context"

	"poolLens/internal/model"
)

// MetadataStore reads and writes off-chain pool metadata and user profiles.
type MetadataStore interface {
	MetadataByPoolIDs(ctx context.Context, chainID uint64, ids []uint64) (map[uint64]model.PoolMetadata, error)
	DraftMetadata(ctx context.Context, chainID uint64) ([]model.PoolMetadata, error)
	ProfilesByAddresses(ctx context.Context, addresses []string) (map[string]model.UserProfile, error)
	UpsertMetadata(ctx context.Context, meta model.PoolMetadata) (model.PoolMetadata, error)
	CreateDraft(ctx context.Context, meta model.PoolMetadata) (model.PoolMetadata, error)
	WalletForUser(ctx context.Context, privyID string) (string, bool, error)
}

// ItemSink defines a sink for reconciled pool items.
type ItemSink interface {
	PutItems(items []model.PoolItem) error
}
