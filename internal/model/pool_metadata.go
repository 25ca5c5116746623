package model

import "time"

// PoolMetadata holds off-chain cosmetic fields for a pool.
// PoolID is nil while the pool only exists as a draft.
type PoolMetadata struct {
	DraftID     string    `json:"draftId"`
	PoolID      *uint64   `json:"poolId,omitempty"`
	ChainID     uint64    `json:"chainId"`
	ImageURL    string    `json:"image"`
	SoftCap     int       `json:"softCap"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
