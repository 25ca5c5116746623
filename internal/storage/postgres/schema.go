package postgres

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pool_metadata (
		draft_id UUID PRIMARY KEY,
		chain_id BIGINT NOT NULL,
		pool_id BIGINT,
		image_url TEXT NOT NULL DEFAULT '',
		soft_cap INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS pool_metadata_chain_pool
		ON pool_metadata (chain_id, pool_id) WHERE pool_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS pool_metadata_drafts
		ON pool_metadata (chain_id, created_at) WHERE pool_id IS NULL`,
	`CREATE TABLE IF NOT EXISTS users (
		privy_id TEXT PRIMARY KEY,
		address TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}
