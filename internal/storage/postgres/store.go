package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolLens/internal/model"
)

const metadataColumns = `draft_id::text, chain_id, pool_id, image_url, soft_cap, description, created_at, updated_at`

// Store provides Postgres persistence for pool metadata and user profiles.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, stmt := range schemaStatements {
		batch.Queue(stmt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range schemaStatements {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

// MetadataByPoolIDs loads metadata for the given pools in one query.
// Pools without a row are absent from the result.
func (s *Store) MetadataByPoolIDs(ctx context.Context, chainID uint64, ids []uint64) (map[uint64]model.PoolMetadata, error) {
	out := make(map[uint64]model.PoolMetadata, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	params := make([]int64, 0, len(ids))
	for _, id := range ids {
		params = append(params, int64(id))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+metadataColumns+`
		FROM pool_metadata
		WHERE chain_id = $1 AND pool_id = ANY($2)
	`, int64(chainID), params)
	if err != nil {
		return nil, fmt.Errorf("query pool metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		if meta.PoolID != nil {
			out[*meta.PoolID] = meta
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read pool metadata: %w", err)
	}
	return out, nil
}

// DraftMetadata returns metadata rows not yet bound to a deployed pool.
func (s *Store) DraftMetadata(ctx context.Context, chainID uint64) ([]model.PoolMetadata, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+metadataColumns+`
		FROM pool_metadata
		WHERE chain_id = $1 AND pool_id IS NULL
		ORDER BY created_at DESC
	`, int64(chainID))
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	var out []model.PoolMetadata
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read drafts: %w", err)
	}
	return out, nil
}

// ProfilesByAddresses loads user profiles for many wallets in one query.
// Keys of the result are lowercase addresses.
func (s *Store) ProfilesByAddresses(ctx context.Context, addresses []string) (map[string]model.UserProfile, error) {
	out := make(map[string]model.UserProfile, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}
	params := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		params = append(params, strings.ToLower(addr))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT lower(address), privy_id, display_name, avatar_url
		FROM users
		WHERE lower(address) = ANY($1)
	`, params)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.UserProfile
		if err := rows.Scan(&p.Address, &p.PrivyID, &p.DisplayName, &p.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.Address] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return out, nil
}

// UpsertMetadata inserts or updates the metadata of a deployed pool.
// When DraftID names an existing draft, that draft is bound to the pool.
func (s *Store) UpsertMetadata(ctx context.Context, meta model.PoolMetadata) (model.PoolMetadata, error) {
	if meta.PoolID == nil {
		return model.PoolMetadata{}, fmt.Errorf("pool id required")
	}

	if meta.DraftID != "" {
		row := s.pool.QueryRow(ctx, `
			UPDATE pool_metadata
			SET pool_id = $3, image_url = $4, soft_cap = $5, description = $6, updated_at = now()
			WHERE draft_id = $1::uuid AND chain_id = $2
			RETURNING `+metadataColumns,
			meta.DraftID, int64(meta.ChainID), int64(*meta.PoolID), meta.ImageURL, meta.SoftCap, meta.Description,
		)
		bound, err := scanMetadata(row)
		if err == nil {
			return bound, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return model.PoolMetadata{}, err
		}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO pool_metadata (
			draft_id, chain_id, pool_id, image_url, soft_cap, description, created_at, updated_at
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (chain_id, pool_id) WHERE pool_id IS NOT NULL
		DO UPDATE SET
			image_url = EXCLUDED.image_url,
			soft_cap = EXCLUDED.soft_cap,
			description = EXCLUDED.description,
			updated_at = now()
		RETURNING `+metadataColumns,
		uuid.NewString(), int64(meta.ChainID), int64(*meta.PoolID), meta.ImageURL, meta.SoftCap, meta.Description,
	)
	return scanMetadata(row)
}

// CreateDraft stores metadata for a pool that is not deployed yet.
func (s *Store) CreateDraft(ctx context.Context, meta model.PoolMetadata) (model.PoolMetadata, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO pool_metadata (
			draft_id, chain_id, pool_id, image_url, soft_cap, description, created_at, updated_at
		) VALUES ($1::uuid, $2, NULL, $3, $4, $5, now(), now())
		RETURNING `+metadataColumns,
		uuid.NewString(), int64(meta.ChainID), meta.ImageURL, meta.SoftCap, meta.Description,
	)
	return scanMetadata(row)
}

// WalletForUser returns the wallet address linked to an auth subject.
func (s *Store) WalletForUser(ctx context.Context, privyID string) (string, bool, error) {
	if privyID == "" {
		return "", false, fmt.Errorf("user id required")
	}
	var address string
	row := s.pool.QueryRow(ctx, `SELECT address FROM users WHERE privy_id = $1`, privyID)
	if err := row.Scan(&address); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return address, true, nil
}

func scanMetadata(row pgx.Row) (model.PoolMetadata, error) {
	var (
		meta    model.PoolMetadata
		chainID int64
		poolID  *int64
	)
	if err := row.Scan(
		&meta.DraftID,
		&chainID,
		&poolID,
		&meta.ImageURL,
		&meta.SoftCap,
		&meta.Description,
		&meta.CreatedAt,
		&meta.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolMetadata{}, err
		}
		return model.PoolMetadata{}, fmt.Errorf("scan pool metadata: %w", err)
	}
	meta.ChainID = uint64(chainID)
	if poolID != nil {
		id := uint64(*poolID)
		meta.PoolID = &id
	}
	return meta, nil
}
