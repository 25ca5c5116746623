package pools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolLens/internal/cache"
	"poolLens/internal/chain"
	"poolLens/internal/model"
	"poolLens/internal/reconcile"
	"poolLens/internal/status"
	"poolLens/internal/storage"
)

// ErrNotFound is returned when a pool does not exist on chain.
var ErrNotFound = errors.New("pool not found")

// ChainReader is the read surface of one chain's pool contract.
type ChainReader interface {
	ChainID() uint64
	PoolIDs(ctx context.Context) ([]uint64, error)
	Pool(ctx context.Context, id uint64) (model.PoolRecord, bool, error)
	Pools(ctx context.Context, ids []uint64) ([]model.PoolRecord, error)
	Participants(ctx context.Context, id uint64) ([]common.Address, error)
	ParticipantDetail(ctx context.Context, id uint64, participant common.Address) (chain.ParticipantDetail, error)
	WinnerDetail(ctx context.Context, id uint64, winner common.Address) (chain.WinnerDetail, error)
	PoolsOf(ctx context.Context, user common.Address) ([]uint64, error)
	HasRole(ctx context.Context, role [32]byte, account common.Address) (bool, error)
	DepositToken(ctx context.Context) (model.TokenMeta, error)
}

// Config holds service settings.
type Config struct {
	CacheTTL   time.Duration
	CacheStale time.Duration
	Fanout     int
	Location   *time.Location
	Tier       cache.Tier
	Now        func() time.Time
}

type poolEntry struct {
	Item  model.PoolItem `json:"item"`
	Found bool           `json:"found"`
}

// Service builds reconciled pool views from chain state and stored metadata.
type Service struct {
	chains     map[uint64]ChainReader
	store      storage.MetadataStore
	classifier status.Classifier
	fanout     int
	now        func() time.Time
	logger     *zap.Logger

	lists        *cache.Cache[[]model.PoolItem]
	items        *cache.Cache[poolEntry]
	participants *cache.Cache[[]model.Participant]
}

// NewService wires readers, the metadata store and the caches.
func NewService(readers []ChainReader, store storage.MetadataStore, cfg Config, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("metadata store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Fanout <= 0 {
		cfg.Fanout = 8
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	chains := make(map[uint64]ChainReader, len(readers))
	for _, reader := range readers {
		chains[reader.ChainID()] = reader
	}

	opts := func(name string) cache.Options {
		return cache.Options{
			Name:   name,
			TTL:    cfg.CacheTTL,
			Stale:  cfg.CacheStale,
			Tier:   cfg.Tier,
			Now:    cfg.Now,
			Logger: logger,
		}
	}

	return &Service{
		chains:       chains,
		store:        store,
		classifier:   status.NewClassifier(cfg.Location),
		fanout:       cfg.Fanout,
		now:          cfg.Now,
		logger:       logger,
		lists:        cache.New[[]model.PoolItem](opts("pool_lists")),
		items:        cache.New[poolEntry](opts("pool_items")),
		participants: cache.New[[]model.Participant](opts("participants")),
	}, nil
}

// Supports reports whether chainID has a configured reader.
func (s *Service) Supports(chainID uint64) bool {
	_, ok := s.chains[chainID]
	return ok
}

// Upcoming returns pools that have not ended, soonest start first.
func (s *Service) Upcoming(ctx context.Context, chainID uint64) ([]model.PoolItem, error) {
	all, err := s.allPools(ctx, chainID)
	if err != nil {
		return nil, err
	}
	items := s.label(reconcile.FilterUpcoming(all))
	reconcile.Sort(items, reconcile.StartAsc)
	return items, nil
}

// Past returns ended pools, most recently ended first.
func (s *Service) Past(ctx context.Context, chainID uint64) ([]model.PoolItem, error) {
	all, err := s.allPools(ctx, chainID)
	if err != nil {
		return nil, err
	}
	items := s.label(reconcile.FilterPast(all))
	reconcile.Sort(items, reconcile.EndDesc)
	return items, nil
}

// Pool returns one reconciled pool or ErrNotFound.
func (s *Service) Pool(ctx context.Context, chainID, poolID uint64) (model.PoolItem, error) {
	reader, err := s.reader(chainID)
	if err != nil {
		return model.PoolItem{}, err
	}

	entry, err := s.items.Get(ctx, poolKey(chainID, poolID), func(ctx context.Context) (poolEntry, error) {
		return s.loadPool(ctx, reader, poolID)
	})
	if err != nil {
		return model.PoolItem{}, err
	}
	if !entry.Found {
		return model.PoolItem{}, fmt.Errorf("%w: %d", ErrNotFound, poolID)
	}
	return s.label([]model.PoolItem{entry.Item})[0], nil
}

// UserPools returns pools a wallet joined or hosts, latest start first.
func (s *Service) UserPools(ctx context.Context, chainID uint64, user common.Address) ([]model.PoolItem, error) {
	reader, err := s.reader(chainID)
	if err != nil {
		return nil, err
	}

	items, err := s.lists.Get(ctx, userKey(chainID, user), func(ctx context.Context) ([]model.PoolItem, error) {
		ids, err := reader.PoolsOf(ctx, user)
		if err != nil {
			return nil, err
		}
		return s.loadItems(ctx, reader, ids)
	})
	if err != nil {
		return nil, err
	}
	out := s.label(items)
	reconcile.Sort(out, reconcile.StartDesc)
	return out, nil
}

// Participants returns a pool's participants with deposit details and
// profiles. Profiles come from a single batched store query.
func (s *Service) Participants(ctx context.Context, chainID, poolID uint64) ([]model.Participant, error) {
	reader, err := s.reader(chainID)
	if err != nil {
		return nil, err
	}
	return s.participants.Get(ctx, participantsKey(chainID, poolID), func(ctx context.Context) ([]model.Participant, error) {
		return s.loadParticipants(ctx, reader, poolID)
	})
}

// Winner returns the winnings record of one address in a pool.
func (s *Service) Winner(ctx context.Context, chainID, poolID uint64, winner common.Address) (model.WinnerDetail, error) {
	reader, err := s.reader(chainID)
	if err != nil {
		return model.WinnerDetail{}, err
	}

	var (
		detail chain.WinnerDetail
		token  model.TokenMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = reader.WinnerDetail(gctx, poolID, winner)
		return err
	})
	g.Go(func() error {
		var err error
		token, err = reader.DepositToken(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.WinnerDetail{}, err
	}

	out := model.WinnerDetail{
		Address:       winner.Hex(),
		AmountWon:     reconcile.FormatAmount(detail.AmountWon, token.Decimals),
		AmountClaimed: reconcile.FormatAmount(detail.AmountClaimed, token.Decimals),
		Claimed:       detail.Claimed,
		Forfeited:     detail.Forfeited,
	}
	if !detail.TimeWon.IsZero() {
		out.TimeWon = detail.TimeWon.Unix()
	}
	return out, nil
}

// Drafts returns metadata-only pools that are not deployed yet.
func (s *Service) Drafts(ctx context.Context, chainID uint64) ([]model.PoolItem, error) {
	if _, err := s.reader(chainID); err != nil {
		return nil, err
	}
	rows, err := s.store.DraftMetadata(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}
	return s.label(reconcile.Drafts(rows, chainID)), nil
}

// CreateDraft stores metadata for a pool that will be deployed later.
func (s *Service) CreateDraft(ctx context.Context, chainID uint64, meta model.PoolMetadata) (model.PoolMetadata, error) {
	if _, err := s.reader(chainID); err != nil {
		return model.PoolMetadata{}, err
	}
	meta.ChainID = chainID
	meta.PoolID = nil
	return s.store.CreateDraft(ctx, meta)
}

// UpdateMetadata upserts metadata for a deployed pool and drops cached views
// of it.
func (s *Service) UpdateMetadata(ctx context.Context, chainID, poolID uint64, meta model.PoolMetadata) (model.PoolMetadata, error) {
	reader, err := s.reader(chainID)
	if err != nil {
		return model.PoolMetadata{}, err
	}
	if _, found, err := reader.Pool(ctx, poolID); err != nil {
		return model.PoolMetadata{}, err
	} else if !found {
		return model.PoolMetadata{}, fmt.Errorf("%w: %d", ErrNotFound, poolID)
	}

	meta.ChainID = chainID
	meta.PoolID = &poolID
	saved, err := s.store.UpsertMetadata(ctx, meta)
	if err != nil {
		return model.PoolMetadata{}, fmt.Errorf("save metadata: %w", err)
	}
	s.Invalidate(ctx, chainID, poolID)
	return saved, nil
}

// HasRole checks a contract role for account on chainID.
func (s *Service) HasRole(ctx context.Context, chainID uint64, role [32]byte, account common.Address) (bool, error) {
	reader, err := s.reader(chainID)
	if err != nil {
		return false, err
	}
	return reader.HasRole(ctx, role, account)
}

// Invalidate drops every cached view that includes the pool.
func (s *Service) Invalidate(ctx context.Context, chainID, poolID uint64) {
	s.lists.Invalidate(ctx, listKey(chainID))
	s.lists.InvalidatePrefix(ctx, fmt.Sprintf("user:%d:", chainID))
	s.items.Invalidate(ctx, poolKey(chainID, poolID))
	s.participants.Invalidate(ctx, participantsKey(chainID, poolID))
	s.logger.Debug("pool cache invalidated", zap.Uint64("chain_id", chainID), zap.Uint64("pool_id", poolID))
}

func (s *Service) reader(chainID uint64) (ChainReader, error) {
	reader, ok := s.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", chain.ErrUnsupportedChain, chainID)
	}
	return reader, nil
}

func (s *Service) allPools(ctx context.Context, chainID uint64) ([]model.PoolItem, error) {
	reader, err := s.reader(chainID)
	if err != nil {
		return nil, err
	}
	return s.lists.Get(ctx, listKey(chainID), func(ctx context.Context) ([]model.PoolItem, error) {
		ids, err := reader.PoolIDs(ctx)
		if err != nil {
			return nil, err
		}
		return s.loadItems(ctx, reader, ids)
	})
}

// loadItems fetches chain records, metadata and the deposit token in
// parallel and merges them. A metadata failure degrades to defaults.
func (s *Service) loadItems(ctx context.Context, reader ChainReader, ids []uint64) ([]model.PoolItem, error) {
	chainID := reader.ChainID()
	if len(ids) == 0 {
		return []model.PoolItem{}, nil
	}

	var (
		records  []model.PoolRecord
		metadata map[uint64]model.PoolMetadata
		token    model.TokenMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = reader.Pools(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		token, err = reader.DepositToken(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		metadata, err = s.store.MetadataByPoolIDs(gctx, chainID, ids)
		if err != nil {
			s.logger.Warn("metadata lookup failed, serving chain fields only",
				zap.Uint64("chain_id", chainID), zap.Int("pools", len(ids)), zap.Error(err))
			metadata = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reconcile.Merge(records, metadata, reconcile.Options{ChainID: chainID, Token: token}), nil
}

func (s *Service) loadPool(ctx context.Context, reader ChainReader, poolID uint64) (poolEntry, error) {
	var (
		record   model.PoolRecord
		found    bool
		metadata map[uint64]model.PoolMetadata
		token    model.TokenMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		record, found, err = reader.Pool(gctx, poolID)
		return err
	})
	g.Go(func() error {
		var err error
		token, err = reader.DepositToken(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		metadata, err = s.store.MetadataByPoolIDs(gctx, reader.ChainID(), []uint64{poolID})
		if err != nil {
			s.logger.Warn("metadata lookup failed, serving chain fields only",
				zap.Uint64("chain_id", reader.ChainID()), zap.Uint64("pool_id", poolID), zap.Error(err))
			metadata = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return poolEntry{}, err
	}
	if !found {
		return poolEntry{}, nil
	}

	items := reconcile.Merge([]model.PoolRecord{record}, metadata, reconcile.Options{ChainID: reader.ChainID(), Token: token})
	return poolEntry{Item: items[0], Found: true}, nil
}

func (s *Service) loadParticipants(ctx context.Context, reader ChainReader, poolID uint64) ([]model.Participant, error) {
	addresses, err := reader.Participants(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return []model.Participant{}, nil
	}

	details := make([]chain.ParticipantDetail, len(addresses))
	var (
		profiles map[string]model.UserProfile
		token    model.TokenMeta
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		token, err = reader.DepositToken(gctx)
		return err
	})
	g.Go(func() error {
		keys := make([]string, 0, len(addresses))
		for _, addr := range addresses {
			keys = append(keys, addr.Hex())
		}
		var err error
		profiles, err = s.store.ProfilesByAddresses(gctx, keys)
		if err != nil {
			s.logger.Warn("profile lookup failed", zap.Uint64("pool_id", poolID), zap.Error(err))
			profiles = nil
		}
		return nil
	})

	fetch, dctx := errgroup.WithContext(gctx)
	fetch.SetLimit(s.fanout)
	for i, addr := range addresses {
		i, addr := i, addr
		fetch.Go(func() error {
			detail, err := reader.ParticipantDetail(dctx, poolID, addr)
			if err != nil {
				return fmt.Errorf("participant %s: %w", addr.Hex(), err)
			}
			details[i] = detail
			return nil
		})
	}
	g.Go(fetch.Wait)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.Participant, 0, len(addresses))
	for i, addr := range addresses {
		p := model.Participant{
			Address:     addr.Hex(),
			Deposit:     reconcile.FormatAmount(details[i].Deposit, token.Decimals),
			FeesCharged: reconcile.FormatAmount(details[i].FeesCharged, token.Decimals),
			Refunded:    details[i].Refunded,
		}
		if profile, ok := profiles[strings.ToLower(addr.Hex())]; ok {
			p.DisplayName = profile.DisplayName
			p.AvatarURL = profile.AvatarURL
		}
		out = append(out, p)
	}
	return out, nil
}

// label sets display labels on a copy of items.
func (s *Service) label(items []model.PoolItem) []model.PoolItem {
	now := s.now()
	out := make([]model.PoolItem, len(items))
	copy(out, items)
	for i := range out {
		l := s.classifier.Classify(out[i].Status, out[i].StartDate, out[i].EndDate, now)
		out[i].Label = l.Text
		out[i].Stale = l.Stale
	}
	return out
}

func listKey(chainID uint64) string {
	return fmt.Sprintf("pools:%d", chainID)
}

func poolKey(chainID, poolID uint64) string {
	return fmt.Sprintf("pool:%d:%d", chainID, poolID)
}

func userKey(chainID uint64, user common.Address) string {
	return fmt.Sprintf("user:%d:%s", chainID, strings.ToLower(user.Hex()))
}

func participantsKey(chainID, poolID uint64) string {
	return fmt.Sprintf("participants:%d:%d", chainID, poolID)
}
