package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolLens/internal/chain"
	"poolLens/internal/model"
	"poolLens/internal/pools"
)

// chainStub serves fixed records in id order, which is not start order.
type chainStub struct {
	records map[uint64]model.PoolRecord
}

func (c chainStub) ChainID() uint64 { return testChain }

func (c chainStub) PoolIDs(context.Context) ([]uint64, error) {
	ids := make([]uint64, 0, len(c.records))
	for id := uint64(1); id <= uint64(len(c.records)); id++ {
		ids = append(ids, id)
	}
	return ids, nil
}

func (c chainStub) Pool(_ context.Context, id uint64) (model.PoolRecord, bool, error) {
	r, ok := c.records[id]
	return r, ok, nil
}

func (c chainStub) Pools(_ context.Context, ids []uint64) ([]model.PoolRecord, error) {
	out := make([]model.PoolRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := c.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (chainStub) Participants(context.Context, uint64) ([]common.Address, error) { return nil, nil }

func (chainStub) ParticipantDetail(context.Context, uint64, common.Address) (chain.ParticipantDetail, error) {
	return chain.ParticipantDetail{}, nil
}

func (chainStub) WinnerDetail(context.Context, uint64, common.Address) (chain.WinnerDetail, error) {
	return chain.WinnerDetail{}, nil
}

func (chainStub) PoolsOf(context.Context, common.Address) ([]uint64, error) { return nil, nil }

func (chainStub) HasRole(context.Context, [32]byte, common.Address) (bool, error) { return false, nil }

func (chainStub) DepositToken(context.Context) (model.TokenMeta, error) {
	return model.TokenMeta{Decimals: 6, Symbol: "USDC"}, nil
}

type emptyStore struct{}

func (emptyStore) MetadataByPoolIDs(context.Context, uint64, []uint64) (map[uint64]model.PoolMetadata, error) {
	return map[uint64]model.PoolMetadata{}, nil
}

func (emptyStore) DraftMetadata(context.Context, uint64) ([]model.PoolMetadata, error) {
	return nil, nil
}

func (emptyStore) ProfilesByAddresses(context.Context, []string) (map[string]model.UserProfile, error) {
	return map[string]model.UserProfile{}, nil
}

func (emptyStore) UpsertMetadata(_ context.Context, meta model.PoolMetadata) (model.PoolMetadata, error) {
	return meta, nil
}

func (emptyStore) CreateDraft(_ context.Context, meta model.PoolMetadata) (model.PoolMetadata, error) {
	return meta, nil
}

func (emptyStore) WalletForUser(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func TestUpcomingPoolsThroughService(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	record := func(id uint64, name string, start time.Time, status model.PoolStatus) model.PoolRecord {
		return model.PoolRecord{
			ID:               id,
			Name:             name,
			StartTime:        start,
			EndTime:          start.Add(24 * time.Hour),
			Status:           status,
			DepositPerPerson: big.NewInt(25_000_000),
			Host:             hostWallet.Hex(),
		}
	}
	reader := chainStub{records: map[uint64]model.PoolRecord{
		1: record(1, "Latest", now.Add(72*time.Hour), model.StatusDepositEnabled),
		2: record(2, "Finished", now.Add(-72*time.Hour), model.StatusEnded),
		3: record(3, "Soonest", now.Add(2*time.Hour), model.StatusDepositEnabled),
		4: record(4, "Middle", now.Add(26*time.Hour), model.StatusInactive),
	}}

	svc, err := pools.NewService([]pools.ChainReader{reader}, emptyStore{}, pools.Config{
		CacheTTL: time.Minute,
		Now:      func() time.Time { return now },
	}, nil)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := NewRouter(context.Background(), svc, fakeAccess{}, Options{}, nil)

	w := do(r, http.MethodGet, "/api/pools/upcoming?chainId=84532", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var items []model.PoolItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 3)

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	assert.Equal(t, []string{"Soonest", "Middle", "Latest"}, names)
	assert.Equal(t, "Starts in 2 hours", items[0].Label)
	assert.Equal(t, "25", items[0].DepositPerPerson)
}
