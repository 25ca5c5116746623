package reconcile

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"poolLens/internal/model"
)

// Order selects how reconciled items are sorted.
type Order int

const (
	// StartAsc puts the soonest start first (upcoming pools).
	StartAsc Order = iota
	// StartDesc puts the latest start first (a user's pools).
	StartDesc
	// EndDesc puts the most recently ended first (past pools).
	EndDesc
)

// Options controls a merge.
type Options struct {
	ChainID uint64
	Token   model.TokenMeta
}

// Merge joins chain records with stored metadata on the pool id. Chain fields
// always win; metadata only supplies image, soft cap and description.
// Metadata rows without a chain record are ignored.
func Merge(records []model.PoolRecord, metadata map[uint64]model.PoolMetadata, opts Options) []model.PoolItem {
	items := make([]model.PoolItem, 0, len(records))
	for _, record := range records {
		item := model.PoolItem{
			ID:               record.ID,
			ChainID:          opts.ChainID,
			Name:             record.Name,
			StartDate:        record.StartTime.UTC(),
			EndDate:          record.EndTime.UTC(),
			Status:           record.Status,
			NumParticipants:  record.ParticipantCount,
			DepositPerPerson: FormatAmount(record.DepositPerPerson, opts.Token.Decimals),
			TokenSymbol:      opts.Token.Symbol,
			Host:             record.Host,
		}
		if meta, ok := metadata[record.ID]; ok {
			item.Image = meta.ImageURL
			item.SoftCap = meta.SoftCap
			item.Description = meta.Description
			item.DraftID = meta.DraftID
		}
		items = append(items, item)
	}
	return items
}

// Drafts builds items for metadata rows that have no deployed pool yet.
// Rows already bound to a pool id are skipped.
func Drafts(rows []model.PoolMetadata, chainID uint64) []model.PoolItem {
	items := make([]model.PoolItem, 0, len(rows))
	for _, row := range rows {
		if row.PoolID != nil {
			continue
		}
		items = append(items, model.PoolItem{
			DraftID:          row.DraftID,
			ChainID:          chainID,
			Image:            row.ImageURL,
			SoftCap:          row.SoftCap,
			Description:      row.Description,
			Status:           model.StatusInactive,
			DepositPerPerson: "0",
			Draft:            true,
		})
	}
	return items
}

// FilterUpcoming keeps pools that are neither ended nor deleted.
func FilterUpcoming(items []model.PoolItem) []model.PoolItem {
	return filter(items, func(item model.PoolItem) bool {
		return !item.Status.Terminal()
	})
}

// FilterPast keeps ended pools.
func FilterPast(items []model.PoolItem) []model.PoolItem {
	return filter(items, func(item model.PoolItem) bool {
		return item.Status == model.StatusEnded
	})
}

func filter(items []model.PoolItem, keep func(model.PoolItem) bool) []model.PoolItem {
	out := make([]model.PoolItem, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Sort orders items in place. Ties are broken by ascending pool id so the
// output is deterministic.
func Sort(items []model.PoolItem, order Order) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch order {
		case StartDesc:
			if !a.StartDate.Equal(b.StartDate) {
				return a.StartDate.After(b.StartDate)
			}
		case EndDesc:
			if !a.EndDate.Equal(b.EndDate) {
				return a.EndDate.After(b.EndDate)
			}
		default:
			if !a.StartDate.Equal(b.StartDate) {
				return a.StartDate.Before(b.StartDate)
			}
		}
		return a.ID < b.ID
	})
}

// FormatAmount renders a base-unit token amount as a decimal string.
func FormatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}
