package reconcile

import (
	"math/big"
	"reflect"
	"testing"
	"time"

	"poolLens/internal/model"
)

func sampleRecords() []model.PoolRecord {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []model.PoolRecord{
		{ID: 1, Name: "Beach", StartTime: base.Add(48 * time.Hour), EndTime: base.Add(72 * time.Hour), Status: model.StatusDepositEnabled, ParticipantCount: 3, DepositPerPerson: big.NewInt(25_000_000), Host: "0xhost1"},
		{ID: 2, Name: "Poker", StartTime: base.Add(24 * time.Hour), EndTime: base.Add(30 * time.Hour), Status: model.StatusStarted, ParticipantCount: 8, DepositPerPerson: big.NewInt(10_000_000), Host: "0xhost2"},
		{ID: 3, Name: "Done", StartTime: base, EndTime: base.Add(time.Hour), Status: model.StatusEnded, ParticipantCount: 2, DepositPerPerson: big.NewInt(1), Host: "0xhost3"},
	}
}

func TestMergeEmptyMetadataDefaults(t *testing.T) {
	items := Merge(sampleRecords(), nil, Options{ChainID: 84532, Token: model.TokenMeta{Decimals: 6, Symbol: "USDC"}})
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for _, item := range items {
		if item.Image != "" || item.SoftCap != 0 || item.Description != "" {
			t.Fatalf("expected cosmetic defaults, got %+v", item)
		}
		if item.ChainID != 84532 || item.TokenSymbol != "USDC" {
			t.Fatalf("chain/token not applied: %+v", item)
		}
	}
	if items[0].DepositPerPerson != "25" {
		t.Fatalf("deposit formatting mismatch: %s", items[0].DepositPerPerson)
	}
	if items[2].DepositPerPerson != "0.000001" {
		t.Fatalf("deposit formatting mismatch: %s", items[2].DepositPerPerson)
	}
}

func TestMergeChainWins(t *testing.T) {
	poolID := uint64(2)
	metadata := map[uint64]model.PoolMetadata{
		2:  {PoolID: &poolID, ImageURL: "https://img/2.png", SoftCap: 20, Description: "weekly game"},
		99: {ImageURL: "https://img/orphan.png", SoftCap: 5},
	}

	items := Merge(sampleRecords(), metadata, Options{ChainID: 8453})
	if len(items) != 3 {
		t.Fatalf("orphan metadata must not create items, got %d", len(items))
	}
	poker := items[1]
	if poker.Name != "Poker" || poker.Status != model.StatusStarted || poker.NumParticipants != 8 {
		t.Fatalf("chain fields overwritten: %+v", poker)
	}
	if poker.Image != "https://img/2.png" || poker.SoftCap != 20 || poker.Description != "weekly game" {
		t.Fatalf("metadata not merged: %+v", poker)
	}
}

func TestSortOrders(t *testing.T) {
	items := Merge(sampleRecords(), nil, Options{})

	Sort(items, StartAsc)
	if got := ids(items); !reflect.DeepEqual(got, []uint64{3, 2, 1}) {
		t.Fatalf("start asc mismatch: %v", got)
	}

	Sort(items, StartDesc)
	if got := ids(items); !reflect.DeepEqual(got, []uint64{1, 2, 3}) {
		t.Fatalf("start desc mismatch: %v", got)
	}

	Sort(items, EndDesc)
	if got := ids(items); !reflect.DeepEqual(got, []uint64{1, 2, 3}) {
		t.Fatalf("end desc mismatch: %v", got)
	}
}

func TestSortTieBreaksByID(t *testing.T) {
	start := time.Unix(1_700_000_000, 0).UTC()
	items := []model.PoolItem{{ID: 9, StartDate: start}, {ID: 4, StartDate: start}, {ID: 6, StartDate: start}}

	Sort(items, StartAsc)
	if got := ids(items); !reflect.DeepEqual(got, []uint64{4, 6, 9}) {
		t.Fatalf("tie break mismatch: %v", got)
	}
}

func TestFilters(t *testing.T) {
	records := append(sampleRecords(), model.PoolRecord{ID: 4, Status: model.StatusDeleted})
	items := Merge(records, nil, Options{})

	if got := ids(FilterUpcoming(items)); !reflect.DeepEqual(got, []uint64{1, 2}) {
		t.Fatalf("upcoming mismatch: %v", got)
	}
	if got := ids(FilterPast(items)); !reflect.DeepEqual(got, []uint64{3}) {
		t.Fatalf("past mismatch: %v", got)
	}
}

func TestDrafts(t *testing.T) {
	bound := uint64(7)
	rows := []model.PoolMetadata{
		{DraftID: "d-1", ImageURL: "a.png", SoftCap: 10},
		{DraftID: "d-2", PoolID: &bound},
	}

	items := Drafts(rows, 84532)
	if len(items) != 1 {
		t.Fatalf("expected one draft, got %d", len(items))
	}
	if !items[0].Draft || items[0].DraftID != "d-1" || items[0].Status != model.StatusInactive {
		t.Fatalf("draft mismatch: %+v", items[0])
	}
}

func TestFormatAmountNil(t *testing.T) {
	if got := FormatAmount(nil, 18); got != "0" {
		t.Fatalf("nil amount: %s", got)
	}
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := FormatAmount(wei, 18); got != "1.5" {
		t.Fatalf("wei amount: %s", got)
	}
}

func ids(items []model.PoolItem) []uint64 {
	out := make([]uint64, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
