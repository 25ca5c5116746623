package status

import (
	"testing"
	"time"

	"poolLens/internal/model"
)

func TestClassifyTable(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		status model.PoolStatus
		start  time.Time
		end    time.Time
		want   Label
	}{
		{"inactive", model.StatusInactive, now.Add(day), now.Add(2 * day), Label{Text: "Pool not yet active"}},
		{"starts in days", model.StatusDepositEnabled, now.Add(3*day + time.Hour), now.Add(5 * day), Label{Text: "Starts in 3 days"}},
		{"starts in one day", model.StatusDepositEnabled, now.Add(day), now.Add(5 * day), Label{Text: "Starts in 1 day"}},
		{"starts in hours", model.StatusDepositEnabled, now.Add(5*time.Hour + 10*time.Minute), now.Add(day), Label{Text: "Starts in 5 hours"}},
		{"starting soon", model.StatusDepositEnabled, now.Add(59 * time.Minute), now.Add(day), Label{Text: "Starting soon"}},
		{"registration open", model.StatusDepositEnabled, now.Add(-time.Hour), now.Add(day), Label{Text: "Registration open"}},
		{"ends in one day", model.StatusStarted, now.Add(-day), now.Add(day), Label{Text: "Ends in 1 day"}},
		{"ends in hours", model.StatusStarted, now.Add(-day), now.Add(2 * time.Hour), Label{Text: "Ends in 2 hours"}},
		{"ending soon", model.StatusStarted, now.Add(-day), now.Add(30 * time.Minute), Label{Text: "Ending soon"}},
		{"started past end is stale", model.StatusStarted, now.Add(-2 * day), now.Add(-time.Hour), Label{Text: "Ending soon", Stale: true}},
		{"ended", model.StatusEnded, now.Add(-3 * day), time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC), Label{Text: "Ended 6/1/2024"}},
		{"deleted", model.StatusDeleted, now, now, Label{Text: "Pool deleted"}},
	}

	for _, tc := range cases {
		got := Classify(tc.status, tc.start, tc.end, now)
		if got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestClassifyEndedIgnoresNow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	first := Classify(model.StatusEnded, start, end, end.Add(time.Hour))
	second := Classify(model.StatusEnded, start, end, end.Add(400*day))
	if first != second {
		t.Fatalf("ended label depends on now: %+v != %+v", first, second)
	}
}

func TestClassifierLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	end := time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC)

	got := NewClassifier(loc).Classify(model.StatusEnded, end.Add(-day), end, end)
	if got.Text != "Ended 3/1/2024" {
		t.Fatalf("unexpected label: %s", got.Text)
	}

	for _, c := range []Classifier{{}, NewClassifier(nil)} {
		if got := c.Classify(model.StatusEnded, end.Add(-day), end, end); got.Text != "Ended 3/2/2024" {
			t.Fatalf("nil location should render UTC, got %s", got.Text)
		}
	}
}

func TestClassifyUnknownStatus(t *testing.T) {
	now := time.Now()
	got := Classify(model.PoolStatus(42), now, now, now)
	if !got.Stale {
		t.Fatalf("unknown status should be flagged stale")
	}
}
