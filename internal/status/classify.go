package status

import (
	"fmt"
	"time"

	"poolLens/internal/model"
)

const day = 24 * time.Hour

// Label is the display text for a pool's lifecycle position.
// Stale is set when the chain status contradicts the pool's timestamps.
type Label struct {
	Text  string `json:"text"`
	Stale bool   `json:"stale"`
}

// Classifier formats labels in a fixed location. The zero value uses UTC.
type Classifier struct {
	loc *time.Location
}

// NewClassifier returns a Classifier rendering dates in loc (UTC if nil).
func NewClassifier(loc *time.Location) Classifier {
	return Classifier{loc: loc}
}

func (c Classifier) location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Classify maps a chain status and its timestamps to a label relative to now.
func (c Classifier) Classify(status model.PoolStatus, start, end, now time.Time) Label {
	switch status {
	case model.StatusInactive:
		return Label{Text: "Pool not yet active"}
	case model.StatusDepositEnabled:
		if start.After(now) {
			return Label{Text: countdown("Starts in", "Starting soon", start.Sub(now))}
		}
		return Label{Text: "Registration open"}
	case model.StatusStarted:
		if end.After(now) {
			return Label{Text: countdown("Ends in", "Ending soon", end.Sub(now))}
		}
		// The host has not ended the pool on chain yet.
		return Label{Text: "Ending soon", Stale: true}
	case model.StatusEnded:
		return Label{Text: "Ended " + end.In(c.location()).Format("1/2/2006")}
	case model.StatusDeleted:
		return Label{Text: "Pool deleted"}
	default:
		return Label{Text: "Unknown status", Stale: true}
	}
}

// Classify uses a UTC classifier.
func Classify(status model.PoolStatus, start, end, now time.Time) Label {
	return Classifier{}.Classify(status, start, end, now)
}

func countdown(prefix, soon string, remaining time.Duration) string {
	if days := int(remaining / day); days >= 1 {
		return fmt.Sprintf("%s %d %s", prefix, days, plural(days, "day"))
	}
	if hours := int(remaining / time.Hour); hours >= 1 {
		return fmt.Sprintf("%s %d %s", prefix, hours, plural(hours, "hour"))
	}
	return soon
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
