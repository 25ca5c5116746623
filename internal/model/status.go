package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PoolStatus mirrors the contract's POOLSTATUS uint8 enum.
type PoolStatus uint8

const (
	StatusInactive PoolStatus = iota
	StatusDepositEnabled
	StatusStarted
	StatusEnded
	StatusDeleted
)

var statusNames = [...]string{
	StatusInactive:       "INACTIVE",
	StatusDepositEnabled: "DEPOSIT_ENABLED",
	StatusStarted:        "STARTED",
	StatusEnded:          "ENDED",
	StatusDeleted:        "DELETED",
}

// Valid reports whether s is a known contract status.
func (s PoolStatus) Valid() bool {
	return int(s) < len(statusNames)
}

func (s PoolStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
	return statusNames[s]
}

// Terminal reports whether the chain record can no longer change.
func (s PoolStatus) Terminal() bool {
	return s == StatusEnded || s == StatusDeleted
}

// ParseStatus parses a status name (case-insensitive).
func ParseStatus(input string) (PoolStatus, error) {
	input = strings.ToUpper(strings.TrimSpace(input))
	for i, name := range statusNames {
		if name == input {
			return PoolStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pool status: %q", input)
}

// MarshalJSON encodes the status by name.
func (s PoolStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid pool status %d", uint8(s))
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name.
func (s *PoolStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
