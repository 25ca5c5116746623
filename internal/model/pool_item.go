package model

import "time"

// PoolItem is the reconciled pool view served to clients. It is built per
// request and never persisted.
type PoolItem struct {
	ID               uint64     `json:"id"`
	DraftID          string     `json:"draftId,omitempty"`
	ChainID          uint64     `json:"chainId"`
	Name             string     `json:"name"`
	Image            string     `json:"image"`
	Description      string     `json:"description"`
	StartDate        time.Time  `json:"startDate"`
	EndDate          time.Time  `json:"endDate"`
	Status           PoolStatus `json:"status"`
	NumParticipants  int        `json:"numParticipants"`
	SoftCap          int        `json:"softCap"`
	DepositPerPerson string     `json:"depositPerPerson"`
	TokenSymbol      string     `json:"tokenSymbol,omitempty"`
	Host             string     `json:"host"`
	Label            string     `json:"label"`
	Stale            bool       `json:"stale"`
	Draft            bool       `json:"draft"`
}
