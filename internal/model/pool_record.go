package model

import (
	"math/big"
	"time"
)

// PoolRecord is the chain-authoritative view of a pool.
type PoolRecord struct {
	ID               uint64
	Name             string
	StartTime        time.Time
	EndTime          time.Time
	Status           PoolStatus
	ParticipantCount int
	DepositPerPerson *big.Int
	Host             string
}
