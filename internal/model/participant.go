package model

// Participant is a pool participant with on-chain deposit details and an
// optional off-chain profile.
type Participant struct {
	Address     string `json:"address"`
	Deposit     string `json:"deposit"`
	FeesCharged string `json:"feesCharged"`
	Refunded    bool   `json:"refunded"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// UserProfile is a stored user row keyed by wallet address.
type UserProfile struct {
	Address     string `json:"address"`
	PrivyID     string `json:"-"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// WinnerDetail is the on-chain winnings record for one participant.
type WinnerDetail struct {
	Address       string `json:"address"`
	AmountWon     string `json:"amountWon"`
	AmountClaimed string `json:"amountClaimed"`
	TimeWon       int64  `json:"timeWon"`
	Claimed       bool   `json:"claimed"`
	Forfeited     bool   `json:"forfeited"`
}
