package model

// TokenMeta captures ERC20 metadata of a pool deposit token.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}
