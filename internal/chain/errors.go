package chain

import (
	"errors"
	"strings"
)

var (
	// ErrChainUnavailable marks an RPC failure or timeout. Callers may retry.
	ErrChainUnavailable = errors.New("chain unavailable")
	// ErrUnsupportedChain is returned for a chain id with no configured reader.
	ErrUnsupportedChain = errors.New("unsupported chain")

	errReverted = errors.New("execution reverted")
)

func isRevert(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errReverted) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
