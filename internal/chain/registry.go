package chain

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Endpoint is the RPC endpoint and pool contract for one chain.
type Endpoint struct {
	ChainID  uint64
	RPCURL   string
	Contract string
}

// Registry owns one client and reader per configured chain.
type Registry struct {
	clients []*Client
	readers map[uint64]*Reader
}

// Connect dials every endpoint and checks the node reports the expected chain id.
func Connect(ctx context.Context, endpoints []Endpoint, base ReaderConfig, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := &Registry{readers: make(map[uint64]*Reader, len(endpoints))}
	for _, ep := range endpoints {
		contract, err := ParseAddress(ep.Contract)
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("chain %d contract: %w", ep.ChainID, err)
		}
		if ep.RPCURL == "" {
			reg.Close()
			return nil, fmt.Errorf("chain %d: rpc url is required", ep.ChainID)
		}

		client, err := NewClient(ctx, ep.RPCURL)
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("connect rpc %d: %w", ep.ChainID, err)
		}
		reg.clients = append(reg.clients, client)

		remoteID, err := client.GetChainID(ctx)
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("get chain id %d: %w", ep.ChainID, err)
		}
		if !remoteID.IsUint64() || remoteID.Uint64() != ep.ChainID {
			reg.Close()
			return nil, fmt.Errorf("rpc for chain %d reports chain id %s", ep.ChainID, remoteID)
		}

		cfg := base
		cfg.ChainID = ep.ChainID
		cfg.Contract = contract
		reader, err := NewReader(cfg, client, logger)
		if err != nil {
			reg.Close()
			return nil, err
		}
		reg.readers[ep.ChainID] = reader
		logger.Info("chain connected", zap.Uint64("chain_id", ep.ChainID), zap.String("contract", contract.Hex()))
	}
	return reg, nil
}

// Reader returns the reader for a chain id.
func (r *Registry) Reader(chainID uint64) (*Reader, error) {
	reader, ok := r.readers[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}
	return reader, nil
}

// ChainIDs returns the configured chain ids in ascending order.
func (r *Registry) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r.readers))
	for id := range r.readers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close closes every RPC client.
func (r *Registry) Close() {
	for _, client := range r.clients {
		client.Close()
	}
}

// ParseAddress validates and converts a hex address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}
