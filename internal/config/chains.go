package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Chain is one supported chain: its RPC endpoint and pool contract.
type Chain struct {
	ID       uint64
	RPCURL   string
	Contract string
}

// getChains reads the chains map. In a config file it is a map of chain id to
// {rpc, contract}; in env or flags it is "id=rpc|contract,id=rpc|contract".
func getChains(v *viper.Viper, key string) ([]Chain, error) {
	if !v.IsSet(key) {
		return nil, nil
	}

	var chains []Chain
	switch typed := v.Get(key).(type) {
	case map[string]interface{}:
		for id, raw := range typed {
			fields, ok := raw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("chains.%s: expected rpc and contract", id)
			}
			c, err := newChain(id, fmt.Sprintf("%v", fields["rpc"]), fmt.Sprintf("%v", fields["contract"]))
			if err != nil {
				return nil, err
			}
			chains = append(chains, c)
		}
	case string:
		for id, value := range parseStringMap(typed) {
			parts := strings.SplitN(value, "|", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("chains: %s must be rpc|contract", id)
			}
			c, err := newChain(id, parts[0], parts[1])
			if err != nil {
				return nil, err
			}
			chains = append(chains, c)
		}
	default:
		return nil, fmt.Errorf("chains: unsupported value %T", typed)
	}

	sort.Slice(chains, func(i, j int) bool { return chains[i].ID < chains[j].ID })
	return chains, nil
}

func newChain(id, rpcURL, contract string) (Chain, error) {
	chainID, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return Chain{}, fmt.Errorf("chains: invalid chain id %q", id)
	}
	rpcURL = strings.TrimSpace(rpcURL)
	contract = strings.TrimSpace(contract)
	if rpcURL == "" || rpcURL == "<nil>" {
		return Chain{}, fmt.Errorf("chains.%d: rpc is required", chainID)
	}
	if contract == "" || contract == "<nil>" {
		return Chain{}, fmt.Errorf("chains.%d: contract is required", chainID)
	}
	return Chain{ID: chainID, RPCURL: rpcURL, Contract: contract}, nil
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
