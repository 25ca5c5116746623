package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolLens/internal/model"
)

const maxPoolIDs = 1 << 16

// ReaderConfig holds settings for one chain's pool contract reader.
type ReaderConfig struct {
	ChainID      uint64
	Contract     common.Address
	CallTimeout  time.Duration
	Fanout       int
	MaxRetries   int
	RetryBackoff time.Duration
}

// ParticipantDetail is a participant's deposit record for one pool.
type ParticipantDetail struct {
	Deposit     *big.Int
	FeesCharged *big.Int
	Refunded    bool
}

// WinnerDetail is a participant's winnings record for one pool.
type WinnerDetail struct {
	AmountWon     *big.Int
	AmountClaimed *big.Int
	TimeWon       time.Time
	Claimed       bool
	Forfeited     bool
}

// Reader issues read-only calls against a deployed pool contract.
type Reader struct {
	cfg     ReaderConfig
	caller  Caller
	abi     abi.ABI
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger

	tokenMu sync.Mutex
	token   *model.TokenMeta
}

// NewReader builds a Reader for the contract in cfg.
func NewReader(cfg ReaderConfig, caller Caller, logger *zap.Logger) (*Reader, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if cfg.Fanout <= 0 {
		cfg.Fanout = 8
	}

	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	name := fmt.Sprintf("chain-%d", cfg.ChainID)
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isRevert(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("chain breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Reader{
		cfg:     cfg,
		caller:  caller,
		abi:     parsed,
		breaker: breaker,
		logger:  logger.With(zap.Uint64("chain_id", cfg.ChainID)),
	}, nil
}

// ChainID returns the chain this reader is bound to.
func (r *Reader) ChainID() uint64 {
	return r.cfg.ChainID
}

// PoolIDs lists every pool id created on the contract.
func (r *Reader) PoolIDs(ctx context.Context) ([]uint64, error) {
	var latest uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		values, err := r.call(ctx, r.cfg.Contract, r.abi, "latestPoolId")
		if err != nil {
			r.logger.Warn("latest pool id failed", zap.Error(err))
			return err
		}
		latest, err = asUint64(values[0])
		return err
	})
	if err != nil {
		return nil, err
	}
	if latest > maxPoolIDs {
		return nil, fmt.Errorf("latest pool id %d exceeds limit %d", latest, maxPoolIDs)
	}

	ids := make([]uint64, 0, latest)
	for id := uint64(1); id <= latest; id++ {
		ids = append(ids, id)
	}
	return ids, nil
}

// Pool loads a single pool. A missing pool reports found=false without error.
func (r *Reader) Pool(ctx context.Context, id uint64) (model.PoolRecord, bool, error) {
	if id == 0 {
		return model.PoolRecord{}, false, nil
	}
	poolID := new(big.Int).SetUint64(id)

	values, err := r.call(ctx, r.cfg.Contract, r.abi, "getPoolDetail", poolID)
	if err != nil {
		if isRevert(err) {
			return model.PoolRecord{}, false, nil
		}
		return model.PoolRecord{}, false, err
	}
	if len(values) < 4 {
		return model.PoolRecord{}, false, fmt.Errorf("getPoolDetail: short output")
	}
	start, err := asUint64(values[0])
	if err != nil {
		return model.PoolRecord{}, false, fmt.Errorf("time start: %w", err)
	}
	end, err := asUint64(values[1])
	if err != nil {
		return model.PoolRecord{}, false, fmt.Errorf("time end: %w", err)
	}
	name, err := asString(values[2])
	if err != nil {
		return model.PoolRecord{}, false, fmt.Errorf("pool name: %w", err)
	}
	deposit, err := asBigInt(values[3])
	if err != nil {
		return model.PoolRecord{}, false, fmt.Errorf("deposit amount: %w", err)
	}

	values, err = r.call(ctx, r.cfg.Contract, r.abi, "getHost", poolID)
	if err != nil {
		return model.PoolRecord{}, false, err
	}
	host, err := asAddress(values[0])
	if err != nil {
		return model.PoolRecord{}, false, fmt.Errorf("host: %w", err)
	}
	if start == 0 && host == (common.Address{}) {
		return model.PoolRecord{}, false, nil
	}

	values, err = r.call(ctx, r.cfg.Contract, r.abi, "getPoolStatus", poolID)
	if err != nil {
		return model.PoolRecord{}, false, err
	}
	rawStatus, err := asUint8(values[0])
	if err != nil {
		return model.PoolRecord{}, false, fmt.Errorf("status: %w", err)
	}
	status := model.PoolStatus(rawStatus)
	if !status.Valid() {
		return model.PoolRecord{}, false, fmt.Errorf("status: unknown value %d", rawStatus)
	}

	participants, err := r.Participants(ctx, id)
	if err != nil {
		return model.PoolRecord{}, false, err
	}

	return model.PoolRecord{
		ID:               id,
		Name:             name,
		StartTime:        time.Unix(int64(start), 0).UTC(),
		EndTime:          time.Unix(int64(end), 0).UTC(),
		Status:           status,
		ParticipantCount: len(participants),
		DepositPerPerson: deposit,
		Host:             host.Hex(),
	}, true, nil
}

// Pools loads many pools with bounded concurrency. A pool whose lookup fails
// is omitted and logged; the batch only fails when every lookup failed.
func (r *Reader) Pools(ctx context.Context, ids []uint64) ([]model.PoolRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	results := make([]*model.PoolRecord, len(ids))
	var (
		mu      sync.Mutex
		failed  int
		lastErr error
	)

	var g errgroup.Group
	g.SetLimit(r.cfg.Fanout)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			record, ok, err := r.Pool(ctx, id)
			if err != nil {
				mu.Lock()
				failed++
				lastErr = err
				mu.Unlock()
				r.logger.Warn("pool lookup failed", zap.Uint64("pool_id", id), zap.Error(err))
				return nil
			}
			if ok {
				results[i] = &record
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failed == len(ids) {
		return nil, fmt.Errorf("all %d pool lookups failed: %w", len(ids), errors.Join(ErrChainUnavailable, lastErr))
	}

	records := make([]model.PoolRecord, 0, len(ids))
	for _, record := range results {
		if record != nil {
			records = append(records, *record)
		}
	}
	return records, nil
}

// Participants returns the participant addresses of a pool.
func (r *Reader) Participants(ctx context.Context, id uint64) ([]common.Address, error) {
	values, err := r.call(ctx, r.cfg.Contract, r.abi, "getParticipants", new(big.Int).SetUint64(id))
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}
	addresses, err := asAddresses(values[0])
	if err != nil {
		return nil, fmt.Errorf("participants: %w", err)
	}
	return addresses, nil
}

// ParticipantDetail returns one participant's deposit record.
func (r *Reader) ParticipantDetail(ctx context.Context, id uint64, participant common.Address) (ParticipantDetail, error) {
	values, err := r.call(ctx, r.cfg.Contract, r.abi, "getParticipantDetail", participant, new(big.Int).SetUint64(id))
	if err != nil {
		return ParticipantDetail{}, err
	}
	if len(values) < 5 {
		return ParticipantDetail{}, fmt.Errorf("getParticipantDetail: short output")
	}
	deposit, err := asBigInt(values[0])
	if err != nil {
		return ParticipantDetail{}, fmt.Errorf("deposit: %w", err)
	}
	fees, err := asBigInt(values[1])
	if err != nil {
		return ParticipantDetail{}, fmt.Errorf("fees charged: %w", err)
	}
	refunded, err := asBool(values[4])
	if err != nil {
		return ParticipantDetail{}, fmt.Errorf("refunded: %w", err)
	}
	return ParticipantDetail{Deposit: deposit, FeesCharged: fees, Refunded: refunded}, nil
}

// WinnerDetail returns a winner's record; zero amounts mean "not a winner".
func (r *Reader) WinnerDetail(ctx context.Context, id uint64, winner common.Address) (WinnerDetail, error) {
	values, err := r.call(ctx, r.cfg.Contract, r.abi, "getWinnerDetail", new(big.Int).SetUint64(id), winner)
	if err != nil {
		if isRevert(err) {
			return WinnerDetail{AmountWon: new(big.Int), AmountClaimed: new(big.Int)}, nil
		}
		return WinnerDetail{}, err
	}
	if len(values) < 5 {
		return WinnerDetail{}, fmt.Errorf("getWinnerDetail: short output")
	}
	won, err := asBigInt(values[0])
	if err != nil {
		return WinnerDetail{}, fmt.Errorf("amount won: %w", err)
	}
	claimed, err := asBigInt(values[1])
	if err != nil {
		return WinnerDetail{}, fmt.Errorf("amount claimed: %w", err)
	}
	timeWon, err := asUint64(values[2])
	if err != nil {
		return WinnerDetail{}, fmt.Errorf("time won: %w", err)
	}
	isClaimed, err := asBool(values[3])
	if err != nil {
		return WinnerDetail{}, fmt.Errorf("claimed: %w", err)
	}
	forfeited, err := asBool(values[4])
	if err != nil {
		return WinnerDetail{}, fmt.Errorf("forfeited: %w", err)
	}

	detail := WinnerDetail{
		AmountWon:     won,
		AmountClaimed: claimed,
		Claimed:       isClaimed,
		Forfeited:     forfeited,
	}
	if timeWon > 0 {
		detail.TimeWon = time.Unix(int64(timeWon), 0).UTC()
	}
	return detail, nil
}

// PoolsOf returns the ids of pools a user joined or hosts, ascending.
func (r *Reader) PoolsOf(ctx context.Context, user common.Address) ([]uint64, error) {
	seen := make(map[uint64]struct{})
	for _, method := range []string{"getPoolsJoined", "getPoolsCreated"} {
		values, err := r.call(ctx, r.cfg.Contract, r.abi, method, user)
		if err != nil {
			return nil, err
		}
		ids, err := asBigInts(values[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		for _, id := range ids {
			if id.IsUint64() {
				seen[id.Uint64()] = struct{}{}
			}
		}
	}

	out := make([]uint64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// HasRole reports whether account holds role on the pool contract.
func (r *Reader) HasRole(ctx context.Context, role [32]byte, account common.Address) (bool, error) {
	values, err := r.call(ctx, r.cfg.Contract, r.abi, "hasRole", role, account)
	if err != nil {
		return false, err
	}
	return asBool(values[0])
}

// DepositToken loads the contract's deposit token metadata once per reader.
func (r *Reader) DepositToken(ctx context.Context) (model.TokenMeta, error) {
	r.tokenMu.Lock()
	defer r.tokenMu.Unlock()
	if r.token != nil {
		return *r.token, nil
	}

	values, err := r.call(ctx, r.cfg.Contract, r.abi, "token")
	if err != nil {
		return model.TokenMeta{}, err
	}
	token, err := asAddress(values[0])
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("token: %w", err)
	}

	meta, err := r.fetchTokenMeta(ctx, token)
	if err != nil {
		return model.TokenMeta{}, err
	}
	r.token = &meta
	return meta, nil
}

func (r *Reader) fetchTokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}

	stringABI, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := r.call(ctx, token, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, fmt.Errorf("decimals: %w", err)
	}
	meta.Decimals = decimals

	if values, err := r.call(ctx, token, stringABI, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if bytes32ABI, abiErr := erc20ABIBytes32Instance(); abiErr == nil {
		if values, err := r.call(ctx, token, bytes32ABI, "symbol"); err == nil {
			if symbol, ok := bytes32ToString(values[0]); ok {
				meta.Symbol = symbol
			}
		} else {
			r.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
		}
	}

	return meta, nil
}

func (r *Reader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := r.breaker.Execute(func() ([]byte, error) {
		return r.caller.CallContract(callCtx, msg, nil)
	})
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("call %s: %w", method, errReverted)
		}
		return nil, fmt.Errorf("call %s: %w", method, errors.Join(ErrChainUnavailable, err))
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
