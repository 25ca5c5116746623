package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolLens/internal/model"
)

var (
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testToken    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testHost     = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testUser     = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

type fakePool struct {
	start, end uint64
	name       string
	deposit    int64
	status     uint8
	host       common.Address
	players    []common.Address
}

// fakeCaller answers pool contract calls from an in-memory table.
type fakeCaller struct {
	mu        sync.Mutex
	pools     map[uint64]fakePool
	failPools map[uint64]bool
	down      bool
	hang      bool
	calls     int32
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.down {
		return nil, errors.New("dial tcp: connection refused")
	}

	if *msg.To == testToken {
		return f.answerToken(msg.Data)
	}

	poolABI, _ := PoolABI()
	method, err := poolABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	poolArg := func(i int) (fakePool, uint64, error) {
		id := args[i].(*big.Int).Uint64()
		if f.failPools[id] {
			return fakePool{}, id, errors.New("upstream timeout")
		}
		pool, ok := f.pools[id]
		if !ok {
			return fakePool{}, id, errors.New("execution reverted: pool does not exist")
		}
		return pool, id, nil
	}

	switch method.Name {
	case "latestPoolId":
		return method.Outputs.Pack(big.NewInt(int64(len(f.pools))))
	case "token":
		return method.Outputs.Pack(testToken)
	case "getPoolDetail":
		pool, _, err := poolArg(0)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(new(big.Int).SetUint64(pool.start), new(big.Int).SetUint64(pool.end), pool.name, big.NewInt(pool.deposit))
	case "getHost":
		pool, _, err := poolArg(0)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(pool.host)
	case "getPoolStatus":
		pool, _, err := poolArg(0)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(pool.status)
	case "getParticipants":
		pool, _, err := poolArg(0)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(pool.players)
	case "getParticipantDetail":
		return method.Outputs.Pack(big.NewInt(25), big.NewInt(1), big.NewInt(0), big.NewInt(0), false)
	case "getWinnerDetail":
		return method.Outputs.Pack(big.NewInt(100), big.NewInt(40), big.NewInt(1_700_000_000), false, false)
	case "getPoolsJoined":
		return method.Outputs.Pack([]*big.Int{big.NewInt(2), big.NewInt(1)})
	case "getPoolsCreated":
		return method.Outputs.Pack([]*big.Int{big.NewInt(2), big.NewInt(3)})
	case "hasRole":
		return method.Outputs.Pack(args[1].(common.Address) == testHost)
	default:
		return nil, fmt.Errorf("unexpected method %s", method.Name)
	}
}

func (f *fakeCaller) answerToken(data []byte) ([]byte, error) {
	erc20, _ := ERC20ABI()
	method, err := erc20.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "decimals":
		return method.Outputs.Pack(uint8(6))
	case "symbol":
		return method.Outputs.Pack("USDC")
	}
	return nil, fmt.Errorf("unexpected token method %s", method.Name)
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		pools: map[uint64]fakePool{
			1: {start: 1_700_000_000, end: 1_700_086_400, name: "Alpha", deposit: 25_000_000, status: 1, host: testHost, players: []common.Address{testUser}},
			2: {start: 1_700_100_000, end: 1_700_186_400, name: "Beta", deposit: 10_000_000, status: 2, host: testHost, players: []common.Address{testUser, testHost}},
			3: {start: 1_690_000_000, end: 1_690_086_400, name: "Gamma", deposit: 5_000_000, status: 3, host: testHost},
		},
		failPools: map[uint64]bool{},
	}
}

func newTestReader(t *testing.T, caller Caller, cfg ReaderConfig) *Reader {
	t.Helper()
	cfg.ChainID = 84532
	cfg.Contract = testContract
	reader, err := NewReader(cfg, caller, zap.NewNop())
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	return reader
}

func TestReaderPool(t *testing.T) {
	reader := newTestReader(t, newFakeCaller(), ReaderConfig{})

	record, ok, err := reader.Pool(context.Background(), 2)
	if err != nil || !ok {
		t.Fatalf("pool 2: ok=%v err=%v", ok, err)
	}
	if record.Name != "Beta" || record.Status != model.StatusStarted || record.ParticipantCount != 2 {
		t.Fatalf("record mismatch: %+v", record)
	}
	if !record.StartTime.Equal(time.Unix(1_700_100_000, 0)) {
		t.Fatalf("start mismatch: %s", record.StartTime)
	}
	if record.Host != testHost.Hex() || record.DepositPerPerson.Int64() != 10_000_000 {
		t.Fatalf("host/deposit mismatch: %+v", record)
	}
}

func TestReaderPoolNotFound(t *testing.T) {
	caller := newFakeCaller()
	reader := newTestReader(t, caller, ReaderConfig{})

	if _, ok, err := reader.Pool(context.Background(), 42); err != nil || ok {
		t.Fatalf("missing pool: ok=%v err=%v", ok, err)
	}
	before := atomic.LoadInt32(&caller.calls)
	if _, ok, err := reader.Pool(context.Background(), 0); err != nil || ok {
		t.Fatalf("pool 0: ok=%v err=%v", ok, err)
	}
	if atomic.LoadInt32(&caller.calls) != before {
		t.Fatalf("pool 0 must not hit the chain")
	}
}

func TestReaderPoolsSkipsFailures(t *testing.T) {
	caller := newFakeCaller()
	caller.failPools[2] = true
	reader := newTestReader(t, caller, ReaderConfig{Fanout: 2})

	ids, err := reader.PoolIDs(context.Background())
	if err != nil {
		t.Fatalf("pool ids: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %v", ids)
	}

	records, err := reader.Pools(context.Background(), append(ids, 9))
	if err != nil {
		t.Fatalf("pools: %v", err)
	}
	got := make([]uint64, 0, len(records))
	for _, r := range records {
		got = append(got, r.ID)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("expected pools [1 3], got %v", got)
	}
}

func TestReaderChainDown(t *testing.T) {
	caller := newFakeCaller()
	caller.down = true
	reader := newTestReader(t, caller, ReaderConfig{MaxRetries: 1, RetryBackoff: time.Millisecond})

	if _, err := reader.PoolIDs(context.Background()); !errors.Is(err, ErrChainUnavailable) {
		t.Fatalf("expected chain unavailable, got %v", err)
	}
	if _, err := reader.Pools(context.Background(), []uint64{1, 2}); !errors.Is(err, ErrChainUnavailable) {
		t.Fatalf("expected chain unavailable for batch, got %v", err)
	}
}

func TestReaderCallTimeout(t *testing.T) {
	caller := newFakeCaller()
	caller.hang = true
	reader := newTestReader(t, caller, ReaderConfig{CallTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, _, err := reader.Pool(context.Background(), 1)
	if !errors.Is(err, ErrChainUnavailable) {
		t.Fatalf("expected chain unavailable, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not applied")
	}
}

func TestReaderDetails(t *testing.T) {
	reader := newTestReader(t, newFakeCaller(), ReaderConfig{})
	ctx := context.Background()

	detail, err := reader.ParticipantDetail(ctx, 1, testUser)
	if err != nil || detail.Deposit.Int64() != 25 || detail.FeesCharged.Int64() != 1 {
		t.Fatalf("participant detail: %+v err=%v", detail, err)
	}

	winner, err := reader.WinnerDetail(ctx, 1, testUser)
	if err != nil || winner.AmountWon.Int64() != 100 || winner.TimeWon.Unix() != 1_700_000_000 {
		t.Fatalf("winner detail: %+v err=%v", winner, err)
	}

	ids, err := reader.PoolsOf(ctx, testUser)
	if err != nil || len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Fatalf("pools of: %v err=%v", ids, err)
	}

	isAdmin, err := reader.HasRole(ctx, [32]byte{}, testHost)
	if err != nil || !isAdmin {
		t.Fatalf("has role: %v err=%v", isAdmin, err)
	}
}

func TestReaderDepositTokenCached(t *testing.T) {
	caller := newFakeCaller()
	reader := newTestReader(t, caller, ReaderConfig{})

	meta, err := reader.DepositToken(context.Background())
	if err != nil {
		t.Fatalf("deposit token: %v", err)
	}
	if meta.Decimals != 6 || meta.Symbol != "USDC" || meta.Address != testToken.Hex() {
		t.Fatalf("token meta mismatch: %+v", meta)
	}
	calls := atomic.LoadInt32(&caller.calls)
	if _, err := reader.DepositToken(context.Background()); err != nil {
		t.Fatalf("deposit token again: %v", err)
	}
	if atomic.LoadInt32(&caller.calls) != calls {
		t.Fatalf("token meta should be cached")
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress("0x123"); err == nil {
		t.Fatalf("expected error for short address")
	}
	addr, err := ParseAddress(" 0x4444444444444444444444444444444444444444 ")
	if err != nil || addr != testUser {
		t.Fatalf("parse address: %v %v", addr, err)
	}
}

