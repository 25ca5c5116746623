package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolLens/internal/model"
)

// DefaultAdminRole is the contract's DEFAULT_ADMIN_ROLE (zero bytes32).
var DefaultAdminRole = [32]byte{}

// Identity is a verified caller bound to a wallet.
type Identity struct {
	UserID string
	Wallet common.Address
}

// Wallets resolves an auth subject to its linked wallet.
type Wallets interface {
	WalletForUser(ctx context.Context, userID string) (string, bool, error)
}

// Pools is the chain view the policy consults.
type Pools interface {
	HasRole(ctx context.Context, chainID uint64, role [32]byte, account common.Address) (bool, error)
	Pool(ctx context.Context, chainID, poolID uint64) (model.PoolItem, error)
}

// Policy is the single place privileged operations are checked.
type Policy struct {
	verifier *Verifier
	wallets  Wallets
	pools    Pools
	logger   *zap.Logger
}

func NewPolicy(verifier *Verifier, wallets Wallets, pools Pools, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{verifier: verifier, wallets: wallets, pools: pools, logger: logger}
}

// Authenticate verifies token and resolves the caller's wallet.
func (p *Policy) Authenticate(ctx context.Context, token string) (Identity, error) {
	if p.verifier == nil {
		return Identity{}, fmt.Errorf("%w: auth not configured", ErrUnauthenticated)
	}
	subject, err := p.verifier.Subject(token)
	if err != nil {
		return Identity{}, err
	}
	wallet, ok, err := p.wallets.WalletForUser(ctx, subject)
	if err != nil {
		return Identity{}, fmt.Errorf("resolve wallet: %w", err)
	}
	if !ok || !common.IsHexAddress(wallet) {
		return Identity{}, fmt.Errorf("%w: no wallet linked to user", ErrUnauthenticated)
	}
	return Identity{UserID: subject, Wallet: common.HexToAddress(wallet)}, nil
}

// IsAdmin reports whether the caller holds the admin role on chainID.
// Any failure is logged and reported as false.
func (p *Policy) IsAdmin(ctx context.Context, chainID uint64, id Identity) bool {
	ok, err := p.pools.HasRole(ctx, chainID, DefaultAdminRole, id.Wallet)
	if err != nil {
		p.logger.Warn("admin check failed", zap.Uint64("chain_id", chainID), zap.String("wallet", id.Wallet.Hex()), zap.Error(err))
		return false
	}
	return ok
}

// RequireAdmin returns ErrForbidden unless the caller is an admin.
func (p *Policy) RequireAdmin(ctx context.Context, chainID uint64, id Identity) error {
	if !p.IsAdmin(ctx, chainID, id) {
		return ErrForbidden
	}
	return nil
}

// CanManagePool allows the pool host or an admin.
func (p *Policy) CanManagePool(ctx context.Context, chainID, poolID uint64, id Identity) error {
	pool, err := p.pools.Pool(ctx, chainID, poolID)
	if err != nil {
		return err
	}
	if strings.EqualFold(pool.Host, id.Wallet.Hex()) {
		return nil
	}
	return p.RequireAdmin(ctx, chainID, id)
}
