package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AdaptorTrustEntry records the trust state of a single adaptor. Identifier
// claims are permanent: once any adaptor has claimed an identifier, no other
// adaptor may ever claim it, even after the first is distrusted. This keeps a
// freshly deployed adaptor from colliding with position hashes computed under
// the old identifier.
type AdaptorTrustEntry struct {
	Ref        common.Address
	Identifier common.Hash
	IsDebt     bool
	Trusted    bool
	TrustedAt  time.Time
}

// Adaptor is the pluggable strategy unit a fund executes during a rebalance.
// Every operation receives the calling fund's state through an explicit
// FundHandle rather than any ambient caller identity; an adaptor owns no
// fund state of its own beyond immutable deploy-time configuration.
//
// A concrete adaptor implements the position-bearing operations it supports
// and rejects the rest with ErrNotSupported (embed adaptor.BaseAdaptor for
// the rejecting defaults).
type Adaptor interface {
	// Address is the adaptor's storage identity, the reference the registry
	// keys trust entries by.
	Address() common.Address

	// Identifier returns the adaptor's content-derived tag used in position
	// hash computation. It must be stable across deployments.
	Identifier() common.Hash

	// IsDebt reports whether positions under this adaptor are debt-bearing.
	IsDebt() bool

	// Deposit moves assets from the fund's idle balance into the position
	// described by adaptorData.
	Deposit(ctx context.Context, fund FundHandle, assets *big.Int, adaptorData []byte) error

	// Withdraw moves assets out of the position to the receiver.
	Withdraw(ctx context.Context, fund FundHandle, assets *big.Int, receiver common.Address, adaptorData []byte) error

	// BalanceOf reports the fund's balance in the position.
	BalanceOf(ctx context.Context, fund FundHandle, adaptorData []byte) (*big.Int, error)

	// WithdrawableFrom reports how much the fund could withdraw right now.
	WithdrawableFrom(ctx context.Context, fund FundHandle, adaptorData []byte) (*big.Int, error)

	// AssetOf returns the primary asset of the position.
	AssetOf(adaptorData []byte) (common.Address, error)

	// AssetsUsed returns every asset the position touches; the registry
	// refuses to trust a position whose assets the oracle cannot price.
	AssetsUsed(adaptorData []byte) ([]common.Address, error)
}
