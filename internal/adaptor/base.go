// Package adaptor implements the pluggable execution units a fund uses to
// reach external protocols: the shared BaseAdaptor defaults, the ERC20 spot
// holdings adaptor, and the aggregator swap family with its slippage and
// volume risk controls.
package adaptor

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// BaseAdaptor supplies rejecting defaults for every position-bearing
// operation. Concrete adaptors embed it and override the operations they
// support; anything not overridden fails with ErrNotSupported instead of
// silently doing nothing.
type BaseAdaptor struct{}

// Deposit rejects by default.
func (BaseAdaptor) Deposit(context.Context, domain.FundHandle, *big.Int, []byte) error {
	return fmt.Errorf("adaptor: deposit: %w", domain.ErrNotSupported)
}

// Withdraw rejects by default.
func (BaseAdaptor) Withdraw(context.Context, domain.FundHandle, *big.Int, common.Address, []byte) error {
	return fmt.Errorf("adaptor: withdraw: %w", domain.ErrNotSupported)
}

// BalanceOf rejects by default.
func (BaseAdaptor) BalanceOf(context.Context, domain.FundHandle, []byte) (*big.Int, error) {
	return nil, fmt.Errorf("adaptor: balance of: %w", domain.ErrNotSupported)
}

// WithdrawableFrom rejects by default.
func (BaseAdaptor) WithdrawableFrom(context.Context, domain.FundHandle, []byte) (*big.Int, error) {
	return nil, fmt.Errorf("adaptor: withdrawable from: %w", domain.ErrNotSupported)
}

// AssetOf rejects by default.
func (BaseAdaptor) AssetOf([]byte) (common.Address, error) {
	return common.Address{}, fmt.Errorf("adaptor: asset of: %w", domain.ErrNotSupported)
}

// AssetsUsed rejects by default.
func (BaseAdaptor) AssetsUsed([]byte) ([]common.Address, error) {
	return nil, fmt.Errorf("adaptor: assets used: %w", domain.ErrNotSupported)
}
