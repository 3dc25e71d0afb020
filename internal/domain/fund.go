package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FundRecord is the registry's entry for a registered fund identity.
type FundRecord struct {
	Address      common.Address
	Paused       bool
	RegisteredAt time.Time
}

// FundHandle is the explicit, mutable handle to a fund's owned state that
// adaptors operate on. Passing the handle by capability instead of executing
// with the fund's ambient identity confines every mutation to the single
// handle the caller supplied.
//
// Implementations must be single-writer: one rebalance call owns the handle
// for its full duration, and a failed adaptor call must leave no partial
// mutation behind (see fund.Fund, which hands out snapshot-backed
// transactions).
type FundHandle interface {
	// Address is the fund's identity, used as the principal for volume
	// accounting and position-adoption checks.
	Address() common.Address

	// BalanceOf reports the fund's current balance of the given token.
	BalanceOf(token common.Address) *big.Int

	// Credit adds amount to the fund's balance of token.
	Credit(token common.Address, amount *big.Int) error

	// Debit removes amount from the fund's balance of token. It fails when
	// the balance is insufficient.
	Debit(token common.Address, amount *big.Int) error

	// Approve grants spender a bounded allowance of token. A zero amount
	// revokes the allowance.
	Approve(token, spender common.Address, amount *big.Int) error

	// Allowance reports the remaining allowance granted to spender.
	Allowance(token, spender common.Address) *big.Int

	// UsesPosition reports whether the fund has adopted the position id.
	UsesPosition(id PositionID) bool
}
