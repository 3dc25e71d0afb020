package adaptor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// PaperVenue is an in-process aggregator venue that settles swaps literally
// from the strategist payload: it spends its allowance of the input token and
// credits the quoted output. The swap protocol still snapshots balances and
// enforces the slippage floor around it, so a payload quoting a bad fill is
// rejected the same way a real router fill would be. Production deployments
// plug a router client in behind the Aggregator interface instead.
type PaperVenue struct {
	name    string
	spender common.Address
}

// NewPaperVenue creates a venue with the given name and spender identity.
func NewPaperVenue(name string, spender common.Address) *PaperVenue {
	return &PaperVenue{name: name, spender: spender}
}

// Name returns the venue name.
func (v *PaperVenue) Name() string { return v.name }

// Spender returns the address approvals are granted to.
func (v *PaperVenue) Spender() common.Address { return v.spender }

// paperSwap is the payload format the venue settles. Amounts are decimal
// strings in the tokens' native units.
type paperSwap struct {
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
}

// Execute settles the payload against the fund. It consumes no more input
// than the allowance granted to the venue's spender.
func (v *PaperVenue) Execute(ctx context.Context, fund domain.FundHandle, payload []byte) error {
	var swap paperSwap
	if err := json.Unmarshal(payload, &swap); err != nil {
		return fmt.Errorf("venue %s: decode payload: %w", v.name, err)
	}
	if !common.IsHexAddress(swap.TokenIn) || !common.IsHexAddress(swap.TokenOut) {
		return fmt.Errorf("venue %s: payload token addresses: %w", v.name, domain.ErrInvalidInput)
	}
	tokenIn := common.HexToAddress(swap.TokenIn)
	tokenOut := common.HexToAddress(swap.TokenOut)

	amountIn, ok := new(big.Int).SetString(swap.AmountIn, 10)
	if !ok || amountIn.Sign() <= 0 {
		return fmt.Errorf("venue %s: payload amount_in %q: %w", v.name, swap.AmountIn, domain.ErrInvalidInput)
	}
	amountOut, ok := new(big.Int).SetString(swap.AmountOut, 10)
	if !ok || amountOut.Sign() <= 0 {
		return fmt.Errorf("venue %s: payload amount_out %q: %w", v.name, swap.AmountOut, domain.ErrInvalidInput)
	}

	if fund.Allowance(tokenIn, v.spender).Cmp(amountIn) < 0 {
		return fmt.Errorf("venue %s: allowance below amount_in: %w", v.name, domain.ErrInvalidInput)
	}

	if err := fund.Debit(tokenIn, amountIn); err != nil {
		return fmt.Errorf("venue %s: debit: %w", v.name, err)
	}
	if err := fund.Credit(tokenOut, amountOut); err != nil {
		return fmt.Errorf("venue %s: credit: %w", v.name, err)
	}
	return nil
}

// Compile-time interface check.
var _ Aggregator = (*PaperVenue)(nil)
