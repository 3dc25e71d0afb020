package adaptor

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// oneInchIdentifierTag is the 1inch adaptor's versioned content tag.
const oneInchIdentifierTag = "1Inch Adaptor V1.0"

// OneInchAdaptor swaps through the 1inch aggregation router.
type OneInchAdaptor struct {
	*AggregatorAdaptor
}

// NewOneInchAdaptor creates a 1inch swap adaptor.
func NewOneInchAdaptor(cfg AggregatorConfig) *OneInchAdaptor {
	return &OneInchAdaptor{
		AggregatorAdaptor: newAggregatorAdaptor(oneInchIdentifierTag, cfg),
	}
}

// SwapWithOneInch runs the shared swap protocol with strategist-supplied
// 1inch call data.
func (a *OneInchAdaptor) SwapWithOneInch(ctx context.Context, fund domain.FundHandle, tokenIn, tokenOut common.Address, amount *big.Int, customSlippage uint64, swapCallData []byte) error {
	return a.Swap(ctx, fund, SwapParams{
		TokenIn:        tokenIn,
		TokenOut:       tokenOut,
		Amount:         amount,
		CustomSlippage: customSlippage,
		Payload:        swapCallData,
	})
}
