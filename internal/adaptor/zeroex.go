package adaptor

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// zeroExIdentifierTag is the 0x adaptor's versioned content tag.
const zeroExIdentifierTag = "0x Adaptor V1.0"

// ZeroExAdaptor swaps through the 0x exchange proxy.
type ZeroExAdaptor struct {
	*AggregatorAdaptor
}

// NewZeroExAdaptor creates a 0x swap adaptor.
func NewZeroExAdaptor(cfg AggregatorConfig) *ZeroExAdaptor {
	return &ZeroExAdaptor{
		AggregatorAdaptor: newAggregatorAdaptor(zeroExIdentifierTag, cfg),
	}
}

// SwapWithZeroEx runs the shared swap protocol with strategist-supplied 0x
// call data.
func (a *ZeroExAdaptor) SwapWithZeroEx(ctx context.Context, fund domain.FundHandle, tokenIn, tokenOut common.Address, amount *big.Int, customSlippage uint64, swapCallData []byte) error {
	return a.Swap(ctx, fund, SwapParams{
		TokenIn:        tokenIn,
		TokenOut:       tokenOut,
		Amount:         amount,
		CustomSlippage: customSlippage,
		Payload:        swapCallData,
	})
}
