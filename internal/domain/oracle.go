package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PriceDecimals is the fixed-point precision of every USD price and volume
// figure in the system.
const PriceDecimals = 8

// PriceOracle returns USD prices for assets. It is an external collaborator:
// the registry and adaptors consume it as a black box and never look behind
// the returned figures.
type PriceOracle interface {
	// GetPriceInUSD returns the USD price of one whole unit of the asset as
	// fixed-point with PriceDecimals decimals. It returns ErrUnsupportedAsset
	// when the asset has no feed.
	GetPriceInUSD(ctx context.Context, asset common.Address) (*big.Int, error)

	// IsSupported reports whether the oracle can price the asset.
	IsSupported(ctx context.Context, asset common.Address) bool
}
