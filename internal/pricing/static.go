// Package pricing provides PriceOracle implementations: a static in-process
// oracle configured with fixed feeds, and a redis-backed read-through cache
// that can front any oracle.
package pricing

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// StaticOracle serves USD prices from an in-memory feed table. It backs
// deployments where prices arrive through configuration or an external
// updater, and doubles as the test oracle.
type StaticOracle struct {
	mu    sync.RWMutex
	feeds map[common.Address]*big.Int
}

// NewStaticOracle creates a StaticOracle seeded with the given feeds. Prices
// use domain.PriceDecimals fixed-point.
func NewStaticOracle(feeds map[common.Address]*big.Int) *StaticOracle {
	o := &StaticOracle{feeds: make(map[common.Address]*big.Int, len(feeds))}
	for asset, price := range feeds {
		o.feeds[asset] = new(big.Int).Set(price)
	}
	return o
}

// SetPrice installs or replaces the feed for an asset.
func (o *StaticOracle) SetPrice(asset common.Address, price *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.feeds[asset] = new(big.Int).Set(price)
}

// GetPriceInUSD returns the configured USD price for the asset.
func (o *StaticOracle) GetPriceInUSD(_ context.Context, asset common.Address) (*big.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	price, ok := o.feeds[asset]
	if !ok {
		return nil, fmt.Errorf("pricing: asset %s: %w", asset, domain.ErrUnsupportedAsset)
	}
	return new(big.Int).Set(price), nil
}

// IsSupported reports whether the asset has a configured feed.
func (o *StaticOracle) IsSupported(_ context.Context, asset common.Address) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.feeds[asset]
	return ok
}

// Compile-time interface check.
var _ domain.PriceOracle = (*StaticOracle)(nil)
