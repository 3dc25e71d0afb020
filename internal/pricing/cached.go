package pricing

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// CachedOracle is a read-through cache over another PriceOracle. Hits younger
// than maxAge are served from the cache; misses and stale entries fall back
// to the inner oracle and refresh the cache. Cache failures degrade to the
// inner oracle, they never fail a price lookup on their own.
type CachedOracle struct {
	inner  domain.PriceOracle
	cache  domain.PriceCache
	maxAge time.Duration
	clock  domain.Clock
	logger *slog.Logger
}

// NewCachedOracle wraps inner with the given cache. A non-positive maxAge
// disables freshness checks so any cached price is served.
func NewCachedOracle(inner domain.PriceOracle, cache domain.PriceCache, maxAge time.Duration, logger *slog.Logger) *CachedOracle {
	return &CachedOracle{
		inner:  inner,
		cache:  cache,
		maxAge: maxAge,
		clock:  domain.SystemClock{},
		logger: logger.With(slog.String("component", "pricing")),
	}
}

// GetPriceInUSD returns the asset's USD price, preferring a fresh cached one.
func (o *CachedOracle) GetPriceInUSD(ctx context.Context, asset common.Address) (*big.Int, error) {
	if price, ts, err := o.cache.GetPrice(ctx, asset); err == nil {
		if o.maxAge <= 0 || o.clock.Now().Sub(ts) <= o.maxAge {
			return price, nil
		}
	}

	price, err := o.inner.GetPriceInUSD(ctx, asset)
	if err != nil {
		return nil, err
	}

	if err := o.cache.SetPrice(ctx, asset, price, o.clock.Now()); err != nil {
		o.logger.WarnContext(ctx, "price cache write failed",
			slog.String("asset", asset.Hex()),
			slog.String("error", err.Error()),
		)
	}
	return price, nil
}

// IsSupported delegates to the inner oracle.
func (o *CachedOracle) IsSupported(ctx context.Context, asset common.Address) bool {
	return o.inner.IsSupported(ctx, asset)
}

// Compile-time interface check.
var _ domain.PriceOracle = (*CachedOracle)(nil)
