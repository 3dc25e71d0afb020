package pricing

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfi/vaultguard/internal/domain"
)

var asset = common.BytesToAddress([]byte{0xA1})

// memCache is an in-process PriceCache with injectable failures.
type memCache struct {
	prices map[common.Address]*big.Int
	stamps map[common.Address]time.Time
	getErr error
	setErr error
	sets   int
}

func newMemCache() *memCache {
	return &memCache{
		prices: make(map[common.Address]*big.Int),
		stamps: make(map[common.Address]time.Time),
	}
}

func (c *memCache) GetPrice(_ context.Context, a common.Address) (*big.Int, time.Time, error) {
	if c.getErr != nil {
		return nil, time.Time{}, c.getErr
	}
	price, ok := c.prices[a]
	if !ok {
		return nil, time.Time{}, domain.ErrNotFound
	}
	return price, c.stamps[a], nil
}

func (c *memCache) SetPrice(_ context.Context, a common.Address, price *big.Int, ts time.Time) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.prices[a] = new(big.Int).Set(price)
	c.stamps[a] = ts
	c.sets++
	return nil
}

func TestStaticOracle(t *testing.T) {
	o := NewStaticOracle(map[common.Address]*big.Int{asset: big.NewInt(200)})
	ctx := context.Background()

	price, err := o.GetPriceInUSD(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, int64(200), price.Int64())
	assert.True(t, o.IsSupported(ctx, asset))

	other := common.BytesToAddress([]byte{0xA2})
	_, err = o.GetPriceInUSD(ctx, other)
	assert.ErrorIs(t, err, domain.ErrUnsupportedAsset)
	assert.False(t, o.IsSupported(ctx, other))

	o.SetPrice(other, big.NewInt(5))
	price, err = o.GetPriceInUSD(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(5), price.Int64())
}

func TestCachedOracle_ReadThrough(t *testing.T) {
	inner := NewStaticOracle(map[common.Address]*big.Int{asset: big.NewInt(200)})
	cache := newMemCache()
	o := NewCachedOracle(inner, cache, time.Minute, slog.Default())
	ctx := context.Background()

	// First lookup misses and populates the cache.
	price, err := o.GetPriceInUSD(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, int64(200), price.Int64())
	assert.Equal(t, 1, cache.sets)

	// A fresh cached price masks inner updates.
	inner.SetPrice(asset, big.NewInt(999))
	price, err = o.GetPriceInUSD(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, int64(200), price.Int64())
	assert.Equal(t, 1, cache.sets)
}

func TestCachedOracle_StaleEntryRefreshes(t *testing.T) {
	inner := NewStaticOracle(map[common.Address]*big.Int{asset: big.NewInt(200)})
	cache := newMemCache()
	o := NewCachedOracle(inner, cache, time.Minute, slog.Default())
	ctx := context.Background()

	cache.prices[asset] = big.NewInt(111)
	cache.stamps[asset] = time.Now().Add(-2 * time.Minute)

	price, err := o.GetPriceInUSD(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, int64(200), price.Int64())
	assert.Equal(t, 1, cache.sets)
}

func TestCachedOracle_CacheFailuresDegrade(t *testing.T) {
	inner := NewStaticOracle(map[common.Address]*big.Int{asset: big.NewInt(200)})
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	o := NewCachedOracle(inner, cache, time.Minute, slog.Default())

	price, err := o.GetPriceInUSD(context.Background(), asset)
	require.NoError(t, err)
	assert.Equal(t, int64(200), price.Int64())
}
