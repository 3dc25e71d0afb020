package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PriceCache provides fast access to the latest USD prices keyed by asset
// address. Prices use PriceDecimals fixed-point.
type PriceCache interface {
	SetPrice(ctx context.Context, asset common.Address, price *big.Int, ts time.Time) error
	GetPrice(ctx context.Context, asset common.Address) (*big.Int, time.Time, error)
}

// LockManager provides distributed locking, used to serialize rebalance
// execution per fund across processes.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// EventBus provides pub/sub fanout and durable streams for registry events.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// RateLimiter throttles requests per key, used by the HTTP surface.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
