package domain

import (
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// UnlimitedVolume is the cap sentinel that disables volume throttling for a
// fund entirely.
const UnlimitedVolume uint64 = math.MaxUint64

// FundVolumeWindow is the rolling-window trade-volume accumulator for a
// single fund. Volume is denominated in USD fixed-point with PriceDecimals
// decimals. When a window expires, the accumulator resets to the incoming
// trade's volume rather than zero: the trade that opens a fresh window is the
// window's first content.
type FundVolumeWindow struct {
	Fund        common.Address
	LastUpdate  time.Time
	Period      time.Duration
	VolumeInUSD uint64
	MaxVolume   uint64
}
