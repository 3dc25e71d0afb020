package registry

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfi/vaultguard/internal/domain"
)

func newThrottledFund(t *testing.T, r *Registry, cap uint64, period time.Duration) common.Address {
	t.Helper()
	fund := addr(0x50)
	ctx := context.Background()
	require.NoError(t, r.RegisterFund(ctx, owner, fund))
	require.NoError(t, r.SetMaxAllowedAdaptorVolumeParams(ctx, owner, fund, period, cap, true))
	return fund
}

func TestVolumeThrottle_AccumulatesWithinWindow(t *testing.T) {
	r, clock, _ := newTestRegistry(t)
	ctx := context.Background()
	fund := newThrottledFund(t, r, 1000, time.Hour)

	require.NoError(t, r.CheckAndUpdateFundTradeVolume(ctx, fund, big.NewInt(600)))

	clock.Advance(30 * time.Minute)
	require.NoError(t, r.CheckAndUpdateFundTradeVolume(ctx, fund, big.NewInt(400)))

	// 600 + 400 + 1 exceeds the cap inside the same window and must leave
	// the accumulator untouched.
	err := r.CheckAndUpdateFundTradeVolume(ctx, fund, big.NewInt(1))
	assert.ErrorIs(t, err, domain.ErrVolumeExceeded)

	w, err := r.VolumeWindow(fund)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), w.VolumeInUSD)
}

func TestVolumeThrottle_WindowExpiryBoundary(t *testing.T) {
	r, clock, _ := newTestRegistry(t)
	ctx := context.Background()
	fund := newThrottledFund(t, r, 1000, time.Hour)
	start := clock.Now()

	require.NoError(t, r.CheckAndUpdateFundTradeVolume(ctx, fund, big.NewInt(900)))

	// One second before expiry the old window still counts.
	clock.Set(start.Add(time.Hour - time.Second))
	err := r.CheckAndUpdateFundTradeVolume(ctx, fund, big.NewInt(200))
	assert.ErrorIs(t, err, domain.ErrVolumeExceeded)

	// At exactly lastUpdate + period the window resets to the incoming
	// trade alone.
	clock.Set(start.Add(time.Hour))
	require.NoError(t, r.CheckAndUpdateFundTradeVolume(ctx, fund, big.NewInt(200)))

	w, err := r.VolumeWindow(fund)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), w.VolumeInUSD)
	assert.Equal(t, start.Add(time.Hour), w.LastUpdate)
}

func TestVolumeThrottle_UnlimitedCapDisables(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	fund := newThrottledFund(t, r, domain.UnlimitedVolume, time.Hour)

	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	require.NoError(t, r.CheckAndUpdateFundTradeVolume(ctx, fund, huge))
}

func TestVolumeThrottle_NoWindowMeansNoThrottle(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	fund := addr(0x51)
	require.NoError(t, r.RegisterFund(ctx, owner, fund))

	require.NoError(t, r.CheckAndUpdateFundTradeVolume(ctx, fund, big.NewInt(1_000_000)))
}

func TestVolumeThrottle_RejectsOversizedVolume(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	fund := newThrottledFund(t, r, 1000, time.Hour)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 64)
	err := r.CheckAndUpdateFundTradeVolume(ctx, fund, tooBig)
	assert.ErrorIs(t, err, domain.ErrVolumeOverflow)

	err = r.CheckAndUpdateFundTradeVolume(ctx, fund, big.NewInt(-1))
	assert.ErrorIs(t, err, domain.ErrVolumeOverflow)
}

func TestVolumeThrottle_RequiresActiveFund(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	err := r.CheckAndUpdateFundTradeVolume(ctx, addr(0x52), big.NewInt(1))
	assert.ErrorIs(t, err, domain.ErrFundNotRegistered)

	fund := newThrottledFund(t, r, 1000, time.Hour)
	require.NoError(t, r.BatchPause(ctx, owner, []common.Address{fund}))
	err = r.CheckAndUpdateFundTradeVolume(ctx, fund, big.NewInt(1))
	assert.ErrorIs(t, err, domain.ErrFundPaused)
}

func TestSetVolumeParams(t *testing.T) {
	r, clock, _ := newTestRegistry(t)
	ctx := context.Background()
	fund := addr(0x53)
	require.NoError(t, r.RegisterFund(ctx, owner, fund))

	// Unregistered fund and non-positive period are rejected.
	err := r.SetMaxAllowedAdaptorVolumeParams(ctx, owner, addr(0x54), time.Hour, 10, true)
	assert.ErrorIs(t, err, domain.ErrFundNotRegistered)
	err = r.SetMaxAllowedAdaptorVolumeParams(ctx, owner, fund, 0, 10, true)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	err = r.SetMaxAllowedAdaptorVolumeParams(ctx, addr(0x42), fund, time.Hour, 10, true)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, r.SetMaxAllowedAdaptorVolumeParams(ctx, owner, fund, time.Hour, 500, true))
	require.NoError(t, r.CheckAndUpdateFundTradeVolume(ctx, fund, big.NewInt(300)))

	// Re-tuning without reset keeps the accumulator.
	require.NoError(t, r.SetMaxAllowedAdaptorVolumeParams(ctx, owner, fund, 2*time.Hour, 400, false))
	w, err := r.VolumeWindow(fund)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), w.VolumeInUSD)
	assert.Equal(t, 2*time.Hour, w.Period)

	// Reset zeroes the accumulator and restamps the window.
	clock.Advance(10 * time.Minute)
	require.NoError(t, r.SetMaxAllowedAdaptorVolumeParams(ctx, owner, fund, 2*time.Hour, 400, true))
	w, err = r.VolumeWindow(fund)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), w.VolumeInUSD)
	assert.Equal(t, clock.Now(), w.LastUpdate)
}
