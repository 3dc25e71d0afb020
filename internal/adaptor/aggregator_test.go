package adaptor

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/fund"
	"github.com/harborfi/vaultguard/internal/pricing"
)

var (
	fundAddr    = common.BytesToAddress([]byte{0x01})
	adaptorAddr = common.BytesToAddress([]byte{0x02})
	spenderAddr = common.BytesToAddress([]byte{0x03})
	tokenT      = common.BytesToAddress([]byte{0xA1})
	tokenU      = common.BytesToAddress([]byte{0xA2})
)

func price(n int64) *big.Int {
	p := big.NewInt(n)
	return p.Mul(p, big.NewInt(100_000_000))
}

// fakeRegistry satisfies TrustChecker with scripted outcomes and records the
// volume routed through the throttle.
type fakeRegistry struct {
	activeErr error
	trustErr  error
	volumeErr error
	positions map[common.Hash]domain.PositionID
	volumes   []*big.Int
}

func (f *fakeRegistry) EnsureFundActive(common.Address) error     { return f.activeErr }
func (f *fakeRegistry) EnsureAdaptorTrusted(common.Address) error { return f.trustErr }

func (f *fakeRegistry) PositionIDForHash(hash common.Hash) (domain.PositionID, error) {
	id, ok := f.positions[hash]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func (f *fakeRegistry) CheckAndUpdateFundTradeVolume(_ context.Context, _ common.Address, v *big.Int) error {
	if f.volumeErr != nil {
		return f.volumeErr
	}
	f.volumes = append(f.volumes, new(big.Int).Set(v))
	return nil
}

// fakeVenue executes a scripted balance mutation against the fund handle.
type fakeVenue struct {
	exec func(h domain.FundHandle) error
}

func (v *fakeVenue) Name() string            { return "fake" }
func (v *fakeVenue) Spender() common.Address { return spenderAddr }
func (v *fakeVenue) Execute(_ context.Context, h domain.FundHandle, _ []byte) error {
	return v.exec(h)
}

// swapVenue moves amountIn of tokenIn out and amountOut of tokenOut in.
func swapVenue(tokenIn, tokenOut common.Address, amountIn, amountOut int64) *fakeVenue {
	return &fakeVenue{exec: func(h domain.FundHandle) error {
		if err := h.Debit(tokenIn, big.NewInt(amountIn)); err != nil {
			return err
		}
		return h.Credit(tokenOut, big.NewInt(amountOut))
	}}
}

type resolverFunc func(ctx context.Context, id domain.PositionID) (domain.PositionRecord, error)

func (f resolverFunc) AddPositionToFund(ctx context.Context, id domain.PositionID) (domain.PositionRecord, error) {
	return f(ctx, id)
}

// newSwapFixture builds a fund holding 1000 T that has adopted the spot
// position for tokenU, priced T=$2 and U=$4.
func newSwapFixture(t *testing.T, venue Aggregator) (*fund.Fund, *fakeRegistry, *AggregatorAdaptor) {
	t.Helper()

	outHash := domain.PositionHash(ERC20Identifier(), false, ERC20AdaptorData(tokenU))
	reg := &fakeRegistry{positions: map[common.Hash]domain.PositionID{outHash: 7}}

	resolver := resolverFunc(func(_ context.Context, id domain.PositionID) (domain.PositionRecord, error) {
		return domain.PositionRecord{ID: id, Trusted: true}, nil
	})
	f := fund.New(fundAddr, resolver, slog.Default())
	f.Mint(tokenT, big.NewInt(1000))
	require.NoError(t, f.AdoptPosition(context.Background(), 7))

	oracle := pricing.NewStaticOracle(map[common.Address]*big.Int{
		tokenT: price(2),
		tokenU: price(4),
	})
	a := newAggregatorAdaptor("Fake Aggregator V1.0", AggregatorConfig{
		Address:    adaptorAddr,
		Aggregator: venue,
		Registry:   reg,
		Oracle:     oracle,
	})
	return f, reg, a
}

func runSwap(f *fund.Fund, a *AggregatorAdaptor, p SwapParams) error {
	return f.Execute(context.Background(), func(h domain.FundHandle) error {
		return a.Swap(context.Background(), h, p)
	})
}

func TestSwap_CustomSlippageTightensFloor(t *testing.T) {
	// Fair output for 1000 T at T=$2, U=$4 is 500 U. With a custom floor of
	// 9700 bps, 96.5% realized value fails and 97.5% clears.
	params := SwapParams{TokenIn: tokenT, TokenOut: tokenU, Amount: big.NewInt(1000), CustomSlippage: 9700}

	f, _, a := newSwapFixture(t, swapVenue(tokenT, tokenU, 1000, 482)) // 482*4/2 = 964 < 970
	err := runSwap(f, a, params)
	assert.ErrorIs(t, err, domain.ErrSlippage)
	// The failed step rolled back.
	assert.Equal(t, int64(1000), f.BalanceOf(tokenT).Int64())
	assert.Equal(t, int64(0), f.BalanceOf(tokenU).Int64())

	f, reg, a := newSwapFixture(t, swapVenue(tokenT, tokenU, 1000, 488)) // 976 >= 970
	require.NoError(t, runSwap(f, a, params))
	assert.Equal(t, int64(0), f.BalanceOf(tokenT).Int64())
	assert.Equal(t, int64(488), f.BalanceOf(tokenU).Int64())

	// Volume accounted is amountIn priced in USD.
	require.Len(t, reg.volumes, 1)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(1000), price(2)), reg.volumes[0])
}

func TestSwap_DefaultSlippageIsAFloor(t *testing.T) {
	// A looser custom figure cannot weaken the 9600 bps default.
	params := SwapParams{TokenIn: tokenT, TokenOut: tokenU, Amount: big.NewInt(1000), CustomSlippage: 9000}

	f, _, a := newSwapFixture(t, swapVenue(tokenT, tokenU, 1000, 479)) // 958 < 960
	err := runSwap(f, a, params)
	assert.ErrorIs(t, err, domain.ErrSlippage)

	f, _, a = newSwapFixture(t, swapVenue(tokenT, tokenU, 1000, 480)) // 960 >= 960
	require.NoError(t, runSwap(f, a, params))
}

func TestSwap_OutputTokenMustBeAdoptedPosition(t *testing.T) {
	f, reg, a := newSwapFixture(t, swapVenue(tokenT, tokenU, 1000, 500))

	// Unknown output token: no tracked position hashes to it.
	err := runSwap(f, a, SwapParams{TokenIn: tokenT, TokenOut: common.BytesToAddress([]byte{0xA3}), Amount: big.NewInt(1000)})
	assert.ErrorIs(t, err, domain.ErrPositionNotTrusted)

	// Tracked position, but this fund never adopted it.
	outHash := domain.PositionHash(ERC20Identifier(), false, ERC20AdaptorData(tokenT))
	reg.positions[outHash] = 8
	err = runSwap(f, a, SwapParams{TokenIn: tokenU, TokenOut: tokenT, Amount: big.NewInt(1)})
	assert.ErrorIs(t, err, domain.ErrPositionNotTrusted)
}

func TestSwap_GateChecks(t *testing.T) {
	f, reg, a := newSwapFixture(t, swapVenue(tokenT, tokenU, 1000, 500))
	params := SwapParams{TokenIn: tokenT, TokenOut: tokenU, Amount: big.NewInt(1000)}

	reg.activeErr = domain.ErrFundPaused
	assert.ErrorIs(t, runSwap(f, a, params), domain.ErrFundPaused)
	reg.activeErr = nil

	reg.trustErr = domain.ErrAdaptorNotTrusted
	assert.ErrorIs(t, runSwap(f, a, params), domain.ErrAdaptorNotTrusted)
	reg.trustErr = nil

	err := runSwap(f, a, SwapParams{TokenIn: tokenT, TokenOut: tokenU, Amount: big.NewInt(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	err = runSwap(f, a, SwapParams{TokenIn: tokenT, TokenOut: tokenT, Amount: big.NewInt(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSwap_VenueFailureRollsBack(t *testing.T) {
	venueErr := errors.New("router reverted")
	f, reg, a := newSwapFixture(t, &fakeVenue{exec: func(h domain.FundHandle) error {
		if err := h.Debit(tokenT, big.NewInt(1000)); err != nil {
			return err
		}
		return venueErr
	}})

	err := runSwap(f, a, SwapParams{TokenIn: tokenT, TokenOut: tokenU, Amount: big.NewInt(1000)})
	assert.ErrorIs(t, err, venueErr)
	assert.Equal(t, int64(1000), f.BalanceOf(tokenT).Int64())
	assert.Empty(t, reg.volumes)
}

func TestSwap_BalanceDeltaDirections(t *testing.T) {
	params := SwapParams{TokenIn: tokenT, TokenOut: tokenU, Amount: big.NewInt(1000)}

	// Venue that moves nothing: input did not decrease.
	f, _, a := newSwapFixture(t, &fakeVenue{exec: func(domain.FundHandle) error { return nil }})
	err := runSwap(f, a, params)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Venue that takes the input but delivers nothing.
	f, _, a = newSwapFixture(t, &fakeVenue{exec: func(h domain.FundHandle) error {
		return h.Debit(tokenT, big.NewInt(1000))
	}})
	err = runSwap(f, a, params)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int64(1000), f.BalanceOf(tokenT).Int64())
}

func TestSwap_ThrottleRejectionAbortsSwap(t *testing.T) {
	f, reg, a := newSwapFixture(t, swapVenue(tokenT, tokenU, 1000, 500))
	reg.volumeErr = domain.ErrVolumeExceeded

	err := runSwap(f, a, SwapParams{TokenIn: tokenT, TokenOut: tokenU, Amount: big.NewInt(1000)})
	assert.ErrorIs(t, err, domain.ErrVolumeExceeded)

	// The venue's mutations never reached committed state.
	assert.Equal(t, int64(1000), f.BalanceOf(tokenT).Int64())
	assert.Equal(t, int64(0), f.BalanceOf(tokenU).Int64())
}

func TestSwap_ApprovalRevokedOnEveryPath(t *testing.T) {
	// Venue that leaves part of the allowance unconsumed.
	f, _, a := newSwapFixture(t, swapVenue(tokenT, tokenU, 1000, 500))

	err := f.Execute(context.Background(), func(h domain.FundHandle) error {
		if err := a.Swap(context.Background(), h, SwapParams{
			TokenIn: tokenT, TokenOut: tokenU, Amount: big.NewInt(1000),
		}); err != nil {
			return err
		}
		assert.Zero(t, h.Allowance(tokenT, spenderAddr).Sign())
		return nil
	})
	require.NoError(t, err)

	// On the slippage-failure path the step rolls back wholesale, so no
	// committed allowance can survive either.
	f, _, a = newSwapFixture(t, swapVenue(tokenT, tokenU, 1000, 100))
	err = runSwap(f, a, SwapParams{TokenIn: tokenT, TokenOut: tokenU, Amount: big.NewInt(1000)})
	assert.ErrorIs(t, err, domain.ErrSlippage)
}

func TestSwap_UnpricedLegRejected(t *testing.T) {
	tokenX := common.BytesToAddress([]byte{0xB1})
	f, reg, a := newSwapFixture(t, swapVenue(tokenX, tokenU, 1000, 500))
	f.Mint(tokenX, big.NewInt(1000))
	outHash := domain.PositionHash(ERC20Identifier(), false, ERC20AdaptorData(tokenU))
	reg.positions[outHash] = 7

	err := runSwap(f, a, SwapParams{TokenIn: tokenX, TokenOut: tokenU, Amount: big.NewInt(1000)})
	assert.ErrorIs(t, err, domain.ErrUnsupportedAsset)
}
