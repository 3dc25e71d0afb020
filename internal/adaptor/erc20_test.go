package adaptor

import (
	"context"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/fund"
)

func newERC20Fixture(t *testing.T) (*fund.Fund, *ERC20Adaptor) {
	t.Helper()
	resolver := resolverFunc(func(_ context.Context, id domain.PositionID) (domain.PositionRecord, error) {
		return domain.PositionRecord{ID: id, Trusted: true}, nil
	})
	f := fund.New(fundAddr, resolver, slog.Default())
	f.Mint(tokenT, big.NewInt(500))
	return f, NewERC20Adaptor(adaptorAddr)
}

func TestERC20Adaptor_SpotLifecycle(t *testing.T) {
	f, a := newERC20Fixture(t)
	ctx := context.Background()
	data := ERC20AdaptorData(tokenT)

	err := f.Execute(ctx, func(h domain.FundHandle) error {
		// Deposit validates against the idle balance; the holding itself
		// is the position.
		if err := a.Deposit(ctx, h, big.NewInt(500), data); err != nil {
			return err
		}
		bal, err := a.BalanceOf(ctx, h, data)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(500), bal.Int64())

		liquid, err := a.WithdrawableFrom(ctx, h, data)
		if err != nil {
			return err
		}
		assert.Equal(t, bal, liquid)

		return a.Withdraw(ctx, h, big.NewInt(200), common.BytesToAddress([]byte{0x99}), data)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300), f.BalanceOf(tokenT).Int64())
}

func TestERC20Adaptor_DepositBeyondBalance(t *testing.T) {
	f, a := newERC20Fixture(t)
	ctx := context.Background()

	err := f.Execute(ctx, func(h domain.FundHandle) error {
		return a.Deposit(ctx, h, big.NewInt(501), ERC20AdaptorData(tokenT))
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestERC20Adaptor_AdaptorData(t *testing.T) {
	a := NewERC20Adaptor(adaptorAddr)

	token, err := a.AssetOf(ERC20AdaptorData(tokenT))
	require.NoError(t, err)
	assert.Equal(t, tokenT, token)

	assets, err := a.AssetsUsed(ERC20AdaptorData(tokenT))
	require.NoError(t, err)
	assert.Equal(t, []common.Address{tokenT}, assets)

	_, err = a.AssetOf([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.False(t, a.IsDebt())
	assert.Equal(t, domain.Identifier("ERC20 Adaptor V1.0"), a.Identifier())
}

func TestAggregatorAdaptor_PositionOpsRejected(t *testing.T) {
	f, _, a := newSwapFixture(t, swapVenue(tokenT, tokenU, 1, 1))
	ctx := context.Background()

	err := f.Execute(ctx, func(h domain.FundHandle) error {
		return a.Deposit(ctx, h, big.NewInt(1), nil)
	})
	assert.ErrorIs(t, err, domain.ErrNotSupported)

	_, err = a.AssetOf(nil)
	assert.ErrorIs(t, err, domain.ErrNotSupported)
	_, err = a.AssetsUsed(nil)
	assert.ErrorIs(t, err, domain.ErrNotSupported)
	assert.False(t, a.IsDebt())
}
