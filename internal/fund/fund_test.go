package fund

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
)

var (
	fundAddr = common.BytesToAddress([]byte{0x01})
	token    = common.BytesToAddress([]byte{0xA1})
	spender  = common.BytesToAddress([]byte{0x03})
)

type resolverFunc func(ctx context.Context, id domain.PositionID) (domain.PositionRecord, error)

func (f resolverFunc) AddPositionToFund(ctx context.Context, id domain.PositionID) (domain.PositionRecord, error) {
	return f(ctx, id)
}

func trustingResolver() resolverFunc {
	return func(_ context.Context, id domain.PositionID) (domain.PositionRecord, error) {
		return domain.PositionRecord{ID: id, Trusted: true}, nil
	}
}

func TestExecute_CommitsOnSuccess(t *testing.T) {
	f := New(fundAddr, trustingResolver(), slog.Default())
	f.Mint(token, big.NewInt(100))

	err := f.Execute(context.Background(), func(h domain.FundHandle) error {
		return h.Debit(token, big.NewInt(40))
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60), f.BalanceOf(token).Int64())
}

func TestExecute_RollsBackOnError(t *testing.T) {
	f := New(fundAddr, trustingResolver(), slog.Default())
	f.Mint(token, big.NewInt(100))
	boom := errors.New("boom")

	err := f.Execute(context.Background(), func(h domain.FundHandle) error {
		if err := h.Debit(token, big.NewInt(100)); err != nil {
			return err
		}
		if err := h.Approve(token, spender, big.NewInt(5)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// Every mutation inside the failed step is discarded.
	assert.Equal(t, int64(100), f.BalanceOf(token).Int64())
	err = f.Execute(context.Background(), func(h domain.FundHandle) error {
		assert.Zero(t, h.Allowance(token, spender).Sign())
		return nil
	})
	require.NoError(t, err)
}

func TestHandle_DebitBounds(t *testing.T) {
	f := New(fundAddr, trustingResolver(), slog.Default())
	f.Mint(token, big.NewInt(10))

	err := f.Execute(context.Background(), func(h domain.FundHandle) error {
		return h.Debit(token, big.NewInt(11))
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = f.Execute(context.Background(), func(h domain.FundHandle) error {
		return h.Credit(token, big.NewInt(-1))
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandle_ApproveZeroRevokes(t *testing.T) {
	f := New(fundAddr, trustingResolver(), slog.Default())

	err := f.Execute(context.Background(), func(h domain.FundHandle) error {
		if err := h.Approve(token, spender, big.NewInt(7)); err != nil {
			return err
		}
		assert.Equal(t, int64(7), h.Allowance(token, spender).Int64())
		if err := h.Approve(token, spender, new(big.Int)); err != nil {
			return err
		}
		assert.Zero(t, h.Allowance(token, spender).Sign())
		return nil
	})
	require.NoError(t, err)
}

func TestAdoptPosition(t *testing.T) {
	f := New(fundAddr, trustingResolver(), slog.Default())
	ctx := context.Background()

	require.NoError(t, f.AdoptPosition(ctx, 7))
	assert.True(t, f.UsesPosition(7))

	err := f.AdoptPosition(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	require.NoError(t, f.DropPosition(7))
	assert.False(t, f.UsesPosition(7))
	assert.ErrorIs(t, f.DropPosition(7), domain.ErrNotFound)
}

func TestAdoptPosition_ResolutionFailureBlocks(t *testing.T) {
	f := New(fundAddr, resolverFunc(func(context.Context, domain.PositionID) (domain.PositionRecord, error) {
		return domain.PositionRecord{}, domain.ErrPositionNotTrusted
	}), slog.Default())

	err := f.AdoptPosition(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrPositionNotTrusted)
	assert.False(t, f.UsesPosition(7))
}
