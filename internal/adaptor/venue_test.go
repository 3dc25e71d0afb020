package adaptor

import (
	"context"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/fund"
)

func paperPayload(amountIn, amountOut string) []byte {
	return []byte(`{"token_in":"` + tokenT.Hex() + `","token_out":"` + tokenU.Hex() +
		`","amount_in":"` + amountIn + `","amount_out":"` + amountOut + `"}`)
}

func newPaperFund(t *testing.T) *fund.Fund {
	t.Helper()
	resolver := resolverFunc(func(_ context.Context, id domain.PositionID) (domain.PositionRecord, error) {
		return domain.PositionRecord{ID: id, Trusted: true}, nil
	})
	f := fund.New(fundAddr, resolver, slog.Default())
	f.Mint(tokenT, big.NewInt(1000))
	return f
}

func TestPaperVenue_SettlesQuotedAmounts(t *testing.T) {
	f := newPaperFund(t)
	v := NewPaperVenue("paper", spenderAddr)

	err := f.Execute(context.Background(), func(h domain.FundHandle) error {
		require.NoError(t, h.Approve(tokenT, spenderAddr, big.NewInt(100)))
		return v.Execute(context.Background(), h, paperPayload("100", "48"))
	})
	require.NoError(t, err)

	assert.Equal(t, int64(900), f.BalanceOf(tokenT).Int64())
	assert.Equal(t, int64(48), f.BalanceOf(tokenU).Int64())
}

func TestPaperVenue_RespectsAllowance(t *testing.T) {
	f := newPaperFund(t)
	v := NewPaperVenue("paper", spenderAddr)

	err := f.Execute(context.Background(), func(h domain.FundHandle) error {
		require.NoError(t, h.Approve(tokenT, spenderAddr, big.NewInt(50)))
		return v.Execute(context.Background(), h, paperPayload("100", "48"))
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int64(1000), f.BalanceOf(tokenT).Int64())
}

func TestPaperVenue_RejectsMalformedPayload(t *testing.T) {
	f := newPaperFund(t)
	v := NewPaperVenue("paper", spenderAddr)

	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{"token_in":"nope","token_out":"` + tokenU.Hex() + `","amount_in":"1","amount_out":"1"}`),
		paperPayload("0", "48"),
		paperPayload("100", "-1"),
	}
	for _, payload := range cases {
		err := f.Execute(context.Background(), func(h domain.FundHandle) error {
			require.NoError(t, h.Approve(tokenT, spenderAddr, big.NewInt(1000)))
			return v.Execute(context.Background(), h, payload)
		})
		assert.Error(t, err, "payload %s", payload)
	}
}
