package adaptor

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/harborfi/vaultguard/internal/domain"
)

const (
	// SlippageDenominator is the basis-point scale for slippage figures.
	SlippageDenominator = 10_000

	// DefaultSlippage is the adaptor floor on the minimum acceptable
	// value-received fraction: 9600 bps, a 4% tolerance. The effective floor
	// is always max(customSlippage, DefaultSlippage), so a caller can demand
	// more output than the default but never accept less.
	DefaultSlippage = 9_600
)

// Aggregator is the external swap venue: an opaque payload executor reached
// through a fixed router with a fixed spender for approvals. The execution is
// untrusted; callers snapshot balances before it runs and re-read them after.
type Aggregator interface {
	Name() string
	Spender() common.Address
	Execute(ctx context.Context, fund domain.FundHandle, payload []byte) error
}

// TrustChecker is the slice of the registry the swap protocol consults.
type TrustChecker interface {
	EnsureFundActive(fund common.Address) error
	EnsureAdaptorTrusted(ref common.Address) error
	PositionIDForHash(hash common.Hash) (domain.PositionID, error)
	CheckAndUpdateFundTradeVolume(ctx context.Context, fund common.Address, volumeInUSD *big.Int) error
}

// AggregatorConfig holds the immutable deploy-time configuration of an
// aggregator adaptor.
type AggregatorConfig struct {
	// Address is the adaptor's storage identity.
	Address common.Address

	// Aggregator is the venue swaps execute against.
	Aggregator Aggregator

	// Registry gates the swap on trust, adoption, and volume checks.
	Registry TrustChecker

	// Oracle prices both swap legs.
	Oracle domain.PriceOracle

	// SpotIdentifier is the identifier output-token positions are hashed
	// under. Zero means the ERC20 adaptor identifier.
	SpotIdentifier common.Hash

	// Events receives swap events; nil disables emission.
	Events domain.EventSink

	Logger *slog.Logger
}

// AggregatorAdaptor is the shared swap protocol for aggregator venues. It
// bears no position of its own: every position-bearing operation rejects via
// BaseAdaptor, and the only capability is Swap.
type AggregatorAdaptor struct {
	BaseAdaptor
	addr           common.Address
	identifier     common.Hash
	agg            Aggregator
	registry       TrustChecker
	oracle         domain.PriceOracle
	spotIdentifier common.Hash
	events         domain.EventSink
	logger         *slog.Logger
}

// newAggregatorAdaptor builds the shared core under a concrete venue tag.
func newAggregatorAdaptor(tag string, cfg AggregatorConfig) *AggregatorAdaptor {
	spot := cfg.SpotIdentifier
	if spot == (common.Hash{}) {
		spot = ERC20Identifier()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AggregatorAdaptor{
		addr:           cfg.Address,
		identifier:     domain.Identifier(tag),
		agg:            cfg.Aggregator,
		registry:       cfg.Registry,
		oracle:         cfg.Oracle,
		spotIdentifier: spot,
		events:         cfg.Events,
		logger:         logger.With(slog.String("component", "adaptor"), slog.String("venue", cfg.Aggregator.Name())),
	}
}

// Address returns the adaptor's storage identity.
func (a *AggregatorAdaptor) Address() common.Address { return a.addr }

// Identifier returns the adaptor's content tag.
func (a *AggregatorAdaptor) Identifier() common.Hash { return a.identifier }

// IsDebt reports false: the swap adaptor holds no position at all.
func (a *AggregatorAdaptor) IsDebt() bool { return false }

// SwapParams are the strategist-supplied arguments for one aggregator swap.
type SwapParams struct {
	TokenIn        common.Address
	TokenOut       common.Address
	Amount         *big.Int
	CustomSlippage uint64
	// Payload is the opaque call data forwarded to the aggregator.
	Payload []byte
}

// Swap executes one aggregator swap for the calling fund:
//
//  1. the fund must be registered and unpaused, the adaptor still trusted,
//     and the output token must hash to a position the fund has adopted;
//  2. both leg balances are snapshotted, a bounded approval is granted, and
//     the opaque payload runs against the aggregator;
//  3. realized amounts come from balance deltas (input must decrease, output
//     must increase), both legs are priced in USD, and the output value in
//     input-token terms (multiplied before divided) must clear
//     amountIn * max(customSlippage, DefaultSlippage) / 10000;
//  4. the input leg's USD volume routes through the registry throttle, whose
//     rejection fails the entire swap;
//  5. any residual approval to the spender is revoked on every path.
//
// Callers run Swap inside the fund's Execute so a failure at any step
// discards the aggregator's balance mutations along with everything else.
func (a *AggregatorAdaptor) Swap(ctx context.Context, fund domain.FundHandle, p SwapParams) error {
	if err := a.registry.EnsureFundActive(fund.Address()); err != nil {
		return fmt.Errorf("adaptor: swap: %w", err)
	}
	if err := a.registry.EnsureAdaptorTrusted(a.addr); err != nil {
		return fmt.Errorf("adaptor: swap: %w", err)
	}
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return fmt.Errorf("adaptor: swap amount %v: %w", p.Amount, domain.ErrInvalidInput)
	}
	if p.TokenIn == p.TokenOut {
		return fmt.Errorf("adaptor: swap within one token: %w", domain.ErrInvalidInput)
	}

	// The output token must correspond to a position the fund has adopted;
	// strategists cannot route funds into untracked assets.
	outHash := domain.PositionHash(a.spotIdentifier, false, ERC20AdaptorData(p.TokenOut))
	posID, err := a.registry.PositionIDForHash(outHash)
	if err != nil {
		return fmt.Errorf("adaptor: output token %s has no tracked position: %w",
			p.TokenOut, domain.ErrPositionNotTrusted)
	}
	if !fund.UsesPosition(posID) {
		return fmt.Errorf("adaptor: fund %s has not adopted position %d for token %s: %w",
			fund.Address(), posID, p.TokenOut, domain.ErrPositionNotTrusted)
	}

	inBefore := fund.BalanceOf(p.TokenIn)
	outBefore := fund.BalanceOf(p.TokenOut)

	spender := a.agg.Spender()
	if err := fund.Approve(p.TokenIn, spender, p.Amount); err != nil {
		return fmt.Errorf("adaptor: approve %s: %w", spender, err)
	}
	// Revoke whatever allowance survives the swap, on success and failure
	// alike.
	defer func() {
		if err := fund.Approve(p.TokenIn, spender, new(big.Int)); err != nil {
			a.logger.WarnContext(ctx, "approval revocation failed",
				slog.String("spender", spender.Hex()),
				slog.String("error", err.Error()),
			)
		}
	}()

	// Untrusted external call. Balances are re-read afterwards; nothing
	// below trusts state read before this line.
	if err := a.agg.Execute(ctx, fund, p.Payload); err != nil {
		return fmt.Errorf("adaptor: aggregator %s: %w", a.agg.Name(), err)
	}

	inAfter := fund.BalanceOf(p.TokenIn)
	outAfter := fund.BalanceOf(p.TokenOut)

	if inAfter.Cmp(inBefore) >= 0 {
		return fmt.Errorf("adaptor: input balance did not decrease: %w", domain.ErrInvalidInput)
	}
	if outAfter.Cmp(outBefore) <= 0 {
		return fmt.Errorf("adaptor: output balance did not increase: %w", domain.ErrInvalidInput)
	}
	amountIn := new(big.Int).Sub(inBefore, inAfter)
	amountOut := new(big.Int).Sub(outAfter, outBefore)

	priceIn, err := a.oracle.GetPriceInUSD(ctx, p.TokenIn)
	if err != nil {
		return fmt.Errorf("adaptor: price %s: %w", p.TokenIn, err)
	}
	priceOut, err := a.oracle.GetPriceInUSD(ctx, p.TokenOut)
	if err != nil {
		return fmt.Errorf("adaptor: price %s: %w", p.TokenOut, err)
	}

	// Output value expressed in input-token terms, multiplied before divided
	// to preserve precision.
	valueOut := new(big.Int).Mul(amountOut, priceOut)
	valueOut.Div(valueOut, priceIn)

	slippage := p.CustomSlippage
	if slippage < DefaultSlippage {
		slippage = DefaultSlippage
	}
	floor := new(big.Int).Mul(amountIn, new(big.Int).SetUint64(slippage))
	floor.Div(floor, big.NewInt(SlippageDenominator))
	if valueOut.Cmp(floor) < 0 {
		return fmt.Errorf("adaptor: received %s of %s in, floor %s (slippage %d bps): %w",
			valueOut, amountIn, floor, slippage, domain.ErrSlippage)
	}

	// Volume accounting is fail-closed: a throttle rejection aborts the swap
	// before the fund ledger commits.
	volumeUSD := new(big.Int).Mul(amountIn, priceIn)
	if err := a.registry.CheckAndUpdateFundTradeVolume(ctx, fund.Address(), volumeUSD); err != nil {
		return fmt.Errorf("adaptor: swap volume: %w", err)
	}

	a.logger.InfoContext(ctx, "aggregator swap executed",
		slog.String("fund", fund.Address().Hex()),
		slog.String("token_in", p.TokenIn.Hex()),
		slog.String("token_out", p.TokenOut.Hex()),
		slog.String("amount_in", amountIn.String()),
		slog.String("amount_out", amountOut.String()),
		slog.Uint64("slippage_bps", slippage),
	)
	if a.events != nil {
		a.events.Emit(ctx, domain.Event{
			ID:   uuid.NewString(),
			Kind: domain.EventAggregatorSwap,
			At:   time.Now().UTC(),
			Fields: map[string]any{
				"fund":       fund.Address().Hex(),
				"venue":      a.agg.Name(),
				"token_in":   p.TokenIn.Hex(),
				"token_out":  p.TokenOut.Hex(),
				"amount_in":  amountIn.String(),
				"amount_out": amountOut.String(),
				"volume_usd": volumeUSD.String(),
			},
		})
	}
	return nil
}

// Compile-time interface check.
var _ domain.Adaptor = (*AggregatorAdaptor)(nil)
