package registry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// CheckAndUpdateFundTradeVolume accounts an incoming trade's USD volume
// against the fund's rolling window and rejects the trade when it would push
// the window over its cap. The accumulator write and the threshold check are
// one atomic operation: a rejected trade leaves the window untouched, so the
// swap that carried it can be aborted with no externally observable effect.
//
// The fund address is an authenticated principal supplied by the caller and
// must belong to a registered, unpaused fund. A cap equal to UnlimitedVolume
// (or a fund with no window configured) disables throttling.
func (r *Registry) CheckAndUpdateFundTradeVolume(ctx context.Context, fund common.Address, volumeInUSD *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFundActiveLocked(fund); err != nil {
		return err
	}

	w, ok := r.windows[fund]
	if !ok || w.MaxVolume == domain.UnlimitedVolume {
		return nil
	}

	if volumeInUSD == nil || volumeInUSD.Sign() < 0 || !volumeInUSD.IsUint64() {
		return fmt.Errorf("registry: volume %v: %w", volumeInUSD, domain.ErrVolumeOverflow)
	}
	incoming := volumeInUSD.Uint64()

	now := r.clock.Now()
	next := *w
	if !now.Before(w.LastUpdate.Add(w.Period)) {
		// Fresh window: the incoming trade is its first content.
		next.LastUpdate = now
		next.VolumeInUSD = incoming
	} else {
		if next.VolumeInUSD > math.MaxUint64-incoming {
			return fmt.Errorf("registry: accumulated volume: %w", domain.ErrVolumeOverflow)
		}
		next.VolumeInUSD += incoming
	}

	if next.VolumeInUSD > next.MaxVolume {
		return fmt.Errorf("registry: fund %s volume %d exceeds cap %d: %w",
			fund, next.VolumeInUSD, next.MaxVolume, domain.ErrVolumeExceeded)
	}

	if r.ledger != nil {
		if err := r.ledger.SaveVolumeWindow(ctx, next); err != nil {
			return fmt.Errorf("registry: persist volume window %s: %w", fund, err)
		}
	}
	*w = next

	r.logger.DebugContext(ctx, "fund trade volume updated",
		slog.String("fund", fund.Hex()),
		slog.Uint64("volume", next.VolumeInUSD),
		slog.Uint64("cap", next.MaxVolume),
	)
	return nil
}

// SetMaxAllowedAdaptorVolumeParams configures a fund's volume window period
// and cap. Owner-gated. With resetVolume the accumulator restarts empty at
// the current time.
func (r *Registry) SetMaxAllowedAdaptorVolumeParams(ctx context.Context, principal, fund common.Address, period time.Duration, maxVolumeInUSD uint64, resetVolume bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(principal); err != nil {
		return err
	}
	if _, ok := r.funds[fund]; !ok {
		return fmt.Errorf("registry: fund %s: %w", fund, domain.ErrFundNotRegistered)
	}
	if period <= 0 {
		return fmt.Errorf("registry: period %s must be positive: %w", period, domain.ErrInvalidInput)
	}

	next := domain.FundVolumeWindow{Fund: fund}
	if w, ok := r.windows[fund]; ok {
		next = *w
	}
	next.Period = period
	next.MaxVolume = maxVolumeInUSD
	if resetVolume {
		next.VolumeInUSD = 0
		next.LastUpdate = r.clock.Now()
	}

	if r.ledger != nil {
		if err := r.ledger.SaveVolumeWindow(ctx, next); err != nil {
			return fmt.Errorf("registry: persist volume window %s: %w", fund, err)
		}
	}
	if w, ok := r.windows[fund]; ok {
		*w = next
	} else {
		r.windows[fund] = &next
	}

	r.logger.InfoContext(ctx, "fund volume params set",
		slog.String("fund", fund.Hex()),
		slog.Duration("period", period),
		slog.Uint64("max_volume", maxVolumeInUSD),
		slog.Bool("reset", resetVolume),
	)
	r.emit(ctx, domain.EventVolumeParamsSet, map[string]any{
		"fund":       fund.Hex(),
		"period":     period.String(),
		"max_volume": maxVolumeInUSD,
		"reset":      resetVolume,
	})
	return nil
}

// VolumeWindow returns a copy of the fund's current volume window.
func (r *Registry) VolumeWindow(fund common.Address) (domain.FundVolumeWindow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.windows[fund]
	if !ok {
		return domain.FundVolumeWindow{}, fmt.Errorf("registry: volume window %s: %w", fund, domain.ErrNotFound)
	}
	return *w, nil
}
