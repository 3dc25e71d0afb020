package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// RegisterFund adds a fund identity to the registered set. Owner-gated. Only
// registered funds may exercise the mutating fund surface (volume accounting,
// adaptor swaps).
func (r *Registry) RegisterFund(ctx context.Context, principal, fund common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(principal); err != nil {
		return err
	}
	if fund == (common.Address{}) {
		return fmt.Errorf("registry: register empty fund: %w", domain.ErrInvalidInput)
	}
	if _, ok := r.funds[fund]; ok {
		return fmt.Errorf("registry: fund %s: %w", fund, domain.ErrAlreadyExists)
	}

	rec := domain.FundRecord{
		Address:      fund,
		RegisteredAt: r.clock.Now(),
	}
	if r.ledger != nil {
		if err := r.ledger.SaveFund(ctx, rec); err != nil {
			return fmt.Errorf("registry: persist fund %s: %w", fund, err)
		}
	}
	r.funds[fund] = &rec

	r.logger.InfoContext(ctx, "fund registered", slog.String("fund", fund.Hex()))
	r.emit(ctx, domain.EventFundRegistered, map[string]any{"fund": fund.Hex()})
	return nil
}

// BatchPause pauses every listed fund. Owner-gated. Funds not registered or
// already paused fail the whole batch before any state changes.
func (r *Registry) BatchPause(ctx context.Context, principal common.Address, funds []common.Address) error {
	return r.setPaused(ctx, principal, funds, true)
}

// BatchUnpause unpauses every listed fund. Owner-gated.
func (r *Registry) BatchUnpause(ctx context.Context, principal common.Address, funds []common.Address) error {
	return r.setPaused(ctx, principal, funds, false)
}

func (r *Registry) setPaused(ctx context.Context, principal common.Address, funds []common.Address, paused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(principal); err != nil {
		return err
	}

	// Validate the whole batch before mutating anything.
	recs := make([]*domain.FundRecord, 0, len(funds))
	for _, fund := range funds {
		rec, ok := r.funds[fund]
		if !ok {
			return fmt.Errorf("registry: fund %s: %w", fund, domain.ErrFundNotRegistered)
		}
		if rec.Paused == paused {
			if paused {
				return fmt.Errorf("registry: fund %s: %w", fund, domain.ErrAlreadyExists)
			}
			return fmt.Errorf("registry: fund %s is not paused: %w", fund, domain.ErrInvalidInput)
		}
		recs = append(recs, rec)
	}

	if r.ledger != nil {
		for _, rec := range recs {
			next := *rec
			next.Paused = paused
			if err := r.ledger.SaveFund(ctx, next); err != nil {
				return fmt.Errorf("registry: persist fund %s: %w", rec.Address, err)
			}
		}
	}
	kind := domain.EventFundPaused
	if !paused {
		kind = domain.EventFundUnpaused
	}
	for _, rec := range recs {
		rec.Paused = paused
		r.emit(ctx, kind, map[string]any{"fund": rec.Address.Hex()})
	}

	r.logger.InfoContext(ctx, "fund pause state changed",
		slog.Int("funds", len(recs)),
		slog.Bool("paused", paused),
	)
	return nil
}

// IsPaused reports whether a fund is paused. Unregistered funds report false.
func (r *Registry) IsPaused(fund common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.funds[fund]
	return ok && rec.Paused
}

// EnsureFundActive fails unless fund is registered and not paused. It guards
// the mutating fund surface.
func (r *Registry) EnsureFundActive(fund common.Address) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ensureFundActiveLocked(fund)
}

func (r *Registry) ensureFundActiveLocked(fund common.Address) error {
	rec, ok := r.funds[fund]
	if !ok {
		return fmt.Errorf("registry: fund %s: %w", fund, domain.ErrFundNotRegistered)
	}
	if rec.Paused {
		return fmt.Errorf("registry: fund %s: %w", fund, domain.ErrFundPaused)
	}
	return nil
}
