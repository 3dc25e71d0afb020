package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// TransitionOwner starts a delayed ownership handover to newOwner. Only the
// zero-id principal may start one, only one may be pending at a time, and the
// new owner cannot be the empty identity. While the transition is pending all
// owner-gated operations are suspended.
func (r *Registry) TransitionOwner(ctx context.Context, principal, newOwner common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireZeroID(principal); err != nil {
		return err
	}
	if r.transition.Pending() {
		return fmt.Errorf("registry: transition to %s already pending: %w",
			r.transition.PendingOwner, domain.ErrTransitionPending)
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("registry: empty new owner: %w", domain.ErrInvalidInput)
	}

	next := domain.GovernanceTransition{
		PendingOwner: newOwner,
		StartedAt:    r.clock.Now(),
	}
	if r.ledger != nil {
		if err := r.ledger.SaveTransition(ctx, next); err != nil {
			return fmt.Errorf("registry: persist transition: %w", err)
		}
	}
	r.transition = next

	r.logger.InfoContext(ctx, "ownership transition started",
		slog.String("pending_owner", newOwner.Hex()),
	)
	r.emit(ctx, domain.EventTransitionStarted, map[string]any{
		"pending_owner": newOwner.Hex(),
		"started_at":    next.StartedAt,
	})
	return nil
}

// CancelTransition aborts the pending ownership handover. Only the zero-id
// principal may cancel; this is the one privileged action that remains
// available while a transition is pending.
func (r *Registry) CancelTransition(ctx context.Context, principal common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireZeroID(principal); err != nil {
		return err
	}
	if !r.transition.Pending() {
		return fmt.Errorf("registry: %w", domain.ErrNoTransition)
	}

	cancelled := r.transition.PendingOwner
	if r.ledger != nil {
		if err := r.ledger.SaveTransition(ctx, domain.GovernanceTransition{}); err != nil {
			return fmt.Errorf("registry: persist transition: %w", err)
		}
	}
	r.transition = domain.GovernanceTransition{}

	r.logger.InfoContext(ctx, "ownership transition cancelled",
		slog.String("cancelled_owner", cancelled.Hex()),
	)
	r.emit(ctx, domain.EventTransitionCancelled, map[string]any{
		"cancelled_owner": cancelled.Hex(),
	})
	return nil
}

// CompleteTransition finishes the pending handover. Only the pending owner
// may complete it, and only once the full transition period has elapsed.
func (r *Registry) CompleteTransition(ctx context.Context, principal common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.transition.Pending() {
		return fmt.Errorf("registry: %w", domain.ErrNoTransition)
	}
	if principal != r.transition.PendingOwner {
		return fmt.Errorf("registry: principal %s: %w", principal, domain.ErrNotPendingOwner)
	}
	ready := r.transition.StartedAt.Add(domain.TransitionPeriod)
	if r.clock.Now().Before(ready) {
		return fmt.Errorf("registry: transition completes at %s: %w",
			ready.Format("2006-01-02T15:04:05Z07:00"), domain.ErrTransitionNotReady)
	}

	if r.ledger != nil {
		if err := r.ledger.SaveOwner(ctx, principal); err != nil {
			return fmt.Errorf("registry: persist owner: %w", err)
		}
		if err := r.ledger.SaveTransition(ctx, domain.GovernanceTransition{}); err != nil {
			return fmt.Errorf("registry: persist transition: %w", err)
		}
	}
	previous := r.owner
	r.owner = principal
	r.transition = domain.GovernanceTransition{}

	r.logger.InfoContext(ctx, "ownership transition completed",
		slog.String("previous_owner", previous.Hex()),
		slog.String("owner", principal.Hex()),
	)
	r.emit(ctx, domain.EventTransitionCompleted, map[string]any{
		"previous_owner": previous.Hex(),
		"owner":          principal.Hex(),
	})
	return nil
}

// PendingTransition returns the in-flight ownership transition, if any.
func (r *Registry) PendingTransition() domain.GovernanceTransition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.transition
}
