package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// TrustAdaptor marks an adaptor unit as globally trusted. Owner-gated. The
// unit's self-reported identifier must never have been claimed before:
// identifier claims are permanent and survive distrust, so a unit whose
// identifier was ever claimed (including by itself) cannot be trusted again.
func (r *Registry) TrustAdaptor(ctx context.Context, principal common.Address, unit domain.Adaptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(principal); err != nil {
		return err
	}

	ref := unit.Address()
	if entry, ok := r.adaptors[ref]; ok && entry.Trusted {
		return fmt.Errorf("registry: adaptor %s: %w", ref, domain.ErrAdaptorTrusted)
	}
	identifier := unit.Identifier()
	if claimer, ok := r.claims[identifier]; ok {
		return fmt.Errorf("registry: identifier %s claimed by %s: %w",
			identifier, claimer, domain.ErrIdentifierClaimed)
	}

	entry := domain.AdaptorTrustEntry{
		Ref:        ref,
		Identifier: identifier,
		IsDebt:     unit.IsDebt(),
		Trusted:    true,
		TrustedAt:  r.clock.Now(),
	}
	if r.ledger != nil {
		if err := r.ledger.SaveAdaptor(ctx, entry); err != nil {
			return fmt.Errorf("registry: persist adaptor %s: %w", ref, err)
		}
	}
	r.adaptors[ref] = &entry
	r.claims[identifier] = ref
	r.units[ref] = unit

	r.logger.InfoContext(ctx, "adaptor trusted",
		slog.String("adaptor", ref.Hex()),
		slog.String("identifier", identifier.Hex()),
	)
	r.emit(ctx, domain.EventAdaptorTrusted, map[string]any{
		"adaptor":    ref.Hex(),
		"identifier": identifier.Hex(),
		"is_debt":    entry.IsDebt,
	})
	return nil
}

// DistrustAdaptor clears an adaptor's trust flag. Owner-gated. The identifier
// claim and the trust entry itself are retained.
func (r *Registry) DistrustAdaptor(ctx context.Context, principal, ref common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(principal); err != nil {
		return err
	}

	entry, ok := r.adaptors[ref]
	if !ok || !entry.Trusted {
		return fmt.Errorf("registry: adaptor %s: %w", ref, domain.ErrAdaptorNotTrusted)
	}

	next := *entry
	next.Trusted = false
	if r.ledger != nil {
		if err := r.ledger.SaveAdaptor(ctx, next); err != nil {
			return fmt.Errorf("registry: persist adaptor %s: %w", ref, err)
		}
	}
	*entry = next

	r.logger.InfoContext(ctx, "adaptor distrusted", slog.String("adaptor", ref.Hex()))
	r.emit(ctx, domain.EventAdaptorDistrusted, map[string]any{"adaptor": ref.Hex()})
	return nil
}

// EnsureAdaptorTrusted fails unless ref is a currently trusted adaptor. It is
// the synchronous trust check collaborators run before delegating execution.
func (r *Registry) EnsureAdaptorTrusted(ref common.Address) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.adaptors[ref]
	if !ok || !entry.Trusted {
		return fmt.Errorf("registry: adaptor %s: %w", ref, domain.ErrAdaptorNotTrusted)
	}
	return nil
}

// AttachUnit re-associates a live adaptor unit with its persisted trust entry
// after a restart. The unit's address and identifier must match the entry.
func (r *Registry) AttachUnit(unit domain.Adaptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref := unit.Address()
	entry, ok := r.adaptors[ref]
	if !ok {
		return fmt.Errorf("registry: adaptor %s: %w", ref, domain.ErrNotFound)
	}
	if entry.Identifier != unit.Identifier() {
		return fmt.Errorf("registry: adaptor %s identifier mismatch: %w", ref, domain.ErrInvalidInput)
	}
	r.units[ref] = unit
	return nil
}
