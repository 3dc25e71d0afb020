package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// Register appends addr to the address-config table and returns the slot it
// was assigned. Owner-gated. The first registered address occupies slot 0 and
// becomes the zero-id principal.
func (r *Registry) Register(ctx context.Context, principal, addr common.Address) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(principal); err != nil {
		return 0, err
	}
	if addr == (common.Address{}) {
		return 0, fmt.Errorf("registry: register empty address: %w", domain.ErrInvalidInput)
	}

	slot := r.nextSlot
	if r.ledger != nil {
		if err := r.ledger.SaveAddress(ctx, slot, addr); err != nil {
			return 0, fmt.Errorf("registry: persist address slot %d: %w", slot, err)
		}
	}
	r.addresses[slot] = addr
	r.nextSlot++

	r.logger.InfoContext(ctx, "address registered",
		slog.Uint64("slot", uint64(slot)),
		slog.String("address", addr.Hex()),
	)
	r.emit(ctx, domain.EventAddressRegistered, map[string]any{
		"slot":    slot,
		"address": addr.Hex(),
	})
	return slot, nil
}

// SetAddress replaces the address stored at an existing slot. Slot 0 may only
// be changed by the zero-id principal itself; every other slot is owner-gated
// and must already have been registered.
func (r *Registry) SetAddress(ctx context.Context, principal common.Address, slot uint32, addr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot == domain.ZeroIDSlot {
		if err := r.requireZeroID(principal); err != nil {
			return err
		}
	} else {
		if err := r.requireOwner(principal); err != nil {
			return err
		}
		if _, ok := r.addresses[slot]; !ok {
			return fmt.Errorf("registry: address slot %d: %w", slot, domain.ErrNotFound)
		}
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("registry: set empty address: %w", domain.ErrInvalidInput)
	}

	if r.ledger != nil {
		if err := r.ledger.SaveAddress(ctx, slot, addr); err != nil {
			return fmt.Errorf("registry: persist address slot %d: %w", slot, err)
		}
	}
	r.addresses[slot] = addr

	r.emit(ctx, domain.EventAddressChanged, map[string]any{
		"slot":    slot,
		"address": addr.Hex(),
	})
	return nil
}

// GetAddress returns the address stored at slot.
func (r *Registry) GetAddress(slot uint32) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addr, ok := r.addresses[slot]
	if !ok {
		return common.Address{}, fmt.Errorf("registry: address slot %d: %w", slot, domain.ErrNotFound)
	}
	return addr, nil
}
