package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// TrustPosition binds a position id to a verified (adaptor, debt-flag,
// adaptor-data) tuple and marks it trusted. Owner-gated. The id must be
// unbound and non-zero, the adaptor must be trusted and have a live unit
// attached, the derived position hash must be globally unique, and every
// asset the position uses must be priceable by the oracle.
func (r *Registry) TrustPosition(ctx context.Context, principal common.Address, id domain.PositionID, adaptorRef common.Address, adaptorData, configurationData []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(principal); err != nil {
		return err
	}
	if id == 0 {
		return fmt.Errorf("registry: position id 0 is reserved: %w", domain.ErrInvalidInput)
	}
	if _, ok := r.positions[id]; ok {
		return fmt.Errorf("registry: position %d: %w", id, domain.ErrPositionBound)
	}

	entry, ok := r.adaptors[adaptorRef]
	if !ok || !entry.Trusted {
		return fmt.Errorf("registry: adaptor %s: %w", adaptorRef, domain.ErrAdaptorNotTrusted)
	}
	unit, ok := r.units[adaptorRef]
	if !ok {
		return fmt.Errorf("registry: adaptor %s has no live unit: %w", adaptorRef, domain.ErrNotFound)
	}

	hash := domain.PositionHash(entry.Identifier, entry.IsDebt, adaptorData)
	if existing, ok := r.hashToID[hash]; ok {
		return fmt.Errorf("registry: hash %s already bound to position %d: %w",
			hash, existing, domain.ErrHashCollision)
	}

	assets, err := unit.AssetsUsed(adaptorData)
	if err != nil {
		return fmt.Errorf("registry: adaptor %s assets used: %w", adaptorRef, err)
	}
	for _, asset := range assets {
		if !r.oracle.IsSupported(ctx, asset) {
			return fmt.Errorf("registry: asset %s: %w", asset, domain.ErrUnsupportedAsset)
		}
	}

	rec := domain.PositionRecord{
		ID:                id,
		AdaptorRef:        adaptorRef,
		IsDebt:            entry.IsDebt,
		AdaptorData:       adaptorData,
		ConfigurationData: configurationData,
		Hash:              hash,
		Trusted:           true,
		TrustedAt:         r.clock.Now(),
	}
	if r.ledger != nil {
		if err := r.ledger.SavePosition(ctx, rec); err != nil {
			return fmt.Errorf("registry: persist position %d: %w", id, err)
		}
	}
	r.positions[id] = &rec
	r.hashToID[hash] = id

	r.logger.InfoContext(ctx, "position trusted",
		slog.Uint64("position_id", uint64(id)),
		slog.String("adaptor", adaptorRef.Hex()),
		slog.String("hash", hash.Hex()),
	)
	r.emit(ctx, domain.EventPositionTrusted, map[string]any{
		"position_id": id,
		"adaptor":     adaptorRef.Hex(),
		"hash":        hash.Hex(),
		"is_debt":     rec.IsDebt,
	})
	return nil
}

// DistrustPosition flips a position's trust flag off. Owner-gated. The record
// and its hash index survive for auditability: funds already holding the
// position are unaffected, only new adoption is blocked.
func (r *Registry) DistrustPosition(ctx context.Context, principal common.Address, id domain.PositionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(principal); err != nil {
		return err
	}

	rec, ok := r.positions[id]
	if !ok || !rec.Trusted {
		return fmt.Errorf("registry: position %d: %w", id, domain.ErrPositionNotTrusted)
	}

	next := *rec
	next.Trusted = false
	if r.ledger != nil {
		if err := r.ledger.SavePosition(ctx, next); err != nil {
			return fmt.Errorf("registry: persist position %d: %w", id, err)
		}
	}
	*rec = next

	r.logger.InfoContext(ctx, "position distrusted", slog.Uint64("position_id", uint64(id)))
	r.emit(ctx, domain.EventPositionDistrusted, map[string]any{"position_id": id})
	return nil
}

// AddPositionToFund resolves a position id for adoption by a fund. An id of
// zero or an unbound id resolves to "does not exist"; a bound but distrusted
// id fails trust verification. On success the returned record carries the
// adaptor reference, debt flag, and adaptor data the fund should record.
func (r *Registry) AddPositionToFund(ctx context.Context, id domain.PositionID) (domain.PositionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.positions[id]
	if id == 0 || !ok {
		return domain.PositionRecord{}, fmt.Errorf("registry: position %d: %w", id, domain.ErrPositionNotFound)
	}
	if !rec.Trusted {
		return domain.PositionRecord{}, fmt.Errorf("registry: position %d: %w", id, domain.ErrPositionNotTrusted)
	}
	return *rec, nil
}

// EnsurePositionTrusted fails unless id is bound and currently trusted.
func (r *Registry) EnsurePositionTrusted(id domain.PositionID) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.positions[id]
	if id == 0 || !ok {
		return fmt.Errorf("registry: position %d: %w", id, domain.ErrPositionNotFound)
	}
	if !rec.Trusted {
		return fmt.Errorf("registry: position %d: %w", id, domain.ErrPositionNotTrusted)
	}
	return nil
}

// PositionIDForHash resolves a position content hash to its id.
func (r *Registry) PositionIDForHash(hash common.Hash) (domain.PositionID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.hashToID[hash]
	if !ok {
		return 0, fmt.Errorf("registry: hash %s: %w", hash, domain.ErrNotFound)
	}
	return id, nil
}
