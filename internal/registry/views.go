package registry

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// AdaptorEntry returns the trust entry recorded for ref.
func (r *Registry) AdaptorEntry(ref common.Address) (domain.AdaptorTrustEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.adaptors[ref]
	if !ok {
		return domain.AdaptorTrustEntry{}, fmt.Errorf("registry: adaptor %s: %w", ref, domain.ErrNotFound)
	}
	return *entry, nil
}

// Adaptors returns every adaptor trust entry, trusted or not, ordered by ref.
func (r *Registry) Adaptors() []domain.AdaptorTrustEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AdaptorTrustEntry, 0, len(r.adaptors))
	for _, entry := range r.adaptors {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Ref.Cmp(out[j].Ref) < 0
	})
	return out
}

// Position returns the record bound to id.
func (r *Registry) Position(id domain.PositionID) (domain.PositionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.positions[id]
	if !ok {
		return domain.PositionRecord{}, fmt.Errorf("registry: position %d: %w", id, domain.ErrPositionNotFound)
	}
	return *rec, nil
}

// Positions returns every position record ordered by id.
func (r *Registry) Positions() []domain.PositionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PositionRecord, 0, len(r.positions))
	for _, rec := range r.positions {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Funds returns every registered fund ordered by address.
func (r *Registry) Funds() []domain.FundRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.FundRecord, 0, len(r.funds))
	for _, rec := range r.funds {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.Cmp(out[j].Address) < 0
	})
	return out
}
