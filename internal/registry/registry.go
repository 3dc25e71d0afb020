// Package registry implements the trust and risk-control core: the position
// registry, the adaptor trust ledger, the address-config table, per-fund
// volume throttling, and the delayed governance ownership transition.
//
// The registry is the authoritative in-memory state machine for a process.
// Every public entry point validates all of its preconditions before touching
// state and commits either completely or not at all; a configured
// RegistryLedger mirrors committed state for restart recovery. Callers are
// identified by an explicit principal address threaded through every call,
// never by ambient identity.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/harborfi/vaultguard/internal/domain"
)

// Config holds the registry's dependencies. Owner and Oracle are required;
// Ledger, Events, Clock, and Logger fall back to no-op/system defaults.
type Config struct {
	Owner  common.Address
	Oracle domain.PriceOracle
	Ledger domain.RegistryLedger
	Events domain.EventSink
	Clock  domain.Clock
	Logger *slog.Logger
}

// Registry owns all trust, position, volume, and governance state.
type Registry struct {
	mu sync.RWMutex

	owner      common.Address
	transition domain.GovernanceTransition

	addresses map[uint32]common.Address
	nextSlot  uint32

	positions map[domain.PositionID]*domain.PositionRecord
	hashToID  map[common.Hash]domain.PositionID

	adaptors map[common.Address]*domain.AdaptorTrustEntry
	claims   map[common.Hash]common.Address
	units    map[common.Address]domain.Adaptor

	funds   map[common.Address]*domain.FundRecord
	windows map[common.Address]*domain.FundVolumeWindow

	oracle domain.PriceOracle
	ledger domain.RegistryLedger
	events domain.EventSink
	clock  domain.Clock
	logger *slog.Logger
}

// New creates a Registry with the given initial owner.
func New(cfg Config) *Registry {
	r := &Registry{
		owner:     cfg.Owner,
		addresses: make(map[uint32]common.Address),
		positions: make(map[domain.PositionID]*domain.PositionRecord),
		hashToID:  make(map[common.Hash]domain.PositionID),
		adaptors:  make(map[common.Address]*domain.AdaptorTrustEntry),
		claims:    make(map[common.Hash]common.Address),
		units:     make(map[common.Address]domain.Adaptor),
		funds:     make(map[common.Address]*domain.FundRecord),
		windows:   make(map[common.Address]*domain.FundVolumeWindow),
		oracle:    cfg.Oracle,
		ledger:    cfg.Ledger,
		events:    cfg.Events,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
	if r.clock == nil {
		r.clock = domain.SystemClock{}
	}
	if r.events == nil {
		r.events = noopSink{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With(slog.String("component", "registry"))
	return r
}

// Load creates a Registry and rehydrates its state from cfg.Ledger. The
// persisted owner takes precedence over cfg.Owner when one exists. Live
// adaptor units are not persisted; callers re-attach them with AttachUnit
// after loading.
func Load(ctx context.Context, cfg Config) (*Registry, error) {
	r := New(cfg)
	if r.ledger == nil {
		return r, nil
	}

	snap, err := r.ledger.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: load snapshot: %w", err)
	}

	if snap.Owner != (common.Address{}) {
		r.owner = snap.Owner
	}
	r.transition = snap.Transition
	for slot, addr := range snap.Addresses {
		r.addresses[slot] = addr
	}
	r.nextSlot = snap.NextSlot
	for i := range snap.Positions {
		rec := snap.Positions[i]
		r.positions[rec.ID] = &rec
		r.hashToID[rec.Hash] = rec.ID
	}
	for i := range snap.Adaptors {
		entry := snap.Adaptors[i]
		r.adaptors[entry.Ref] = &entry
		r.claims[entry.Identifier] = entry.Ref
	}
	for i := range snap.Funds {
		rec := snap.Funds[i]
		r.funds[rec.Address] = &rec
	}
	for i := range snap.Windows {
		w := snap.Windows[i]
		r.windows[w.Fund] = &w
	}

	r.logger.InfoContext(ctx, "registry state loaded",
		slog.Int("positions", len(r.positions)),
		slog.Int("adaptors", len(r.adaptors)),
		slog.Int("funds", len(r.funds)),
	)
	return r, nil
}

// Owner returns the current governance owner.
func (r *Registry) Owner() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

// requireOwner enforces the standard ownership check. Ownership exercise is
// globally suspended while a transition is pending.
func (r *Registry) requireOwner(principal common.Address) error {
	if r.transition.Pending() {
		return fmt.Errorf("registry: owner actions suspended: %w", domain.ErrTransitionPending)
	}
	if principal != r.owner {
		return fmt.Errorf("registry: principal %s: %w", principal, domain.ErrUnauthorized)
	}
	return nil
}

// requireZeroID enforces that the principal is the zero-id principal, the
// address stored in address-config slot 0.
func (r *Registry) requireZeroID(principal common.Address) error {
	zero, ok := r.addresses[domain.ZeroIDSlot]
	if !ok || principal != zero {
		return fmt.Errorf("registry: principal %s: %w", principal, domain.ErrNotZeroID)
	}
	return nil
}

// emit sends an event to the configured sink. Emission happens after commit
// and never fails the originating call.
func (r *Registry) emit(ctx context.Context, kind domain.EventKind, fields map[string]any) {
	r.events.Emit(ctx, domain.Event{
		ID:     uuid.NewString(),
		Kind:   kind,
		At:     r.clock.Now(),
		Fields: fields,
	})
}

// noopSink drops every event.
type noopSink struct{}

func (noopSink) Emit(context.Context, domain.Event) {}
