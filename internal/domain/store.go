package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// RegistrySnapshot is the complete durable state of a registry, used to
// rehydrate the in-memory core at startup.
type RegistrySnapshot struct {
	Owner      common.Address
	Transition GovernanceTransition
	Addresses  map[uint32]common.Address
	NextSlot   uint32
	Positions  []PositionRecord
	Adaptors   []AdaptorTrustEntry
	Funds      []FundRecord
	Windows    []FundVolumeWindow
}

// RegistryLedger is the durable mirror of registry state. The in-memory core
// is authoritative within a process; every committed mutation is written
// through so a restart reloads the same trust and volume state.
type RegistryLedger interface {
	SaveOwner(ctx context.Context, owner common.Address) error
	SaveTransition(ctx context.Context, t GovernanceTransition) error
	SaveAddress(ctx context.Context, slot uint32, addr common.Address) error
	SavePosition(ctx context.Context, rec PositionRecord) error
	SaveAdaptor(ctx context.Context, entry AdaptorTrustEntry) error
	SaveFund(ctx context.Context, rec FundRecord) error
	SaveVolumeWindow(ctx context.Context, w FundVolumeWindow) error
	Load(ctx context.Context) (RegistrySnapshot, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        string
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
}
