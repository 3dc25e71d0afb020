package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransitionPeriod is the delay between starting an ownership transition and
// the earliest moment the pending owner may complete it.
const TransitionPeriod = 7 * 24 * time.Hour

// ZeroIDSlot is the address-config slot holding the zero-id principal, the
// distinguished identity with exclusive rights to start and cancel ownership
// transitions.
const ZeroIDSlot uint32 = 0

// GovernanceTransition is the pending ownership handover, if any. The zero
// value means no transition is pending. While a transition is pending every
// owner-gated registry operation is suspended; only the zero-id principal's
// cancel and the pending owner's (delayed) completion can make progress.
type GovernanceTransition struct {
	PendingOwner common.Address
	StartedAt    time.Time
}

// Pending reports whether a transition is in flight.
func (t GovernanceTransition) Pending() bool {
	return t.PendingOwner != (common.Address{})
}
