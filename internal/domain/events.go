package domain

import (
	"context"
	"time"
)

// EventKind names a registry event.
type EventKind string

const (
	EventAdaptorTrusted      EventKind = "adaptor_trusted"
	EventAdaptorDistrusted   EventKind = "adaptor_distrusted"
	EventPositionTrusted     EventKind = "position_trusted"
	EventPositionDistrusted  EventKind = "position_distrusted"
	EventAddressRegistered   EventKind = "address_registered"
	EventAddressChanged      EventKind = "address_changed"
	EventFundRegistered      EventKind = "fund_registered"
	EventFundPaused          EventKind = "fund_paused"
	EventFundUnpaused        EventKind = "fund_unpaused"
	EventVolumeParamsSet     EventKind = "volume_params_set"
	EventTransitionStarted   EventKind = "transition_started"
	EventTransitionCancelled EventKind = "transition_cancelled"
	EventTransitionCompleted EventKind = "transition_completed"
	EventAggregatorSwap      EventKind = "aggregator_swap"
)

// Event is a single observable registry mutation.
type Event struct {
	ID     string         `json:"id"`
	Kind   EventKind      `json:"kind"`
	At     time.Time      `json:"at"`
	Fields map[string]any `json:"fields,omitempty"`
}

// EventSink receives registry events. Sinks must not fail the originating
// operation: emission happens after the state change has committed, and a
// sink that cannot deliver should log and drop.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}
