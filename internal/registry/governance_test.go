package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfi/vaultguard/internal/domain"
)

func TestCompleteTransition_DelayBoundary(t *testing.T) {
	r, clock, _ := newTestRegistry(t)
	ctx := context.Background()
	newOwner := addr(0x40)

	require.NoError(t, r.TransitionOwner(ctx, zeroID, newOwner))

	// One second short of the delay still fails.
	clock.Advance(domain.TransitionPeriod - time.Second)
	err := r.CompleteTransition(ctx, newOwner)
	assert.ErrorIs(t, err, domain.ErrTransitionNotReady)

	// Exactly at startedAt + delay the transition completes.
	clock.Advance(time.Second)
	require.NoError(t, r.CompleteTransition(ctx, newOwner))
	assert.Equal(t, newOwner, r.Owner())
	assert.False(t, r.PendingTransition().Pending())
}

func TestCompleteTransition_PendingOwnerOnly(t *testing.T) {
	r, clock, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.TransitionOwner(ctx, zeroID, addr(0x40)))
	clock.Advance(domain.TransitionPeriod)

	err := r.CompleteTransition(ctx, owner)
	assert.ErrorIs(t, err, domain.ErrNotPendingOwner)
	err = r.CompleteTransition(ctx, zeroID)
	assert.ErrorIs(t, err, domain.ErrNotPendingOwner)
}

func TestTransitionOwner_ZeroIDOnly(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	err := r.TransitionOwner(ctx, owner, addr(0x40))
	assert.ErrorIs(t, err, domain.ErrNotZeroID)
}

func TestTransitionOwner_SinglePendingTransition(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.TransitionOwner(ctx, zeroID, addr(0x40)))
	err := r.TransitionOwner(ctx, zeroID, addr(0x41))
	assert.ErrorIs(t, err, domain.ErrTransitionPending)
}

func TestTransitionOwner_RejectsEmptyOwner(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	err := r.TransitionOwner(context.Background(), zeroID, addr(0x00))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCancelTransition(t *testing.T) {
	r, clock, _ := newTestRegistry(t)
	ctx := context.Background()
	newOwner := addr(0x40)

	// Nothing to cancel.
	err := r.CancelTransition(ctx, zeroID)
	assert.ErrorIs(t, err, domain.ErrNoTransition)

	require.NoError(t, r.TransitionOwner(ctx, zeroID, newOwner))
	require.NoError(t, r.CancelTransition(ctx, zeroID))

	// Cancelled means the pending owner can never complete.
	clock.Advance(domain.TransitionPeriod)
	err = r.CompleteTransition(ctx, newOwner)
	assert.ErrorIs(t, err, domain.ErrNoTransition)
	assert.Equal(t, owner, r.Owner())
}

func TestCancelTransition_ZeroIDOnly(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.TransitionOwner(ctx, zeroID, addr(0x40)))
	err := r.CancelTransition(ctx, owner)
	assert.ErrorIs(t, err, domain.ErrNotZeroID)
	err = r.CancelTransition(ctx, addr(0x40))
	assert.ErrorIs(t, err, domain.ErrNotZeroID)
}
