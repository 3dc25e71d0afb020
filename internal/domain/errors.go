package domain

import "errors"

// Authorization failures. Always fatal to the call; nothing is retried.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotZeroID         = errors.New("caller is not the zero-id principal")
	ErrNotPendingOwner   = errors.New("caller is not the pending owner")
	ErrTransitionPending = errors.New("ownership transition pending")
)

// State-precondition failures. Signal caller misuse.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrPositionNotFound   = errors.New("position does not exist")
	ErrPositionBound      = errors.New("position id already bound")
	ErrPositionNotTrusted = errors.New("position is not trusted")
	ErrAdaptorNotTrusted  = errors.New("adaptor is not trusted")
	ErrAdaptorTrusted     = errors.New("adaptor already trusted")
	ErrIdentifierClaimed  = errors.New("adaptor identifier already claimed")
	ErrHashCollision      = errors.New("position hash already registered")
	ErrNoTransition       = errors.New("no ownership transition pending")
	ErrTransitionNotReady = errors.New("ownership transition period not elapsed")
	ErrFundNotRegistered  = errors.New("fund is not registered")
	ErrFundPaused         = errors.New("fund is paused")
)

// Economic / risk failures. Intentionally block value-destructive operations.
var (
	ErrUnsupportedAsset = errors.New("asset has no usable price feed")
	ErrVolumeExceeded   = errors.New("fund trade volume cap exceeded")
	ErrSlippage         = errors.New("swap output below slippage floor")
)

// Input-range failures.
var (
	ErrVolumeOverflow = errors.New("volume does not fit the accumulator")
	ErrInvalidInput   = errors.New("invalid input")
)

// ErrNotSupported is returned by adaptor operations a concrete adaptor
// chooses to reject instead of implement.
var ErrNotSupported = errors.New("operation not supported by adaptor")

// ErrLockHeld is returned when a distributed lock is already held by
// another party.
var ErrLockHeld = errors.New("lock already held")
