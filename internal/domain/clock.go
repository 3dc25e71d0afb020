package domain

import "time"

// Clock supplies the monotonically non-decreasing time the registry evaluates
// the governance delay and volume windows against.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
