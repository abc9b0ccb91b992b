// Package clock provides time utilities for the engine. Move deadlines,
// penalty timers, and history TTLs all read time through Clock so tests can
// pin it.
package clock

import "time"

//go:generate mockgen -destination=mock/mock.go -package=mockclock github.com/reactiveburst/rbc-engine/internal/pkg/clock Clock

// Clock provides time functionality
type Clock interface {
	Now() time.Time
}

// Real implements Clock using actual system time
type Real struct{}

// Now returns the current time
func (c *Real) Now() time.Time {
	return time.Now()
}

// New returns a new real clock
func New() Clock {
	return &Real{}
}

// Fixed implements Clock with a settable time for tests.
type Fixed struct {
	T time.Time
}

// Now returns the pinned time
func (c *Fixed) Now() time.Time {
	return c.T
}

// Advance moves the pinned time forward
func (c *Fixed) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
