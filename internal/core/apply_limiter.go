package core

// apply_limiter.go bounds how many plan applications run at once.
//
// Applying a plan copies the whole table for every step, so a burst of large
// requests can exhaust memory. The limiter is a semaphore: when every slot is
// taken a caller waits up to maxWait, then gets ErrTooManyApplies.
// WaitForDrain lets shutdown wait for in-flight applications.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyApplies is returned when no apply slot frees up in time.
// Clients should retry after a short delay.
var ErrTooManyApplies = errors.New("too many concurrent applies, please try again later")

// DefaultMaxConcurrentApplies is the default limit for parallel applications.
const DefaultMaxConcurrentApplies = 8

// DefaultMaxApplyWait is how long to wait for a slot before rejecting.
const DefaultMaxApplyWait = 5 * time.Second

// ApplyLimiter limits concurrent plan applications.
type ApplyLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewApplyLimiter allows at most maxConcurrent simultaneous applications.
// Non-positive arguments fall back to the defaults.
func NewApplyLimiter(maxConcurrent int, maxWait time.Duration) *ApplyLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentApplies
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxApplyWait
	}
	return &ApplyLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to maxWait.
// The caller must call Release when done.
func (l *ApplyLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyApplies
	}
}

// Release frees a slot taken by Acquire.
func (l *ApplyLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// WaitForDrain blocks until no application is active or ctx ends.
func (l *ApplyLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.active.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// LimiterStatus is a snapshot of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the limiter's current state.
func (l *ApplyLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        int(l.active.Load()),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
