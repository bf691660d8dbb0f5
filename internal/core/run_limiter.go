package core

// run_limiter.go bounds how many pipeline runs execute at once.
//
// Generation and synthesis block on external engines for a long time, so the
// service admits at most a fixed number of runs. A caller that cannot get a
// slot within the wait window receives ErrTooManyRuns and may retry later.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyRuns is returned when every run slot stays busy for the whole
// wait window.
var ErrTooManyRuns = errors.New("too many runs in progress, please try again later")

const (
	DefaultMaxConcurrentRuns = 4
	DefaultRunWait           = 30 * time.Second
)

// RunLimiter is a counting semaphore with a bounded wait.
type RunLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
	drained chan struct{} // closed and replaced whenever active drops to zero
	drainMu chan struct{} // 1-slot mutex guarding drained
}

// NewRunLimiter allows at most maxConcurrent runs; waiters give up after
// maxWait. Non-positive arguments select the defaults.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultRunWait
	}
	l := &RunLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		drained: make(chan struct{}),
		drainMu: make(chan struct{}, 1),
	}
	close(l.drained)
	return l
}

// Acquire takes a slot. The caller must Release it exactly once.
// It returns ctx.Err() if ctx ends first and ErrTooManyRuns when the wait
// window expires.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.enter()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyRuns
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *RunLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.enter()
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *RunLimiter) Release() {
	l.drainMu <- struct{}{}
	if l.active.Add(-1) == 0 {
		close(l.drained)
	}
	<-l.drainMu
	<-l.slots
}

func (l *RunLimiter) enter() {
	l.drainMu <- struct{}{}
	if l.active.Add(1) == 1 {
		l.drained = make(chan struct{})
	}
	<-l.drainMu
}

// ActiveCount returns the number of runs holding a slot.
func (l *RunLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *RunLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *RunLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no run holds a slot or ctx ends. Used during
// graceful shutdown.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	for {
		l.drainMu <- struct{}{}
		drained := l.drained
		<-l.drainMu

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-drained:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// RunLimiterStatus is a snapshot for monitoring.
type RunLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *RunLimiter) Status() RunLimiterStatus {
	return RunLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
