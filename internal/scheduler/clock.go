// Package scheduler decides when a room's accumulated prompt events should
// trigger a generation cycle. See scheduler.go for the batching policy.
//
// This file defines the small time abstraction that keeps the batching
// state machine independent of wall-clock time, so the early-trigger rule
// is testable deterministically.
package scheduler

import "time"

// Timer is a cancelable one-shot timer.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Clock creates timers and reports the current time.
type Clock interface {
	Now() time.Time
	// AfterFunc runs fn in its own goroutine after d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// realClock delegates to the time package.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// NewClock returns the wall-clock implementation used in production.
func NewClock() Clock { return realClock{} }
