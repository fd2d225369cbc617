package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a StepClock returns.
var Epoch = time.Date(2003, time.July, 15, 10, 0, 0, 0, time.UTC)

// StepClock is a deterministic wall clock for tests: every call to Now
// returns the previous instant plus Step.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewStepClock creates a clock starting at Epoch. A zero step means one
// millisecond, the resolution of INSERTION_TIME.
func NewStepClock(step time.Duration) *StepClock {
	if step == 0 {
		step = time.Millisecond
	}
	return &StepClock{next: Epoch, step: step}
}

// Now returns the current instant and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// Peek returns the instant the next call to Now will return.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Reset rewinds the clock to Epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = Epoch
}
