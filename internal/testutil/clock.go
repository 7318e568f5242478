package testutil

import (
	"sync"

	"github.com/roach88/priceforge/internal/domain"
)

// FixedClock reports a settable calendar date as "today".
//
// Services default a missing as-of date to today; tests pin it so the
// resulting snapshots are reproducible.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedClock struct {
	mu    sync.Mutex
	today domain.Date
}

// NewFixedClock creates a clock stuck on today.
func NewFixedClock(today domain.Date) *FixedClock {
	return &FixedClock{today: today}
}

// Today returns the pinned date.
func (c *FixedClock) Today() domain.Date {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.today
}

// Advance moves the pinned date by n days.
func (c *FixedClock) Advance(days int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.today = c.today.AddDays(days)
}
