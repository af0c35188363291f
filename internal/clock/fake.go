package clock

import (
	"sync"
	"time"
)

// FakeClock is a manually driven Clock for trial and billing-period tests.
// All instants are kept in UTC.
type FakeClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *FakeClock) Set(t time.Time) {
	c.update(func(time.Time) time.Time { return t.UTC() })
}

func (c *FakeClock) Advance(d time.Duration) {
	c.update(func(now time.Time) time.Time { return now.Add(d) })
}

// AdvanceDays moves the clock by whole calendar days.
func (c *FakeClock) AdvanceDays(days int) {
	c.update(func(now time.Time) time.Time { return now.AddDate(0, 0, days) })
}

// NextPeriod jumps to midnight on the first day of the following month,
// the first instant of the next usage period.
func (c *FakeClock) NextPeriod() time.Time {
	return c.update(func(now time.Time) time.Time {
		return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	})
}

func (c *FakeClock) update(fn func(time.Time) time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = fn(c.now)
	return c.now
}
