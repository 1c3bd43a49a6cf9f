package budget

import (
	"sync"
	"time"
)

// Clock supplies commit timestamps.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// MonotonicClock never hands out the same or an earlier instant twice, even
// if the wall clock steps backwards or two commits land in the same tick.
// Instants are truncated to microseconds, the precision the stores keep.
type MonotonicClock struct {
	mu   sync.Mutex
	src  Clock
	last time.Time
}

func NewMonotonicClock(src Clock) *MonotonicClock {
	if src == nil {
		src = SystemClock
	}
	return &MonotonicClock{src: src}
}

func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.src.Now().Truncate(time.Microsecond)
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}

// Observe raises the floor to t. Used at startup so timestamps continue after
// the newest entry already in the log.
func (c *MonotonicClock) Observe(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.last) {
		c.last = t
	}
}
