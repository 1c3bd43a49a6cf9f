package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonotonicClock_StrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 123456789, time.UTC)
	c := NewMonotonicClock(ClockFunc(func() time.Time { return fixed }))

	first := c.Now()
	second := c.Now()

	assert.Equal(t, fixed.Truncate(time.Microsecond), first)
	assert.Equal(t, first.Add(time.Microsecond), second)
}

func TestMonotonicClock_WallClockStepsBack(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	c := NewMonotonicClock(ClockFunc(func() time.Time { return now }))

	a := c.Now()
	now = now.Add(-time.Minute)
	b := c.Now()
	assert.True(t, b.After(a))

	now = now.Add(time.Hour)
	assert.Equal(t, now, c.Now())
}

func TestMonotonicClock_Observe(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	c := NewMonotonicClock(ClockFunc(func() time.Time { return now }))

	c.Observe(now.Add(time.Second))
	assert.Equal(t, now.Add(time.Second+time.Microsecond), c.Now())

	c.Observe(now.Add(-time.Hour))
	assert.Equal(t, now.Add(time.Second+2*time.Microsecond), c.Now())
}
