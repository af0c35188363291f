package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockPeriods(t *testing.T) {
	c := NewFakeClock(time.Date(2026, 12, 31, 18, 0, 0, 0, time.FixedZone("x", 3600)))
	assert.Equal(t, time.UTC, c.Now().Location())

	c.AdvanceDays(1)
	assert.Equal(t, time.Date(2027, 1, 1, 17, 0, 0, 0, time.UTC), c.Now())

	next := c.NextPeriod()
	assert.Equal(t, time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC), next)
	assert.Equal(t, next, c.Now())
}

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystemClock().Now().Location())
}
