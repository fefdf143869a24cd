package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClockIsUTCMillis(t *testing.T) {
	now := SystemClock{}.Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Zero(t, now.Nanosecond()%int(time.Millisecond))
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 6_789_000, time.FixedZone("WIB", 7*3600))
	c := NewFakeClock(start)
	assert.Equal(t, start.UTC().Truncate(time.Millisecond), c.Now())

	c.Advance(1500 * time.Microsecond)
	assert.Equal(t, start.UTC().Truncate(time.Millisecond).Add(time.Millisecond), c.Now())
}
