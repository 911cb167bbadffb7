package clock_test

import (
	"testing"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestVirtualClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewVirtualClock(start)

	assert.Equal(t, start, c.Now())

	c.Advance(1500 * time.Millisecond)
	assert.Equal(t, start.Add(1500*time.Millisecond), c.Now())

	c.Advance(-time.Hour)
	assert.Equal(t, start.Add(1500*time.Millisecond), c.Now(), "negative advance is ignored")

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestRealClock(t *testing.T) {
	before := time.Now()
	now := clock.NewRealClock().Now()
	assert.False(t, now.Before(before))
}
