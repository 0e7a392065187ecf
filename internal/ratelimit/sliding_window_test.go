package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-bulk-mcp/internal/ratelimit"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newLimiter(t *testing.T, limit int, window time.Duration) (*ratelimit.SlidingWindow, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 9, 14, 12, 0, 0, 0, time.UTC)}
	l, err := ratelimit.NewSlidingWindow(limit, window, ratelimit.WithClock(clock.Now))
	require.NoError(t, err)

	return l, clock
}

func allow(t *testing.T, l *ratelimit.SlidingWindow, key string) bool {
	t.Helper()
	ok, err := l.Allow(key)
	require.NoError(t, err)
	return ok
}

func TestSlidingWindowRejectsOverLimit(t *testing.T) {
	l, clock := newLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, allow(t, l, "s1"), "call %d", i)
		clock.Advance(time.Second)
	}
	assert.False(t, allow(t, l, "s1"))
	assert.False(t, allow(t, l, "s1"))
}

func TestSlidingWindowRecovers(t *testing.T) {
	l, clock := newLimiter(t, 2, time.Minute)

	assert.True(t, allow(t, l, "s1"))
	clock.Advance(30 * time.Second)
	assert.True(t, allow(t, l, "s1"))
	assert.False(t, allow(t, l, "s1"))

	// the first call is still inside the window
	clock.Advance(29 * time.Second)
	assert.False(t, allow(t, l, "s1"))

	// the first call expires exactly one window after it was made
	clock.Advance(time.Second)
	assert.True(t, allow(t, l, "s1"))
	assert.False(t, allow(t, l, "s1"))

	clock.Advance(2 * time.Minute)
	assert.True(t, allow(t, l, "s1"))
	assert.True(t, allow(t, l, "s1"))
}

func TestSlidingWindowBurstAcrossMinuteBoundary(t *testing.T) {
	l, clock := newLimiter(t, 30, time.Minute)
	start := clock.now

	clock.now = start.Add(59 * time.Second)
	for i := 0; i < 30; i++ {
		assert.True(t, allow(t, l, "1.2.3.4"), "call %d", i)
	}

	clock.now = start.Add(90 * time.Second)
	for i := 0; i < 30; i++ {
		assert.False(t, allow(t, l, "1.2.3.4"), "call %d", i)
	}

	clock.now = start.Add(119*time.Second - time.Millisecond)
	assert.False(t, allow(t, l, "1.2.3.4"))

	clock.now = start.Add(119 * time.Second)
	assert.True(t, allow(t, l, "1.2.3.4"))
}

func TestSlidingWindowNeverExceedsLimitInAnySpan(t *testing.T) {
	const limit = 5
	l, clock := newLimiter(t, limit, time.Minute)

	var admitted []time.Time
	// irregular call pattern with bursts
	steps := []time.Duration{0, 0, time.Second, 0, 10 * time.Second, 0, 0, 45 * time.Second, 3 * time.Second, 0, 0,
		time.Second, 20 * time.Second, 0, 0, 0, 50 * time.Second, 9 * time.Second, 0, 0, 0, 0, 0, time.Second}
	for round := 0; round < 10; round++ {
		for _, step := range steps {
			clock.Advance(step)
			if allow(t, l, "s1") {
				admitted = append(admitted, clock.now)
			}
		}
	}

	require.NotEmpty(t, admitted)
	for i, from := range admitted {
		n := 0
		for _, at := range admitted[i:] {
			if at.Sub(from) < time.Minute {
				n++
			}
		}
		assert.LessOrEqual(t, n, limit, "calls in the minute from %s", from)
	}
}

func TestSlidingWindowForgetsIdleKeys(t *testing.T) {
	l, clock := newLimiter(t, 1, time.Minute)

	assert.True(t, allow(t, l, "s1"))
	assert.True(t, allow(t, l, "s2"))
	assert.Equal(t, 2, l.Keys())

	clock.Advance(2 * time.Minute)
	assert.True(t, allow(t, l, "s3"))
	assert.Equal(t, 1, l.Keys())
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	l, _ := newLimiter(t, 1, time.Minute)

	assert.True(t, allow(t, l, "s1"))
	assert.False(t, allow(t, l, "s1"))
	assert.True(t, allow(t, l, "s2"))
	assert.True(t, allow(t, l, ratelimit.LocalKey))
}

func TestNewSlidingWindowInvalid(t *testing.T) {
	_, err := ratelimit.NewSlidingWindow(0, time.Minute)
	require.Error(t, err)

	_, err = ratelimit.NewSlidingWindow(1, 0)
	require.Error(t, err)
}
