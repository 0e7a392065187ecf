// Package ratelimit limits tool calls per caller with a sliding window.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned when a caller exceeded its window.
var ErrRateLimited = errors.New("rate limit exceeded")

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *SlidingWindow) { s.now = now }
}

// SlidingWindow keeps the timestamps of admitted calls per key, so any span
// of one window length admits at most limit calls.
type SlidingWindow struct {
	mu        sync.Mutex
	calls     map[string][]time.Time
	limit     int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewSlidingWindow allows limit calls per window for every key.
func NewSlidingWindow(limit int, window time.Duration, opts ...Option) (*SlidingWindow, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be at least 1, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", window)
	}

	s := &SlidingWindow{
		calls:  make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Allow records a call for key and reports whether it fits the window.
// Rejected calls are not counted. The error is always nil for the in-memory
// log and is kept for callers that treat limiter failures separately.
func (s *SlidingWindow) Allow(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.window)

	calls := trim(s.calls[key], cutoff)
	if len(calls) >= s.limit {
		s.calls[key] = calls
		return false, nil
	}
	s.calls[key] = append(calls, now)

	if now.Sub(s.lastSweep) >= s.window {
		s.sweep(cutoff)
		s.lastSweep = now
	}

	return true, nil
}

// sweep drops keys without calls inside the window.
func (s *SlidingWindow) sweep(cutoff time.Time) {
	for key, calls := range s.calls {
		calls = trim(calls, cutoff)
		if len(calls) == 0 {
			delete(s.calls, key)
			continue
		}
		s.calls[key] = calls
	}
}

// trim drops timestamps at or before cutoff. calls is sorted.
func trim(calls []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(calls) && !calls[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return calls
	}
	// copy down so the backing array does not grow without bound
	n := copy(calls, calls[i:])
	return calls[:n]
}

// Limit returns the configured number of calls per window.
func (s *SlidingWindow) Limit() int {
	return s.limit
}

// Window returns the configured window length.
func (s *SlidingWindow) Window() time.Duration {
	return s.window
}

// Keys returns the number of callers currently tracked.
func (s *SlidingWindow) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
