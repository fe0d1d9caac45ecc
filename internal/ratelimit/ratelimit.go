// Package ratelimit provides per-endpoint sliding-window admission control
// for outbound controller calls.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

// Limiter tracks call timestamps per endpoint over a one-minute and a
// one-hour sliding window. All state is guarded by a single mutex; admission
// checks are O(window size), bounded by the configured caps.
//
// Endpoint entries are never evicted. The map grows with the number of
// distinct endpoint keys, which is bounded in practice by the controller's
// API surface.
type Limiter struct {
	mu          sync.Mutex
	minuteCalls map[string][]time.Time
	hourCalls   map[string][]time.Time
	perMinute   int
	perHour     int
	now         func() time.Time
}

// Stats is a read-only snapshot of an endpoint's window state.
type Stats struct {
	Endpoint        string `json:"endpoint"`
	CallsLastMinute int    `json:"calls_last_minute"`
	CallsLastHour   int    `json:"calls_last_hour"`
	LimitPerMinute  int    `json:"limit_per_minute"`
	LimitPerHour    int    `json:"limit_per_hour"`
	MinuteRemaining int    `json:"minute_remaining"`
	HourRemaining   int    `json:"hour_remaining"`
}

// New creates a limiter allowing perMinute calls per endpoint per minute and
// perHour calls per endpoint per hour. Zero or negative caps deny every call.
func New(perMinute, perHour int) *Limiter {
	return &Limiter{
		minuteCalls: make(map[string][]time.Time),
		hourCalls:   make(map[string][]time.Time),
		perMinute:   perMinute,
		perHour:     perHour,
		now:         time.Now,
	}
}

// Admit decides whether a call to endpoint may proceed. On denial it returns
// a human-readable reason including a retry hint. Admit never blocks waiting
// for capacity; callers own retry policy.
//
// The minute cap is checked before the hour cap, so a minute-cap denial says
// nothing about whether the hour cap is also exhausted.
func (l *Limiter) Admit(endpoint string) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.minuteCalls[endpoint] = prune(l.minuteCalls[endpoint], now, minuteWindow)
	l.hourCalls[endpoint] = prune(l.hourCalls[endpoint], now, hourWindow)

	if len(l.minuteCalls[endpoint]) >= l.perMinute {
		retry := retryAfter(l.minuteCalls[endpoint], now, minuteWindow)
		return false, fmt.Sprintf("Rate limit exceeded: %d calls/minute. Retry in %.0fs.", l.perMinute, retry.Seconds())
	}
	if len(l.hourCalls[endpoint]) >= l.perHour {
		retry := retryAfter(l.hourCalls[endpoint], now, hourWindow)
		return false, fmt.Sprintf("Rate limit exceeded: %d calls/hour. Retry in %.0fs.", l.perHour, retry.Seconds())
	}

	l.minuteCalls[endpoint] = append(l.minuteCalls[endpoint], now)
	l.hourCalls[endpoint] = append(l.hourCalls[endpoint], now)
	return true, ""
}

// Stats reports the endpoint's current window occupancy. It prunes stale
// entries like Admit but records no call.
func (l *Limiter) Stats(endpoint string) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.minuteCalls[endpoint] = prune(l.minuteCalls[endpoint], now, minuteWindow)
	l.hourCalls[endpoint] = prune(l.hourCalls[endpoint], now, hourWindow)

	s := Stats{
		Endpoint:        endpoint,
		CallsLastMinute: len(l.minuteCalls[endpoint]),
		CallsLastHour:   len(l.hourCalls[endpoint]),
		LimitPerMinute:  l.perMinute,
		LimitPerHour:    l.perHour,
	}
	s.MinuteRemaining = remaining(l.perMinute, s.CallsLastMinute)
	s.HourRemaining = remaining(l.perHour, s.CallsLastHour)
	return s
}

// SetTimestamps replaces an endpoint's recorded call times in both windows.
// Test hook for aging entries without waiting out the window.
func (l *Limiter) SetTimestamps(endpoint string, times []time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minuteCalls[endpoint] = append([]time.Time(nil), times...)
	l.hourCalls[endpoint] = append([]time.Time(nil), times...)
}

// SetClock overrides the time source. Test hook.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// prune drops leading entries older than the window. Timestamps are appended
// in order, so the first retained index bounds the scan.
func prune(calls []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(calls) && !calls[i].After(cutoff) {
		i++
	}
	return calls[i:]
}

// retryAfter reports how long until the oldest entry leaves the window. If
// the window is momentarily empty (benign race between prune and cap check),
// it falls back to the full window duration.
func retryAfter(calls []time.Time, now time.Time, window time.Duration) time.Duration {
	if len(calls) == 0 {
		return window
	}
	wait := window - now.Sub(calls[0])
	if wait < 0 {
		return 0
	}
	return wait
}

func remaining(limit, used int) int {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}
