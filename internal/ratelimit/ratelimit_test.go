package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmitUpToMinuteCap(t *testing.T) {
	l := New(5, 100)

	for i := 0; i < 5; i++ {
		ok, reason := l.Admit("/sites")
		require.True(t, ok, "call %d should be admitted: %s", i, reason)
	}

	ok, reason := l.Admit("/sites")
	assert.False(t, ok)
	assert.Contains(t, reason, "Rate limit exceeded: 5 calls/minute.")
	assert.Contains(t, reason, "Retry in")
}

func TestEndpointsAreIsolated(t *testing.T) {
	l := New(1, 100)

	ok, _ := l.Admit("/sites")
	require.True(t, ok)
	ok, _ = l.Admit("/sites")
	require.False(t, ok)

	ok, _ = l.Admit("/clients")
	assert.True(t, ok, "a saturated endpoint must not affect others")
}

func TestHourCapDeniesAfterMinuteCapPasses(t *testing.T) {
	l := New(100, 5)

	for i := 0; i < 5; i++ {
		ok, _ := l.Admit("/devices")
		require.True(t, ok)
	}

	ok, reason := l.Admit("/devices")
	assert.False(t, ok)
	assert.Contains(t, reason, "calls/hour")
}

func TestMinuteCapCheckedBeforeHourCap(t *testing.T) {
	l := New(3, 3)

	for i := 0; i < 3; i++ {
		ok, _ := l.Admit("/x")
		require.True(t, ok)
	}

	// Both caps are exhausted; the minute message wins.
	ok, reason := l.Admit("/x")
	assert.False(t, ok)
	assert.Contains(t, reason, "calls/minute")
}

func TestEntriesAgeOutOfWindows(t *testing.T) {
	l := New(2, 10)
	base := time.Now()

	// Two calls 61 seconds ago: outside the minute window, inside the hour.
	l.SetTimestamps("/sites", []time.Time{
		base.Add(-61 * time.Second),
		base.Add(-61 * time.Second),
	})
	l.SetClock(func() time.Time { return base })

	ok, _ := l.Admit("/sites")
	assert.True(t, ok)

	stats := l.Stats("/sites")
	assert.Equal(t, 1, stats.CallsLastMinute)
	assert.Equal(t, 3, stats.CallsLastHour)
}

func TestRetryHintReflectsOldestEntry(t *testing.T) {
	l := New(1, 100)
	base := time.Now()

	l.SetTimestamps("/sites", []time.Time{base.Add(-40 * time.Second)})
	l.SetClock(func() time.Time { return base })

	ok, reason := l.Admit("/sites")
	require.False(t, ok)
	assert.Equal(t, "Rate limit exceeded: 1 calls/minute. Retry in 20s.", reason)
}

func TestZeroCapDeniesEverything(t *testing.T) {
	l := New(0, 0)
	ok, reason := l.Admit("/anything")
	assert.False(t, ok)
	assert.Contains(t, reason, "Rate limit exceeded")
}

func TestStatsDoesNotRecordACall(t *testing.T) {
	l := New(10, 100)

	for i := 0; i < 3; i++ {
		ok, _ := l.Admit("/sites")
		require.True(t, ok)
	}
	for i := 0; i < 5; i++ {
		l.Stats("/sites")
	}

	stats := l.Stats("/sites")
	assert.Equal(t, 3, stats.CallsLastMinute)
	assert.Equal(t, 3, stats.CallsLastHour)
	assert.Equal(t, 7, stats.MinuteRemaining)
	assert.Equal(t, 97, stats.HourRemaining)
	assert.Equal(t, "/sites", stats.Endpoint)
	assert.Equal(t, 10, stats.LimitPerMinute)
	assert.Equal(t, 100, stats.LimitPerHour)
}

func TestStatsForUnknownEndpoint(t *testing.T) {
	l := New(10, 100)
	stats := l.Stats("/never-called")
	assert.Equal(t, 0, stats.CallsLastMinute)
	assert.Equal(t, 0, stats.CallsLastHour)
	assert.Equal(t, 10, stats.MinuteRemaining)
	assert.Equal(t, 100, stats.HourRemaining)
}

func TestConcurrentAdmitStaysWithinCap(t *testing.T) {
	const cap = 50
	l := New(cap, 1000)

	admitted := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func() {
			ok, _ := l.Admit("/sites")
			admitted <- ok
		}()
	}

	count := 0
	for i := 0; i < 100; i++ {
		if <-admitted {
			count++
		}
	}
	assert.Equal(t, cap, count)
}

func TestDenialReasonFormat(t *testing.T) {
	l := New(2, 100)
	l.Admit("/sites")
	l.Admit("/sites")

	_, reason := l.Admit("/sites")
	// The hint is whole seconds, suitable for direct display.
	assert.Regexp(t, fmt.Sprintf(`^Rate limit exceeded: %d calls/minute\. Retry in \d+s\.$`, 2), reason)
}
