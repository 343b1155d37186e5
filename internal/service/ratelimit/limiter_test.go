package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(l *Limiter, start time.Time) *time.Time {
	now := start
	l.now = func() time.Time { return now }
	return &now
}

func TestAllowDrainsAndRefills(t *testing.T) {
	l := New(2, 1)
	now := fixedClock(l, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "keys have separate buckets")

	assert.Equal(t, time.Second, l.RetryAfter("10.0.0.1"))

	*now = now.Add(1500 * time.Millisecond)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestRefillCapsAtCapacity(t *testing.T) {
	l := New(3, 10)
	now := fixedClock(l, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, l.Allow("k"))
	*now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("k"))
	}
	assert.False(t, l.Allow("k"))
}

func TestPrune(t *testing.T) {
	l := New(2, 1)
	now := fixedClock(l, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	l.Allow("a")
	*now = now.Add(time.Second)
	l.Allow("b")

	*now = now.Add(time.Second)
	assert.Equal(t, 1, l.Prune())
	assert.Equal(t, time.Duration(0), l.RetryAfter("a"))
	assert.Len(t, l.m, 1)
}

func TestJanitorPrunesIdleBuckets(t *testing.T) {
	l := New(1, 1000)
	assert.True(t, l.Allow("10.0.0.9"))

	j := NewJanitor(l, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, j.Start(ctx))

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.m) == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, j.Stop(context.Background()))
	require.NoError(t, j.Stop(context.Background()))
}
