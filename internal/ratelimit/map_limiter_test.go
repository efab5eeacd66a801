package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *MapLimiter
	now := time.Now()
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("key", now))
	}
}

func TestNewRejectsInvalidArgs(t *testing.T) {
	require.Nil(t, New(0, 5, 0))
	require.Nil(t, New(1, 0, 0))
	require.NotNil(t, New(1, 1, 0))
}

func TestBurstThenDenied(t *testing.T) {
	l := New(0.001, 3, 0)
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("alice", now))
	}
	require.False(t, l.Allow("alice", now))

	// Independent keys have independent buckets.
	require.True(t, l.Allow("bob", now))
}

func TestTokensRefillOverTime(t *testing.T) {
	l := New(1, 1, 0)
	now := time.Now()

	require.True(t, l.Allow("alice", now))
	require.False(t, l.Allow("alice", now))
	require.True(t, l.Allow("alice", now.Add(time.Second)))
}

func TestEmptyKeyNotLimited(t *testing.T) {
	l := New(0.001, 1, 0)
	now := time.Now()
	for i := 0; i < 10; i++ {
		require.True(t, l.Allow("", now))
		require.True(t, l.Allow("   ", now))
	}
}
