package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock freezes the limiter's clock so token counts are exact.
func fixedClock(l *Limiter, start time.Time) *time.Time {
	now := start
	l.now = func() time.Time { return now }
	return &now
}

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()
	fixedClock(limiter, time.Now())

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/test", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/test", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.True(t, info.ResetTime.After(time.Now()))
}

func TestLimiter_Refill(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute})
	defer limiter.Stop()
	now := fixedClock(limiter, time.Now())

	for i := 0; i < 60; i++ {
		allowed, _ := limiter.Allow("c", "/x", "GET")
		require.True(t, allowed)
	}
	allowed, _ := limiter.Allow("c", "/x", "GET")
	require.False(t, allowed)

	*now = now.Add(2 * time.Second)
	allowed, info := limiter.Allow("c", "/x", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1, info.Remaining)
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
	})
	defer limiter.Stop()

	for i := 0; i < 20; i++ {
		allowed, _ := limiter.Allow("10.0.0.1", "/profile", "GET")
		assert.True(t, allowed)
	}

	allowed, _ := limiter.Allow("10.0.0.2", "/profile", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: false, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow("c", "/fill", "POST")
		assert.True(t, allowed)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(),
	})
	defer limiter.Stop()
	fixedClock(limiter, time.Now())

	for i := 0; i < 3; i++ {
		allowed, info := limiter.Allow("c", "/fill", "POST")
		require.True(t, allowed)
		assert.Equal(t, 30, info.Limit)
	}
	allowed, _ := limiter.Allow("c", "/fill", "POST")
	assert.False(t, allowed, "burst of 3 exhausted")

	allowed, info := limiter.Allow("c", "/fill/html", "POST")
	assert.True(t, allowed, "separate bucket per endpoint")
	assert.Equal(t, 120, info.Limit)

	allowed, info = limiter.Allow("c", "/health", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 0, info.Limit, "health is unlimited")
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer limiter.Stop()

	var allowedCount atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow("c", "/profile", "GET"); ok {
				allowedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), allowedCount.Load())
}

func TestLimiter_EvictIdle(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute})
	defer limiter.Stop()
	now := fixedClock(limiter, time.Now())

	limiter.Allow("a", "/x", "GET")
	*now = now.Add(2 * time.Hour)
	limiter.Allow("b", "/x", "GET")
	require.Equal(t, 2, limiter.size())

	limiter.evictIdle(time.Hour)
	assert.Equal(t, 1, limiter.size())
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute, CleanupInterval: time.Millisecond})
	limiter.Stop()
	limiter.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/fill", Method: "POST", Limit: 1},
		{Path: "/profiles/", Method: "PUT", Limit: 2},
	}

	assert.Equal(t, 1, MatchEndpoint("/fill", "POST", configs).Limit)
	assert.Nil(t, MatchEndpoint("/fill", "GET", configs))
	assert.Equal(t, 2, MatchEndpoint("/profiles/abc", "PUT", configs).Limit)
	assert.Equal(t, 0, MatchEndpoint("/health", "GET", configs).Limit)
	assert.Nil(t, MatchEndpoint("/other", "POST", configs))
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()

	allowed, info := limiter.Allow("c", "/profile", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 600, info.Limit)
}

func TestParseIPList(t *testing.T) {
	assert.Equal(t, map[string]bool{"1.1.1.1": true, "2.2.2.2": true}, parseIPList(" 1.1.1.1, ,2.2.2.2"))
	assert.Empty(t, parseIPList(""))
}
