package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/trendpulse/trendservice/internal/config"
)

func TestPrefixKey(t *testing.T) {
	assert.Equal(t, "v4:203.0.113.0/24", prefixKey("203.0.113.9"))
	assert.Equal(t, "v6:2001:db8::/64", prefixKey("2001:db8::1"))
}

func TestTokenBucket_BurstThenThrottle(t *testing.T) {
	l := NewTokenBucketRateLimiter(TokenBucketConfig{Rate: 1, Burst: 2, CleanupInterval: time.Minute, MaxEntries: 10})

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "burst of 2 exhausted on third immediate call")
}

func TestTokenBucket_DisabledWhenRateOrBurstNonPositive(t *testing.T) {
	l := NewTokenBucketRateLimiter(TokenBucketConfig{Rate: 0, Burst: 0, CleanupInterval: time.Minute, MaxEntries: 10})
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("anything"))
	}
}

func TestLimiter_AllowRequiresAllLevels(t *testing.T) {
	cfg := config.RateLimitConfig{
		CleanupSeconds:   60,
		MaxIPEntries:     100,
		MaxPrefixEntries: 100,
		GlobalQPS:        0, // disabled
		GlobalBurst:      0,
		PrefixQPS:        0,
		PrefixBurst:      0,
		IPQPS:            1,
		IPBurst:          1,
	}
	limiter := NewFromConfig(cfg)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"), "per-IP burst of 1 exhausted")
	assert.True(t, limiter.Allow("10.0.0.2"), "a different IP has its own bucket")
}

func TestLimiter_NilIsPermissive(t *testing.T) {
	var l *Limiter
	assert.True(t, l.Allow("10.0.0.1"))
}
