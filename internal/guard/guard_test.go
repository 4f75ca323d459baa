package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result := rl.Check(ctx, "test-key")
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	ctx := context.Background()

	rl.Check(ctx, "test-key")
	rl.Check(ctx, "test-key")
	result := rl.Check(ctx, "test-key")

	assert.False(t, result.Allowed)
	assert.Equal(t, "rate_limiter", result.Guard)
}

func TestRateLimiter_SeparateKeys(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	ctx := context.Background()

	r1 := rl.Check(ctx, "key-a")
	r2 := rl.Check(ctx, "key-b")

	assert.True(t, r1.Allowed)
	assert.True(t, r2.Allowed)
}

func TestInFlight_ClaimAndRelease(t *testing.T) {
	g := NewInFlight()

	require.True(t, g.Begin("settle:lobby-1"))
	assert.False(t, g.Begin("settle:lobby-1"))

	g.End("settle:lobby-1")
	assert.True(t, g.Begin("settle:lobby-1"))
}

func TestInFlight_SeparateKeys(t *testing.T) {
	g := NewInFlight()

	assert.True(t, g.Begin("settle:lobby-1"))
	assert.True(t, g.Begin("settle:lobby-2"))
}
