package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestCheckRateLimit_EnvironmentBypass(t *testing.T) {
	for _, env := range []string{"test", "development", ""} {
		t.Run("env="+env, func(t *testing.T) {
			t.Setenv("APP_ENV", env)
			allowed, err := CheckRateLimit(context.Background(), nil, "res", "1", 1, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}

func TestCheckRateLimit_NilRedisErrors(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, err := CheckRateLimit(context.Background(), nil, "res", "1", 1, time.Minute)
	assert.Error(t, err)
}

func TestCheckRateLimit_EnforcesLimit(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, cerr := CheckRateLimit(ctx, rdb, "create_room", "user:bob", 3, time.Minute)
		assert.NoError(t, cerr)
		assert.True(t, allowed)
	}

	allowed, cerr := CheckRateLimit(ctx, rdb, "create_room", "user:bob", 3, time.Minute)
	assert.NoError(t, cerr)
	assert.False(t, allowed)

	// a different key is unaffected
	allowed, cerr = CheckRateLimit(ctx, rdb, "create_room", "user:alice", 3, time.Minute)
	assert.NoError(t, cerr)
	assert.True(t, allowed)

	// window expiry resets the counter
	mr.FastForward(2 * time.Minute)
	allowed, cerr = CheckRateLimit(ctx, rdb, "create_room", "user:bob", 3, time.Minute)
	assert.NoError(t, cerr)
	assert.True(t, allowed)
}
