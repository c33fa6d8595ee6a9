package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/config"
)

func TestDisabledRedisRevokesInProcess(t *testing.T) {
	ctx := context.Background()
	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	require.False(t, r.Enabled())

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	require.NoError(t, r.RevokeToken(ctx, "jti-1", time.Minute))
	revoked, err := r.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsTokenRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(time.Minute)
	revoked, err = r.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Empty(t, r.revoked)
}

func TestRevokeTokenIgnoresExpiredTokens(t *testing.T) {
	ctx := context.Background()
	r := NewRedis(config.RedisConfig{}, zap.NewNop())

	require.NoError(t, r.RevokeToken(ctx, "jti", 0))
	revoked, err := r.IsTokenRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestDisabledRedisCacheMisses(t *testing.T) {
	ctx := context.Background()
	r := NewRedis(config.RedisConfig{}, zap.NewNop())

	require.NoError(t, r.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))
	var out map[string]int
	assert.ErrorIs(t, r.GetJSON(ctx, "k", &out), ErrCacheMiss)
}
