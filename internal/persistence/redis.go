package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/config"
)

const (
	revokedTokenPrefix = "fc:revoked:"
	cachePrefix        = "fc:cache:"
)

// ErrCacheMiss is returned by GetJSON when the key is absent or Redis is disabled.
var ErrCacheMiss = errors.New("cache miss")

// Redis wraps the go-redis client. Without a Client the cache is disabled
// (reads miss, writes are dropped) and revoked token ids are kept in process
// until they expire.
type Redis struct {
	Client *redis.Client

	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; caching disabled, token revocation kept in process")
		return &Redis{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Enabled reports whether a client is configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// RevokeToken records a token id as revoked until ttl elapses.
func (r *Redis) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if r == nil {
		return errors.New("token revocation store not configured")
	}
	if !r.Enabled() {
		r.revokeLocal(jti, ttl)
		return nil
	}
	return r.Client.Set(ctx, revokedTokenPrefix+jti, "1", ttl).Err()
}

// IsTokenRevoked reports whether jti was revoked.
func (r *Redis) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if r == nil {
		return false, nil
	}
	if !r.Enabled() {
		return r.isRevokedLocal(jti), nil
	}
	n, err := r.Client.Exists(ctx, revokedTokenPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetJSON decodes the cached value at key into dst.
func (r *Redis) GetJSON(ctx context.Context, key string, dst any) error {
	if !r.Enabled() {
		return ErrCacheMiss
	}
	raw, err := r.Client.Get(ctx, cachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// SetJSON caches value at key for ttl.
func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !r.Enabled() || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, cachePrefix+key, raw, ttl).Err()
}

// Invalidate drops cached keys.
func (r *Redis) Invalidate(ctx context.Context, keys ...string) error {
	if !r.Enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = cachePrefix + k
	}
	return r.Client.Del(ctx, full...).Err()
}

func (r *Redis) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Redis) revokeLocal(jti string, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock()
	if r.revoked == nil {
		r.revoked = make(map[string]time.Time)
	}
	for id, until := range r.revoked {
		if !now.Before(until) {
			delete(r.revoked, id)
		}
	}
	r.revoked[jti] = now.Add(ttl)
}

func (r *Redis) isRevokedLocal(jti string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.revoked[jti]
	if !ok {
		return false
	}
	if !r.clock().Before(until) {
		delete(r.revoked, jti)
		return false
	}
	return true
}
