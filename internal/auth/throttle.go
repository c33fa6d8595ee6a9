package auth

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// LoginThrottle is a per-client-IP token bucket for credential endpoints.
type LoginThrottle struct {
	mu       sync.Mutex
	limiters map[string]*throttleEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginThrottle allows perMinute attempts per IP with an equal burst.
// perMinute <= 0 disables throttling.
func NewLoginThrottle(perMinute int) *LoginThrottle {
	t := &LoginThrottle{
		limiters: make(map[string]*throttleEntry),
		idle:     10 * time.Minute,
		now:      time.Now,
	}
	if perMinute > 0 {
		t.limit = rate.Every(time.Minute / time.Duration(perMinute))
		t.burst = perMinute
	}
	return t
}

// Allow consumes one token for key.
func (t *LoginThrottle) Allow(key string) bool {
	if t == nil || t.burst == 0 {
		return true
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.limiters[key]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[key] = entry
	}
	entry.lastSeen = now
	t.evict(now)
	return entry.limiter.AllowN(now, 1)
}

// evict drops limiters idle long enough to be full again. Caller holds mu.
func (t *LoginThrottle) evict(now time.Time) {
	for key, entry := range t.limiters {
		if now.Sub(entry.lastSeen) > t.idle {
			delete(t.limiters, key)
		}
	}
}

// Handler rejects requests over the limit with 429.
func (t *LoginThrottle) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !t.Allow(c.IP()) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return apperrors.NewRateLimited("too many login attempts, try again later")
		}
		return c.Next()
	}
}
