package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitemapper/config"
	"github.com/use-agent/sitemapper/models"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per identity (API key or client IP).
type RateLimiter struct {
	cfg      config.RateLimitConfig
	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

// NewRateLimiter creates a RateLimiter. Call Cleanup periodically, or run
// it with StartCleanup, to drop idle identities.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:      cfg,
		limiters: make(map[string]*limiterEntry),
	}
}

func (rl *RateLimiter) get(identity string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	entry, ok := rl.limiters[identity]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst),
		}
		rl.limiters[identity] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Cleanup evicts identities not seen since cutoff.
func (rl *RateLimiter) Cleanup(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, id)
		}
	}
}

// StartCleanup evicts identities idle for an hour, every 5 minutes, until
// stop is closed.
func (rl *RateLimiter) StartCleanup(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rl.Cleanup(time.Now().Add(-1 * time.Hour))
			}
		}
	}()
}

// Middleware returns the gin handler enforcing the limits.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Key ID from Auth when present, client IP otherwise.
		identity := c.GetString(KeyIDContextKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		if !rl.get(identity).Allow() {
			abort(c, http.StatusTooManyRequests, models.ErrCodeRateLimited,
				"rate limit exceeded, please slow down")
			return
		}

		c.Next()
	}
}
