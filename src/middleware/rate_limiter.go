package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// limiterEntry holds a rate limiter with last used timestamp
type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// keyRateLimiter manages per-key rate limiters with automatic cleanup
type keyRateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.RWMutex
	limit    rate.Limit
	burst    int
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newKeyRateLimiter(limit rate.Limit, burst int) *keyRateLimiter {
	k := &keyRateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		stopCh:   make(chan struct{}),
	}
	// Start cleanup goroutine
	go k.cleanupLoop()
	return k
}

func (k *keyRateLimiter) getLimiter(key string) *rate.Limiter {
	k.mu.RLock()
	entry, ok := k.limiters[key]
	k.mu.RUnlock()
	if ok {
		// Update last used time
		k.mu.Lock()
		entry.lastUsed = time.Now()
		k.mu.Unlock()
		return entry.limiter
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	// Double-check under write lock
	if entry, ok = k.limiters[key]; ok {
		entry.lastUsed = time.Now()
		return entry.limiter
	}
	limiter := rate.NewLimiter(k.limit, k.burst)
	k.limiters[key] = &limiterEntry{
		limiter:  limiter,
		lastUsed: time.Now(),
	}
	return limiter
}

// cleanupLoop removes stale entries every 5 minutes
func (k *keyRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			k.cleanup()
		case <-k.stopCh:
			return
		}
	}
}

// cleanup removes entries not used in the last 10 minutes
func (k *keyRateLimiter) cleanup() {
	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for key, entry := range k.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(k.limiters, key)
		}
	}
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (k *keyRateLimiter) Stop() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}

// RateLimitConfig defines configuration for the rate limiting middleware
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// KeyFunc selects the bucket a request is counted against
type KeyFunc func(c *gin.Context) string

// ClientIPKey buckets requests by client address
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimiter enforces per-key request limits. Stop must be called on
// shutdown to end its cleanup goroutine.
type RateLimiter struct {
	keys  *keyRateLimiter
	limit rate.Limit
	keyFn KeyFunc
}

// NewRateLimiter creates a limiter. Zero config values default to 10/min with a burst of 5.
func NewRateLimiter(cfg RateLimitConfig, keyFn KeyFunc) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if keyFn == nil {
		keyFn = ClientIPKey
	}

	limit := rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	return &RateLimiter{
		keys:  newKeyRateLimiter(limit, cfg.Burst),
		limit: limit,
		keyFn: keyFn,
	}
}

// NewLoginRateLimiter limits credential attempts per client IP
func NewLoginRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return NewRateLimiter(cfg, ClientIPKey)
}

// Stop ends the background cleanup of idle buckets
func (rl *RateLimiter) Stop() {
	rl.keys.Stop()
}

// Middleware returns the Gin handler enforcing the limit
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.keyFn(c)
		if key == "" {
			key = "__global__"
		}

		l := rl.keys.getLimiter(key)
		if !l.Allow() {
			log.Warn().
				Str("request_id", GetRequestID(c)).
				Str("key", key).
				Str("path", c.FullPath()).
				Msg("rate limit exceeded")

			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(rl.limit)))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 {
		return 60
	}
	secs := int(math.Ceil(1 / float64(limit)))
	if secs < 1 {
		secs = 1
	}
	return secs
}
