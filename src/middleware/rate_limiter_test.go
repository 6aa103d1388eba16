package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestLoginRateLimiter_PerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewLoginRateLimiter(RateLimitConfig{RequestsPerMinute: 1, Burst: 2})
	defer limiter.Stop()
	router := gin.New()
	router.POST("/login", limiter.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	from := func(ip string) func(r *http.Request) {
		return func(r *http.Request) { r.RemoteAddr = ip + ":1234" }
	}
	post := func(ip string) int {
		w := doRequestMethod(router, http.MethodPost, "/login", from(ip))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, post("10.0.0.1"))
	assert.Equal(t, http.StatusOK, post("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, post("10.0.0.1"))

	assert.Equal(t, http.StatusOK, post("10.0.0.2"), "other clients keep their own bucket")
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 2, Burst: 1}, nil)
	defer limiter.Stop()
	router := gin.New()
	router.POST("/login", limiter.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	doRequestMethod(router, http.MethodPost, "/login", nil)
	w := doRequestMethod(router, http.MethodPost, "/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
}

func TestKeyRateLimiter_Cleanup(t *testing.T) {
	k := newKeyRateLimiter(rate.Every(time.Second), 1)
	defer k.Stop()

	k.getLimiter("fresh")
	k.getLimiter("stale")
	k.mu.Lock()
	k.limiters["stale"].lastUsed = time.Now().Add(-time.Hour)
	k.mu.Unlock()

	k.cleanup()

	k.mu.RLock()
	defer k.mu.RUnlock()
	assert.Contains(t, k.limiters, "fresh")
	assert.NotContains(t, k.limiters, "stale")
}

func TestRateLimiter_StopEndsCleanup(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{}, nil)
	limiter.Stop()
	limiter.Stop()

	select {
	case <-limiter.keys.stopCh:
	default:
		t.Fatal("cleanup goroutine was not signalled to stop")
	}
}
