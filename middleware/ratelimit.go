package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window request counter per client IP.
type RateLimiter struct {
	requests map[string]*clientRequest
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
}

type clientRequest struct {
	count     int
	resetTime time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string]*clientRequest),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// allow counts a request from ip and reports whether it is within the
// limit, and otherwise how long until the window resets.
func (rl *RateLimiter) allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.requests[ip]
	if !exists || now.After(client.resetTime) {
		rl.requests[ip] = &clientRequest{count: 1, resetTime: now.Add(rl.window)}
		return true, 0
	}
	if client.count >= rl.limit {
		return false, client.resetTime.Sub(now)
	}
	client.count++
	return true, 0
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := rl.allow(c.ClientIP())
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			return
		}
		c.Next()
	}
}

// Run drops expired windows every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, client := range rl.requests {
		if now.After(client.resetTime) {
			delete(rl.requests, ip)
		}
	}
}
