package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

func timeNow() time.Time { return time.Now() }

type windowCounter struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window per-IP limiter for the driver surface.
// Stale windows are swept on a background ticker.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		clients = make(map[string]*windowCounter)
	)

	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			now := time.Now()
			for ip, w := range clients {
				if now.After(w.resetAt) {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		w, ok := clients[ip]
		if !ok || now.After(w.resetAt) {
			clients[ip] = &windowCounter{count: 1, resetAt: now.Add(window)}
			mu.Unlock()
			c.Next()
			return
		}
		if w.count >= limit {
			retry := w.resetAt.Sub(now).Seconds()
			mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retry,
			})
			c.Abort()
			return
		}
		w.count++
		mu.Unlock()
		c.Next()
	}
}
