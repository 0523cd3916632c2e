package http

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
	"github.com/egpaydcx/egpay-backend/internal/view"
)

const (
	AdminSecretHeader = "X-Admin-Secret"

	limiterIdleTTL = 10 * time.Minute
)

// adminAuth requires the shared admin secret. An unset secret locks the admin API.
func adminAuth(secret string, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			logger.Info("[adminAuth] unauthorized", map[string]string{
				"path": c.FullPath(),
				"ip":   c.ClientIP(),
			})
			c.AbortWithStatusJSON(http.StatusUnauthorized, view.Error("Unauthorized"))
			return
		}
		c.Next()
	}
}

// ipRateLimiter keeps one token bucket per client IP; idle buckets expire from the cache
type ipRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters *cache.Cache
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: cache.New(limiterIdleTTL, limiterIdleTTL),
	}
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.limiters.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		// touch to extend the idle ttl
		l.limiters.SetDefault(ip, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	l.limiters.SetDefault(ip, limiter)
	return limiter
}

func (l *ipRateLimiter) Middleware(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.get(ip).Allow() {
			logger.Warn("[rateLimit] limit exceeded", map[string]string{
				"path": c.FullPath(),
				"ip":   ip,
			})
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, view.Error("Too many requests, please slow down"))
			return
		}
		c.Next()
	}
}
