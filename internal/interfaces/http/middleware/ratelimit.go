package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/infrastructure/cache"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RateLimiter counts requests per key in fixed windows kept in the cache store,
// so limits hold across processes when the store is Redis.
type RateLimiter struct {
	store  cache.Store
	prefix string
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewRateLimiter creates a rate limiter allowing limit requests per window
func NewRateLimiter(store cache.Store, name string, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		store:  store,
		prefix: "ratelimit:" + name + ":",
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Allow records a request for key and reports whether it is within the limit
// together with the number of requests left in the window.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int) {
	n, err := rl.store.Incr(ctx, rl.prefix+key, rl.window)
	if err != nil {
		// fail open: a cache outage must not lock everybody out
		rl.logger.Warn("Rate limit store unavailable", zap.Error(err))
		return true, rl.limit
	}
	remaining := rl.limit - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return int(n) <= rl.limit, remaining
}

// Limit returns the number of requests allowed per window
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// RateLimit returns a rate limiting middleware keyed by client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitByKey returns a rate limiting middleware with custom key extractor
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining := limiter.Allow(c.Request.Context(), keyFunc(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited, "Too many requests. Please try again later.", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// UnsafeOnly applies mw to requests that change state and skips reads
func UnsafeOnly(mw gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		mw(c)
	}
}
