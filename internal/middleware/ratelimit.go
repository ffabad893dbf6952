package middleware

import (
	"net/http"
	"strconv"
	"time"

	"authservice/internal/pkg/metrics"
	"authservice/internal/pkg/ratelimit"
	"authservice/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit allows limit requests per window per client IP under prefix.
// Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, prefix string, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := prefix + ":" + c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
		}
		if !allowed {
			metrics.RateLimitExceededTotal.Inc()
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.CustomError(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests")
			return
		}
		c.Next()
	}
}
