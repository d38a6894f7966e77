package middleware

import (
	"net/http"
	"strconv"
	"time"

	"librestock/pkg/ratelimit"
	"librestock/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthRateLimit gates authentication-adjacent endpoints with the given
// limiter, keyed by client address. Every response carries the limit and
// remaining-quota headers; rejections add Retry-After.
func AuthRateLimit(limiter ratelimit.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			key = ratelimit.FallbackKey
		}

		res, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// The limiter mitigates abuse; an unavailable backend must not
			// take authentication down with it.
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))

		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter/time.Second)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				response.Error(http.StatusTooManyRequests, "Too many authentication attempts. Please try again later."))
			return
		}

		c.Next()
	}
}
