package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"librestock/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newRateLimitRouter(limiter ratelimit.Limiter) *gin.Engine {
	router := gin.New()
	router.POST("/auth/sign-in", AuthRateLimit(limiter, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func postSignIn(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", nil)
	req.RemoteAddr = "10.0.0.7:52114"
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRateLimit_HeadersAndRejection(t *testing.T) {
	router := newRateLimitRouter(ratelimit.NewMemory(3, time.Minute))

	for i := 0; i < 3; i++ {
		w := postSignIn(router)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}

	w := postSignIn(router)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, w.Body.String(), "Too many authentication attempts")

	retryAfter := w.Header().Get("Retry-After")
	assert.NotEmpty(t, retryAfter)
	assert.NotEqual(t, "0", retryAfter)
}

func TestAuthRateLimit_RemainingCountsDown(t *testing.T) {
	router := newRateLimitRouter(ratelimit.NewMemory(2, time.Minute))

	w := postSignIn(router)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = postSignIn(router)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis: connection refused")
}

func TestAuthRateLimit_BackendFailureFailsOpen(t *testing.T) {
	router := newRateLimitRouter(brokenLimiter{})

	w := postSignIn(router)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}
