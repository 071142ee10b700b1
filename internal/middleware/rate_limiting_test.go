package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/2beens/blogstore/internal/telemetry/metrics"
)

type testRateLimiter struct {
	allowed int
	err     error
	keys    []string
}

func (l *testRateLimiter) Allow(_ context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return nil, l.err
	}
	return &redis_rate.Result{
		Limit:      limit,
		Allowed:    l.allowed,
		RetryAfter: 2 * time.Second,
	}, nil
}

func TestRateLimit(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	limiter := &testRateLimiter{allowed: 1}
	rr := httptest.NewRecorder()
	RateLimit(limiter, "auth", 5, metricsManager)(next).ServeHTTP(rr, httptest.NewRequest("POST", "/a/login", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"auth:192.0.2.1"}, limiter.keys)

	req := httptest.NewRequest("POST", "/a/login", nil)
	req.RemoteAddr = "garbage"
	RateLimit(limiter, "auth", 5, metricsManager)(next).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, []string{"auth:192.0.2.1", "auth"}, limiter.keys)

	limiter = &testRateLimiter{allowed: 0}
	rr = httptest.NewRecorder()
	RateLimit(limiter, "auth", 5, metricsManager)(next).ServeHTTP(rr, httptest.NewRequest("POST", "/a/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "retry after 2.000000 seconds")
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterRateLimitedRequests))

	limiter = &testRateLimiter{err: errors.New("redis down")}
	rr = httptest.NewRecorder()
	RateLimit(limiter, "auth", 5, metricsManager)(next).ServeHTTP(rr, httptest.NewRequest("POST", "/a/login", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
