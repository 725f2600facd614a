package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitAllowsBurst(t *testing.T) {
	handler := RateLimit(t.Context(), RateLimitConfig{Rate: 0.001, Burst: 3})(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	handler := RateLimit(t.Context(), RateLimitConfig{Rate: 0.001, Burst: 1})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitRefills(t *testing.T) {
	l := newLimiter(RateLimitConfig{Rate: 10, Burst: 1})
	now := time.Now()

	_, allowed := l.take("k", now)
	require.True(t, allowed)

	_, allowed = l.take("k", now)
	require.False(t, allowed)

	// 100ms at 10 req/s refills one token.
	_, allowed = l.take("k", now.Add(100*time.Millisecond))
	assert.True(t, allowed)
}

func TestRateLimitUsesForwardedFor(t *testing.T) {
	handler := RateLimit(t.Context(), RateLimitConfig{Rate: 0.001, Burst: 1})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:1111"
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Same forwarded client from a different proxy address is the same key.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.2:2222"
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestEvictStaleDropsIdleBuckets(t *testing.T) {
	l := newLimiter(RateLimitConfig{Rate: 1, Burst: 1})
	now := time.Now()

	_, allowed := l.take("k", now)
	require.True(t, allowed)
	require.Len(t, l.buckets, 1)

	l.evictStale(now.Add(5 * time.Minute))
	assert.Empty(t, l.buckets)
}
