package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots", nil)
	req.Header.Set("X-Forwarded-For", ip)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterInMemory(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, nil)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2").Code)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRedisRateLimiter(rdb, 2, time.Minute, "test", nil)
	h := rl.Middleware(nil, false)(okHandler())

	first := hit(h, "10.0.0.9")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, http.StatusOK, hit(h, "10.0.0.9").Code)

	blocked := hit(h, "10.0.0.9")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))
	assert.True(t, mr.Exists("test:10.0.0.9"))

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.9").Code)
}

func TestRedisRateLimiterFailOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	open := NewRedisRateLimiter(rdb, 1, time.Minute, "", nil).Middleware(nil, true)(okHandler())
	assert.Equal(t, http.StatusOK, hit(open, "10.0.0.3").Code)

	closed := NewRedisRateLimiter(rdb, 1, time.Minute, "", nil).Middleware(nil, false)(okHandler())
	assert.Equal(t, http.StatusServiceUnavailable, hit(closed, "10.0.0.3").Code)
}
