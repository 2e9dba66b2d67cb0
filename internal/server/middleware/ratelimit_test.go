package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newEngine(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func ping(r http.Handler, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":12345"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, zap.NewNop())
	r := newEngine(rl.Middleware())

	assert.Equal(t, http.StatusOK, ping(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, ping(r, "10.0.0.1").Code)

	w := ping(r, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"status":429`)

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, ping(r, "10.0.0.2").Code)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, zap.NewNop())
	now := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("10.0.0.1")
	now = now.Add(limiterTTL / 2)
	rl.getLimiter("10.0.0.2")

	now = now.Add(limiterTTL/2 + time.Second)
	rl.Cleanup()

	assert.NotContains(t, rl.clients, "10.0.0.1")
	assert.Contains(t, rl.clients, "10.0.0.2")
}

func TestRedisRateLimit_FailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	r := newEngine(RedisRateLimit(rdb, 1, time.Second, zap.NewNop()))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, ping(r, "10.0.0.1").Code)
	}
}

// countingRedis answers INCR from a local counter and fails PEXPIRE on demand.
type countingRedis struct {
	redis.Cmdable
	count     int64
	expireErr error
	expires   int
}

func (r *countingRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	r.count++
	return redis.NewIntResult(r.count, nil)
}

func (r *countingRedis) PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	r.expires++
	return redis.NewBoolResult(r.expireErr == nil, r.expireErr)
}

func TestRedisRateLimit_RejectsOverLimit(t *testing.T) {
	rdb := &countingRedis{}
	r := newEngine(RedisRateLimit(rdb, 2, 2*time.Second, zap.NewNop()))

	assert.Equal(t, http.StatusOK, ping(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, ping(r, "10.0.0.1").Code)

	w := ping(r, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, 1, rdb.expires) // only the first hit in a window sets the expiry
}

func TestRedisRateLimit_LogsExpireFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rdb := &countingRedis{expireErr: errors.New("READONLY replica")}
	r := newEngine(RedisRateLimit(rdb, 10, time.Second, zap.New(core)))

	assert.Equal(t, http.StatusOK, ping(r, "10.0.0.1").Code)

	entries := logs.FilterMessage("Failed to set rate limit window expiry").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "READONLY replica", entries[0].ContextMap()["error"])
	}
}
