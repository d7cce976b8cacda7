package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ankitaduttagupta/ticketing-service/internal/config"
)

func newLimitedEcho(t *testing.T, cfg config.RateLimitConfig) *echo.Echo {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	e.POST("/purchase/:class", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, NewTokenBucket(cfg, rdb))
	return e
}

func hit(e *echo.Echo) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/purchase/1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucketThrottlesAfterCapacity(t *testing.T) {
	e := newLimitedEcho(t, config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour, // no refill during the test
		TTL:            time.Hour,
		Prefix:         "rl",
	})

	require.Equal(t, http.StatusOK, hit(e).Code)
	require.Equal(t, http.StatusOK, hit(e).Code)

	rec := hit(e)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	e := newLimitedEcho(t, config.RateLimitConfig{Enabled: false})
	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, hit(e).Code)
	}
}
