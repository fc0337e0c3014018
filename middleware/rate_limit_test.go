package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "success")
}

func hit(e *echo.Echo, handler echo.HandlerFunc, client string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if client != "" {
		req.Header.Set("X-Client", client)
	}
	rec := httptest.NewRecorder()
	return rec, handler(e.NewContext(req, rec))
}

func TestNewRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	defer rl.Stop()

	assert.Equal(t, 1, rl.config.Requests)
	assert.Equal(t, time.Minute, rl.config.Window)
	assert.NotNil(t, rl.config.KeyFunc)
	assert.Equal(t, "Too many requests. Please try again later.", rl.config.Message)
}

func TestRateLimiterMiddleware(t *testing.T) {
	e := echo.New()

	t.Run("Burst then reject", func(t *testing.T) {
		rl := NewRateLimiter(RateLimitConfig{Requests: 2, Window: time.Minute, Message: "Too many exports"})
		defer rl.Stop()
		handler := rl.Middleware()(okHandler)

		rec, err := hit(e, handler, "")
		require.NoError(t, err)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

		rec, err = hit(e, handler, "")
		require.NoError(t, err)
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		rec, err = hit(e, handler, "")
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusTooManyRequests, he.Code)
		assert.Equal(t, "Too many exports", he.Message)
		// One token refills every 30s
		assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	})

	t.Run("Tokens refill over the window", func(t *testing.T) {
		rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute})
		defer rl.Stop()
		now := time.Now()
		rl.now = func() time.Time { return now }
		handler := rl.Middleware()(okHandler)

		_, err := hit(e, handler, "")
		require.NoError(t, err)
		rec, err := hit(e, handler, "")
		require.Error(t, err)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))

		now = now.Add(time.Minute)
		_, err = hit(e, handler, "")
		assert.NoError(t, err)
	})

	t.Run("Rejected requests do not consume tokens", func(t *testing.T) {
		rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute})
		defer rl.Stop()
		now := time.Now()
		rl.now = func() time.Time { return now }
		handler := rl.Middleware()(okHandler)

		_, err := hit(e, handler, "")
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			_, err = hit(e, handler, "")
			require.Error(t, err)
		}
		now = now.Add(time.Minute)
		_, err = hit(e, handler, "")
		assert.NoError(t, err)
	})

	t.Run("Separate keys", func(t *testing.T) {
		rl := NewRateLimiter(RateLimitConfig{
			Requests: 1,
			Window:   time.Minute,
			KeyFunc:  func(c echo.Context) string { return c.Request().Header.Get("X-Client") },
		})
		defer rl.Stop()
		handler := rl.Middleware()(okHandler)

		for _, client := range []string{"a", "b"} {
			rec, err := hit(e, handler, client)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
		_, err := hit(e, handler, "a")
		assert.Error(t, err)
	})
}

func TestRateLimiterPurge(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute})
	defer rl.Stop()

	now := time.Now()
	rl.visitor("old", now.Add(-2*time.Minute))
	rl.visitor("live", now.Add(-time.Second))

	assert.Equal(t, 1, rl.purge(now))
	assert.Contains(t, rl.visitors, "live")
	assert.NotContains(t, rl.visitors, "old")

	rl.Stop()
	rl.Stop()
}
