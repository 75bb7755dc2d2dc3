package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(10, 5)

	for i := 0; i < 5; i++ {
		require.True(t, rl.Allow("user-a"))
	}
	require.False(t, rl.Allow("user-a"))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(10, 1)

	require.True(t, rl.Allow("user-a"))
	require.False(t, rl.Allow("user-a"))
	require.True(t, rl.Allow("user-b"))
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	require.True(t, rl.Allow("anyone"))
}

func TestRateLimitMiddlewareRejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	e := echo.New()
	handler := rl.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	newCtx := func() echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/threads", nil)
		rec := httptest.NewRecorder()
		return e.NewContext(req, rec)
	}

	require.NoError(t, handler(newCtx()))

	err := handler(newCtx())
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusTooManyRequests, httpErr.Code)
}
