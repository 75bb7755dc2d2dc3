package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("host", 1, testSecret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := parseAccessToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "host", claims.Name)
	require.Equal(t, "1", claims.ID)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("host", 1, testSecret)
	require.NoError(t, err)

	_, err = parseAccessToken(token, "other-secret")
	require.Error(t, err)
}

func newAuthRequest(t *testing.T, path string, header string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	return c, rec
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	a := NewAuthenticator(testSecret)
	handler := a.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	c, _ := newAuthRequest(t, "/api/v1/threads", "")
	err := handler(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAuthMiddlewareAllowsPublicPath(t *testing.T) {
	a := NewAuthenticator(testSecret)
	handler := a.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	c, rec := newAuthRequest(t, "/healthz", "")
	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	token, err := GenerateAccessToken("host", 42, testSecret)
	require.NoError(t, err)

	a := NewAuthenticator(testSecret)
	var gotUser string
	var gotID int32
	handler := a.Middleware()(func(c echo.Context) error {
		gotUser, _ = c.Get(UserContextKey).(string)
		gotID, _ = c.Get(UserIDContextKey).(int32)
		return c.NoContent(http.StatusOK)
	})

	c, rec := newAuthRequest(t, "/api/v1/threads", bearerPrefix+token)
	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "host", gotUser)
	require.Equal(t, int32(42), gotID)
}

func TestAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	token, err := GenerateAccessToken("host", 1, testSecret)
	require.NoError(t, err)

	a := NewAuthenticator(testSecret)
	handler := a.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/threads?access_token="+token, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/threads")

	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
}
