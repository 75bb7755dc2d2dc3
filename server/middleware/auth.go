package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	// UserContextKey is the echo context key holding the authenticated user name.
	UserContextKey = "auth-user"
	// UserIDContextKey is the echo context key holding the authenticated user id.
	UserIDContextKey = "auth-user-id"

	issuer         = "muhandis"
	keyID          = "v1"
	tokenLifetime  = 7 * 24 * time.Hour
	bearerPrefix   = "Bearer "
	cookieName     = "muhandis.access-token"
	audienceAccess = "user.access-token"
)

// ClaimsMessage is the JWT payload for access tokens.
type ClaimsMessage struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateAccessToken issues a signed HS256 access token for the user.
func GenerateAccessToken(userName string, userID int32, secret string) (string, error) {
	now := time.Now()
	claims := &ClaimsMessage{
		Name: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audienceAccess},
			Subject:   userName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			ID:        userIDString(userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = keyID
	return token.SignedString([]byte(secret))
}

// parseAccessToken validates the token signature and audience.
func parseAccessToken(tokenString, secret string) (*ClaimsMessage, error) {
	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithAudience(audienceAccess), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, errors.Wrap(err, "parse access token")
	}
	return claims, nil
}

// Authenticator validates bearer tokens on incoming requests.
type Authenticator struct {
	secret      string
	publicPaths map[string]bool
}

// NewAuthenticator creates an authenticator with the server signing secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: secret,
		publicPaths: map[string]bool{
			"/healthz":            true,
			"/api/v1/auth/signin": true,
		},
	}
}

// Middleware returns an echo middleware enforcing authentication on
// non-public routes. Successful auth stores the user identity on the context.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if a.publicPaths[c.Path()] || strings.HasPrefix(c.Path(), "/file/") {
				return next(c)
			}

			tokenString := extractToken(c)
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			claims, err := parseAccessToken(tokenString, a.secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}

			c.Set(UserContextKey, claims.Name)
			c.Set(UserIDContextKey, parseUserID(claims.ID))
			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimPrefix(auth, bearerPrefix)
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	// SSE clients (EventSource) cannot set headers; allow the token in query.
	return c.QueryParam("access_token")
}

func userIDString(id int32) string {
	return strconv.FormatInt(int64(id), 10)
}

func parseUserID(s string) int32 {
	n, _ := strconv.ParseInt(s, 10, 32)
	return int32(n)
}
