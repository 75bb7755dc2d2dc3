package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	apierrors "github.com/muhandis-ai/muhandis/server/internal/errors"
	"github.com/muhandis-ai/muhandis/server/middleware"
)

// hostUserID is the id of the single host user. The instance is personal;
// there is no user table.
const hostUserID int32 = 1

const hostUserName = "host"

type signInRequest struct {
	AccessKey string `json:"accessKey"`
}

type signInResponse struct {
	AccessToken string `json:"accessToken"`
	User        user   `json:"user"`
}

type user struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// SignIn exchanges the shared access key for a signed token.
func (s *APIV1Service) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return writeChatError(c, apierrors.InvalidArgument("malformed sign-in request"))
	}

	if s.Profile.AccessKeyHash == "" {
		return writeChatError(c, apierrors.Unauthorized("sign-in is disabled on this instance"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.Profile.AccessKeyHash), []byte(req.AccessKey)); err != nil {
		s.logger.Warn("rejected sign-in attempt", "remote_ip", c.RealIP())
		return writeChatError(c, apierrors.Unauthorized("invalid access key"))
	}

	token, err := middleware.GenerateAccessToken(hostUserName, hostUserID, s.Secret)
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to issue access token", err))
	}

	return c.JSON(http.StatusOK, signInResponse{
		AccessToken: token,
		User:        user{ID: hostUserID, Name: hostUserName},
	})
}

// Me returns the authenticated user.
func (s *APIV1Service) Me(c echo.Context) error {
	name, _ := c.Get(middleware.UserContextKey).(string)
	id, _ := c.Get(middleware.UserIDContextKey).(int32)
	return c.JSON(http.StatusOK, user{ID: id, Name: name})
}
