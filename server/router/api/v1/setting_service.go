package v1

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	apierrors "github.com/muhandis-ai/muhandis/server/internal/errors"
	"github.com/muhandis-ai/muhandis/store"
)

// userSettingResponse is the persisted preference set.
type userSettingResponse struct {
	RTL           bool    `json:"rtl"`
	Hijri         bool    `json:"hijri"`
	VoiceEnabled  bool    `json:"voiceEnabled"`
	AutoTranslate bool    `json:"autoTranslate"`
	Temperature   float64 `json:"temperature"`
}

func defaultUserSetting() userSettingResponse {
	return userSettingResponse{Temperature: 0.7}
}

// GetUserSetting returns the user's settings, falling back to defaults when
// none are stored.
func (s *APIV1Service) GetUserSetting(c echo.Context) error {
	userID := currentUserID(c)
	row, err := s.Store.GetUserSetting(c.Request().Context(), &store.FindUserSetting{UserID: &userID})
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to load settings", err))
	}

	setting := defaultUserSetting()
	if row != nil {
		if err := json.Unmarshal([]byte(row.Settings), &setting); err != nil {
			s.logger.Warn("stored settings are malformed, using defaults", "user_id", userID, "error", err)
			setting = defaultUserSetting()
		}
	}
	return c.JSON(http.StatusOK, setting)
}

// UpdateUserSetting replaces the user's settings. Temperature is clamped to
// [0, 1].
func (s *APIV1Service) UpdateUserSetting(c echo.Context) error {
	var req userSettingResponse
	if err := c.Bind(&req); err != nil {
		return writeChatError(c, apierrors.InvalidArgument("malformed settings"))
	}

	if req.Temperature < 0 {
		req.Temperature = 0
	}
	if req.Temperature > 1 {
		req.Temperature = 1
	}

	data, err := json.Marshal(req)
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to encode settings", err))
	}

	userID := currentUserID(c)
	if _, err := s.Store.UpsertUserSetting(c.Request().Context(), &store.UpsertUserSetting{
		UserID:   userID,
		Settings: string(data),
	}); err != nil {
		return writeChatError(c, apierrors.Internal("failed to store settings", err))
	}
	return c.JSON(http.StatusOK, req)
}
