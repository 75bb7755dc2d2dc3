package v1

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/muhandis-ai/muhandis/internal/profile"
	"github.com/muhandis-ai/muhandis/plugin/generator"
	"github.com/muhandis-ai/muhandis/server/finops"
	apierrors "github.com/muhandis-ai/muhandis/server/internal/errors"
	"github.com/muhandis-ai/muhandis/server/stats"
	"github.com/muhandis-ai/muhandis/store"
)

// APIV1Service serves the chat HTTP API.
type APIV1Service struct {
	Secret   string
	Profile  *profile.Profile
	Store    *store.Store
	Producer generator.Producer
	Usage    *finops.UsageMonitor
	Stats    *stats.Collector

	logger *slog.Logger

	// chat is the per-process generation state; only one generation may run
	// at a time.
	chat *chatState

	// thumbnailSemaphore limits concurrent thumbnail generation to keep
	// memory bounded.
	thumbnailSemaphore *semaphore.Weighted
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(secret string, prof *profile.Profile, st *store.Store, producer generator.Producer, logger *slog.Logger) *APIV1Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIV1Service{
		Secret:             secret,
		Profile:            prof,
		Store:              st,
		Producer:           producer,
		Usage:              finops.NewUsageMonitor(st),
		Stats:              stats.NewCollector(st),
		logger:             logger,
		chat:               &chatState{},
		thumbnailSemaphore: semaphore.NewWeighted(3),
	}
}

// RegisterRoutes mounts the v1 API on the echo server.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")

	api.POST("/auth/signin", s.SignIn)
	api.GET("/auth/me", s.Me)

	api.GET("/threads", s.ListThreads)
	api.POST("/threads", s.CreateThread)
	api.GET("/threads/:uid", s.GetThread)
	api.PATCH("/threads/:uid", s.UpdateThread)
	api.DELETE("/threads/:uid", s.DeleteThread)

	api.GET("/threads/:uid/messages", s.ListMessages)
	api.POST("/threads/:uid/messages", s.SendMessage)
	api.POST("/generation/stop", s.StopGeneration)

	api.GET("/user/setting", s.GetUserSetting)
	api.PUT("/user/setting", s.UpdateUserSetting)

	api.POST("/attachments", s.CreateAttachment)
	e.GET("/file/attachments/:filename", s.GetAttachment)

	api.GET("/system/profile", s.GetSystemProfile)
	api.GET("/system/metrics", s.GetSystemMetrics)
	api.GET("/system/stats", s.GetSystemStats)
	api.GET("/system/usage", s.GetUsageReport)
}

// writeChatError maps a service error onto an HTTP response.
func writeChatError(c echo.Context, err error) error {
	var chatErr *apierrors.ChatError
	if !stderrors.As(err, &chatErr) {
		chatErr = apierrors.Internal("unexpected error", err)
	}
	return c.JSON(chatErr.HTTPStatus(), map[string]string{
		"code":    string(chatErr.Code),
		"message": chatErr.Message,
	})
}
