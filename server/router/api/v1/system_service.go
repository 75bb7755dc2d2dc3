package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apierrors "github.com/muhandis-ai/muhandis/server/internal/errors"
	"github.com/muhandis-ai/muhandis/server/internal/observability"
)

type systemProfileResponse struct {
	Version   string `json:"version"`
	Mode      string `json:"mode"`
	AIEnabled bool   `json:"aiEnabled"`
	AIModel   string `json:"aiModel,omitempty"`
}

// GetSystemProfile returns the public view of the instance configuration.
func (s *APIV1Service) GetSystemProfile(c echo.Context) error {
	resp := systemProfileResponse{
		Version:   s.Profile.Version,
		Mode:      s.Profile.Mode,
		AIEnabled: s.Profile.IsAIEnabled(),
	}
	if resp.AIEnabled {
		resp.AIModel = s.Profile.AIModel
	}
	return c.JSON(http.StatusOK, resp)
}

// GetSystemMetrics returns the in-process generation metrics.
func (s *APIV1Service) GetSystemMetrics(c echo.Context) error {
	snapshot := observability.GlobalMetrics().Snapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"metrics":     snapshot,
		"successRate": snapshot.SuccessRate(),
	})
}

// GetSystemStats returns usage statistics.
func (s *APIV1Service) GetSystemStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Stats.GetStats())
}

// GetUsageReport returns the aggregated generation usage for a period.
func (s *APIV1Service) GetUsageReport(c echo.Context) error {
	period := c.QueryParam("period")
	if period == "" {
		period = "daily"
	}

	report, err := s.Usage.Report(c.Request().Context(), period)
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to build usage report", err))
	}
	return c.JSON(http.StatusOK, report)
}
