package stats

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordGeneration(t *testing.T) {
	c := NewCollector(nil)

	c.RecordGeneration()
	c.RecordGeneration()

	stats := c.GetStats()
	require.Equal(t, int64(2), stats.TotalGenerations)
	require.Equal(t, int64(2), stats.GenerationsSinceBoot)
	require.False(t, stats.LastActivityTime.IsZero())
}

func TestGetStatsReturnsCopy(t *testing.T) {
	c := NewCollector(nil)
	c.RecordGeneration()

	first := c.GetStats()
	first.TotalGenerations = 99

	require.Equal(t, int64(1), c.GetStats().TotalGenerations)
}

func TestFormatLastActivity(t *testing.T) {
	require.Equal(t, "never", formatLastActivity(time.Time{}))
	require.Equal(t, "just now", formatLastActivity(time.Now().Add(-time.Minute)))
	require.Equal(t, "3h ago", formatLastActivity(time.Now().Add(-3*time.Hour)))
	require.Equal(t, "2d ago", formatLastActivity(time.Now().Add(-49*time.Hour)))

	old := time.Now().AddDate(0, -2, 0)
	require.Equal(t, old.Format("2006-01-02"), formatLastActivity(old))
}

func TestGetSummary(t *testing.T) {
	s := &Stats{
		TotalThreads:   3,
		TotalMessages:  12,
		LastUpdated:    time.Now(),
		ActiveDays:     5,
	}

	summary := s.GetSummary()
	require.True(t, strings.Contains(summary, "Threads"))
	require.True(t, strings.Contains(summary, "total: 3"))
	require.True(t, strings.Contains(summary, "total: 12"))
	require.True(t, strings.Contains(summary, "never"))
}
