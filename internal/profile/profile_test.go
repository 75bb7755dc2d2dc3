package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProfileValidate(t *testing.T) {
	dir := t.TempDir()

	t.Run("UnknownModeFallsBackToDemo", func(t *testing.T) {
		p := &Profile{Mode: "staging", Data: dir, Driver: "sqlite"}
		require.NoError(t, p.Validate())
		require.Equal(t, "demo", p.Mode)
	})

	t.Run("SQLiteDSNDefaultsIntoDataDir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Driver: "sqlite"}
		require.NoError(t, p.Validate())
		require.Contains(t, p.DSN, "muhandis_dev.db")
	})

	t.Run("AIDefaults", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Driver: "sqlite"}
		require.NoError(t, p.Validate())
		require.Equal(t, "openai", p.AIProvider)
		require.Equal(t, "gpt-4o-mini", p.AIModel)
		require.InDelta(t, 0.7, p.AITemperature, 0.001)
	})

	t.Run("TemperatureOutOfRangeReset", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Driver: "sqlite", AITemperature: 1.8}
		require.NoError(t, p.Validate())
		require.InDelta(t, 0.7, p.AITemperature, 0.001)
	})

	t.Run("MissingDataDirFails", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: "/nonexistent/muhandis-data", Driver: "sqlite"}
		require.Error(t, p.Validate())
	})
}

func TestIsAIEnabled(t *testing.T) {
	p := &Profile{AIEnabled: true}
	require.False(t, p.IsAIEnabled())

	p.AIAPIKey = "sk-test"
	require.True(t, p.IsAIEnabled())

	p.AIEnabled = false
	require.False(t, p.IsAIEnabled())
}
