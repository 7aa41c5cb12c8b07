package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.TickRateHz)
	assert.Equal(t, 10, cfg.Reflex.OverrideDurationDefaultTicks)
	assert.Equal(t, 15, cfg.Reflex.OverrideDurationCriticalTicks)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().TickRateHz, cfg.TickRateHz)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickRateHz = 10
	cfg.LoopBreaker.Threshold = 7

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.TickRateHz)
	assert.Equal(t, 7, loaded.LoopBreaker.Threshold)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("endpoint override", func(t *testing.T) {
		t.Setenv("AGENTCORE_TASK_HISTORY_ENDPOINT", "http://example.test")
		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "http://example.test", cfg.TaskHistory.EndpointBase)
	})

	t.Run("debug flag override", func(t *testing.T) {
		t.Setenv("AGENTCORE_DEBUG", "true")
		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Logging.DebugMode)
	})

	t.Run("tick rate override ignores non-positive", func(t *testing.T) {
		t.Setenv("AGENTCORE_TICK_RATE_HZ", "0")
		cfg := &Config{TickRateHz: 5}
		cfg.applyEnvOverrides()
		assert.Equal(t, 5, cfg.TickRateHz)
	})
}

func TestValidateRejectsBadAgingThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Belief.AgingK1Ticks = 10
	cfg.Belief.AgingK2Ticks = 5
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsTaskHistoryLimitAbove50(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TaskHistory.MaxLimit = 51
	require.Error(t, cfg.Validate())
}

func TestTickIntervalDerivedFromRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickRateHz = 5
	assert.Equal(t, int64(200), cfg.TickInterval().Milliseconds())
}
