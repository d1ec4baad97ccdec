package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 0.6, cfg.ConfidenceFloor)
	assert.Equal(t, ":8080", cfg.APIListen)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
poll_interval: 10s
confidence_floor: 0.75
strategy_params:
  ETH:
    rsi:
      period: 9
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 0.75, cfg.ConfidenceFloor)
	assert.Equal(t, 100, cfg.CandleCount, "untouched default survives")
	assert.Equal(t, 9, cfg.StrategyParams["ETH"]["rsi"]["period"])
}

func TestLoadSecretsFromEnvironment(t *testing.T) {
	t.Setenv("WALLEX_API_KEY", "key-from-env")
	t.Setenv("DB_CONN_STR", "postgres://env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", cfg.WallexAPIKey)
	assert.Equal(t, "postgres://env", cfg.DBConnStr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"non-positive poll interval", "poll_interval: 0s"},
		{"confidence floor above one", "confidence_floor: 1.5"},
		{"non-positive order size", "order_size: 0"},
		{"non-positive candle count", "candle_count: -3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
