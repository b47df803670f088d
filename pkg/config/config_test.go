package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeTempConfig(t *testing.T, cfg any) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	tmp := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmp, data, 0644))
	return tmp
}

func TestLoadFromConfigFilePath(t *testing.T) {
	path := writeTempConfig(t, map[string]any{
		"server":  map[string]any{"port": 9090},
		"storage": map[string]any{"driver": "memory"},
		"ledger":  map[string]any{"fine_daily_rate": "0.02", "overpayment": "carry_forward"},
	})

	cfg, err := LoadFromConfigFilePath(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "carry_forward", cfg.Ledger.Overpayment)
	assert.True(t, cfg.FineRate().Equal(decimal.RequireFromString("0.02")))

	// untouched keys keep their defaults
	assert.True(t, cfg.CycleRate().Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 3, cfg.Alerts.DaysBefore)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())
}

func TestEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, map[string]any{"server": map[string]any{"port": 9090}})
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("STORAGE_DSN", "/tmp/override.db")
	t.Setenv("ALERTS_DAYS_BEFORE", "not-a-number")

	cfg, err := LoadFromConfigFilePath(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/tmp/override.db", cfg.Storage.DSN)
	assert.Equal(t, 3, cfg.Alerts.DaysBefore)
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"port out of range", func(c *AppConfig) { c.Server.Port = 0 }},
		{"unknown driver", func(c *AppConfig) { c.Storage.Driver = "postgres" }},
		{"sqlite without dsn", func(c *AppConfig) { c.Storage.DSN = " " }},
		{"bad timezone", func(c *AppConfig) { c.Ledger.Timezone = "Mars/Olympus" }},
		{"negative fine rate", func(c *AppConfig) { c.Ledger.FineDailyRate = "-0.01" }},
		{"non-numeric cycle rate", func(c *AppConfig) { c.Ledger.NewCycleRate = "ten" }},
		{"unknown overpayment policy", func(c *AppConfig) { c.Ledger.Overpayment = "refund" }},
		{"negative alert window", func(c *AppConfig) { c.Alerts.DaysBefore = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaultConfig()
			tt.mutate(&c)
			assert.Error(t, validateConfig(&c))
		})
	}

	c := defaultConfig()
	assert.NoError(t, validateConfig(&c))
}

func TestLoadFromConfigFilePath_Errors(t *testing.T) {
	_, err := LoadFromConfigFilePath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [1, 2"), 0644))
	_, err = LoadFromConfigFilePath(bad)
	assert.Error(t, err)
}

func TestLoadFromConfig_FallsBackToDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := LoadFromConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
}
