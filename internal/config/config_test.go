package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MIRADOR_GATE_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":50061", cfg.Server.Address)
	assert.Equal(t, "configs/policy/default.yaml", cfg.Policy.Path)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "@daily", cfg.History.PruneSchedule)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.yaml")
	doc := `
server:
  address: ":6000"
clients:
  registry:
    baseURL: http://registry:8080
policy:
  path: /etc/gate/policy.yaml
  watch: false
cache:
  decisionTTL: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	t.Setenv("MIRADOR_GATE_LOG_FORMAT", "json")
	t.Setenv("MIRADOR_GATE_CACHE_UNITS_TTL", "45s")
	t.Setenv("MIRADOR_GATE_HISTORY_ENABLED", "false")
	t.Setenv("MIRADOR_GATE_CACHE_DB", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.Server.Address)
	assert.Equal(t, ":8081", cfg.Server.HTTPAddress, "unset keys keep defaults")
	assert.Equal(t, "http://registry:8080", cfg.Clients.Registry.BaseURL)
	assert.Equal(t, "/etc/gate/policy.yaml", cfg.Policy.Path)
	assert.False(t, cfg.Policy.Watch)
	assert.Equal(t, time.Minute, cfg.Cache.DecisionTTL)
	assert.Equal(t, 45*time.Second, cfg.Cache.UnitsTTL)
	assert.True(t, cfg.Logging.JSON)
	assert.False(t, cfg.History.Enabled)
	assert.Zero(t, cfg.Cache.DB)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Clients.Registry.BaseURL = "registry:8080"
	cfg.Cache.Enabled = true
	cfg.Policy.Path = ""
	cfg.History.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"baseURL", "cache.addr", "policy.watch", "history.path"} {
		assert.Contains(t, err.Error(), want)
	}
}
