package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arashek/ADE-stable-1.0-sub011/persistence"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, persistence.StoreTypeMemory, cfg.Store.Type)
	assert.Equal(t, 30*time.Second, cfg.Coordination.RoundTimeout)
	assert.Equal(t, 5, cfg.Coordination.MaxRounds)
	assert.InDelta(t, 0.75, cfg.Coordination.ConsensusThreshold, 0.001)
	assert.Equal(t, task.StrategyParallel, cfg.Coordination.DefaultStrategy)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
log:
  level: debug
  format: console
store:
  type: sqlite
  dsn: /tmp/tasks.db
coordination:
  max_rounds: 3
  consensus_threshold: 0.6
  priority_attributes: [severity]
agents:
  - id: security-1
    type: security
    capabilities: [code_review]
    priority: 1
    endpoint: http://localhost:9001/evaluate
`), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, persistence.StoreTypeSQLite, cfg.Store.Type)
	assert.Equal(t, 3, cfg.Coordination.MaxRounds)
	assert.InDelta(t, 0.6, cfg.Coordination.ConsensusThreshold, 0.001)
	assert.Equal(t, []string{"severity"}, cfg.Coordination.PriorityAttributes)
	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, "security-1", cfg.Agents[0].ID)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COORDTEST_SERVER_ADDR", ":7070")
	t.Setenv("COORDTEST_LOG_LEVEL", "warn")
	t.Setenv("COORDTEST_COORDINATION_MAX_ROUNDS", "7")
	t.Setenv("COORDTEST_COORDINATION_ROUND_TIMEOUT", "45s")
	t.Setenv("COORDTEST_TELEMETRY_ENABLED", "true")
	t.Setenv("COORDTEST_COORDINATION_PRIORITY_ATTRIBUTES", "severity, verdict")

	cfg, err := NewLoader().WithEnvPrefix("COORDTEST").Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Coordination.MaxRounds)
	assert.Equal(t, 45*time.Second, cfg.Coordination.RoundTimeout)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, []string{"severity", "verdict"}, cfg.Coordination.PriorityAttributes)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"threshold above one", func(c *Config) { c.Coordination.ConsensusThreshold = 1.5 }},
		{"bad store type", func(c *Config) { c.Store.Type = "etcd" }},
		{"agent without endpoint", func(c *Config) {
			c.Agents = []AgentConfig{{ID: "a", Priority: 1}}
		}},
		{"agent priority zero", func(c *Config) {
			c.Agents = []AgentConfig{{ID: "a", Priority: 0, Endpoint: "http://x"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCustomValidatorRuns(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			return assert.AnError
		}).
		Load()
	assert.Error(t, err)
}

func TestBuildLogger(t *testing.T) {
	cfg := Default()
	logger, err := cfg.BuildLogger()
	require.NoError(t, err)
	logger.Sync()

	cfg.Log.Level = "sideways"
	_, err = cfg.BuildLogger()
	assert.Error(t, err)
}
