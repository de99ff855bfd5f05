package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/coordination"
	"github.com/Arashek/ADE-stable-1.0-sub011/internal/server"
	"github.com/Arashek/ADE-stable-1.0-sub011/internal/telemetry"
	"github.com/Arashek/ADE-stable-1.0-sub011/persistence"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

// Default returns the complete default configuration.
func Default() *Config {
	return &Config{
		Server: server.DefaultConfig(),
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Telemetry:        telemetry.DefaultConfig(),
		Store:            persistence.DefaultStoreConfig(),
		Registry:         agent.DefaultRegistryConfig(),
		Coordination:     coordination.DefaultConfig(),
		Manager:          task.DefaultManagerConfig(),
		MetricsNamespace: "coordinator",
	}
}

// BuildLogger constructs a zap logger from the log section.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", c.Log.Level, err)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(c.Log.OutputPaths) > 0 {
		zc.OutputPaths = c.Log.OutputPaths
	}
	return zc.Build()
}
