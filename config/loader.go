// Package config loads the coordinator configuration from YAML with
// environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("COORDINATOR").
//	    Load()
//
// Precedence: defaults, then YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/coordination"
	"github.com/Arashek/ADE-stable-1.0-sub011/internal/server"
	"github.com/Arashek/ADE-stable-1.0-sub011/internal/telemetry"
	"github.com/Arashek/ADE-stable-1.0-sub011/persistence"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

// Config is the complete coordinator configuration.
type Config struct {
	// Server tunes the HTTP listener.
	Server server.Config `yaml:"server"`

	// Log configures the zap logger.
	Log LogConfig `yaml:"log"`

	// Telemetry configures the OpenTelemetry SDK.
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Store selects and configures the task store backend.
	Store persistence.StoreConfig `yaml:"store"`

	// Registry configures per-agent invocation rate limiting.
	Registry agent.RegistryConfig `yaml:"registry"`

	// Coordination tunes the strategies and conflict resolution.
	Coordination coordination.Config `yaml:"coordination"`

	// Manager tunes task scheduling and the worker pool.
	Manager task.ManagerConfig `yaml:"manager"`

	// MetricsNamespace prefixes all Prometheus metrics.
	MetricsNamespace string `yaml:"metrics_namespace"`

	// Agents is the static agent roster registered at startup.
	Agents []AgentConfig `yaml:"agents"`
}

// AgentConfig describes one statically configured remote agent.
type AgentConfig struct {
	ID           string   `yaml:"id"`
	Type         string   `yaml:"type"`
	Capabilities []string `yaml:"capabilities"`
	Priority     int      `yaml:"priority"`
	Weight       float64  `yaml:"weight"`
	Endpoint     string   `yaml:"endpoint"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is json or console.
	Format string `yaml:"format"`

	OutputPaths []string `yaml:"output_paths"`
}

// Loader builds a Config from defaults, file and environment.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a config loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix: "COORDINATOR",
	}
}

// WithConfigPath sets the YAML file to load. A missing file is not an
// error; defaults apply.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a validation hook run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := applyEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
	}
	return cfg, nil
}

// MustLoad loads the configuration or panics.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}
	return cfg
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv walks the config struct and overrides fields from environment
// variables named PREFIX_SECTION_FIELD after the yaml tags.
func applyEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		name := yamlName(t.Field(i))
		if name == "" {
			continue
		}
		key := prefix + "_" + strings.ToUpper(name)

		if field.Kind() == reflect.Struct {
			if err := applyEnv(field, key); err != nil {
				return err
			}
			continue
		}

		value := os.Getenv(key)
		if value == "" {
			continue
		}
		if err := setField(field, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func yamlName(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return ""
	}
	if i := strings.Index(tag, ","); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

// Validate rejects configurations the coordinator cannot run with.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}
	if c.Coordination.ConsensusThreshold < 0 || c.Coordination.ConsensusThreshold > 1 {
		errs = append(errs, "coordination.consensus_threshold must be in [0, 1]")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be in [0, 1]")
	}
	switch c.Store.Type {
	case persistence.StoreTypeMemory, persistence.StoreTypeSQLite, persistence.StoreTypeRedis, "":
	default:
		errs = append(errs, "unknown store.type: "+string(c.Store.Type))
	}
	for _, a := range c.Agents {
		if a.ID == "" {
			errs = append(errs, "agent id is required")
		}
		if a.Priority < 1 {
			errs = append(errs, "agent "+a.ID+" priority must be >= 1")
		}
		if a.Endpoint == "" {
			errs = append(errs, "agent "+a.ID+" endpoint is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation: %s", strings.Join(errs, "; "))
	}
	return nil
}
