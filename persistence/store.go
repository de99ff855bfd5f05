// Package persistence provides durable task storage behind a common
// interface, so a coordinator restart does not lose task state.
//
// Supported backends:
//   - memory: for development and tests (default)
//   - sqlite: for single-node deployments
//   - redis:  for distributed deployments
package persistence

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrStoreClosed = errors.New("store is closed")
)

// StoreType selects the storage backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeSQLite StoreType = "sqlite"
	StoreTypeRedis  StoreType = "redis"
)

// RedisConfig contains Redis-specific configuration.
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"password"`
	DB        int    `yaml:"db" json:"db"`
	PoolSize  int    `yaml:"pool_size" json:"pool_size"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// StoreConfig configures the task store.
type StoreConfig struct {
	// Type is the storage backend type.
	Type StoreType `yaml:"type" json:"type"`

	// DSN is the SQLite database path (only used when Type is "sqlite").
	DSN string `yaml:"dsn" json:"dsn"`

	// Redis configuration (only used when Type is "redis").
	Redis RedisConfig `yaml:"redis" json:"redis"`
}

// DefaultStoreConfig returns the default store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type: StoreTypeMemory,
		DSN:  "./data/coordinator.db",
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "coordinator:",
		},
	}
}

// Store is the base interface for all persistent stores.
type Store interface {
	// Close releases store resources.
	Close() error

	// Ping checks store health.
	Ping(ctx context.Context) error
}

// TaskFilter narrows List results. Zero fields match everything.
type TaskFilter struct {
	Status   []task.Status `json:"status,omitempty"`
	Type     string        `json:"type,omitempty"`
	Strategy string        `json:"strategy,omitempty"`
	Limit    int           `json:"limit,omitempty"`
	Offset   int           `json:"offset,omitempty"`
}

func (f TaskFilter) matches(t *task.Task) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Strategy != "" && t.Strategy != f.Strategy {
		return false
	}
	if len(f.Status) > 0 {
		ok := false
		for _, s := range f.Status {
			if t.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// TaskStore persists task state across restarts. Implementations must be
// safe for concurrent use and must not retain the caller's *task.Task.
type TaskStore interface {
	Store

	// Save persists a task (create or update).
	Save(ctx context.Context, t *task.Task) error

	// Get retrieves a task by id. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (*task.Task, error)

	// List retrieves tasks matching the filter, ordered by creation time.
	List(ctx context.Context, filter TaskFilter) ([]*task.Task, error)

	// Delete removes a task. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id string) error

	// CountByStatus returns the task count per status.
	CountByStatus(ctx context.Context) (map[task.Status]int64, error)
}

// Open creates the task store selected by cfg.Type.
func Open(cfg StoreConfig, logger *zap.Logger) (TaskStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Type {
	case StoreTypeMemory, "":
		return NewMemoryTaskStore(logger), nil
	case StoreTypeSQLite:
		return NewSQLiteTaskStore(cfg.DSN, logger)
	case StoreTypeRedis:
		return NewRedisTaskStore(cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
