package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

// RedisTaskStore persists tasks in Redis for distributed deployments.
// Each task lives in its own key; a sorted set scored by creation time
// keeps the listing order.
type RedisTaskStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisTaskStore connects to Redis and verifies the connection.
func NewRedisTaskStore(cfg RedisConfig, logger *zap.Logger) (*RedisTaskStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "coordinator:"
	}
	logger.Info("redis task store connected", zap.String("addr", cfg.Addr))
	return &RedisTaskStore{
		client: client,
		prefix: prefix,
		logger: logger.With(zap.String("component", "redis_task_store")),
	}, nil
}

func (s *RedisTaskStore) taskKey(id string) string { return s.prefix + "task:" + id }
func (s *RedisTaskStore) indexKey() string         { return s.prefix + "tasks" }

func (s *RedisTaskStore) Save(ctx context.Context, t *task.Task) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", t.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.taskKey(t.ID), payload, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(t.CreatedAt.UnixNano()),
		Member: t.ID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisTaskStore) Get(ctx context.Context, id string) (*task.Task, error) {
	payload, err := s.client.Get(ctx, s.taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t task.Task
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &t, nil
}

func (s *RedisTaskStore) List(ctx context.Context, filter TaskFilter) ([]*task.Task, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	matched := make([]*task.Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.matches(t) {
			matched = append(matched, t)
		}
	}
	return paginate(matched, filter.Offset, filter.Limit), nil
}

func (s *RedisTaskStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.taskKey(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisTaskStore) CountByStatus(ctx context.Context) (map[task.Status]int64, error) {
	tasks, err := s.List(ctx, TaskFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[task.Status]int64)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts, nil
}

func (s *RedisTaskStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisTaskStore) Close() error {
	return s.client.Close()
}
