package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

// taskRecord is the relational projection of a task. Queryable fields get
// their own columns; the full task travels in the payload blob.
type taskRecord struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Type      string    `gorm:"index;size:128"`
	Strategy  string    `gorm:"index;size:32"`
	Status    string    `gorm:"index;size:32"`
	Priority  string    `gorm:"size:16"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
	Payload   []byte `gorm:"type:blob"`
}

func (taskRecord) TableName() string { return "tasks" }

// SQLiteTaskStore persists tasks in a local SQLite database.
type SQLiteTaskStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSQLiteTaskStore opens (and migrates) the SQLite database at dsn.
func NewSQLiteTaskStore(dsn string, logger *zap.Logger) (*SQLiteTaskStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		return nil, fmt.Errorf("migrate task schema: %w", err)
	}
	logger.Info("sqlite task store opened", zap.String("dsn", dsn))
	return &SQLiteTaskStore{
		db:     db,
		logger: logger.With(zap.String("component", "sqlite_task_store")),
	}, nil
}

func (s *SQLiteTaskStore) Save(ctx context.Context, t *task.Task) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	rec := taskRecord{
		ID:        t.ID,
		Type:      t.Type,
		Strategy:  t.Strategy,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Payload:   payload,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}

func (s *SQLiteTaskStore) Get(ctx context.Context, id string) (*task.Task, error) {
	var rec taskRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeTask(rec)
}

func (s *SQLiteTaskStore) List(ctx context.Context, filter TaskFilter) ([]*task.Task, error) {
	q := s.db.WithContext(ctx).Model(&taskRecord{}).Order("created_at, id")
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Strategy != "" {
		q = q.Where("strategy = ?", filter.Strategy)
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			statuses[i] = string(st)
		}
		q = q.Where("status IN ?", statuses)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var recs []taskRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	tasks := make([]*task.Task, 0, len(recs))
	for _, rec := range recs {
		t, err := decodeTask(rec)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *SQLiteTaskStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&taskRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteTaskStore) CountByStatus(ctx context.Context) (map[task.Status]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&taskRecord{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[task.Status]int64, len(rows))
	for _, r := range rows {
		counts[task.Status(r.Status)] = r.N
	}
	return counts, nil
}

func (s *SQLiteTaskStore) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (s *SQLiteTaskStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func decodeTask(rec taskRecord) (*task.Task, error) {
	var t task.Task
	if err := json.Unmarshal(rec.Payload, &t); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", rec.ID, err)
	}
	return &t, nil
}
