package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	redisc "github.com/inkpress/core/internal/pkg/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TaskStatus is the lifecycle state of a dispatch task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskDelivered TaskStatus = "delivered"
	TaskFailed    TaskStatus = "failed"
)

// Task is a unit of deferred delivery work persisted in Redis. Tasks survive a
// restart: pending ones are replayed when the worker starts, which gives
// at-least-once delivery. The sink is expected to deduplicate.
type Task struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Status    TaskStatus      `json:"status"`
	Attempts  int             `json:"attempts"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const (
	keyPrefix   = "ip:dispatch:"
	keyIndex    = "ip:dispatch:index" // sorted set: score=created_at ms, member=task_id
	taskTTL     = 24 * time.Hour
	maxAttempts = 5
)

// Sink consumes a task payload. A nil error marks the task delivered.
type Sink interface {
	Deliver(ctx context.Context, payload json.RawMessage) error
}

// Queue is a Redis-backed fire-and-forget delivery queue with a single worker.
type Queue struct {
	rc     *redisc.Client
	sink   Sink
	logger *zap.Logger
	wake   chan struct{}
}

func NewQueue(rc *redisc.Client, sink Sink, logger *zap.Logger) *Queue {
	return &Queue{
		rc:     rc,
		sink:   sink,
		logger: logger,
		wake:   make(chan struct{}, 64),
	}
}

func (q *Queue) taskKey(id string) string { return keyPrefix + id }

// Enqueue persists a task and wakes the worker. It never blocks the caller on
// delivery; the caller's transaction is already committed by the time this runs.
func (q *Queue) Enqueue(ctx context.Context, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := &Task{
		ID:        uuid.New().String(),
		Payload:   data,
		Status:    TaskPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}

	pipe := q.rc.Raw().TxPipeline()
	pipe.Set(ctx, q.taskKey(task.ID), raw, taskTTL)
	pipe.ZAdd(ctx, keyIndex, redis.Z{
		Score:  float64(task.CreatedAt.UnixMilli()),
		Member: task.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run drains pending tasks until ctx is cancelled. Call in a goroutine.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	q.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
			q.drain(ctx)
		case <-ticker.C:
			// periodic replay picks up tasks left pending by a crash
			q.drain(ctx)
		}
	}
}

func (q *Queue) drain(ctx context.Context) {
	ids, err := q.rc.Raw().ZRange(ctx, keyIndex, 0, -1).Result()
	if err != nil {
		q.logger.Warn("dispatch: index scan failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		q.process(ctx, id)
	}
}

func (q *Queue) process(ctx context.Context, id string) {
	raw, err := q.rc.Raw().Get(ctx, q.taskKey(id)).Bytes()
	if err == redis.Nil {
		q.remove(ctx, id)
		return
	}
	if err != nil {
		return
	}

	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		q.remove(ctx, id)
		return
	}
	if task.Status != TaskPending {
		q.remove(ctx, id)
		return
	}

	task.Attempts++
	if err := q.sink.Deliver(ctx, task.Payload); err != nil {
		task.Error = err.Error()
		if task.Attempts >= maxAttempts {
			task.Status = TaskFailed
			q.logger.Error("dispatch: task dropped after max attempts",
				zap.String("task", task.ID), zap.Error(err))
		} else {
			q.logger.Warn("dispatch: delivery failed, will retry",
				zap.String("task", task.ID), zap.Int("attempts", task.Attempts), zap.Error(err))
		}
		q.store(ctx, &task)
		if task.Status == TaskFailed {
			q.rc.Raw().ZRem(ctx, keyIndex, task.ID)
		}
		return
	}

	task.Status = TaskDelivered
	task.Error = ""
	q.store(ctx, &task)
	q.rc.Raw().ZRem(ctx, keyIndex, task.ID)
}

func (q *Queue) store(ctx context.Context, task *Task) {
	task.UpdatedAt = time.Now()
	raw, err := json.Marshal(task)
	if err != nil {
		return
	}
	_ = q.rc.Set(ctx, q.taskKey(task.ID), raw, taskTTL)
}

func (q *Queue) remove(ctx context.Context, id string) {
	q.rc.Raw().ZRem(ctx, keyIndex, id)
}
