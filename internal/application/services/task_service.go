package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/query"
	"github.com/taskmaster/todo/internal/domain/validation"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/infrastructure/metrics"
	"github.com/taskmaster/todo/internal/ports"
)

// TaskService applies the task lifecycle on top of the task repository. Every
// transition reaches the repository as a single write; nothing is mutated locally
// before the write succeeds.
type TaskService struct {
	taskRepo ports.TaskRepository
	cache    ports.StatsCache
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// bumped on every stats invalidation; a store read that straddles one is not cached
	statsEpoch atomic.Uint64
}

// TaskServiceOption customises a TaskService
type TaskServiceOption func(*TaskService)

// WithStatsCache enables cache-aside stats lookups
func WithStatsCache(cache ports.StatsCache) TaskServiceOption {
	return func(s *TaskService) {
		s.cache = cache
	}
}

// WithMetrics records lifecycle outcomes into m
func WithMetrics(m *metrics.Metrics) TaskServiceOption {
	return func(s *TaskService) {
		s.metrics = m
	}
}

// WithClock overrides the time source used for deleted_at and restored_at
func WithClock(now func() time.Time) TaskServiceOption {
	return func(s *TaskService) {
		s.now = now
	}
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, logger *logger.Logger, opts ...TaskServiceOption) *TaskService {
	s := &TaskService{
		taskRepo: taskRepo,
		logger:   logger.WithComponent("task_service"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTask creates a new pending task
func (s *TaskService) CreateTask(ctx context.Context, ownerID uuid.UUID, input ports.CreateTaskInput) (*entities.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Priority == "" {
		input.Priority = entities.PriorityMedium
	}
	input.Description = normalizeOptional(input.Description)
	input.DueDate = normalizeOptional(input.DueDate)
	input.DueTime = normalizeOptional(input.DueTime)

	if err := validation.Struct(input); err != nil {
		s.observe(entities.ActionCreate, "invalid")
		return nil, err
	}

	task, err := s.taskRepo.CreateTask(ctx, ownerID, input)
	if err != nil {
		s.observe(entities.ActionCreate, "error")
		return nil, s.backendError(ownerID, uuid.Nil, entities.ActionCreate, "create task", err)
	}

	s.invalidateStats(ctx, ownerID)
	s.observe(entities.ActionCreate, "ok")
	s.logger.LogTaskAction(ownerID.String(), task.ID.String(), string(entities.ActionCreate), nil)

	return task, nil
}

// GetTask retrieves a task by ID
func (s *TaskService) GetTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error) {
	task, err := s.taskRepo.GetTask(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return nil, err
		}
		return nil, &entities.BackendError{Op: "get task", Err: err}
	}
	return task, nil
}

// UpdateTask edits title, description, priority or due fields. Status is left alone and
// deleted tasks must be restored first.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, id uuid.UUID, input ports.UpdateTaskInput) (*entities.Task, error) {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			s.observe(entities.ActionEdit, "invalid")
			return nil, &entities.ValidationError{Field: "title", Message: "is required"}
		}
		input.Title = &title
	}
	if err := validation.Struct(input); err != nil {
		s.observe(entities.ActionEdit, "invalid")
		return nil, err
	}

	task, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		s.observe(entities.ActionEdit, "error")
		return nil, err
	}
	if err := task.CheckEditable(); err != nil {
		s.reject(ownerID, id, entities.ActionEdit, err)
		return nil, err
	}
	if input.IsEmpty() {
		s.observe(entities.ActionEdit, "noop")
		return task, nil
	}

	updated, err := s.taskRepo.UpdateTask(ctx, ownerID, id, input)
	if err != nil {
		s.observe(entities.ActionEdit, "error")
		return nil, s.backendError(ownerID, id, entities.ActionEdit, "update task", err)
	}

	s.observe(entities.ActionEdit, "ok")
	s.logger.LogTaskAction(ownerID.String(), id.String(), string(entities.ActionEdit), nil)

	return updated, nil
}

// CompleteTask moves a pending task to completed. Completing a completed task is a no-op.
func (s *TaskService) CompleteTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error) {
	return s.transition(ctx, ownerID, id, entities.ActionComplete, func(t *entities.Task) (entities.StatusChange, bool, error) {
		return t.Complete()
	})
}

// MarkTaskPending moves a completed task back to pending. A pending task is left as is.
func (s *TaskService) MarkTaskPending(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error) {
	return s.transition(ctx, ownerID, id, entities.ActionMarkPending, func(t *entities.Task) (entities.StatusChange, bool, error) {
		return t.MarkPending()
	})
}

// DeleteTask soft-deletes a pending or completed task
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error) {
	return s.transition(ctx, ownerID, id, entities.ActionDelete, func(t *entities.Task) (entities.StatusChange, bool, error) {
		return t.SoftDelete(s.stamp(t))
	})
}

// RestoreTask brings a deleted task back as pending
func (s *TaskService) RestoreTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error) {
	return s.transition(ctx, ownerID, id, entities.ActionRestore, func(t *entities.Task) (entities.StatusChange, bool, error) {
		return t.Restore(s.stamp(t))
	})
}

// PermanentlyDeleteTask erases a task from the recycle bin. Active tasks are refused.
func (s *TaskService) PermanentlyDeleteTask(ctx context.Context, ownerID, id uuid.UUID) error {
	action := entities.ActionPermanentlyDelete

	task, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		s.observe(action, "error")
		return err
	}
	if err := task.CheckPermanentDelete(); err != nil {
		s.reject(ownerID, id, action, err)
		return err
	}

	if err := s.taskRepo.HardDelete(ctx, ownerID, id); err != nil {
		s.observe(action, "error")
		return s.backendError(ownerID, id, action, "delete task", err)
	}

	s.invalidateStats(ctx, ownerID)
	s.observe(action, "ok")
	s.logger.LogTaskAction(ownerID.String(), id.String(), string(action), nil)

	return nil
}

// ListTasks returns the tasks in the filter bucket that match search, sorted for display.
// Filtering is pushed down to the repository.
func (s *TaskService) ListTasks(ctx context.Context, ownerID uuid.UUID, filter query.Filter, search string) ([]*entities.Task, error) {
	listFilter := ports.ListFilter{Search: strings.TrimSpace(search)}
	if status, ok := filter.Status(); ok {
		listFilter.Status = &status
	}

	tasks, err := s.taskRepo.ListTasks(ctx, ownerID, listFilter)
	if err != nil {
		return nil, &entities.BackendError{Op: "list tasks", Err: err}
	}

	query.Sort(tasks)
	return tasks, nil
}

// QueryTasks loads the owner's whole task set once and derives both the visible list and
// the bucket counts from it.
func (s *TaskService) QueryTasks(ctx context.Context, ownerID uuid.UUID, filter query.Filter, search string) (*query.Result, error) {
	tasks, err := s.taskRepo.ListTasks(ctx, ownerID, ports.ListFilter{IncludeDeleted: true})
	if err != nil {
		return nil, &entities.BackendError{Op: "list tasks", Err: err}
	}

	result := query.Run(tasks, filter, search)
	return &result, nil
}

// GetStats returns per-status totals, consulting the stats cache first when one is set
func (s *TaskService) GetStats(ctx context.Context, ownerID uuid.UUID) (entities.TaskStats, error) {
	if s.cache != nil {
		stats, ok, err := s.cache.GetStats(ctx, ownerID)
		switch {
		case err != nil:
			s.metrics.ObserveStatsCache("error")
			s.logger.Warnw("Stats cache read failed", "owner_id", ownerID, "error", err)
		case ok:
			s.metrics.ObserveStatsCache("hit")
			return stats, nil
		default:
			s.metrics.ObserveStatsCache("miss")
		}
	}

	epoch := s.statsEpoch.Load()
	stats, err := s.taskRepo.GetStats(ctx, ownerID)
	if err != nil {
		return entities.TaskStats{}, &entities.BackendError{Op: "get stats", Err: err}
	}

	// a write landed while we were reading; the result may predate it. Writers in other
	// processes are only bounded by the cache TTL.
	if s.statsEpoch.Load() != epoch {
		return stats, nil
	}

	if s.cache != nil {
		if err := s.cache.SetStats(ctx, ownerID, stats); err != nil {
			s.logger.Warnw("Stats cache write failed", "owner_id", ownerID, "error", err)
		}
	}

	return stats, nil
}

func (s *TaskService) transition(
	ctx context.Context,
	ownerID, id uuid.UUID,
	action entities.Action,
	next func(*entities.Task) (entities.StatusChange, bool, error),
) (*entities.Task, error) {
	task, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		s.observe(action, "error")
		return nil, err
	}

	change, changed, err := next(task)
	if err != nil {
		s.reject(ownerID, id, action, err)
		return nil, err
	}
	if !changed {
		s.observe(action, "noop")
		return task, nil
	}

	if err := s.taskRepo.SetStatus(ctx, ownerID, id, change); err != nil {
		s.observe(action, "error")
		return nil, s.backendError(ownerID, id, action, "set status", err)
	}

	task.Apply(change)
	task.UpdatedAt = s.stamp(task)

	s.invalidateStats(ctx, ownerID)
	s.observe(action, "ok")
	s.logger.LogTaskAction(ownerID.String(), id.String(), string(action), nil)

	return task, nil
}

func (s *TaskService) reject(ownerID, id uuid.UUID, action entities.Action, err error) {
	s.observe(action, "rejected")
	s.logger.LogTaskAction(ownerID.String(), id.String(), string(action), err)
}

func (s *TaskService) backendError(ownerID, id uuid.UUID, action entities.Action, op string, err error) error {
	if errors.Is(err, entities.ErrTaskNotFound) {
		return err
	}
	s.logger.Errorw("Task store call failed",
		"owner_id", ownerID,
		"task_id", id,
		"action", action,
		"error", err,
	)
	return &entities.BackendError{Op: op, Err: err}
}

// stamp returns the current time, never earlier than t was created. created_at may come
// from the database clock.
func (s *TaskService) stamp(t *entities.Task) time.Time {
	now := s.now().UTC()
	if now.Before(t.CreatedAt) {
		return t.CreatedAt.UTC()
	}
	return now
}

func (s *TaskService) invalidateStats(ctx context.Context, ownerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.statsEpoch.Add(1)
	if err := s.cache.Invalidate(ctx, ownerID); err != nil {
		s.logger.Warnw("Stats cache invalidation failed", "owner_id", ownerID, "error", err)
	}
}

func (s *TaskService) observe(action entities.Action, result string) {
	s.metrics.ObserveTaskAction(string(action), result)
}

// normalizeOptional turns blank optional text into nil
func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
