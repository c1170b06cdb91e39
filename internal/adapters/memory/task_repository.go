// Package memory holds a process-local task repository used by the shell, by tests and
// by the server when STORE_DRIVER=memory.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/query"
	"github.com/taskmaster/todo/internal/ports"
)

// TaskRepository keeps tasks in a map keyed by id. Returned tasks are copies.
type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*entities.Task
	now   func() time.Time
}

// NewTaskRepository creates an empty repository
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[uuid.UUID]*entities.Task),
		now:   time.Now,
	}
}

// SetClock overrides the time source for created_at and updated_at
func (r *TaskRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// ListTasks returns the owner's tasks matching filter
func (r *TaskRepository) ListTasks(ctx context.Context, ownerID uuid.UUID, filter ports.ListFilter) ([]*entities.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Task, 0)
	for _, t := range r.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		switch {
		case filter.Status != nil:
			if t.Status != *filter.Status {
				continue
			}
		case !filter.IncludeDeleted:
			if t.IsDeleted() {
				continue
			}
		}
		if !query.Matches(t, filter.Search) {
			continue
		}
		out = append(out, clone(t))
	}

	// newest first, matching ORDER BY created_at DESC, id in the Postgres store
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

// CreateTask stores a new pending task
func (r *TaskRepository) CreateTask(ctx context.Context, ownerID uuid.UUID, input ports.CreateTaskInput) (*entities.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	priority := input.Priority
	if priority == "" {
		priority = entities.PriorityMedium
	}

	task := &entities.Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: copyString(input.Description),
		Priority:    priority,
		Status:      entities.TaskStatusPending,
		DueDate:     copyString(input.DueDate),
		DueTime:     copyString(input.DueTime),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.tasks[task.ID] = task

	return clone(task), nil
}

// GetTask returns one task or ErrTaskNotFound
func (r *TaskRepository) GetTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.owned(ownerID, id)
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	return clone(t), nil
}

// UpdateTask applies the non-nil fields of input. An empty string clears an optional field.
func (r *TaskRepository) UpdateTask(ctx context.Context, ownerID, id uuid.UUID, input ports.UpdateTaskInput) (*entities.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.owned(ownerID, id)
	if !ok {
		return nil, entities.ErrTaskNotFound
	}

	if input.Title != nil {
		t.Title = *input.Title
	}
	if input.Description != nil {
		t.Description = optional(*input.Description)
	}
	if input.Priority != nil {
		t.Priority = *input.Priority
	}
	if input.DueDate != nil {
		t.DueDate = optional(*input.DueDate)
	}
	if input.DueTime != nil {
		t.DueTime = optional(*input.DueTime)
	}
	t.UpdatedAt = r.now().UTC()

	return clone(t), nil
}

// SetStatus writes a lifecycle change in one step
func (r *TaskRepository) SetStatus(ctx context.Context, ownerID, id uuid.UUID, change entities.StatusChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.owned(ownerID, id)
	if !ok {
		return entities.ErrTaskNotFound
	}
	t.Apply(entities.StatusChange{
		Status:     change.Status,
		DeletedAt:  copyTime(change.DeletedAt),
		RestoredAt: copyTime(change.RestoredAt),
	})
	t.UpdatedAt = r.now().UTC()
	return nil
}

// HardDelete erases the task
func (r *TaskRepository) HardDelete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owned(ownerID, id); !ok {
		return entities.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

// GetStats tallies the owner's tasks per status
func (r *TaskRepository) GetStats(ctx context.Context, ownerID uuid.UUID) (entities.TaskStats, error) {
	if err := ctx.Err(); err != nil {
		return entities.TaskStats{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := make([]*entities.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if t.OwnerID == ownerID {
			owned = append(owned, t)
		}
	}

	c := query.Count(owned)
	return entities.TaskStats{
		Total:     c.All,
		Pending:   c.Pending,
		Completed: c.Completed,
		Deleted:   c.Deleted,
	}, nil
}

func (r *TaskRepository) owned(ownerID, id uuid.UUID) (*entities.Task, bool) {
	t, ok := r.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, false
	}
	return t, true
}

func clone(t *entities.Task) *entities.Task {
	c := *t
	c.Description = copyString(t.Description)
	c.DueDate = copyString(t.DueDate)
	c.DueTime = copyString(t.DueTime)
	c.DeletedAt = copyTime(t.DeletedAt)
	c.RestoredAt = copyTime(t.RestoredAt)
	return &c
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
