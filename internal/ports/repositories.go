package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
)

// TaskRepository is the persistence collaborator. Every call is scoped to one owner;
// implementations must never return or touch another owner's rows.
type TaskRepository interface {
	ListTasks(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]*entities.Task, error)
	CreateTask(ctx context.Context, ownerID uuid.UUID, input CreateTaskInput) (*entities.Task, error)
	GetTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error)
	UpdateTask(ctx context.Context, ownerID, id uuid.UUID, input UpdateTaskInput) (*entities.Task, error)
	SetStatus(ctx context.Context, ownerID, id uuid.UUID, change entities.StatusChange) error
	HardDelete(ctx context.Context, ownerID, id uuid.UUID) error
	GetStats(ctx context.Context, ownerID uuid.UUID) (entities.TaskStats, error)
}

// StatsCache caches per-owner stats between mutations.
type StatsCache interface {
	GetStats(ctx context.Context, ownerID uuid.UUID) (entities.TaskStats, bool, error)
	SetStats(ctx context.Context, ownerID uuid.UUID, stats entities.TaskStats) error
	Invalidate(ctx context.Context, ownerID uuid.UUID) error
}

// ListFilter narrows ListTasks. A nil Status returns every non-deleted task unless
// IncludeDeleted is set, in which case the whole owner set comes back.
type ListFilter struct {
	Status         *entities.TaskStatus
	Search         string
	IncludeDeleted bool
}
