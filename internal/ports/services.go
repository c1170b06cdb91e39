package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/query"
)

// TaskService interface for task lifecycle and query operations
type TaskService interface {
	CreateTask(ctx context.Context, ownerID uuid.UUID, input CreateTaskInput) (*entities.Task, error)
	GetTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error)
	UpdateTask(ctx context.Context, ownerID, id uuid.UUID, input UpdateTaskInput) (*entities.Task, error)
	CompleteTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error)
	MarkTaskPending(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error)
	DeleteTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error)
	RestoreTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error)
	PermanentlyDeleteTask(ctx context.Context, ownerID, id uuid.UUID) error
	ListTasks(ctx context.Context, ownerID uuid.UUID, filter query.Filter, search string) ([]*entities.Task, error)
	QueryTasks(ctx context.Context, ownerID uuid.UUID, filter query.Filter, search string) (*query.Result, error)
	GetStats(ctx context.Context, ownerID uuid.UUID) (entities.TaskStats, error)
}

// Task related types
type CreateTaskInput struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description *string           `json:"description" validate:"omitempty,max=2000"`
	Priority    entities.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *string           `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	DueTime     *string           `json:"due_time" validate:"omitempty,datetime=15:04"`
}

// UpdateTaskInput carries a partial edit. Nil fields are left untouched.
type UpdateTaskInput struct {
	Title       *string            `json:"title" validate:"omitempty,max=200"`
	Description *string            `json:"description" validate:"omitempty,max=2000"`
	Priority    *entities.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *string            `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	DueTime     *string            `json:"due_time" validate:"omitempty,datetime=15:04"`
}

// IsEmpty reports whether the edit changes nothing.
func (in UpdateTaskInput) IsEmpty() bool {
	return in.Title == nil && in.Description == nil && in.Priority == nil &&
		in.DueDate == nil && in.DueTime == nil
}

// TokenVerifier resolves a bearer token into the session owner
type TokenVerifier interface {
	VerifyToken(tokenString string) (*Session, error)
}

// Session identifies the user a request acts for
type Session struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Email   string    `json:"email,omitempty"`
}
