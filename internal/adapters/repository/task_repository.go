package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// taskColumns renders dates as text so they round-trip through *string unchanged
const taskColumns = `id, owner_id, title, description, priority, status,
	to_char(due_date, 'YYYY-MM-DD') AS due_date,
	to_char(due_time, 'HH24:MI') AS due_time,
	created_at, updated_at, deleted_at, restored_at`

// TaskRepository implements the task repository interface on PostgreSQL
type TaskRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewTaskRepository creates a new task repository. log may be nil.
func NewTaskRepository(db *sqlx.DB, log *logger.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: log}
}

// logQuery reports the duration of the dynamic list and stats queries
func (r *TaskRepository) logQuery(query string, start time.Time, err error) {
	if r.logger == nil {
		return
	}
	r.logger.LogDatabaseQuery(query, float64(time.Since(start).Microseconds())/1000, err)
}

// ListTasks retrieves the owner's tasks matching filter
func (r *TaskRepository) ListTasks(ctx context.Context, ownerID uuid.UUID, filter ports.ListFilter) ([]*entities.Task, error) {
	query, args := buildListQuery(ownerID, filter)

	start := time.Now()
	tasks := make([]*entities.Task, 0)
	err := r.db.SelectContext(ctx, &tasks, query, args...)
	r.logQuery(query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// buildListQuery assembles the WHERE clause for ListTasks. The owner condition is
// always first.
func buildListQuery(ownerID uuid.UUID, filter ports.ListFilter) (string, []interface{}) {
	conditions := []string{"owner_id = $1"}
	args := []interface{}{ownerID}
	argIndex := 2

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, string(*filter.Status))
		argIndex++
	} else if !filter.IncludeDeleted {
		conditions = append(conditions, fmt.Sprintf("status <> $%d", argIndex))
		args = append(args, string(entities.TaskStatusDeleted))
		argIndex++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		searchPattern := "%" + escapeLike(search) + "%"
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, searchPattern)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE %s
		ORDER BY created_at DESC, id`, taskColumns, strings.Join(conditions, " AND "))

	return query, args
}

// escapeLike makes % and _ match literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// CreateTask inserts a new pending task
func (r *TaskRepository) CreateTask(ctx context.Context, ownerID uuid.UUID, input ports.CreateTaskInput) (*entities.Task, error) {
	priority := input.Priority
	if priority == "" {
		priority = entities.PriorityMedium
	}

	query := fmt.Sprintf(`
		INSERT INTO tasks (id, owner_id, title, description, priority, status, due_date, due_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8::time, now(), now())
		RETURNING %s`, taskColumns)

	var task entities.Task
	err := r.db.GetContext(ctx, &task, query,
		uuid.New(),
		ownerID,
		input.Title,
		input.Description,
		string(priority),
		string(entities.TaskStatusPending),
		input.DueDate,
		input.DueTime,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return &task, nil
}

// GetTask retrieves one of the owner's tasks
func (r *TaskRepository) GetTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1 AND owner_id = $2`, taskColumns)

	var task entities.Task
	if err := r.db.GetContext(ctx, &task, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}

// UpdateTask writes the non-nil fields of input. An empty string clears an optional field.
func (r *TaskRepository) UpdateTask(ctx context.Context, ownerID, id uuid.UUID, input ports.UpdateTaskInput) (*entities.Task, error) {
	query, args := buildUpdateQuery(ownerID, id, input)

	var task entities.Task
	if err := r.db.GetContext(ctx, &task, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return &task, nil
}

func buildUpdateQuery(ownerID, id uuid.UUID, input ports.UpdateTaskInput) (string, []interface{}) {
	sets := []string{"updated_at = now()"}
	args := []interface{}{id, ownerID}
	argIndex := 3

	add := func(expr string, value interface{}) {
		sets = append(sets, fmt.Sprintf(expr, argIndex))
		args = append(args, value)
		argIndex++
	}

	if input.Title != nil {
		add("title = $%d", *input.Title)
	}
	if input.Description != nil {
		add("description = NULLIF($%d, '')", *input.Description)
	}
	if input.Priority != nil {
		add("priority = $%d", string(*input.Priority))
	}
	if input.DueDate != nil {
		add("due_date = NULLIF($%d, '')::date", *input.DueDate)
	}
	if input.DueTime != nil {
		add("due_time = NULLIF($%d, '')::time", *input.DueTime)
	}

	query := fmt.Sprintf(`
		UPDATE tasks SET %s
		WHERE id = $1 AND owner_id = $2
		RETURNING %s`, strings.Join(sets, ", "), taskColumns)

	return query, args
}

// SetStatus writes status, deleted_at and restored_at in one statement
func (r *TaskRepository) SetStatus(ctx context.Context, ownerID, id uuid.UUID, change entities.StatusChange) error {
	query := `
		UPDATE tasks
		SET status = $3, deleted_at = $4, restored_at = $5, updated_at = now()
		WHERE id = $1 AND owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, ownerID, string(change.Status), change.DeletedAt, change.RestoredAt)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	return requireOneRow(result)
}

// HardDelete erases the task row
func (r *TaskRepository) HardDelete(ctx context.Context, ownerID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return requireOneRow(result)
}

// GetStats counts the owner's tasks per status in one pass
func (r *TaskRepository) GetStats(ctx context.Context, ownerID uuid.UUID) (entities.TaskStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status <> 'deleted')   AS total,
			COUNT(*) FILTER (WHERE status = 'pending')    AS pending,
			COUNT(*) FILTER (WHERE status = 'completed')  AS completed,
			COUNT(*) FILTER (WHERE status = 'deleted')    AS deleted
		FROM tasks
		WHERE owner_id = $1`

	var stats entities.TaskStats
	if err := r.db.QueryRowxContext(ctx, query, ownerID).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Completed,
		&stats.Deleted,
	); err != nil {
		return entities.TaskStats{}, fmt.Errorf("failed to get task stats: %w", err)
	}

	return stats, nil
}

func requireOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}
	return nil
}
