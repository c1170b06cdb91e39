package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrUnauthorized  = errors.New("unauthorized")
)

// TaskStatus is the lifecycle state of a task. Permanent removal is not a status:
// the record is erased instead.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusDeleted   TaskStatus = "deleted"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Action names a lifecycle operation. Used for transition checks, logs and metrics.
type Action string

const (
	ActionCreate            Action = "create"
	ActionComplete          Action = "complete"
	ActionMarkPending       Action = "mark_pending"
	ActionDelete            Action = "delete"
	ActionRestore           Action = "restore"
	ActionPermanentlyDelete Action = "permanently_delete"
	ActionEdit              Action = "edit"
)

// Task represents a single to-do item owned by exactly one user
type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	OwnerID     uuid.UUID  `json:"owner_id" db:"owner_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	Priority    Priority   `json:"priority" db:"priority"`
	Status      TaskStatus `json:"status" db:"status"`
	DueDate     *string    `json:"due_date,omitempty" db:"due_date"`
	DueTime     *string    `json:"due_time,omitempty" db:"due_time"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	RestoredAt  *time.Time `json:"restored_at,omitempty" db:"restored_at"`
}

// StatusChange is the single write submitted to the store for a lifecycle transition.
type StatusChange struct {
	Status     TaskStatus
	DeletedAt  *time.Time
	RestoredAt *time.Time
}

// TaskStats holds per-status totals. Total counts non-deleted tasks only.
type TaskStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Deleted   int `json:"deleted"`
}

var allowedTransitions = map[TaskStatus]map[Action]TaskStatus{
	TaskStatusPending: {
		ActionComplete:    TaskStatusCompleted,
		ActionMarkPending: TaskStatusPending,
		ActionDelete:      TaskStatusDeleted,
		ActionEdit:        TaskStatusPending,
	},
	TaskStatusCompleted: {
		ActionComplete:    TaskStatusCompleted,
		ActionMarkPending: TaskStatusPending,
		ActionDelete:      TaskStatusDeleted,
		ActionEdit:        TaskStatusCompleted,
	},
	TaskStatusDeleted: {
		ActionRestore:           TaskStatusPending,
		ActionPermanentlyDelete: "",
	},
}

// CanApply reports whether action is allowed from the task's current status.
func (t *Task) CanApply(action Action) bool {
	next, ok := allowedTransitions[t.Status]
	if !ok {
		return false
	}
	_, ok = next[action]
	return ok
}

// IsActive reports whether the task is neither completed nor deleted.
func (t *Task) IsActive() bool {
	return t.Status == TaskStatusPending
}

// IsDeleted reports whether the task sits in the recycle bin.
func (t *Task) IsDeleted() bool {
	return t.Status == TaskStatusDeleted
}

// Complete moves a pending task to completed. A completed task yields no change.
func (t *Task) Complete() (StatusChange, bool, error) {
	return t.transition(ActionComplete, time.Time{})
}

// MarkPending moves a completed task back to pending. A pending task yields no change.
func (t *Task) MarkPending() (StatusChange, bool, error) {
	return t.transition(ActionMarkPending, time.Time{})
}

// SoftDelete moves a pending or completed task to deleted, stamping deleted_at.
func (t *Task) SoftDelete(now time.Time) (StatusChange, bool, error) {
	return t.transition(ActionDelete, now)
}

// Restore moves a deleted task back to pending, clearing deleted_at and stamping restored_at.
func (t *Task) Restore(now time.Time) (StatusChange, bool, error) {
	return t.transition(ActionRestore, now)
}

// CheckPermanentDelete guards hard deletion of anything outside the recycle bin.
func (t *Task) CheckPermanentDelete() error {
	if !t.CanApply(ActionPermanentlyDelete) {
		return &TransitionError{TaskID: t.ID, From: t.Status, Action: ActionPermanentlyDelete}
	}
	return nil
}

// CheckEditable rejects edits to deleted tasks.
func (t *Task) CheckEditable() error {
	if !t.CanApply(ActionEdit) {
		return &TransitionError{TaskID: t.ID, From: t.Status, Action: ActionEdit}
	}
	return nil
}

// transition computes the status write for action. changed is false when the task is
// already in the target status.
func (t *Task) transition(action Action, now time.Time) (StatusChange, bool, error) {
	if !t.CanApply(action) {
		return StatusChange{}, false, &TransitionError{TaskID: t.ID, From: t.Status, Action: action}
	}

	to := allowedTransitions[t.Status][action]
	change := StatusChange{
		Status:     to,
		DeletedAt:  t.DeletedAt,
		RestoredAt: t.RestoredAt,
	}

	switch action {
	case ActionDelete:
		stamp := now
		change.DeletedAt = &stamp
	case ActionRestore:
		stamp := now
		change.DeletedAt = nil
		change.RestoredAt = &stamp
	}

	return change, to != t.Status, nil
}

// Apply copies a status change onto the task.
func (t *Task) Apply(change StatusChange) {
	t.Status = change.Status
	t.DeletedAt = change.DeletedAt
	t.RestoredAt = change.RestoredAt
}

// DescriptionText returns the description or an empty string.
func (t *Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// Rank orders priorities: high > medium > low. Unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusDeleted:
		return true
	}
	return false
}

// ParsePriority accepts any casing and surrounding whitespace.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", &ValidationError{Field: "priority", Message: "must be one of low, medium, high"}
	}
	return p, nil
}
