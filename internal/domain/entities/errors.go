package entities

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports invalid input. It is raised before any store call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// TransitionError reports a lifecycle action that is not allowed from the task's status.
type TransitionError struct {
	TaskID uuid.UUID
	From   TaskStatus
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s task %s: task is %s", e.Action, e.TaskID, e.From)
}

// BackendError wraps a failed call to the task store.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
