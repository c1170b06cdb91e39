// Package board holds the view state a task list UI renders: the active filter and
// search, the last authoritative query result, and per-task in-flight operations.
package board

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/query"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// Notice is a user-facing failure report.
type Notice struct {
	Action entities.Action
	TaskID uuid.UUID
	Err    error
}

// Snapshot is a consistent copy of the board state.
type Snapshot struct {
	Filter   query.Filter
	Search   string
	View     query.Result
	Loading  bool
	InFlight map[uuid.UUID]entities.Action
}

// Board coordinates reloads and mutations for one session owner. Each reload is tagged
// with a sequence number and only the latest issued reload may replace the view.
type Board struct {
	mu       sync.Mutex
	service  ports.TaskService
	ownerID  uuid.UUID
	logger   *logger.Logger
	notify   func(Notice)
	onChange func(Snapshot)

	filter   query.Filter
	search   string
	view     query.Result
	seq      uint64
	loading  bool
	// actions running per task, oldest first; overlapping actions each hold an entry
	inFlight map[uuid.UUID][]entities.Action
}

// Option customises a Board.
type Option func(*Board)

// WithNotifier receives every failed reload or mutation.
func WithNotifier(fn func(Notice)) Option {
	return func(b *Board) {
		b.notify = fn
	}
}

// WithChangeHandler is called with a fresh snapshot whenever the view is replaced.
func WithChangeHandler(fn func(Snapshot)) Option {
	return func(b *Board) {
		b.onChange = fn
	}
}

// New creates a board showing the "all" filter with no search.
func New(service ports.TaskService, ownerID uuid.UUID, log *logger.Logger, opts ...Option) *Board {
	b := &Board{
		service:  service,
		ownerID:  ownerID,
		logger:   log.WithComponent("board").WithOwner(ownerID.String()),
		filter:   query.FilterAll,
		inFlight: make(map[uuid.UUID][]entities.Action),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot returns the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// SetFilter switches the status filter and reloads.
func (b *Board) SetFilter(ctx context.Context, filter query.Filter) error {
	b.mu.Lock()
	b.filter = filter
	b.mu.Unlock()
	return b.Reload(ctx)
}

// SetSearch replaces the search string and reloads. Wire it to a search.Debouncer.
func (b *Board) SetSearch(ctx context.Context, search string) error {
	b.mu.Lock()
	b.search = search
	b.mu.Unlock()
	return b.Reload(ctx)
}

// Reload queries with the current filter and search. A response that resolves after a
// newer reload was issued is dropped and Reload reports no error for it.
func (b *Board) Reload(ctx context.Context) error {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	filter, search := b.filter, b.search
	b.loading = true
	b.mu.Unlock()

	result, err := b.service.QueryTasks(ctx, b.ownerID, filter, search)

	b.mu.Lock()
	if seq != b.seq {
		b.mu.Unlock()
		b.logger.Debugw("Dropping stale reload", "seq", seq)
		return nil
	}
	b.loading = false
	if err != nil {
		b.mu.Unlock()
		b.report(Notice{Err: err})
		return err
	}
	b.view = *result
	snap := b.snapshotLocked()
	b.mu.Unlock()

	if b.onChange != nil {
		b.onChange(snap)
	}
	return nil
}

// Create adds a task and reloads.
func (b *Board) Create(ctx context.Context, input ports.CreateTaskInput) (*entities.Task, error) {
	task, err := b.service.CreateTask(ctx, b.ownerID, input)
	if err != nil {
		b.report(Notice{Action: entities.ActionCreate, Err: err})
		return nil, err
	}
	return task, b.Reload(ctx)
}

// Update edits a task and reloads.
func (b *Board) Update(ctx context.Context, id uuid.UUID, input ports.UpdateTaskInput) error {
	return b.mutate(ctx, id, entities.ActionEdit, func() error {
		_, err := b.service.UpdateTask(ctx, b.ownerID, id, input)
		return err
	})
}

// Complete marks a task done.
func (b *Board) Complete(ctx context.Context, id uuid.UUID) error {
	return b.mutate(ctx, id, entities.ActionComplete, func() error {
		_, err := b.service.CompleteTask(ctx, b.ownerID, id)
		return err
	})
}

// MarkPending reopens a completed task.
func (b *Board) MarkPending(ctx context.Context, id uuid.UUID) error {
	return b.mutate(ctx, id, entities.ActionMarkPending, func() error {
		_, err := b.service.MarkTaskPending(ctx, b.ownerID, id)
		return err
	})
}

// Toggle flips a task between pending and completed.
func (b *Board) Toggle(ctx context.Context, task *entities.Task) error {
	if task.Status == entities.TaskStatusCompleted {
		return b.MarkPending(ctx, task.ID)
	}
	return b.Complete(ctx, task.ID)
}

// Delete moves a task to the recycle bin.
func (b *Board) Delete(ctx context.Context, id uuid.UUID) error {
	return b.mutate(ctx, id, entities.ActionDelete, func() error {
		_, err := b.service.DeleteTask(ctx, b.ownerID, id)
		return err
	})
}

// Restore brings a task back from the recycle bin.
func (b *Board) Restore(ctx context.Context, id uuid.UUID) error {
	return b.mutate(ctx, id, entities.ActionRestore, func() error {
		_, err := b.service.RestoreTask(ctx, b.ownerID, id)
		return err
	})
}

// PermanentlyDelete erases a task from the recycle bin.
func (b *Board) PermanentlyDelete(ctx context.Context, id uuid.UUID) error {
	return b.mutate(ctx, id, entities.ActionPermanentlyDelete, func() error {
		return b.service.PermanentlyDeleteTask(ctx, b.ownerID, id)
	})
}

// Busy reports the most recent action still in flight for a task, if any.
func (b *Board) Busy(id uuid.UUID) (entities.Action, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	actions := b.inFlight[id]
	if len(actions) == 0 {
		return "", false
	}
	return actions[len(actions)-1], true
}

// mutate marks id busy for the duration of op, then reloads on success. On failure the
// view is left as it was and a notice goes out.
func (b *Board) mutate(ctx context.Context, id uuid.UUID, action entities.Action, op func() error) error {
	b.mu.Lock()
	b.inFlight[id] = append(b.inFlight[id], action)
	b.mu.Unlock()

	err := op()

	b.mu.Lock()
	b.finishLocked(id, action)
	b.mu.Unlock()

	if err != nil {
		b.report(Notice{Action: action, TaskID: id, Err: err})
		return err
	}
	return b.Reload(ctx)
}

// finishLocked drops one entry for action, leaving any other action on id in flight.
func (b *Board) finishLocked(id uuid.UUID, action entities.Action) {
	actions := b.inFlight[id]
	for i, a := range actions {
		if a != action {
			continue
		}
		actions = append(actions[:i:i], actions[i+1:]...)
		break
	}
	if len(actions) == 0 {
		delete(b.inFlight, id)
		return
	}
	b.inFlight[id] = actions
}

func (b *Board) report(n Notice) {
	b.logger.Warnw("Board operation failed", "action", n.Action, "task_id", n.TaskID, "error", n.Err)
	if b.notify != nil {
		b.notify(n)
	}
}

func (b *Board) snapshotLocked() Snapshot {
	inFlight := make(map[uuid.UUID]entities.Action, len(b.inFlight))
	for id, actions := range b.inFlight {
		inFlight[id] = actions[len(actions)-1]
	}
	tasks := make([]*entities.Task, len(b.view.Tasks))
	copy(tasks, b.view.Tasks)

	return Snapshot{
		Filter:   b.filter,
		Search:   b.search,
		View:     query.Result{Tasks: tasks, Counts: b.view.Counts},
		Loading:  b.loading,
		InFlight: inFlight,
	}
}
