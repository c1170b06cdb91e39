package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todo/internal/adapters/memory"
	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/query"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// gatedService holds QueryTasks calls for the given search until released.
type gatedService struct {
	*services.TaskService
	mu    sync.Mutex
	gates map[string]chan struct{}
	fail       error
	slow       chan struct{}
	slowDelete chan struct{}
}

func (s *gatedService) QueryTasks(ctx context.Context, ownerID uuid.UUID, filter query.Filter, search string) (*query.Result, error) {
	s.mu.Lock()
	gate := s.gates[search]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return s.TaskService.QueryTasks(ctx, ownerID, filter, search)
}

func (s *gatedService) CompleteTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error) {
	if s.slow != nil {
		<-s.slow
	}
	if s.fail != nil {
		return nil, s.fail
	}
	return s.TaskService.CompleteTask(ctx, ownerID, id)
}

func (s *gatedService) DeleteTask(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error) {
	if s.slowDelete != nil {
		<-s.slowDelete
	}
	return s.TaskService.DeleteTask(ctx, ownerID, id)
}

func (s *gatedService) hold(search string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.gates[search] = gate
	return gate
}

func newBoard(t *testing.T, opts ...Option) (*Board, *gatedService) {
	t.Helper()
	svc := &gatedService{
		TaskService: services.NewTaskService(memory.NewTaskRepository(), logger.NewNop()),
		gates:       make(map[string]chan struct{}),
	}
	return New(svc, uuid.New(), logger.NewNop(), opts...), svc
}

func titles(tasks []*entities.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestBoard_CreateReloadsView(t *testing.T) {
	b, _ := newBoard(t)
	ctx := context.Background()

	_, err := b.Create(ctx, ports.CreateTaskInput{Title: "Write report", Priority: entities.PriorityHigh})
	require.NoError(t, err)
	_, err = b.Create(ctx, ports.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)

	snap := b.Snapshot()
	assert.Equal(t, []string{"Write report", "Buy milk"}, titles(snap.View.Tasks))
	assert.Equal(t, query.Counts{All: 2, Pending: 2}, snap.View.Counts)
	assert.False(t, snap.Loading)

	require.NoError(t, b.SetSearch(ctx, "report"))
	snap = b.Snapshot()
	assert.Equal(t, []string{"Write report"}, titles(snap.View.Tasks))
	assert.Equal(t, 2, snap.View.Counts.All)
}

func TestBoard_StaleReloadIsDiscarded(t *testing.T) {
	b, svc := newBoard(t)
	ctx := context.Background()

	_, err := b.Create(ctx, ports.CreateTaskInput{Title: "Write report"})
	require.NoError(t, err)
	_, err = b.Create(ctx, ports.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)

	slow := svc.hold("milk")
	done := make(chan error, 1)
	go func() {
		done <- b.SetSearch(ctx, "milk")
	}()

	// wait until the slow reload has been issued
	require.Eventually(t, func() bool { return b.Snapshot().Loading }, time.Second, time.Millisecond)

	require.NoError(t, b.SetSearch(ctx, "report"))
	assert.Equal(t, []string{"Write report"}, titles(b.Snapshot().View.Tasks))

	close(slow)
	require.NoError(t, <-done)

	snap := b.Snapshot()
	assert.Equal(t, []string{"Write report"}, titles(snap.View.Tasks), "older reload must not overwrite the newer one")
	assert.Equal(t, "report", snap.Search)
}

func TestBoard_FailedMutationKeepsViewAndNotifies(t *testing.T) {
	var notices []Notice
	b, svc := newBoard(t, WithNotifier(func(n Notice) { notices = append(notices, n) }))
	ctx := context.Background()

	task, err := b.Create(ctx, ports.CreateTaskInput{Title: "Write report"})
	require.NoError(t, err)
	before := b.Snapshot()

	svc.fail = &entities.BackendError{Op: "set status", Err: errors.New("timeout")}
	err = b.Complete(ctx, task.ID)
	require.Error(t, err)

	after := b.Snapshot()
	assert.Equal(t, before.View, after.View)
	assert.Empty(t, after.InFlight)
	require.Len(t, notices, 1)
	assert.Equal(t, entities.ActionComplete, notices[0].Action)
	assert.Equal(t, task.ID, notices[0].TaskID)
}

func TestBoard_InFlightTracking(t *testing.T) {
	b, svc := newBoard(t)
	ctx := context.Background()

	task, err := b.Create(ctx, ports.CreateTaskInput{Title: "Write report"})
	require.NoError(t, err)

	svc.slow = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- b.Complete(ctx, task.ID) }()

	require.Eventually(t, func() bool {
		_, busy := b.Busy(task.ID)
		return busy
	}, time.Second, time.Millisecond)
	action, _ := b.Busy(task.ID)
	assert.Equal(t, entities.ActionComplete, action)
	assert.Equal(t, entities.ActionComplete, b.Snapshot().InFlight[task.ID])

	close(svc.slow)
	require.NoError(t, <-done)

	_, busy := b.Busy(task.ID)
	assert.False(t, busy)
	assert.Equal(t, query.Counts{All: 1, Completed: 1}, b.Snapshot().View.Counts)
}

func TestBoard_OverlappingActionsKeepTaskBusy(t *testing.T) {
	b, svc := newBoard(t)
	ctx := context.Background()

	task, err := b.Create(ctx, ports.CreateTaskInput{Title: "Write report"})
	require.NoError(t, err)

	svc.slow = make(chan struct{})
	svc.slowDelete = make(chan struct{})

	completed := make(chan error, 1)
	go func() { completed <- b.Complete(ctx, task.ID) }()
	require.Eventually(t, func() bool {
		action, busy := b.Busy(task.ID)
		return busy && action == entities.ActionComplete
	}, time.Second, time.Millisecond)

	deleted := make(chan error, 1)
	go func() { deleted <- b.Delete(ctx, task.ID) }()
	require.Eventually(t, func() bool {
		action, _ := b.Busy(task.ID)
		return action == entities.ActionDelete
	}, time.Second, time.Millisecond)

	close(svc.slowDelete)
	require.NoError(t, <-deleted)

	action, busy := b.Busy(task.ID)
	assert.True(t, busy, "complete is still running")
	assert.Equal(t, entities.ActionComplete, action)
	assert.Equal(t, entities.ActionComplete, b.Snapshot().InFlight[task.ID])

	close(svc.slow)
	var transitionErr *entities.TransitionError
	assert.ErrorAs(t, <-completed, &transitionErr)

	_, busy = b.Busy(task.ID)
	assert.False(t, busy)
	assert.Empty(t, b.Snapshot().InFlight)
}

func TestBoard_LifecycleThroughFilters(t *testing.T) {
	var changes int
	b, _ := newBoard(t, WithChangeHandler(func(Snapshot) { changes++ }))
	ctx := context.Background()

	task, err := b.Create(ctx, ports.CreateTaskInput{Title: "Write report"})
	require.NoError(t, err)

	require.NoError(t, b.Toggle(ctx, task))
	require.NoError(t, b.SetFilter(ctx, query.FilterCompleted))
	assert.Equal(t, []string{"Write report"}, titles(b.Snapshot().View.Tasks))

	require.NoError(t, b.Delete(ctx, task.ID))
	assert.Empty(t, b.Snapshot().View.Tasks)

	require.NoError(t, b.SetFilter(ctx, query.FilterDeleted))
	require.NoError(t, b.PermanentlyDelete(ctx, task.ID))
	snap := b.Snapshot()
	assert.Empty(t, snap.View.Tasks)
	assert.Equal(t, query.Counts{}, snap.View.Counts)
	assert.Equal(t, 6, changes)

	err = b.Restore(ctx, task.ID)
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)
}
