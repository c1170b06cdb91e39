package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todo/internal/adapters/memory"
	"github.com/taskmaster/todo/internal/application/search"
	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/query"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
)

type manualTimer struct{ stopped bool }

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualClock keeps the last scheduled callback until the test fires it.
type manualClock struct {
	mu    sync.Mutex
	timer *manualTimer
	f     func()
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) search.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = &manualTimer{}
	c.f = f
	return c.timer
}

func (c *manualClock) Fire() {
	c.mu.Lock()
	t, f := c.timer, c.f
	c.mu.Unlock()
	if t != nil && !t.stopped {
		f()
	}
}

type shellFixture struct {
	shell   *Shell
	out     *bytes.Buffer
	clock   *manualClock
	service *services.TaskService
	owner   uuid.UUID
}

func newShell(t *testing.T) *shellFixture {
	t.Helper()
	f := &shellFixture{
		out:     &bytes.Buffer{},
		clock:   &manualClock{},
		service: services.NewTaskService(memory.NewTaskRepository(), logger.NewNop()),
		owner:   uuid.New(),
	}
	f.shell = NewShell(context.Background(), f.service, f.owner, logger.NewNop(), f.out, search.WithClock(f.clock))
	return f
}

func (f *shellFixture) run(t *testing.T, lines ...string) string {
	t.Helper()
	f.out.Reset()
	for _, line := range lines {
		if f.shell.Handle(line) {
			break
		}
	}
	return f.out.String()
}

func (f *shellFixture) view(t *testing.T) []string {
	t.Helper()
	f.shell.mu.Lock()
	defer f.shell.mu.Unlock()
	out := make([]string, 0, len(f.shell.snapshot.View.Tasks))
	for _, task := range f.shell.snapshot.View.Tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestShell_AddAndComplete(t *testing.T) {
	f := newShell(t)

	out := f.run(t, ":add Buy milk", ":add Write report !high")
	assert.Contains(t, out, "[ ] Write report (high)")
	assert.Equal(t, []string{"Write report", "Buy milk"}, f.view(t))

	out = f.run(t, ":done 2")
	assert.Contains(t, out, "[x] Buy milk (medium)")
	assert.Contains(t, out, "*all 2")
	assert.Contains(t, out, "completed 1")

	out = f.run(t, ":filter pending")
	assert.Contains(t, out, "*pending 1")
	assert.Equal(t, []string{"Write report"}, f.view(t))
}

func TestShell_BinLifecycle(t *testing.T) {
	f := newShell(t)
	f.run(t, ":add Old draft")

	f.run(t, ":rm 1")
	assert.Empty(t, f.view(t))

	out := f.run(t, ":filter deleted")
	assert.Contains(t, out, "[-] Old draft")

	out = f.run(t, ":done 1")
	assert.Contains(t, out, "! complete failed")

	f.run(t, ":restore 1")
	assert.Empty(t, f.view(t))
	tasks, err := f.service.ListTasks(context.Background(), f.owner, query.FilterAll, "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, entities.TaskStatusPending, tasks[0].Status)

	f.run(t, ":filter all", ":rm 1", ":filter deleted", ":purge 1")
	assert.Empty(t, f.view(t))
	result, err := f.service.QueryTasks(context.Background(), f.owner, query.FilterDeleted, "")
	require.NoError(t, err)
	assert.Empty(t, result.Tasks)
}

func TestShell_DebouncedSearch(t *testing.T) {
	f := newShell(t)
	f.run(t, ":add Write report", ":add Buy milk")

	out := f.run(t, "rep", "repo")
	assert.Empty(t, out)
	assert.Len(t, f.view(t), 2)

	f.clock.Fire()
	assert.Equal(t, []string{"Write report"}, f.view(t))
	assert.Contains(t, f.out.String(), `search "repo"`)

	f.run(t, ":clear")
	assert.Len(t, f.view(t), 2)
}

func TestShell_Edit(t *testing.T) {
	f := newShell(t)
	f.run(t, ":add Wrte report")

	out := f.run(t, ":edit 1 Write report")
	assert.Contains(t, out, "[ ] Write report (medium)")

	out = f.run(t, ":edit 1")
	assert.Contains(t, out, "! edit failed")
	assert.Equal(t, []string{"Write report"}, f.view(t))
}

func TestShell_BadInput(t *testing.T) {
	f := newShell(t)
	f.run(t, ":add Only task")

	tests := []struct {
		line string
		want string
	}{
		{":done", "expected a row number"},
		{":done 7", "no row 7"},
		{":filter archived", "!"},
		{":add task !urgent", "!"},
		{":add", "create failed"},
		{":bogus", "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Contains(t, f.run(t, tt.line), tt.want)
		})
	}
}

func TestShell_Run(t *testing.T) {
	f := newShell(t)

	in := strings.NewReader(":add Write report\n:help\n:quit\n:add never\n")
	require.NoError(t, f.shell.Run(in))

	out := f.out.String()
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "commands:")

	tasks, err := f.service.ListTasks(context.Background(), f.owner, query.FilterAll, "")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}
