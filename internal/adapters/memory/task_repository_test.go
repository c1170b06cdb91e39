package memory

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/ports"
)

func strPtr(s string) *string { return &s }

func seed(t *testing.T, repo *TaskRepository, owner uuid.UUID, titles ...string) []*entities.Task {
	t.Helper()
	out := make([]*entities.Task, 0, len(titles))
	for _, title := range titles {
		task, err := repo.CreateTask(context.Background(), owner, ports.CreateTaskInput{Title: title})
		require.NoError(t, err)
		out = append(out, task)
	}
	return out
}

func TestCreateTask_Defaults(t *testing.T) {
	repo := NewTaskRepository()
	owner := uuid.New()

	task, err := repo.CreateTask(context.Background(), owner, ports.CreateTaskInput{Title: "Write report"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, owner, task.OwnerID)
	assert.Equal(t, entities.TaskStatusPending, task.Status)
	assert.Equal(t, entities.PriorityMedium, task.Priority)
	assert.False(t, task.CreatedAt.IsZero())
	assert.Nil(t, task.DeletedAt)
}

func TestOwnerScoping(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	tasks := seed(t, repo, alice, "Write report")
	seed(t, repo, bob, "Buy milk")

	_, err := repo.GetTask(ctx, bob, tasks[0].ID)
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)

	err = repo.HardDelete(ctx, bob, tasks[0].ID)
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)

	list, err := repo.ListTasks(ctx, alice, ports.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Write report", list[0].Title)
}

func TestListTasks_Filters(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	owner := uuid.New()

	tasks := seed(t, repo, owner, "Write report", "Buy milk", "Old note")
	require.NoError(t, repo.SetStatus(ctx, owner, tasks[1].ID, entities.StatusChange{Status: entities.TaskStatusCompleted}))
	now := time.Now()
	require.NoError(t, repo.SetStatus(ctx, owner, tasks[2].ID, entities.StatusChange{Status: entities.TaskStatusDeleted, DeletedAt: &now}))

	completed := entities.TaskStatusCompleted
	deleted := entities.TaskStatusDeleted

	tests := []struct {
		name   string
		filter ports.ListFilter
		want   []string
	}{
		{"default hides deleted", ports.ListFilter{}, []string{"Write report", "Buy milk"}},
		{"include deleted", ports.ListFilter{IncludeDeleted: true}, []string{"Write report", "Buy milk", "Old note"}},
		{"by status", ports.ListFilter{Status: &completed}, []string{"Buy milk"}},
		{"deleted bucket", ports.ListFilter{Status: &deleted}, []string{"Old note"}},
		{"search", ports.ListFilter{Search: "REPORT"}, []string{"Write report"}},
		{"search and status", ports.ListFilter{Status: &completed, Search: "report"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repo.ListTasks(ctx, owner, tt.filter)
			require.NoError(t, err)

			titles := make([]string, 0, len(list))
			for _, task := range list {
				titles = append(titles, task.Title)
			}
			assert.ElementsMatch(t, tt.want, titles)
		})
	}
}

func TestListTasks_NewestFirst(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	owner := uuid.New()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	at := base
	repo.SetClock(func() time.Time { return at })

	seed(t, repo, owner, "first")
	at = base.Add(time.Minute)
	seed(t, repo, owner, "second")
	at = base.Add(2 * time.Minute)
	seed(t, repo, owner, "third")
	at = base.Add(3 * time.Minute)
	twins := seed(t, repo, owner, "twin a", "twin b")

	want := []uuid.UUID{}
	if bytes.Compare(twins[0].ID[:], twins[1].ID[:]) < 0 {
		want = append(want, twins[0].ID, twins[1].ID)
	} else {
		want = append(want, twins[1].ID, twins[0].ID)
	}

	for i := 0; i < 50; i++ {
		list, err := repo.ListTasks(ctx, owner, ports.ListFilter{})
		require.NoError(t, err)
		require.Len(t, list, 5)

		assert.Equal(t, want, []uuid.UUID{list[0].ID, list[1].ID}, "ties order by id")
		titles := []string{list[2].Title, list[3].Title, list[4].Title}
		assert.Equal(t, []string{"third", "second", "first"}, titles)
	}
}

func TestUpdateTask_ClearsOptionalFields(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	owner := uuid.New()

	task, err := repo.CreateTask(ctx, owner, ports.CreateTaskInput{
		Title:       "Plan trip",
		Description: strPtr("book flights"),
		DueDate:     strPtr("2024-05-01"),
	})
	require.NoError(t, err)

	updated, err := repo.UpdateTask(ctx, owner, task.ID, ports.UpdateTaskInput{
		Description: strPtr(""),
		DueDate:     strPtr(""),
		Title:       strPtr("Plan holiday"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Plan holiday", updated.Title)
	assert.Nil(t, updated.Description)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
}

func TestReturnedTasksAreCopies(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	owner := uuid.New()

	task := seed(t, repo, owner, "Write report")[0]
	task.Title = "mutated"
	task.Status = entities.TaskStatusDeleted

	stored, err := repo.GetTask(ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", stored.Title)
	assert.Equal(t, entities.TaskStatusPending, stored.Status)
}

func TestGetStats(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	owner := uuid.New()

	tasks := seed(t, repo, owner, "a", "b", "c", "d")
	require.NoError(t, repo.SetStatus(ctx, owner, tasks[0].ID, entities.StatusChange{Status: entities.TaskStatusCompleted}))
	now := time.Now()
	require.NoError(t, repo.SetStatus(ctx, owner, tasks[1].ID, entities.StatusChange{Status: entities.TaskStatusDeleted, DeletedAt: &now}))
	seed(t, repo, uuid.New(), "someone else")

	stats, err := repo.GetStats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, entities.TaskStats{Total: 3, Pending: 2, Completed: 1, Deleted: 1}, stats)
}

func TestCancelledContext(t *testing.T) {
	repo := NewTaskRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListTasks(ctx, uuid.New(), ports.ListFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}
