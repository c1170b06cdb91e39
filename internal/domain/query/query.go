// Package query composes status filtering, free-text search, ordering and per-status
// counts over an in-memory set of tasks. Everything here is pure and never fails.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/taskmaster/todo/internal/domain/entities"
)

// Filter selects tasks by lifecycle state for display.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
	FilterDeleted   Filter = "deleted"
)

// Filters lists every filter bucket in sidebar order.
var Filters = []Filter{FilterAll, FilterPending, FilterCompleted, FilterDeleted}

// ParseFilter maps user input to a Filter. Empty input means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterCompleted, FilterDeleted:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q", entities.ErrInvalidStatus, s)
	}
}

// Status returns the task status the filter selects, or false for FilterAll.
func (f Filter) Status() (entities.TaskStatus, bool) {
	if f == FilterAll || f == "" {
		return "", false
	}
	return entities.TaskStatus(f), true
}

// Counts holds the number of tasks per filter bucket.
type Counts struct {
	All       int `json:"all"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Deleted   int `json:"deleted"`
}

// Get returns the count for a single bucket.
func (c Counts) Get(f Filter) int {
	switch f {
	case FilterPending:
		return c.Pending
	case FilterCompleted:
		return c.Completed
	case FilterDeleted:
		return c.Deleted
	default:
		return c.All
	}
}

// Result is what a view renders: the ordered tasks and the sidebar counts.
type Result struct {
	Tasks  []*entities.Task `json:"tasks"`
	Counts Counts           `json:"counts"`
}

// Run filters by status, narrows by search, sorts, and counts. Counts ignore the search
// string so badges keep showing true totals while the list is narrowed.
func Run(tasks []*entities.Task, filter Filter, search string) Result {
	visible := make([]*entities.Task, 0, len(tasks))
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if InFilter(t, filter) && Matches(t, search) {
			visible = append(visible, t)
		}
	}
	Sort(visible)

	return Result{
		Tasks:  visible,
		Counts: Count(tasks),
	}
}

// InFilter reports whether t belongs to the filter bucket. FilterAll holds every task that
// is not deleted.
func InFilter(t *entities.Task, filter Filter) bool {
	if t == nil {
		return false
	}
	status, ok := filter.Status()
	if !ok {
		return t.Status != entities.TaskStatusDeleted
	}
	return t.Status == status
}

// ByStatus returns the tasks in the filter bucket, in input order.
func ByStatus(tasks []*entities.Task, filter Filter) []*entities.Task {
	out := make([]*entities.Task, 0, len(tasks))
	for _, t := range tasks {
		if InFilter(t, filter) {
			out = append(out, t)
		}
	}
	return out
}

// Matches reports whether search occurs in the title or description, ignoring case.
// A blank search matches everything.
func Matches(t *entities.Task, search string) bool {
	if t == nil {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.DescriptionText()), needle)
}

// Less orders two tasks: when both are pending the higher priority wins, otherwise the
// newer task comes first.
func Less(a, b *entities.Task) bool {
	if a.IsActive() && b.IsActive() {
		ra, rb := a.Priority.Rank(), b.Priority.Rank()
		if ra != rb {
			return ra > rb
		}
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Sort orders tasks in place using Less. Ties keep their input order.
func Sort(tasks []*entities.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Less(tasks[i], tasks[j])
	})
}

// Count tallies tasks per bucket.
func Count(tasks []*entities.Task) Counts {
	var c Counts
	for _, t := range tasks {
		if t == nil {
			continue
		}
		switch t.Status {
		case entities.TaskStatusPending:
			c.Pending++
		case entities.TaskStatusCompleted:
			c.Completed++
		case entities.TaskStatusDeleted:
			c.Deleted++
			continue
		}
		c.All++
	}
	return c
}
