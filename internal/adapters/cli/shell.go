// Package cli drives a task board from a line-oriented terminal session.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/application/board"
	"github.com/taskmaster/todo/internal/application/search"
	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/query"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

const help = `commands:
  :add <title> [!low|!medium|!high]   create a task
  :done <n>      complete task n        :undo <n>     mark task n pending
  :rm <n>        move task n to bin     :restore <n>  restore task n
  :edit <n> <title>                   rename task n
  :purge <n>     erase task n from bin  :filter <all|pending|completed|deleted>
  :list          redraw                 :clear        clear the search
  :help          this text              :quit         leave
anything else is a search, run after you stop typing`

// Shell reads commands, applies them to a board and prints the view after each change.
type Shell struct {
	board    *board.Board
	search   *search.Debouncer
	out      io.Writer
	mu       sync.Mutex
	ctx      context.Context
	snapshot board.Snapshot
}

// NewShell builds a shell over service for ownerID. searchOpts tune the search debounce.
func NewShell(ctx context.Context, service ports.TaskService, ownerID uuid.UUID, log *logger.Logger, out io.Writer, searchOpts ...search.Option) *Shell {
	s := &Shell{out: out, ctx: ctx}
	s.board = board.New(service, ownerID, log,
		board.WithChangeHandler(s.render),
		board.WithNotifier(s.notify),
	)
	s.search = search.New(func(q string) {
		// failures are reported through the notifier
		_ = s.board.SetSearch(s.ctx, q)
	}, searchOpts...)
	return s
}

// Run processes lines from in until EOF, :quit or ctx is done.
func (s *Shell) Run(in io.Reader) error {
	defer s.search.Stop()

	if err := s.board.Reload(s.ctx); err != nil {
		s.printf("! could not load tasks: %v\n", err)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		if quit := s.Handle(scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// Handle executes a single input line and reports whether the session should end.
func (s *Shell) Handle(line string) bool {
	if !strings.HasPrefix(line, ":") {
		s.search.Input(line)
		return false
	}

	cmd, arg, _ := strings.Cut(strings.TrimSpace(line[1:]), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "q", "quit", "exit":
		return true
	case "h", "help":
		s.printf("%s\n", help)
	case "l", "list":
		s.render(s.board.Snapshot())
	case "c", "clear":
		s.search.Clear()
	case "f", "filter":
		filter, err := query.ParseFilter(arg)
		if err != nil {
			s.printf("! %v\n", err)
			return false
		}
		_ = s.board.SetFilter(s.ctx, filter)
	case "a", "add":
		input, err := parseAdd(arg)
		if err != nil {
			s.printf("! %v\n", err)
			return false
		}
		_, _ = s.board.Create(s.ctx, input)
	case "d", "done":
		s.withTask(arg, func(t *entities.Task) { _ = s.board.Complete(s.ctx, t.ID) })
	case "u", "undo":
		s.withTask(arg, func(t *entities.Task) { _ = s.board.MarkPending(s.ctx, t.ID) })
	case "rm":
		s.withTask(arg, func(t *entities.Task) { _ = s.board.Delete(s.ctx, t.ID) })
	case "restore":
		s.withTask(arg, func(t *entities.Task) { _ = s.board.Restore(s.ctx, t.ID) })
	case "e", "edit":
		row, title, _ := strings.Cut(arg, " ")
		s.withTask(row, func(t *entities.Task) {
			_ = s.board.Update(s.ctx, t.ID, ports.UpdateTaskInput{Title: &title})
		})
	case "purge":
		s.withTask(arg, func(t *entities.Task) { _ = s.board.PermanentlyDelete(s.ctx, t.ID) })
	default:
		s.printf("! unknown command %q, try :help\n", cmd)
	}
	return false
}

// withTask resolves a 1-based row number against the last rendered view.
func (s *Shell) withTask(arg string, fn func(*entities.Task)) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		s.printf("! expected a row number, got %q\n", arg)
		return
	}

	s.mu.Lock()
	tasks := s.snapshot.View.Tasks
	s.mu.Unlock()

	if n < 1 || n > len(tasks) {
		s.printf("! no row %d\n", n)
		return
	}
	fn(tasks[n-1])
}

// parseAdd splits "<title> [!priority]".
func parseAdd(arg string) (ports.CreateTaskInput, error) {
	input := ports.CreateTaskInput{Title: arg}

	fields := strings.Fields(arg)
	if len(fields) > 1 && strings.HasPrefix(fields[len(fields)-1], "!") {
		p, err := entities.ParsePriority(strings.TrimPrefix(fields[len(fields)-1], "!"))
		if err != nil {
			return input, err
		}
		input.Priority = p
		input.Title = strings.Join(fields[:len(fields)-1], " ")
	}
	return input, nil
}

func (s *Shell) render(snap board.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap

	c := snap.View.Counts
	var b strings.Builder
	for _, f := range query.Filters {
		marker := " "
		if f == snap.Filter {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s%s %d  ", marker, f, c.Get(f))
	}
	if q := strings.TrimSpace(snap.Search); q != "" {
		fmt.Fprintf(&b, " search %q", q)
	}
	fmt.Fprintln(s.out, strings.TrimRight(b.String(), " "))

	if len(snap.View.Tasks) == 0 {
		fmt.Fprintln(s.out, "  (no tasks)")
		return
	}
	for i, t := range snap.View.Tasks {
		fmt.Fprintf(s.out, "%3d. %s\n", i+1, formatTask(t))
	}
}

func formatTask(t *entities.Task) string {
	box := "[ ]"
	switch t.Status {
	case entities.TaskStatusCompleted:
		box = "[x]"
	case entities.TaskStatusDeleted:
		box = "[-]"
	}

	line := fmt.Sprintf("%s %s (%s)", box, t.Title, t.Priority)
	if t.DueDate != nil {
		line += " due " + *t.DueDate
		if t.DueTime != nil {
			line += " " + *t.DueTime
		}
	}
	return line
}

func (s *Shell) notify(n board.Notice) {
	if n.Action == "" {
		s.printf("! reload failed: %v\n", n.Err)
		return
	}
	s.printf("! %s failed: %v\n", strings.ReplaceAll(string(n.Action), "_", " "), n.Err)
}

func (s *Shell) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
