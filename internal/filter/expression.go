package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/dyluth/projecthub/pkg/hub"
)

// TaskEnv is the variable set visible to filter expressions.
type TaskEnv struct {
	Title       string    `expr:"title"`
	Description string    `expr:"description"`
	Status      string    `expr:"status"`
	Priority    string    `expr:"priority"`
	Rank        int       `expr:"rank"` // LOW=0 .. URGENT=3
	Points      int       `expr:"points"`
	Assignee    string    `expr:"assignee"` // assignee name, empty when unassigned
	Labels      []string  `expr:"labels"`
	HasDue      bool      `expr:"hasDue"`
	Due         time.Time `expr:"due"`
	Overdue     bool      `expr:"overdue"`
	Project     string    `expr:"project"` // project key
	Now         time.Time `expr:"now"`
}

// Expression is a compiled boolean task filter, e.g.
//
//	status != "DONE" && (priority == "URGENT" || "bug" in labels)
type Expression struct {
	source  string
	program *vm.Program
}

// Compile checks the expression against TaskEnv once; it must yield a bool.
func Compile(source string) (*Expression, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("filter expression must not be empty")
	}
	program, err := expr.Compile(source, expr.Env(TaskEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return &Expression{source: source, program: program}, nil
}

// String returns the source text.
func (e *Expression) String() string {
	return e.source
}

// Match evaluates the expression for one task at the given instant.
func (e *Expression) Match(t *hub.Task, now time.Time) (bool, error) {
	out, err := expr.Run(e.program, EnvFor(t, now))
	if err != nil {
		return false, fmt.Errorf("filter expression failed on task %s: %w", t.ID, err)
	}
	return out.(bool), nil
}

// Filter keeps the tasks the expression accepts.
func (e *Expression) Filter(tasks []hub.Task, now time.Time) ([]hub.Task, error) {
	out := make([]hub.Task, 0, len(tasks))
	for i := range tasks {
		ok, err := e.Match(&tasks[i], now)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, tasks[i])
		}
	}
	return out, nil
}

// EnvFor flattens a task into the expression environment.
func EnvFor(t *hub.Task, now time.Time) TaskEnv {
	env := TaskEnv{
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Rank:        t.Priority.Rank(),
		Labels:      make([]string, 0, len(t.Labels)),
		Now:         now,
	}
	if t.StoryPoints != nil {
		env.Points = *t.StoryPoints
	}
	if t.Assignee != nil {
		env.Assignee = t.Assignee.Name
	}
	for _, l := range t.Labels {
		env.Labels = append(env.Labels, l.Name)
	}
	if t.DueDate != nil {
		env.HasDue = true
		env.Due = *t.DueDate
		env.Overdue = t.Status != hub.StatusDone && t.DueDate.Before(now)
	}
	if t.Project != nil {
		env.Project = t.Project.Key
	}
	return env
}
