// Package listing renders tasks for the command line.
package listing

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/projecthub/internal/filter"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
)

// OutputFormat selects how a task list is written.
type OutputFormat string

const (
	// OutputFormatDefault is a table with truncated titles.
	OutputFormatDefault OutputFormat = "table"

	// OutputFormatJSONL writes complete tasks as line-delimited JSON.
	OutputFormatJSONL OutputFormat = "jsonl"
)

// TaskSource is the slice of the store a listing reads from.
type TaskSource interface {
	ListTasks(ctx context.Context, q store.TaskQuery) ([]hub.Task, error)
}

// Options narrows and orders a project's task listing. Criteria are applied
// first, then the expression, then the sort.
type Options struct {
	Criteria   filter.Criteria
	Expression *filter.Expression
	Sort       string
}

// ListTasks writes the tasks of project in the requested format. Tasks are
// read in board order unless Options.Sort says otherwise.
func ListTasks(ctx context.Context, src TaskSource, project *hub.Project, format OutputFormat, opts Options, w io.Writer) error {
	tasks, err := src.ListTasks(ctx, store.TaskQuery{ProjectID: project.ID, Order: store.OrderPosition})
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks = opts.Criteria.Apply(tasks)
	if opts.Expression != nil {
		if tasks, err = opts.Expression.Filter(tasks, time.Now()); err != nil {
			return err
		}
	}
	if opts.Sort != "" {
		if err := filter.Sort(tasks, opts.Sort); err != nil {
			return err
		}
	}

	switch format {
	case OutputFormatDefault, "":
		FormatTable(w, tasks, project.Key)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, tasks); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}
