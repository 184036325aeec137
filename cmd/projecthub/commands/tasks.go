package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/projecthub/internal/filter"
	"github.com/dyluth/projecthub/internal/listing"
	"github.com/dyluth/projecthub/internal/printer"
	"github.com/dyluth/projecthub/internal/resolver"
	"github.com/dyluth/projecthub/internal/timespec"
	"github.com/dyluth/projecthub/pkg/hub"
)

var (
	tasksProject      string
	tasksOrg          string
	tasksStatus       string
	tasksPriority     string
	tasksSearch       string
	tasksSince        string
	tasksUntil        string
	tasksFilter       string
	tasksSort         string
	tasksOutputFormat string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List a project's tasks",
	Long: `List the tasks of one project, straight from the database.

Output Formats:
  table - ID, status, priority, points, assignee, age and title
  jsonl - Line-delimited JSON, one complete task per line

Filters are ANDed together:
  --status, --priority  comma-separated values (TODO,IN_PROGRESS)
  --search              substring of title or description
  --since, --until      last update, as a duration ago (2h) or a timestamp
  --filter              expression over the task, e.g. 'points >= 5 && overdue'

Examples:
  projecthub tasks --project DEMO
  projecthub tasks --project DEMO --org acme-corp --status TODO,BLOCKED --sort priority
  projecthub tasks --project DEMO -o jsonl | jq -r .title
  projecthub tasks get 3f2a9c`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

var tasksGetCmd = &cobra.Command{
	Use:   "get <TASK_ID>",
	Short: "Print one task as JSON",
	Long: `Print one task as indented JSON.

The ID may be a full UUID or a unique prefix of at least 6 characters.`,
	Args: cobra.ExactArgs(1),
	RunE: runTasksGet,
}

func init() {
	tasksCmd.Flags().StringVar(&tasksProject, "project", "", "Project key (required)")
	tasksCmd.Flags().StringVar(&tasksOrg, "org", "", "Organization slug, when the key exists in several")
	tasksCmd.Flags().StringVar(&tasksStatus, "status", "", "Comma-separated statuses")
	tasksCmd.Flags().StringVar(&tasksPriority, "priority", "", "Comma-separated priorities")
	tasksCmd.Flags().StringVar(&tasksSearch, "search", "", "Substring of title or description")
	tasksCmd.Flags().StringVar(&tasksSince, "since", "", "Updated after (duration or RFC3339)")
	tasksCmd.Flags().StringVar(&tasksUntil, "until", "", "Updated before (duration or RFC3339)")
	tasksCmd.Flags().StringVar(&tasksFilter, "filter", "", "Filter expression")
	tasksCmd.Flags().StringVar(&tasksSort, "sort", "", "Sort by recent, title, priority or position (default: board order)")
	tasksCmd.Flags().StringVarP(&tasksOutputFormat, "output", "o", "table", "Output format: table or jsonl")
	tasksCmd.MarkFlagRequired("project")

	tasksCmd.AddCommand(tasksGetCmd)
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	var format listing.OutputFormat
	switch tasksOutputFormat {
	case "table":
		format = listing.OutputFormatDefault
	case "jsonl":
		format = listing.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", tasksOutputFormat),
			[]string{"Valid formats: table, jsonl"},
		)
	}

	opts, err := listOptions()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	project, err := findProject(ctx, st, tasksOrg, tasksProject)
	if err != nil {
		return err
	}

	if err := listing.ListTasks(ctx, st, project, format, opts, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	return nil
}

// listOptions turns the filter flags into listing options, reporting the
// first invalid flag.
func listOptions() (listing.Options, error) {
	var opts listing.Options

	sinceMS, untilMS, err := timespec.ParseRange(tasksSince, tasksUntil)
	if err != nil {
		return opts, printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use a duration like '1h30m', a day like '2024-03-15' or RFC3339 like '2024-03-15T13:00:00Z'"},
		)
	}
	opts.Criteria = filter.Criteria{
		SinceTimestampMs: sinceMS,
		UntilTimestampMs: untilMS,
		Query:            strings.TrimSpace(tasksSearch),
	}

	for _, s := range splitList(tasksStatus) {
		status := hub.TaskStatus(s)
		if err := status.Validate(); err != nil {
			return opts, printer.Error("invalid status", err.Error(),
				[]string{"Valid statuses: TODO, IN_PROGRESS, IN_REVIEW, DONE, BLOCKED"})
		}
		opts.Criteria.Statuses = append(opts.Criteria.Statuses, status)
	}
	for _, p := range splitList(tasksPriority) {
		priority := hub.Priority(p)
		if err := priority.Validate(); err != nil {
			return opts, printer.Error("invalid priority", err.Error(),
				[]string{"Valid priorities: LOW, MEDIUM, HIGH, URGENT"})
		}
		opts.Criteria.Priorities = append(opts.Criteria.Priorities, priority)
	}

	if tasksFilter != "" {
		expr, err := filter.Compile(tasksFilter)
		if err != nil {
			return opts, printer.Error("invalid filter expression", err.Error(),
				[]string{"Fields: title, description, status, priority, rank, points, assignee, labels, hasDue, due, overdue, project, now"})
		}
		opts.Expression = expr
	}

	switch tasksSort {
	case "", filter.SortRecent, filter.SortTitle, filter.SortPriority, filter.SortPosition:
		opts.Sort = tasksSort
	default:
		return opts, printer.Error(
			"invalid sort key",
			fmt.Sprintf("Unknown sort key: %s", tasksSort),
			[]string{"Valid keys: recent, title, priority, position"},
		)
	}
	return opts, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runTasksGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	shortID := args[0]
	err = listing.GetTask(ctx, st, shortID, cmd.OutOrStdout())
	switch {
	case err == nil:
		return nil
	case resolver.IsNotFoundError(err):
		return printer.Error(
			fmt.Sprintf("task with ID '%s' not found", shortID),
			"No task in the database has this ID or prefix.",
			[]string{"List a project's tasks:\n  projecthub tasks --project <KEY>"},
		)
	case resolver.IsAmbiguousError(err):
		return printer.Error(
			fmt.Sprintf("ambiguous task ID '%s'", shortID),
			"Several tasks start with this prefix:\n\n"+err.(*resolver.AmbiguousError).Details(),
			nil,
		)
	default:
		return printer.Error("failed to get task", err.Error(), nil)
	}
}
