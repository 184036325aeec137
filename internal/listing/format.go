package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/projecthub/pkg/hub"
)

// FormatTable writes tasks as a table: ID, STATUS, PRIO, POINTS, ASSIGNEE, UPDATED and TITLE
// (truncated). Returns the number of tasks written.
func FormatTable(w io.Writer, tasks []hub.Task, projectKey string) int {
	if len(tasks) == 0 {
		fmt.Fprintf(w, "No tasks found in project '%s'\n", projectKey)
		return 0
	}

	fmt.Fprintf(w, "Tasks in project '%s':\n\n", projectKey)

	fmt.Fprintf(w, "%-10s %-12s %-7s %-4s %-18s %-8s %s\n",
		"ID", "STATUS", "PRIO", "PTS", "ASSIGNEE", "UPDATED", "TITLE")
	fmt.Fprintf(w, "%-10s %-12s %-7s %-4s %-18s %-8s %s\n",
		"----------", "------------", "-------", "----", "------------------", "--------", "----------------------------------------")

	for i := range tasks {
		t := &tasks[i]
		fmt.Fprintf(w, "%-10s %-12s %-7s %-4s %-18s %-8s %s\n",
			formatID(t.ID),
			t.Status,
			t.Priority,
			formatPoints(t.StoryPoints),
			formatAssignee(t.Assignee),
			formatAge(t.UpdatedAt),
			formatTitle(t.Title),
		)
	}

	noun := "task"
	if len(tasks) != 1 {
		noun = "tasks"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(tasks), noun)

	return len(tasks)
}

// FormatJSONL writes one compact JSON object per task, for jq and friends.
func FormatJSONL(w io.Writer, tasks []hub.Task) error {
	for i := range tasks {
		data, err := json.Marshal(&tasks[i])
		if err != nil {
			return fmt.Errorf("failed to marshal task to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes one task as indented JSON.
func FormatSingleJSON(w io.Writer, task *hub.Task) error {
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal task to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatPoints(points *int) string {
	if points == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *points)
}

func formatAssignee(u *hub.UserRef) string {
	if u == nil {
		return "-"
	}
	name := u.Name
	if name == "" {
		name = u.Email
	}
	if len(name) > 18 {
		return name[:15] + "..."
	}
	return name
}

// formatTitle keeps the first line, at most 40 characters.
func formatTitle(title string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(title), "\n")
	if line == "" {
		return "-"
	}
	if len(line) > 40 {
		return line[:37] + "..."
	}
	return line
}

// formatAge renders t relative to now: "12s ago", "5m ago", "3h ago", "2d ago".
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
