package filter

import (
	"strings"

	"github.com/dyluth/projecthub/pkg/hub"
)

// Criteria defines filtering criteria for tasks.
// All filters are ANDed together - a task must match ALL criteria to pass.
type Criteria struct {
	SinceTimestampMs int64            // Unix ms compared against UpdatedAt, 0 = no filter
	UntilTimestampMs int64            // Unix ms compared against UpdatedAt, 0 = no filter
	Statuses         []hub.TaskStatus // Any of, empty = no filter
	Priorities       []hub.Priority   // Any of, empty = no filter
	AssigneeID       string           // Exact match, empty = no filter
	ProjectID        string           // Exact match, empty = no filter
	Query            string           // Case-insensitive substring of title or description
}

// Matches returns true if the task matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(t *hub.Task) bool {
	updated := t.UpdatedAt.UnixMilli()
	if c.SinceTimestampMs > 0 && updated < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && updated > c.UntilTimestampMs {
		return false
	}

	if len(c.Statuses) > 0 && !contains(c.Statuses, t.Status) {
		return false
	}
	if len(c.Priorities) > 0 && !contains(c.Priorities, t.Priority) {
		return false
	}

	if c.AssigneeID != "" && (t.AssigneeID == nil || *t.AssigneeID != c.AssigneeID) {
		return false
	}
	if c.ProjectID != "" && t.ProjectID != c.ProjectID {
		return false
	}

	if c.Query != "" {
		q := strings.ToLower(c.Query)
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		len(c.Statuses) > 0 ||
		len(c.Priorities) > 0 ||
		c.AssigneeID != "" ||
		c.ProjectID != "" ||
		c.Query != ""
}

// Apply returns the tasks matching the criteria, preserving order.
func (c *Criteria) Apply(tasks []hub.Task) []hub.Task {
	if !c.HasFilters() {
		return tasks
	}
	out := make([]hub.Task, 0, len(tasks))
	for i := range tasks {
		if c.Matches(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
