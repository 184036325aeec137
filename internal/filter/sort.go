package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/projecthub/pkg/hub"
)

// Sort keys accepted by Sort.
const (
	SortRecent   = "recent"
	SortTitle    = "title"
	SortPriority = "priority"
	SortPosition = "position"
)

// Sort orders tasks in place. Ties keep their existing order.
func Sort(tasks []hub.Task, key string) error {
	var less func(a, b *hub.Task) bool
	switch key {
	case "", SortRecent:
		less = func(a, b *hub.Task) bool { return a.UpdatedAt.After(b.UpdatedAt) }
	case SortTitle:
		less = func(a, b *hub.Task) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortPriority:
		less = func(a, b *hub.Task) bool { return a.Priority.Rank() > b.Priority.Rank() }
	case SortPosition:
		less = func(a, b *hub.Task) bool { return a.Position < b.Position }
	default:
		return fmt.Errorf("unknown sort key: %s (must be 'recent', 'title', 'priority', or 'position')", key)
	}
	sort.SliceStable(tasks, func(i, j int) bool { return less(&tasks[i], &tasks[j]) })
	return nil
}
