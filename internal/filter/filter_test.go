package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/projecthub/pkg/hub"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func sampleTasks() []hub.Task {
	return []hub.Task{
		{
			ID: "t1", Title: "Fix login bug", Status: hub.StatusTodo, Priority: hub.PriorityUrgent,
			StoryPoints: intPtr(3), DueDate: timePtr(now.Add(-24 * time.Hour)), ProjectID: "p1",
			AssigneeID: strPtr("u1"), Assignee: &hub.UserRef{ID: "u1", Name: "Dev User"},
			Labels: []hub.Label{{Name: "bug"}}, Project: &hub.ProjectRef{ID: "p1", Key: "DEMO"},
			Position: 2, UpdatedAt: now.Add(-3 * time.Hour),
		},
		{
			ID: "t2", Title: "Write docs", Description: "API reference", Status: hub.StatusDone, Priority: hub.PriorityLow,
			DueDate: timePtr(now.Add(-48 * time.Hour)), ProjectID: "p1", Position: 0,
			Project: &hub.ProjectRef{ID: "p1", Key: "DEMO"}, UpdatedAt: now.Add(-1 * time.Hour),
		},
		{
			ID: "t3", Title: "add dark mode", Status: hub.StatusInProgress, Priority: hub.PriorityHigh,
			StoryPoints: intPtr(5), ProjectID: "p2", Labels: []hub.Label{{Name: "feature"}},
			Position: 1, UpdatedAt: now.Add(-2 * time.Hour),
		},
	}
}

func ids(tasks []hub.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestCriteria(t *testing.T) {
	tasks := sampleTasks()

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"no filters", Criteria{}, []string{"t1", "t2", "t3"}},
		{"since", Criteria{SinceTimestampMs: now.Add(-150 * time.Minute).UnixMilli()}, []string{"t2", "t3"}},
		{"until", Criteria{UntilTimestampMs: now.Add(-150 * time.Minute).UnixMilli()}, []string{"t1"}},
		{"statuses", Criteria{Statuses: []hub.TaskStatus{hub.StatusTodo, hub.StatusDone}}, []string{"t1", "t2"}},
		{"priorities", Criteria{Priorities: []hub.Priority{hub.PriorityHigh}}, []string{"t3"}},
		{"assignee", Criteria{AssigneeID: "u1"}, []string{"t1"}},
		{"project", Criteria{ProjectID: "p2"}, []string{"t3"}},
		{"query matches description case-insensitively", Criteria{Query: "api"}, []string{"t2"}},
		{"combined", Criteria{ProjectID: "p1", Statuses: []hub.TaskStatus{hub.StatusDone}}, []string{"t2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.criteria.Apply(tasks)))
			assert.Equal(t, tt.name != "no filters", tt.criteria.HasFilters())
		})
	}
}

func TestExpression(t *testing.T) {
	tasks := sampleTasks()

	tests := []struct {
		source string
		want   []string
	}{
		{`status != "DONE"`, []string{"t1", "t3"}},
		{`"bug" in labels`, []string{"t1"}},
		{`overdue`, []string{"t1"}},
		{`rank >= 2 && points > 3`, []string{"t3"}},
		{`project == "DEMO" && assignee == ""`, []string{"t2"}},
		{`hasDue && due < now`, []string{"t1", "t2"}},
		{`title contains "docs" || priority == "URGENT"`, []string{"t1", "t2"}},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			e, err := Compile(tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.source, e.String())

			got, err := e.Filter(tasks, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty", "  "},
		{"unknown variable", `colour == "red"`},
		{"not boolean", `title`},
		{"syntax", `status ==`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.source)
			assert.Error(t, err)
		})
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		key  string
		want []string
	}{
		{"", []string{"t2", "t3", "t1"}},
		{SortRecent, []string{"t2", "t3", "t1"}},
		{SortTitle, []string{"t3", "t1", "t2"}},
		{SortPriority, []string{"t1", "t3", "t2"}},
		{SortPosition, []string{"t2", "t3", "t1"}},
	}

	for _, tt := range tests {
		t.Run("key="+tt.key, func(t *testing.T) {
			tasks := sampleTasks()
			require.NoError(t, Sort(tasks, tt.key))
			assert.Equal(t, tt.want, ids(tasks))
		})
	}

	t.Run("unknown key", func(t *testing.T) {
		err := Sort(sampleTasks(), "size")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown sort key: size")
	})
}
