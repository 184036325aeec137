// Package kanban arranges tasks into status columns and plans card moves.
package kanban

import (
	"fmt"
	"sort"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
)

// Column is one status lane of the board.
type Column struct {
	Status hub.TaskStatus `json:"status"`
	Title  string         `json:"title"`
	Tasks  []hub.Task     `json:"tasks"`
	Count  int            `json:"count"`
	Points int            `json:"points"`
}

// Board is a project's kanban view.
type Board struct {
	Columns []Column `json:"columns"`
}

var lanes = []struct {
	status hub.TaskStatus
	title  string
}{
	{hub.StatusTodo, "To Do"},
	{hub.StatusInProgress, "In Progress"},
	{hub.StatusInReview, "In Review"},
	{hub.StatusDone, "Done"},
}

// Build groups tasks by status, each column ordered by position. The four
// standard columns are always present; a Blocked column is appended only when
// some task is blocked.
func Build(tasks []hub.Task) Board {
	byStatus := make(map[hub.TaskStatus][]hub.Task, len(lanes)+1)
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	board := Board{Columns: make([]Column, 0, len(lanes)+1)}
	for _, l := range lanes {
		board.Columns = append(board.Columns, column(l.status, l.title, byStatus[l.status]))
	}
	if blocked := byStatus[hub.StatusBlocked]; len(blocked) > 0 {
		board.Columns = append(board.Columns, column(hub.StatusBlocked, "Blocked", blocked))
	}
	return board
}

func column(status hub.TaskStatus, title string, tasks []hub.Task) Column {
	sorted := make([]hub.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	c := Column{Status: status, Title: title, Tasks: sorted, Count: len(sorted)}
	for _, t := range sorted {
		if t.StoryPoints != nil {
			c.Points += *t.StoryPoints
		}
	}
	return c
}

// Move is the body of a card drag: the target column and optionally a slot in it.
type Move struct {
	Status   hub.TaskStatus `json:"status"`
	Position *int           `json:"position,omitempty"`
}

// Plan turns a move into the patch to write. It returns false when the card
// stays where it is and nothing needs writing. Without a position, a card
// changing column lands at the bottom of the target column.
func Plan(task *hub.Task, mv Move) (store.TaskPatch, bool, error) {
	if err := mv.Status.Validate(); err != nil {
		return store.TaskPatch{}, false, apperr.Validation(err.Error())
	}
	if mv.Position != nil && *mv.Position < 0 {
		return store.TaskPatch{}, false, apperr.Validation(fmt.Sprintf("position must be >= 0, got %d", *mv.Position))
	}

	if mv.Status == task.Status {
		if mv.Position == nil || *mv.Position == task.Position {
			return store.TaskPatch{}, false, nil
		}
		return store.TaskPatch{Position: mv.Position}, true, nil
	}

	status := mv.Status
	return store.TaskPatch{Status: &status, Position: mv.Position}, true, nil
}

// StatusChange describes a status transition for the activity log.
func StatusChange(from, to hub.TaskStatus) string {
	return fmt.Sprintf("Changed status from %s to %s", from, to)
}
