package store

import (
	"context"
	"fmt"

	"github.com/dyluth/projecthub/pkg/hub"
)

// Totals are the headline counters of the reports page.
type Totals struct {
	Projects      int `json:"totalProjects"`
	Tasks         int `json:"totalTasks"`
	Completed     int `json:"completedTasks"`
	ActiveSprints int `json:"activeSprints"`
}

// SprintVelocity compares committed and delivered story points for one sprint.
type SprintVelocity struct {
	SprintID  string `json:"sprintId"`
	Sprint    string `json:"sprint"`
	Project   string `json:"project"`
	Committed int    `json:"committed"`
	Completed int    `json:"completed"`
}

// ProjectProgress is a project's done/total task ratio.
type ProjectProgress struct {
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Key       string `json:"key"`
	Total     int    `json:"total"`
	Done      int    `json:"done"`
}

const userTasks = `FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.organization_id IN (` + accessibleOrgs + `)`

// ReportTotals counts projects, tasks, completed tasks and active sprints in the user's organizations.
func (s *Store) ReportTotals(ctx context.Context, userID string) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM projects WHERE organization_id IN (`+accessibleOrgs+`)),
			(SELECT COUNT(*) `+userTasks+`),
			(SELECT COUNT(*) `+userTasks+` AND t.status = 'DONE'),
			(SELECT COUNT(*) FROM sprints s JOIN projects p ON p.id = s.project_id
				WHERE s.status = 'ACTIVE' AND p.organization_id IN (`+accessibleOrgs+`))`,
		userID, userID, userID, userID).Scan(&t.Projects, &t.Tasks, &t.Completed, &t.ActiveSprints)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to compute report totals: %w", err)
	}
	return t, nil
}

// StatusCounts returns the number of tasks per status. Every status is present.
func (s *Store) StatusCounts(ctx context.Context, userID string) (map[hub.TaskStatus]int, error) {
	counts := make(map[hub.TaskStatus]int)
	for _, st := range hub.TaskStatuses() {
		counts[st] = 0
	}
	err := s.groupCount(ctx, `SELECT t.status, COUNT(*) `+userTasks+` GROUP BY t.status`, userID, func(key string, n int) {
		counts[hub.TaskStatus(key)] = n
	})
	return counts, err
}

// PriorityCounts returns the number of tasks per priority. Every priority is present.
func (s *Store) PriorityCounts(ctx context.Context, userID string) (map[hub.Priority]int, error) {
	counts := make(map[hub.Priority]int)
	for _, p := range hub.Priorities() {
		counts[p] = 0
	}
	err := s.groupCount(ctx, `SELECT t.priority, COUNT(*) `+userTasks+` GROUP BY t.priority`, userID, func(key string, n int) {
		counts[hub.Priority(key)] = n
	})
	return counts, err
}

func (s *Store) groupCount(ctx context.Context, query, userID string, fn func(key string, n int)) error {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan count: %w", err)
		}
		fn(key, n)
	}
	return rows.Err()
}

// SprintVelocities returns committed and completed story points per sprint, oldest sprint first.
func (s *Store) SprintVelocities(ctx context.Context, userID string, limit int) ([]SprintVelocity, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sp.id, sp.name, p.name,
			COALESCE(SUM(t.story_points), 0),
			COALESCE(SUM(CASE WHEN t.status = 'DONE' THEN t.story_points ELSE 0 END), 0)
		FROM sprints sp
		JOIN projects p ON p.id = sp.project_id
		LEFT JOIN tasks t ON t.sprint_id = sp.id
		WHERE p.organization_id IN (`+accessibleOrgs+`)
		GROUP BY sp.id
		ORDER BY sp.start_date DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute velocity: %w", err)
	}
	defer rows.Close()

	out := []SprintVelocity{}
	for rows.Next() {
		var v SprintVelocity
		if err := rows.Scan(&v.SprintID, &v.Sprint, &v.Project, &v.Committed, &v.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan velocity: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ProjectProgressForUser returns per-project task completion, by project name.
func (s *Store) ProjectProgressForUser(ctx context.Context, userID string) ([]ProjectProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.key,
			COUNT(t.id),
			COALESCE(SUM(CASE WHEN t.status = 'DONE' THEN 1 ELSE 0 END), 0)
		FROM projects p
		LEFT JOIN tasks t ON t.project_id = p.id
		WHERE p.organization_id IN (`+accessibleOrgs+`)
		GROUP BY p.id
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute project progress: %w", err)
	}
	defer rows.Close()

	out := []ProjectProgress{}
	for rows.Next() {
		var p ProjectProgress
		if err := rows.Scan(&p.ProjectID, &p.Name, &p.Key, &p.Total, &p.Done); err != nil {
			return nil, fmt.Errorf("failed to scan project progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
