package store

import (
	"context"
	"fmt"

	"github.com/dyluth/projecthub/pkg/hub"
)

// SearchProjects matches project names, keys and descriptions case-insensitively.
func (s *Store) SearchProjects(ctx context.Context, userID, q string, limit int) ([]hub.Project, error) {
	pattern := likePattern(q)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		WHERE p.organization_id IN (`+accessibleOrgs+`)
			AND (LOWER(p.name) LIKE ? ESCAPE '\' OR LOWER(p.key) LIKE ? ESCAPE '\' OR LOWER(p.description) LIKE ? ESCAPE '\')
		ORDER BY p.updated_at DESC
		LIMIT ?`, userID, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search projects: %w", err)
	}
	defer rows.Close()

	projects := []hub.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// SearchTasks matches task titles and descriptions case-insensitively.
func (s *Store) SearchTasks(ctx context.Context, userID, q string, limit int) ([]hub.Task, error) {
	return s.ListTasks(ctx, TaskQuery{UserID: userID, Search: q, Limit: limit})
}
