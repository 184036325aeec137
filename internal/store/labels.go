package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

const labelSelect = `
	SELECT l.id, l.name, l.color, l.project_id,
		(SELECT COUNT(*) FROM task_labels tl WHERE tl.label_id = l.id)
	FROM labels l`

func scanLabel(row interface{ Scan(...any) error }) (*hub.Label, error) {
	var (
		l         hub.Label
		projectID sql.NullString
	)
	if err := row.Scan(&l.ID, &l.Name, &l.Color, &projectID, &l.TaskCount); err != nil {
		return nil, err
	}
	l.ProjectID = stringFromNull(projectID)
	return &l, nil
}

// ListLabels returns the labels visible to the user ordered by name: global labels
// plus labels of projects in the user's organizations. A non-empty projectID
// narrows project labels to that project.
func (s *Store) ListLabels(ctx context.Context, userID, projectID string) ([]hub.Label, error) {
	query := labelSelect + `
		LEFT JOIN projects p ON p.id = l.project_id
		WHERE l.project_id IS NULL OR (p.organization_id IN (` + accessibleOrgs + `)`
	args := []any{userID}
	if projectID != "" {
		query += ` AND l.project_id = ?`
		args = append(args, projectID)
	}
	query += `) ORDER BY l.name, l.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer rows.Close()

	labels := []hub.Label{}
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, *l)
	}
	return labels, rows.Err()
}

// GetLabel loads a label by ID.
func (s *Store) GetLabel(ctx context.Context, id string) (*hub.Label, error) {
	row := s.db.QueryRowContext(ctx, labelSelect+` WHERE l.id = ?`, id)
	l, err := scanLabel(row)
	if err != nil {
		return nil, notFound(err, "label")
	}
	return l, nil
}

// CreateLabel inserts a label.
func (s *Store) CreateLabel(ctx context.Context, l *hub.Label) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.Name = strings.TrimSpace(l.Name)
	if err := l.Validate(); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid label")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO labels (id, name, color, project_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Color, nullString(l.ProjectID), s.nowMillis())
	if err != nil {
		return fmt.Errorf("failed to insert label: %w", err)
	}
	return nil
}

// UpdateLabel changes a label's name and/or color.
func (s *Store) UpdateLabel(ctx context.Context, id string, name, color *string) (*hub.Label, error) {
	l, err := s.GetLabel(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		l.Name = strings.TrimSpace(*name)
	}
	if color != nil {
		l.Color = *color
	}
	if err := l.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid label")
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE labels SET name = ?, color = ? WHERE id = ?`, l.Name, l.Color, id); err != nil {
		return nil, fmt.Errorf("failed to update label: %w", err)
	}
	return l, nil
}

// DeleteLabel removes a label and its task links.
func (s *Store) DeleteLabel(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM labels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("label not found")
	}
	return nil
}
