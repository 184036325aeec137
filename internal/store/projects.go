package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

const projectColumns = `p.id, p.name, p.key, p.description, p.status, p.start_date, p.end_date, p.organization_id, p.created_at, p.updated_at`

// ProjectPatch holds the editable project fields. Nil fields are left alone.
type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *hub.ProjectStatus
	StartDate   Optional[time.Time]
	EndDate     Optional[time.Time]
}

func scanProject(row interface{ Scan(...any) error }, extra ...any) (*hub.Project, error) {
	var (
		p                    hub.Project
		start, end           sql.NullInt64
		createdAt, updatedAt int64
	)
	dest := append([]any{&p.ID, &p.Name, &p.Key, &p.Description, &p.Status, &start, &end, &p.OrganizationID, &createdAt, &updatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.StartDate = timeFromNull(start)
	p.EndDate = timeFromNull(end)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

// CreateProject inserts a project. Keys are unique within an organization.
func (s *Store) CreateProject(ctx context.Context, p *hub.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Key = hub.NormalizeKey(p.Key)
	p.Name = strings.TrimSpace(p.Name)
	if p.Status == "" {
		p.Status = hub.ProjectPlanning
	}
	if err := p.Validate(); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid project")
	}

	now := s.nowMillis()
	p.CreatedAt = fromMillis(now)
	p.UpdatedAt = p.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, key, description, status, start_date, end_date, organization_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Key, p.Description, p.Status, nullMillis(p.StartDate), nullMillis(p.EndDate), p.OrganizationID, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("project key already exists in this organization")
		}
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// GetProject loads a project without access checks.
func (s *Store) GetProject(ctx context.Context, id string) (*hub.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		return nil, notFound(err, "project")
	}
	return p, nil
}

// GetProjectForUser loads a project in one of the user's organizations.
// Projects outside the user's organizations are reported as NotFound.
func (s *Store) GetProjectForUser(ctx context.Context, id, userID string) (*hub.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id),
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id AND t.status = 'DONE')
		FROM projects p
		WHERE p.id = ? AND p.organization_id IN (`+accessibleOrgs+`)`, id, userID)

	var total, done int
	p, err := scanProject(row, &total, &done)
	if err != nil {
		return nil, notFound(err, "project")
	}
	p.TaskCount, p.DoneTaskCount = total, done
	return p, nil
}

// FindProjectsByKey returns every project with the key, optionally limited to one organization slug.
func (s *Store) FindProjectsByKey(ctx context.Context, orgSlug, key string) ([]hub.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p JOIN organizations o ON o.id = p.organization_id WHERE p.key = ?`
	args := []any{hub.NormalizeKey(key)}
	if orgSlug != "" {
		query += ` AND o.slug = ?`
		args = append(args, strings.ToLower(orgSlug))
	}
	query += ` ORDER BY o.slug`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find projects: %w", err)
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

// ListProjectsForUser returns the user's projects, most recently updated first, with task counts.
func (s *Store) ListProjectsForUser(ctx context.Context, userID string) ([]hub.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+`,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id),
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id AND t.status = 'DONE')
		FROM projects p
		WHERE p.organization_id IN (`+accessibleOrgs+`)
		ORDER BY p.updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []hub.Project{}
	for rows.Next() {
		var total, done int
		p, err := scanProject(rows, &total, &done)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.TaskCount, p.DoneTaskCount = total, done
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// CountProjectsForUser counts projects across the user's organizations.
func (s *Store) CountProjectsForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE organization_id IN (`+accessibleOrgs+`)`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

// UpdateProject applies the present fields of the patch.
func (s *Store) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*hub.Project, error) {
	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("project name cannot be empty")
		}
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Status != nil {
		if err := patch.Status.Validate(); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, err, "invalid project status")
		}
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.StartDate.Set {
		sets = append(sets, "start_date = ?")
		args = append(args, nullMillis(patch.StartDate.Value))
	}
	if patch.EndDate.Set {
		sets = append(sets, "end_date = ?")
		args = append(args, nullMillis(patch.EndDate.Value))
	}
	if len(sets) == 0 {
		return s.GetProject(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, s.nowMillis(), id)

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("project not found")
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project; sprints, tasks and their children cascade.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("project not found")
	}
	return nil
}
