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

const sprintColumns = `s.id, s.name, s.goal, s.start_date, s.end_date, s.status, s.project_id, s.created_at, s.updated_at, p.name`

// SprintPatch holds the editable sprint fields.
type SprintPatch struct {
	Name      *string
	Goal      *string
	Status    *hub.SprintStatus
	StartDate *time.Time
	EndDate   *time.Time
}

func scanSprint(row interface{ Scan(...any) error }) (*hub.Sprint, error) {
	var (
		sp                   hub.Sprint
		start, end           int64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&sp.ID, &sp.Name, &sp.Goal, &start, &end, &sp.Status, &sp.ProjectID, &createdAt, &updatedAt, &sp.ProjectName); err != nil {
		return nil, err
	}
	sp.StartDate = fromMillis(start)
	sp.EndDate = fromMillis(end)
	sp.CreatedAt = fromMillis(createdAt)
	sp.UpdatedAt = fromMillis(updatedAt)
	return &sp, nil
}

// CreateSprint inserts a sprint. A project can hold at most one ACTIVE sprint.
func (s *Store) CreateSprint(ctx context.Context, sp *hub.Sprint) error {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	if sp.Status == "" {
		sp.Status = hub.SprintPlanned
	}
	if err := sp.Validate(); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid sprint")
	}

	now := s.nowMillis()
	sp.CreatedAt = fromMillis(now)
	sp.UpdatedAt = sp.CreatedAt

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if sp.Status == hub.SprintActive {
			if err := ensureNoActiveSprint(ctx, tx, sp.ProjectID, ""); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sprints (id, name, goal, start_date, end_date, status, project_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sp.ID, strings.TrimSpace(sp.Name), sp.Goal, toMillis(sp.StartDate), toMillis(sp.EndDate), sp.Status, sp.ProjectID, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert sprint: %w", err)
		}
		return nil
	})
}

func ensureNoActiveSprint(ctx context.Context, db execer, projectID, exceptID string) error {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sprints WHERE project_id = ? AND status = ? AND id != ?`,
		projectID, hub.SprintActive, exceptID).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check active sprints: %w", err)
	}
	if n > 0 {
		return apperr.Conflict("project already has an active sprint")
	}
	return nil
}

// GetSprintForUser loads a sprint whose project belongs to one of the user's organizations.
func (s *Store) GetSprintForUser(ctx context.Context, id, userID string) (*hub.Sprint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sprintColumns+`
		FROM sprints s JOIN projects p ON p.id = s.project_id
		WHERE s.id = ? AND p.organization_id IN (`+accessibleOrgs+`)`, id, userID)
	sp, err := scanSprint(row)
	if err != nil {
		return nil, notFound(err, "sprint")
	}
	return sp, nil
}

// ListSprints returns a project's sprints ordered by start date.
func (s *Store) ListSprints(ctx context.Context, projectID string) ([]hub.Sprint, error) {
	return s.querySprints(ctx, `
		SELECT `+sprintColumns+`
		FROM sprints s JOIN projects p ON p.id = s.project_id
		WHERE s.project_id = ?
		ORDER BY s.start_date, s.name`, projectID)
}

// ListSprintsForUser returns sprints across the user's organizations that overlap [from, to].
// Zero bounds are open.
func (s *Store) ListSprintsForUser(ctx context.Context, userID string, from, to time.Time) ([]hub.Sprint, error) {
	query := `
		SELECT ` + sprintColumns + `
		FROM sprints s JOIN projects p ON p.id = s.project_id
		WHERE p.organization_id IN (` + accessibleOrgs + `)`
	args := []any{userID}
	if !from.IsZero() {
		query += ` AND s.end_date >= ?`
		args = append(args, toMillis(from))
	}
	if !to.IsZero() {
		query += ` AND s.start_date <= ?`
		args = append(args, toMillis(to))
	}
	query += ` ORDER BY s.start_date, s.name`
	return s.querySprints(ctx, query, args...)
}

// CountActiveSprintsForUser counts ACTIVE sprints across the user's organizations.
func (s *Store) CountActiveSprintsForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sprints s JOIN projects p ON p.id = s.project_id
		WHERE s.status = ? AND p.organization_id IN (`+accessibleOrgs+`)`, hub.SprintActive, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sprints: %w", err)
	}
	return n, nil
}

func (s *Store) querySprints(ctx context.Context, query string, args ...any) ([]hub.Sprint, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprints: %w", err)
	}
	defer rows.Close()

	sprints := []hub.Sprint{}
	for rows.Next() {
		sp, err := scanSprint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sprint: %w", err)
		}
		sprints = append(sprints, *sp)
	}
	return sprints, rows.Err()
}

// UpdateSprint applies the present fields. Activating a sprint fails while another is active.
func (s *Store) UpdateSprint(ctx context.Context, id string, patch SprintPatch) (*hub.Sprint, error) {
	var out *hub.Sprint
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+sprintColumns+` FROM sprints s JOIN projects p ON p.id = s.project_id WHERE s.id = ?`, id)
		current, err := scanSprint(row)
		if err != nil {
			return notFound(err, "sprint")
		}

		if patch.Name != nil {
			current.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Goal != nil {
			current.Goal = *patch.Goal
		}
		if patch.StartDate != nil {
			current.StartDate = *patch.StartDate
		}
		if patch.EndDate != nil {
			current.EndDate = *patch.EndDate
		}
		if patch.Status != nil {
			if *patch.Status == hub.SprintActive && current.Status != hub.SprintActive {
				if err := ensureNoActiveSprint(ctx, tx, current.ProjectID, id); err != nil {
					return err
				}
			}
			current.Status = *patch.Status
		}
		if err := current.Validate(); err != nil {
			return apperr.Wrap(apperr.KindValidation, err, "invalid sprint")
		}

		now := s.nowMillis()
		if _, err := tx.ExecContext(ctx, `
			UPDATE sprints SET name = ?, goal = ?, start_date = ?, end_date = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			current.Name, current.Goal, toMillis(current.StartDate), toMillis(current.EndDate), current.Status, now, id); err != nil {
			return fmt.Errorf("failed to update sprint: %w", err)
		}
		current.UpdatedAt = fromMillis(now)
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
