package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dyluth/projecthub/pkg/hub"
)

// DefaultActivityLimit caps activity listings.
const DefaultActivityLimit = 50

// LogActivity appends an entry to a task's activity log.
func (s *Store) LogActivity(ctx context.Context, a *hub.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := s.nowMillis()
	a.CreatedAt = fromMillis(now)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_logs (id, task_id, user_id, action, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.TaskID, a.UserID, a.Action, a.Details, now)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}

// ListActivity returns a task's activity, newest first, at most limit entries.
func (s *Store) ListActivity(ctx context.Context, taskID string, limit int) ([]hub.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.task_id, a.user_id, a.action, a.details, a.created_at, u.name, u.email, u.image
		FROM activity_logs a JOIN users u ON u.id = a.user_id
		WHERE a.task_id = ?
		ORDER BY a.created_at DESC, a.rowid DESC
		LIMIT ?`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := []hub.Activity{}
	for rows.Next() {
		var (
			a         hub.Activity
			ref       hub.UserRef
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &a.Action, &a.Details, &createdAt, &ref.Name, &ref.Email, &ref.Image); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		ref.ID = a.UserID
		a.User = &ref
		a.CreatedAt = fromMillis(createdAt)
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
