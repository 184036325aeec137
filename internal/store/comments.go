package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

const commentSelect = `
	SELECT c.id, c.content, c.task_id, c.user_id, c.created_at, c.updated_at, u.name, u.email, u.image
	FROM comments c JOIN users u ON u.id = c.user_id`

func scanComment(row interface{ Scan(...any) error }) (*hub.Comment, error) {
	var (
		c                    hub.Comment
		ref                  hub.UserRef
		createdAt, updatedAt int64
	)
	if err := row.Scan(&c.ID, &c.Content, &c.TaskID, &c.UserID, &createdAt, &updatedAt, &ref.Name, &ref.Email, &ref.Image); err != nil {
		return nil, err
	}
	ref.ID = c.UserID
	c.User = &ref
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return &c, nil
}

// CreateComment inserts a comment and returns it with its author.
func (s *Store) CreateComment(ctx context.Context, c *hub.Comment) (*hub.Comment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Content = strings.TrimSpace(c.Content)
	if err := c.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid comment")
	}
	now := s.nowMillis()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, content, task_id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Content, c.TaskID, c.UserID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return s.GetComment(ctx, c.ID)
}

// GetComment loads a comment with its author.
func (s *Store) GetComment(ctx context.Context, id string) (*hub.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "comment")
	}
	return c, nil
}

// ListComments returns a task's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, taskID string) ([]hub.Comment, error) {
	rows, err := s.db.QueryContext(ctx, commentSelect+` WHERE c.task_id = ? ORDER BY c.created_at, c.id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []hub.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("comment not found")
	}
	return nil
}
