package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

const attachmentColumns = `id, name, url, size, content_type, storage_path, task_id, uploaded_by_id, created_at`

func scanAttachment(row interface{ Scan(...any) error }) (*hub.Attachment, error) {
	var (
		a         hub.Attachment
		createdAt int64
	)
	if err := row.Scan(&a.ID, &a.Name, &a.URL, &a.Size, &a.ContentType, &a.StoragePath, &a.TaskID, &a.UploadedByID, &createdAt); err != nil {
		return nil, err
	}
	a.CreatedAt = fromMillis(createdAt)
	return &a, nil
}

// CreateAttachment records an uploaded file. The URL defaults to the download route.
func (s *Store) CreateAttachment(ctx context.Context, a *hub.Attachment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.URL == "" {
		a.URL = "/api/attachments/" + a.ID
	}
	now := s.nowMillis()
	a.CreatedAt = fromMillis(now)
	_, err := s.db.ExecContext(ctx, `INSERT INTO attachments (`+attachmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.URL, a.Size, a.ContentType, a.StoragePath, a.TaskID, a.UploadedByID, now)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	return nil
}

// GetAttachment loads an attachment by ID.
func (s *Store) GetAttachment(ctx context.Context, id string) (*hub.Attachment, error) {
	a, err := scanAttachment(s.db.QueryRowContext(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "attachment")
	}
	return a, nil
}

// ListAttachments returns a task's attachments, newest first.
func (s *Store) ListAttachments(ctx context.Context, taskID string) ([]hub.Attachment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attachmentColumns+` FROM attachments WHERE task_id = ? ORDER BY created_at DESC, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	attachments := []hub.Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}

// DeleteAttachment removes the attachment row. The caller removes the stored file.
func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("attachment not found")
	}
	return nil
}
