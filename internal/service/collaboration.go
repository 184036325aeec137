package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/logging"
	"github.com/dyluth/projecthub/internal/policy"
	"github.com/dyluth/projecthub/pkg/hub"
)

// ListComments returns a visible task's comments.
func (s *Service) ListComments(ctx context.Context, userID, taskID string) ([]hub.Comment, error) {
	if _, err := s.store.GetTaskForUser(ctx, taskID, userID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, taskID)
}

// CreateComment comments on a visible task. The task's assignee is notified
// unless they wrote the comment.
func (s *Service) CreateComment(ctx context.Context, actor *hub.User, taskID, content string) (*hub.Comment, error) {
	if taskID == "" || strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("taskId and content are required")
	}
	t, err := s.store.GetTaskForUser(ctx, taskID, actor.ID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.CreateComment(ctx, &hub.Comment{Content: content, TaskID: t.ID, UserID: actor.ID})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, t, hub.ActionCommentAdded, "Added a comment")
	if t.AssigneeID != nil {
		s.notify(ctx, actor, &hub.Notification{
			UserID:  *t.AssigneeID,
			Type:    hub.NotificationCommentAdded,
			Title:   "New comment",
			Message: fmt.Sprintf("%s commented on %s", actor.Name, t.Title),
			Link:    taskLink(t),
		})
	}
	return c, nil
}

// DeleteComment deletes a comment the policy lets the caller delete.
func (s *Service) DeleteComment(ctx context.Context, actor *hub.User, id string) error {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return err
	}
	t, err := s.store.GetTaskForUser(ctx, c.TaskID, actor.ID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("comment not found")
		}
		return err
	}
	project, err := s.store.GetProject(ctx, t.ProjectID)
	if err != nil {
		return err
	}
	mine, err := s.membership(ctx, project.OrganizationID, actor.ID)
	if err != nil {
		return err
	}
	if err := s.policy.Check(policy.CommentDelete, policy.For(actor, mine, map[string]any{
		"id":     c.ID,
		"userId": c.UserID,
		"taskId": c.TaskID,
	})); err != nil {
		return err
	}
	return s.store.DeleteComment(ctx, c.ID)
}

// Upload is one uploaded file.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MaxUploadSize is the largest accepted attachment in bytes.
func (s *Service) MaxUploadSize() int64 {
	return s.uploads.MaxFileSize
}

// ListAttachments returns a visible task's attachments.
func (s *Service) ListAttachments(ctx context.Context, userID, taskID string) ([]hub.Attachment, error) {
	if _, err := s.store.GetTaskForUser(ctx, taskID, userID); err != nil {
		return nil, err
	}
	return s.store.ListAttachments(ctx, taskID)
}

// AddAttachment stores an uploaded file under the attachments directory and
// records it on the task. Size and content type are checked against the config.
func (s *Service) AddAttachment(ctx context.Context, actor *hub.User, taskID string, up Upload) (*hub.Attachment, error) {
	t, err := s.store.GetTaskForUser(ctx, taskID, actor.ID)
	if err != nil {
		return nil, err
	}
	if up.Size > s.uploads.MaxFileSize {
		return nil, apperr.Validation("file is too large")
	}
	if !s.allowedType(up.ContentType) {
		return nil, apperr.Validation("file type is not allowed")
	}

	a := &hub.Attachment{
		ID:           uuid.NewString(),
		Name:         filepath.Base(up.Name),
		ContentType:  up.ContentType,
		TaskID:       t.ID,
		UploadedByID: actor.ID,
	}
	a.StoragePath = filepath.Join(s.uploads.Dir, t.ID, a.ID+strings.ToLower(filepath.Ext(a.Name)))

	size, err := s.writeFile(a.StoragePath, up.Body)
	if err != nil {
		return nil, err
	}
	a.Size = size

	if err := s.store.CreateAttachment(ctx, a); err != nil {
		s.removeFile(a.StoragePath)
		return nil, err
	}
	s.record(ctx, actor, t, hub.ActionAttachmentAdded, "Attached "+a.Name)
	return a, nil
}

// OpenAttachment returns a visible attachment and its stored content.
// The caller closes the file.
func (s *Service) OpenAttachment(ctx context.Context, userID, id string) (*hub.Attachment, *os.File, error) {
	a, err := s.visibleAttachment(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(a.StoragePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, apperr.NotFound("attachment not found")
		}
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return a, f, nil
}

// DeleteAttachment removes a visible attachment and its stored file.
func (s *Service) DeleteAttachment(ctx context.Context, actor *hub.User, id string) error {
	a, err := s.visibleAttachment(ctx, actor.ID, id)
	if err != nil {
		return err
	}
	t, err := s.store.GetTask(ctx, a.TaskID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAttachment(ctx, a.ID); err != nil {
		return err
	}
	s.removeFile(a.StoragePath)
	s.record(ctx, actor, t, hub.ActionAttachmentRemoved, "Removed "+a.Name)
	return nil
}

func (s *Service) visibleAttachment(ctx context.Context, userID, id string) (*hub.Attachment, error) {
	a, err := s.store.GetAttachment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetTaskForUser(ctx, a.TaskID, userID); err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("attachment not found")
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) allowedType(contentType string) bool {
	if len(s.uploads.AllowedTypes) == 0 {
		return true
	}
	for _, prefix := range s.uploads.AllowedTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// writeFile copies at most MaxFileSize bytes into path. Bodies that turn out
// larger than announced are rejected and nothing is kept.
func (s *Service) writeFile(path string, body io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create attachment directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create attachment file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(body, s.uploads.MaxFileSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.removeFile(path)
		return 0, fmt.Errorf("failed to write attachment: %w", err)
	}
	if n > s.uploads.MaxFileSize {
		s.removeFile(path)
		return 0, apperr.Validation("file is too large")
	}
	return n, nil
}

func (s *Service) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Failed to remove attachment file", zap.String("path", path), zap.Error(err))
	}
}

// ListLabels returns the labels visible to the caller, optionally narrowed to a project.
func (s *Service) ListLabels(ctx context.Context, userID, projectID string) ([]hub.Label, error) {
	if projectID != "" {
		if _, err := s.store.GetProjectForUser(ctx, projectID, userID); err != nil {
			return nil, err
		}
	}
	return s.store.ListLabels(ctx, userID, projectID)
}

// CreateLabel creates a global label, or a project label when projectID is set.
func (s *Service) CreateLabel(ctx context.Context, userID, name, color string, projectID *string) (*hub.Label, error) {
	if projectID != nil {
		if _, err := s.store.GetProjectForUser(ctx, *projectID, userID); err != nil {
			return nil, err
		}
	}
	l := &hub.Label{Name: name, Color: color, ProjectID: projectID}
	if err := s.store.CreateLabel(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// UpdateLabel renames or recolors a visible label.
func (s *Service) UpdateLabel(ctx context.Context, userID, id string, name, color *string) (*hub.Label, error) {
	if _, _, err := s.visibleLabel(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.store.UpdateLabel(ctx, id, name, color)
}

// DeleteLabel deletes a visible label the policy lets the caller delete.
func (s *Service) DeleteLabel(ctx context.Context, actor *hub.User, id string) error {
	l, mine, err := s.visibleLabel(ctx, actor.ID, id)
	if err != nil {
		return err
	}
	if err := s.policy.Check(policy.LabelDelete, policy.For(actor, mine, map[string]any{
		"id":        l.ID,
		"projectId": deref(l.ProjectID),
		"taskCount": l.TaskCount,
	})); err != nil {
		return err
	}
	if err := s.store.DeleteLabel(ctx, l.ID); err != nil {
		return err
	}
	logging.Event(s.logger, "label.deleted", zap.String("label_id", l.ID), zap.String("user_id", actor.ID))
	return nil
}

// visibleLabel loads a label with the caller's membership in the organization
// owning it. Global labels use the caller's first organization.
func (s *Service) visibleLabel(ctx context.Context, userID, id string) (*hub.Label, *hub.Member, error) {
	l, err := s.store.GetLabel(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var orgID string
	if l.ProjectID != nil {
		p, err := s.store.GetProjectForUser(ctx, *l.ProjectID, userID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil, nil, apperr.NotFound("label not found")
			}
			return nil, nil, err
		}
		orgID = p.OrganizationID
	} else {
		orgs, err := s.store.OrganizationIDsForUser(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		if len(orgs) == 0 {
			return l, nil, nil
		}
		orgID = orgs[0]
	}

	mine, err := s.membership(ctx, orgID, userID)
	if err != nil {
		return nil, nil, err
	}
	return l, mine, nil
}
