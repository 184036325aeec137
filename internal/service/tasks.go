package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/kanban"
	"github.com/dyluth/projecthub/internal/logging"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
)

// ActivityLimit is how many activity entries a task listing returns.
const ActivityLimit = 50

// TaskInput is the body of a task creation.
type TaskInput struct {
	Title       string
	Description string
	Status      hub.TaskStatus
	Priority    hub.Priority
	StoryPoints *int
	DueDate     *time.Time
	ProjectID   string
	SprintID    *string
	AssigneeID  *string
	ParentID    *string
}

// ListTasks lists tasks in the caller's organizations.
func (s *Service) ListTasks(ctx context.Context, userID string, q store.TaskQuery) ([]hub.Task, error) {
	q.UserID = userID
	return s.store.ListTasks(ctx, q)
}

// GetTask returns a visible task, or NotFound.
func (s *Service) GetTask(ctx context.Context, userID, id string) (*hub.Task, error) {
	return s.store.GetTaskForUser(ctx, id, userID)
}

// CreateTask adds a task to a visible project.
func (s *Service) CreateTask(ctx context.Context, actor *hub.User, in TaskInput) (*hub.Task, error) {
	if strings.TrimSpace(in.Title) == "" || in.ProjectID == "" {
		return nil, apperr.Validation("title and projectId are required")
	}
	project, err := s.store.GetProjectForUser(ctx, in.ProjectID, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, project.OrganizationID, in.AssigneeID); err != nil {
		return nil, err
	}
	if err := s.checkSprint(ctx, actor.ID, project.ID, in.SprintID); err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, actor.ID, project.ID, "", in.ParentID); err != nil {
		return nil, err
	}

	t := &hub.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		StoryPoints: in.StoryPoints,
		DueDate:     in.DueDate,
		ProjectID:   project.ID,
		SprintID:    in.SprintID,
		AssigneeID:  in.AssigneeID,
		ParentID:    in.ParentID,
		CreatedByID: actor.ID,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	created, err := s.store.GetTask(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, created, hub.ActionTaskCreated, "Created task")
	if created.AssigneeID != nil {
		s.notifyAssigned(ctx, actor, created)
	}
	return created, nil
}

// UpdateTask applies a partial update and records what changed.
func (s *Service) UpdateTask(ctx context.Context, actor *hub.User, id string, patch store.TaskPatch) (*hub.Task, error) {
	before, err := s.store.GetTaskForUser(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return before, nil
	}
	project, err := s.store.GetProject(ctx, before.ProjectID)
	if err != nil {
		return nil, err
	}
	if patch.AssigneeID.Set {
		if err := s.checkAssignee(ctx, project.OrganizationID, patch.AssigneeID.Value); err != nil {
			return nil, err
		}
	}
	if patch.SprintID.Set {
		if err := s.checkSprint(ctx, actor.ID, project.ID, patch.SprintID.Value); err != nil {
			return nil, err
		}
	}
	if patch.ParentID.Set {
		if err := s.checkParent(ctx, actor.ID, project.ID, id, patch.ParentID.Value); err != nil {
			return nil, err
		}
	}

	after, err := s.store.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.recordChanges(ctx, actor, before, after, patch)
	return after, nil
}

// MoveTask drops a card onto a kanban column. A card that stays where it is
// is not written.
func (s *Service) MoveTask(ctx context.Context, actor *hub.User, id string, mv kanban.Move) (*hub.Task, error) {
	before, err := s.store.GetTaskForUser(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	patch, write, err := kanban.Plan(before, mv)
	if err != nil {
		return nil, err
	}
	if !write {
		return before, nil
	}
	after, err := s.store.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if after.Status != before.Status {
		s.record(ctx, actor, after, hub.ActionStatusChanged, kanban.StatusChange(before.Status, after.Status))
	}
	return after, nil
}

func (s *Service) recordChanges(ctx context.Context, actor *hub.User, before, after *hub.Task, patch store.TaskPatch) {
	other := patch.Title != nil || patch.Description != nil || patch.Priority != nil ||
		patch.StoryPoints.Set || patch.DueDate.Set || patch.SprintID.Set || patch.ParentID.Set

	if after.Status != before.Status {
		s.record(ctx, actor, after, hub.ActionStatusChanged, kanban.StatusChange(before.Status, after.Status))
	}
	if deref(after.AssigneeID) != deref(before.AssigneeID) {
		details := "Removed assignee"
		if after.Assignee != nil {
			details = "Assigned to " + after.Assignee.Name
		}
		s.record(ctx, actor, after, hub.ActionAssigned, details)
		if after.AssigneeID != nil {
			s.notifyAssigned(ctx, actor, after)
		}
	}
	if other {
		s.record(ctx, actor, after, hub.ActionTaskUpdated, "Updated task")
	}
}

func (s *Service) notifyAssigned(ctx context.Context, actor *hub.User, t *hub.Task) {
	s.notify(ctx, actor, &hub.Notification{
		UserID:  *t.AssigneeID,
		Type:    hub.NotificationTaskAssigned,
		Title:   "Task assigned",
		Message: fmt.Sprintf("%s assigned you to %s", actor.Name, t.Title),
		Link:    taskLink(t),
	})
}

// checkAssignee rejects assignees outside the project's organization.
func (s *Service) checkAssignee(ctx context.Context, orgID string, assigneeID *string) error {
	if assigneeID == nil {
		return nil
	}
	m, err := s.membership(ctx, orgID, *assigneeID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.Validation("assignee is not a member of this organization")
	}
	return nil
}

// checkSprint rejects sprints of other projects.
func (s *Service) checkSprint(ctx context.Context, userID, projectID string, sprintID *string) error {
	if sprintID == nil {
		return nil
	}
	sp, err := s.store.GetSprintForUser(ctx, *sprintID, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Validation("sprint not found in this project")
		}
		return err
	}
	if sp.ProjectID != projectID {
		return apperr.Validation("sprint not found in this project")
	}
	return nil
}

// checkParent requires the parent to be a visible task of the same project
// whose ancestors do not include taskID. taskID is empty for new tasks.
func (s *Service) checkParent(ctx context.Context, userID, projectID, taskID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if taskID != "" && *parentID == taskID {
		return apperr.Validation("a task cannot be its own parent")
	}
	parent, err := s.store.GetTaskForUser(ctx, *parentID, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Validation("parent task not found in this project")
		}
		return err
	}
	if parent.ProjectID != projectID {
		return apperr.Validation("parent task not found in this project")
	}
	if taskID == "" {
		return nil
	}

	seen := map[string]bool{parent.ID: true}
	for next := parent.ParentID; next != nil; {
		if *next == taskID {
			return apperr.Validation("parent task would create a cycle")
		}
		if seen[*next] {
			break
		}
		seen[*next] = true
		ancestor, err := s.store.GetTask(ctx, *next)
		if err != nil {
			if apperr.IsNotFound(err) {
				break
			}
			return err
		}
		next = ancestor.ParentID
	}
	return nil
}

// DeleteTask removes a visible task. Stored attachment files go with it.
func (s *Service) DeleteTask(ctx context.Context, actor *hub.User, id string) error {
	t, err := s.store.GetTaskForUser(ctx, id, actor.ID)
	if err != nil {
		return err
	}
	atts, err := s.store.ListAttachments(ctx, t.ID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, t.ID); err != nil {
		return err
	}
	for _, a := range atts {
		s.removeFile(a.StoragePath)
	}
	logging.Event(s.logger, "task.deleted", zap.String("task_id", t.ID), zap.String("user_id", actor.ID))
	return nil
}

// TaskActivity returns the newest activity entries of a visible task.
func (s *Service) TaskActivity(ctx context.Context, userID, taskID string) ([]hub.Activity, error) {
	if _, err := s.store.GetTaskForUser(ctx, taskID, userID); err != nil {
		return nil, err
	}
	return s.store.ListActivity(ctx, taskID, ActivityLimit)
}

// AddLabel attaches a label to a task. Project labels only fit their own project.
func (s *Service) AddLabel(ctx context.Context, actor *hub.User, taskID, labelID string) (*hub.Task, error) {
	t, l, err := s.taskAndLabel(ctx, actor.ID, taskID, labelID)
	if err != nil {
		return nil, err
	}
	if err := s.store.AttachLabel(ctx, t.ID, l.ID); err != nil {
		return nil, err
	}
	s.record(ctx, actor, t, hub.ActionLabelAdded, "Added label "+l.Name)
	return s.store.GetTask(ctx, t.ID)
}

// RemoveLabel detaches a label from a task.
func (s *Service) RemoveLabel(ctx context.Context, actor *hub.User, taskID, labelID string) (*hub.Task, error) {
	t, l, err := s.taskAndLabel(ctx, actor.ID, taskID, labelID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DetachLabel(ctx, t.ID, l.ID); err != nil {
		return nil, err
	}
	s.record(ctx, actor, t, hub.ActionLabelRemoved, "Removed label "+l.Name)
	return s.store.GetTask(ctx, t.ID)
}

func (s *Service) taskAndLabel(ctx context.Context, userID, taskID, labelID string) (*hub.Task, *hub.Label, error) {
	t, err := s.store.GetTaskForUser(ctx, taskID, userID)
	if err != nil {
		return nil, nil, err
	}
	l, err := s.store.GetLabel(ctx, labelID)
	if err != nil {
		return nil, nil, err
	}
	if l.ProjectID != nil && *l.ProjectID != t.ProjectID {
		return nil, nil, apperr.Validation("label belongs to another project")
	}
	return t, l, nil
}
