package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/calendar"
	"github.com/dyluth/projecthub/internal/kanban"
	"github.com/dyluth/projecthub/internal/logging"
	"github.com/dyluth/projecthub/internal/policy"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
)

// ProjectInput is the body of a project creation.
type ProjectInput struct {
	Name           string
	Key            string
	Description    string
	OrganizationID string
	Status         hub.ProjectStatus
	StartDate      *time.Time
	EndDate        *time.Time
}

// CreateProject creates a project in an organization the caller belongs to.
func (s *Service) CreateProject(ctx context.Context, actor *hub.User, in ProjectInput) (*hub.Project, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Key) == "" || in.OrganizationID == "" {
		return nil, apperr.Validation("name, key and organizationId are required")
	}
	mine, err := s.membership(ctx, in.OrganizationID, actor.ID)
	if err != nil {
		return nil, err
	}
	if mine == nil {
		return nil, errNotMember
	}

	p := &hub.Project{
		Name:           in.Name,
		Key:            in.Key,
		Description:    in.Description,
		OrganizationID: in.OrganizationID,
		Status:         in.Status,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		if apperr.IsConflict(err) {
			return nil, apperr.Validation(apperr.Message(err))
		}
		return nil, err
	}
	logging.Event(s.logger, "project.created", zap.String("project_id", p.ID), zap.String("key", p.Key))
	return p, nil
}

// ListProjects returns the caller's projects.
func (s *Service) ListProjects(ctx context.Context, userID string) ([]hub.Project, error) {
	return s.store.ListProjectsForUser(ctx, userID)
}

// GetProject returns a project the caller can see, or NotFound.
func (s *Service) GetProject(ctx context.Context, userID, id string) (*hub.Project, error) {
	return s.store.GetProjectForUser(ctx, id, userID)
}

// UpdateProject applies a partial update to a visible project.
func (s *Service) UpdateProject(ctx context.Context, userID, id string, patch store.ProjectPatch) (*hub.Project, error) {
	if _, err := s.store.GetProjectForUser(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.store.UpdateProject(ctx, id, patch)
}

// DeleteProject deletes a project with its sprints and tasks. Stored attachment
// files of its tasks are removed afterwards.
func (s *Service) DeleteProject(ctx context.Context, actor *hub.User, id string) error {
	p, err := s.store.GetProjectForUser(ctx, id, actor.ID)
	if err != nil {
		return err
	}
	mine, err := s.membership(ctx, p.OrganizationID, actor.ID)
	if err != nil {
		return err
	}
	if err := s.policy.Check(policy.ProjectDelete, policy.For(actor, mine, map[string]any{
		"projectId":      p.ID,
		"organizationId": p.OrganizationID,
	})); err != nil {
		return err
	}

	files, err := s.projectFiles(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, p.ID); err != nil {
		return err
	}
	for _, path := range files {
		s.removeFile(path)
	}
	logging.Event(s.logger, "project.deleted", zap.String("project_id", p.ID), zap.String("user_id", actor.ID))
	return nil
}

func (s *Service) projectFiles(ctx context.Context, projectID string) ([]string, error) {
	tasks, err := s.store.ListTasks(ctx, store.TaskQuery{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, t := range tasks {
		atts, err := s.store.ListAttachments(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		for _, a := range atts {
			paths = append(paths, a.StoragePath)
		}
	}
	return paths, nil
}

// Board groups a project's tasks into kanban columns.
func (s *Service) Board(ctx context.Context, userID, projectID string) (*kanban.Board, error) {
	if _, err := s.store.GetProjectForUser(ctx, projectID, userID); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, store.TaskQuery{UserID: userID, ProjectID: projectID, Order: store.OrderPosition})
	if err != nil {
		return nil, err
	}
	board := kanban.Build(tasks)
	return &board, nil
}

// Gantt lays a project's sprints and dated tasks out on a timeline.
func (s *Service) Gantt(ctx context.Context, userID, projectID string) (*calendar.Gantt, error) {
	if _, err := s.store.GetProjectForUser(ctx, projectID, userID); err != nil {
		return nil, err
	}
	sprints, err := s.store.ListSprints(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, store.TaskQuery{UserID: userID, ProjectID: projectID, Order: store.OrderDue})
	if err != nil {
		return nil, err
	}
	g := calendar.Timeline(tasks, sprints, s.now())
	return &g, nil
}

// SprintInput is the body of a sprint creation.
type SprintInput struct {
	Name      string
	Goal      string
	StartDate *time.Time
	EndDate   *time.Time
	ProjectID string
	Status    hub.SprintStatus
}

// ListSprints returns a visible project's sprints.
func (s *Service) ListSprints(ctx context.Context, userID, projectID string) ([]hub.Sprint, error) {
	if _, err := s.store.GetProjectForUser(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.store.ListSprints(ctx, projectID)
}

// CreateSprint adds a sprint to a visible project.
func (s *Service) CreateSprint(ctx context.Context, userID string, in SprintInput) (*hub.Sprint, error) {
	if strings.TrimSpace(in.Name) == "" || in.StartDate == nil || in.EndDate == nil || in.ProjectID == "" {
		return nil, apperr.Validation("name, startDate, endDate and projectId are required")
	}
	if _, err := s.store.GetProjectForUser(ctx, in.ProjectID, userID); err != nil {
		return nil, err
	}
	sp := &hub.Sprint{
		Name:      in.Name,
		Goal:      in.Goal,
		StartDate: *in.StartDate,
		EndDate:   *in.EndDate,
		ProjectID: in.ProjectID,
		Status:    in.Status,
	}
	if err := s.store.CreateSprint(ctx, sp); err != nil {
		return nil, err
	}
	logging.Event(s.logger, "sprint.created", zap.String("sprint_id", sp.ID), zap.String("project_id", sp.ProjectID))
	return sp, nil
}

// UpdateSprint applies a partial update to a visible sprint.
func (s *Service) UpdateSprint(ctx context.Context, userID, id string, patch store.SprintPatch) (*hub.Sprint, error) {
	if _, err := s.store.GetSprintForUser(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.store.UpdateSprint(ctx, id, patch)
}

// Calendar builds the month grid of the caller's due tasks and sprints.
func (s *Service) Calendar(ctx context.Context, userID string, month time.Time, loc *time.Location) (*calendar.MonthView, error) {
	from, to := calendar.Range(month.Year(), month.Month(), loc)
	tasks, err := s.store.ListTasks(ctx, store.TaskQuery{UserID: userID, DueFrom: from, DueTo: to, Order: store.OrderDue})
	if err != nil {
		return nil, err
	}
	sprints, err := s.store.ListSprintsForUser(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	view := calendar.Month(month.Year(), month.Month(), loc, s.now(), tasks, sprints)
	return &view, nil
}
