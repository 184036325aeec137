package service

import (
	"context"
	"strings"

	"github.com/dyluth/projecthub/internal/reports"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
)

// SearchLimit caps each kind of search result.
const SearchLimit = 10

// SearchResults holds matching projects and tasks.
type SearchResults struct {
	Projects []hub.Project `json:"projects"`
	Tasks    []hub.Task    `json:"tasks"`
}

// Search finds projects and tasks by case-insensitive substring. A blank query
// matches nothing.
func (s *Service) Search(ctx context.Context, userID, q string) (*SearchResults, error) {
	res := &SearchResults{Projects: []hub.Project{}, Tasks: []hub.Task{}}
	q = strings.TrimSpace(q)
	if q == "" {
		return res, nil
	}
	var err error
	if res.Projects, err = s.store.SearchProjects(ctx, userID, q, SearchLimit); err != nil {
		return nil, err
	}
	if res.Tasks, err = s.store.SearchTasks(ctx, userID, q, SearchLimit); err != nil {
		return nil, err
	}
	return res, nil
}

// Dashboard returns the caller's landing page summary.
func (s *Service) Dashboard(ctx context.Context, userID string) (*reports.Dashboard, error) {
	return reports.BuildDashboard(ctx, s.store, userID)
}

// Reports returns the reports page of the caller's organizations.
func (s *Service) Reports(ctx context.Context, userID string) (*reports.Report, error) {
	return reports.BuildReport(ctx, s.store, userID)
}

// Notifications lists the caller's notifications, newest first.
func (s *Service) Notifications(ctx context.Context, userID string) ([]hub.Notification, error) {
	return s.store.ListNotifications(ctx, userID, store.DefaultNotificationLimit)
}

// MarkNotificationRead marks one of the caller's notifications read.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, id string) error {
	return s.store.MarkNotificationRead(ctx, id, userID)
}

// MarkAllNotificationsRead marks every notification of the caller read.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	return s.store.MarkAllRead(ctx, userID)
}

// Profile returns the caller.
func (s *Service) Profile(ctx context.Context, userID string) (*hub.User, error) {
	return s.store.GetUser(ctx, userID)
}

// UpdateProfile changes the caller's editable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch store.ProfilePatch) (*hub.User, error) {
	return s.store.UpdateProfile(ctx, userID, patch)
}
