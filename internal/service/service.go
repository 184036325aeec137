// Package service implements ProjectHub's use cases on top of the relational
// store. It enforces membership scoping and policies, and records the activity
// and notification side effects of every mutation.
//
// Side effects run after the primary write has committed. Failing to record or
// publish one is logged and never fails the request.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/config"
	"github.com/dyluth/projecthub/internal/logging"
	"github.com/dyluth/projecthub/internal/policy"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
	"github.com/dyluth/projecthub/pkg/hubstate"
)

// Publisher broadcasts live events. *hubstate.Client satisfies it.
type Publisher interface {
	PublishActivity(ctx context.Context, e *hubstate.ActivityEvent) error
	PublishNotification(ctx context.Context, n *hub.Notification) error
}

// Service is safe for concurrent use.
type Service struct {
	store   *store.Store
	events  Publisher
	policy  *policy.Engine
	uploads config.AttachmentsConfig
	logger  *zap.Logger
	now     func() time.Time
}

// New wires a service.
func New(st *store.Store, events Publisher, policies *policy.Engine, uploads config.AttachmentsConfig, logger *zap.Logger) *Service {
	return &Service{
		store:   st,
		events:  events,
		policy:  policies,
		uploads: uploads,
		logger:  logger.Named("service"),
		now:     time.Now,
	}
}

// Store exposes the underlying store for read paths that need no orchestration.
func (s *Service) Store() *store.Store {
	return s.store
}

// record writes an activity row for a task and broadcasts it.
func (s *Service) record(ctx context.Context, actor *hub.User, task *hub.Task, action hub.Action, details string) {
	a := &hub.Activity{TaskID: task.ID, UserID: actor.ID, Action: action, Details: details}
	if err := s.store.LogActivity(ctx, a); err != nil {
		s.logger.Error("Failed to record activity",
			zap.String("task_id", task.ID), zap.String("action", string(action)), zap.Error(err))
		return
	}

	event := &hubstate.ActivityEvent{
		ID:        a.ID,
		TaskID:    task.ID,
		TaskTitle: task.Title,
		ProjectID: task.ProjectID,
		UserID:    actor.ID,
		UserName:  actor.Name,
		Action:    action,
		Details:   details,
		CreatedAt: a.CreatedAt,
	}
	if err := s.events.PublishActivity(ctx, event); err != nil {
		s.logger.Warn("Failed to publish activity", zap.String("task_id", task.ID), zap.Error(err))
	}
	logging.Event(s.logger, "activity.recorded",
		zap.String("task_id", task.ID), zap.String("action", string(action)), zap.String("user_id", actor.ID))
}

// notify stores a notification and pushes it to the recipient's live channel.
// Notifying the actor about their own action is skipped.
func (s *Service) notify(ctx context.Context, actor *hub.User, n *hub.Notification) {
	if n.UserID == "" || n.UserID == actor.ID {
		return
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.logger.Error("Failed to create notification",
			zap.String("user_id", n.UserID), zap.String("type", string(n.Type)), zap.Error(err))
		return
	}
	if err := s.events.PublishNotification(ctx, n); err != nil {
		s.logger.Warn("Failed to publish notification", zap.String("user_id", n.UserID), zap.Error(err))
	}
	logging.Event(s.logger, "notification.sent",
		zap.String("user_id", n.UserID), zap.String("type", string(n.Type)))
}

// membership returns the caller's membership, or nil when they are not a member.
func (s *Service) membership(ctx context.Context, orgID, userID string) (*hub.Member, error) {
	m, err := s.store.GetMembership(ctx, orgID, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	return m, nil
}

func taskLink(t *hub.Task) string {
	return "/dashboard/tasks/" + t.ID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
