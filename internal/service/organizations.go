package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/logging"
	"github.com/dyluth/projecthub/internal/policy"
	"github.com/dyluth/projecthub/pkg/hub"
)

var errNotMember = apperr.Forbidden("you are not a member of this organization")

// OrganizationInput is the body of an organization creation.
type OrganizationInput struct {
	Name        string
	Slug        string
	Description string
	Logo        string
}

// CreateOrganization creates an organization owned by the caller.
// A taken slug is a validation error, not a conflict.
func (s *Service) CreateOrganization(ctx context.Context, actor *hub.User, in OrganizationInput) (*hub.Organization, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Slug) == "" {
		return nil, apperr.Validation("name and slug are required")
	}
	org := &hub.Organization{
		Name:        strings.TrimSpace(in.Name),
		Slug:        in.Slug,
		Description: in.Description,
		Logo:        in.Logo,
	}
	if err := s.store.CreateOrganization(ctx, org, actor.ID); err != nil {
		if apperr.IsConflict(err) {
			return nil, apperr.Validation(apperr.Message(err))
		}
		return nil, err
	}
	logging.Event(s.logger, "organization.created", zap.String("organization_id", org.ID), zap.String("user_id", actor.ID))
	return org, nil
}

// ListOrganizations returns the caller's organizations.
func (s *Service) ListOrganizations(ctx context.Context, userID string) ([]hub.Organization, error) {
	return s.store.ListOrganizationsForUser(ctx, userID)
}

// GetOrganization returns an organization the caller belongs to.
func (s *Service) GetOrganization(ctx context.Context, userID, id string) (*hub.Organization, error) {
	return s.store.GetOrganizationForUser(ctx, id, userID)
}

// ListMembers lists an organization's members. Non-members get NotFound.
func (s *Service) ListMembers(ctx context.Context, userID, orgID string) ([]hub.Member, error) {
	if _, err := s.store.GetOrganizationForUser(ctx, orgID, userID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, orgID)
}

// AddMember adds the user with the given email to the organization.
func (s *Service) AddMember(ctx context.Context, actor *hub.User, orgID, email string, role hub.Role) (*hub.Member, error) {
	org, err := s.store.GetOrganizationForUser(ctx, orgID, actor.ID)
	if err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	if role == "" {
		role = hub.RoleMember
	}
	if err := role.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid role")
	}

	mine, err := s.membership(ctx, orgID, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(policy.MemberAdd, policy.For(actor, mine, map[string]any{
		"organizationId": orgID,
		"role":           string(role),
	})); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	member, err := s.store.AddMember(ctx, orgID, user.ID, role)
	if err != nil {
		return nil, err
	}
	member.User = &hub.UserRef{ID: user.ID, Name: user.Name, Email: user.Email, Image: user.Image}

	s.notify(ctx, actor, &hub.Notification{
		UserID:  user.ID,
		Type:    hub.NotificationMemberAdded,
		Title:   "Added to organization",
		Message: fmt.Sprintf("%s added you to %s", actor.Name, org.Name),
		Link:    "/dashboard/organizations/" + org.ID,
	})
	logging.Event(s.logger, "organization.member_added",
		zap.String("organization_id", orgID), zap.String("user_id", user.ID), zap.String("role", string(role)))
	return member, nil
}

// RemoveMember removes a user from the organization. Only owners remove owners,
// and the last owner stays.
func (s *Service) RemoveMember(ctx context.Context, actor *hub.User, orgID, userID string) error {
	if _, err := s.store.GetOrganizationForUser(ctx, orgID, actor.ID); err != nil {
		return err
	}
	mine, err := s.membership(ctx, orgID, actor.ID)
	if err != nil {
		return err
	}
	target, err := s.membership(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return apperr.NotFound("membership not found")
	}
	if err := s.policy.Check(policy.MemberRemove, policy.For(actor, mine, map[string]any{
		"organizationId": orgID,
		"userId":         userID,
		"role":           string(target.Role),
	})); err != nil {
		return err
	}
	if err := s.store.RemoveMember(ctx, orgID, userID); err != nil {
		return err
	}
	logging.Event(s.logger, "organization.member_removed", zap.String("organization_id", orgID), zap.String("user_id", userID))
	return nil
}

// Teams lists every user sharing an organization with the caller.
func (s *Service) Teams(ctx context.Context, userID string) ([]hub.User, error) {
	return s.store.ListUsersInOrganizations(ctx, userID)
}
