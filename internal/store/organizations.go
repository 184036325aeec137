package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

const orgColumns = `o.id, o.name, o.slug, o.description, o.logo, o.created_by_id, o.created_at, o.updated_at`

func scanOrganization(row interface{ Scan(...any) error }, extra ...any) (*hub.Organization, error) {
	var (
		o                    hub.Organization
		createdAt, updatedAt int64
	)
	dest := append([]any{&o.ID, &o.Name, &o.Slug, &o.Description, &o.Logo, &o.CreatedByID, &createdAt, &updatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	o.CreatedAt = fromMillis(createdAt)
	o.UpdatedAt = fromMillis(updatedAt)
	return &o, nil
}

// CreateOrganization inserts the organization and makes ownerID its OWNER in one transaction.
func (s *Store) CreateOrganization(ctx context.Context, o *hub.Organization, ownerID string) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Slug = strings.ToLower(strings.TrimSpace(o.Slug))
	o.CreatedByID = ownerID
	if err := o.Validate(); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid organization")
	}

	now := s.nowMillis()
	o.CreatedAt = fromMillis(now)
	o.UpdatedAt = o.CreatedAt

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO organizations (id, name, slug, description, logo, created_by_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, strings.TrimSpace(o.Name), o.Slug, o.Description, o.Logo, ownerID, now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("organization slug already exists")
			}
			return fmt.Errorf("failed to insert organization: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO organization_members (organization_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
			o.ID, ownerID, hub.RoleOwner, now); err != nil {
			return fmt.Errorf("failed to insert owner membership: %w", err)
		}
		o.MemberCount = 1
		return nil
	})
}

// GetOrganizationForUser loads an organization the user belongs to.
func (s *Store) GetOrganizationForUser(ctx context.Context, id, userID string) (*hub.Organization, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+orgColumns+`,
			(SELECT COUNT(*) FROM projects p WHERE p.organization_id = o.id),
			(SELECT COUNT(*) FROM organization_members m WHERE m.organization_id = o.id)
		FROM organizations o
		WHERE o.id = ? AND o.id IN (`+accessibleOrgs+`)`, id, userID)

	var projects, members int
	o, err := scanOrganization(row, &projects, &members)
	if err != nil {
		return nil, notFound(err, "organization")
	}
	o.ProjectCount, o.MemberCount = projects, members
	return o, nil
}

// GetOrganizationBySlug loads an organization by its unique slug.
func (s *Store) GetOrganizationBySlug(ctx context.Context, slug string) (*hub.Organization, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations o WHERE o.slug = ?`,
		strings.ToLower(strings.TrimSpace(slug)))
	o, err := scanOrganization(row)
	if err != nil {
		return nil, notFound(err, "organization")
	}
	return o, nil
}

// ListOrganizationsForUser returns the user's organizations with project and member counts,
// newest first.
func (s *Store) ListOrganizationsForUser(ctx context.Context, userID string) ([]hub.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orgColumns+`,
			(SELECT COUNT(*) FROM projects p WHERE p.organization_id = o.id),
			(SELECT COUNT(*) FROM organization_members m WHERE m.organization_id = o.id)
		FROM organizations o
		WHERE o.id IN (`+accessibleOrgs+`)
		ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs := []hub.Organization{}
	for rows.Next() {
		var projects, members int
		o, err := scanOrganization(rows, &projects, &members)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		o.ProjectCount, o.MemberCount = projects, members
		orgs = append(orgs, *o)
	}
	return orgs, rows.Err()
}

// GetMembership returns the user's membership in the organization, or NotFound.
func (s *Store) GetMembership(ctx context.Context, orgID, userID string) (*hub.Member, error) {
	var (
		m        hub.Member
		joinedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT organization_id, user_id, role, joined_at
		FROM organization_members WHERE organization_id = ? AND user_id = ?`, orgID, userID).
		Scan(&m.OrganizationID, &m.UserID, &m.Role, &joinedAt)
	if err != nil {
		return nil, notFound(err, "membership")
	}
	m.JoinedAt = fromMillis(joinedAt)
	return &m, nil
}

// ListMembers returns the organization's members in join order.
func (s *Store) ListMembers(ctx context.Context, orgID string) ([]hub.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.organization_id, m.user_id, m.role, m.joined_at, u.name, u.email, u.image
		FROM organization_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = ?
		ORDER BY m.joined_at, u.name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []hub.Member{}
	for rows.Next() {
		var (
			m        hub.Member
			ref      hub.UserRef
			joinedAt int64
		)
		if err := rows.Scan(&m.OrganizationID, &m.UserID, &m.Role, &joinedAt, &ref.Name, &ref.Email, &ref.Image); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		ref.ID = m.UserID
		m.User = &ref
		m.JoinedAt = fromMillis(joinedAt)
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember adds userID to the organization with the given role.
func (s *Store) AddMember(ctx context.Context, orgID, userID string, role hub.Role) (*hub.Member, error) {
	if err := role.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid role")
	}
	now := s.nowMillis()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organization_members (organization_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		orgID, userID, role, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("user is already a member of this organization")
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return &hub.Member{OrganizationID: orgID, UserID: userID, Role: role, JoinedAt: fromMillis(now)}, nil
}

// RemoveMember deletes a membership. The organization's last OWNER cannot be removed.
func (s *Store) RemoveMember(ctx context.Context, orgID, userID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var role hub.Role
		err := tx.QueryRowContext(ctx,
			`SELECT role FROM organization_members WHERE organization_id = ? AND user_id = ?`,
			orgID, userID).Scan(&role)
		if err != nil {
			return notFound(err, "membership")
		}

		if role == hub.RoleOwner {
			var owners int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM organization_members WHERE organization_id = ? AND role = ?`,
				orgID, hub.RoleOwner).Scan(&owners); err != nil {
				return fmt.Errorf("failed to count owners: %w", err)
			}
			if owners <= 1 {
				return apperr.Validation("cannot remove the last owner of an organization")
			}
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM organization_members WHERE organization_id = ? AND user_id = ?`,
			orgID, userID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return nil
	})
}

// OrganizationIDsForUser lists the IDs of every organization the user belongs to.
func (s *Store) OrganizationIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, accessibleOrgs, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
