package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

const userColumns = `id, name, email, email_verified, image, password_hash, locale, theme, created_at, updated_at`

// OAuthProfile is the identity returned by an external provider.
type OAuthProfile struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	Image             string
}

// ProfilePatch holds the user-editable profile fields. Nil fields are left alone.
type ProfilePatch struct {
	Name   *string
	Email  *string
	Locale *string
	Theme  *string
}

func scanUser(row interface{ Scan(...any) error }) (*hub.User, error) {
	var (
		u                    hub.User
		verified             sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &verified, &u.Image, &u.PasswordHash, &u.Locale, &u.Theme, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.EmailVerified = timeFromNull(verified)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

// CreateUser inserts a user. Emails are stored lower-cased; a duplicate email is a Conflict.
func (s *Store) CreateUser(ctx context.Context, u *hub.User) error {
	return createUser(ctx, s.db, u, s.nowMillis())
}

func createUser(ctx context.Context, db execer, u *hub.User, now int64) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" {
		return apperr.Validation("email is required")
	}
	if u.Locale == "" {
		u.Locale = "fr"
	}
	if u.Theme == "" {
		u.Theme = "system"
	}
	u.CreatedAt = fromMillis(now)
	u.UpdatedAt = u.CreatedAt

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, nullMillis(u.EmailVerified), u.Image, u.PasswordHash, u.Locale, u.Theme, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("a user with this email already exists")
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser loads a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*hub.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// GetUserByEmail loads a user by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*hub.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// UpdateProfile writes only the fields present in the patch.
func (s *Store) UpdateProfile(ctx context.Context, id string, p ProfilePatch) (*hub.User, error) {
	var (
		sets []string
		args []any
	)
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*p.Name))
	}
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if email == "" {
			return nil, apperr.Validation("email cannot be empty")
		}
		sets = append(sets, "email = ?")
		args = append(args, email)
	}
	if p.Locale != nil {
		sets = append(sets, "locale = ?")
		args = append(args, *p.Locale)
	}
	if p.Theme != nil {
		sets = append(sets, "theme = ?")
		args = append(args, *p.Theme)
	}
	if len(sets) == 0 {
		return s.GetUser(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, s.nowMillis(), id)

	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("a user with this email already exists")
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("user not found")
	}
	return s.GetUser(ctx, id)
}

// SetPassword replaces the stored password hash.
func (s *Store) SetPassword(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, s.nowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// UpsertOAuthUser finds the user linked to a provider account, links an existing
// user with the same email, or creates a new verified user.
func (s *Store) UpsertOAuthUser(ctx context.Context, p OAuthProfile) (*hub.User, error) {
	if p.Provider == "" || p.ProviderAccountID == "" {
		return nil, apperr.Validation("provider account is required")
	}
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, apperr.Validation("provider did not return an email")
	}

	var user *hub.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.nowMillis()

		var userID string
		err := tx.QueryRowContext(ctx,
			`SELECT user_id FROM accounts WHERE provider = ? AND provider_account_id = ?`,
			p.Provider, p.ProviderAccountID).Scan(&userID)
		switch {
		case err == nil:
			row := tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
			user, err = scanUser(row)
			if err != nil {
				return notFound(err, "user")
			}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to look up account: %w", err)
		}

		row := tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
		user, err = scanUser(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			verified := fromMillis(now)
			user = &hub.User{Name: p.Name, Email: email, Image: p.Image, EmailVerified: &verified}
			if err := createUser(ctx, tx, user, now); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("failed to look up user: %w", err)
		case user.EmailVerified == nil:
			if _, err := tx.ExecContext(ctx, `UPDATE users SET email_verified = ?, updated_at = ? WHERE id = ?`,
				now, now, user.ID); err != nil {
				return fmt.Errorf("failed to mark email verified: %w", err)
			}
			verified := fromMillis(now)
			user.EmailVerified = &verified
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (provider, provider_account_id, user_id, created_at) VALUES (?, ?, ?, ?)`,
			p.Provider, p.ProviderAccountID, user.ID, now); err != nil {
			return fmt.Errorf("failed to link account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsersInOrganizations returns every user sharing at least one organization
// with userID, the caller included, ordered by name.
func (s *Store) ListUsersInOrganizations(ctx context.Context, userID string) ([]hub.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixed("u", userColumns)+`
		FROM users u
		WHERE u.id IN (
			SELECT m.user_id FROM organization_members m
			WHERE m.organization_id IN (`+accessibleOrgs+`)
		)
		ORDER BY u.name, u.email`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	users := []hub.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// prefixed qualifies each column in a comma-separated list with alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
