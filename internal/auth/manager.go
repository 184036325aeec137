// Package auth signs users in with passwords or Google, and resolves session tokens
// to users. Sessions live in Redis; users live in the relational store.
package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/config"
	"github.com/dyluth/projecthub/internal/logging"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
	"github.com/dyluth/projecthub/pkg/hubstate"
)

// ProviderCredentials marks sessions opened with an email and password.
const ProviderCredentials = "credentials"

var errInvalidCredentials = apperr.Unauthorized("invalid email or password")

// Manager owns sign-up, sign-in, sessions and password changes.
type Manager struct {
	users  *store.Store
	state  *hubstate.Client
	cfg    config.AuthConfig
	google *GoogleProvider
	logger *zap.Logger
}

// NewManager wires a manager. The Google provider is enabled when its config is complete.
func NewManager(users *store.Store, state *hubstate.Client, cfg config.AuthConfig, logger *zap.Logger) *Manager {
	m := &Manager{
		users:  users,
		state:  state,
		cfg:    cfg,
		logger: logger.Named("auth"),
	}
	if cfg.Google.Enabled() {
		m.google = NewGoogleProvider(cfg.Google)
	}
	return m
}

// SignUp creates a credentials user and opens a session for it.
func (m *Manager) SignUp(ctx context.Context, name, email, password string) (*hub.User, *hubstate.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, apperr.Validation("name is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return nil, nil, apperr.Validation("a valid email is required")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	hash, err := HashPassword(password, m.cfg.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	user := &hub.User{Name: name, Email: addr.Address, PasswordHash: hash}
	if err := m.users.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	session, err := m.OpenSession(ctx, user.ID, ProviderCredentials)
	if err != nil {
		return nil, nil, err
	}
	logging.Event(m.logger, "user.signed_up", zap.String("user_id", user.ID))
	return user, session, nil
}

// SignIn checks credentials. Unknown emails and wrong passwords fail identically;
// after MaxLoginAttempts failures inside LockoutWindow the email is locked out.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*hub.User, *hubstate.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, apperr.Validation("email and password are required")
	}

	locked, err := m.state.LoginLocked(ctx, email, m.cfg.MaxLoginAttempts)
	if err != nil {
		return nil, nil, err
	}
	if locked {
		return nil, nil, apperr.TooManyRequests("too many failed sign-in attempts, try again later")
	}

	user, err := m.users.GetUserByEmail(ctx, email)
	if err != nil && !apperr.IsNotFound(err) {
		return nil, nil, err
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		n, err := m.state.RegisterFailedLogin(ctx, email, m.cfg.LockoutWindow)
		if err != nil {
			m.logger.Warn("Failed to record failed sign-in", zap.Error(err))
		}
		m.logger.Info("Sign-in rejected", zap.String("email", email), zap.Int64("attempts", n))
		return nil, nil, errInvalidCredentials
	}

	if err := m.state.ResetLoginAttempts(ctx, email); err != nil {
		m.logger.Warn("Failed to reset sign-in attempts", zap.Error(err))
	}
	session, err := m.OpenSession(ctx, user.ID, ProviderCredentials)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// OpenSession stores a fresh session for the user.
func (m *Manager) OpenSession(ctx context.Context, userID, provider string) (*hubstate.Session, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	s := &hubstate.Session{
		Token:     token,
		UserID:    userID,
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.SessionTTL),
	}
	if err := m.state.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return s, nil
}

// Authenticate resolves a token to its session and user.
func (m *Manager) Authenticate(ctx context.Context, token string) (*hub.User, *hubstate.Session, error) {
	if token == "" {
		return nil, nil, apperr.Unauthorized("authentication required")
	}
	session, err := m.state.GetSession(ctx, token)
	if err != nil {
		if hubstate.IsNotFound(err) {
			return nil, nil, apperr.Unauthorized("authentication required")
		}
		return nil, nil, err
	}

	user, err := m.users.GetUser(ctx, session.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			// user deleted underneath the session
			_ = m.state.DeleteSession(ctx, token)
			return nil, nil, apperr.Unauthorized("authentication required")
		}
		return nil, nil, err
	}
	return user, session, nil
}

// SignOut ends a session.
func (m *Manager) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.state.DeleteSession(ctx, token)
}

// ChangePassword verifies the current password, stores the new one and revokes
// every other session of the user. It returns how many sessions were revoked.
func (m *Manager) ChangePassword(ctx context.Context, userID, keepToken, current, next string) (int, error) {
	user, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.PasswordHash == "" {
		return 0, apperr.NotFound("user not found")
	}
	if !CheckPassword(user.PasswordHash, current) {
		return 0, apperr.Validation("invalid current password")
	}
	if err := ValidatePassword(next); err != nil {
		return 0, err
	}

	hash, err := HashPassword(next, m.cfg.BcryptCost)
	if err != nil {
		return 0, err
	}
	if err := m.users.SetPassword(ctx, userID, hash); err != nil {
		return 0, err
	}

	revoked, err := m.state.DeleteUserSessions(ctx, userID, keepToken)
	if err != nil {
		return 0, err
	}
	logging.Event(m.logger, "user.password_changed", zap.String("user_id", userID), zap.Int("revoked_sessions", revoked))
	return revoked, nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (m *Manager) GoogleEnabled() bool {
	return m.google != nil
}
