package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/config"
	"github.com/dyluth/projecthub/internal/logging"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
	"github.com/dyluth/projecthub/pkg/hubstate"
)

const (
	// ProviderGoogle marks sessions and accounts created through Google.
	ProviderGoogle = "google"

	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateTTL     = 10 * time.Minute
	defaultReturnTo   = "/dashboard"
)

// GoogleProvider performs the OAuth authorization-code flow against Google.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider builds the provider from client credentials.
func NewGoogleProvider(cfg config.GoogleConfig) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// profile exchanges the code and fetches the user's Google profile.
func (g *GoogleProvider) profile(ctx context.Context, code string) (*googleUser, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, err, "failed to exchange authorization code")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Google profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch Google profile: status %d", resp.StatusCode)
	}

	var u googleUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("failed to decode Google profile: %w", err)
	}
	if u.ID == "" || u.Email == "" {
		return nil, apperr.Unauthorized("Google did not return an account email")
	}
	if !u.VerifiedEmail {
		return nil, apperr.Unauthorized("Google account email is not verified")
	}
	return &u, nil
}

// BeginGoogle stores a one-time state and returns the Google consent URL.
func (m *Manager) BeginGoogle(ctx context.Context, returnTo string) (string, error) {
	if m.google == nil {
		return "", apperr.NotFound("Google sign-in is not configured")
	}
	state, err := NewToken()
	if err != nil {
		return "", err
	}
	if err := m.state.PutOAuthState(ctx, state, safeReturnTo(returnTo), oauthStateTTL); err != nil {
		return "", err
	}
	return m.google.config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// CompleteGoogle consumes the state, exchanges the code, upserts the user and
// opens a session. It returns the path the browser should land on.
func (m *Manager) CompleteGoogle(ctx context.Context, state, code string) (*hub.User, *hubstate.Session, string, error) {
	if m.google == nil {
		return nil, nil, "", apperr.NotFound("Google sign-in is not configured")
	}
	if state == "" || code == "" {
		return nil, nil, "", apperr.Validation("state and code are required")
	}

	returnTo, err := m.state.ConsumeOAuthState(ctx, state)
	if err != nil {
		if hubstate.IsNotFound(err) {
			return nil, nil, "", apperr.Unauthorized("invalid or expired OAuth state")
		}
		return nil, nil, "", err
	}

	gu, err := m.google.profile(ctx, code)
	if err != nil {
		return nil, nil, "", err
	}

	user, err := m.users.UpsertOAuthUser(ctx, store.OAuthProfile{
		Provider:          ProviderGoogle,
		ProviderAccountID: gu.ID,
		Email:             gu.Email,
		Name:              gu.Name,
		Image:             gu.Picture,
	})
	if err != nil {
		return nil, nil, "", err
	}

	session, err := m.OpenSession(ctx, user.ID, ProviderGoogle)
	if err != nil {
		return nil, nil, "", err
	}
	logging.Event(m.logger, "user.signed_in", zap.String("user_id", user.ID), zap.String("provider", ProviderGoogle))
	return user, session, returnTo, nil
}

// safeReturnTo only allows local absolute paths.
func safeReturnTo(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return defaultReturnTo
	}
	return p
}
