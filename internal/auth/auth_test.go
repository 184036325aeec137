package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/config"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hubstate"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		SessionTTL:       time.Hour,
		BcryptCost:       4,
		MaxLoginAttempts: 3,
		LockoutWindow:    15 * time.Minute,
		CookieName:       "projecthub_session",
	}
}

// setupManager wires a manager over a temp SQLite store and miniredis.
func setupManager(t *testing.T) (*Manager, *store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	state, err := hubstate.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })

	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "hub.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewManager(st, state, testAuthConfig(), zap.NewNop()), st, mr
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("password123", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)
	assert.True(t, CheckPassword(hash, "password123"))
	assert.False(t, CheckPassword(hash, "password124"))
	assert.False(t, CheckPassword("", "password123"))

	assert.NoError(t, ValidatePassword("12345678"))
	assert.True(t, apperr.IsValidation(ValidatePassword("1234567")))
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestSignUpAndSignIn(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()

	user, session, err := m.SignUp(ctx, "Dev User", "Dev@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", user.Email)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, ProviderCredentials, session.Provider)

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, _, err := m.SignUp(ctx, "Other", "dev@example.com", "password123")
		assert.True(t, apperr.IsConflict(err))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, _, err := m.SignUp(ctx, "", "x@example.com", "password123")
		assert.True(t, apperr.IsValidation(err))
		_, _, err = m.SignUp(ctx, "X", "not-an-email", "password123")
		assert.True(t, apperr.IsValidation(err))
		_, _, err = m.SignUp(ctx, "X", "x@example.com", "short")
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("signs in with correct password", func(t *testing.T) {
		got, s, err := m.SignIn(ctx, "DEV@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.NotEqual(t, session.Token, s.Token)
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		_, _, errWrong := m.SignIn(ctx, "dev@example.com", "wrong-password")
		_, _, errUnknown := m.SignIn(ctx, "nobody@example.com", "password123")
		require.Error(t, errWrong)
		require.Error(t, errUnknown)
		assert.True(t, apperr.IsUnauthorized(errWrong))
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
	})
}

func TestSignInLockout(t *testing.T) {
	m, _, mr := setupManager(t)
	ctx := context.Background()

	_, _, err := m.SignUp(ctx, "Dev User", "dev@example.com", "password123")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := m.SignIn(ctx, "dev@example.com", "wrong-password")
		require.True(t, apperr.IsUnauthorized(err))
	}

	_, _, err = m.SignIn(ctx, "dev@example.com", "password123")
	assert.Equal(t, apperr.KindTooManyRequests, apperr.KindOf(err), "correct password is refused while locked")

	mr.FastForward(16 * time.Minute)
	_, _, err = m.SignIn(ctx, "dev@example.com", "password123")
	assert.NoError(t, err)

	t.Run("success resets the counter", func(t *testing.T) {
		n, err := m.state.LoginAttempts(ctx, "dev@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestAuthenticate(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()

	user, session, err := m.SignUp(ctx, "Dev User", "dev@example.com", "password123")
	require.NoError(t, err)

	got, s, err := m.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, session.Token, s.Token)

	_, _, err = m.Authenticate(ctx, "")
	assert.True(t, apperr.IsUnauthorized(err))
	_, _, err = m.Authenticate(ctx, "bogus")
	assert.True(t, apperr.IsUnauthorized(err))

	require.NoError(t, m.SignOut(ctx, session.Token))
	_, _, err = m.Authenticate(ctx, session.Token)
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestChangePassword(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()

	user, current, err := m.SignUp(ctx, "Dev User", "dev@example.com", "password123")
	require.NoError(t, err)
	_, other, err := m.SignIn(ctx, "dev@example.com", "password123")
	require.NoError(t, err)

	t.Run("rejects wrong current password", func(t *testing.T) {
		_, err := m.ChangePassword(ctx, user.ID, current.Token, "nope-nope", "newpassword1")
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("rejects short new password", func(t *testing.T) {
		_, err := m.ChangePassword(ctx, user.ID, current.Token, "password123", "short")
		assert.True(t, apperr.IsValidation(err))
	})

	revoked, err := m.ChangePassword(ctx, user.ID, current.Token, "password123", "newpassword1")
	require.NoError(t, err)
	assert.Equal(t, 1, revoked)

	_, _, err = m.Authenticate(ctx, current.Token)
	assert.NoError(t, err, "the session that changed the password survives")
	_, _, err = m.Authenticate(ctx, other.Token)
	assert.True(t, apperr.IsUnauthorized(err))

	_, _, err = m.SignIn(ctx, "dev@example.com", "newpassword1")
	assert.NoError(t, err)
}

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T, verified bool) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(googleUser{
			ID: "google-42", Email: "Jane@Example.com", VerifiedEmail: verified, Name: "Jane Doe", Picture: "https://example.com/jane.png",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func withFakeGoogle(m *Manager, srv *httptest.Server) {
	m.google = &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost:3000/api/auth/google/callback",
			Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: srv.URL + "/userinfo",
	}
}

func TestGoogleFlow(t *testing.T) {
	m, st, _ := setupManager(t)
	ctx := context.Background()

	t.Run("disabled without config", func(t *testing.T) {
		assert.False(t, m.GoogleEnabled())
		_, err := m.BeginGoogle(ctx, "/")
		assert.True(t, apperr.IsNotFound(err))
	})

	withFakeGoogle(m, fakeGoogle(t, true))

	consentURL, err := m.BeginGoogle(ctx, "/projects")
	require.NoError(t, err)
	u, err := url.Parse(consentURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	assert.Equal(t, "client", u.Query().Get("client_id"))

	user, session, returnTo, err := m.CompleteGoogle(ctx, state, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "/projects", returnTo)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.NotNil(t, user.EmailVerified)
	assert.Equal(t, ProviderGoogle, session.Provider)

	t.Run("state is single use", func(t *testing.T) {
		_, _, _, err := m.CompleteGoogle(ctx, state, "good-code")
		assert.True(t, apperr.IsUnauthorized(err))
	})

	t.Run("second sign-in reuses the linked user", func(t *testing.T) {
		consentURL, err := m.BeginGoogle(ctx, "https://evil.example.com")
		require.NoError(t, err)
		u, _ := url.Parse(consentURL)

		again, _, returnTo, err := m.CompleteGoogle(ctx, u.Query().Get("state"), "good-code")
		require.NoError(t, err)
		assert.Equal(t, user.ID, again.ID)
		assert.Equal(t, "/dashboard", returnTo, "external return targets are replaced")

		stored, err := st.GetUserByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", stored.Name)
	})

	t.Run("bad code is unauthorized", func(t *testing.T) {
		consentURL, err := m.BeginGoogle(ctx, "/")
		require.NoError(t, err)
		u, _ := url.Parse(consentURL)

		_, _, _, err = m.CompleteGoogle(ctx, u.Query().Get("state"), "bad-code")
		assert.True(t, apperr.IsUnauthorized(err))
	})
}

func TestGoogleRejectsUnverifiedEmail(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()
	withFakeGoogle(m, fakeGoogle(t, false))

	consentURL, err := m.BeginGoogle(ctx, "/")
	require.NoError(t, err)
	u, _ := url.Parse(consentURL)

	_, _, _, err = m.CompleteGoogle(ctx, u.Query().Get("state"), "good-code")
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestTokenFromRequest(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "projecthub_session", Value: "from-cookie"})
		r.Header.Set("Authorization", "Bearer from-header")
		assert.Equal(t, "from-cookie", TokenFromRequest(r, "projecthub_session"))
	})

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "bearer from-header")
		assert.Equal(t, "from-header", TokenFromRequest(r, "projecthub_session"))
	})

	t.Run("none", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Basic abc")
		assert.Empty(t, TokenFromRequest(r, "projecthub_session"))
	})
}

func TestSafeReturnTo(t *testing.T) {
	assert.Equal(t, "/projects/1", safeReturnTo("/projects/1"))
	assert.Equal(t, "/dashboard", safeReturnTo(""))
	assert.Equal(t, "/dashboard", safeReturnTo("//evil.com"))
	assert.Equal(t, "/dashboard", safeReturnTo("https://evil.com"))
}
