package httpapi

import (
	"net/http"
	"time"

	"github.com/dyluth/projecthub/internal/auth"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
	"github.com/dyluth/projecthub/pkg/hubstate"
)

// SessionResponse is returned by sign-up and sign-in. Token lets non-browser
// clients send an Authorization bearer header instead of the cookie.
type SessionResponse struct {
	User      *hub.User `json:"user"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

func sessionResponse(u *hub.User, sess *hubstate.Session) SessionResponse {
	return SessionResponse{User: u, Token: sess.Token, ExpiresAt: sess.ExpiresAt}
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, sess, err := s.auth.SignUp(r.Context(), in.Name, in.Email, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.auth.SetSessionCookie(w, sess)
	writeJSON(w, http.StatusCreated, sessionResponse(user, sess))
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, sess, err := s.auth.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.auth.SetSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, sessionResponse(user, sess))
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), auth.TokenFromRequest(r, s.auth.CookieName())); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.auth.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFrom(r.Context())
	writeJSON(w, http.StatusOK, SessionResponse{User: actor(r), ExpiresAt: sess.ExpiresAt})
}

func (s *Server) googleBegin(w http.ResponseWriter, r *http.Request) {
	url, err := s.auth.BeginGoogle(r.Context(), r.URL.Query().Get("returnTo"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *Server) googleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_, sess, returnTo, err := s.auth.CompleteGoogle(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.auth.SetSessionCookie(w, sess)
	http.Redirect(w, r, returnTo, http.StatusFound)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Profile(r.Context(), actor(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type profileRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Locale *string `json:"locale"`
	Theme  *string `json:"theme"`
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in profileRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.Locale != nil && *in.Locale != "" {
		l, ok := s.locales.Match(*in.Locale)
		if !ok {
			s.writeError(w, r, errUnsupportedLocale)
			return
		}
		in.Locale = &l
	}
	user, err := s.svc.UpdateProfile(r.Context(), actor(r).ID, store.ProfilePatch{
		Name:   in.Name,
		Email:  in.Email,
		Locale: in.Locale,
		Theme:  in.Theme,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var in passwordRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, _ := auth.SessionFrom(r.Context())
	revoked, err := s.auth.ChangePassword(r.Context(), actor(r).ID, sess.Token, in.CurrentPassword, in.NewPassword)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"revokedSessions": revoked})
}
