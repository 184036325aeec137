// Package httpapi exposes ProjectHub over HTTP. Handlers decode the request,
// call the service layer and write JSON; errors map to status codes through
// their apperr kind.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/auth"
	"github.com/dyluth/projecthub/internal/config"
	"github.com/dyluth/projecthub/internal/i18n"
	"github.com/dyluth/projecthub/internal/service"
	"github.com/dyluth/projecthub/pkg/hubstate"
)

// Server holds the dependencies of every handler.
type Server struct {
	svc     *service.Service
	auth    *auth.Manager
	state   *hubstate.Client
	locales *i18n.Negotiator
	cfg     config.ServerConfig
	logger  *zap.Logger
	router  *mux.Router
}

// New builds the server and its routes.
func New(svc *service.Service, authn *auth.Manager, state *hubstate.Client, locales *i18n.Negotiator, cfg config.ServerConfig, logger *zap.Logger) *Server {
	s := &Server{
		svc:     svc,
		auth:    authn,
		state:   state,
		locales: locales,
		cfg:     cfg,
		logger:  logger.Named("http"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("Server shutdown complete")
	return nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverer, requestID, s.logging, s.locale)
	r.NotFoundHandler = s.wrap(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errRouteNotFound)
	})
	r.MethodNotAllowedHandler = s.wrap(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errMethodNotAllowed)
	})

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	pub := r.PathPrefix("/api/auth").Subrouter()
	pub.HandleFunc("/signup", s.signUp).Methods(http.MethodPost)
	pub.HandleFunc("/signin", s.signIn).Methods(http.MethodPost)
	pub.HandleFunc("/signout", s.signOut).Methods(http.MethodPost)
	pub.HandleFunc("/google", s.googleBegin).Methods(http.MethodGet)
	pub.HandleFunc("/google/callback", s.googleCallback).Methods(http.MethodGet)
	pub.Handle("/session", s.requireSession(http.HandlerFunc(s.currentSession))).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireSession)

	api.HandleFunc("/user/profile", s.getProfile).Methods(http.MethodGet)
	api.HandleFunc("/user/profile", s.updateProfile).Methods(http.MethodPatch)
	api.HandleFunc("/user/password", s.changePassword).Methods(http.MethodPatch)

	api.HandleFunc("/organizations", s.listOrganizations).Methods(http.MethodGet)
	api.HandleFunc("/organizations", s.createOrganization).Methods(http.MethodPost)
	api.HandleFunc("/organizations/{id}", s.getOrganization).Methods(http.MethodGet)
	api.HandleFunc("/organizations/{id}/members", s.listMembers).Methods(http.MethodGet)
	api.HandleFunc("/organizations/{id}/members", s.addMember).Methods(http.MethodPost)
	api.HandleFunc("/organizations/{id}/members/{userId}", s.removeMember).Methods(http.MethodDelete)

	api.HandleFunc("/projects", s.listProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects", s.createProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}", s.getProject).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}", s.updateProject).Methods(http.MethodPatch)
	api.HandleFunc("/projects/{id}", s.deleteProject).Methods(http.MethodDelete)
	api.HandleFunc("/projects/{id}/board", s.board).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/gantt", s.gantt).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/sprints", s.listSprints).Methods(http.MethodGet)

	api.HandleFunc("/sprints", s.createSprint).Methods(http.MethodPost)
	api.HandleFunc("/sprints/{id}", s.updateSprint).Methods(http.MethodPatch)

	api.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", s.getTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.patchTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{id}", s.deleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/activity", s.taskActivity).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}/comments", s.listComments).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}/comments", s.createTaskComment).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/attachments", s.listAttachments).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}/attachments", s.uploadAttachment).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/labels/{labelId}", s.addTaskLabel).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/labels/{labelId}", s.removeTaskLabel).Methods(http.MethodDelete)

	api.HandleFunc("/comments", s.createComment).Methods(http.MethodPost)
	api.HandleFunc("/comments/{id}", s.deleteComment).Methods(http.MethodDelete)

	api.HandleFunc("/attachments/{id}", s.downloadAttachment).Methods(http.MethodGet)
	api.HandleFunc("/attachments/{id}", s.deleteAttachment).Methods(http.MethodDelete)

	api.HandleFunc("/labels", s.listLabels).Methods(http.MethodGet)
	api.HandleFunc("/labels", s.createLabel).Methods(http.MethodPost)
	api.HandleFunc("/labels/{id}", s.updateLabel).Methods(http.MethodPatch)
	api.HandleFunc("/labels/{id}", s.deleteLabel).Methods(http.MethodDelete)

	api.HandleFunc("/notifications", s.listNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read-all", s.markAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/stream", s.streamNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", s.markRead).Methods(http.MethodPatch)

	api.HandleFunc("/dashboard", s.dashboard).Methods(http.MethodGet)
	api.HandleFunc("/reports", s.reports).Methods(http.MethodGet)
	api.HandleFunc("/calendar", s.calendar).Methods(http.MethodGet)
	api.HandleFunc("/search", s.search).Methods(http.MethodGet)
	api.HandleFunc("/teams", s.teams).Methods(http.MethodGet)

	return r
}
