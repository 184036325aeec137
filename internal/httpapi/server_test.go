package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/auth"
	"github.com/dyluth/projecthub/internal/config"
	"github.com/dyluth/projecthub/internal/i18n"
	"github.com/dyluth/projecthub/internal/policy"
	"github.com/dyluth/projecthub/internal/service"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
	"github.com/dyluth/projecthub/pkg/hubstate"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	redis   *miniredis.Miniredis
	state   *hubstate.Client
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "hub.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mr := miniredis.RunT(t)
	state, err := hubstate.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })

	policies, err := policy.New(nil)
	require.NoError(t, err)
	locales, err := i18n.New([]string{"en", "fr"}, "en")
	require.NoError(t, err)

	logger := zap.NewNop()
	svc := service.New(st, state, policies, config.AttachmentsConfig{
		Dir:          filepath.Join(t.TempDir(), "uploads"),
		MaxFileSize:  64,
		AllowedTypes: []string{"image/", "application/pdf"},
	}, logger)
	authn := auth.NewManager(st, state, config.AuthConfig{
		SessionTTL:       time.Hour,
		BcryptCost:       4,
		MaxLoginAttempts: 3,
		LockoutWindow:    time.Minute,
		CookieName:       "projecthub_session",
	}, logger)

	srv := New(svc, authn, state, locales, config.ServerConfig{}, logger)
	return &testAPI{t: t, handler: srv.Handler(), redis: mr, state: state}
}

type response struct {
	*httptest.ResponseRecorder
}

func (r response) decode(v any) {
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		panic(err)
	}
}

func (r response) errorBody() ErrorResponse {
	var e ErrorResponse
	r.decode(&e)
	return e
}

// do sends a JSON request. token may be empty.
func (a *testAPI) do(method, path, token string, body any, headers ...string) response {
	a.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return response{rec}
}

// signUp registers a user and returns it with its session token.
func (a *testAPI) signUp(name, email string) (*hub.User, string) {
	a.t.Helper()
	res := a.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	require.Equal(a.t, http.StatusCreated, res.Code, res.Body.String())
	var out SessionResponse
	res.decode(&out)
	return out.User, out.Token
}

type world struct {
	ownerToken, memberToken, outsiderToken string
	owner, member, outsider                *hub.User
	org                                    hub.Organization
	project                                hub.Project
}

func (a *testAPI) world() world {
	a.t.Helper()
	var w world
	w.owner, w.ownerToken = a.signUp("Admin User", "admin@example.com")
	w.member, w.memberToken = a.signUp("Developer User", "developer@example.com")
	w.outsider, w.outsiderToken = a.signUp("Outsider", "outsider@example.com")

	res := a.do(http.MethodPost, "/api/organizations", w.ownerToken, map[string]string{"name": "Acme Corporation", "slug": "acme-corp"})
	require.Equal(a.t, http.StatusCreated, res.Code, res.Body.String())
	res.decode(&w.org)

	res = a.do(http.MethodPost, "/api/organizations/"+w.org.ID+"/members", w.ownerToken, map[string]string{"email": "developer@example.com"})
	require.Equal(a.t, http.StatusCreated, res.Code, res.Body.String())

	res = a.do(http.MethodPost, "/api/projects", w.ownerToken, map[string]string{"name": "Demo Project", "key": "demo", "organizationId": w.org.ID})
	require.Equal(a.t, http.StatusCreated, res.Code, res.Body.String())
	res.decode(&w.project)
	return w
}

func TestHealth(t *testing.T) {
	api := setupAPI(t)

	res := api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var h HealthResponse
	res.decode(&h)
	assert.Equal(t, HealthResponse{Status: "healthy", Redis: "connected", Database: "connected"}, h)

	api.redis.SetError("connection refused")
	res = api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
	res.decode(&h)
	assert.Equal(t, "unhealthy", h.Status)
	assert.Equal(t, "disconnected", h.Redis)
	assert.Equal(t, "connected", h.Database)
	assert.Contains(t, h.Error, "redis:")
}

func TestAuth(t *testing.T) {
	api := setupAPI(t)
	_, token := api.signUp("Admin User", "admin@example.com")

	t.Run("signup sets the session cookie", func(t *testing.T) {
		res := api.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
			"name": "Cookie", "email": "cookie@example.com", "password": "password123",
		})
		require.Equal(t, http.StatusCreated, res.Code)
		cookies := res.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, "projecthub_session", cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.NotContains(t, res.Body.String(), "password")
	})

	t.Run("duplicate email", func(t *testing.T) {
		res := api.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
			"name": "Again", "email": "ADMIN@example.com", "password": "password123",
		})
		assert.Equal(t, http.StatusConflict, res.Code)
		assert.Equal(t, "CONFLICT", res.errorBody().Code)
	})

	t.Run("short password", func(t *testing.T) {
		res := api.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
			"name": "Short", "email": "short@example.com", "password": "abc",
		})
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("protected routes need a session", func(t *testing.T) {
		res := api.do(http.MethodGet, "/api/projects", "", nil, RequestIDHeader, "req-123")
		require.Equal(t, http.StatusUnauthorized, res.Code)
		body := res.errorBody()
		assert.Equal(t, "UNAUTHORIZED", body.Code)
		assert.Equal(t, "authentication required", body.Error)
		assert.Equal(t, "req-123", body.RequestID)
		assert.Equal(t, "req-123", res.Header().Get(RequestIDHeader))
	})

	t.Run("session via bearer token", func(t *testing.T) {
		res := api.do(http.MethodGet, "/api/auth/session", token, nil)
		require.Equal(t, http.StatusOK, res.Code)
		var out SessionResponse
		res.decode(&out)
		assert.Equal(t, "admin@example.com", out.User.Email)
	})

	t.Run("wrong password then lockout", func(t *testing.T) {
		creds := map[string]string{"email": "admin@example.com", "password": "wrong-password"}
		for i := 0; i < 3; i++ {
			res := api.do(http.MethodPost, "/api/auth/signin", "", creds)
			require.Equal(t, http.StatusUnauthorized, res.Code)
			assert.Equal(t, "invalid email or password", res.errorBody().Error)
		}
		creds["password"] = "password123"
		res := api.do(http.MethodPost, "/api/auth/signin", "", creds)
		assert.Equal(t, http.StatusTooManyRequests, res.Code)
	})

	t.Run("password change revokes other sessions", func(t *testing.T) {
		_, first := api.signUp("Pat", "pat@example.com")
		res := api.do(http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "pat@example.com", "password": "password123"})
		require.Equal(t, http.StatusOK, res.Code)
		var second SessionResponse
		res.decode(&second)

		res = api.do(http.MethodPatch, "/api/user/password", first, map[string]string{
			"currentPassword": "password123", "newPassword": "new-password-456",
		})
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
		assert.JSONEq(t, `{"revokedSessions":1}`, res.Body.String())

		assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/auth/session", first, nil).Code)
		assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/auth/session", second.Token, nil).Code)
	})

	t.Run("signout", func(t *testing.T) {
		res := api.do(http.MethodPost, "/api/auth/signout", token, nil)
		require.Equal(t, http.StatusNoContent, res.Code)
		assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/auth/session", token, nil).Code)
	})

	t.Run("google sign-in is off without credentials", func(t *testing.T) {
		res := api.do(http.MethodGet, "/api/auth/google", "", nil)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})
}

func TestErrorsAreLocalized(t *testing.T) {
	api := setupAPI(t)
	_, token := api.signUp("Admin User", "admin@example.com")

	res := api.do(http.MethodPost, "/api/organizations", token, map[string]string{"name": "No slug"}, "Accept-Language", "fr-FR,fr;q=0.9")
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "le nom et le slug sont requis", res.errorBody().Error)

	res = api.do(http.MethodPost, "/api/organizations?locale=en", token, map[string]string{"name": "No slug"}, "Accept-Language", "fr")
	assert.Equal(t, "name and slug are required", res.errorBody().Error)

	t.Run("stored preference", func(t *testing.T) {
		res := api.do(http.MethodPatch, "/api/user/profile", token, map[string]string{"locale": "fr"})
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
		res = api.do(http.MethodGet, "/api/projects/missing", token, nil)
		assert.Equal(t, "projet introuvable", res.errorBody().Error)
	})

	t.Run("unsupported locale", func(t *testing.T) {
		res := api.do(http.MethodPatch, "/api/user/profile", token, map[string]string{"locale": "xx"}, "Accept-Language", "en")
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/organizations?locale=en", strings.NewReader("{"))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid request body")
	})

	t.Run("unknown route", func(t *testing.T) {
		res := api.do(http.MethodGet, "/nope?locale=en", "", nil)
		require.Equal(t, http.StatusNotFound, res.Code)
		body := res.errorBody()
		assert.Equal(t, "NOT_FOUND", body.Code)
		assert.NotEmpty(t, body.RequestID)
	})
}

func TestOrganizationsAndProjects(t *testing.T) {
	api := setupAPI(t)
	w := api.world()

	t.Run("duplicate slug and key are 400", func(t *testing.T) {
		res := api.do(http.MethodPost, "/api/organizations", w.memberToken, map[string]string{"name": "X", "slug": "acme-corp"})
		assert.Equal(t, http.StatusBadRequest, res.Code)
		res = api.do(http.MethodPost, "/api/projects", w.memberToken, map[string]string{"name": "X", "key": "DEMO", "organizationId": w.org.ID})
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("non-members cannot create projects", func(t *testing.T) {
		res := api.do(http.MethodPost, "/api/projects", w.outsiderToken, map[string]string{"name": "X", "key": "XX", "organizationId": w.org.ID})
		assert.Equal(t, http.StatusForbidden, res.Code)
	})

	t.Run("projects are hidden from outsiders", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/projects/"+w.project.ID, w.outsiderToken, nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/organizations/"+w.org.ID, w.outsiderToken, nil).Code)

		var list []hub.Project
		res := api.do(http.MethodGet, "/api/projects", w.outsiderToken, nil)
		res.decode(&list)
		assert.Empty(t, list)
	})

	t.Run("members are listed", func(t *testing.T) {
		var members []hub.Member
		res := api.do(http.MethodGet, "/api/organizations/"+w.org.ID+"/members", w.memberToken, nil)
		require.Equal(t, http.StatusOK, res.Code)
		res.decode(&members)
		assert.Len(t, members, 2)
	})

	t.Run("patch clears dates with null", func(t *testing.T) {
		res := api.do(http.MethodPatch, "/api/projects/"+w.project.ID, w.memberToken, map[string]any{"startDate": "2024-03-01", "status": "ACTIVE"})
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
		var p hub.Project
		res.decode(&p)
		require.NotNil(t, p.StartDate)
		assert.Equal(t, hub.ProjectActive, p.Status)

		res = api.do(http.MethodPatch, "/api/projects/"+w.project.ID, w.memberToken, map[string]any{"startDate": nil})
		require.Equal(t, http.StatusOK, res.Code)
		p = hub.Project{}
		res.decode(&p)
		assert.Nil(t, p.StartDate)
	})

	t.Run("sprints", func(t *testing.T) {
		res := api.do(http.MethodPost, "/api/sprints", w.memberToken, map[string]string{"name": "Sprint 1", "projectId": w.project.ID})
		assert.Equal(t, http.StatusBadRequest, res.Code)

		res = api.do(http.MethodPost, "/api/sprints", w.outsiderToken, map[string]string{
			"name": "Sprint 1", "startDate": "2024-03-01", "endDate": "2024-03-15", "projectId": w.project.ID,
		})
		assert.Equal(t, http.StatusNotFound, res.Code)

		res = api.do(http.MethodPost, "/api/sprints", w.memberToken, map[string]string{
			"name": "Sprint 1", "startDate": "2024-03-01", "endDate": "2024-03-15", "projectId": w.project.ID,
		})
		require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
		var sp hub.Sprint
		res.decode(&sp)

		res = api.do(http.MethodPatch, "/api/sprints/"+sp.ID, w.memberToken, map[string]string{"status": "ACTIVE"})
		require.Equal(t, http.StatusOK, res.Code)

		var sprints []hub.Sprint
		api.do(http.MethodGet, "/api/projects/"+w.project.ID+"/sprints", w.memberToken, nil).decode(&sprints)
		require.Len(t, sprints, 1)
		assert.Equal(t, hub.SprintActive, sprints[0].Status)

		res = api.do(http.MethodGet, "/api/projects/"+w.project.ID+"/gantt", w.memberToken, nil)
		assert.Equal(t, http.StatusOK, res.Code)
		assert.Contains(t, res.Body.String(), `"kind":"sprint"`)
	})

	t.Run("members cannot remove others, admins can", func(t *testing.T) {
		res := api.do(http.MethodDelete, "/api/organizations/"+w.org.ID+"/members/"+w.owner.ID, w.memberToken, nil)
		assert.Equal(t, http.StatusForbidden, res.Code)
		assert.Equal(t, "only owners and admins can remove members; only owners can remove owners", res.errorBody().Error)
	})

	t.Run("delete project", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/projects/"+w.project.ID, w.memberToken, nil).Code)
		assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/projects/"+w.project.ID, w.ownerToken, nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/projects/"+w.project.ID, w.ownerToken, nil).Code)
	})
}

func TestTasks(t *testing.T) {
	api := setupAPI(t)
	w := api.world()

	create := func(body map[string]any) hub.Task {
		t.Helper()
		res := api.do(http.MethodPost, "/api/tasks", w.ownerToken, body)
		require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
		var task hub.Task
		res.decode(&task)
		return task
	}

	res := api.do(http.MethodPost, "/api/tasks", w.ownerToken, map[string]any{"projectId": w.project.ID})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = api.do(http.MethodPost, "/api/tasks", w.ownerToken, map[string]any{"title": "Orphan", "projectId": w.project.ID, "parentId": "ffffffff-ffff-4fff-bfff-ffffffffffff"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "parent task not found in this project", res.errorBody().Error)

	urgent := create(map[string]any{"title": "Fix login", "projectId": w.project.ID, "priority": "URGENT", "assigneeId": w.member.ID, "dueDate": "2024-03-12"})
	low := create(map[string]any{"title": "Polish docs", "projectId": w.project.ID, "priority": "LOW"})
	assert.Equal(t, hub.StatusTodo, urgent.Status)
	require.NotNil(t, urgent.DueDate)
	assert.Equal(t, "2024-03-12", urgent.DueDate.Format("2006-01-02"))

	t.Run("list filters", func(t *testing.T) {
		var tasks []hub.Task
		api.do(http.MethodGet, "/api/tasks?priority=urgent,high", w.ownerToken, nil).decode(&tasks)
		require.Len(t, tasks, 1)
		assert.Equal(t, urgent.ID, tasks[0].ID)

		tasks = nil
		api.do(http.MethodGet, "/api/tasks?assigneeId=me", w.memberToken, nil).decode(&tasks)
		require.Len(t, tasks, 1)

		tasks = nil
		api.do(http.MethodGet, `/api/tasks?filter=`+url.QueryEscape(`priority == "LOW"`), w.ownerToken, nil).decode(&tasks)
		require.Len(t, tasks, 1)
		assert.Equal(t, low.ID, tasks[0].ID)

		assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/tasks?status=SHIPPED", w.ownerToken, nil).Code)
		assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/tasks?filter="+url.QueryEscape("title +"), w.ownerToken, nil).Code)

		tasks = nil
		api.do(http.MethodGet, "/api/tasks", w.outsiderToken, nil).decode(&tasks)
		assert.Empty(t, tasks)
	})

	t.Run("board move writes status and logs activity", func(t *testing.T) {
		res := api.do(http.MethodPatch, "/api/tasks/"+urgent.ID, w.memberToken, map[string]any{"status": "IN_PROGRESS"})
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
		var moved hub.Task
		res.decode(&moved)
		assert.Equal(t, hub.StatusInProgress, moved.Status)

		var log []hub.Activity
		api.do(http.MethodGet, "/api/tasks/"+urgent.ID+"/activity", w.memberToken, nil).decode(&log)
		require.Len(t, log, 2)
		assert.Equal(t, hub.ActionStatusChanged, log[0].Action, "newest first")

		res = api.do(http.MethodGet, "/api/projects/"+w.project.ID+"/board", w.memberToken, nil)
		require.Equal(t, http.StatusOK, res.Code)
		var board struct {
			Columns []struct {
				Status hub.TaskStatus `json:"status"`
				Count  int            `json:"count"`
			} `json:"columns"`
		}
		res.decode(&board)
		require.Len(t, board.Columns, 4)
		assert.Equal(t, 1, board.Columns[1].Count)
	})

	t.Run("partial update only touches present fields", func(t *testing.T) {
		res := api.do(http.MethodPatch, "/api/tasks/"+urgent.ID, w.memberToken, map[string]any{"title": "Fix login flow", "assigneeId": nil, "storyPoints": 5})
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
		var got hub.Task
		res.decode(&got)
		assert.Equal(t, "Fix login flow", got.Title)
		assert.Nil(t, got.AssigneeID)
		require.NotNil(t, got.StoryPoints)
		assert.Equal(t, 5, *got.StoryPoints)
		assert.Equal(t, hub.PriorityUrgent, got.Priority)
		assert.Equal(t, hub.StatusInProgress, got.Status)
		require.NotNil(t, got.DueDate)
	})

	t.Run("labels", func(t *testing.T) {
		res := api.do(http.MethodPost, "/api/labels", w.ownerToken, map[string]any{"name": "bug", "color": "#ef4444"})
		require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
		var label hub.Label
		res.decode(&label)

		res = api.do(http.MethodPost, "/api/tasks/"+low.ID+"/labels/"+label.ID, w.memberToken, nil)
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
		var got hub.Task
		res.decode(&got)
		require.Len(t, got.Labels, 1)

		assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/tasks/"+low.ID+"/labels/"+label.ID, w.memberToken, nil).Code)

		var labels []hub.Label
		api.do(http.MethodGet, "/api/labels", w.memberToken, nil).decode(&labels)
		require.Len(t, labels, 1)
		assert.Equal(t, 1, labels[0].TaskCount)

		assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/labels/"+label.ID, w.outsiderToken, nil).Code)
		res = api.do(http.MethodDelete, "/api/tasks/"+low.ID+"/labels/"+label.ID, w.memberToken, nil)
		require.Equal(t, http.StatusOK, res.Code)
		got = hub.Task{}
		res.decode(&got)
		assert.Empty(t, got.Labels)
	})

	t.Run("comments", func(t *testing.T) {
		res := api.do(http.MethodPost, "/api/tasks/"+low.ID+"/comments", w.memberToken, map[string]string{"content": "On it"})
		require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
		var c hub.Comment
		res.decode(&c)

		res = api.do(http.MethodPost, "/api/comments", w.ownerToken, map[string]string{"taskId": low.ID, "content": "Thanks"})
		require.Equal(t, http.StatusCreated, res.Code)

		var comments []hub.Comment
		api.do(http.MethodGet, "/api/tasks/"+low.ID+"/comments", w.ownerToken, nil).decode(&comments)
		assert.Len(t, comments, 2)

		assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/comments/"+c.ID, w.ownerToken, nil).Code)
		assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/comments/"+c.ID, w.memberToken, nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/comments/"+c.ID, w.memberToken, nil).Code)
	})

	t.Run("views", func(t *testing.T) {
		res := api.do(http.MethodGet, "/api/calendar?month=2024-03", w.ownerToken, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Contains(t, res.Body.String(), "Fix login flow")
		assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/calendar?month=March", w.ownerToken, nil).Code)

		var found struct {
			Projects []hub.Project `json:"projects"`
			Tasks    []hub.Task    `json:"tasks"`
		}
		api.do(http.MethodGet, "/api/search?q=polish", w.memberToken, nil).decode(&found)
		assert.Len(t, found.Tasks, 1)

		for _, path := range []string{"/api/dashboard", "/api/reports", "/api/teams", "/api/notifications"} {
			assert.Equal(t, http.StatusOK, api.do(http.MethodGet, path, w.memberToken, nil).Code, path)
		}
	})

	t.Run("notifications", func(t *testing.T) {
		var list []hub.Notification
		api.do(http.MethodGet, "/api/notifications", w.memberToken, nil).decode(&list)
		require.Len(t, list, 2, "member added and task assigned")

		assert.Equal(t, http.StatusNoContent, api.do(http.MethodPatch, "/api/notifications/"+list[0].ID+"/read", w.memberToken, nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodPatch, "/api/notifications/"+list[0].ID+"/read", w.ownerToken, nil).Code)

		res := api.do(http.MethodPost, "/api/notifications/read-all", w.memberToken, nil)
		assert.JSONEq(t, `{"updated":1}`, res.Body.String())
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/tasks/"+low.ID, w.outsiderToken, nil).Code)
		assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/tasks/"+low.ID, w.ownerToken, nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/tasks/"+low.ID, w.ownerToken, nil).Code)
	})
}

func upload(t *testing.T, api *testAPI, taskID, token, name, contentType string, body []byte) response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+taskID+"/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return response{rec}
}

func TestAttachments(t *testing.T) {
	api := setupAPI(t)
	w := api.world()

	res := api.do(http.MethodPost, "/api/tasks", w.ownerToken, map[string]any{"title": "Screenshots", "projectId": w.project.ID})
	require.Equal(t, http.StatusCreated, res.Code)
	var task hub.Task
	res.decode(&task)

	t.Run("limits", func(t *testing.T) {
		res := upload(t, api, task.ID, w.memberToken, "big.png", "image/png", bytes.Repeat([]byte("x"), 65))
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, "file is too large", res.errorBody().Error)

		res = upload(t, api, task.ID, w.memberToken, "run.sh", "text/x-shellscript", []byte("echo hi"))
		assert.Equal(t, http.StatusBadRequest, res.Code)

		res = api.do(http.MethodPost, "/api/tasks/"+task.ID+"/attachments", w.memberToken, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("round trip", func(t *testing.T) {
		res := upload(t, api, task.ID, w.memberToken, "shot.png", "image/png", []byte("png-bytes"))
		require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
		var a hub.Attachment
		res.decode(&a)
		assert.Equal(t, "/api/attachments/"+a.ID, a.URL)
		assert.NotContains(t, res.Body.String(), "storagePath")

		var list []hub.Attachment
		api.do(http.MethodGet, "/api/tasks/"+task.ID+"/attachments", w.ownerToken, nil).decode(&list)
		assert.Len(t, list, 1)

		dl := api.do(http.MethodGet, a.URL, w.ownerToken, nil)
		require.Equal(t, http.StatusOK, dl.Code)
		assert.Equal(t, "png-bytes", dl.Body.String())
		assert.Equal(t, "image/png", dl.Header().Get("Content-Type"))
		assert.Contains(t, dl.Header().Get("Content-Disposition"), "shot.png")

		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, a.URL, w.outsiderToken, nil).Code)
		assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, a.URL, w.memberToken, nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, a.URL, w.ownerToken, nil).Code)
	})
}

func TestNotificationStream(t *testing.T) {
	api := setupAPI(t)
	w := api.world()

	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+w.memberToken)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	require.Equal(t, ": connected", lines.Text())

	res := api.do(http.MethodPost, "/api/tasks", w.ownerToken, map[string]any{"title": "Live", "projectId": w.project.ID, "assigneeId": w.member.ID})
	require.Equal(t, http.StatusCreated, res.Code)

	got := make(chan string, 1)
	go func() {
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				got <- data
				return
			}
		}
	}()

	select {
	case data := <-got:
		var n hub.Notification
		require.NoError(t, json.Unmarshal([]byte(data), &n))
		assert.Equal(t, hub.NotificationTaskAssigned, n.Type)
		assert.Equal(t, w.member.ID, n.UserID)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for the streamed notification")
	}
}
