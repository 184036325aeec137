package httpapi

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/filter"
	"github.com/dyluth/projecthub/internal/kanban"
	"github.com/dyluth/projecthub/internal/service"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/internal/timespec"
	"github.com/dyluth/projecthub/pkg/hub"
)

// multipartOverhead is the slack allowed on top of the file size limit for
// the multipart envelope.
const multipartOverhead = 1 << 20

// taskQuery builds the store query of GET /api/tasks. Status and priority
// accept repeated or comma-separated values; assigneeId=me means the caller.
func taskQuery(r *http.Request, userID string) (store.TaskQuery, error) {
	v := r.URL.Query()
	q := store.TaskQuery{
		ProjectID:  v.Get("projectId"),
		SprintID:   v.Get("sprintId"),
		AssigneeID: v.Get("assigneeId"),
		Search:     strings.TrimSpace(v.Get("q")),
		Order:      store.OrderRecent,
	}
	if q.AssigneeID == "me" {
		q.AssigneeID = userID
	}
	for _, s := range splitValues(v["status"]) {
		st := hub.TaskStatus(strings.ToUpper(s))
		if err := st.Validate(); err != nil {
			return q, apperr.Wrap(apperr.KindValidation, err, "invalid status")
		}
		q.Statuses = append(q.Statuses, st)
	}
	for _, s := range splitValues(v["priority"]) {
		p := hub.Priority(strings.ToUpper(s))
		if err := p.Validate(); err != nil {
			return q, apperr.Wrap(apperr.KindValidation, err, "invalid priority")
		}
		q.Priorities = append(q.Priorities, p)
	}

	since, until, err := timespec.ParseRange(v.Get("since"), v.Get("until"))
	if err != nil {
		return q, apperr.Wrap(apperr.KindValidation, err, "invalid time range")
	}
	if since > 0 {
		q.UpdatedSince = time.UnixMilli(since)
	}
	if until > 0 {
		q.UpdatedUntil = time.UnixMilli(until)
	}

	if l := v.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return q, apperr.Validation("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	return q, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// listTasks also accepts filter, an expression evaluated per task, and sort.
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	user := actor(r)
	q, err := taskQuery(r, user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var expr *filter.Expression
	if src := r.URL.Query().Get("filter"); src != "" {
		if expr, err = filter.Compile(src); err != nil {
			s.writeError(w, r, apperr.Wrap(apperr.KindValidation, err, "invalid filter"))
			return
		}
	}

	tasks, err := s.svc.ListTasks(r.Context(), user.ID, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if expr != nil {
		if tasks, err = expr.Filter(tasks, time.Now()); err != nil {
			s.writeError(w, r, apperr.Wrap(apperr.KindValidation, err, "invalid filter"))
			return
		}
	}
	if key := r.URL.Query().Get("sort"); key != "" {
		if err := filter.Sort(tasks, key); err != nil {
			s.writeError(w, r, apperr.Wrap(apperr.KindValidation, err, "invalid sort"))
			return
		}
	}
	writeJSON(w, http.StatusOK, tasks)
}

type taskRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      hub.TaskStatus `json:"status"`
	Priority    hub.Priority   `json:"priority"`
	StoryPoints *int           `json:"storyPoints"`
	DueDate     *string        `json:"dueDate"`
	ProjectID   string         `json:"projectId"`
	SprintID    *string        `json:"sprintId"`
	AssigneeID  *string        `json:"assigneeId"`
	ParentID    *string        `json:"parentId"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in taskRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	due, err := parseDate("dueDate", in.DueDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.svc.CreateTask(r.Context(), actor(r), service.TaskInput{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		StoryPoints: in.StoryPoints,
		DueDate:     due,
		ProjectID:   in.ProjectID,
		SprintID:    emptyToNil(in.SprintID),
		AssigneeID:  emptyToNil(in.AssigneeID),
		ParentID:    emptyToNil(in.ParentID),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetTask(r.Context(), actor(r).ID, pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// patchTask writes only the fields present in the body. A body holding just
// status and optionally position is a board move.
func (s *Server) patchTask(w http.ResponseWriter, r *http.Request) {
	f, err := decodeFields(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var t *hub.Task
	if f.has("status") && f.only("status", "position") {
		var mv kanban.Move
		if _, err := f.into("status", &mv.Status); err != nil {
			s.writeError(w, r, err)
			return
		}
		var pos int
		if ok, err := f.into("position", &pos); err != nil {
			s.writeError(w, r, err)
			return
		} else if ok {
			mv.Position = &pos
		}
		t, err = s.svc.MoveTask(r.Context(), actor(r), pathVar(r, "id"), mv)
	} else {
		var patch store.TaskPatch
		if patch, err = taskPatch(f); err != nil {
			s.writeError(w, r, err)
			return
		}
		t, err = s.svc.UpdateTask(r.Context(), actor(r), pathVar(r, "id"), patch)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func taskPatch(f fields) (store.TaskPatch, error) {
	var (
		p        store.TaskPatch
		title    string
		desc     string
		status   hub.TaskStatus
		priority hub.Priority
		position int
		points   int
		err      error
	)
	set := func(name string, v any, assign func()) {
		if err != nil {
			return
		}
		var ok bool
		if ok, err = f.into(name, v); ok {
			assign()
		}
	}
	set("title", &title, func() { p.Title = &title })
	set("description", &desc, func() { p.Description = &desc })
	set("status", &status, func() { p.Status = &status })
	set("priority", &priority, func() { p.Priority = &priority })
	set("position", &position, func() { p.Position = &position })
	if err != nil {
		return p, err
	}

	if f.has("storyPoints") {
		p.StoryPoints = store.Null[int]()
		if ok, err := f.into("storyPoints", &points); err != nil {
			return p, err
		} else if ok {
			p.StoryPoints = store.Some(points)
		}
	}
	if p.DueDate, err = f.date("dueDate"); err != nil {
		return p, err
	}
	if p.SprintID, err = f.str("sprintId"); err != nil {
		return p, err
	}
	if p.AssigneeID, err = f.str("assigneeId"); err != nil {
		return p, err
	}
	if p.ParentID, err = f.str("parentId"); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTask(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) taskActivity(w http.ResponseWriter, r *http.Request) {
	log, err := s.svc.TaskActivity(r.Context(), actor(r).ID, pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (s *Server) addTaskLabel(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.AddLabel(r.Context(), actor(r), pathVar(r, "id"), pathVar(r, "labelId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) removeTaskLabel(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.RemoveLabel(r.Context(), actor(r), pathVar(r, "id"), pathVar(r, "labelId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.svc.ListComments(r.Context(), actor(r).ID, pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	TaskID  string `json:"taskId"`
	Content string `json:"content"`
}

func (s *Server) createTaskComment(w http.ResponseWriter, r *http.Request) {
	var in commentRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeComment(w, r, pathVar(r, "id"), in.Content)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	var in commentRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeComment(w, r, in.TaskID, in.Content)
}

func (s *Server) writeComment(w http.ResponseWriter, r *http.Request, taskID, content string) {
	c, err := s.svc.CreateComment(r.Context(), actor(r), taskID, content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteComment(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listAttachments(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListAttachments(r.Context(), actor(r).ID, pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// uploadAttachment takes a multipart form with a single "file" part.
func (s *Server) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.svc.MaxUploadSize()+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, apperr.Validation("file is too large"))
			return
		}
		s.writeError(w, r, apperr.Wrap(apperr.KindValidation, err, "file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	a, err := s.svc.AddAttachment(r.Context(), actor(r), pathVar(r, "id"), service.Upload{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	a, f, err := s.svc.OpenAttachment(r.Context(), actor(r).ID, pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, a.Name, a.CreatedAt, f)
}

func (s *Server) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAttachment(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.svc.ListLabels(r.Context(), actor(r).ID, r.URL.Query().Get("projectId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

type labelRequest struct {
	Name      *string `json:"name"`
	Color     *string `json:"color"`
	ProjectID *string `json:"projectId"`
}

func (s *Server) createLabel(w http.ResponseWriter, r *http.Request) {
	var in labelRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	var name, color string
	if in.Name != nil {
		name = *in.Name
	}
	if in.Color != nil {
		color = *in.Color
	}
	l, err := s.svc.CreateLabel(r.Context(), actor(r).ID, name, color, emptyToNil(in.ProjectID))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) updateLabel(w http.ResponseWriter, r *http.Request) {
	var in labelRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.svc.UpdateLabel(r.Context(), actor(r).ID, pathVar(r, "id"), in.Name, in.Color)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) deleteLabel(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteLabel(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
