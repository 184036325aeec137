package httpapi

import (
	"net/http"
	"time"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/service"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/internal/timespec"
	"github.com/dyluth/projecthub/pkg/hub"
)

// parseDate parses an optional API date.
func parseDate(name string, v *string) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := timespec.ParseDate(*v)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid "+name)
	}
	return t, nil
}

// date reads a nullable date from a PATCH body.
func (f fields) date(name string) (store.Optional[time.Time], error) {
	if !f.has(name) {
		return store.Optional[time.Time]{}, nil
	}
	var raw string
	ok, err := f.into(name, &raw)
	if err != nil || !ok {
		return store.Null[time.Time](), err
	}
	t, err := parseDate(name, &raw)
	if err != nil {
		return store.Optional[time.Time]{}, err
	}
	if t == nil {
		return store.Null[time.Time](), nil
	}
	return store.Some(*t), nil
}

// str reads a nullable string from a PATCH body; null and "" both clear it.
func (f fields) str(name string) (store.Optional[string], error) {
	if !f.has(name) {
		return store.Optional[string]{}, nil
	}
	var v string
	ok, err := f.into(name, &v)
	if err != nil {
		return store.Optional[string]{}, err
	}
	if !ok || v == "" {
		return store.Null[string](), nil
	}
	return store.Some(v), nil
}

func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.svc.ListOrganizations(r.Context(), actor(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

type organizationRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
}

func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	var in organizationRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	org, err := s.svc.CreateOrganization(r.Context(), actor(r), service.OrganizationInput(in))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := s.svc.GetOrganization(r.Context(), actor(r).ID, pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.svc.ListMembers(r.Context(), actor(r).ID, pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type memberRequest struct {
	Email string   `json:"email"`
	Role  hub.Role `json:"role"`
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	var in memberRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.AddMember(r.Context(), actor(r), pathVar(r, "id"), in.Email, in.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveMember(r.Context(), actor(r), pathVar(r, "id"), pathVar(r, "userId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.svc.ListProjects(r.Context(), actor(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

type projectRequest struct {
	Name           string            `json:"name"`
	Key            string            `json:"key"`
	Description    string            `json:"description"`
	Status         hub.ProjectStatus `json:"status"`
	StartDate      *string           `json:"startDate"`
	EndDate        *string           `json:"endDate"`
	OrganizationID string            `json:"organizationId"`
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var in projectRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	start, err := parseDate("startDate", in.StartDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	end, err := parseDate("endDate", in.EndDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.CreateProject(r.Context(), actor(r), service.ProjectInput{
		Name:           in.Name,
		Key:            in.Key,
		Description:    in.Description,
		OrganizationID: in.OrganizationID,
		Status:         in.Status,
		StartDate:      start,
		EndDate:        end,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetProject(r.Context(), actor(r).ID, pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	f, err := decodeFields(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch store.ProjectPatch
	var name, description string
	var status hub.ProjectStatus
	if ok, err := f.into("name", &name); err != nil {
		s.writeError(w, r, err)
		return
	} else if ok {
		patch.Name = &name
	}
	if ok, err := f.into("description", &description); err != nil {
		s.writeError(w, r, err)
		return
	} else if ok {
		patch.Description = &description
	}
	if ok, err := f.into("status", &status); err != nil {
		s.writeError(w, r, err)
		return
	} else if ok {
		patch.Status = &status
	}
	if patch.StartDate, err = f.date("startDate"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if patch.EndDate, err = f.date("endDate"); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.UpdateProject(r.Context(), actor(r).ID, pathVar(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteProject(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) board(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Board(r.Context(), actor(r).ID, pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) gantt(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.Gantt(r.Context(), actor(r).ID, pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) listSprints(w http.ResponseWriter, r *http.Request) {
	sprints, err := s.svc.ListSprints(r.Context(), actor(r).ID, pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sprints)
}

type sprintRequest struct {
	Name      string           `json:"name"`
	Goal      string           `json:"goal"`
	StartDate *string          `json:"startDate"`
	EndDate   *string          `json:"endDate"`
	ProjectID string           `json:"projectId"`
	Status    hub.SprintStatus `json:"status"`
}

func (s *Server) createSprint(w http.ResponseWriter, r *http.Request) {
	var in sprintRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	start, err := parseDate("startDate", in.StartDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	end, err := parseDate("endDate", in.EndDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sp, err := s.svc.CreateSprint(r.Context(), actor(r).ID, service.SprintInput{
		Name:      in.Name,
		Goal:      in.Goal,
		StartDate: start,
		EndDate:   end,
		ProjectID: in.ProjectID,
		Status:    in.Status,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

type sprintPatchRequest struct {
	Name      *string           `json:"name"`
	Goal      *string           `json:"goal"`
	Status    *hub.SprintStatus `json:"status"`
	StartDate *string           `json:"startDate"`
	EndDate   *string           `json:"endDate"`
}

func (s *Server) updateSprint(w http.ResponseWriter, r *http.Request) {
	var in sprintPatchRequest
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	start, err := parseDate("startDate", in.StartDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	end, err := parseDate("endDate", in.EndDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sp, err := s.svc.UpdateSprint(r.Context(), actor(r).ID, pathVar(r, "id"), store.SprintPatch{
		Name:      in.Name,
		Goal:      in.Goal,
		Status:    in.Status,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}
