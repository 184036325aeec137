// Package seed loads the demo organization used for local development and
// walkthroughs. Running it twice leaves the data unchanged.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/auth"
	"github.com/dyluth/projecthub/internal/logging"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
)

// DemoPassword is shared by every demo account.
const DemoPassword = "password123"

const (
	OrgSlug    = "acme-corp"
	ProjectKey = "DEMO"
)

type demoUser struct {
	name, email string
	role        hub.Role
}

var demoUsers = []demoUser{
	{"Admin User", "admin@example.com", hub.RoleOwner},
	{"Developer User", "developer@example.com", hub.RoleMember},
	{"Designer User", "designer@example.com", hub.RoleMember},
}

var demoLabels = []struct{ name, color string }{
	{"Bug", "#ef4444"},
	{"Feature", "#3b82f6"},
	{"Improvement", "#10b981"},
}

type demoTask struct {
	title       string
	description string
	status      hub.TaskStatus
	priority    hub.Priority
	points      int
	assignee    string // email; empty leaves the task unassigned
	creator     string
	inSprint    bool
	label       string
}

var demoTasks = []demoTask{
	{"Setup project infrastructure", "Initialize repository, CI/CD pipeline, and development environment",
		hub.StatusDone, hub.PriorityHigh, 5, "admin@example.com", "admin@example.com", true, "Feature"},
	{"Design user interface", "Create mockups and design system for the application",
		hub.StatusInProgress, hub.PriorityHigh, 8, "designer@example.com", "admin@example.com", true, "Feature"},
	{"Implement authentication", "Add login, signup, and OAuth integration",
		hub.StatusInProgress, hub.PriorityUrgent, 5, "developer@example.com", "admin@example.com", true, "Feature"},
	{"Build kanban board", "Create drag-and-drop kanban board for task management",
		hub.StatusTodo, hub.PriorityHigh, 8, "developer@example.com", "admin@example.com", true, "Feature"},
	{"Fix responsive layout issues", "Mobile view has alignment problems on smaller screens",
		hub.StatusTodo, hub.PriorityMedium, 3, "designer@example.com", "developer@example.com", true, "Bug"},
	{"Add real-time notifications", "Implement WebSocket-based notifications for task updates",
		hub.StatusTodo, hub.PriorityMedium, 5, "developer@example.com", "admin@example.com", false, "Feature"},
	{"Optimize database queries", "Improve performance of task listing queries",
		hub.StatusTodo, hub.PriorityLow, 3, "", "admin@example.com", false, "Improvement"},
}

// Options controls password hashing cost and the date the demo sprint starts.
type Options struct {
	BcryptCost int
	Now        time.Time
}

// Result reports what Run created.
type Result struct {
	UsersCreated   int
	MembersAdded   int
	ProjectCreated bool
	Tasks          int
	ProjectID      string
}

// Run creates the demo users, organization, project, labels, sprint and tasks.
// Existing users, the organization and memberships are reused. When the DEMO
// project already exists its contents are left untouched.
func Run(ctx context.Context, st *store.Store, opts Options, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	res := &Result{}

	hash, err := auth.HashPassword(DemoPassword, opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	users := make(map[string]*hub.User, len(demoUsers))
	for _, du := range demoUsers {
		u, created, err := ensureUser(ctx, st, du, hash)
		if err != nil {
			return nil, err
		}
		if created {
			res.UsersCreated++
		}
		users[du.email] = u
	}

	owner := users[demoUsers[0].email]
	org, err := ensureOrganization(ctx, st, owner.ID)
	if err != nil {
		return nil, err
	}

	for _, du := range demoUsers[1:] {
		_, err := st.GetMembership(ctx, org.ID, users[du.email].ID)
		if err == nil {
			continue
		}
		if !apperr.IsNotFound(err) {
			return nil, fmt.Errorf("failed to check membership for %s: %w", du.email, err)
		}
		if _, err := st.AddMember(ctx, org.ID, users[du.email].ID, du.role); err != nil {
			return nil, fmt.Errorf("failed to add %s to %s: %w", du.email, OrgSlug, err)
		}
		res.MembersAdded++
	}

	existing, err := st.FindProjectsByKey(ctx, OrgSlug, ProjectKey)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		res.ProjectID = existing[0].ID
		logging.Event(logger, "seed.project_exists", zap.String("project_id", res.ProjectID))
		return res, nil
	}

	today := time.Date(opts.Now.Year(), opts.Now.Month(), opts.Now.Day(), 0, 0, 0, 0, time.UTC)
	project := &hub.Project{
		Name:           "Demo Project",
		Key:            ProjectKey,
		Description:    "A demo project to showcase ProjectHub features",
		Status:         hub.ProjectActive,
		StartDate:      &today,
		OrganizationID: org.ID,
	}
	if err := st.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create demo project: %w", err)
	}
	res.ProjectCreated = true
	res.ProjectID = project.ID

	labels := make(map[string]string, len(demoLabels))
	for _, dl := range demoLabels {
		l := &hub.Label{Name: dl.name, Color: dl.color, ProjectID: &project.ID}
		if err := st.CreateLabel(ctx, l); err != nil {
			return nil, fmt.Errorf("failed to create label %s: %w", dl.name, err)
		}
		labels[dl.name] = l.ID
	}

	sprint := &hub.Sprint{
		Name:      "Sprint 1",
		Goal:      "Complete initial features",
		StartDate: today,
		EndDate:   today.AddDate(0, 0, 14),
		Status:    hub.SprintActive,
		ProjectID: project.ID,
	}
	if err := st.CreateSprint(ctx, sprint); err != nil {
		return nil, fmt.Errorf("failed to create demo sprint: %w", err)
	}

	for _, dt := range demoTasks {
		points := dt.points
		t := &hub.Task{
			Title:       dt.title,
			Description: dt.description,
			Status:      dt.status,
			Priority:    dt.priority,
			StoryPoints: &points,
			ProjectID:   project.ID,
			CreatedByID: users[dt.creator].ID,
		}
		if dt.assignee != "" {
			t.AssigneeID = &users[dt.assignee].ID
		}
		if dt.inSprint {
			t.SprintID = &sprint.ID
		}
		if err := st.CreateTask(ctx, t); err != nil {
			return nil, fmt.Errorf("failed to create task %q: %w", dt.title, err)
		}
		if err := st.AttachLabel(ctx, t.ID, labels[dt.label]); err != nil {
			return nil, fmt.Errorf("failed to label task %q: %w", dt.title, err)
		}
		res.Tasks++
	}

	logging.Event(logger, "seed.completed",
		zap.String("project_id", project.ID),
		zap.Int("users_created", res.UsersCreated),
		zap.Int("tasks", res.Tasks))
	return res, nil
}

func ensureUser(ctx context.Context, st *store.Store, du demoUser, hash string) (*hub.User, bool, error) {
	u, err := st.GetUserByEmail(ctx, du.email)
	if err == nil {
		return u, false, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, false, fmt.Errorf("failed to look up %s: %w", du.email, err)
	}
	u = &hub.User{Name: du.name, Email: du.email, PasswordHash: hash}
	if err := st.CreateUser(ctx, u); err != nil {
		return nil, false, fmt.Errorf("failed to create %s: %w", du.email, err)
	}
	return u, true, nil
}

func ensureOrganization(ctx context.Context, st *store.Store, ownerID string) (*hub.Organization, error) {
	org, err := st.GetOrganizationBySlug(ctx, OrgSlug)
	if err == nil {
		return org, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up organization %s: %w", OrgSlug, err)
	}
	org = &hub.Organization{
		Name:        "Acme Corporation",
		Slug:        OrgSlug,
		Description: "Demo organization for testing",
	}
	if err := st.CreateOrganization(ctx, org, ownerID); err != nil {
		return nil, fmt.Errorf("failed to create organization %s: %w", OrgSlug, err)
	}
	return org, nil
}
