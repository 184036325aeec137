// Package hub provides the type-safe Go definitions shared by every ProjectHub
// component: the relational store, the HTTP API, the Redis state layer and the CLI.
//
// All entities are identified by UUID strings. JSON field names follow the
// camelCase wire format the web client expects.
package hub

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account that can sign in with credentials or an OAuth provider.
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	EmailVerified *time.Time `json:"emailVerified,omitempty"`
	Image         string     `json:"image,omitempty"`
	PasswordHash  string     `json:"-"`
	Locale        string     `json:"locale"`
	Theme         string     `json:"theme"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// UserRef is the trimmed user embedded in tasks, comments and activity entries.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// Organization is the tenant boundary. Every project belongs to exactly one.
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Logo        string    `json:"logo,omitempty"`
	CreatedByID string    `json:"createdById"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Populated by list queries only.
	ProjectCount int `json:"projectCount"`
	MemberCount  int `json:"memberCount"`
}

// Role is a member's standing inside an organization.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Member links a user to an organization.
type Member struct {
	OrganizationID string    `json:"organizationId"`
	UserID         string    `json:"userId"`
	Role           Role      `json:"role"`
	JoinedAt       time.Time `json:"joinedAt"`
	User           *UserRef  `json:"user,omitempty"`
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "PLANNING"
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectArchived  ProjectStatus = "ARCHIVED"
)

// Project groups sprints and tasks under a short key unique within its organization.
type Project struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Key            string        `json:"key"`
	Description    string        `json:"description,omitempty"`
	Status         ProjectStatus `json:"status"`
	StartDate      *time.Time    `json:"startDate,omitempty"`
	EndDate        *time.Time    `json:"endDate,omitempty"`
	OrganizationID string        `json:"organizationId"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`

	// Populated by list queries only.
	TaskCount     int `json:"taskCount"`
	DoneTaskCount int `json:"doneTaskCount"`
}

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintPlanned   SprintStatus = "PLANNED"
	SprintActive    SprintStatus = "ACTIVE"
	SprintCompleted SprintStatus = "COMPLETED"
)

// Sprint is a time box inside a project.
type Sprint struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Goal      string       `json:"goal,omitempty"`
	StartDate time.Time    `json:"startDate"`
	EndDate   time.Time    `json:"endDate"`
	Status    SprintStatus `json:"status"`
	ProjectID string       `json:"projectId"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`

	ProjectName string `json:"projectName,omitempty"`
}

// TaskStatus doubles as the kanban column a task sits in.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusInReview   TaskStatus = "IN_REVIEW"
	StatusDone       TaskStatus = "DONE"
	StatusBlocked    TaskStatus = "BLOCKED"
)

// Priority orders tasks by urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Task is the unit of work on a board.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	StoryPoints *int       `json:"storyPoints,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ProjectID   string     `json:"projectId"`
	SprintID    *string    `json:"sprintId,omitempty"`
	AssigneeID  *string    `json:"assigneeId,omitempty"`
	CreatedByID string     `json:"createdById"`
	ParentID    *string    `json:"parentId,omitempty"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Labels   []Label     `json:"labels"`
	Assignee *UserRef    `json:"assignee,omitempty"`
	Project  *ProjectRef `json:"project,omitempty"`
}

// ProjectRef is the trimmed project embedded in task listings.
type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Label tags tasks. A label without a project is visible to every member.
type Label struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	ProjectID *string `json:"projectId,omitempty"`
	TaskCount int     `json:"taskCount"`
}

// Comment is a message left on a task.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	TaskID    string    `json:"taskId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	User      *UserRef  `json:"user,omitempty"`
}

// Attachment is a file uploaded against a task. URL points at the download route.
type Attachment struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	StoragePath  string    `json:"-"`
	TaskID       string    `json:"taskId"`
	UploadedByID string    `json:"uploadedById"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Action names an entry in a task's activity log.
type Action string

const (
	ActionTaskCreated       Action = "TASK_CREATED"
	ActionTaskUpdated       Action = "TASK_UPDATED"
	ActionStatusChanged     Action = "STATUS_CHANGED"
	ActionAssigned          Action = "ASSIGNED"
	ActionCommentAdded      Action = "COMMENT_ADDED"
	ActionAttachmentAdded   Action = "ATTACHMENT_ADDED"
	ActionAttachmentRemoved Action = "ATTACHMENT_REMOVED"
	ActionLabelAdded        Action = "LABEL_ADDED"
	ActionLabelRemoved      Action = "LABEL_REMOVED"
)

// Activity is one row of a task's audit trail.
type Activity struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	UserID    string    `json:"userId"`
	Action    Action    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
	User      *UserRef  `json:"user,omitempty"`
}

// NotificationType classifies notifications for the client's icons.
type NotificationType string

const (
	NotificationTaskAssigned NotificationType = "TASK_ASSIGNED"
	NotificationCommentAdded NotificationType = "COMMENT_ADDED"
	NotificationMemberAdded  NotificationType = "MEMBER_ADDED"
)

// Notification is addressed to a single user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

var (
	slugPattern       = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)
	colorPattern      = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// NormalizeKey upper-cases and trims a project key the way it is stored.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Validate checks the organization's required fields and slug format.
func (o *Organization) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("organization name cannot be empty")
	}
	if !slugPattern.MatchString(o.Slug) {
		return fmt.Errorf("invalid slug %q: use lowercase letters, digits and single hyphens", o.Slug)
	}
	return nil
}

// Validate checks the project's required fields, key format and status.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if !projectKeyPattern.MatchString(p.Key) {
		return fmt.Errorf("invalid project key %q: 2-10 uppercase letters or digits, starting with a letter", p.Key)
	}
	if !isValidUUID(p.OrganizationID) {
		return fmt.Errorf("invalid organization ID: not a valid UUID")
	}
	if err := p.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fmt.Errorf("project end date must not be before its start date")
	}
	return nil
}

// Validate checks the sprint's required fields and date range.
func (s *Sprint) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("sprint name cannot be empty")
	}
	if !isValidUUID(s.ProjectID) {
		return fmt.Errorf("invalid project ID: not a valid UUID")
	}
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return fmt.Errorf("sprint start and end dates are required")
	}
	if s.EndDate.Before(s.StartDate) {
		return fmt.Errorf("sprint end date must not be before its start date")
	}
	if err := s.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}
	return nil
}

// Validate checks the task's required fields and enum values.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	if !isValidUUID(t.ProjectID) {
		return fmt.Errorf("invalid project ID: not a valid UUID")
	}
	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}
	if err := t.Priority.Validate(); err != nil {
		return fmt.Errorf("invalid priority: %w", err)
	}
	if t.StoryPoints != nil && *t.StoryPoints < 0 {
		return fmt.Errorf("story points must be >= 0, got %d", *t.StoryPoints)
	}
	for name, id := range map[string]*string{"sprint": t.SprintID, "assignee": t.AssigneeID, "parent": t.ParentID} {
		if id != nil && !isValidUUID(*id) {
			return fmt.Errorf("invalid %s ID: not a valid UUID", name)
		}
	}
	return nil
}

// Validate checks the label name and hex color.
func (l *Label) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("label name cannot be empty")
	}
	if !colorPattern.MatchString(l.Color) {
		return fmt.Errorf("invalid color %q: expected #rrggbb", l.Color)
	}
	return nil
}

// Validate checks the comment has content and a task.
func (c *Comment) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("comment content cannot be empty")
	}
	if !isValidUUID(c.TaskID) {
		return fmt.Errorf("invalid task ID: not a valid UUID")
	}
	return nil
}

// Validate checks the Role is a valid enum value.
func (r Role) Validate() error {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return nil
	default:
		return fmt.Errorf("unknown role: %q", r)
	}
}

// Validate checks the ProjectStatus is a valid enum value.
func (s ProjectStatus) Validate() error {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectArchived:
		return nil
	default:
		return fmt.Errorf("unknown project status: %q", s)
	}
}

// Validate checks the SprintStatus is a valid enum value.
func (s SprintStatus) Validate() error {
	switch s {
	case SprintPlanned, SprintActive, SprintCompleted:
		return nil
	default:
		return fmt.Errorf("unknown sprint status: %q", s)
	}
}

// Validate checks the TaskStatus is a valid enum value.
func (s TaskStatus) Validate() error {
	switch s {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone, StatusBlocked:
		return nil
	default:
		return fmt.Errorf("unknown task status: %q", s)
	}
}

// Validate checks the Priority is a valid enum value.
func (p Priority) Validate() error {
	if p.Rank() < 0 {
		return fmt.Errorf("unknown priority: %q", p)
	}
	return nil
}

// Rank orders priorities from LOW (0) to URGENT (3). Unknown values rank -1.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	default:
		return -1
	}
}

// TaskStatuses lists every task status in board order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{StatusTodo, StatusInProgress, StatusInReview, StatusDone, StatusBlocked}
}

// Priorities lists every priority from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

// IsValidID reports whether s is a well-formed UUID.
func IsValidID(s string) bool {
	return isValidUUID(s)
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
