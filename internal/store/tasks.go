package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

const taskColumns = `t.id, t.title, t.description, t.status, t.priority, t.story_points, t.due_date,
	t.project_id, t.sprint_id, t.assignee_id, t.created_by_id, t.parent_id, t.position,
	t.created_at, t.updated_at, u.name, u.email, u.image, p.name, p.key`

const taskFrom = `FROM tasks t
	JOIN projects p ON p.id = t.project_id
	LEFT JOIN users u ON u.id = t.assignee_id`

// TaskOrder selects the ORDER BY of a task listing.
type TaskOrder string

const (
	OrderRecent   TaskOrder = "recent"
	OrderPosition TaskOrder = "position"
	OrderDue      TaskOrder = "due"
)

// TaskQuery filters a task listing. Empty fields do not filter.
// UserID scopes the listing to the user's organizations; an empty UserID is
// unscoped and reserved for operator tooling.
type TaskQuery struct {
	UserID       string
	ProjectID    string
	SprintID     string
	AssigneeID   string
	Statuses     []hub.TaskStatus
	Priorities   []hub.Priority
	Search       string
	DueFrom      time.Time
	DueTo        time.Time
	UpdatedSince time.Time
	UpdatedUntil time.Time
	Order        TaskOrder
	Limit        int
}

// TaskPatch holds the fields of a partial task update. Only fields that are
// present end up in the UPDATE statement.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *hub.TaskStatus
	Priority    *hub.Priority
	Position    *int
	StoryPoints Optional[int]
	DueDate     Optional[time.Time]
	SprintID    Optional[string]
	AssigneeID  Optional[string]
	ParentID    Optional[string]
}

// Empty reports whether the patch carries no fields.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.Position == nil && !p.StoryPoints.Set && !p.DueDate.Set && !p.SprintID.Set &&
		!p.AssigneeID.Set && !p.ParentID.Set
}

func scanTask(row interface{ Scan(...any) error }) (*hub.Task, error) {
	var (
		t                            hub.Task
		points, due                  sql.NullInt64
		sprintID, assigneeID, parent sql.NullString
		aName, aEmail, aImage        sql.NullString
		createdAt, updatedAt         int64
		projectName, projectKey      string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &points, &due,
		&t.ProjectID, &sprintID, &assigneeID, &t.CreatedByID, &parent, &t.Position,
		&createdAt, &updatedAt, &aName, &aEmail, &aImage, &projectName, &projectKey)
	if err != nil {
		return nil, err
	}
	t.StoryPoints = intFromNull(points)
	t.DueDate = timeFromNull(due)
	t.SprintID = stringFromNull(sprintID)
	t.AssigneeID = stringFromNull(assigneeID)
	t.ParentID = stringFromNull(parent)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	t.Labels = []hub.Label{}
	if t.AssigneeID != nil {
		t.Assignee = &hub.UserRef{ID: *t.AssigneeID, Name: aName.String, Email: aEmail.String, Image: aImage.String}
	}
	t.Project = &hub.ProjectRef{ID: t.ProjectID, Name: projectName, Key: projectKey}
	return &t, nil
}

// nextPosition returns one past the highest position in the project's status column.
func nextPosition(ctx context.Context, db execer, projectID string, status hub.TaskStatus) (int, error) {
	var top sql.NullInt64
	err := db.QueryRowContext(ctx,
		`SELECT MAX(position) FROM tasks WHERE project_id = ? AND status = ?`, projectID, status).Scan(&top)
	if err != nil {
		return 0, fmt.Errorf("failed to compute task position: %w", err)
	}
	if !top.Valid {
		return 0, nil
	}
	return int(top.Int64) + 1, nil
}

// CreateTask inserts a task at the bottom of its status column.
func (s *Store) CreateTask(ctx context.Context, t *hub.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Title = strings.TrimSpace(t.Title)
	if t.Status == "" {
		t.Status = hub.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = hub.PriorityMedium
	}
	if err := t.Validate(); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid task")
	}

	now := s.nowMillis()
	t.CreatedAt = fromMillis(now)
	t.UpdatedAt = t.CreatedAt
	if t.Labels == nil {
		t.Labels = []hub.Label{}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		pos, err := nextPosition(ctx, tx, t.ProjectID, t.Status)
		if err != nil {
			return err
		}
		t.Position = pos

		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (id, title, description, status, priority, story_points, due_date, project_id,
				sprint_id, assignee_id, created_by_id, parent_id, position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, t.Description, t.Status, t.Priority, nullInt(t.StoryPoints), nullMillis(t.DueDate),
			t.ProjectID, nullString(t.SprintID), nullString(t.AssigneeID), t.CreatedByID, nullString(t.ParentID),
			t.Position, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
		return nil
	})
}

// GetTask loads a task with its labels, without access checks.
func (s *Store) GetTask(ctx context.Context, id string) (*hub.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` `+taskFrom+` WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFound(err, "task")
	}
	if err := s.loadLabels(ctx, []*hub.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTaskForUser loads a task whose project is in one of the user's organizations.
func (s *Store) GetTaskForUser(ctx context.Context, id, userID string) (*hub.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` `+taskFrom+` WHERE t.id = ? AND p.organization_id IN (`+accessibleOrgs+`)`,
		id, userID)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFound(err, "task")
	}
	if err := s.loadLabels(ctx, []*hub.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTasks returns the tasks matching q, with labels loaded.
func (s *Store) ListTasks(ctx context.Context, q TaskQuery) ([]hub.Task, error) {
	var (
		where []string
		args  []any
	)
	if q.UserID != "" {
		where = append(where, `p.organization_id IN (`+accessibleOrgs+`)`)
		args = append(args, q.UserID)
	}
	if q.ProjectID != "" {
		where = append(where, "t.project_id = ?")
		args = append(args, q.ProjectID)
	}
	if q.SprintID != "" {
		where = append(where, "t.sprint_id = ?")
		args = append(args, q.SprintID)
	}
	if q.AssigneeID != "" {
		where = append(where, "t.assignee_id = ?")
		args = append(args, q.AssigneeID)
	}
	if len(q.Statuses) > 0 {
		where = append(where, "t.status IN ("+placeholders(len(q.Statuses))+")")
		for _, st := range q.Statuses {
			args = append(args, st)
		}
	}
	if len(q.Priorities) > 0 {
		where = append(where, "t.priority IN ("+placeholders(len(q.Priorities))+")")
		for _, pr := range q.Priorities {
			args = append(args, pr)
		}
	}
	if q.Search != "" {
		where = append(where, `(LOWER(t.title) LIKE ? ESCAPE '\' OR LOWER(t.description) LIKE ? ESCAPE '\')`)
		pattern := likePattern(q.Search)
		args = append(args, pattern, pattern)
	}
	if !q.DueFrom.IsZero() {
		where = append(where, "t.due_date >= ?")
		args = append(args, toMillis(q.DueFrom))
	}
	if !q.DueTo.IsZero() {
		where = append(where, "t.due_date <= ?")
		args = append(args, toMillis(q.DueTo))
	}
	if !q.UpdatedSince.IsZero() {
		where = append(where, "t.updated_at >= ?")
		args = append(args, toMillis(q.UpdatedSince))
	}
	if !q.UpdatedUntil.IsZero() {
		where = append(where, "t.updated_at <= ?")
		args = append(args, toMillis(q.UpdatedUntil))
	}

	query := `SELECT ` + taskColumns + ` ` + taskFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch q.Order {
	case OrderPosition:
		query += " ORDER BY t.status, t.position, t.created_at"
	case OrderDue:
		query += " ORDER BY t.due_date IS NULL, t.due_date, t.title"
	default:
		query += " ORDER BY t.updated_at DESC, t.id"
	}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	return s.queryTasks(ctx, query, args...)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]hub.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var tasks []hub.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	// Release the single connection before the label query.
	rows.Close()

	ptrs := make([]*hub.Task, len(tasks))
	for i := range tasks {
		ptrs[i] = &tasks[i]
	}
	if err := s.loadLabels(ctx, ptrs); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []hub.Task{}
	}
	return tasks, nil
}

// loadLabels fills the Labels slice of each task with one query.
func (s *Store) loadLabels(ctx context.Context, tasks []*hub.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[string]*hub.Task, len(tasks))
	args := make([]any, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		args = append(args, t.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tl.task_id, l.id, l.name, l.color, l.project_id
		FROM task_labels tl JOIN labels l ON l.id = tl.label_id
		WHERE tl.task_id IN (`+placeholders(len(args))+`)
		ORDER BY l.name`, args...)
	if err != nil {
		return fmt.Errorf("failed to load task labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID    string
			l         hub.Label
			projectID sql.NullString
		)
		if err := rows.Scan(&taskID, &l.ID, &l.Name, &l.Color, &projectID); err != nil {
			return fmt.Errorf("failed to scan task label: %w", err)
		}
		l.ProjectID = stringFromNull(projectID)
		if t, ok := byID[taskID]; ok {
			t.Labels = append(t.Labels, l)
		}
	}
	return rows.Err()
}

// UpdateTask builds an UPDATE from the present fields only. When the status
// changes and no position is given, the task moves to the bottom of its new column.
func (s *Store) UpdateTask(ctx context.Context, id string, p TaskPatch) (*hub.Task, error) {
	if p.Empty() {
		return s.GetTask(ctx, id)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			projectID string
			current   hub.TaskStatus
		)
		err := tx.QueryRowContext(ctx, `SELECT project_id, status FROM tasks WHERE id = ?`, id).Scan(&projectID, &current)
		if err != nil {
			return notFound(err, "task")
		}

		var (
			sets []string
			args []any
		)
		set := func(column string, value any) {
			sets = append(sets, column+" = ?")
			args = append(args, value)
		}

		if p.Title != nil {
			title := strings.TrimSpace(*p.Title)
			if title == "" {
				return apperr.Validation("task title cannot be empty")
			}
			set("title", title)
		}
		if p.Description != nil {
			set("description", *p.Description)
		}
		if p.Status != nil {
			if err := p.Status.Validate(); err != nil {
				return apperr.Wrap(apperr.KindValidation, err, "invalid task status")
			}
			set("status", *p.Status)
			if p.Position == nil && *p.Status != current {
				pos, err := nextPosition(ctx, tx, projectID, *p.Status)
				if err != nil {
					return err
				}
				set("position", pos)
			}
		}
		if p.Position != nil {
			if *p.Position < 0 {
				return apperr.Validation("position must be >= 0")
			}
			set("position", *p.Position)
		}
		if p.Priority != nil {
			if err := p.Priority.Validate(); err != nil {
				return apperr.Wrap(apperr.KindValidation, err, "invalid task priority")
			}
			set("priority", *p.Priority)
		}
		if p.StoryPoints.Set {
			if p.StoryPoints.Value != nil && *p.StoryPoints.Value < 0 {
				return apperr.Validation("story points must be >= 0")
			}
			set("story_points", nullInt(p.StoryPoints.Value))
		}
		if p.DueDate.Set {
			set("due_date", nullMillis(p.DueDate.Value))
		}
		if p.SprintID.Set {
			set("sprint_id", nullString(p.SprintID.Value))
		}
		if p.AssigneeID.Set {
			set("assignee_id", nullString(p.AssigneeID.Value))
		}
		if p.ParentID.Set {
			if p.ParentID.Value != nil && *p.ParentID.Value == id {
				return apperr.Validation("a task cannot be its own parent")
			}
			set("parent_id", nullString(p.ParentID.Value))
		}
		set("updated_at", s.nowMillis())
		args = append(args, id)

		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task; comments, attachments, activity and label links cascade.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("task not found")
	}
	return nil
}

// ScanTaskIDs returns every task ID starting with prefix.
func (s *Store) ScanTaskIDs(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tasks WHERE id LIKE ? ESCAPE '\' ORDER BY id`,
		strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(prefix))+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to scan task IDs: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan task ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AttachLabel links a label to a task. Attaching twice is a Conflict.
func (s *Store) AttachLabel(ctx context.Context, taskID, labelID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO task_labels (task_id, label_id) VALUES (?, ?)`, taskID, labelID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("label already attached to task")
		}
		return fmt.Errorf("failed to attach label: %w", err)
	}
	return nil
}

// DetachLabel unlinks a label from a task.
func (s *Store) DetachLabel(ctx context.Context, taskID, labelID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_labels WHERE task_id = ? AND label_id = ?`, taskID, labelID)
	if err != nil {
		return fmt.Errorf("failed to detach label: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("label not attached to task")
	}
	return nil
}

// TaskStats summarizes the tasks assigned to a user.
type TaskStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Todo       int `json:"todo"`
}

// AssignedTaskStats counts the user's assigned tasks by status, within the
// organizations the user still belongs to.
func (s *Store) AssignedTaskStats(ctx context.Context, userID string) (TaskStats, error) {
	var st TaskStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN t.status = 'DONE' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN t.status = 'IN_PROGRESS' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN t.status = 'TODO' THEN 1 ELSE 0 END), 0)
		`+userTasks+` AND t.assignee_id = ?`, userID, userID).Scan(&st.Total, &st.Completed, &st.InProgress, &st.Todo)
	if err != nil {
		return TaskStats{}, fmt.Errorf("failed to compute task stats: %w", err)
	}
	return st, nil
}
