// Package reports assembles the dashboard and reports pages. Each view fans its
// queries out over an errgroup and fails as a whole when any of them fails.
package reports

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
)

// RecentTaskLimit is how many assigned tasks the dashboard lists.
const RecentTaskLimit = 10

// VelocitySprints is how many sprints the velocity chart covers.
const VelocitySprints = 10

// Source is the slice of the store the reports read from.
type Source interface {
	CountProjectsForUser(ctx context.Context, userID string) (int, error)
	ListOrganizationsForUser(ctx context.Context, userID string) ([]hub.Organization, error)
	ListTasks(ctx context.Context, q store.TaskQuery) ([]hub.Task, error)
	AssignedTaskStats(ctx context.Context, userID string) (store.TaskStats, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	ReportTotals(ctx context.Context, userID string) (store.Totals, error)
	StatusCounts(ctx context.Context, userID string) (map[hub.TaskStatus]int, error)
	PriorityCounts(ctx context.Context, userID string) (map[hub.Priority]int, error)
	SprintVelocities(ctx context.Context, userID string, limit int) ([]store.SprintVelocity, error)
	ProjectProgressForUser(ctx context.Context, userID string) ([]store.ProjectProgress, error)
}

// Dashboard is the landing page summary of a user.
type Dashboard struct {
	ProjectCount        int                `json:"projectCount"`
	Organizations       []hub.Organization `json:"organizations"`
	RecentTasks         []hub.Task         `json:"recentTasks"`
	Stats               store.TaskStats    `json:"stats"`
	UnreadNotifications int                `json:"unreadNotifications"`
}

// BuildDashboard loads the dashboard of userID.
func BuildDashboard(ctx context.Context, src Source, userID string) (*Dashboard, error) {
	d := &Dashboard{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.ProjectCount, err = src.CountProjectsForUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.Organizations, err = src.ListOrganizationsForUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.RecentTasks, err = src.ListTasks(gctx, store.TaskQuery{
			UserID:     userID,
			AssigneeID: userID,
			Order:      store.OrderRecent,
			Limit:      RecentTaskLimit,
		})
		return err
	})
	g.Go(func() (err error) {
		d.Stats, err = src.AssignedTaskStats(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.UnreadNotifications, err = src.CountUnread(gctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return d, nil
}

// Distribution is one bar of a status or priority chart.
type Distribution struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Progress is one project of the progress chart.
type Progress struct {
	store.ProjectProgress
	Percent int `json:"percent"`
}

// Report is the reports page.
type Report struct {
	TotalProjects  int                    `json:"totalProjects"`
	TotalTasks     int                    `json:"totalTasks"`
	CompletedTasks int                    `json:"completedTasks"`
	ActiveSprints  int                    `json:"activeSprints"`
	CompletionRate int                    `json:"completionRate"`
	ByStatus       []Distribution         `json:"byStatus"`
	ByPriority     []Distribution         `json:"byPriority"`
	Velocity       []store.SprintVelocity `json:"velocity"`
	Projects       []Progress             `json:"projects"`
}

// BuildReport loads the reports page of userID. Every figure is scoped to the
// organizations the user belongs to.
func BuildReport(ctx context.Context, src Source, userID string) (*Report, error) {
	var (
		totals     store.Totals
		statuses   map[hub.TaskStatus]int
		priorities map[hub.Priority]int
		velocity   []store.SprintVelocity
		progress   []store.ProjectProgress
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = src.ReportTotals(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		statuses, err = src.StatusCounts(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		priorities, err = src.PriorityCounts(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		velocity, err = src.SprintVelocities(gctx, userID, VelocitySprints)
		return err
	})
	g.Go(func() (err error) {
		progress, err = src.ProjectProgressForUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	r := &Report{
		TotalProjects:  totals.Projects,
		TotalTasks:     totals.Tasks,
		CompletedTasks: totals.Completed,
		ActiveSprints:  totals.ActiveSprints,
		CompletionRate: Percent(totals.Completed, totals.Tasks),
		ByStatus:       make([]Distribution, 0, len(hub.TaskStatuses())),
		ByPriority:     make([]Distribution, 0, len(hub.Priorities())),
		Velocity:       velocity,
		Projects:       make([]Progress, 0, len(progress)),
	}
	for _, st := range hub.TaskStatuses() {
		r.ByStatus = append(r.ByStatus, Distribution{Name: string(st), Value: statuses[st]})
	}
	for _, p := range hub.Priorities() {
		r.ByPriority = append(r.ByPriority, Distribution{Name: string(p), Value: priorities[p]})
	}
	for _, p := range progress {
		r.Projects = append(r.Projects, Progress{ProjectProgress: p, Percent: Percent(p.Done, p.Total)})
	}
	return r, nil
}

// Percent is part/total as a rounded percentage, 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
