package calendar

import (
	"math"
	"time"

	"github.com/dyluth/projecthub/pkg/hub"
)

const (
	day = 24 * time.Hour

	// MinTimelineDays is the narrowest chart drawn.
	MinTimelineDays = 30
)

// Bar is one row of the gantt chart. Left and Width are percentages of the chart.
type Bar struct {
	ID     string    `json:"id"`
	Label  string    `json:"label"`
	Kind   string    `json:"kind"` // "sprint" or "task"
	Status string    `json:"status"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Left   float64   `json:"left"`
	Width  float64   `json:"width"`
}

// MonthHeader labels a month band across the chart top.
type MonthHeader struct {
	Label string  `json:"label"`
	Width float64 `json:"width"`
}

// Gantt is a project's timeline.
type Gantt struct {
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	TotalDays int           `json:"totalDays"`
	Months    []MonthHeader `json:"months"`
	Bars      []Bar         `json:"bars"`
	Empty     bool          `json:"empty"`
}

// Timeline spans the chart from the earliest to the latest sprint bound or task
// due date. Sprints draw from start to end; tasks with a due date draw from
// creation to due. With nothing to draw the chart covers today plus 30 days.
func Timeline(tasks []hub.Task, sprints []hub.Sprint, now time.Time) Gantt {
	var dates []time.Time
	for _, sp := range sprints {
		dates = append(dates, sp.StartDate, sp.EndDate)
	}
	for _, t := range tasks {
		if t.DueDate != nil {
			dates = append(dates, *t.DueDate)
		}
	}

	if len(dates) == 0 {
		return Gantt{
			Start:     now,
			End:       now.Add(MinTimelineDays * day),
			TotalDays: MinTimelineDays,
			Months:    []MonthHeader{},
			Bars:      []Bar{},
			Empty:     true,
		}
	}

	start, end := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}

	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	g := Gantt{
		Start:     start,
		End:       end,
		TotalDays: max(days, MinTimelineDays),
		Bars:      make([]Bar, 0, len(sprints)+len(tasks)),
	}
	g.Months = monthHeaders(start, end, g.TotalDays)

	// a chart whose bounds coincide would divide by zero
	span := end.Sub(start)
	if span <= 0 {
		span = time.Duration(g.TotalDays) * day
	}

	for _, sp := range sprints {
		left, width := position(start, span, sp.StartDate, sp.EndDate)
		g.Bars = append(g.Bars, Bar{
			ID: sp.ID, Label: sp.Name, Kind: "sprint", Status: string(sp.Status),
			Start: sp.StartDate, End: sp.EndDate, Left: left, Width: width,
		})
	}
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		left, width := position(start, span, t.CreatedAt, *t.DueDate)
		g.Bars = append(g.Bars, Bar{
			ID: t.ID, Label: t.Title, Kind: "task", Status: string(t.Status),
			Start: t.CreatedAt, End: *t.DueDate, Left: left, Width: width,
		})
	}
	return g
}

// position converts an interval into chart percentages. Left is clamped at 0
// and width at the room remaining right of the unclamped left edge.
func position(chartStart time.Time, span time.Duration, from, to time.Time) (float64, float64) {
	left := float64(from.Sub(chartStart)) / float64(span) * 100
	width := float64(to.Sub(from)) / float64(span) * 100
	return math.Max(0, left), math.Min(100-left, width)
}

// monthHeaders walks calendar months from start to end; each header is as wide
// as its visible days relative to totalDays.
func monthHeaders(start, end time.Time, totalDays int) []MonthHeader {
	headers := []MonthHeader{}
	cur := start
	for !cur.After(end) {
		monthEnd := time.Date(cur.Year(), cur.Month()+1, 0, 0, 0, 0, 0, cur.Location())
		visible := math.Min(
			float64(monthEnd.Day()-cur.Day()+1),
			math.Ceil(end.Sub(cur).Hours()/24),
		)
		headers = append(headers, MonthHeader{
			Label: cur.Format("Jan 2006"),
			Width: visible / float64(totalDays) * 100,
		})
		cur = time.Date(cur.Year(), cur.Month()+1, 1, 0, 0, 0, 0, cur.Location())
	}
	return headers
}
