// Package calendar lays tasks and sprints out on a month grid and a gantt timeline.
package calendar

import (
	"time"

	"github.com/dyluth/projecthub/pkg/hub"
)

// GridDays is the number of cells in a month view: six weeks.
const GridDays = 42

// DayLayout keys buckets and cells.
const DayLayout = "2006-01-02"

// MonthGrid returns the 42 days shown for a month, starting on the Sunday on
// or before the 1st. Each day is midnight in loc.
func MonthGrid(year int, month time.Month, loc *time.Location) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	days := make([]time.Time, GridDays)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// Slot holds what falls on one day.
type Slot struct {
	Tasks   []hub.Task   `json:"tasks"`
	Sprints []hub.Sprint `json:"sprints"`
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Bucket groups tasks by due day and spreads each sprint over every day from
// its start to its end inclusive. Tasks without a due date are skipped.
func Bucket(tasks []hub.Task, sprints []hub.Sprint, loc *time.Location) map[string]*Slot {
	buckets := make(map[string]*Slot)
	slot := func(d time.Time) *Slot {
		key := d.Format(DayLayout)
		s, ok := buckets[key]
		if !ok {
			s = &Slot{Tasks: []hub.Task{}, Sprints: []hub.Sprint{}}
			buckets[key] = s
		}
		return s
	}

	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		s := slot(dayOf(*t.DueDate, loc))
		s.Tasks = append(s.Tasks, t)
	}

	for _, sp := range sprints {
		end := dayOf(sp.EndDate, loc)
		for d := dayOf(sp.StartDate, loc); !d.After(end); d = d.AddDate(0, 0, 1) {
			s := slot(d)
			s.Sprints = append(s.Sprints, sp)
		}
	}
	return buckets
}

// Cell is one day of a month view.
type Cell struct {
	Date    string       `json:"date"`
	InMonth bool         `json:"inMonth"`
	Today   bool         `json:"today"`
	Weekend bool         `json:"weekend"`
	Tasks   []hub.Task   `json:"tasks"`
	Sprints []hub.Sprint `json:"sprints"`
}

// MonthView is the calendar page payload.
type MonthView struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
	Prev  string `json:"prev"`
	Next  string `json:"next"`
	Cells []Cell `json:"cells"`
}

// Month builds the 42-cell view of a month with today's cell flagged.
func Month(year int, month time.Month, loc *time.Location, now time.Time, tasks []hub.Task, sprints []hub.Sprint) MonthView {
	buckets := Bucket(tasks, sprints, loc)
	today := dayOf(now, loc).Format(DayLayout)
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)

	view := MonthView{
		Year:  first.Year(),
		Month: int(first.Month()),
		Label: first.Format("January 2006"),
		Prev:  first.AddDate(0, -1, 0).Format("2006-01"),
		Next:  first.AddDate(0, 1, 0).Format("2006-01"),
		Cells: make([]Cell, 0, GridDays),
	}
	for _, d := range MonthGrid(year, month, loc) {
		key := d.Format(DayLayout)
		c := Cell{
			Date:    key,
			InMonth: d.Month() == first.Month(),
			Today:   key == today,
			Weekend: d.Weekday() == time.Saturday || d.Weekday() == time.Sunday,
			Tasks:   []hub.Task{},
			Sprints: []hub.Sprint{},
		}
		if s, ok := buckets[key]; ok {
			c.Tasks = s.Tasks
			c.Sprints = s.Sprints
		}
		view.Cells = append(view.Cells, c)
	}
	return view
}

// Range returns the first and last instants covered by a month grid, for
// fetching only the records that can appear on it.
func Range(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	days := MonthGrid(year, month, loc)
	return days[0], days[len(days)-1].AddDate(0, 0, 1).Add(-time.Nanosecond)
}
