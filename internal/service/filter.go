package service

import (
	"strings"
	"time"

	"todoflow/internal/model"
)

// FilterAll is the wildcard value for the status and priority filters.
const FilterAll = "all"

// Views over the filtered task set.
const (
	ViewAll    = "all"    // every visible task
	ViewMine   = "my"     // tasks with no shares
	ViewShared = "shared" // tasks with at least one share
	ViewToday  = "today"  // tasks due on the current calendar date
)

// Filter holds the dashboard's filter state: two categorical filters, a
// free-text search, and a view. All predicates are ANDed.
type Filter struct {
	Status   string
	Priority string
	Search   string
	View     string
}

// Normalize fills empty fields with their wildcard defaults.
func (f Filter) Normalize() Filter {
	if f.Status == "" {
		f.Status = FilterAll
	}
	if f.Priority == "" {
		f.Priority = FilterAll
	}
	if f.View == "" {
		f.View = ViewAll
	}
	return f
}

// Matches reports whether a task passes the status, priority, and search
// predicates.
func (f Filter) Matches(t *model.Task) bool {
	if f.Status != FilterAll && t.Status != f.Status {
		return false
	}
	if f.Priority != FilterAll && t.Priority != f.Priority {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

// inView reports whether a task belongs to the filter's view. Views
// re-filter the already-filtered set; they never widen it.
func (f Filter) inView(t *model.Task, now time.Time) bool {
	switch f.View {
	case ViewMine:
		return len(t.Shares) == 0
	case ViewShared:
		return len(t.Shares) > 0
	case ViewToday:
		return t.DueDate != nil && t.DueDate.Format(model.DueDateFormat) == now.Format(model.DueDateFormat)
	default:
		return true
	}
}

// ApplyFilter returns the tasks passing every predicate of the normalized
// filter, preserving order.
func ApplyFilter(tasks []model.Task, f Filter, now time.Time) []model.Task {
	f = f.Normalize()

	filtered := make([]model.Task, 0, len(tasks))
	for i := range tasks {
		if f.Matches(&tasks[i]) && f.inView(&tasks[i], now) {
			filtered = append(filtered, tasks[i])
		}
	}
	return filtered
}

// StatusCounts holds per-status totals for the dashboard header.
type StatusCounts struct {
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// CountByStatus tallies tasks per status.
func CountByStatus(tasks []model.Task) StatusCounts {
	var counts StatusCounts
	for i := range tasks {
		switch tasks[i].Status {
		case model.StatusTodo:
			counts.Todo++
		case model.StatusInProgress:
			counts.InProgress++
		case model.StatusCompleted:
			counts.Completed++
		}
	}
	return counts
}
