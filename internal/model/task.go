package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task statuses. Rows carrying any other value are rejected at the boundary.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title       string     `gorm:"not null"`
	Description string
	Status      string     `gorm:"not null;default:todo;check:status IN ('todo', 'in-progress', 'completed')"`
	Priority    string     `gorm:"not null;default:medium;check:priority IN ('low', 'medium', 'high')"`
	DueDate     *time.Time `gorm:"type:date"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`

	Owner  User        `gorm:"foreignKey:UserID"`
	Shares []TaskShare `gorm:"foreignKey:TaskID"`
}

// DueDateFormat is the wire format for due dates: a calendar date with no
// time component.
const DueDateFormat = "2006-01-02"

// ParseStatus validates a status against the closed set. An empty value
// falls back to the default.
func ParseStatus(s string) (string, error) {
	switch s {
	case "":
		return StatusTodo, nil
	case StatusTodo, StatusInProgress, StatusCompleted:
		return s, nil
	}
	return "", fmt.Errorf("invalid task status %q", s)
}

// ParsePriority validates a priority against the closed set. An empty value
// falls back to the default.
func ParsePriority(p string) (string, error) {
	switch p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("invalid task priority %q", p)
}

// ParseDueDate parses a calendar date string. An empty string means no due
// date.
func ParseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DueDateFormat, s)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: expected YYYY-MM-DD", s)
	}
	return &t, nil
}

// SharedEmails returns the grantee emails from the preloaded shares, in
// grant order.
func (t *Task) SharedEmails() []string {
	emails := make([]string, 0, len(t.Shares))
	for _, share := range t.Shares {
		emails = append(emails, share.SharedWithEmail)
	}
	return emails
}

// Overdue reports whether the task's due date is strictly before now and
// the task is not completed. Tasks without a due date are never overdue.
func (t *Task) Overdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	return t.DueDate.Before(now)
}
