package models

import (
	"time"
)

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time // date only, nil if not set
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Task is overdue if due date passed (by calendar day) and it is not done yet
func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskStatusDone {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return t.DueDate.Before(today)
}

type TaskFilter struct {
	Status   string
	Priority string
}

type TaskStats struct {
	Total      int
	ByStatus   map[string]int
	ByPriority map[string]int
	Overdue    int
}
