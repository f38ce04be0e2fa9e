package task

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/nkiryanov/tasktracker/internal/apperrors"
	"github.com/nkiryanov/tasktracker/internal/models"
	"github.com/nkiryanov/tasktracker/internal/repository"
)

var (
	statuses   = []string{models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusDone}
	priorities = []string{models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh}
)

// Patch holds fields to change, nil means keep as is
type Patch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string

	// Set DueDate only if SetDueDate is true, so due date can be cleared with nil
	SetDueDate bool
	DueDate    *time.Time
}

type TaskService struct {
	taskRepo repository.TaskRepo

	// Clock to decide what is overdue
	now func() time.Time
}

func NewService(taskRepo repository.TaskRepo) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		now:      time.Now,
	}
}

// Create task owned by the user. Empty status and priority get defaults
func (s *TaskService) Create(ctx context.Context, userID int64, t models.Task) (models.Task, error) {
	t.UserID = userID

	t, err := clean(withDefaults(t))
	if err != nil {
		return t, err
	}

	return s.taskRepo.Create(ctx, t)
}

func (s *TaskService) Get(ctx context.Context, userID int64, id int64) (models.Task, error) {
	return s.taskRepo.Get(ctx, id, userID)
}

func (s *TaskService) List(ctx context.Context, userID int64, filter models.TaskFilter) ([]models.Task, error) {
	if filter.Status != "" && !slices.Contains(statuses, filter.Status) {
		return nil, apperrors.ErrTaskInvalidStatus
	}
	if filter.Priority != "" && !slices.Contains(priorities, filter.Priority) {
		return nil, apperrors.ErrTaskInvalidPriority
	}

	return s.taskRepo.List(ctx, userID, filter)
}

// Update replaces all editable fields, empty status and priority are reset to defaults
func (s *TaskService) Update(ctx context.Context, userID int64, id int64, t models.Task) (models.Task, error) {
	t.ID = id
	t.UserID = userID

	t, err := clean(withDefaults(t))
	if err != nil {
		return t, err
	}

	return s.taskRepo.Update(ctx, t)
}

// Patch changes only provided fields
func (s *TaskService) Patch(ctx context.Context, userID int64, id int64, p Patch) (models.Task, error) {
	t, err := s.taskRepo.Get(ctx, id, userID)
	if err != nil {
		return t, err
	}

	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.SetDueDate {
		t.DueDate = p.DueDate
	}

	t, err = clean(t)
	if err != nil {
		return t, err
	}

	return s.taskRepo.Update(ctx, t)
}

func (s *TaskService) Delete(ctx context.Context, userID int64, id int64) error {
	return s.taskRepo.Delete(ctx, id, userID)
}

// Complete marks task done
func (s *TaskService) Complete(ctx context.Context, userID int64, id int64) (models.Task, error) {
	status := models.TaskStatusDone
	return s.Patch(ctx, userID, id, Patch{Status: &status})
}

func (s *TaskService) Stats(ctx context.Context, userID int64) (models.TaskStats, error) {
	return s.taskRepo.Stats(ctx, userID, s.Today())
}

// Today is the current date in UTC
func (s *TaskService) Today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func withDefaults(t models.Task) models.Task {
	if t.Status == "" {
		t.Status = models.TaskStatusTodo
	}
	if t.Priority == "" {
		t.Priority = models.TaskPriorityMedium
	}
	return t
}

func clean(t models.Task) (models.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return t, apperrors.ErrTaskTitleBlank
	}
	if !slices.Contains(statuses, t.Status) {
		return t, apperrors.ErrTaskInvalidStatus
	}
	if !slices.Contains(priorities, t.Priority) {
		return t, apperrors.ErrTaskInvalidPriority
	}
	return t, nil
}
