package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/tasktracker/internal/apperrors"
	"github.com/nkiryanov/tasktracker/internal/models"
)

type TaskRepo struct {
	DB DBTX
}

const taskColumns = `id, user_id, title, description, status, priority, due_date, created_at, updated_at`

const createTask = `-- name: CreateTask
INSERT INTO tasks (user_id, title, description, status, priority, due_date)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + taskColumns

func (r *TaskRepo) Create(ctx context.Context, t models.Task) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, createTask, t.UserID, t.Title, t.Description, t.Status, t.Priority, t.DueDate)
	task, err := pgx.CollectOneRow(rows, rowToTask)
	if err != nil {
		return task, fmt.Errorf("db error: %w", err)
	}
	return task, nil
}

const getTask = `-- name: GetTask
SELECT ` + taskColumns + ` FROM tasks
WHERE id = $1 AND user_id = $2
`

func (r *TaskRepo) Get(ctx context.Context, id int64, userID int64) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, getTask, id, userID)
	return collectTask(rows)
}

// Empty filter value matches any
const listTasks = `-- name: ListTasks
SELECT ` + taskColumns + ` FROM tasks
WHERE user_id = $1
	AND ($2::text = '' OR status = $2::text)
	AND ($3::text = '' OR priority = $3::text)
ORDER BY created_at DESC, id DESC
`

func (r *TaskRepo) List(ctx context.Context, userID int64, filter models.TaskFilter) ([]models.Task, error) {
	rows, _ := r.DB.Query(ctx, listTasks, userID, filter.Status, filter.Priority)
	tasks, err := pgx.CollectRows(rows, rowToTask)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tasks, nil
}

const updateTask = `-- name: UpdateTask
UPDATE tasks
SET title = $3, description = $4, status = $5, priority = $6, due_date = $7, updated_at = NOW()
WHERE id = $1 AND user_id = $2
RETURNING ` + taskColumns

func (r *TaskRepo) Update(ctx context.Context, t models.Task) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, updateTask, t.ID, t.UserID, t.Title, t.Description, t.Status, t.Priority, t.DueDate)
	return collectTask(rows)
}

const deleteTask = `-- name: DeleteTask
DELETE FROM tasks
WHERE id = $1 AND user_id = $2
`

func (r *TaskRepo) Delete(ctx context.Context, id int64, userID int64) error {
	tag, err := r.DB.Exec(ctx, deleteTask, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTaskNotFound
	}
	return nil
}

const taskStats = `-- name: TaskStats
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE status = 'todo'),
	COUNT(*) FILTER (WHERE status = 'in_progress'),
	COUNT(*) FILTER (WHERE status = 'done'),
	COUNT(*) FILTER (WHERE priority = 'low'),
	COUNT(*) FILTER (WHERE priority = 'medium'),
	COUNT(*) FILTER (WHERE priority = 'high'),
	COUNT(*) FILTER (WHERE due_date < $2::date AND status <> 'done')
FROM tasks
WHERE user_id = $1
`

// Stats aggregates user's tasks; today is the date tasks become overdue after
func (r *TaskRepo) Stats(ctx context.Context, userID int64, today time.Time) (models.TaskStats, error) {
	var (
		s                      models.TaskStats
		todo, inProgress, done int
		low, medium, high      int
	)

	err := r.DB.QueryRow(ctx, taskStats, userID, today).Scan(
		&s.Total, &todo, &inProgress, &done, &low, &medium, &high, &s.Overdue,
	)
	if err != nil {
		return s, fmt.Errorf("db error: %w", err)
	}

	s.ByStatus = map[string]int{
		models.TaskStatusTodo:       todo,
		models.TaskStatusInProgress: inProgress,
		models.TaskStatusDone:       done,
	}
	s.ByPriority = map[string]int{
		models.TaskPriorityLow:    low,
		models.TaskPriorityMedium: medium,
		models.TaskPriorityHigh:   high,
	}

	return s, nil
}

func collectTask(rows pgx.Rows) (models.Task, error) {
	task, err := pgx.CollectOneRow(rows, rowToTask)

	switch {
	case err == nil:
		return task, nil
	case errors.Is(err, pgx.ErrNoRows):
		return task, apperrors.ErrTaskNotFound
	default:
		return task, fmt.Errorf("db error: %w", err)
	}
}

func rowToTask(row pgx.CollectableRow) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
