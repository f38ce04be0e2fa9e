package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/nkiryanov/tasktracker/internal/apperrors"
	"github.com/nkiryanov/tasktracker/internal/handlers/render"
	"github.com/nkiryanov/tasktracker/internal/handlers/userctx"
	"github.com/nkiryanov/tasktracker/internal/logger"
	"github.com/nkiryanov/tasktracker/internal/models"
	"github.com/nkiryanov/tasktracker/internal/service/task"
)

// date is calendar day formatted as "2006-01-02"
// Set is true if the field was present in JSON, even as null
type date struct {
	Set   bool
	Value *time.Time
}

func (d *date) UnmarshalJSON(data []byte) error {
	d.Set = true
	if string(data) == "null" {
		d.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return &json.UnmarshalTypeError{Value: "string " + strconv.Quote(s), Type: reflect.TypeFor[time.Time]()}
	}
	d.Value = &v
	return nil
}

type taskRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     date   `json:"due_date"`
}

// Only fields present in the body are changed
type patchTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     date    `json:"due_date"`
}

func (req taskRequest) task() models.Task {
	return models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate.Value,
	}
}

type taskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	DueDate     *string   `json:"due_date"`
	IsOverdue   bool      `json:"is_overdue"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newTaskResponse(t models.Task, today time.Time) taskResponse {
	res := taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		IsOverdue:   t.IsOverdue(today),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(time.DateOnly)
		res.DueDate = &due
	}
	return res
}

func handleListTasks(taskService taskService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		query := r.URL.Query()
		filter := models.TaskFilter{Status: query.Get("status"), Priority: query.Get("priority")}

		tasks, err := taskService.List(r.Context(), principal.ID, filter)
		if err != nil {
			renderTaskError(w, err, l)
			return
		}

		today := taskService.Today()
		res := make([]taskResponse, 0, len(tasks))
		for _, t := range tasks {
			res = append(res, newTaskResponse(t, today))
		}
		render.JSON(w, res)
	})
}

func handleCreateTask(taskService taskService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[taskRequest](w, r)
		if err != nil {
			return
		}

		t, err := taskService.Create(r.Context(), principal.ID, data.task())
		if err != nil {
			renderTaskError(w, err, l)
			return
		}

		render.Created(w, newTaskResponse(t, taskService.Today()))
	})
}

func handleGetTask(taskService taskService, l logger.Logger) http.Handler {
	return withTask(func(w http.ResponseWriter, r *http.Request, userID int64, id int64) {
		t, err := taskService.Get(r.Context(), userID, id)
		if err != nil {
			renderTaskError(w, err, l)
			return
		}

		render.JSON(w, newTaskResponse(t, taskService.Today()))
	})
}

func handleUpdateTask(taskService taskService, l logger.Logger) http.Handler {
	return withTask(func(w http.ResponseWriter, r *http.Request, userID int64, id int64) {
		data, err := render.BindAndValidate[taskRequest](w, r)
		if err != nil {
			return
		}

		t, err := taskService.Update(r.Context(), userID, id, data.task())
		if err != nil {
			renderTaskError(w, err, l)
			return
		}

		render.JSON(w, newTaskResponse(t, taskService.Today()))
	})
}

func handlePatchTask(taskService taskService, l logger.Logger) http.Handler {
	return withTask(func(w http.ResponseWriter, r *http.Request, userID int64, id int64) {
		data, err := render.BindAndValidate[patchTaskRequest](w, r)
		if err != nil {
			return
		}

		t, err := taskService.Patch(r.Context(), userID, id, task.Patch{
			Title:       data.Title,
			Description: data.Description,
			Status:      data.Status,
			Priority:    data.Priority,
			SetDueDate:  data.DueDate.Set,
			DueDate:     data.DueDate.Value,
		})
		if err != nil {
			renderTaskError(w, err, l)
			return
		}

		render.JSON(w, newTaskResponse(t, taskService.Today()))
	})
}

func handleDeleteTask(taskService taskService, l logger.Logger) http.Handler {
	return withTask(func(w http.ResponseWriter, r *http.Request, userID int64, id int64) {
		if err := taskService.Delete(r.Context(), userID, id); err != nil {
			renderTaskError(w, err, l)
			return
		}

		render.NoContent(w)
	})
}

func handleCompleteTask(taskService taskService, l logger.Logger) http.Handler {
	return withTask(func(w http.ResponseWriter, r *http.Request, userID int64, id int64) {
		t, err := taskService.Complete(r.Context(), userID, id)
		if err != nil {
			renderTaskError(w, err, l)
			return
		}

		render.JSON(w, newTaskResponse(t, taskService.Today()))
	})
}

func handleTaskStats(taskService taskService, l logger.Logger) http.Handler {
	type response struct {
		Total      int            `json:"total"`
		ByStatus   map[string]int `json:"by_status"`
		ByPriority map[string]int `json:"by_priority"`
		Overdue    int            `json:"overdue"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		stats, err := taskService.Stats(r.Context(), principal.ID)
		if err != nil {
			renderTaskError(w, err, l)
			return
		}

		render.JSON(w, response{
			Total:      stats.Total,
			ByStatus:   stats.ByStatus,
			ByPriority: stats.ByPriority,
			Overdue:    stats.Overdue,
		})
	})
}

// withTask resolves owner and task id from request
// Malformed id can't match any task, so it is reported as not found
func withTask(fn func(w http.ResponseWriter, r *http.Request, userID int64, id int64)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			render.ServiceError(w, "Task not found", http.StatusNotFound)
			return
		}

		fn(w, r, principal.ID, id)
	})
}

func renderTaskError(w http.ResponseWriter, err error, l logger.Logger) {
	switch {
	case errors.Is(err, apperrors.ErrTaskNotFound):
		render.ServiceError(w, "Task not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrTaskTitleBlank):
		render.FieldErrors(w, map[string]string{"title": "This field is required"})
	case errors.Is(err, apperrors.ErrTaskInvalidStatus):
		render.FieldErrors(w, map[string]string{"status": "Must be one of: todo, in_progress, done"})
	case errors.Is(err, apperrors.ErrTaskInvalidPriority):
		render.FieldErrors(w, map[string]string{"priority": "Must be one of: low, medium, high"})
	default:
		l.Error("Task operation failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
