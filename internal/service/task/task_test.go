package task

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/tasktracker/internal/apperrors"
	"github.com/nkiryanov/tasktracker/internal/models"
	"github.com/nkiryanov/tasktracker/internal/repository/postgres"
	"github.com/nkiryanov/tasktracker/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestTask(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	today := time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)

	// Create service and two users within transaction
	inTx := func(t *testing.T, fn func(s *TaskService, alice int64, bob int64)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			alice, err := storage.User().CreateUser(t.Context(), "alice", "alice@x.com", "hash")
			require.NoError(t, err)
			bob, err := storage.User().CreateUser(t.Context(), "bob", "bob@x.com", "hash")
			require.NoError(t, err)

			s := NewService(storage.Task())
			s.now = func() time.Time { return today }
			fn(s, alice.ID, bob.ID)
		})
	}

	t.Run("Create", func(t *testing.T) {
		t.Run("defaults and trimmed title", func(t *testing.T) {
			inTx(t, func(s *TaskService, alice int64, _ int64) {
				task, err := s.Create(t.Context(), alice, models.Task{Title: "  Buy milk  "})

				require.NoError(t, err)
				require.Equal(t, "Buy milk", task.Title)
				require.Equal(t, models.TaskStatusTodo, task.Status)
				require.Equal(t, models.TaskPriorityMedium, task.Priority)
				require.Equal(t, alice, task.UserID)
			})
		})

		t.Run("blank title", func(t *testing.T) {
			inTx(t, func(s *TaskService, alice int64, _ int64) {
				_, err := s.Create(t.Context(), alice, models.Task{Title: "   "})

				require.ErrorIs(t, err, apperrors.ErrTaskTitleBlank)
			})
		})

		t.Run("invalid status and priority", func(t *testing.T) {
			inTx(t, func(s *TaskService, alice int64, _ int64) {
				_, err := s.Create(t.Context(), alice, models.Task{Title: "x", Status: "blocked"})
				require.ErrorIs(t, err, apperrors.ErrTaskInvalidStatus)

				_, err = s.Create(t.Context(), alice, models.Task{Title: "x", Priority: "urgent"})
				require.ErrorIs(t, err, apperrors.ErrTaskInvalidPriority)
			})
		})
	})

	t.Run("owner isolation", func(t *testing.T) {
		inTx(t, func(s *TaskService, alice int64, bob int64) {
			task, err := s.Create(t.Context(), alice, models.Task{Title: "secret"})
			require.NoError(t, err)

			_, err = s.Get(t.Context(), bob, task.ID)
			require.ErrorIs(t, err, apperrors.ErrTaskNotFound)

			_, err = s.Patch(t.Context(), bob, task.ID, Patch{Title: ptr("hacked")})
			require.ErrorIs(t, err, apperrors.ErrTaskNotFound)

			_, err = s.Complete(t.Context(), bob, task.ID)
			require.ErrorIs(t, err, apperrors.ErrTaskNotFound)

			err = s.Delete(t.Context(), bob, task.ID)
			require.ErrorIs(t, err, apperrors.ErrTaskNotFound)

			list, err := s.List(t.Context(), bob, models.TaskFilter{})
			require.NoError(t, err)
			require.Empty(t, list)
		})
	})

	t.Run("Update replaces fields", func(t *testing.T) {
		inTx(t, func(s *TaskService, alice int64, _ int64) {
			task, err := s.Create(t.Context(), alice, models.Task{Title: "draft", Description: "old", DueDate: ptr(today)})
			require.NoError(t, err)

			updated, err := s.Update(t.Context(), alice, task.ID, models.Task{
				Title:    "final",
				Status:   models.TaskStatusInProgress,
				Priority: models.TaskPriorityHigh,
			})

			require.NoError(t, err)
			require.Equal(t, "final", updated.Title)
			require.Empty(t, updated.Description)
			require.Nil(t, updated.DueDate, "full update clears omitted due date")
			require.Equal(t, models.TaskPriorityHigh, updated.Priority)
		})
	})

	t.Run("Patch changes provided fields only", func(t *testing.T) {
		inTx(t, func(s *TaskService, alice int64, _ int64) {
			task, err := s.Create(t.Context(), alice, models.Task{Title: "draft", Description: "keep", DueDate: ptr(today)})
			require.NoError(t, err)

			patched, err := s.Patch(t.Context(), alice, task.ID, Patch{Priority: ptr(models.TaskPriorityLow)})
			require.NoError(t, err)
			require.Equal(t, "draft", patched.Title)
			require.Equal(t, "keep", patched.Description)
			require.NotNil(t, patched.DueDate)
			require.Equal(t, models.TaskPriorityLow, patched.Priority)

			patched, err = s.Patch(t.Context(), alice, task.ID, Patch{SetDueDate: true})
			require.NoError(t, err)
			require.Nil(t, patched.DueDate, "due date can be cleared")

			_, err = s.Patch(t.Context(), alice, task.ID, Patch{Title: ptr(" ")})
			require.ErrorIs(t, err, apperrors.ErrTaskTitleBlank)
		})
	})

	t.Run("Complete", func(t *testing.T) {
		inTx(t, func(s *TaskService, alice int64, _ int64) {
			task, err := s.Create(t.Context(), alice, models.Task{Title: "do it"})
			require.NoError(t, err)

			done, err := s.Complete(t.Context(), alice, task.ID)

			require.NoError(t, err)
			require.Equal(t, models.TaskStatusDone, done.Status)
		})
	})

	t.Run("List rejects unknown filters", func(t *testing.T) {
		inTx(t, func(s *TaskService, alice int64, _ int64) {
			_, err := s.List(t.Context(), alice, models.TaskFilter{Status: "nope"})
			require.ErrorIs(t, err, apperrors.ErrTaskInvalidStatus)

			_, err = s.List(t.Context(), alice, models.TaskFilter{Priority: "nope"})
			require.ErrorIs(t, err, apperrors.ErrTaskInvalidPriority)
		})
	})

	t.Run("Stats counts overdue against today", func(t *testing.T) {
		inTx(t, func(s *TaskService, alice int64, bob int64) {
			yesterday := today.AddDate(0, 0, -1)
			for _, task := range []models.Task{
				{Title: "late", DueDate: &yesterday},
				{Title: "late but done", Status: models.TaskStatusDone, DueDate: &yesterday},
				{Title: "due today", DueDate: ptr(today)},
				{Title: "no due date", Priority: models.TaskPriorityHigh},
			} {
				_, err := s.Create(t.Context(), alice, task)
				require.NoError(t, err)
			}
			_, err := s.Create(t.Context(), bob, models.Task{Title: "bobs late", DueDate: &yesterday})
			require.NoError(t, err)

			stats, err := s.Stats(t.Context(), alice)

			require.NoError(t, err)
			require.Equal(t, 4, stats.Total)
			require.Equal(t, 1, stats.Overdue)
			require.Equal(t, 3, stats.ByStatus[models.TaskStatusTodo])
			require.Equal(t, 1, stats.ByPriority[models.TaskPriorityHigh])
		})
	})

	t.Run("Today", func(t *testing.T) {
		s := NewService(nil)
		s.now = func() time.Time { return time.Date(2025, 6, 10, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600)) }

		require.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), s.Today())
	})
}
