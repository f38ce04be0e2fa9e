package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nkiryanov/tasktracker/internal/handlers/middleware"
	"github.com/nkiryanov/tasktracker/internal/logger"
	"github.com/nkiryanov/tasktracker/internal/models"
	"github.com/nkiryanov/tasktracker/internal/service/task"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	userService userService,
	taskService taskService,
	metrics metricsService,
	loginLimit *middleware.RateLimit,
	logger logger.Logger,
) http.Handler {
	auth := middleware.NewAuth(authService)
	withAuth := auth.Require

	login := handleLogin(authService, logger)
	if loginLimit != nil {
		login = loginLimit.Limit(login)
	}

	api := http.NewServeMux()

	api.Handle("POST /auth/register", handleRegister(userService, logger))
	api.Handle("POST /auth/login", login)
	api.Handle("POST /auth/refresh", handleRefresh(authService, logger))
	api.Handle("POST /auth/logout", handleLogout(authService, logger))
	api.Handle("GET /auth/verify", handleVerify())
	api.Handle("GET /auth/me", withAuth(handleMe()))

	api.Handle("GET /tasks", withAuth(handleListTasks(taskService, logger)))
	api.Handle("POST /tasks", withAuth(handleCreateTask(taskService, logger)))
	api.Handle("GET /tasks/stats", withAuth(handleTaskStats(taskService, logger)))
	api.Handle("GET /tasks/{id}", withAuth(handleGetTask(taskService, logger)))
	api.Handle("PUT /tasks/{id}", withAuth(handleUpdateTask(taskService, logger)))
	api.Handle("PATCH /tasks/{id}", withAuth(handlePatchTask(taskService, logger)))
	api.Handle("DELETE /tasks/{id}", withAuth(handleDeleteTask(taskService, logger)))
	api.Handle("POST /tasks/{id}/complete", withAuth(handleCompleteTask(taskService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", auth.Authenticate(api)))
	root.Handle("GET /metrics", metrics.Handler())

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
		middleware.MetricsMiddleware(metrics),
	)

	return handler
}

type authService interface {
	// Login user with email and password
	// Has to return apperrors.ErrCredentialNotFound, apperrors.ErrCredentialMismatch or apperrors.ErrUserDisabled
	Login(ctx context.Context, email string, password string) (models.Session, error)

	// Get principal from access token in cookie or Authorization header
	Authenticate(ctx context.Context, r *http.Request) (models.Principal, error)

	// Refresh tokens using refresh token
	// Errors matched by apperrors.IsUnauthorized are client errors
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Revoke refresh token. Only storage failures are returned
	Logout(ctx context.Context, refresh string) error

	// Get refresh token from cookie or from the value sent in body
	RefreshFromRequest(r *http.Request, bodyValue string) (string, bool)

	// Set auth tokens (access, refresh) to response cookies
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)

	// Expire auth cookies
	ClearTokens(w http.ResponseWriter)
}

type userService interface {
	// Has to return apperrors.ErrEmailTaken or apperrors.ErrUsernameTaken if user exists
	Register(ctx context.Context, username string, email string, password string) (models.User, error)
}

type taskService interface {
	Create(ctx context.Context, userID int64, t models.Task) (models.Task, error)
	Get(ctx context.Context, userID int64, id int64) (models.Task, error)
	List(ctx context.Context, userID int64, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, userID int64, id int64, t models.Task) (models.Task, error)
	Patch(ctx context.Context, userID int64, id int64, p task.Patch) (models.Task, error)
	Delete(ctx context.Context, userID int64, id int64) error
	Complete(ctx context.Context, userID int64, id int64) (models.Task, error)
	Stats(ctx context.Context, userID int64) (models.TaskStats, error)

	// Today is the date tasks are checked to be overdue against
	Today() time.Time
}

type metricsService interface {
	HTTPRequest(method string, status int)
	Handler() http.Handler
}
