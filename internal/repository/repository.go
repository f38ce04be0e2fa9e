package repository

import (
	"context"
	"time"

	"github.com/nkiryanov/tasktracker/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If the email or username is taken must return apperrors.ErrEmailTaken or apperrors.ErrUsernameTaken
	CreateUser(ctx context.Context, username string, email string, hashedPassword string) (models.User, error)

	// Get user by it's id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string, caseInsensitive bool) (models.User, error)
}

// Revocation repository interface
// Holds refresh token identifiers (jti) that must never be accepted again
type RevocationRepo interface {
	// Revoke inserts the token if it is not revoked yet
	// Returns true only for the caller who actually inserted the entry, so concurrent callers may race safely
	Revoke(ctx context.Context, token models.RevokedToken) (inserted bool, err error)

	// IsRevoked reports whether jti is revoked
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// PurgeExpired removes entries whose ExpiresAt is before the moment
	// Such tokens are rejected by the codec anyway, so it is safe to forget them
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// Task repository interface
// Every method is scoped by owner, tasks of other users behave as not existing
type TaskRepo interface {
	Create(ctx context.Context, task models.Task) (models.Task, error)

	// If task not found must return apperrors.ErrTaskNotFound
	Get(ctx context.Context, id int64, userID int64) (models.Task, error)
	List(ctx context.Context, userID int64, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, task models.Task) (models.Task, error)
	Delete(ctx context.Context, id int64, userID int64) error
	Stats(ctx context.Context, userID int64, today time.Time) (models.TaskStats, error)
}

type Storage interface {
	User() UserRepo
	Revocation() RevocationRepo
	Task() TaskRepo

	// Run fn in transaction
	// Storage passed to fn is bound to the transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
