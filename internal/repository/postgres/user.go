package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/tasktracker/internal/apperrors"
	"github.com/nkiryanov/tasktracker/internal/models"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, username, email, password_hash, is_active, date_joined`

const createUser = `-- name: CreateUser
INSERT INTO users (username, email, password_hash)
VALUES ($1, $2, $3)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, username string, email string, hashedPassword string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, username, email, hashedPassword)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return user, apperrors.ErrEmailTaken
			case "users_username_key":
				return user, apperrors.ErrUsernameTaken
			default:
				return user, apperrors.ErrUserAlreadyExists
			}
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT ` + userColumns + ` FROM users
WHERE email = $1
`

const getUserByEmailFold = `-- name: GetUserByEmailFold
SELECT ` + userColumns + ` FROM users
WHERE LOWER(email) = LOWER($1)
ORDER BY id
LIMIT 1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string, caseInsensitive bool) (models.User, error) {
	query := getUserByEmail
	if caseInsensitive {
		query = getUserByEmailFold
	}

	rows, _ := r.DB.Query(ctx, query, email)
	return collectUser(rows)
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.IsActive, &u.DateJoined)
	return u, err
}
