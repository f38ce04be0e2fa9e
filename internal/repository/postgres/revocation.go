package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/tasktracker/internal/models"
)

type RevocationRepo struct {
	DB DBTX
}

// Nothing is returned if jti exists already, that's how the caller knows it lost the race
const revokeToken = `-- name: RevokeToken
INSERT INTO revoked_tokens (jti, user_id, reason, revoked_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (jti) DO NOTHING
RETURNING jti
`

func (r *RevocationRepo) Revoke(ctx context.Context, token models.RevokedToken) (bool, error) {
	if token.RevokedAt.IsZero() {
		token.RevokedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, revokeToken, token.JTI, token.UserID, token.Reason, token.RevokedAt, token.ExpiresAt)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[string])

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("db error: %w", err)
	}
}

const isTokenRevoked = `-- name: IsTokenRevoked
SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)
`

func (r *RevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.DB.QueryRow(ctx, isTokenRevoked, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return revoked, nil
}

const purgeExpiredTokens = `-- name: PurgeExpiredTokens
DELETE FROM revoked_tokens
WHERE expires_at < $1
`

func (r *RevocationRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, purgeExpiredTokens, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}
