// Package redis keeps revoked refresh tokens in Redis
// Entries expire once the token is no longer accepted, so no purge is needed
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/tasktracker/internal/models"
)

const DefaultKeyPrefix = "tasktracker:revoked:"

// Redis refuses zero and negative expiration for SET, keep entries at least that long
const minTTL = time.Second

type RevocationRepo struct {
	Client    redis.UniversalClient
	KeyPrefix string

	// Used to compute entry TTL, time.Now if nil
	Now func() time.Time
}

func NewRevocationRepo(client redis.UniversalClient) *RevocationRepo {
	return &RevocationRepo{Client: client, KeyPrefix: DefaultKeyPrefix}
}

func (r *RevocationRepo) key(jti string) string {
	return r.KeyPrefix + jti
}

func (r *RevocationRepo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Entry lives until token.ExpiresAt
// Revoke relies on SET NX, so only one of concurrent callers gets inserted=true
func (r *RevocationRepo) Revoke(ctx context.Context, token models.RevokedToken) (bool, error) {
	ttl := token.ExpiresAt.Sub(r.now())
	if ttl < minTTL {
		ttl = minTTL
	}

	value := fmt.Sprintf("%d:%s", token.UserID, token.Reason)
	inserted, err := r.Client.SetNX(ctx, r.key(token.JTI), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return inserted, nil
}

func (r *RevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.Client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

// PurgeExpired is a no-op, Redis evicts expired keys itself
func (r *RevocationRepo) PurgeExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}
