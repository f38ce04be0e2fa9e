package postgres

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/tasktracker/internal/models"
	"github.com/nkiryanov/tasktracker/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_RevocationRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	token := models.RevokedToken{
		JTI:       "2f0e9c1a-0000-4000-8000-000000000001",
		UserID:    42,
		Reason:    models.RevokedOnLogout,
		RevokedAt: mustParseTime("2024-01-01 19:00:01Z"),
		ExpiresAt: mustParseTime("2200-01-01 03:00:02Z"),
	}

	t.Run("revoke new token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RevocationRepo{DB: tx}

			inserted, err := repo.Revoke(t.Context(), token)

			require.NoError(t, err)
			require.True(t, inserted, "first revoke must insert the entry")
		})
	})

	t.Run("revoke twice is idempotent", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RevocationRepo{DB: tx}
			_, err := repo.Revoke(t.Context(), token)
			require.NoError(t, err)

			inserted, err := repo.Revoke(t.Context(), token)

			require.NoError(t, err, "second revoke must not fail")
			require.False(t, inserted, "second revoke must report existing entry")
		})
	})

	t.Run("is revoked", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RevocationRepo{DB: tx}
			_, err := repo.Revoke(t.Context(), token)
			require.NoError(t, err)

			revoked, err := repo.IsRevoked(t.Context(), token.JTI)
			require.NoError(t, err)
			require.True(t, revoked)

			revoked, err = repo.IsRevoked(t.Context(), "unknown-jti")
			require.NoError(t, err)
			require.False(t, revoked)
		})
	})

	t.Run("purge expired only", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RevocationRepo{DB: tx}
			expired := token
			expired.JTI = "expired-jti"
			expired.ExpiresAt = mustParseTime("2024-01-08 19:00:01Z")
			_, err := repo.Revoke(t.Context(), expired)
			require.NoError(t, err)
			_, err = repo.Revoke(t.Context(), token)
			require.NoError(t, err)

			purged, err := repo.PurgeExpired(t.Context(), mustParseTime("2025-01-01 00:00:00Z"))

			require.NoError(t, err)
			require.EqualValues(t, 1, purged)

			revoked, err := repo.IsRevoked(t.Context(), expired.JTI)
			require.NoError(t, err)
			require.False(t, revoked, "expired entry must be purged")

			revoked, err = repo.IsRevoked(t.Context(), token.JTI)
			require.NoError(t, err)
			require.True(t, revoked, "live entry must stay")
		})
	})

	t.Run("concurrent revoke has single winner", func(t *testing.T) {
		// Goes through the pool, each goroutine gets own connection
		repo := RevocationRepo{DB: pg.Pool}
		contested := token
		contested.JTI = "contested-jti"
		t.Cleanup(func() {
			_, _ = pg.Pool.Exec(t.Context(), "DELETE FROM revoked_tokens WHERE jti = $1", contested.JTI)
		})

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				inserted, err := repo.Revoke(t.Context(), contested)
				if err == nil && inserted {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		require.EqualValues(t, 1, wins.Load(), "exactly one caller must insert the entry")
	})
}
