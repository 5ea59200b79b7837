package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/storage"
)

// hashRefresh — sha256 → base64url, как в сервисе.
func hashRefresh(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func saveToken(t *testing.T, st *Storage, userID uuid.UUID, plain string, created, expires time.Time) string {
	t.Helper()
	hash := hashRefresh(plain)
	require.NoError(t, st.SaveRefreshToken(context.Background(), &models.RefreshToken{
		ID:        uuid.New(),
		TokenHash: hash,
		UserID:    userID,
		ExpiresAt: expires,
		CreatedAt: created,
	}))
	return hash
}

func TestIntegration_SaveRefreshToken_And_GetByHash_OK(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	hash := saveToken(t, st, userID, "plain-1", now, now.Add(time.Hour))

	got, err := st.RefreshTokenByHash(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, userID, got.UserID)
	require.False(t, got.Revoked)
	require.WithinDuration(t, now.Add(time.Hour), got.ExpiresAt, time.Second)
}

func TestIntegration_SaveRefreshToken_UniqueViolation(t *testing.T) {
	st := startPostgres(t)
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	saveToken(t, st, userID, "dup", now, now.Add(time.Hour))

	err := st.SaveRefreshToken(context.Background(), &models.RefreshToken{
		ID:        uuid.New(),
		TokenHash: hashRefresh("dup"),
		UserID:    userID,
		ExpiresAt: now.Add(2 * time.Hour),
		CreatedAt: now,
	})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_RefreshTokenByHash_NotFound(t *testing.T) {
	st := startPostgres(t)

	_, err := st.RefreshTokenByHash(context.Background(), hashRefresh("missing"))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_RevokeRefreshToken_Flow(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	hash := saveToken(t, st, userID, "to-revoke", now, now.Add(time.Hour))

	ok, err := st.RevokeRefreshToken(ctx, hash)
	require.NoError(t, err)
	require.True(t, ok)

	// Повторный отзыв — (false, nil).
	ok, err = st.RevokeRefreshToken(ctx, hash)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := st.RefreshTokenByHash(ctx, hash)
	require.NoError(t, err)
	require.True(t, got.Revoked)

	_, err = st.RevokeRefreshToken(ctx, hashRefresh("unknown"))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_RevokeRefreshToken_ConcurrentExactlyOnce(t *testing.T) {
	st := startPostgres(t)
	userID := seedUser(t, st, "race@example.com")

	now := time.Now().UTC()
	hash := saveToken(t, st, userID, "race", now, now.Add(time.Hour))

	const workers = 8
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.RevokeRefreshToken(context.Background(), hash)
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, winners.Load())
}

func TestIntegration_DeleteStaleTokens(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	userID := seedUser(t, st, "janitor@example.com")

	now := time.Now().UTC()
	expired := saveToken(t, st, userID, "expired", now.Add(-2*time.Hour), now.Add(-time.Hour))
	oldRevoked := saveToken(t, st, userID, "old-revoked", now.Add(-48*time.Hour), now.Add(time.Hour))
	freshRevoked := saveToken(t, st, userID, "fresh-revoked", now, now.Add(time.Hour))
	active := saveToken(t, st, userID, "active", now, now.Add(time.Hour))

	for _, h := range []string{oldRevoked, freshRevoked} {
		_, err := st.RevokeRefreshToken(ctx, h)
		require.NoError(t, err)
	}

	n, err := st.DeleteStaleTokens(ctx, now, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	for _, h := range []string{expired, oldRevoked} {
		_, err := st.RefreshTokenByHash(ctx, h)
		require.ErrorIs(t, err, storage.ErrNotFound)
	}
	for _, h := range []string{freshRevoked, active} {
		_, err := st.RefreshTokenByHash(ctx, h)
		require.NoError(t, err)
	}
}
