package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/internal/domain/auth"
	"github.com/keygate/keygate/internal/repository"
)

func newTestLedger(t *testing.T, now func() time.Time) (*Ledger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLedger(client, now), mr
}

func record(userID int64, hash string, now time.Time, ttl time.Duration) *auth.RefreshToken {
	return &auth.RefreshToken{
		UserID:    userID,
		Email:     "a@x.com",
		TokenHash: hash,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestLedger_SaveFind(t *testing.T) {
	now := time.Now().UTC()
	l, _ := newTestLedger(t, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, l.Save(ctx, record(1, "h1", now, time.Hour)))

	got, err := l.Find(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)
	assert.Equal(t, "a@x.com", got.Email)

	_, err = l.Find(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLedger_ExpiredIsAbsent(t *testing.T) {
	var mu sync.Mutex
	now := time.Now().UTC()
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	l, mr := newTestLedger(t, clock)
	ctx := context.Background()

	require.NoError(t, l.Save(ctx, record(1, "h1", now, time.Minute)))

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	// Regardless of whether the key already evicted, the record is absent.
	_, err := l.Find(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	mr.FastForward(2 * time.Minute)
	_, err = l.Find(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLedger_RevokeReportsExistence(t *testing.T) {
	now := time.Now().UTC()
	l, _ := newTestLedger(t, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, l.Save(ctx, record(1, "h1", now, time.Hour)))

	removed, err := l.Revoke(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, removed)

	// Second revoke: nobody home, no error.
	removed, err = l.Revoke(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLedger_RevokeAll(t *testing.T) {
	now := time.Now().UTC()
	l, _ := newTestLedger(t, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, l.Save(ctx, record(1, "h1", now, time.Hour)))
	require.NoError(t, l.Save(ctx, record(1, "h2", now, time.Hour)))
	require.NoError(t, l.Save(ctx, record(2, "h3", now, time.Hour)))

	require.NoError(t, l.RevokeAll(ctx, 1))

	_, err := l.Find(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = l.Find(ctx, "h2")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// User 2 untouched.
	got, err := l.Find(ctx, "h3")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UserID)
}
