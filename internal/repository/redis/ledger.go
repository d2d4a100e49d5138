package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keygate/keygate/internal/domain/auth"
	"github.com/keygate/keygate/internal/repository"
)

var _ auth.Ledger = (*Ledger)(nil)

const (
	tokenKeyPrefix = "rt:"
	userKeyPrefix  = "rtu:"
)

// Ledger keeps refresh-token records in Redis. Record keys carry a TTL
// matching the token expiry, so expired entries evict themselves; the
// per-user set backs RevokeAll.
type Ledger struct {
	client *redis.Client
	now    func() time.Time
}

func NewLedger(client *redis.Client, now func() time.Time) *Ledger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{client: client, now: now}
}

func tokenKey(hash string) string { return tokenKeyPrefix + hash }
func userKey(userID int64) string { return fmt.Sprintf("%s%d", userKeyPrefix, userID) }

func (l *Ledger) Save(ctx context.Context, t *auth.RefreshToken) error {
	ttl := t.ExpiresAt.Sub(l.now())
	if ttl <= 0 {
		return errors.New("refresh token already expired")
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal refresh token: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.Set(ctx, tokenKey(t.TokenHash), data, ttl)
	pipe.SAdd(ctx, userKey(t.UserID), t.TokenHash)
	// Keep the user set around at least as long as its longest-lived token.
	pipe.Expire(ctx, userKey(t.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (l *Ledger) Find(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	raw, err := l.client.Get(ctx, tokenKey(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	var t auth.RefreshToken
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("unmarshal refresh token: %w", err)
	}
	// TTL eviction is not instantaneous; re-check against the clock.
	if !t.ExpiresAt.After(l.now()) {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

// Revoke relies on DEL's removed-key count as the atomic arbiter between
// concurrent rotations of the same token.
func (l *Ledger) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	raw, err := l.client.Get(ctx, tokenKey(tokenHash)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}

	removed, err := l.client.Del(ctx, tokenKey(tokenHash)).Result()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	if removed == 0 {
		return false, nil
	}

	var t auth.RefreshToken
	if raw != "" && json.Unmarshal([]byte(raw), &t) == nil {
		_ = l.client.SRem(ctx, userKey(t.UserID), tokenHash).Err()
	}
	return true, nil
}

func (l *Ledger) RevokeAll(ctx context.Context, userID int64) error {
	hashes, err := l.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list refresh tokens: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, tokenKey(h))
	}
	keys = append(keys, userKey(userID))
	if err := l.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	return nil
}
