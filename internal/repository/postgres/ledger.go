package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/keygate/keygate/internal/domain/auth"
	"github.com/keygate/keygate/internal/repository"
)

var _ auth.Ledger = (*Ledger)(nil)

// Ledger persists refresh-token records. Expired rows stay on disk until a
// revoke or rotation removes them; every read filters them out.
type Ledger struct{ db *DB }

func NewLedger(db *DB) *Ledger { return &Ledger{db: db} }

const (
	qRTInsert = `
INSERT INTO refresh_tokens (user_id, token_hash, issued_at, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING id;`

	qRTFind = `
SELECT rt.id, rt.user_id, u.email, rt.token_hash, rt.issued_at, rt.expires_at
FROM refresh_tokens rt
JOIN users u ON u.id = rt.user_id
WHERE rt.token_hash = $1 AND rt.expires_at > NOW()
LIMIT 1;`

	qRTDelete = `
DELETE FROM refresh_tokens WHERE token_hash = $1;`

	qRTDeleteAll = `
DELETE FROM refresh_tokens WHERE user_id = $1;`
)

func (l *Ledger) Save(ctx context.Context, t *auth.RefreshToken) error {
	ctx, cancel := l.db.withTimeout(ctx)
	defer cancel()

	if err := l.db.Pool.QueryRow(ctx, qRTInsert, t.UserID, t.TokenHash, t.IssuedAt, t.ExpiresAt).Scan(&t.ID); err != nil {
		return fmt.Errorf("refresh token insert: %w", err)
	}
	return nil
}

func (l *Ledger) Find(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	ctx, cancel := l.db.withTimeout(ctx)
	defer cancel()

	var t auth.RefreshToken
	if err := l.db.Pool.QueryRow(ctx, qRTFind, tokenHash).
		Scan(&t.ID, &t.UserID, &t.Email, &t.TokenHash, &t.IssuedAt, &t.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &t, nil
}

// Revoke deletes at most one record and reports whether it existed. The
// DELETE is atomic, so of two concurrent rotations on the same token only
// one observes true.
func (l *Ledger) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	ctx, cancel := l.db.withTimeout(ctx)
	defer cancel()

	tag, err := l.db.Pool.Exec(ctx, qRTDelete, tokenHash)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (l *Ledger) RevokeAll(ctx context.Context, userID int64) error {
	ctx, cancel := l.db.withTimeout(ctx)
	defer cancel()

	if _, err := l.db.Pool.Exec(ctx, qRTDeleteAll, userID); err != nil {
		return fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	return nil
}
