package auth

import "context"

// Ledger is the durable record of issued refresh tokens. Find must treat
// expired rows as absent even when they are still physically stored.
// Revoke is a conditional delete and reports whether a record was removed;
// it is the serialization point that keeps rotation single-use under
// concurrent attempts.
type Ledger interface {
	Save(ctx context.Context, t *RefreshToken) error
	Find(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) (bool, error)
	RevokeAll(ctx context.Context, userID int64) error
}
