package auth

import (
	"time"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// RefreshToken is a ledger record for one issued refresh token. The raw
// token never touches storage; TokenHash is a SHA-256 digest of it.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Email     string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
