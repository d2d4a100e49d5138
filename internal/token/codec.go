package token

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/keygate/keygate/internal/domain/auth"
)

var ErrTokenInvalid = errors.New("invalid token")

// Claims is the payload carried by both access and refresh tokens.
// Type is empty or "access" for access tokens and "refresh" for refresh
// tokens; the codec does not enforce it, callers must.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies bearer tokens with a single process-wide HS256
// secret. The secret is loaded once at startup and immutable afterwards.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret []byte, now func() time.Time) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty signing secret")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Codec{secret: secret, now: now}, nil
}

func (c *Codec) Mint(userID int64, email, typ string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			// iat/exp have second resolution; the jti keeps tokens minted
			// within the same second distinct, so ledger hashes never collide.
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

func (c *Codec) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (c *Codec) IsAccess(cl *Claims) bool {
	return cl.Type == "" || cl.Type == domainauth.TokenTypeAccess
}

// Hash derives the ledger key for a refresh token. Storage only ever sees
// this digest, so a leaked ledger cannot be replayed as bearer tokens.
func Hash(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
