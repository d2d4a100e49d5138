package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/keygate/keygate/internal/audit"
	domainauth "github.com/keygate/keygate/internal/domain/auth"
	"github.com/keygate/keygate/internal/domain/user"
	"github.com/keygate/keygate/internal/hash"
	"github.com/keygate/keygate/internal/obs"
	"github.com/keygate/keygate/internal/repository"
	"github.com/keygate/keygate/internal/token"
)

const MinPasswordLen = 6

type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// TokenPair is one minted access/refresh pair. The refresh token is the raw
// value handed to the client; only its hash reaches the ledger.
type TokenPair struct {
	Access  string
	Refresh string
}

// Engine implements the token lifecycle over pluggable stores. It is
// stateless between calls; the ledger is the sole arbiter of refresh-token
// consistency.
type Engine struct {
	users  user.Repo
	ledger domainauth.Ledger
	hasher *hash.Hasher
	codec  *token.Codec
	audit  audit.Publisher
	log    *zap.Logger
	cfg    Config
}

func NewEngine(users user.Repo, ledger domainauth.Ledger, hasher *hash.Hasher, codec *token.Codec, pub audit.Publisher, log *zap.Logger, cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if pub == nil {
		pub = audit.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{users: users, ledger: ledger, hasher: hasher, codec: codec, audit: pub, log: log, cfg: cfg}
}

func (e *Engine) SignUp(ctx context.Context, email, password string) (*user.User, *TokenPair, error) {
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	if len(password) < MinPasswordLen {
		return nil, nil, fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLen)
	}

	pwHash, err := e.hasher.Hash(password)
	if err != nil {
		return nil, nil, e.internal("hash password", err)
	}

	now := e.cfg.Now()
	u := &user.User{Email: email, PasswordHash: pwHash, CreatedAt: now, UpdatedAt: now}
	if err := e.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, e.internal("create user", err)
	}

	pair, err := e.issueTokens(ctx, u.ID, u.Email)
	if err != nil {
		return nil, nil, err
	}

	obs.Signups.Inc()
	e.publish(ctx, audit.EventSignUp, u.ID, u.Email)
	return u.Public(), pair, nil
}

func (e *Engine) SignIn(ctx context.Context, email, password string) (*user.User, *TokenPair, error) {
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	u, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a bcrypt comparison so an unknown email costs the
			// same as a wrong password.
			e.hasher.VerifyDummy(password)
			obs.Logins.WithLabelValues("failure").Inc()
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, e.internal("find user", err)
	}
	if !e.hasher.Verify(password, u.PasswordHash) {
		obs.Logins.WithLabelValues("failure").Inc()
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := e.issueTokens(ctx, u.ID, u.Email)
	if err != nil {
		return nil, nil, err
	}

	obs.Logins.WithLabelValues("success").Inc()
	e.publish(ctx, audit.EventSignIn, u.ID, u.Email)
	return u.Public(), pair, nil
}

// Authenticate resolves an access token to its user. Protected operations
// call this before doing anything else.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*user.User, error) {
	if accessToken == "" {
		return nil, ErrTokenInvalid
	}
	claims, err := e.codec.Verify(accessToken)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !e.codec.IsAccess(claims) {
		// A refresh token is never a valid bearer credential.
		return nil, ErrTokenInvalid
	}

	u, err := e.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, e.internal("find user by id", err)
	}
	return u.Public(), nil
}

// Refresh rotates a refresh token: the presented token is consumed and a
// fresh pair is issued. A token can win a rotation exactly once; the
// ledger's conditional delete decides races.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrValidation)
	}
	claims, err := e.codec.Verify(refreshToken)
	if err != nil {
		obs.Refreshes.WithLabelValues("failure").Inc()
		return nil, ErrTokenInvalid
	}
	if claims.Type != domainauth.TokenTypeRefresh {
		obs.Refreshes.WithLabelValues("failure").Inc()
		return nil, ErrInvalidTokenType
	}

	tokenHash := token.Hash(refreshToken)
	rec, err := e.ledger.Find(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			obs.Refreshes.WithLabelValues("failure").Inc()
			return nil, ErrRefreshTokenInvalid
		}
		return nil, e.internal("find refresh token", err)
	}

	removed, err := e.ledger.Revoke(ctx, tokenHash)
	if err != nil {
		return nil, e.internal("revoke refresh token", err)
	}
	if !removed {
		// Lost a concurrent rotation on the same token.
		obs.Refreshes.WithLabelValues("failure").Inc()
		return nil, ErrRefreshTokenInvalid
	}

	pair, err := e.issueTokens(ctx, rec.UserID, rec.Email)
	if err != nil {
		return nil, err
	}

	obs.Refreshes.WithLabelValues("success").Inc()
	e.publish(ctx, audit.EventRefresh, rec.UserID, rec.Email)
	return pair, nil
}

// Logout revokes the given refresh token, or every refresh token of the
// authenticated user when none is supplied. Idempotent: revoking an absent
// token still succeeds.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	u, err := e.Authenticate(ctx, accessToken)
	if err != nil {
		return err
	}

	if refreshToken != "" {
		if _, err := e.ledger.Revoke(ctx, token.Hash(refreshToken)); err != nil {
			return e.internal("revoke refresh token", err)
		}
	} else {
		if err := e.ledger.RevokeAll(ctx, u.ID); err != nil {
			return e.internal("revoke all refresh tokens", err)
		}
	}

	obs.Logouts.Inc()
	e.publish(ctx, audit.EventLogout, u.ID, u.Email)
	return nil
}

func (e *Engine) issueTokens(ctx context.Context, userID int64, email string) (*TokenPair, error) {
	access, err := e.codec.Mint(userID, email, domainauth.TokenTypeAccess, e.cfg.AccessTTL)
	if err != nil {
		return nil, e.internal("mint access token", err)
	}
	refresh, err := e.codec.Mint(userID, email, domainauth.TokenTypeRefresh, e.cfg.RefreshTTL)
	if err != nil {
		return nil, e.internal("mint refresh token", err)
	}

	now := e.cfg.Now()
	rec := &domainauth.RefreshToken{
		UserID:    userID,
		Email:     email,
		TokenHash: token.Hash(refresh),
		IssuedAt:  now,
		ExpiresAt: now.Add(e.cfg.RefreshTTL),
	}
	if err := e.ledger.Save(ctx, rec); err != nil {
		return nil, e.internal("save refresh token", err)
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (e *Engine) publish(ctx context.Context, kind string, userID int64, email string) {
	if err := e.audit.Publish(ctx, audit.NewEvent(kind, userID, email, e.cfg.Now())); err != nil {
		obs.WithTrace(ctx, e.log).Warn("audit publish", zap.String("kind", kind), zap.Error(err))
	}
}

func (e *Engine) internal(op string, err error) error {
	e.log.Error(op, zap.Error(err))
	return fmt.Errorf("%w: %s", ErrStorage, op)
}
