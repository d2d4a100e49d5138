package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/internal/audit"
	domainauth "github.com/keygate/keygate/internal/domain/auth"
	"github.com/keygate/keygate/internal/hash"
	"github.com/keygate/keygate/internal/repository/memory"
	"github.com/keygate/keygate/internal/token"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

type testEnv struct {
	engine *Engine
	users  *memory.UserRepo
	ledger *memory.Ledger
	clock  *fakeClock
	pub    *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	hasher, err := hash.NewHasher(4)
	require.NoError(t, err)
	codec, err := token.NewCodec([]byte("engine-test-secret"), clock.Now)
	require.NoError(t, err)

	users := memory.NewUserRepo()
	ledger := memory.NewLedger(clock.Now)
	pub := &recordingPublisher{}

	engine := NewEngine(users, ledger, hasher, codec, pub, nil, Config{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        clock.Now,
	})
	return &testEnv{engine: engine, users: users, ledger: ledger, clock: clock, pub: pub}
}

func TestSignUp_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"missing email", "", "secret1"},
		{"missing password", "a@x.com", ""},
		{"short password", "a@x.com", "12345"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := env.engine.SignUp(ctx, tc.email, tc.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSignUp_IssuesWorkingTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, pair, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	assert.Empty(t, u.PasswordHash)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	got, err := env.engine.Authenticate(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, got.PasswordHash)
}

func TestSignUp_EmailTaken_CaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.engine.SignUp(ctx, "A@X.com", "secret1")
	require.NoError(t, err)

	_, _, err = env.engine.SignUp(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrEmailTaken)

	// Stored case survives: login works with any casing, profile shows the
	// original.
	u, _, err := env.engine.SignIn(ctx, "a@X.COM", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "A@X.com", u.Email)
}

func TestSignIn_UniformFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, _, wrongPass := env.engine.SignIn(ctx, "a@x.com", "wrong-password")
	_, _, noUser := env.engine.SignIn(ctx, "ghost@x.com", "whatever1")

	assert.ErrorIs(t, wrongPass, ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), noUser.Error())
}

func TestAuthenticate_RejectsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, pair, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = env.engine.Authenticate(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticate_ExpiredAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, pair, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	env.clock.Advance(16 * time.Minute)
	_, err = env.engine.Authenticate(ctx, pair.Access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticate_UserGone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, pair, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	env.users.Delete(ctx, u.ID)
	_, err = env.engine.Authenticate(ctx, pair.Access)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefresh_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, pair, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	rotated, err := env.engine.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh, rotated.Refresh)

	// The consumed token is gone for good.
	_, err = env.engine.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)

	// The child token still rotates.
	_, err = env.engine.Refresh(ctx, rotated.Refresh)
	require.NoError(t, err)
}

func TestRefresh_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, pair, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		_, err := env.engine.Refresh(ctx, "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("access token has wrong type", func(t *testing.T) {
		_, err := env.engine.Refresh(ctx, pair.Access)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := env.engine.Refresh(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestRefresh_ExpiredRecordTreatedAsAbsent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, pair, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	// Past refresh expiry the record may still sit in storage, but lookup
	// must not see it. The JWT itself also expires, so either failure mode
	// is a rejection; advance past both.
	env.clock.Advance(8 * 24 * time.Hour)
	_, err = env.engine.Refresh(ctx, pair.Refresh)
	assert.Error(t, err)

	_, ledgerErr := env.ledger.Find(ctx, token.Hash(pair.Refresh))
	assert.Error(t, ledgerErr)
}

func TestLogout_TargetedRevokesOnlyThatToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, first, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	_, second, err := env.engine.SignIn(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, env.engine.Logout(ctx, first.Access, first.Refresh))

	_, err = env.engine.Refresh(ctx, first.Refresh)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)

	// The other device's session survives.
	_, err = env.engine.Refresh(ctx, second.Refresh)
	require.NoError(t, err)
}

func TestLogout_EverywhereRevokesAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, first, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	_, second, err := env.engine.SignIn(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, env.engine.Logout(ctx, second.Access, ""))

	_, err = env.engine.Refresh(ctx, first.Refresh)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
	_, err = env.engine.Refresh(ctx, second.Refresh)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
	assert.Equal(t, 0, env.ledger.Len())
}

func TestLogout_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, pair, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, env.engine.Logout(ctx, pair.Access, pair.Refresh))
	// Second revoke of the same token: still fine.
	require.NoError(t, env.engine.Logout(ctx, pair.Access, pair.Refresh))
}

func TestLogout_RequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.engine.Logout(ctx, "bogus", "")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, pair, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	_, _, err = env.engine.SignIn(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = env.engine.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)

	assert.Equal(t, []string{audit.EventSignUp, audit.EventSignIn, audit.EventRefresh}, env.pub.kinds())
}

func TestRefreshRecordShape(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, pair, err := env.engine.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	rec, err := env.ledger.Find(ctx, token.Hash(pair.Refresh))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", rec.Email)
	assert.Equal(t, env.clock.Now().Add(7*24*time.Hour), rec.ExpiresAt)
	assert.Equal(t, domainauth.TokenTypeRefresh, mustClaims(t, env, pair.Refresh).Type)
	// The raw token never appears in storage.
	assert.NotEqual(t, pair.Refresh, rec.TokenHash)
}

func mustClaims(t *testing.T, env *testEnv, raw string) *token.Claims {
	t.Helper()
	codec, err := token.NewCodec([]byte("engine-test-secret"), env.clock.Now)
	require.NoError(t, err)
	cl, err := codec.Verify(raw)
	require.NoError(t, err)
	return cl
}
