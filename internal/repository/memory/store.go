// Package memory is an in-process backend behind the same ports as the
// durable stores. It exists for tests and local demos; unlike the ad-hoc
// global maps it replaces, all access is mutex-guarded.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/keygate/keygate/internal/domain/auth"
	"github.com/keygate/keygate/internal/domain/user"
	"github.com/keygate/keygate/internal/repository"
)

var (
	_ user.Repo   = (*UserRepo)(nil)
	_ auth.Ledger = (*Ledger)(nil)
)

type UserRepo struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*user.User
	byEmail map[string]*user.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		nextID:  1,
		byID:    make(map[int64]*user.User),
		byEmail: make(map[string]*user.User),
	}
}

func (r *UserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, ok := r.byEmail[key]; ok {
		return repository.ErrConflict
	}

	u.ID = r.nextID
	r.nextID++
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[key] = &cp
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// Delete removes a user record. No transport path exposes it; tests use it
// to simulate an account deleted out from under a live token.
func (r *UserRepo) Delete(_ context.Context, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, strings.ToLower(u.Email))
		delete(r.byID, id)
	}
}

type Ledger struct {
	mu     sync.Mutex
	nextID int64
	byHash map[string]*auth.RefreshToken
	now    func() time.Time
}

func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{nextID: 1, byHash: make(map[string]*auth.RefreshToken), now: now}
}

func (l *Ledger) Save(_ context.Context, t *auth.RefreshToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t.ID = l.nextID
	l.nextID++
	cp := *t
	l.byHash[t.TokenHash] = &cp
	return nil
}

func (l *Ledger) Find(_ context.Context, tokenHash string) (*auth.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.byHash[tokenHash]
	// Expired records stay in the map until revoked, but reads never
	// surface them.
	if !ok || !t.ExpiresAt.After(l.now()) {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (l *Ledger) Revoke(_ context.Context, tokenHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byHash[tokenHash]; !ok {
		return false, nil
	}
	delete(l.byHash, tokenHash)
	return true, nil
}

func (l *Ledger) RevokeAll(_ context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for h, t := range l.byHash {
		if t.UserID == userID {
			delete(l.byHash, h)
		}
	}
	return nil
}

// Len reports live (unexpired) records; handy in tests.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, t := range l.byHash {
		if t.ExpiresAt.After(l.now()) {
			n++
		}
	}
	return n
}
