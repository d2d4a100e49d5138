package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSignUp  = "auth.signup"
	EventSignIn  = "auth.signin"
	EventRefresh = "auth.refresh"
	EventLogout  = "auth.logout"
)

// Event is one entry in the auth audit trail.
type Event struct {
	ID     string    `json:"id"`
	Kind   string    `json:"kind"`
	UserID int64     `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	At     time.Time `json:"at"`
}

func NewEvent(kind string, userID int64, email string, at time.Time) Event {
	return Event{
		ID:     uuid.NewString(),
		Kind:   kind,
		UserID: userID,
		Email:  email,
		At:     at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events; used when the audit trail is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
