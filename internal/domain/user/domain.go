package user

import (
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Public returns a copy safe to hand to transport: the password hash is
// stripped, not just hidden by the json tag.
func (u *User) Public() *User {
	cp := *u
	cp.PasswordHash = ""
	return &cp
}
