package hash

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultCost = 12

// Hasher wraps bcrypt with a configurable cost factor. The cost is embedded
// in the produced hash, so Verify works across cost changes.
type Hasher struct {
	cost  int
	dummy string
}

func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	// Precomputed hash of an unguessable throwaway value, used to burn a
	// comparable amount of CPU when the user does not exist.
	dummy, err := bcrypt.GenerateFromPassword([]byte("keygate-timing-pad"), cost)
	if err != nil {
		return nil, fmt.Errorf("hasher init: %w", err)
	}
	return &Hasher{cost: cost, dummy: string(dummy)}, nil
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (h *Hasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// VerifyDummy runs a hash comparison that always fails. Login calls it when
// the email is unknown so that absent-user and wrong-password paths take
// similar time.
func (h *Hasher) VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword([]byte(h.dummy), []byte(plaintext))
}
