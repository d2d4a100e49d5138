package auth

import "errors"

var (
	// ErrValidation covers malformed or missing input: empty email or
	// password, password shorter than the minimum, missing refresh token.
	ErrValidation = errors.New("invalid request")

	// ErrEmailTaken is returned when signup hits an existing email.
	// Comparison is case-insensitive.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is deliberately identical for unknown email
	// and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrTokenInvalid covers bad signature, malformed structure and expiry
	// on a presented bearer token.
	ErrTokenInvalid = errors.New("invalid or expired token")

	// ErrInvalidTokenType is returned when an access token is presented to
	// Refresh.
	ErrInvalidTokenType = errors.New("invalid token type")

	// ErrRefreshTokenInvalid means the refresh token is absent from the
	// ledger, expired, or already consumed by a rotation.
	ErrRefreshTokenInvalid = errors.New("invalid refresh token")

	// ErrUserNotFound means the token verified but the account is gone.
	ErrUserNotFound = errors.New("user not found")

	// ErrStorage is the opaque wrapper for any store failure; storage
	// details never cross the engine boundary.
	ErrStorage = errors.New("internal storage error")
)
