// Package errs contains sentinel errors shared by the repository, service and
// HTTP layers so failures can be mapped with errors.Is.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g. email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalid indicates input that failed validation.
	ErrInvalid = errors.New("invalid input")

	// ErrUnauthorized indicates a missing or invalid identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the identity is known but not allowed to act.
	ErrForbidden = errors.New("forbidden")

	// ErrUnconfirmed indicates sign-in to an account whose email is not verified.
	ErrUnconfirmed = errors.New("account is not confirmed")

	// ErrBadCredentials indicates an unknown email or a wrong password.
	ErrBadCredentials = errors.New("incorrect email or password")

	// ErrCodeMismatch indicates a verification code that does not match.
	ErrCodeMismatch = errors.New("invalid verification code")

	// ErrCodeExpired indicates a verification code past its expiry.
	ErrCodeExpired = errors.New("verification code expired")

	// ErrRateLimited indicates too many failed attempts from one client.
	ErrRateLimited = errors.New("rate limited")
)
