package services

import "errors"

// Sentinel errors for explicit error handling
// These errors allow callers to distinguish between different failure modes
// using errors.Is() instead of string matching

var (
	// ErrInvalidCredentials indicates authentication failed. Unknown usernames and
	// wrong passwords both map here.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnavailable indicates a store, hashing or signing failure. The cause is
	// wrapped for logs and must not reach the client.
	ErrUnavailable = errors.New("service unavailable")

	// ErrSessionMalformed indicates the token could not be parsed
	ErrSessionMalformed = errors.New("malformed session token")

	// ErrInvalidSignature indicates the token was not signed with our key
	ErrInvalidSignature = errors.New("invalid session token signature")

	// ErrSessionExpired indicates the token is past its expiry
	ErrSessionExpired = errors.New("session token has expired")

	// ErrSessionRevoked indicates the token was revoked or its account no longer exists
	ErrSessionRevoked = errors.New("session token has been revoked")

	// ErrForbidden indicates the authorization gate denied the capability
	ErrForbidden = errors.New("access denied")

	// ErrUsernameTaken indicates an account with the username already exists
	ErrUsernameTaken = errors.New("username already exists")

	// ErrAdminNotFound indicates the account does not exist
	ErrAdminNotFound = errors.New("admin account not found")

	// ErrInvalidInput indicates a provisioning request failed validation
	ErrInvalidInput = errors.New("invalid input")
)

// IsSessionError reports whether err is one of the session failures that map to 401
func IsSessionError(err error) bool {
	return errors.Is(err, ErrSessionMalformed) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrSessionRevoked)
}
