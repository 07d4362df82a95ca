package auth

import "errors"

// Verification failures. The gate collapses all of them into one
// unauthorized response; they stay distinct for logs and tests.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidAudience  = errors.New("invalid audience")
	ErrTokenExpired     = errors.New("token expired")
	ErrKeyNotFound      = errors.New("signing key not found")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Gate failures that happen before or after token verification.
var (
	ErrNoCredentials        = errors.New("no credentials presented")
	ErrInvalidMachineSecret = errors.New("machine secret mismatch")
	ErrMissingIdentity      = errors.New("token carries no email")
)
