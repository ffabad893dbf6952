package auth

import "errors"

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrSessionNotFound       = errors.New("session not found")
	ErrUserNotFound          = errors.New("user not found")
)

// Reasons a refresh is rejected. Callers only ever see ErrInvalidOrExpiredToken.
var (
	errSubjectMismatch = errors.New("refresh token subject does not match ledger owner")
	errInactiveUser    = errors.New("user is inactive")
)
