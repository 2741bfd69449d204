package auth

import "errors"

// Expected outcomes of the auth flow. The HTTP layer maps each one to a status code,
// anything else is treated as an internal failure
var (
	ErrInvalidCredentials  = errors.New("incorrect username or password")
	ErrAlreadyRegistered   = errors.New("email already registered")
	ErrExpired             = errors.New("token has expired")
	ErrRevoked             = errors.New("token has been revoked")
	ErrMalformedToken      = errors.New("token is malformed or carries an invalid signature")
	ErrCsrfMismatch        = errors.New("csrf token missing or mismatched")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrUserNotFound        = errors.New("user not found")
	ErrUnauthorized        = errors.New("could not validate credentials")
	ErrNotFound            = errors.New("no user matches the token subject")
)
