// Package common defines shared constants and sentinel errors used across
// the repository, service and HTTP layers. Callers should use errors.Is /
// errors.As to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Auth errors. Every token failure collapses to ErrUnauthenticated at the
	// service boundary; the finer errors below never leave the auth package.
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")

	// Order number generation.
	ErrInvalidOrderNumber     = errors.New("invalid order number")
	ErrOrderNumberUnavailable = errors.New("order number unavailable")
)
