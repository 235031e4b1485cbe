// Package common defines shared constants and sentinel errors used across
// the storage, service and transport layers. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Conflict flavours callers branch on.
	ErrUserExists = fmt.Errorf("user %w", ErrorAlreadyExists)
	ErrTierExists = fmt.Errorf("tier %w", ErrorAlreadyExists)

	// Invariant violations.
	ErrTierInUse     = errors.New("tier is assigned to one or more users")
	ErrorInvalidTier = errors.New("tier does not exist")

	// Service-level errors (generic/internal flow control).
	ErrorInternal         = errors.New("internal error")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrorValidation       = errors.New("validation error")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrQuotaExceeded      = errors.New("daily quota exceeded")
	ErrRateLimited        = errors.New("too many requests")

	// Auth errors. Expired and unknown tokens are deliberately indistinguishable.
	ErrInvalidToken = errors.New("invalid or expired token")
)
