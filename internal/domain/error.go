package domain

import (
	"context"
	"errors"
)

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUnauthorized        = errors.New("unauthorized")

	// ErrCodeNotFound is the only redemption failure a caller ever sees; it covers
	// unknown, already used and concurrently redeemed codes alike.
	ErrCodeNotFound = errors.New("code not found or already used")

	// Upstream (image generation vendor) failures.
	ErrUpstreamTimeout     = errors.New("image generation timed out")
	ErrUpstreamAuth        = errors.New("image generation rejected credentials")
	ErrUpstreamRateLimited = errors.New("image generation rate limited")
	ErrUpstreamFailure     = errors.New("image generation failed")

	// Storage plumbing.
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// Kind is the coarse error class surfaced to transport layers.
type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindNotFound           Kind = "NOT_FOUND"
	KindInsufficientCredit Kind = "INSUFFICIENT_CREDIT"
	KindConflict           Kind = "CONFLICT"
	KindUpstream           Kind = "UPSTREAM_FAILURE"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindInternal           Kind = "INTERNAL"
)

// KindOf classifies any (possibly wrapped) error into a Kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return KindValidation
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCodeNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientCredits):
		return KindInsufficientCredit
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case IsUpstream(err):
		return KindUpstream
	default:
		return KindInternal
	}
}

// IsUpstream reports whether err came from the external generation call.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout) ||
		errors.Is(err, ErrUpstreamAuth) ||
		errors.Is(err, ErrUpstreamRateLimited) ||
		errors.Is(err, ErrUpstreamFailure)
}

// UpstreamClass returns the sub-class of an upstream error:
// "timeout", "auth", "rate_limit" or "generic".
func UpstreamClass(err error) string {
	switch {
	case errors.Is(err, ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrUpstreamAuth):
		return "auth"
	case errors.Is(err, ErrUpstreamRateLimited):
		return "rate_limit"
	default:
		return "generic"
	}
}
