package core

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnauthorized        = errors.New("verification rejected")
	ErrUnauthenticated     = errors.New("no token provided")
	ErrInvalidToken        = errors.New("invalid token")
	ErrMalformedToken      = errors.New("malformed token")
	ErrTokenExpired        = errors.New("token has expired")
	ErrUpstreamUnavailable = errors.New("identity provider unavailable")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrChallengeExpired    = errors.New("challenge has expired")
	ErrChallengeMismatch   = errors.New("challenge mismatch")
	ErrChallengeRequired   = errors.New("challenge is required")
)

// Verification failure reasons surfaced to clients verbatim
const (
	ReasonUserMismatch       = "User ID mismatch"
	ReasonInvalidAccessToken = "Invalid or expired access token"
	ReasonForbidden          = "Insufficient permissions"
	ReasonRateLimited        = "Rate limit exceeded"
	ReasonUnavailable        = "Pi Network API unavailable"
	ReasonFailed             = "Pi Network verification failed"
)

// VerificationError carries the reason the identity provider rejected an access token
type VerificationError struct {
	Reason string
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *VerificationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnauthorized, e.Err}
	}
	return []error{ErrUnauthorized}
}
