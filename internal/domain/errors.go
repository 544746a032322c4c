package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrAlreadyExists          = errors.New("already exists")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrRateLimited            = errors.New("rate limited")
	ErrLockHeld               = errors.New("lock already held")
	ErrInvalidClaim           = errors.New("claim amount exceeds policy coverage")
	ErrInsufficientLiquidity  = errors.New("insufficient liquidity in risk pool")
	ErrArbitrationIncomplete  = errors.New("arbitration requires at least 3 votes")
	ErrDuplicateVote          = errors.New("arbitrator has already voted")
	ErrClaimFinalized         = errors.New("claim is already finalized")
	ErrArbitrationNotRequired = errors.New("claim is not in arbitration")
)

// ValidationError reports a malformed engine input. Validation failures are
// always surfaced to the caller; the engine never substitutes default output.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
