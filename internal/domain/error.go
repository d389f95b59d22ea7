package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound               = errors.New("entity not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrForbidden              = errors.New("operation not allowed for this account")
	ErrAlreadyPaired          = errors.New("account already belongs to a couple")
	ErrDuplicateInvitation    = errors.New("a pending invitation already exists between these accounts")
	ErrCoupleComplete         = errors.New("couple already has two members")
	ErrInvitationExpired      = errors.New("invitation has expired")
	ErrCodeGenExhausted       = errors.New("pairing code generation exhausted retries")
	ErrInvariantBroken        = errors.New("membership invariant broken")
	ErrInvalidExecContext     = errors.New("invalid executor context")
	ErrLockNotAcquired        = errors.New("could not acquire pairing lock")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvitationClosed       = errors.New("invitation already resolved")
	ErrRateLimited            = errors.New("too many requests")
)

// IsConflict reports whether err belongs to the retry-after-re-read class:
// the caller raced another request and should re-fetch state before retrying.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyPaired) ||
		errors.Is(err, ErrDuplicateInvitation) ||
		errors.Is(err, ErrCoupleComplete) ||
		errors.Is(err, ErrEmailAlreadyRegistered) ||
		errors.Is(err, ErrInvitationClosed) ||
		errors.Is(err, ErrLockNotAcquired)
}

// IsFatal reports whether err indicates the store may be inconsistent and an
// out-of-band reconciliation alert should fire.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCodeGenExhausted) || errors.Is(err, ErrInvariantBroken)
}
